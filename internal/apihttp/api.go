// Package apihttp mounts the JSON API route groups and owns the API
// 404 contract: any unmatched /api/ path gets a JSON body, never the
// site fallback document.
package apihttp

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/owenvale/shopfront/internal/httperr"
	"github.com/owenvale/shopfront/internal/httpmw"
)

// HandlerFunc is an http handler that reports failure instead of
// writing its own error response. The normalizer owns the error shape.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Group registers its routes on a sub-router. Each API group owns one
// prefix under /api/.
type Group interface {
	Routes(r chi.Router)
}

// Groups holds the five storefront route groups.
type Groups struct {
	Auth      Group
	Products  Group
	Orders    Group
	Customers Group
	Settings  Group
}

// API adapts route groups to the error pipeline.
type API struct {
	norm *httperr.Normalizer
}

func New(norm *httperr.Normalizer) *API {
	return &API{norm: norm}
}

// Wrap adapts a HandlerFunc to http.HandlerFunc, routing any returned
// error through the normalizer.
func (a *API) Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			a.norm.Write(w, r, err)
		}
	}
}

// RegisterRoutes mounts every non-nil group under its /api prefix and
// scopes the request logger to the group name.
func (a *API) RegisterRoutes(r chi.Router, g Groups) {
	mount := func(name string, grp Group) {
		if grp == nil {
			return
		}
		r.Route("/api/"+name, func(r chi.Router) {
			r.Use(httpmw.Scope(name))
			grp.Routes(r)
		})
	}
	mount("auth", g.Auth)
	mount("products", g.Products)
	mount("orders", g.Orders)
	mount("customers", g.Customers)
	mount("settings", g.Settings)
}

// NotFound returns the terminal handler for unmatched paths: API paths
// get the fixed JSON 404, everything else falls through to the site
// handler (which serves the root document).
func (a *API) NotFound(fallback http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
			a.norm.Write(w, r, httperr.NotFoundAPI())
			return
		}
		fallback.ServeHTTP(w, r)
	}
}

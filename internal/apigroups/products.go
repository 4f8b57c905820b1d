// Package apigroups carries the in-memory storefront API groups.
// Each group is safe for concurrent use and
// holds its state behind a mutex; a real deployment swaps these for
// database-backed implementations satisfying the same apihttp.Group
// contract.
package apigroups

import (
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/bodyparse"
	"github.com/owenvale/shopfront/internal/httperr"
)

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	PriceCents  int64   `json:"price_cents"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"image_url,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

type Products struct {
	api *apihttp.API

	mu    sync.RWMutex
	items map[string]Product
}

func NewProducts(api *apihttp.API) *Products {
	return &Products{api: api, items: make(map[string]Product)}
}

func (p *Products) Routes(r chi.Router) {
	r.Get("/", p.api.Wrap(p.list))
	r.Post("/", p.api.Wrap(p.create))
	r.Get("/{productID}", p.api.Wrap(p.get))
	r.Put("/{productID}", p.api.Wrap(p.update))
	r.Delete("/{productID}", p.api.Wrap(p.remove))
}

func (p *Products) list(w http.ResponseWriter, r *http.Request) error {
	p.mu.RLock()
	out := make([]Product, 0, len(p.items))
	for _, item := range p.items {
		out = append(out, item)
	}
	p.mu.RUnlock()

	// Stable ordering keeps pagination and caching sane.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return writeJSON(w, http.StatusOK, out)
}

func (p *Products) create(w http.ResponseWriter, r *http.Request) error {
	var in Product
	if err := bodyparse.DecodeJSON(r.Context(), &in); err != nil {
		return httperr.BadRequest("invalid product payload")
	}
	if in.Name == "" {
		return httperr.BadRequest("product name is required")
	}
	if in.PriceCents < 0 {
		return httperr.BadRequest("price must not be negative")
	}

	in.ID = uuid.NewString()
	p.mu.Lock()
	p.items[in.ID] = in
	p.mu.Unlock()

	return writeJSON(w, http.StatusCreated, in)
}

func (p *Products) get(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "productID")

	p.mu.RLock()
	item, ok := p.items[id]
	p.mu.RUnlock()
	if !ok {
		return httperr.NotFound("product not found")
	}
	return writeJSON(w, http.StatusOK, item)
}

func (p *Products) update(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "productID")

	var in Product
	if err := bodyparse.DecodeJSON(r.Context(), &in); err != nil {
		return httperr.BadRequest("invalid product payload")
	}
	if in.PriceCents < 0 {
		return httperr.BadRequest("price must not be negative")
	}

	p.mu.Lock()
	cur, ok := p.items[id]
	if ok {
		if in.Name != "" {
			cur.Name = in.Name
		}
		if in.Description != "" {
			cur.Description = in.Description
		}
		if in.PriceCents != 0 {
			cur.PriceCents = in.PriceCents
		}
		cur.Stock = in.Stock
		p.items[id] = cur
	}
	p.mu.Unlock()
	if !ok {
		return httperr.NotFound("product not found")
	}
	return writeJSON(w, http.StatusOK, cur)
}

func (p *Products) remove(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "productID")

	p.mu.Lock()
	_, ok := p.items[id]
	delete(p.items, id)
	p.mu.Unlock()
	if !ok {
		return httperr.NotFound("product not found")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

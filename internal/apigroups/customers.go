package apigroups

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/bodyparse"
	"github.com/owenvale/shopfront/internal/httperr"
)

type Customer struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Customers exposes profile lookup and update. Identity comes from the
// auth group's session store.
type Customers struct {
	api  *apihttp.API
	auth *Auth

	mu    sync.RWMutex
	items map[string]Customer
}

func NewCustomers(api *apihttp.API, auth *Auth) *Customers {
	return &Customers{api: api, auth: auth, items: make(map[string]Customer)}
}

func (c *Customers) Routes(r chi.Router) {
	r.Get("/me", c.api.Wrap(c.me))
	r.Put("/me", c.api.Wrap(c.updateMe))
	r.Get("/{customerID}", c.api.Wrap(c.get))
}

func (c *Customers) me(w http.ResponseWriter, r *http.Request) error {
	id := c.requireSession(r)
	if id == "" {
		return httperr.Unauthorized("not signed in")
	}

	c.mu.RLock()
	cust, ok := c.items[id]
	c.mu.RUnlock()
	if !ok {
		// First touch after registration: synthesize from the account.
		cust = c.fromAccount(id)
	}
	return writeJSON(w, http.StatusOK, cust)
}

func (c *Customers) updateMe(w http.ResponseWriter, r *http.Request) error {
	id := c.requireSession(r)
	if id == "" {
		return httperr.Unauthorized("not signed in")
	}

	var in Customer
	if err := bodyparse.DecodeJSON(r.Context(), &in); err != nil {
		return httperr.BadRequest("invalid profile payload")
	}

	c.mu.Lock()
	cur, ok := c.items[id]
	if !ok {
		cur = c.fromAccount(id)
	}
	if in.Name != "" {
		cur.Name = in.Name
	}
	if in.Address != "" {
		cur.Address = in.Address
	}
	if in.Phone != "" {
		cur.Phone = in.Phone
	}
	c.items[id] = cur
	c.mu.Unlock()

	return writeJSON(w, http.StatusOK, cur)
}

func (c *Customers) get(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "customerID")

	c.mu.RLock()
	cust, ok := c.items[id]
	c.mu.RUnlock()
	if !ok {
		return httperr.NotFound("customer not found")
	}
	return writeJSON(w, http.StatusOK, cust)
}

func (c *Customers) requireSession(r *http.Request) string {
	if c.auth == nil {
		return ""
	}
	return c.auth.Authenticate(r)
}

func (c *Customers) fromAccount(id string) Customer {
	cust := Customer{ID: id}
	if c.auth == nil {
		return cust
	}
	c.auth.mu.RLock()
	for _, acct := range c.auth.byEmail {
		if acct.ID == id {
			cust.Email = strings.ToLower(acct.Email)
			cust.Name = acct.Name
			break
		}
	}
	c.auth.mu.RUnlock()
	return cust
}

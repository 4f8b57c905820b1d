package apigroups

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/bodyparse"
	"github.com/owenvale/shopfront/internal/httperr"
)

type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id,omitempty"`
	Lines      []OrderLine `json:"lines"`
	TotalCents int64       `json:"total_cents"`
	Status     string      `json:"status"`
	PlacedAt   time.Time   `json:"placed_at"`
}

// Order status transitions: placed -> shipped -> delivered, or
// placed -> cancelled.
const (
	StatusPlaced    = "placed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

type Orders struct {
	api      *apihttp.API
	products *Products

	mu    sync.RWMutex
	items map[string]Order
	now   func() time.Time
}

func NewOrders(api *apihttp.API, products *Products) *Orders {
	return &Orders{
		api:      api,
		products: products,
		items:    make(map[string]Order),
		now:      time.Now,
	}
}

func (o *Orders) Routes(r chi.Router) {
	r.Get("/", o.api.Wrap(o.list))
	r.Post("/", o.api.Wrap(o.create))
	r.Get("/{orderID}", o.api.Wrap(o.get))
	r.Post("/{orderID}/cancel", o.api.Wrap(o.cancel))
}

func (o *Orders) list(w http.ResponseWriter, r *http.Request) error {
	o.mu.RLock()
	out := make([]Order, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return writeJSON(w, http.StatusOK, out)
}

type placeOrderRequest struct {
	CustomerID string      `json:"customer_id,omitempty"`
	Lines      []OrderLine `json:"lines"`
}

func (o *Orders) create(w http.ResponseWriter, r *http.Request) error {
	var in placeOrderRequest
	if err := bodyparse.DecodeJSON(r.Context(), &in); err != nil {
		return httperr.BadRequest("invalid order payload")
	}
	if len(in.Lines) == 0 {
		return httperr.BadRequest("order must contain at least one line")
	}

	var total int64
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return httperr.BadRequest("line quantity must be positive")
		}
		if o.products != nil {
			o.products.mu.RLock()
			prod, ok := o.products.items[line.ProductID]
			o.products.mu.RUnlock()
			if !ok {
				return httperr.BadRequest("unknown product: " + line.ProductID)
			}
			total += prod.PriceCents * int64(line.Quantity)
		}
	}

	order := Order{
		ID:         uuid.NewString(),
		CustomerID: in.CustomerID,
		Lines:      in.Lines,
		TotalCents: total,
		Status:     StatusPlaced,
		PlacedAt:   o.now().UTC(),
	}

	o.mu.Lock()
	o.items[order.ID] = order
	o.mu.Unlock()

	return writeJSON(w, http.StatusCreated, order)
}

func (o *Orders) get(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "orderID")

	o.mu.RLock()
	order, ok := o.items[id]
	o.mu.RUnlock()
	if !ok {
		return httperr.NotFound("order not found")
	}
	return writeJSON(w, http.StatusOK, order)
}

func (o *Orders) cancel(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "orderID")

	o.mu.Lock()
	order, ok := o.items[id]
	if ok && order.Status == StatusPlaced {
		order.Status = StatusCancelled
		o.items[id] = order
	}
	o.mu.Unlock()

	if !ok {
		return httperr.NotFound("order not found")
	}
	if order.Status != StatusCancelled {
		return httperr.BadRequest("only placed orders can be cancelled")
	}
	return writeJSON(w, http.StatusOK, order)
}

package apigroups

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/bodyparse"
	"github.com/owenvale/shopfront/internal/httperr"
)

type StoreSettings struct {
	StoreName      string `json:"store_name"`
	Currency       string `json:"currency"`
	SupportEmail   string `json:"support_email,omitempty"`
	MaintenanceOn  bool   `json:"maintenance_on"`
	FreeShipCents  int64  `json:"free_shipping_threshold_cents,omitempty"`
	ItemsPerPage   int    `json:"items_per_page"`
	AllowGuestCart bool   `json:"allow_guest_cart"`
}

func defaultSettings() StoreSettings {
	return StoreSettings{
		StoreName:      "Shopfront",
		Currency:       "USD",
		ItemsPerPage:   24,
		AllowGuestCart: true,
	}
}

type Settings struct {
	api *apihttp.API

	mu  sync.RWMutex
	cur StoreSettings
}

func NewSettings(api *apihttp.API) *Settings {
	return &Settings{api: api, cur: defaultSettings()}
}

func (s *Settings) Routes(r chi.Router) {
	r.Get("/", s.api.Wrap(s.get))
	r.Put("/", s.api.Wrap(s.update))
}

func (s *Settings) get(w http.ResponseWriter, r *http.Request) error {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()
	return writeJSON(w, http.StatusOK, cur)
}

func (s *Settings) update(w http.ResponseWriter, r *http.Request) error {
	var in StoreSettings
	if err := bodyparse.DecodeJSON(r.Context(), &in); err != nil {
		return httperr.BadRequest("invalid settings payload")
	}
	if in.StoreName == "" {
		return httperr.BadRequest("store name is required")
	}
	if len(in.Currency) != 3 {
		return httperr.BadRequest("currency must be a 3-letter code")
	}
	if in.ItemsPerPage <= 0 {
		in.ItemsPerPage = defaultSettings().ItemsPerPage
	}

	s.mu.Lock()
	s.cur = in
	s.mu.Unlock()

	return writeJSON(w, http.StatusOK, in)
}

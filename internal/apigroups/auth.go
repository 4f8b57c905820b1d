package apigroups

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/bodyparse"
	"github.com/owenvale/shopfront/internal/httperr"
)

type account struct {
	ID       string
	Email    string
	Name     string
	passHash [32]byte
}

// Auth handles registration, login, and session lookup. Sessions are
// opaque bearer tokens held in memory.
type Auth struct {
	api *apihttp.API

	mu       sync.RWMutex
	byEmail  map[string]*account
	sessions map[string]string // token -> account ID
}

func NewAuth(api *apihttp.API) *Auth {
	return &Auth{
		api:      api,
		byEmail:  make(map[string]*account),
		sessions: make(map[string]string),
	}
}

func (a *Auth) Routes(r chi.Router) {
	r.Post("/register", a.api.Wrap(a.register))
	r.Post("/login", a.api.Wrap(a.login))
	r.Post("/logout", a.api.Wrap(a.logout))
	r.Get("/session", a.api.Wrap(a.session))
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type sessionBody struct {
	Token      string `json:"token"`
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
}

func (a *Auth) register(w http.ResponseWriter, r *http.Request) error {
	var in credentials
	if err := bodyparse.DecodeJSON(r.Context(), &in); err != nil {
		return httperr.BadRequest("invalid registration payload")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return httperr.BadRequest("a valid email is required")
	}
	if len(in.Password) < 8 {
		return httperr.BadRequest("password must be at least 8 characters")
	}

	acct := &account{
		ID:       uuid.NewString(),
		Email:    in.Email,
		Name:     in.Name,
		passHash: sha256.Sum256([]byte(in.Password)),
	}

	a.mu.Lock()
	if _, exists := a.byEmail[in.Email]; exists {
		a.mu.Unlock()
		return httperr.BadRequest("an account with this email already exists")
	}
	a.byEmail[in.Email] = acct
	token := uuid.NewString()
	a.sessions[token] = acct.ID
	a.mu.Unlock()

	return writeJSON(w, http.StatusCreated, sessionBody{Token: token, CustomerID: acct.ID, Email: acct.Email})
}

func (a *Auth) login(w http.ResponseWriter, r *http.Request) error {
	var in credentials
	if err := bodyparse.DecodeJSON(r.Context(), &in); err != nil {
		return httperr.BadRequest("invalid login payload")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byEmail[in.Email]
	if !ok {
		return httperr.Unauthorized("invalid email or password")
	}
	sum := sha256.Sum256([]byte(in.Password))
	if subtle.ConstantTimeCompare(sum[:], acct.passHash[:]) != 1 {
		return httperr.Unauthorized("invalid email or password")
	}

	token := uuid.NewString()
	a.sessions[token] = acct.ID
	return writeJSON(w, http.StatusOK, sessionBody{Token: token, CustomerID: acct.ID, Email: acct.Email})
}

func (a *Auth) logout(w http.ResponseWriter, r *http.Request) error {
	token := bearerToken(r)
	if token == "" {
		return httperr.Unauthorized("missing session token")
	}

	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *Auth) session(w http.ResponseWriter, r *http.Request) error {
	acct := a.Authenticate(r)
	if acct == "" {
		return httperr.Unauthorized("not signed in")
	}
	return writeJSON(w, http.StatusOK, map[string]string{"customer_id": acct})
}

// Authenticate resolves a request's bearer token to a customer ID,
// or "" when the session is absent or expired.
func (a *Auth) Authenticate(r *http.Request) string {
	token := bearerToken(r)
	if token == "" {
		return ""
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessions[token]
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return h[len(prefix):]
}

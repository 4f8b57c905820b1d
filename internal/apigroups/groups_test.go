package apigroups

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/owenvale/shopfront/internal/apihttp"
	"github.com/owenvale/shopfront/internal/bodyparse"
	"github.com/owenvale/shopfront/internal/httperr"
	"github.com/owenvale/shopfront/internal/log"
)

// newStore wires the five groups behind the body decoder the same way
// the server does, returning the router and the group instances.
func newStore(t *testing.T) (http.Handler, *apihttp.API, *Products, *Orders, *Auth) {
	t.Helper()

	norm := httperr.NewNormalizer(log.Nop(), false, nil)
	api := apihttp.New(norm)

	auth := NewAuth(api)
	products := NewProducts(api)
	orders := NewOrders(api, products)
	customers := NewCustomers(api, auth)
	settings := NewSettings(api)

	r := chi.NewRouter()
	r.Use(bodyparse.Decode(norm))
	api.RegisterRoutes(r, apihttp.Groups{
		Auth:      auth,
		Products:  products,
		Orders:    orders,
		Customers: customers,
		Settings:  settings,
	})
	return r, api, products, orders, auth
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return v
}

// Products

func TestProducts_CreateListGet(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/products", `{"name":"Walnut Desk","price_cents":48900,"stock":3}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[Product](t, rec)
	if created.ID == "" {
		t.Fatal("created product has no ID")
	}

	rec = doJSON(t, h, "GET", "/api/products", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decode[[]Product](t, rec)
	if len(list) != 1 || list[0].Name != "Walnut Desk" {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, h, "GET", "/api/products/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestProducts_ValidationErrors(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"price_cents":100}`},
		{"negative price", `{"name":"x","price_cents":-5}`},
	}
	for _, tc := range cases {
		rec := doJSON(t, h, "POST", "/api/products", tc.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, rec.Code)
		}
		body := decode[map[string]string](t, rec)
		if body["error"] == "" {
			t.Errorf("%s: missing error message", tc.name)
		}
	}
}

func TestProducts_GetUnknownIs404(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "GET", "/api/products/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["error"] != "product not found" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestProducts_Delete(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/products", `{"name":"Lamp","price_cents":2500}`, nil)
	created := decode[Product](t, rec)

	rec = doJSON(t, h, "DELETE", "/api/products/"+created.ID, "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/api/products/"+created.ID, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

// Orders

func TestOrders_PlaceComputesTotal(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/products", `{"name":"Mug","price_cents":1200,"stock":10}`, nil)
	mug := decode[Product](t, rec)

	rec = doJSON(t, h, "POST", "/api/orders",
		`{"lines":[{"product_id":"`+mug.ID+`","quantity":3}]}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("order status = %d, body = %s", rec.Code, rec.Body.String())
	}
	order := decode[Order](t, rec)
	if order.TotalCents != 3600 {
		t.Fatalf("total = %d, want 3600", order.TotalCents)
	}
	if order.Status != StatusPlaced {
		t.Fatalf("status = %q, want placed", order.Status)
	}
}

func TestOrders_UnknownProductRejected(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/orders",
		`{"lines":[{"product_id":"ghost","quantity":1}]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOrders_EmptyOrderRejected(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/orders", `{"lines":[]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOrders_Cancel(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/products", `{"name":"Chair","price_cents":9900}`, nil)
	chair := decode[Product](t, rec)
	rec = doJSON(t, h, "POST", "/api/orders",
		`{"lines":[{"product_id":"`+chair.ID+`","quantity":1}]}`, nil)
	order := decode[Order](t, rec)

	rec = doJSON(t, h, "POST", "/api/orders/"+order.ID+"/cancel", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rec.Code)
	}
	cancelled := decode[Order](t, rec)
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}

	// Second cancel is a no-op error.
	rec = doJSON(t, h, "POST", "/api/orders/"+order.ID+"/cancel", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("double cancel status = %d, want 400", rec.Code)
	}
}

// Auth + Customers

func TestAuth_RegisterLoginSession(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/auth/register",
		`{"email":"ada@example.com","password":"correcthorse","name":"Ada"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	sess := decode[map[string]string](t, rec)
	if sess["token"] == "" || sess["customer_id"] == "" {
		t.Fatalf("session = %v", sess)
	}

	rec = doJSON(t, h, "POST", "/api/auth/login",
		`{"email":"ADA@example.com","password":"correcthorse"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	token := decode[map[string]string](t, rec)["token"]
	rec = doJSON(t, h, "GET", "/api/auth/session", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d", rec.Code)
	}
}

func TestAuth_BadPasswordRejected(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	doJSON(t, h, "POST", "/api/auth/register",
		`{"email":"bob@example.com","password":"longenough"}`, nil)

	rec := doJSON(t, h, "POST", "/api/auth/login",
		`{"email":"bob@example.com","password":"wrong-password"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_DuplicateEmailRejected(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	doJSON(t, h, "POST", "/api/auth/register",
		`{"email":"dup@example.com","password":"longenough"}`, nil)
	rec := doJSON(t, h, "POST", "/api/auth/register",
		`{"email":"dup@example.com","password":"longenough"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAuth_ShortPasswordRejected(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/auth/register",
		`{"email":"c@example.com","password":"short"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCustomers_MeRequiresSession(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "GET", "/api/customers/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCustomers_MeAndUpdate(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "POST", "/api/auth/register",
		`{"email":"eve@example.com","password":"longenough","name":"Eve"}`, nil)
	token := decode[map[string]string](t, rec)["token"]
	auth := map[string]string{"Authorization": "Bearer " + token}

	rec = doJSON(t, h, "GET", "/api/customers/me", "", auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	me := decode[Customer](t, rec)
	if me.Email != "eve@example.com" || me.Name != "Eve" {
		t.Fatalf("me = %+v", me)
	}

	rec = doJSON(t, h, "PUT", "/api/customers/me",
		`{"address":"12 Elm St","phone":"555-0101"}`, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}
	updated := decode[Customer](t, rec)
	if updated.Address != "12 Elm St" || updated.Name != "Eve" {
		t.Fatalf("updated = %+v", updated)
	}
}

// Settings

func TestSettings_DefaultsAndUpdate(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "GET", "/api/settings", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	cur := decode[StoreSettings](t, rec)
	if cur.Currency != "USD" || cur.ItemsPerPage != 24 {
		t.Fatalf("defaults = %+v", cur)
	}

	rec = doJSON(t, h, "PUT", "/api/settings",
		`{"store_name":"Oak & Iron","currency":"EUR","items_per_page":12}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "GET", "/api/settings", "", nil)
	cur = decode[StoreSettings](t, rec)
	if cur.StoreName != "Oak & Iron" || cur.Currency != "EUR" {
		t.Fatalf("after update = %+v", cur)
	}
}

func TestSettings_BadCurrencyRejected(t *testing.T) {
	h, _, _, _, _ := newStore(t)

	rec := doJSON(t, h, "PUT", "/api/settings",
		`{"store_name":"x","currency":"EURO"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"
	"sweetshop/internal/service"
	"sweetshop/internal/validation"
	"sweetshop/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "sugar-rush-123"

type testServer struct {
	t     *testing.T
	e     *echo.Echo
	store *repository.Store
	auth  *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "handler-test-key", ExpirationHours: 1, Issuer: "sweetshop"})
	auth := service.NewAuthService(store.Users, store.Tokens, jwt, bcrypt.MinCost)
	inventory := service.NewInventoryService(store.Inventory, store.Sweets)

	e := NewServer(Services{
		Auth:      auth,
		Catalog:   service.NewCatalogService(store.Sweets),
		Inventory: inventory,
		History:   service.NewHistoryService(store.Purchases),
		Profiles:  service.NewProfileService(store.Users),
		Ping:      store.Ping,
		Limits:    validation.Limits{DefaultLimit: 10, MaxLimit: 100},
	})
	return &testServer{t: t, e: e, store: store, auth: auth}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// register signs up and logs in, returning the bearer token
func (s *testServer) register(email, name string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": password, "name": name})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return s.login(email)
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var session service.Session
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &session))
	return session.Token
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	require.NoError(s.t, s.auth.EnsureAdmin(context.Background(), "admin@example.com", password, "Admin"))
	return s.login("admin@example.com")
}

func (s *testServer) createSweet(token, name string, price int64, qty int) model.Sweet {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/sweets", token, map[string]interface{}{
		"name": name, "category": "chocolate", "price_cents": price, "quantity": qty,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sweet model.Sweet
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &sweet))
	return sweet
}

func (s *testServer) stock(id fmt.Stringer) int {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/sweets/"+id.String(), "", nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	var sweet model.Sweet
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &sweet))
	return sweet.Quantity
}

type errorBody struct {
	Code    apperror.Code   `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var env struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error
}

func fieldErrors(t *testing.T, rec *httptest.ResponseRecorder) []apperror.FieldError {
	t.Helper()
	body := decodeError(t, rec)
	require.Equal(t, apperror.CodeValidation, body.Code)
	var fields []apperror.FieldError
	require.NoError(t, json.Unmarshal(body.Details, &fields))
	return fields
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health?check=db", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db_status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sweetshop_http_requests_total")
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRegisterValidationListsEveryField(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "bad", "password": "short", "name": "X"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, fieldErrors(t, rec), 3)

	rec = s.do(http.MethodPost, "/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeValidation, decodeError(t, rec).Code)
}

func TestAuthGates(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	user := s.register("uma@example.com", "Uma")
	sweet := s.createSweet(admin, "Dark Square", 150, 5)

	rec := s.do(http.MethodPost, "/sweets/"+sweet.ID.String()+"/purchase", "", map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.CodeUnauthorized, decodeError(t, rec).Code)

	rec = s.do(http.MethodPost, "/sweets", user, map[string]interface{}{"name": "Nope", "category": "candy", "price_cents": 1, "quantity": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/purchases", user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/profile", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Non-admin restock is refused and stock stays put
	rec = s.do(http.MethodPost, "/sweets/"+sweet.ID.String()+"/restock", user, map[string]int{"quantity": 50})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperror.CodeForbidden, decodeError(t, rec).Code)
	assert.Equal(t, 5, s.stock(sweet.ID))

	rec = s.do(http.MethodPost, "/sweets/"+sweet.ID.String()+"/restock", admin, map[string]int{"quantity": 50})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 55, s.stock(sweet.ID))
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.register("vic@example.com", "Vic")

	rec := s.do(http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"vic@example.com"`)

	rec = s.do(http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPurchaseFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	buyer := s.register("wes@example.com", "Wes")
	sweet := s.createSweet(admin, "Milk Buttons", 90, 3)
	path := "/sweets/" + sweet.ID.String() + "/purchase"

	rec := s.do(http.MethodPost, path, buyer, map[string]int{"quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var purchase model.Purchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &purchase))
	assert.Equal(t, int64(180), purchase.TotalCents)
	assert.Equal(t, model.PurchaseStatusPending, purchase.Status)
	assert.Equal(t, 1, s.stock(sweet.ID))

	rec = s.do(http.MethodPost, path, buyer, map[string]int{"quantity": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, decodeError(t, rec).Code)
	assert.Equal(t, 1, s.stock(sweet.ID))

	rec = s.do(http.MethodPost, path, buyer, map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/sweets/not-a-uuid/purchase", buyer, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/purchases/me", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page model.Page[model.Purchase]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	rec = s.do(http.MethodGet, "/purchases/"+purchase.ID.String(), buyer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	other := s.register("xena@example.com", "Xena")
	rec = s.do(http.MethodGet, "/purchases/"+purchase.ID.String(), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/purchases?sort=total&dir=desc", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"purchaser"`)
}

func TestTwoBuyersOneUnit(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	sweet := s.createSweet(admin, "Final Fudge", 500, 1)
	tokens := []string{s.register("yan@example.com", "Yan"), s.register("zoe@example.com", "Zoe")}

	codes := make([]int, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			codes[i] = s.do(http.MethodPost, "/sweets/"+sweet.ID.String()+"/purchase", token, map[string]int{"quantity": 1}).Code
		}(i, token)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)
	assert.Equal(t, 0, s.stock(sweet.ID))
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	buyer := s.register("abe@example.com", "Abe")
	a := s.createSweet(admin, "Hazelnut Cup", 200, 10)
	b := s.createSweet(admin, "Orange Slice", 50, 1)

	cart := map[string]interface{}{
		"items": []map[string]interface{}{
			{"sweet_id": a.ID, "quantity": 2},
			{"sweet_id": b.ID, "quantity": 1},
		},
	}

	rec := s.do(http.MethodPost, "/checkout", buyer, cart)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperror.CodeProfileIncomplete, decodeError(t, rec).Code)

	rec = s.do(http.MethodPut, "/profile", buyer, map[string]string{"name": "Abe", "phone_number": "555-0111", "address": "4 Wafer Way"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cart["total_price_cents"] = 100
	rec = s.do(http.MethodPost, "/checkout", buyer, cart)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperror.CodeConflict, decodeError(t, rec).Code)

	cart["total_price_cents"] = 450
	rec = s.do(http.MethodPost, "/checkout", buyer, cart)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var purchase model.Purchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &purchase))
	assert.Len(t, purchase.Items, 2)
	assert.Equal(t, "4 Wafer Way", purchase.Address)
	assert.Equal(t, 8, s.stock(a.ID))
	assert.Equal(t, 0, s.stock(b.ID))

	// The second run fails on the orange slice and leaves the cups alone
	delete(cart, "total_price_cents")
	rec = s.do(http.MethodPost, "/checkout", buyer, cart)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, decodeError(t, rec).Code)
	assert.Equal(t, 8, s.stock(a.ID))

	rec = s.do(http.MethodPost, "/checkout", buyer, map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogListing(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	for i := 0; i < 15; i++ {
		s.createSweet(admin, fmt.Sprintf("Truffle %02d", i), int64(100+i), 1)
	}

	rec := s.do(http.MethodGet, "/sweets?limit=5&page=2&sort=price&dir=asc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page model.Page[model.Sweet]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(15), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasMore)
	require.Len(t, page.Data, 5)
	assert.Equal(t, "Truffle 05", page.Data[0].Name)

	rec = s.do(http.MethodGet, "/sweets?limit=1000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 100, page.Limit)

	rec = s.do(http.MethodGet, "/sweets?sort=secret_column&limit=0&minPrice=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, fieldErrors(t, rec), 3)

	rec = s.do(http.MethodGet, "/sweets?category=chocolate&q=truffle%2001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)
}

func TestSweetAdminCRUD(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	sweet := s.createSweet(admin, "Sugar Mouse", 75, 4)

	rec := s.do(http.MethodPost, "/sweets", admin, map[string]interface{}{"name": "Sugar Mouse", "category": "candy", "price_cents": 1, "quantity": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPut, "/sweets/"+sweet.ID.String(), admin, map[string]interface{}{
		"name": "Sugar Mouse XL", "category": "candy", "price_cents": 120, "quantity": 4, "image_url": "https://img.example.com/mouse.png",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Sugar Mouse XL")

	rec = s.do(http.MethodPut, "/sweets/"+sweet.ID.String(), admin, map[string]interface{}{"name": "Missing Fields"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/sweets/"+sweet.ID.String(), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/sweets/"+sweet.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOversizedNumbersAreRejected(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()

	rec := s.do(http.MethodPost, "/sweets", admin, map[string]interface{}{
		"name": "Gilded Truffle", "category": "chocolate", "price_cents": int64(1) << 62, "quantity": 10,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	fields := fieldErrors(t, rec)
	require.Len(t, fields, 1)
	assert.Equal(t, "price_cents", fields[0].Field)

	// The most expensive allowed sweet still sells at the largest quantity
	sweet := s.createSweet(admin, "Gilded Truffle", model.MaxPriceCents, 10000)
	buyer := s.register("gus@example.com", "Gus")
	rec = s.do(http.MethodPost, "/sweets/"+sweet.ID.String()+"/purchase", buyer, map[string]int{"quantity": 10000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var purchase model.Purchase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &purchase))
	assert.Equal(t, model.MaxPriceCents*10000, purchase.TotalCents)

	rec = s.do(http.MethodGet, "/sweets?page=9223372036854775807&limit=10", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	fields = fieldErrors(t, rec)
	require.Len(t, fields, 1)
	assert.Equal(t, "page", fields[0].Field)
}

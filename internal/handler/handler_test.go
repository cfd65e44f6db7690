package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebano/rebano-go/internal/crypto"
	"github.com/rebano/rebano-go/internal/middleware"
	"github.com/rebano/rebano-go/internal/model"
	"github.com/rebano/rebano-go/internal/repository"
	"github.com/rebano/rebano-go/internal/service"
	"github.com/rebano/rebano-go/internal/validation"
)

type fakeRecords struct {
	records map[string]model.Record
	err     error
	body    json.RawMessage
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string]model.Record{
		"a1": {"id": "a1", "userId": "u1", "earTag": "MX-1"},
	}}
}

func (f *fakeRecords) List(ctx context.Context, uid string) ([]model.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Record{}
	for _, r := range f.records {
		if r["userId"] == uid {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecords) Get(ctx context.Context, uid, id string) (model.Record, error) {
	r, ok := f.records[id]
	switch {
	case !ok:
		return nil, service.ErrRecordNotFound
	case r["userId"] != uid:
		return nil, service.ErrForbidden
	}
	return r, nil
}

func (f *fakeRecords) Create(ctx context.Context, uid string, body json.RawMessage) (model.Record, error) {
	f.body = body
	if f.err != nil {
		return nil, f.err
	}
	return model.Record{"id": "a2", "userId": uid}, nil
}

func (f *fakeRecords) Update(ctx context.Context, uid, id string, body json.RawMessage) (model.Record, error) {
	f.body = body
	if _, err := f.Get(ctx, uid, id); err != nil {
		return nil, err
	}
	return model.Record{"id": id, "userId": uid, "earTag": "MX-9"}, nil
}

func (f *fakeRecords) Delete(ctx context.Context, uid, id string) error {
	if _, err := f.Get(ctx, uid, id); err != nil {
		return err
	}
	delete(f.records, id)
	return nil
}

// asUser authenticates every request as uid.
func asUser(uid string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), crypto.Identity{UID: uid})))
		})
	}
}

func newRouter(uid string, svc RecordService, envelope Envelope) http.Handler {
	r := chi.NewRouter()
	if uid != "" {
		r.Use(asUser(uid))
	}
	r.Route("/animals", NewRecordHandler(svc, envelope).Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecordHandler_ListEnvelopes(t *testing.T) {
	tests := []struct {
		name     string
		envelope Envelope
		want     string
	}{
		{"bare", Bare, `[{"id":"a1","userId":"u1","earTag":"MX-1"}]`},
		{"keyed", Keyed("sales"), `{"sales":[{"id":"a1","userId":"u1","earTag":"MX-1"}]}`},
		{"data", Keyed("data"), `{"data":[{"id":"a1","userId":"u1","earTag":"MX-1"}]}`},
		{"nested", Nested("feeds"), `{"data":{"feeds":[{"id":"a1","userId":"u1","earTag":"MX-1"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newRouter("u1", newFakeRecords(), tt.envelope), http.MethodGet, "/animals", "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestRecordHandler_EmptyListIsArray(t *testing.T) {
	rec := do(t, newRouter("u2", newFakeRecords(), Bare), http.MethodGet, "/animals", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecordHandler_RequiresUser(t *testing.T) {
	rec := do(t, newRouter("", newFakeRecords(), Bare), http.MethodGet, "/animals", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecordHandler_Get(t *testing.T) {
	h := newRouter("u1", newFakeRecords(), Bare)

	rec := do(t, h, http.MethodGet, "/animals/a1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"a1","userId":"u1","earTag":"MX-1"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/animals/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, newRouter("u2", newFakeRecords(), Bare), http.MethodGet, "/animals/a1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRecordHandler_Create(t *testing.T) {
	svc := newFakeRecords()
	h := newRouter("u1", svc, Bare)

	rec := do(t, h, http.MethodPost, "/animals", `{"earTag":"MX-2","breed":"Dorper"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"a2","userId":"u1","message":"Registro creado"}`, rec.Body.String())
	assert.JSONEq(t, `{"earTag":"MX-2","breed":"Dorper"}`, string(svc.body))

	rec = do(t, h, http.MethodPost, "/animals", `{"earTag":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, rec.Body.String())
}

func TestRecordHandler_BodyTooLarge(t *testing.T) {
	h := newRouter("u1", newFakeRecords(), Bare)
	big := `{"notes":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	rec := do(t, h, http.MethodPost, "/animals", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRecordHandler_UpdateAndDelete(t *testing.T) {
	svc := newFakeRecords()
	h := newRouter("u1", svc, Bare)

	rec := do(t, h, http.MethodPut, "/animals/a1", `{"earTag":"MX-9"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"a1","userId":"u1","earTag":"MX-9","message":"Registro actualizado"}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/animals/a1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, svc.records, "a1")

	rec = do(t, h, http.MethodDelete, "/animals/a1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&validation.Error{Violations: []validation.Violation{{Field: "earTag", Rule: "required"}}}, http.StatusBadRequest},
		{fmt.Errorf("%w: eof", service.ErrInvalidBody), http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrRecordNotFound, http.StatusNotFound},
		{service.ErrAnimalNotFound, http.StatusNotFound},
		{service.ErrDuplicateEarTag, http.StatusConflict},
		{service.ErrAnimalSold, http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/", nil),
		&validation.Error{Violations: []validation.Violation{{Field: "earTag", Rule: "required"}}})
	assert.JSONEq(t, `{"error":"validation failed: earTag is required","fields":["earTag"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("dsn leaked"))
	assert.NotContains(t, rec.Body.String(), "dsn")
}

type fakeStock struct{ body json.RawMessage }

func (f *fakeStock) AdjustStock(ctx context.Context, uid, id string, body json.RawMessage) (model.StockResult, error) {
	f.body = body
	if id != "i1" {
		return model.StockResult{}, service.ErrRecordNotFound
	}
	return model.StockResult{PreviousStock: 4, NewStock: 10}, nil
}

type fakeSummary struct{}

func (fakeSummary) Summary(ctx context.Context, uid string) (model.Dashboard, error) {
	return model.Dashboard{TotalAnimals: 3, ActiveAnimals: 2, LowStockItems: 1, TotalInventory: 5}, nil
}

func TestStockAndDashboard(t *testing.T) {
	stock := &fakeStock{}
	r := chi.NewRouter()
	r.Use(asUser("u1"))
	r.Put("/inventory/{id}/stock", NewStockHandler(stock).HandleAdjust)
	r.Get("/dashboard", NewDashboardHandler(fakeSummary{}).HandleSummary)

	rec := do(t, r, http.MethodPut, "/inventory/i1/stock", `{"operation":"add","quantity":6}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"previousStock":4,"newStock":10}`, rec.Body.String())
	assert.JSONEq(t, `{"operation":"add","quantity":6}`, string(stock.body))

	rec = do(t, r, http.MethodPut, "/inventory/i9/stock", `{"operation":"add","quantity":6}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_animals":3,"active_animals":2,"low_stock_items":1,"total_inventory":5}`, rec.Body.String())
}

func newAuthHandler() *AuthHandler {
	hasher := crypto.NewHasher(crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	return NewAuthHandler(service.NewAuthService(repository.NewUserRepository(nil), hasher, "test-secret", time.Hour))
}

func TestAuthHandler_ProviderErrors(t *testing.T) {
	h := newAuthHandler()

	rec := do(t, http.HandlerFunc(h.HandleSignUp), http.MethodPost, "/auth/v1/accounts/signUp",
		`{"email":"ana@example.com","password":"123","returnSecureToken":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":400,"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`, rec.Body.String())

	rec = do(t, http.HandlerFunc(h.HandleSignIn), http.MethodPost, "/auth/v1/accounts/signInWithPassword", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":400,"message":"INVALID_JSON_PAYLOAD"}}`, rec.Body.String())

	rec = do(t, http.HandlerFunc(h.HandleLookup), http.MethodPost, "/auth/v1/accounts/lookup", `{"idToken":"garbage"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"code":400,"message":"INVALID_ID_TOKEN"}}`, rec.Body.String())

	rec = do(t, http.HandlerFunc(TooManyAttempts), http.MethodPost, "/auth/v1/accounts/signUp", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":{"code":429,"message":"TOO_MANY_ATTEMPTS_TRY_LATER"}}`, rec.Body.String())
}

func TestAuthHandler_VerifyInvalidToken(t *testing.T) {
	h := newAuthHandler()

	rec := do(t, http.HandlerFunc(h.HandleVerify), http.MethodPost, "/api/auth/verify", `{"token":"garbage"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())
}

func TestAuthHandler_CreateAdminValidation(t *testing.T) {
	h := newAuthHandler()

	rec := do(t, http.HandlerFunc(h.HandleCreateAdmin), http.MethodPost, "/api/auth/create-admin", `{"email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"uid"}, body.Fields)
}

func TestShell(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html": {Data: []byte("<html>rebaño</html>")},
		"sw.js":      {Data: []byte("self.addEventListener('fetch', () => {})")},
		"js/app.js":  {Data: []byte("console.log('app')")},
	}
	h := Shell(fsys)

	rec := do(t, h, http.MethodGet, "/sw.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Service-Worker-Allowed"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rebaño")
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodGet, "/js/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Service-Worker-Allowed"))

	rec = do(t, h, http.MethodGet, "/inventario", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rebaño")

	rec = do(t, h, http.MethodGet, "/js/missing.js", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

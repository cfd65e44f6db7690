package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebano/rebano-go/internal/crypto"
)

const secret = "test-secret"

func TestJWTAuth(t *testing.T) {
	valid, err := crypto.GenerateToken(crypto.Identity{UID: "u1", Email: "ana@example.com", Name: "Ana"}, secret, time.Hour)
	require.NoError(t, err)
	other, err := crypto.GenerateToken(crypto.Identity{UID: "u1"}, "other-secret", time.Hour)
	require.NoError(t, err)

	var seen crypto.Identity
	h := JWTAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		uid, ok := UserIDFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "u1", uid)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization format"},
		{"foreign signature", "Bearer " + other, http.StatusUnauthorized, "invalid or expired token"},
		{"valid", "Bearer " + valid, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/animals", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, `{"error":"`+tt.body+`"}`, rec.Body.String())
			}
		})
	}
	assert.Equal(t, crypto.Identity{UID: "u1", Email: "ana@example.com", Name: "Ana"}, seen)
}

func TestUserIDFromContext_Empty(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithIdentity(context.Background(), crypto.Identity{}))
	assert.False(t, ok)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, 1, 2)(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/auth/v1/accounts/signUp", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another address has its own budget.
	req := httptest.NewRequest(http.MethodPost, "/auth/v1/accounts/signUp", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_RejectHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reject := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"TOO_MANY_ATTEMPTS_TRY_LATER"}}`))
	})
	h := RateLimit(ctx, 0.5, 1, WithRejectHandler(reject))(okHandler())

	for _, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Code)
		if want == http.StatusTooManyRequests {
			assert.Equal(t, "2", rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), "TOO_MANY_ATTEMPTS_TRY_LATER")
		}
	}
}

func TestSweep(t *testing.T) {
	rl := newIPRateLimiter(1, 1)
	now := time.Now()
	rl.getLimiter("old", now.Add(-time.Hour))
	rl.getLimiter("new", now)

	rl.sweep(now, visitorTTL)

	assert.NotContains(t, rl.visitors, "old")
	assert.Contains(t, rl.visitors, "new")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := chimw.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hola"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/feeds", nil))

	line := buf.String()
	assert.Contains(t, line, "msg=request")
	assert.Contains(t, line, "method=POST")
	assert.Contains(t, line, "path=/api/feeds")
	assert.Contains(t, line, "status=201")
	assert.Contains(t, line, "bytes=4")
	assert.Contains(t, line, "request_id=")
}

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/socialchef/recipe-agent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func request(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate-recipe", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(10), 10)
	h := rl.Middleware(http.HandlerFunc(okHandler))

	rec := request(h, "10.0.0.1:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_RejectsAfterBurst(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.5), 2)
	h := rl.Middleware(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:2").Code)

	rec := request(h, "10.0.0.1:3")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMITED", body["code"])
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	h := rl.Middleware(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(h, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.2:1").Code)
}

func TestRateLimiter_RealIP(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	h := chimiddleware.RealIP(rl.Middleware(http.HandlerFunc(okHandler)))

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/generate-recipe", nil)
		req.RemoteAddr = "127.0.0.1:9999"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7"))
	assert.Equal(t, http.StatusOK, send("203.0.113.8"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7"))
}

func TestRateLimiterFromConfig(t *testing.T) {
	assert.Nil(t, NewRateLimiterFromConfig(config.RateLimitConfig{Disabled: true}))

	var rl *RateLimiter
	h := rl.Middleware(http.HandlerFunc(okHandler))
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:1").Code)
	}

	rl = NewRateLimiterFromConfig(config.RateLimitConfig{RequestsPerSecond: 2, Burst: 3})
	require.NotNil(t, rl)
	assert.Equal(t, rate.Limit(2), rl.rate)
	assert.Equal(t, 3, rl.burst)
	assert.Equal(t, 1, rl.retryAfter())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(RequestLogger(log))
	r.Get("/health", okHandler)
	r.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "/health", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.NotEmpty(t, entry["request_id"])

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, float64(502), entry["status"])
}

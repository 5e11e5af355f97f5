package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/orderstackhq/inventory-backend/pkg/errors"
	"github.com/orderstackhq/inventory-backend/pkg/types"
)

type stubLimiterStore struct {
	counts map[string]int64
	err    error
}

func (s *stubLimiterStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if s.err != nil {
		return false, 0, s.err
	}
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[scope]++
	count := s.counts[scope]
	return count <= limit, count, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := &stubLimiterStore{}
	handler := RateLimit(NewRateLimitPolicy(time.Minute, 2), store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/inventory/p1/reserve", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d blocked with status %d", i+1, w.Code)
		}
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	store := &stubLimiterStore{}
	handler := RateLimit(NewRateLimitPolicy(time.Minute, 1), store, nil)(okHandler())

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/p1/reserve", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/inventory/p1/reserve", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", second.Code)
	}

	var payload types.ErrorEnvelope
	if err := json.NewDecoder(second.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
}

func TestRateLimitScopesByClientIP(t *testing.T) {
	store := &stubLimiterStore{}
	handler := RateLimit(NewRateLimitPolicy(time.Minute, 1), store, nil)(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/inventory/p1/reserve", nil)
		req.Header.Set("X-Forwarded-For", ip)
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("distinct clients should not share a window, %s got %d", ip, w.Code)
		}
	}
	if len(store.counts) != 2 {
		t.Fatalf("expected one counter per client, got %d", len(store.counts))
	}
}

func TestRateLimitSkipsSafeMethods(t *testing.T) {
	store := &stubLimiterStore{}
	handler := RateLimit(NewRateLimitPolicy(time.Minute, 1), store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("reads should never be throttled, got %d", w.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("reads should not touch the counter store")
	}
}

func TestRateLimitDisabledWithoutStore(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy(time.Minute, 1), nil, nil)(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/inventory/p1/reserve", nil)
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("missing store should disable throttling, got %d", w.Code)
		}
	}
}

func TestRateLimitStoreErrorMapsToDependency(t *testing.T) {
	store := &stubLimiterStore{err: errors.New("redis down")}
	handler := RateLimit(NewRateLimitPolicy(time.Minute, 1), store, nil)(okHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/inventory/p1/reserve", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", w.Code)
	}
}

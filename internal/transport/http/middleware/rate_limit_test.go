package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type memRateLimitStore struct {
	mu     sync.Mutex
	counts map[string]int
	window time.Duration
	err    error
}

func newMemRateLimitStore() *memRateLimitStore {
	return &memRateLimitStore{counts: make(map[string]int)}
}

func (s *memRateLimitStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, 0, s.err
	}
	s.counts[key]++
	remaining := s.window
	if remaining == 0 {
		remaining = window
	}
	return s.counts[key], remaining, nil
}

func (s *memRateLimitStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
	return nil
}

func rateLimitedEngine(store *memRateLimitStore, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ping", RateLimit(store, rule, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func performGET(engine *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":51234"
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := newMemRateLimitStore()
	engine := rateLimitedEngine(store, RateLimitRule{Name: "login", Limit: 3, Window: time.Minute, Key: KeyByIP})

	for i := 0; i < 3; i++ {
		if rec := performGET(engine, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	store := newMemRateLimitStore()
	store.window = 42 * time.Second
	engine := rateLimitedEngine(store, RateLimitRule{Name: "login", Limit: 3, Window: time.Minute, Key: KeyByIP})

	for i := 0; i < 3; i++ {
		performGET(engine, "10.0.0.1")
	}

	rec := performGET(engine, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("Retry-After = %q, want 42", got)
	}
	if body := rec.Body.String(); !strings.Contains(body, "rate_limit_exceeded") {
		t.Fatalf("body missing error code: %s", body)
	}
}

func TestRateLimitKeysClientsSeparately(t *testing.T) {
	store := newMemRateLimitStore()
	engine := rateLimitedEngine(store, RateLimitRule{Name: "login", Limit: 1, Window: time.Minute, Key: KeyByIP})

	if rec := performGET(engine, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first client blocked: %d", rec.Code)
	}
	if rec := performGET(engine, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first client not throttled: %d", rec.Code)
	}
	if rec := performGET(engine, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("second client throttled by first client's counter: %d", rec.Code)
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	store := newMemRateLimitStore()
	store.err = errors.New("store down")
	engine := rateLimitedEngine(store, RateLimitRule{Name: "login", Limit: 1, Window: time.Minute, Key: KeyByIP})

	for i := 0; i < 5; i++ {
		if rec := performGET(engine, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked while store down: %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitRetryAfterFloorsToOneSecond(t *testing.T) {
	store := newMemRateLimitStore()
	store.window = 10 * time.Millisecond
	engine := rateLimitedEngine(store, RateLimitRule{Name: "login", Limit: 1, Window: time.Minute, Key: KeyByIP})

	performGET(engine, "10.0.0.1")
	rec := performGET(engine, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("Retry-After = %q, want 1", got)
	}
}

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/confcore/internal/store/cache"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/ping", mw, func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestIPRateLimit_AllowsThenBlocksOverTheLimit(t *testing.T) {
	store := cache.New()
	r := newTestRouter(IPRateLimit(store, 2, time.Minute))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("3rd request status = %d, want 429", w.Code)
	}
}

func TestIPRateLimit_DegradesToAllowWhenCacheIsDown(t *testing.T) {
	store := cache.New()
	store.SetDown(true)
	r := newTestRouter(IPRateLimit(store, 1, time.Minute))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d should pass through while cache is down, got %d", i, w.Code)
		}
	}
}

func TestLoginRateLimit_AllowsThenBlocksOverTheLimit(t *testing.T) {
	store := cache.New()
	r := newTestRouter(LoginRateLimit(store, 5, time.Minute))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("6th request status = %d, want 429", w.Code)
	}
}

func TestLoginRateLimit_UsesADistinctKeyFromIPRateLimit(t *testing.T) {
	store := cache.New()
	r := gin.New()
	r.GET("/ping", IPRateLimit(store, 1, time.Minute), LoginRateLimit(store, 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429 once either limiter trips", w.Code)
	}
}

func TestSecurityHeaders_SetsHardeningHeaders(t *testing.T) {
	r := newTestRouter(SecurityHeaders())
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing X-Content-Type-Options header")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing X-Frame-Options header")
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
)

func rateLimitRouter(l *limiter.Limiter, keyFunc KeyFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(l, keyFunc))
	router.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})
	return router
}

func TestRateLimitAllowsWithinLimit(t *testing.T) {
	l := limiter.New(memorystore.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})
	router := rateLimitRouter(l, KeyByClientIP())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" || rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Fatalf("expected rate limit headers")
	}
}

func TestRateLimitBlocksWhenExceeded(t *testing.T) {
	l := limiter.New(memorystore.NewStore(), limiter.Rate{Period: time.Hour, Limit: 1})
	router := rateLimitRouter(l, KeyByClientIP())

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be blocked, got %d", rec.Code)
	}
}

func TestRateLimitKeysByUser(t *testing.T) {
	l := limiter.New(memorystore.NewStore(), limiter.Rate{Period: time.Hour, Limit: 1})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	var user string
	router.Use(func(ctx *gin.Context) {
		ctx.Set(UserContextKey, user)
		ctx.Next()
	})
	router.Use(RateLimit(l, KeyByUserOrIP()))
	router.GET("/", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	// Two different users share the client IP but get separate budgets.
	for _, u := range []string{"user-a", "user-b"} {
		user = u
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("user %s should pass, got %d", u, rec.Code)
		}
	}

	// The same user hits the limit.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat request should be blocked, got %d", rec.Code)
	}
}

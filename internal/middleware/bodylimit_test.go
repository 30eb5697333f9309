package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bodyLimitRouter(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LimitRequestBody(maxBytes))
	router.POST("/", func(ctx *gin.Context) {
		if _, err := io.ReadAll(ctx.Request.Body); err != nil {
			ctx.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		ctx.String(http.StatusOK, "ok")
	})
	return router
}

func TestLimitRequestBodyAllowsSmallBody(t *testing.T) {
	router := bodyLimitRouter(64)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("klein"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestLimitRequestBodyRejectsLargeBody(t *testing.T) {
	router := bodyLimitRouter(8)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", rec.Code)
	}
}

func TestLimitRequestBodyDisabled(t *testing.T) {
	router := bodyLimitRouter(0)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1024)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

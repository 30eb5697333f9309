package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fintutto/vermietify-docs/internal/authz"
	authutil "github.com/fintutto/vermietify-docs/pkg/auth"
)

const testAccessSecret = "guard-test-secret-guard-test-secret"

func issueTestToken(t *testing.T, tokenType, role string) string {
	t.Helper()
	token, err := authutil.GenerateToken(testAccessSecret, time.Minute, authutil.Claims{
		UserID:    "user-1",
		Role:      role,
		TokenType: tokenType,
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func guardedRouter(capability authz.Capability) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", AuthGuard(testAccessSecret))
	if capability != "" {
		group.Use(RequireCapability(capability))
	}
	group.GET("/protected", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString(UserContextKey))
	})
	return router
}

func TestAuthGuardAcceptsValidToken(t *testing.T) {
	router := guardedRouter("")
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "access", authz.RoleNurLesen))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user-1" {
		t.Fatalf("user not injected: %q", rec.Body.String())
	}
}

func TestAuthGuardRejectsBadRequests(t *testing.T) {
	router := guardedRouter("")
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer kein-token"},
		{"refresh token", "Bearer " + issueTestToken(t, "refresh", authz.RoleAdministrator)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", tc.name, rec.Code)
		}
	}
}

func TestRequireCapability(t *testing.T) {
	router := guardedRouter(authz.CapTemplatesCreate)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "access", authz.RoleAdministrator))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("administrator should pass, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "access", authz.RoleSachbearbeiter))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("sachbearbeiter should be refused, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, "access", authz.RoleNurLesen))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("nur_lesen should be refused, got %d", rec.Code)
	}
}

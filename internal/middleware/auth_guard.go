package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fintutto/vermietify-docs/internal/authz"
	authutil "github.com/fintutto/vermietify-docs/pkg/auth"
	"github.com/fintutto/vermietify-docs/pkg/httpx"
)

const (
	// UserContextKey stores the authenticated user ID in the request context.
	UserContextKey = "user_id"
	// UserRoleContextKey stores the authenticated user role.
	UserRoleContextKey = "user_role"
)

// AuthGuard verifies the Bearer token and injects user identity.
func AuthGuard(accessSecret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" {
			httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "missing credentials", nil)
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "malformed authorization header", nil)
			return
		}

		claims, err := authutil.ParseToken(parts[1], accessSecret)
		if err != nil || claims.TokenType != "access" {
			httpx.RespondError(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
			return
		}

		ctx.Set(UserContextKey, claims.UserID)
		ctx.Set(UserRoleContextKey, claims.Role)
		ctx.Set("auth_claims", claims)
		ctx.Next()
	}
}

// RequireCapability rejects requests whose role lacks the capability.
// Unknown roles carry no capabilities at all.
func RequireCapability(capability authz.Capability) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role := ctx.GetString(UserRoleContextKey)
		if !authz.HasCapability(role, capability) {
			httpx.RespondError(ctx, http.StatusForbidden, "FORBIDDEN", "role lacks the required capability", nil)
			return
		}
		ctx.Next()
	}
}

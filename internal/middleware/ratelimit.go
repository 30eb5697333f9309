package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/fintutto/vermietify-docs/pkg/httpx"
)

// KeyFunc extracts the rate limiting key for a request.
type KeyFunc func(*gin.Context) string

// RateLimit returns a limiter-backed Gin middleware.
func RateLimit(l *limiter.Limiter, keyFunc KeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByClientIP()
	}

	return func(ctx *gin.Context) {
		key := keyFunc(ctx)
		if key == "" {
			key = ctx.ClientIP()
		}

		context, err := l.Get(ctx, key)
		if err != nil {
			httpx.RespondError(ctx, http.StatusInternalServerError, "RATE_LIMIT_ERROR", err.Error(), nil)
			return
		}

		ctx.Writer.Header().Set("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
		ctx.Writer.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))
		ctx.Writer.Header().Set("X-RateLimit-Reset", strconv.FormatInt(context.Reset, 10))

		if context.Reached {
			httpx.RespondError(ctx, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests, slow down", nil)
			return
		}

		ctx.Next()
	}
}

// KeyByClientIP keys the limit on the client IP.
func KeyByClientIP() KeyFunc {
	return func(ctx *gin.Context) string {
		return ctx.ClientIP()
	}
}

// KeyByUserOrIP prefers the user ID and falls back to the client IP.
func KeyByUserOrIP() KeyFunc {
	return func(ctx *gin.Context) string {
		if userID := ctx.GetString(UserContextKey); userID != "" {
			return userID
		}
		return ctx.ClientIP()
	}
}

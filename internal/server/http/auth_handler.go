package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authsvc "github.com/fintutto/vermietify-docs/internal/service/auth"
	"github.com/fintutto/vermietify-docs/pkg/httpx"
)

// AuthHandler serves authentication requests.
type AuthHandler struct {
	service *authsvc.Service
}

// NewAuthHandler creates the handler.
func NewAuthHandler(service *authsvc.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes mounts the auth endpoints.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/refresh", h.Refresh)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register creates a user account.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	user, err := h.service.Register(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"user": user})
}

// Login verifies credentials and issues tokens.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	tokens, user, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{
		"tokens": tokens,
		"user":   user,
	})
}

// Refresh rotates the token pair.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req refreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	tokens, user, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{
		"tokens": tokens,
		"user":   user,
	})
}

func (h *AuthHandler) handleError(ctx *gin.Context, err error) {
	switch err {
	case authsvc.ErrInvalidInput:
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case authsvc.ErrUserExists:
		httpx.RespondError(ctx, http.StatusConflict, "USER_EXISTS", err.Error(), nil)
	case authsvc.ErrInvalidCredentials:
		httpx.RespondError(ctx, http.StatusUnauthorized, "INVALID_CREDENTIALS", "email or password wrong", nil)
	case authsvc.ErrUserDisabled:
		httpx.RespondError(ctx, http.StatusForbidden, "USER_DISABLED", err.Error(), nil)
	case authsvc.ErrTokenInvalid:
		httpx.RespondError(ctx, http.StatusUnauthorized, "TOKEN_INVALID", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}

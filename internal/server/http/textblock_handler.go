package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/middleware"
	"github.com/fintutto/vermietify-docs/internal/resolver"
	textblocksvc "github.com/fintutto/vermietify-docs/internal/service/textblock"
	"github.com/fintutto/vermietify-docs/pkg/httpx"
)

// TextBlockHandler serves the text block library.
type TextBlockHandler struct {
	service *textblocksvc.Service
}

// NewTextBlockHandler creates the handler.
func NewTextBlockHandler(service *textblocksvc.Service) *TextBlockHandler {
	return &TextBlockHandler{service: service}
}

type createBlockRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
	Title      string `json:"title" binding:"required,min=1,max=128"`
	Content    string `json:"content" binding:"required,min=1"`
	Position   int    `json:"position"`
}

type updateBlockRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=128"`
	Content  *string `json:"content" binding:"omitempty,min=1"`
	Position *int    `json:"position"`
}

// CreateBlock registers a text block.
func (h *TextBlockHandler) CreateBlock(ctx *gin.Context) {
	var req createBlockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	block, err := h.service.CreateBlock(ctx, textblocksvc.CreateBlockInput{
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
		Position:   req.Position,
		CreatedBy:  ctx.GetString(middleware.UserContextKey),
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"block": block})
}

// GetBlock fetches one block.
func (h *TextBlockHandler) GetBlock(ctx *gin.Context) {
	block, err := h.service.GetBlock(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"block": block})
}

// ListBlocks lists blocks, optionally narrowed to one category.
func (h *TextBlockHandler) ListBlocks(ctx *gin.Context) {
	category := ctx.Query("category")

	var (
		blocks []*domain.TextBlock
		err    error
	)
	if category != "" {
		blocks, err = h.service.ListByCategory(ctx, category)
	} else {
		blocks, err = h.service.ListAll(ctx)
	}
	if err != nil {
		httpx.RespondError(ctx, http.StatusInternalServerError, "LIST_FAILED", err.Error(), nil)
		return
	}

	httpx.RespondOK(ctx, gin.H{"items": blocks})
}

// UpdateBlock applies a partial update.
func (h *TextBlockHandler) UpdateBlock(ctx *gin.Context) {
	var req updateBlockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	block, err := h.service.UpdateBlock(ctx, textblocksvc.UpdateBlockInput{
		BlockID:  ctx.Param("id"),
		Title:    req.Title,
		Content:  req.Content,
		Position: req.Position,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"block": block})
}

// DeleteBlock removes a block.
func (h *TextBlockHandler) DeleteBlock(ctx *gin.Context) {
	if err := h.service.DeleteBlock(ctx, ctx.Param("id")); err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"block_id": ctx.Param("id")})
}

func (h *TextBlockHandler) handleError(ctx *gin.Context, err error) {
	var invalidToken *resolver.InvalidBlockTokenError
	if errors.As(err, &invalidToken) {
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "INVALID_TOKEN", err.Error(), gin.H{"token": invalidToken.Token})
		return
	}
	var syntaxErr *resolver.SyntaxError
	if errors.As(err, &syntaxErr) {
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "SYNTAX_ERROR", err.Error(), nil)
		return
	}

	switch err {
	case textblocksvc.ErrTitleRequired, textblocksvc.ErrContentRequired,
		textblocksvc.ErrCategoryRequired, textblocksvc.ErrNoFieldsToUpdate:
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case textblocksvc.ErrBlockNotFound:
		httpx.RespondError(ctx, http.StatusNotFound, "BLOCK_NOT_FOUND", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}

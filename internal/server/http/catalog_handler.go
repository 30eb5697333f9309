package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fintutto/vermietify-docs/internal/domain"
	catalogsvc "github.com/fintutto/vermietify-docs/internal/service/catalog"
	"github.com/fintutto/vermietify-docs/pkg/httpx"
)

// CatalogHandler serves the placeholder catalog.
type CatalogHandler struct {
	service *catalogsvc.Service
}

// NewCatalogHandler creates the handler.
func NewCatalogHandler(service *catalogsvc.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type addEntryRequest struct {
	Category string `json:"category" binding:"required"`
	Field    string `json:"field" binding:"required"`
	Label    string `json:"label"`
}

// ListCategories returns the catalog categories and their fields as the
// template editor presents them.
func (h *CatalogHandler) ListCategories(ctx *gin.Context) {
	snapshot := h.service.Snapshot()

	categories := make([]gin.H, 0, len(snapshot.Categories()))
	for _, category := range snapshot.Categories() {
		fields, err := snapshot.Fields(category)
		if err != nil {
			httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
			return
		}
		categories = append(categories, gin.H{
			"name":   category,
			"fields": fields,
		})
	}

	httpx.RespondOK(ctx, gin.H{"categories": categories, "total": snapshot.Len()})
}

// ListEntries returns the persisted catalog rows.
func (h *CatalogHandler) ListEntries(ctx *gin.Context) {
	entries, err := h.service.ListEntries(ctx)
	if err != nil {
		httpx.RespondError(ctx, http.StatusInternalServerError, "LIST_FAILED", err.Error(), nil)
		return
	}
	httpx.RespondOK(ctx, gin.H{"items": entries})
}

// AddEntry extends the catalog with a new token.
func (h *CatalogHandler) AddEntry(ctx *gin.Context) {
	var req addEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	entry, err := h.service.AddEntry(ctx, req.Category, req.Field, req.Label)
	if err != nil {
		switch err {
		case catalogsvc.ErrInvalidIdentifier:
			httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_IDENTIFIER", err.Error(), nil)
		case catalogsvc.ErrEntryExists:
			httpx.RespondError(ctx, http.StatusConflict, "ENTRY_EXISTS", err.Error(), nil)
		default:
			httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		}
		return
	}

	httpx.RespondOK(ctx, gin.H{"entry": entry})
}

// DeleteEntry removes a token from the catalog.
func (h *CatalogHandler) DeleteEntry(ctx *gin.Context) {
	if err := h.service.DeleteEntry(ctx, ctx.Param("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			httpx.RespondError(ctx, http.StatusNotFound, "ENTRY_NOT_FOUND", err.Error(), nil)
			return
		}
		httpx.RespondError(ctx, http.StatusInternalServerError, "DELETE_FAILED", err.Error(), nil)
		return
	}
	httpx.RespondOK(ctx, gin.H{"entry_id": ctx.Param("id")})
}

// Reload rebuilds the published snapshot from the database.
func (h *CatalogHandler) Reload(ctx *gin.Context) {
	if err := h.service.Reload(ctx); err != nil {
		httpx.RespondError(ctx, http.StatusInternalServerError, "RELOAD_FAILED", err.Error(), nil)
		return
	}
	httpx.RespondOK(ctx, gin.H{"entries": h.service.Snapshot().Len()})
}

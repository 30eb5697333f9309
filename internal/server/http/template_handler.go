package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fintutto/vermietify-docs/internal/middleware"
	templatesvc "github.com/fintutto/vermietify-docs/internal/service/template"
	"github.com/fintutto/vermietify-docs/pkg/httpx"
)

// TemplateHandler serves template CRUD and version requests.
type TemplateHandler struct {
	service *templatesvc.Service
}

// NewTemplateHandler creates the handler.
func NewTemplateHandler(service *templatesvc.Service) *TemplateHandler {
	return &TemplateHandler{service: service}
}

type createTemplateRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=128"`
	Description    *string  `json:"description"`
	Category       *string  `json:"category"`
	PageFormat     string   `json:"page_format"`
	RequiredData   []string `json:"required_data"`
	TextblockSlots []string `json:"textblock_slots"`
	Body           string   `json:"body" binding:"omitempty,min=1"`
}

type updateTemplateRequest struct {
	Name           *string   `json:"name" binding:"omitempty,min=1,max=128"`
	Description    *string   `json:"description"`
	Category       *string   `json:"category"`
	PageFormat     *string   `json:"page_format"`
	RequiredData   *[]string `json:"required_data"`
	TextblockSlots *[]string `json:"textblock_slots"`
}

type createVersionRequest struct {
	Body           string      `json:"body" binding:"required,min=1"`
	RequiredData   []string    `json:"required_data"`
	TextblockSlots []string    `json:"textblock_slots"`
	Status         string      `json:"status" binding:"omitempty,oneof=draft published archived"`
	Metadata       interface{} `json:"metadata"`
	Activate       bool        `json:"activate"`
}

// CreateTemplate creates a template, optionally with a first active version.
func (h *TemplateHandler) CreateTemplate(ctx *gin.Context) {
	var req createTemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	createdBy := ctx.GetString(middleware.UserContextKey)

	template, err := h.service.CreateTemplate(ctx, templatesvc.CreateTemplateInput{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		PageFormat:     req.PageFormat,
		RequiredData:   req.RequiredData,
		TextblockSlots: req.TextblockSlots,
		CreatedBy:      createdBy,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	if body := strings.TrimSpace(req.Body); body != "" {
		if _, err := h.service.CreateVersion(ctx, templatesvc.CreateVersionInput{
			TemplateID:     template.ID,
			Body:           body,
			RequiredData:   req.RequiredData,
			TextblockSlots: req.TextblockSlots,
			Status:         "published",
			CreatedBy:      createdBy,
			Activate:       true,
		}); err != nil {
			h.handleError(ctx, err)
			return
		}
		if reloaded, err := h.service.GetTemplate(ctx, template.ID); err == nil {
			template = reloaded
		}
	}

	httpx.RespondOK(ctx, gin.H{"template": template})
}

// GetTemplate fetches one template.
func (h *TemplateHandler) GetTemplate(ctx *gin.Context) {
	template, err := h.service.GetTemplate(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"template": template})
}

// ListTemplates lists templates with pagination and filters.
func (h *TemplateHandler) ListTemplates(ctx *gin.Context) {
	limit, offset := parsePagination(ctx.Query("limit"), ctx.Query("offset"))

	includeDeleted := false
	if value := strings.TrimSpace(ctx.Query("includeDeleted")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			includeDeleted = parsed
		}
	}

	templates, total, err := h.service.ListTemplates(ctx, templatesvc.ListTemplatesOptions{
		Limit:          limit,
		Offset:         offset,
		Search:         ctx.Query("search"),
		Category:       ctx.Query("category"),
		IncludeDeleted: includeDeleted,
	})
	if err != nil {
		httpx.RespondError(ctx, http.StatusInternalServerError, "LIST_FAILED", err.Error(), nil)
		return
	}

	httpx.RespondOK(ctx, gin.H{
		"items": templates,
		"meta": gin.H{
			"total":   total,
			"limit":   limit,
			"offset":  offset,
			"hasMore": int64(offset)+int64(len(templates)) < total,
		},
	})
}

// UpdateTemplate applies a partial template update.
func (h *TemplateHandler) UpdateTemplate(ctx *gin.Context) {
	var req updateTemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	updated, err := h.service.UpdateTemplate(ctx, templatesvc.UpdateTemplateInput{
		TemplateID:     ctx.Param("id"),
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		PageFormat:     req.PageFormat,
		RequiredData:   req.RequiredData,
		TextblockSlots: req.TextblockSlots,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"template": updated})
}

// CreateVersion stores a new template revision.
func (h *TemplateHandler) CreateVersion(ctx *gin.Context) {
	var req createVersionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	version, err := h.service.CreateVersion(ctx, templatesvc.CreateVersionInput{
		TemplateID:     ctx.Param("id"),
		Body:           req.Body,
		RequiredData:   req.RequiredData,
		TextblockSlots: req.TextblockSlots,
		Status:         req.Status,
		Metadata:       req.Metadata,
		CreatedBy:      ctx.GetString(middleware.UserContextKey),
		Activate:       req.Activate,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"version": version})
}

// ListVersions lists the revision history of a template.
func (h *TemplateHandler) ListVersions(ctx *gin.Context) {
	limit, offset := parsePagination(ctx.Query("limit"), ctx.Query("offset"))

	versions, err := h.service.ListVersions(ctx, ctx.Param("id"), limit, offset)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"items": versions})
}

// DiffVersion compares a version against the previous, active or an
// explicit target version.
func (h *TemplateHandler) DiffVersion(ctx *gin.Context) {
	compareTo := strings.TrimSpace(strings.ToLower(ctx.Query("compareTo")))
	targetID := strings.TrimSpace(ctx.Query("targetVersionId"))

	options := templatesvc.DiffVersionOptions{}
	if targetID != "" {
		options.TargetVersionID = &targetID
	} else if compareTo == "active" {
		options.CompareToActive = true
	} else {
		options.CompareToPrevious = true
	}

	diff, err := h.service.DiffVersion(ctx, ctx.Param("id"), ctx.Param("versionId"), options)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"diff": diff})
}

// SetActiveVersion promotes a version to the working body.
func (h *TemplateHandler) SetActiveVersion(ctx *gin.Context) {
	templateID := ctx.Param("id")
	versionID := ctx.Param("versionId")

	if err := h.service.SetActiveVersion(ctx, templateID, versionID); err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{"template_id": templateID, "active_version_id": versionID})
}

// DeleteTemplate soft deletes a template.
func (h *TemplateHandler) DeleteTemplate(ctx *gin.Context) {
	if err := h.service.DeleteTemplate(ctx, ctx.Param("id"), ctx.GetString(middleware.UserContextKey)); err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"template_id": ctx.Param("id")})
}

func (h *TemplateHandler) handleError(ctx *gin.Context, err error) {
	var invalidBody *templatesvc.InvalidBodyError
	if errors.As(err, &invalidBody) {
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "INVALID_TOKENS", err.Error(), gin.H{"tokens": invalidBody.Tokens})
		return
	}
	var unknownData *templatesvc.UnknownRequiredDataError
	if errors.As(err, &unknownData) {
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "UNKNOWN_REQUIRED_DATA", err.Error(), gin.H{"categories": unknownData.Categories})
		return
	}

	switch err {
	case templatesvc.ErrNameRequired, templatesvc.ErrBodyRequired, templatesvc.ErrNoFieldsToUpdate:
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case templatesvc.ErrTemplateAlreadyExists:
		httpx.RespondError(ctx, http.StatusConflict, "TEMPLATE_EXISTS", err.Error(), nil)
	case templatesvc.ErrTemplateNotFound:
		httpx.RespondError(ctx, http.StatusNotFound, "TEMPLATE_NOT_FOUND", err.Error(), nil)
	case templatesvc.ErrVersionNotFound:
		httpx.RespondError(ctx, http.StatusNotFound, "VERSION_NOT_FOUND", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}

func parsePagination(limitStr, offsetStr string) (int, int) {
	limit := 50
	offset := 0

	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
			limit = v
		}
	}
	if offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

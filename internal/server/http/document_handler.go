package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fintutto/vermietify-docs/internal/authz"
	"github.com/fintutto/vermietify-docs/internal/middleware"
	"github.com/fintutto/vermietify-docs/internal/resolver"
	documentsvc "github.com/fintutto/vermietify-docs/internal/service/document"
	"github.com/fintutto/vermietify-docs/internal/workflow"
	"github.com/fintutto/vermietify-docs/pkg/httpx"
)

// DocumentHandler serves workflow runs and the document record.
type DocumentHandler struct {
	service *documentsvc.Service
}

// NewDocumentHandler creates the handler.
func NewDocumentHandler(service *documentsvc.Service) *DocumentHandler {
	return &DocumentHandler{service: service}
}

type startRunRequest struct {
	Kind string `json:"kind" binding:"omitempty,oneof=document template"`
}

type advanceRunRequest struct {
	Step  int            `json:"step" binding:"required,min=1,max=5"`
	Input map[string]any `json:"input"`
}

type rollbackRunRequest struct {
	ToStep *int `json:"to_step" binding:"required,min=0,max=4"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// canDriveRun enforces that template-kind runs, the administrative template
// creation workflow, are only driven by roles allowed to create templates.
func (h *DocumentHandler) canDriveRun(ctx *gin.Context, kind workflow.Kind) bool {
	if kind != workflow.KindTemplate {
		return true
	}
	role := ctx.GetString(middleware.UserRoleContextKey)
	if !authz.HasCapability(role, authz.CapTemplatesCreate) {
		httpx.RespondError(ctx, http.StatusForbidden, "FORBIDDEN", "template workflow requires the template create capability", nil)
		return false
	}
	return true
}

// StartRun opens a new workflow run.
func (h *DocumentHandler) StartRun(ctx *gin.Context) {
	var req startRunRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
			return
		}
	}
	if !h.canDriveRun(ctx, workflow.Kind(req.Kind)) {
		return
	}

	run, err := h.service.StartRun(ctx, workflow.Kind(req.Kind), ctx.GetString(middleware.UserContextKey))
	if err != nil {
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}

	httpx.RespondOK(ctx, gin.H{"run": run, "steps": workflow.Steps(run.Kind)})
}

// GetRun returns the run's current state.
func (h *DocumentHandler) GetRun(ctx *gin.Context) {
	run, err := h.service.GetRun(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"run": run, "steps": workflow.Steps(run.Kind)})
}

// AdvanceRun attempts one workflow step.
func (h *DocumentHandler) AdvanceRun(ctx *gin.Context) {
	var req advanceRunRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	run, err := h.service.GetRun(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	if !h.canDriveRun(ctx, run.Kind) {
		return
	}

	result, err := h.service.AdvanceRun(ctx, ctx.Param("id"), req.Step, req.Input)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	response := gin.H{"run": result.Run}
	if result.Document != nil {
		response["document"] = result.Document
	}
	httpx.RespondOK(ctx, response)
}

// RollbackRun returns the run to an earlier completed step.
func (h *DocumentHandler) RollbackRun(ctx *gin.Context) {
	var req rollbackRunRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	current, err := h.service.GetRun(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	if !h.canDriveRun(ctx, current.Kind) {
		return
	}

	run, err := h.service.RollbackRun(ctx, ctx.Param("id"), *req.ToStep)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"run": run})
}

// AbandonRun cancels a run without side effects.
func (h *DocumentHandler) AbandonRun(ctx *gin.Context) {
	run, err := h.service.GetRun(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	if !h.canDriveRun(ctx, run.Kind) {
		return
	}

	if err := h.service.AbandonRun(ctx, ctx.Param("id")); err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"run_id": ctx.Param("id"), "status": workflow.StatusAbandoned})
}

// PreviewRun resolves the run's inputs without finalizing.
func (h *DocumentHandler) PreviewRun(ctx *gin.Context) {
	result, err := h.service.Preview(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"preview": result})
}

// ListDocuments lists finalized documents.
func (h *DocumentHandler) ListDocuments(ctx *gin.Context) {
	limit, offset := parsePagination(ctx.Query("limit"), ctx.Query("offset"))

	documents, total, err := h.service.ListDocuments(ctx, documentsvc.ListDocumentsOptions{
		Limit:  limit,
		Offset: offset,
		Status: ctx.Query("status"),
		Search: ctx.Query("search"),
	})
	if err != nil {
		httpx.RespondError(ctx, http.StatusInternalServerError, "LIST_FAILED", err.Error(), nil)
		return
	}

	httpx.RespondOK(ctx, gin.H{
		"items": documents,
		"meta": gin.H{
			"total":   total,
			"limit":   limit,
			"offset":  offset,
			"hasMore": int64(offset)+int64(len(documents)) < total,
		},
	})
}

// GetDocument fetches one document.
func (h *DocumentHandler) GetDocument(ctx *gin.Context) {
	doc, err := h.service.GetDocument(ctx, ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"document": doc})
}

// UpdateStatus moves a document through its lifecycle.
func (h *DocumentHandler) UpdateStatus(ctx *gin.Context) {
	var req updateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error(), nil)
		return
	}

	doc, err := h.service.UpdateStatus(ctx, ctx.Param("id"), req.Status, ctx.GetString(middleware.UserContextKey))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"document": doc})
}

// AuditTrail returns the recent audit entries of a document.
func (h *DocumentHandler) AuditTrail(ctx *gin.Context) {
	limit, _ := parsePagination(ctx.Query("limit"), "")

	entries, err := h.service.AuditTrail(ctx, ctx.Param("id"), limit)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"items": entries})
}

func (h *DocumentHandler) handleError(ctx *gin.Context, err error) {
	var validationErr *workflow.ValidationError
	if errors.As(err, &validationErr) {
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "STEP_REJECTED", validationErr.Reason, gin.H{"rule": validationErr.Rule})
		return
	}
	var syntaxErr *resolver.SyntaxError
	if errors.As(err, &syntaxErr) {
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "SYNTAX_ERROR", err.Error(), nil)
		return
	}

	switch {
	case errors.Is(err, documentsvc.ErrRunNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "RUN_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, documentsvc.ErrDocumentNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "DOCUMENT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, documentsvc.ErrInvalidStatus):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_STATUS", err.Error(), nil)
	case errors.Is(err, documentsvc.ErrTemplateHasNoBody):
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "TEMPLATE_EMPTY", err.Error(), nil)
	case errors.Is(err, workflow.ErrStepOrder):
		httpx.RespondError(ctx, http.StatusConflict, "STEP_ORDER", err.Error(), nil)
	case errors.Is(err, workflow.ErrRunClosed):
		httpx.RespondError(ctx, http.StatusConflict, "RUN_CLOSED", err.Error(), nil)
	case errors.Is(err, workflow.ErrInvalidRollback):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_ROLLBACK", err.Error(), nil)
	case errors.Is(err, workflow.ErrUnknownRule):
		httpx.RespondError(ctx, http.StatusInternalServerError, "UNKNOWN_RULE", err.Error(), nil)
	default:
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}

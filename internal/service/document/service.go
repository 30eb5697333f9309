package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fintutto/vermietify-docs/internal/catalog"
	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/infra/session"
	"github.com/fintutto/vermietify-docs/internal/resolver"
	"github.com/fintutto/vermietify-docs/internal/workflow"
)

// Service drives document creation: the five-step workflow, preview,
// finalization into the document record and the status lifecycle afterwards.
type Service struct {
	repos     *domain.Repositories
	catalog   *catalog.Store
	runs      session.RunStore
	validator *workflow.Validator
	logger    *zap.Logger
}

// NewService creates the document service.
func NewService(repos *domain.Repositories, catalogStore *catalog.Store, runs session.RunStore, validator *workflow.Validator, logger *zap.Logger) *Service {
	return &Service{
		repos:     repos,
		catalog:   catalogStore,
		runs:      runs,
		validator: validator,
		logger:    logger,
	}
}

// StartRun opens a fresh workflow run at step 1.
func (s *Service) StartRun(ctx context.Context, kind workflow.Kind, userID string) (*workflow.Run, error) {
	if kind != workflow.KindDocument && kind != workflow.KindTemplate {
		kind = workflow.KindDocument
	}
	run := workflow.NewRun(uuid.NewString(), kind, userID)
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun loads a workflow run from the session store.
func (s *Service) GetRun(ctx context.Context, runID string) (*workflow.Run, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, session.ErrRunNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// AdvanceResult is the outcome of one step attempt. Document is set only
// when completing step 5 of a document run produced a record.
type AdvanceResult struct {
	Run      *workflow.Run    `json:"run"`
	Document *domain.Document `json:"document,omitempty"`
}

// AdvanceRun validates one step. Validation failures keep the run on the
// current step; completing the final step of a document run persists the
// resolved document.
func (s *Service) AdvanceRun(ctx context.Context, runID string, step int, input map[string]any) (*AdvanceResult, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	mergeDataContext(run, input)
	if err := s.validator.Advance(ctx, run, step, input); err != nil {
		return nil, err
	}

	result := &AdvanceResult{Run: run}
	if run.Status == workflow.StatusFinalized && run.Kind == workflow.KindDocument {
		doc, err := s.finalize(ctx, run)
		if err != nil {
			return nil, err
		}
		result.Document = doc
	}

	if err := s.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	return result, nil
}

// RollbackRun returns the run to an earlier completed step. Later steps are
// re-validated from scratch on the next advance.
func (s *Service) RollbackRun(ctx context.Context, runID string, toStep int) (*workflow.Run, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Rollback(run, toStep); err != nil {
		return nil, err
	}
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// AbandonRun cancels a run; nothing reaches the record sink.
func (s *Service) AbandonRun(ctx context.Context, runID string) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if err := s.validator.Abandon(run); err != nil {
		return err
	}
	return s.runs.Delete(ctx, runID)
}

// Preview resolves the run's current inputs without finalizing anything.
func (s *Service) Preview(ctx context.Context, runID string) (*resolver.Result, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	result, _, _, err := s.resolveRun(ctx, run)
	return result, err
}

// finalize turns the finished run into a persisted document plus an audit
// log entry.
func (s *Service) finalize(ctx context.Context, run *workflow.Run) (*domain.Document, error) {
	result, template, versionID, err := s.resolveRun(ctx, run)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(run.StringInput("name"))
	if name == "" {
		name = template.Name
	}

	doc := &domain.Document{
		ID:         uuid.NewString(),
		TemplateID: &template.ID,
		Name:       name,
		Body:       result.ResolvedText,
		Status:     domain.DocumentStatusCreated,
	}
	doc.TemplateVersionID = versionID
	if run.CreatedBy != "" {
		createdBy := run.CreatedBy
		doc.CreatedBy = &createdBy
	}
	if len(result.UnresolvedTokens) > 0 {
		raw, err := json.Marshal(result.UnresolvedTokens)
		if err != nil {
			return nil, err
		}
		doc.UnresolvedTokens = raw
	}
	if len(result.UsedBlocks) > 0 {
		raw, err := json.Marshal(result.UsedBlocks)
		if err != nil {
			return nil, err
		}
		doc.UsedBlocks = raw
	}

	if err := s.repos.Documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{
		"run_id":            run.ID,
		"unresolved_tokens": result.UnresolvedTokens,
		"used_blocks":       result.UsedBlocks,
	})
	if err != nil {
		return nil, err
	}
	audit := &domain.DocumentAuditLog{
		ID:         uuid.NewString(),
		DocumentID: &doc.ID,
		TemplateID: &template.ID,
		Action:     "document.created",
		Payload:    payload,
		CreatedBy:  doc.CreatedBy,
	}
	if err := s.repos.DocumentAuditLog.Create(ctx, audit); err != nil {
		return nil, err
	}

	s.logger.Info("document finalized",
		zap.String("document_id", doc.ID),
		zap.String("template_id", template.ID),
		zap.Int("unresolved", len(result.UnresolvedTokens)),
	)

	return s.GetDocument(ctx, doc.ID)
}

// resolveRun resolves the template selected by the run against its bound
// data and block selections.
func (s *Service) resolveRun(ctx context.Context, run *workflow.Run) (*resolver.Result, *domain.DocumentTemplate, *string, error) {
	templateID := run.StringInput("template_id")
	if templateID == "" {
		return nil, nil, nil, &workflow.ValidationError{Rule: workflow.RuleTemplateExists, Reason: "no template selected yet"}
	}

	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, nil, &workflow.ValidationError{Rule: workflow.RuleTemplateExists, Reason: fmt.Sprintf("template %s not found", templateID)}
		}
		return nil, nil, nil, err
	}

	body, versionID, err := templateBody(template)
	if err != nil {
		return nil, nil, nil, err
	}

	resolverTemplate := resolver.Template{
		Body:         body,
		RequiredData: decodeStringList(template.RequiredData),
		Slots:        decodeStringList(template.TextblockSlots),
	}

	blocks, err := s.selectedBlocks(ctx, run)
	if err != nil {
		return nil, nil, nil, err
	}

	result, err := resolver.Resolve(s.catalog.Snapshot(), resolverTemplate, blocks, dataContextOf(run.Inputs))
	if err != nil {
		return nil, nil, nil, err
	}
	return result, template, versionID, nil
}

func templateBody(template *domain.DocumentTemplate) (string, *string, error) {
	if template.Body != nil && *template.Body != "" {
		return *template.Body, template.ActiveVersionID, nil
	}
	return "", nil, ErrTemplateHasNoBody
}

// selectedBlocks loads the blocks chosen in step 4, keyed by slot name.
func (s *Service) selectedBlocks(ctx context.Context, run *workflow.Run) (map[string]resolver.Block, error) {
	raw, ok := run.Input("block_selections")
	if !ok {
		return nil, nil
	}
	selections, ok := raw.(map[string]any)
	if !ok {
		return nil, nil
	}

	blocks := make(map[string]resolver.Block, len(selections))
	for slot, value := range selections {
		blockID, ok := value.(string)
		if !ok || blockID == "" {
			continue
		}
		block, err := s.repos.TextBlocks.GetByID(ctx, blockID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &workflow.ValidationError{Rule: workflow.RuleTextblockCompatibility, Reason: fmt.Sprintf("text block %s not found", blockID)}
			}
			return nil, err
		}
		blocks[slot] = resolver.Block{ID: block.ID, Content: block.Content}
	}
	return blocks, nil
}

// GetDocument fetches a persisted document.
func (s *Service) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.repos.Documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListDocumentsOptions controls document listing.
type ListDocumentsOptions struct {
	Limit  int
	Offset int
	Status string
	Search string
}

// ListDocuments returns a page of documents plus the total count.
func (s *Service) ListDocuments(ctx context.Context, opts ListDocumentsOptions) ([]*domain.Document, int64, error) {
	repoOpts := domain.DocumentListOptions{
		Limit:  opts.Limit,
		Offset: opts.Offset,
		Status: strings.TrimSpace(opts.Status),
		Search: strings.TrimSpace(opts.Search),
	}

	documents, err := s.repos.Documents.List(ctx, repoOpts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.Documents.Count(ctx, repoOpts)
	if err != nil {
		return nil, 0, err
	}
	return documents, total, nil
}

// UpdateStatus moves a document through its lifecycle and records the
// change in the audit log.
func (s *Service) UpdateStatus(ctx context.Context, documentID, status, updatedBy string) (*domain.Document, error) {
	if !domain.ValidDocumentStatus(status) {
		return nil, ErrInvalidStatus
	}

	if err := s.repos.Documents.UpdateStatus(ctx, documentID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return nil, err
	}
	audit := &domain.DocumentAuditLog{
		ID:         uuid.NewString(),
		DocumentID: &documentID,
		Action:     "document.status_changed",
		Payload:    payload,
	}
	if trimmed := strings.TrimSpace(updatedBy); trimmed != "" {
		audit.CreatedBy = &trimmed
	}
	if err := s.repos.DocumentAuditLog.Create(ctx, audit); err != nil {
		return nil, err
	}

	return s.GetDocument(ctx, documentID)
}

// AuditTrail returns the recent audit entries of a document.
func (s *Service) AuditTrail(ctx context.Context, documentID string, limit int) ([]*domain.DocumentAuditLog, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.repos.DocumentAuditLog.ListRecent(ctx, documentID, limit)
}

// mergeDataContext folds earlier data bindings into an incoming
// data_context so a later step adds to the context instead of replacing it.
// Incoming values win per field.
func mergeDataContext(run *workflow.Run, input map[string]any) {
	incoming, ok := input["data_context"].(map[string]any)
	if !ok {
		return
	}
	existing, ok := run.Inputs["data_context"].(map[string]any)
	if !ok {
		return
	}
	merged := make(map[string]any, len(existing)+len(incoming))
	for category, fields := range existing {
		merged[category] = fields
	}
	for category, fields := range incoming {
		newFields, newOK := fields.(map[string]any)
		oldFields, oldOK := merged[category].(map[string]any)
		if !newOK || !oldOK {
			merged[category] = fields
			continue
		}
		combined := make(map[string]any, len(oldFields)+len(newFields))
		for field, value := range oldFields {
			combined[field] = value
		}
		for field, value := range newFields {
			combined[field] = value
		}
		merged[category] = combined
	}
	input["data_context"] = merged
}

// dataContextOf converts the run's accumulated data_context input into the
// resolver's shape. Non-string leaf values are stringified as-is.
func dataContextOf(inputs map[string]any) resolver.DataContext {
	context := resolver.DataContext{}
	raw, ok := inputs["data_context"]
	if !ok {
		return context
	}
	categories, ok := raw.(map[string]any)
	if !ok {
		return context
	}
	for category, value := range categories {
		fields, ok := value.(map[string]any)
		if !ok {
			continue
		}
		bound := make(map[string]string, len(fields))
		for field, fieldValue := range fields {
			switch v := fieldValue.(type) {
			case string:
				bound[field] = v
			default:
				bound[field] = fmt.Sprintf("%v", v)
			}
		}
		context[category] = bound
	}
	return context
}

func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

package template

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/fintutto/vermietify-docs/internal/catalog"
	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/resolver"
)

// Service manages document templates and their versions.
type Service struct {
	repos   *domain.Repositories
	catalog *catalog.Store
}

// NewService creates the template service.
func NewService(repos *domain.Repositories, catalogStore *catalog.Store) *Service {
	return &Service{repos: repos, catalog: catalogStore}
}

// CreateTemplateInput defines the fields for a new template.
type CreateTemplateInput struct {
	Name           string
	Description    *string
	Category       *string
	PageFormat     string
	RequiredData   []string
	TextblockSlots []string
	CreatedBy      string
}

// UpdateTemplateInput defines the optional fields of a template update.
type UpdateTemplateInput struct {
	TemplateID     string
	Name           *string
	Description    *string
	Category       *string
	PageFormat     *string
	RequiredData   *[]string
	TextblockSlots *[]string
}

// CreateTemplate creates a template record. Recreating a soft-deleted name
// restores the existing record instead of failing on the unique constraint.
func (s *Service) CreateTemplate(ctx context.Context, input CreateTemplateInput) (*domain.DocumentTemplate, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	existing, err := s.repos.Templates.GetByName(ctx, name, true)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.DeletedAt == nil {
			return nil, ErrTemplateAlreadyExists
		}
		if err := s.repos.Templates.Restore(ctx, existing.ID); err != nil {
			return nil, err
		}
		return s.GetTemplate(ctx, existing.ID)
	}

	if err := s.validateRequiredData(input.RequiredData); err != nil {
		return nil, err
	}

	requiredData, err := marshalStringList(input.RequiredData)
	if err != nil {
		return nil, err
	}
	textblockSlots, err := marshalStringList(input.TextblockSlots)
	if err != nil {
		return nil, err
	}

	template := &domain.DocumentTemplate{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    optionalTrimmedString(input.Description),
		Category:       optionalTrimmedString(input.Category),
		PageFormat:     strings.TrimSpace(input.PageFormat),
		RequiredData:   requiredData,
		TextblockSlots: textblockSlots,
		CreatedBy:      optionalString(input.CreatedBy),
	}

	if err := s.repos.Templates.Create(ctx, template); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrTemplateAlreadyExists
		}
		return nil, err
	}

	return s.GetTemplate(ctx, template.ID)
}

// GetTemplate fetches a live template by ID.
func (s *Service) GetTemplate(ctx context.Context, templateID string) (*domain.DocumentTemplate, error) {
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

// ListTemplatesOptions controls template listing.
type ListTemplatesOptions struct {
	Limit          int
	Offset         int
	Search         string
	Category       string
	IncludeDeleted bool
}

// ListTemplates returns a page of templates plus the total count.
func (s *Service) ListTemplates(ctx context.Context, opts ListTemplatesOptions) ([]*domain.DocumentTemplate, int64, error) {
	repoOpts := domain.TemplateListOptions{
		Limit:          opts.Limit,
		Offset:         opts.Offset,
		Search:         strings.TrimSpace(opts.Search),
		Category:       strings.TrimSpace(opts.Category),
		IncludeDeleted: opts.IncludeDeleted,
	}

	templates, err := s.repos.Templates.List(ctx, repoOpts)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repos.Templates.Count(ctx, repoOpts)
	if err != nil {
		return nil, 0, err
	}

	return templates, total, nil
}

// UpdateTemplate applies a partial metadata update.
func (s *Service) UpdateTemplate(ctx context.Context, input UpdateTemplateInput) (*domain.DocumentTemplate, error) {
	updates := domain.TemplateUpdateParams{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		updates.HasName = true
		updates.Name = &name
	}
	if input.Description != nil {
		updates.HasDescription = true
		updates.Description = optionalTrimmedString(input.Description)
	}
	if input.Category != nil {
		updates.HasCategory = true
		updates.Category = optionalTrimmedString(input.Category)
	}
	if input.PageFormat != nil {
		format := strings.TrimSpace(*input.PageFormat)
		updates.HasPageFormat = true
		updates.PageFormat = &format
	}
	if input.RequiredData != nil {
		if err := s.validateRequiredData(*input.RequiredData); err != nil {
			return nil, err
		}
		raw, err := marshalStringList(*input.RequiredData)
		if err != nil {
			return nil, err
		}
		updates.HasRequiredData = true
		if raw != nil {
			value := string(raw)
			updates.RequiredData = &value
		}
	}
	if input.TextblockSlots != nil {
		raw, err := marshalStringList(*input.TextblockSlots)
		if err != nil {
			return nil, err
		}
		updates.HasTextblockSlots = true
		if raw != nil {
			value := string(raw)
			updates.TextblockSlots = &value
		}
	}

	if !updates.HasName && !updates.HasDescription && !updates.HasCategory &&
		!updates.HasPageFormat && !updates.HasRequiredData && !updates.HasTextblockSlots {
		return nil, ErrNoFieldsToUpdate
	}

	if err := s.repos.Templates.Update(ctx, input.TemplateID, updates); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrTemplateAlreadyExists
		}
		return nil, err
	}

	return s.GetTemplate(ctx, input.TemplateID)
}

// CreateVersionInput defines the fields of a new template version.
type CreateVersionInput struct {
	TemplateID     string
	Body           string
	RequiredData   []string
	TextblockSlots []string
	Status         string
	Metadata       interface{}
	CreatedBy      string
	Activate       bool
}

// CreateVersion stores a new immutable revision of the template body. The
// body must scan cleanly and every placeholder must exist in the catalog.
func (s *Service) CreateVersion(ctx context.Context, input CreateVersionInput) (*domain.TemplateVersion, error) {
	template, err := s.GetTemplate(ctx, input.TemplateID)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrBodyRequired
	}

	invalid, err := resolver.ValidateTemplateBody(s.catalog.Snapshot(), body)
	if err != nil {
		return nil, err
	}
	if len(invalid) > 0 {
		return nil, &InvalidBodyError{Tokens: invalid}
	}
	if err := s.validateRequiredData(input.RequiredData); err != nil {
		return nil, err
	}

	latest, err := s.repos.TemplateVersions.GetLatestVersionNumber(ctx, template.ID)
	if err != nil {
		return nil, err
	}

	version := &domain.TemplateVersion{
		ID:            uuid.NewString(),
		TemplateID:    template.ID,
		VersionNumber: latest + 1,
		Body:          body,
		Status:        normalizedStatus(input.Status),
		CreatedBy:     optionalString(input.CreatedBy),
	}
	if version.RequiredData, err = marshalStringList(input.RequiredData); err != nil {
		return nil, err
	}
	if version.TextblockSlots, err = marshalStringList(input.TextblockSlots); err != nil {
		return nil, err
	}
	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, err
		}
		version.Metadata = data
	}

	if err := s.repos.TemplateVersions.Create(ctx, version); err != nil {
		return nil, err
	}

	created, err := s.repos.TemplateVersions.GetByID(ctx, version.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}

	if input.Activate {
		body := created.Body
		if err := s.repos.Templates.UpdateActiveVersion(ctx, template.ID, &created.ID, &body); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// ListVersions returns the version history of a template.
func (s *Service) ListVersions(ctx context.Context, templateID string, limit, offset int) ([]*domain.TemplateVersion, error) {
	if _, err := s.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}
	return s.repos.TemplateVersions.ListByTemplate(ctx, templateID, limit, offset)
}

// SetActiveVersion promotes a version to be the template's working body.
func (s *Service) SetActiveVersion(ctx context.Context, templateID, versionID string) error {
	if _, err := s.GetTemplate(ctx, templateID); err != nil {
		return err
	}

	version, err := s.repos.TemplateVersions.GetByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrVersionNotFound
		}
		return err
	}
	if version.TemplateID != templateID {
		return ErrVersionNotFound
	}

	body := version.Body
	return s.repos.Templates.UpdateActiveVersion(ctx, templateID, &versionID, &body)
}

// DeleteTemplate soft deletes a template and records the action.
func (s *Service) DeleteTemplate(ctx context.Context, templateID, deletedBy string) error {
	if err := s.repos.Templates.Delete(ctx, templateID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}

	if s.repos.DocumentAuditLog != nil {
		payload, err := json.Marshal(map[string]string{"status": "deleted"})
		if err != nil {
			return err
		}
		audit := &domain.DocumentAuditLog{
			ID:         uuid.NewString(),
			TemplateID: &templateID,
			Action:     "template.deleted",
			Payload:    payload,
			CreatedBy:  optionalString(deletedBy),
		}
		if err := s.repos.DocumentAuditLog.Create(ctx, audit); err != nil {
			return err
		}
	}
	return nil
}

// validateRequiredData rejects required data categories absent from the
// catalog. A template requiring an unknown category could never satisfy the
// mandatory fields check, since binding that category is itself rejected.
func (s *Service) validateRequiredData(values []string) error {
	snapshot := s.catalog.Snapshot()
	seen := make(map[string]struct{})
	var unknown []string
	for _, category := range values {
		if snapshot.HasCategory(category) {
			continue
		}
		if _, dup := seen[category]; dup {
			continue
		}
		seen[category] = struct{}{}
		unknown = append(unknown, category)
	}
	if len(unknown) > 0 {
		return &UnknownRequiredDataError{Categories: unknown}
	}
	return nil
}

func marshalStringList(values []string) (json.RawMessage, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func optionalString(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalTrimmedString(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizedStatus(status string) string {
	value := strings.TrimSpace(strings.ToLower(status))
	switch value {
	case "published", "draft", "archived":
		return value
	default:
		return "draft"
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// SQLite surfaces unique constraint failures only via the error string.
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

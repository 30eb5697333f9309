package domain

import "context"

// UserRepository defines user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

// CatalogEntryRepository stores the legal placeholder tokens.
type CatalogEntryRepository interface {
	Create(ctx context.Context, entry *CatalogEntry) error
	ListAll(ctx context.Context) ([]*CatalogEntry, error)
	Delete(ctx context.Context, entryID string) error
}

// TextBlockRepository stores reusable text snippets.
type TextBlockRepository interface {
	Create(ctx context.Context, block *TextBlock) error
	GetByID(ctx context.Context, blockID string) (*TextBlock, error)
	ListByCategory(ctx context.Context, categoryID string) ([]*TextBlock, error)
	ListAll(ctx context.Context) ([]*TextBlock, error)
	Update(ctx context.Context, blockID string, params TextBlockUpdateParams) error
	Delete(ctx context.Context, blockID string) error
}

// TextBlockUpdateParams carries partial text block updates; Has flags mark
// which fields are present.
type TextBlockUpdateParams struct {
	HasTitle    bool
	Title       *string
	HasContent  bool
	Content     *string
	HasPosition bool
	Position    *int
}

// TemplateListOptions controls template list queries.
type TemplateListOptions struct {
	Limit          int
	Offset         int
	Search         string
	Category       string
	IncludeDeleted bool
}

// TemplateUpdateParams carries partial template updates.
type TemplateUpdateParams struct {
	HasName           bool
	Name              *string
	HasDescription    bool
	Description       *string
	HasCategory       bool
	Category          *string
	HasPageFormat     bool
	PageFormat        *string
	HasRequiredData   bool
	RequiredData      *string
	HasTextblockSlots bool
	TextblockSlots    *string
}

// TemplateRepository stores document templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *DocumentTemplate) error
	GetByID(ctx context.Context, templateID string) (*DocumentTemplate, error)
	GetByName(ctx context.Context, name string, includeDeleted bool) (*DocumentTemplate, error)
	List(ctx context.Context, opts TemplateListOptions) ([]*DocumentTemplate, error)
	Count(ctx context.Context, opts TemplateListOptions) (int64, error)
	Update(ctx context.Context, templateID string, params TemplateUpdateParams) error
	UpdateActiveVersion(ctx context.Context, templateID string, versionID *string, body *string) error
	Delete(ctx context.Context, templateID string) error
	Restore(ctx context.Context, templateID string) error
}

// TemplateVersionRepository stores immutable template revisions.
type TemplateVersionRepository interface {
	Create(ctx context.Context, version *TemplateVersion) error
	GetByID(ctx context.Context, versionID string) (*TemplateVersion, error)
	ListByTemplate(ctx context.Context, templateID string, limit, offset int) ([]*TemplateVersion, error)
	GetLatestVersionNumber(ctx context.Context, templateID string) (int, error)
	GetPreviousVersion(ctx context.Context, templateID string, versionNumber int) (*TemplateVersion, error)
}

// DocumentListOptions controls document list queries.
type DocumentListOptions struct {
	Limit  int
	Offset int
	Status string
	Search string
}

// DocumentRepository is the record sink for finalized documents.
type DocumentRepository interface {
	Create(ctx context.Context, document *Document) error
	GetByID(ctx context.Context, documentID string) (*Document, error)
	List(ctx context.Context, opts DocumentListOptions) ([]*Document, error)
	Count(ctx context.Context, opts DocumentListOptions) (int64, error)
	UpdateStatus(ctx context.Context, documentID, status string) error
}

// DocumentAuditLogRepository records lifecycle actions.
type DocumentAuditLogRepository interface {
	Create(ctx context.Context, entry *DocumentAuditLog) error
	ListRecent(ctx context.Context, documentID string, limit int) ([]*DocumentAuditLog, error)
}

// Repositories bundles all repository interfaces for dependency injection.
type Repositories struct {
	Users            UserRepository
	CatalogEntries   CatalogEntryRepository
	TextBlocks       TextBlockRepository
	Templates        TemplateRepository
	TemplateVersions TemplateVersionRepository
	Documents        DocumentRepository
	DocumentAuditLog DocumentAuditLogRepository
}

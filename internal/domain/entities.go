package domain

import (
	"encoding/json"
	"time"
)

// User is an operating subject of the document service.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CatalogEntry is one legal placeholder token, addressed as Category.Field.
type CatalogEntry struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Field     string    `json:"field"`
	Label     *string   `json:"label,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// TextBlock is a reusable snippet grouped by category. Its content may
// contain placeholder tokens but never slot markers.
type TextBlock struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Position   int       `json:"position"`
	CreatedBy  *string   `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentTemplate defines a document layout: placeholder tokens, text block
// slots and the data categories that must be bound before resolution.
type DocumentTemplate struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	Category        *string         `json:"category,omitempty"`
	PageFormat      string          `json:"page_format"`
	RequiredData    json.RawMessage `json:"required_data,omitempty"`
	TextblockSlots  json.RawMessage `json:"textblock_slots,omitempty"`
	ActiveVersionID *string         `json:"active_version_id,omitempty"`
	Body            *string         `json:"body,omitempty"`
	Status          string          `json:"status"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	CreatedBy       *string         `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TemplateVersion records one immutable revision of a template body.
type TemplateVersion struct {
	ID             string          `json:"id"`
	TemplateID     string          `json:"template_id"`
	VersionNumber  int             `json:"version_number"`
	Body           string          `json:"body"`
	RequiredData   json.RawMessage `json:"required_data,omitempty"`
	TextblockSlots json.RawMessage `json:"textblock_slots,omitempty"`
	Status         string          `json:"status"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedBy      *string         `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Document statuses, managed by callers after finalization.
const (
	DocumentStatusTodo     = "todo"
	DocumentStatusRemind   = "remind"
	DocumentStatusCreated  = "created"
	DocumentStatusModified = "modified"
	DocumentStatusSent     = "sent"
	DocumentStatusSigned   = "signed"
	DocumentStatusScanned  = "scanned"
)

// ValidDocumentStatus reports whether status is a known document status.
func ValidDocumentStatus(status string) bool {
	switch status {
	case DocumentStatusTodo, DocumentStatusRemind, DocumentStatusCreated,
		DocumentStatusModified, DocumentStatusSent, DocumentStatusSigned,
		DocumentStatusScanned:
		return true
	}
	return false
}

// Document is a finalized resolution result persisted for the record.
type Document struct {
	ID                string          `json:"id"`
	TemplateID        *string         `json:"template_id,omitempty"`
	TemplateVersionID *string         `json:"template_version_id,omitempty"`
	Name              string          `json:"name"`
	Body              string          `json:"body"`
	Status            string          `json:"status"`
	UnresolvedTokens  json.RawMessage `json:"unresolved_tokens,omitempty"`
	UsedBlocks        json.RawMessage `json:"used_blocks,omitempty"`
	CreatedBy         *string         `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DocumentAuditLog records administrative and lifecycle actions.
type DocumentAuditLog struct {
	ID         string          `json:"id"`
	DocumentID *string         `json:"document_id,omitempty"`
	TemplateID *string         `json:"template_id,omitempty"`
	Action     string          `json:"action"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedBy  *string         `json:"created_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

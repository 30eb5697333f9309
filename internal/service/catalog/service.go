// Package catalog provides the administrative operations of the placeholder
// catalog: listing, extension and snapshot reloads. The read path used by
// resolution lives in the core catalog package.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	corecatalog "github.com/fintutto/vermietify-docs/internal/catalog"
	"github.com/fintutto/vermietify-docs/internal/domain"
)

var (
	ErrInvalidIdentifier = errors.New("catalog identifier contains illegal characters")
	ErrEntryExists       = errors.New("catalog entry already exists")
)

// Service manages the persisted catalog and its published snapshot.
type Service struct {
	repos  *domain.Repositories
	store  *corecatalog.Store
	logger *zap.Logger
}

// NewService creates the catalog admin service.
func NewService(repos *domain.Repositories, store *corecatalog.Store, logger *zap.Logger) *Service {
	return &Service{repos: repos, store: store, logger: logger}
}

// Snapshot returns the currently published snapshot.
func (s *Service) Snapshot() *corecatalog.Snapshot {
	return s.store.Snapshot()
}

// AddEntry persists a new token and publishes a fresh snapshot. Tokens are
// case-sensitive; objekt.Name and objekt.name may coexist.
func (s *Service) AddEntry(ctx context.Context, category, field, label string) (*domain.CatalogEntry, error) {
	category = strings.TrimSpace(category)
	field = strings.TrimSpace(field)
	if !identLike(category) || !identLike(field) {
		return nil, ErrInvalidIdentifier
	}

	if _, ok := s.store.Snapshot().Lookup(category, field); ok {
		return nil, ErrEntryExists
	}

	entry := &domain.CatalogEntry{
		ID:       uuid.NewString(),
		Category: category,
		Field:    field,
		Position: s.store.Snapshot().Len(),
	}
	if trimmed := strings.TrimSpace(label); trimmed != "" {
		entry.Label = &trimmed
	}

	if err := s.repos.CatalogEntries.Create(ctx, entry); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, ErrEntryExists
		}
		return nil, err
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("catalog entry added", zap.String("token", fmt.Sprintf("%s.%s", category, field)))
	return entry, nil
}

// DeleteEntry removes a token and publishes a fresh snapshot. Templates
// already referencing the token keep working; the token surfaces as invalid
// on their next resolution.
func (s *Service) DeleteEntry(ctx context.Context, entryID string) error {
	if err := s.repos.CatalogEntries.Delete(ctx, entryID); err != nil {
		return err
	}
	return s.Reload(ctx)
}

// ListEntries returns the persisted catalog rows in catalog order.
func (s *Service) ListEntries(ctx context.Context) ([]*domain.CatalogEntry, error) {
	return s.repos.CatalogEntries.ListAll(ctx)
}

// Reload rebuilds the snapshot from the database and swaps it in. Running
// resolutions keep the snapshot they started with.
func (s *Service) Reload(ctx context.Context) error {
	stored, err := s.repos.CatalogEntries.ListAll(ctx)
	if err != nil {
		return err
	}

	entries := make([]corecatalog.Entry, 0, len(stored))
	for _, record := range stored {
		entry := corecatalog.Entry{Category: record.Category, Field: record.Field}
		if record.Label != nil {
			entry.Label = *record.Label
		}
		entries = append(entries, entry)
	}

	snapshot, err := corecatalog.NewSnapshot(entries)
	if err != nil {
		return err
	}
	s.store.Replace(snapshot)
	return nil
}

// identLike matches the token grammar: letters, digits, underscore, hyphen.
func identLike(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

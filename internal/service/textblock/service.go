package textblock

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/fintutto/vermietify-docs/internal/catalog"
	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/resolver"
)

// Service manages the reusable text block library. Block content is
// validated at registration so that resolution never encounters a token the
// catalog does not know.
type Service struct {
	repos   *domain.Repositories
	catalog *catalog.Store
}

// NewService creates the text block service.
func NewService(repos *domain.Repositories, catalogStore *catalog.Store) *Service {
	return &Service{repos: repos, catalog: catalogStore}
}

// CreateBlockInput defines the fields of a new text block.
type CreateBlockInput struct {
	CategoryID string
	Title      string
	Content    string
	Position   int
	CreatedBy  string
}

// UpdateBlockInput defines the optional fields of a block update.
type UpdateBlockInput struct {
	BlockID  string
	Title    *string
	Content  *string
	Position *int
}

// CreateBlock registers a text block. Content must scan cleanly, every
// placeholder must exist in the catalog and slot markers are rejected.
func (s *Service) CreateBlock(ctx context.Context, input CreateBlockInput) (*domain.TextBlock, error) {
	categoryID := strings.TrimSpace(input.CategoryID)
	if categoryID == "" {
		return nil, ErrCategoryRequired
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrContentRequired
	}

	if err := resolver.ValidateBlockContent(s.catalog.Snapshot(), input.Content); err != nil {
		return nil, err
	}

	block := &domain.TextBlock{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		Title:      title,
		Content:    input.Content,
		Position:   input.Position,
		CreatedBy:  optionalString(input.CreatedBy),
	}

	if err := s.repos.TextBlocks.Create(ctx, block); err != nil {
		return nil, err
	}

	return s.GetBlock(ctx, block.ID)
}

// GetBlock fetches a block by ID.
func (s *Service) GetBlock(ctx context.Context, blockID string) (*domain.TextBlock, error) {
	block, err := s.repos.TextBlocks.GetByID(ctx, blockID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return block, nil
}

// ListByCategory returns the blocks of one category in presentation order.
func (s *Service) ListByCategory(ctx context.Context, categoryID string) ([]*domain.TextBlock, error) {
	return s.repos.TextBlocks.ListByCategory(ctx, strings.TrimSpace(categoryID))
}

// ListAll returns every block grouped by category.
func (s *Service) ListAll(ctx context.Context) ([]*domain.TextBlock, error) {
	return s.repos.TextBlocks.ListAll(ctx)
}

// UpdateBlock applies a partial update; changed content is re-validated.
func (s *Service) UpdateBlock(ctx context.Context, input UpdateBlockInput) (*domain.TextBlock, error) {
	updates := domain.TextBlockUpdateParams{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		updates.HasTitle = true
		updates.Title = &title
	}
	if input.Content != nil {
		if strings.TrimSpace(*input.Content) == "" {
			return nil, ErrContentRequired
		}
		if err := resolver.ValidateBlockContent(s.catalog.Snapshot(), *input.Content); err != nil {
			return nil, err
		}
		updates.HasContent = true
		updates.Content = input.Content
	}
	if input.Position != nil {
		updates.HasPosition = true
		updates.Position = input.Position
	}

	if !updates.HasTitle && !updates.HasContent && !updates.HasPosition {
		return nil, ErrNoFieldsToUpdate
	}

	if err := s.repos.TextBlocks.Update(ctx, input.BlockID, updates); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	return s.GetBlock(ctx, input.BlockID)
}

// DeleteBlock removes a block from the library.
func (s *Service) DeleteBlock(ctx context.Context, blockID string) error {
	if err := s.repos.TextBlocks.Delete(ctx, blockID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrBlockNotFound
		}
		return err
	}
	return nil
}

func optionalString(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/fintutto/vermietify-docs/internal/domain"
)

// DiffVersionOptions selects the comparison target: an explicit version, the
// active version, or the previous revision (the default).
type DiffVersionOptions struct {
	TargetVersionID   *string
	CompareToActive   bool
	CompareToPrevious bool
}

// DiffSegment is one run of equal, inserted or deleted text.
type DiffSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// JSONFieldChange is one changed key of a JSON side field.
type JSONFieldChange struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
}

// FieldDiff aggregates key-level changes of a JSON field.
type FieldDiff struct {
	Changes []JSONFieldChange `json:"changes"`
}

// VersionSummary identifies one side of a diff.
type VersionSummary struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	CreatedBy     *string   `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Status        string    `json:"status"`
}

// VersionDiff is the full comparison of two template versions.
type VersionDiff struct {
	TemplateID     string         `json:"template_id"`
	Base           VersionSummary `json:"base"`
	Target         VersionSummary `json:"target"`
	Body           []DiffSegment  `json:"body"`
	RequiredData   *FieldDiff     `json:"required_data,omitempty"`
	TextblockSlots *FieldDiff     `json:"textblock_slots,omitempty"`
}

// DiffVersion compares a base version against the target selected by opts.
func (s *Service) DiffVersion(ctx context.Context, templateID, baseVersionID string, opts DiffVersionOptions) (*VersionDiff, error) {
	base, err := s.repos.TemplateVersions.GetByID(ctx, baseVersionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	if base.TemplateID != templateID {
		return nil, ErrVersionNotFound
	}

	target, err := s.resolveDiffTarget(ctx, templateID, base, opts)
	if err != nil {
		return nil, err
	}

	diff := &VersionDiff{
		TemplateID: templateID,
		Base:       summarizeVersion(base),
		Target:     summarizeVersion(target),
		Body:       buildBodyDiff(target.Body, base.Body),
	}

	if fieldDiff := buildFieldDiff(target.RequiredData, base.RequiredData); fieldDiff != nil {
		diff.RequiredData = fieldDiff
	}
	if fieldDiff := buildFieldDiff(target.TextblockSlots, base.TextblockSlots); fieldDiff != nil {
		diff.TextblockSlots = fieldDiff
	}

	return diff, nil
}

func (s *Service) resolveDiffTarget(ctx context.Context, templateID string, base *domain.TemplateVersion, opts DiffVersionOptions) (*domain.TemplateVersion, error) {
	if opts.TargetVersionID != nil {
		version, err := s.repos.TemplateVersions.GetByID(ctx, *opts.TargetVersionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrVersionNotFound
			}
			return nil, err
		}
		if version.TemplateID != templateID {
			return nil, ErrVersionNotFound
		}
		return version, nil
	}

	if opts.CompareToActive {
		template, err := s.repos.Templates.GetByID(ctx, templateID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrTemplateNotFound
			}
			return nil, err
		}
		if template.ActiveVersionID == nil {
			return nil, ErrVersionNotFound
		}
		version, err := s.repos.TemplateVersions.GetByID(ctx, *template.ActiveVersionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, ErrVersionNotFound
			}
			return nil, err
		}
		return version, nil
	}

	previous, err := s.repos.TemplateVersions.GetPreviousVersion(ctx, templateID, base.VersionNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return previous, nil
}

func buildBodyDiff(left, right string) []DiffSegment {
	dmp := diffmatchpatch.New()
	pieces := dmp.DiffMain(left, right, false)
	pieces = dmp.DiffCleanupSemantic(pieces)

	segments := make([]DiffSegment, 0, len(pieces))
	for _, piece := range pieces {
		if piece.Text == "" {
			continue
		}
		segType := "equal"
		switch piece.Type {
		case diffmatchpatch.DiffDelete:
			segType = "delete"
		case diffmatchpatch.DiffInsert:
			segType = "insert"
		}
		segments = append(segments, DiffSegment{Type: segType, Text: piece.Text})
	}
	return segments
}

func buildFieldDiff(leftRaw, rightRaw json.RawMessage) *FieldDiff {
	leftSet := stringListSet(leftRaw)
	rightSet := stringListSet(rightRaw)

	keys := make(map[string]struct{})
	for key := range leftSet {
		keys[key] = struct{}{}
	}
	for key := range rightSet {
		keys[key] = struct{}{}
	}
	if len(keys) == 0 {
		return nil
	}

	changes := make([]JSONFieldChange, 0)
	for key := range keys {
		_, leftOK := leftSet[key]
		_, rightOK := rightSet[key]
		switch {
		case !leftOK && rightOK:
			changes = append(changes, JSONFieldChange{Key: key, Type: "added", Right: key})
		case leftOK && !rightOK:
			changes = append(changes, JSONFieldChange{Key: key, Type: "removed", Left: key})
		}
	}
	if len(changes) == 0 {
		return nil
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Key < changes[j].Key
	})
	return &FieldDiff{Changes: changes}
}

// stringListSet decodes a JSON string array into a set; other shapes are
// flattened key by key.
func stringListSet(raw json.RawMessage) map[string]struct{} {
	set := make(map[string]struct{})
	if len(raw) == 0 {
		return set
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			set[item] = struct{}{}
		}
		return set
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err == nil {
		for key, value := range asMap {
			set[fmt.Sprintf("%s=%v", key, value)] = struct{}{}
		}
	}
	return set
}

func summarizeVersion(version *domain.TemplateVersion) VersionSummary {
	return VersionSummary{
		ID:            version.ID,
		VersionNumber: version.VersionNumber,
		CreatedBy:     version.CreatedBy,
		CreatedAt:     version.CreatedAt,
		Status:        version.Status,
	}
}

package resolver

import (
	"fmt"

	"github.com/fintutto/vermietify-docs/internal/catalog"
)

// InvalidBlockTokenError reports a token inside a text block that does not
// resolve against the catalog, or a slot marker, which blocks may not
// contain.
type InvalidBlockTokenError struct {
	Token string
}

func (e *InvalidBlockTokenError) Error() string {
	return fmt.Sprintf("invalid text block token %s", e.Token)
}

// ValidateBlockContent checks a text block body at registration time: the
// syntax must be balanced, every placeholder must exist in the catalog and
// slot markers are forbidden (blocks cannot reference other blocks).
func ValidateBlockContent(snapshot *catalog.Snapshot, content string) error {
	segments, err := scan(content)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		switch seg.kind {
		case segmentSlot:
			return &InvalidBlockTokenError{Token: seg.text}
		case segmentPlaceholder:
			if seg.category == "" {
				return &InvalidBlockTokenError{Token: seg.text}
			}
			if _, ok := snapshot.Lookup(seg.category, seg.field); !ok {
				return &InvalidBlockTokenError{Token: seg.text}
			}
		}
	}
	return nil
}

// ValidateTemplateBody checks a template body at authoring time: syntax must
// balance and every placeholder token must exist in the catalog. Slot
// markers are allowed; unknown slots surface later as diagnostics when the
// template declares its slot list.
func ValidateTemplateBody(snapshot *catalog.Snapshot, body string) ([]string, error) {
	placeholders, _, err := TokensOf(body)
	if err != nil {
		return nil, err
	}
	invalid := []string{}
	for _, raw := range placeholders {
		inner := raw[len(placeholderOpen) : len(raw)-len(placeholderClose)]
		category, field := parsePlaceholder(inner)
		if category == "" {
			invalid = append(invalid, raw)
			continue
		}
		if _, ok := snapshot.Lookup(category, field); !ok {
			invalid = append(invalid, raw)
		}
	}
	return invalid, nil
}

package resolver

import (
	"fmt"
	"strings"
)

// Segment kinds produced by the scanner.
const (
	segmentLiteral = iota
	segmentPlaceholder
	segmentSlot
)

// segment is one scanned piece of a template body: literal text, a
// {{Category.Field}} placeholder or a [[slot]] marker.
type segment struct {
	kind int
	text string // literal text, or the raw token including delimiters

	// Parsed placeholder parts; empty when the inner text does not match
	// the Category.Field shape.
	category string
	field    string

	// Parsed slot name; empty when malformed.
	slot string
}

// SyntaxError reports unbalanced token delimiters. It is the only condition
// that aborts a resolution, because an unbalanced token makes the rest of the
// scan ambiguous.
type SyntaxError struct {
	Offset int
	Detail string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at offset %d: %s", e.Offset, e.Detail)
}

const (
	placeholderOpen  = "{{"
	placeholderClose = "}}"
	slotOpen         = "[["
	slotClose        = "]]"
)

// scan splits body into segments, left to right. Delimiters must balance;
// anything else inside them is classified later, not here.
func scan(body string) ([]segment, error) {
	var segments []segment
	offset := 0

	for len(body) > 0 {
		phIdx := strings.Index(body, placeholderOpen)
		slIdx := strings.Index(body, slotOpen)

		next, open, close := -1, "", ""
		switch {
		case phIdx >= 0 && (slIdx < 0 || phIdx <= slIdx):
			next, open, close = phIdx, placeholderOpen, placeholderClose
		case slIdx >= 0:
			next, open, close = slIdx, slotOpen, slotClose
		}

		if next < 0 {
			if err := checkStrayClosers(body, offset); err != nil {
				return nil, err
			}
			segments = append(segments, segment{kind: segmentLiteral, text: body})
			break
		}

		if next > 0 {
			literal := body[:next]
			if err := checkStrayClosers(literal, offset); err != nil {
				return nil, err
			}
			segments = append(segments, segment{kind: segmentLiteral, text: literal})
		}

		rest := body[next+len(open):]
		end := strings.Index(rest, close)
		if end < 0 {
			return nil, &SyntaxError{Offset: offset + next, Detail: fmt.Sprintf("%q without matching %q", open, close)}
		}
		// A nested opener before the closer means the delimiters do not
		// balance.
		if inner := rest[:end]; strings.Contains(inner, open) {
			return nil, &SyntaxError{Offset: offset + next, Detail: fmt.Sprintf("nested %q before %q", open, close)}
		}

		raw := body[next : next+len(open)+end+len(close)]
		inner := rest[:end]
		if open == placeholderOpen {
			seg := segment{kind: segmentPlaceholder, text: raw}
			seg.category, seg.field = parsePlaceholder(inner)
			segments = append(segments, seg)
		} else {
			seg := segment{kind: segmentSlot, text: raw}
			seg.slot = parseSlotName(inner)
			segments = append(segments, seg)
		}

		consumed := next + len(open) + end + len(close)
		offset += consumed
		body = body[consumed:]
	}

	return segments, nil
}

func checkStrayClosers(literal string, offset int) error {
	if idx := strings.Index(literal, placeholderClose); idx >= 0 {
		return &SyntaxError{Offset: offset + idx, Detail: fmt.Sprintf("%q without matching %q", placeholderClose, placeholderOpen)}
	}
	if idx := strings.Index(literal, slotClose); idx >= 0 {
		return &SyntaxError{Offset: offset + idx, Detail: fmt.Sprintf("%q without matching %q", slotClose, slotOpen)}
	}
	return nil
}

// parsePlaceholder splits inner into category and field. Both parts must be
// non-empty identifier-like strings joined by a single dot; anything else
// yields empty results and is reported as an invalid token.
func parsePlaceholder(inner string) (category, field string) {
	parts := strings.Split(inner, ".")
	if len(parts) != 2 {
		return "", ""
	}
	if !identLike(parts[0]) || !identLike(parts[1]) {
		return "", ""
	}
	return parts[0], parts[1]
}

func parseSlotName(inner string) string {
	if !identLike(inner) {
		return ""
	}
	return inner
}

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

// PlaceholderToken formats a (category, field) pair in canonical form.
func PlaceholderToken(category, field string) string {
	return placeholderOpen + category + "." + field + placeholderClose
}

// SlotMarker formats a slot name in canonical form.
func SlotMarker(name string) string {
	return slotOpen + name + slotClose
}

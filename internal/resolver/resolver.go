// Package resolver implements the template resolution engine: an explicit
// scan/classify/substitute pipeline over {{Category.Field}} placeholder
// tokens and [[slot]] text block markers.
//
// A resolution is a pure, synchronous computation over an immutable catalog
// snapshot and a caller-supplied data context. Missing or unknown tokens
// never abort a resolution; they are returned as ordered diagnostics next to
// a best-effort resolved text so authors can spot the gaps in place. The only
// fatal condition is unbalanced delimiters.
package resolver

import (
	"strings"

	"github.com/fintutto/vermietify-docs/internal/catalog"
)

// DataContext maps category -> field -> display-ready value. Values are
// opaque pre-formatted strings; the resolver does no locale formatting and
// no escaping.
type DataContext map[string]map[string]string

// Lookup returns the bound value for a (category, field) pair.
func (c DataContext) Lookup(category, field string) (string, bool) {
	fields, ok := c[category]
	if !ok {
		return "", false
	}
	value, ok := fields[field]
	return value, ok
}

// Template is the resolver's view of a document template.
type Template struct {
	Body         string
	RequiredData []string
	Slots        []string
}

// Block is a text block bound into a slot.
type Block struct {
	ID      string
	Content string
}

// Result is the outcome of one resolution. Every token listed in
// UnresolvedTokens or InvalidTokens appears verbatim in ResolvedText; every
// other token has been substituted.
type Result struct {
	ResolvedText     string   `json:"resolved_text"`
	UnresolvedTokens []string `json:"unresolved_tokens"`
	InvalidTokens    []string `json:"invalid_tokens"`
	UsedBlocks       []string `json:"used_blocks"`
	MissingData      []string `json:"missing_data"`
}

type resolution struct {
	snapshot *catalog.Snapshot
	context  DataContext

	out        strings.Builder
	unresolved []string
	invalid    []string
	usedBlocks []string

	seenUnresolved map[string]struct{}
	seenInvalid    map[string]struct{}
}

// Resolve substitutes every resolvable token in template.Body, inserting the
// bound blocks into their slots. Diagnostics are deduplicated per distinct
// token and reported in first-occurrence order; resolving the same inputs
// twice yields byte-identical output.
func Resolve(snapshot *catalog.Snapshot, template Template, blocks map[string]Block, context DataContext) (*Result, error) {
	segments, err := scan(template.Body)
	if err != nil {
		return nil, err
	}

	r := &resolution{
		snapshot:       snapshot,
		context:        context,
		unresolved:     []string{},
		invalid:        []string{},
		usedBlocks:     []string{},
		seenUnresolved: make(map[string]struct{}),
		seenInvalid:    make(map[string]struct{}),
	}

	declaredSlots := make(map[string]struct{}, len(template.Slots))
	for _, slot := range template.Slots {
		declaredSlots[slot] = struct{}{}
	}

	for _, seg := range segments {
		switch seg.kind {
		case segmentLiteral:
			r.out.WriteString(seg.text)
		case segmentPlaceholder:
			r.placeholder(seg)
		case segmentSlot:
			r.slot(seg, declaredSlots, blocks)
		}
	}

	return &Result{
		ResolvedText:     r.out.String(),
		UnresolvedTokens: r.unresolved,
		InvalidTokens:    r.invalid,
		UsedBlocks:       r.usedBlocks,
		MissingData:      missingCategories(template.RequiredData, context),
	}, nil
}

// placeholder substitutes a single token, or records it as a diagnostic and
// leaves the raw text in place so the author can spot it.
func (r *resolution) placeholder(seg segment) {
	if seg.category == "" {
		r.markInvalid(seg.text)
		r.out.WriteString(seg.text)
		return
	}
	if _, ok := r.snapshot.Lookup(seg.category, seg.field); !ok {
		r.markInvalid(seg.text)
		r.out.WriteString(seg.text)
		return
	}
	value, ok := r.context.Lookup(seg.category, seg.field)
	if !ok {
		r.markUnresolved(seg.text)
		r.out.WriteString(seg.text)
		return
	}
	r.out.WriteString(value)
}

// slot inserts the bound block after resolving the block's own tokens with
// the same context. Blocks resolve one level deep only; a slot marker inside
// a block is rejected at registration and reported as invalid here in case
// stale data slips through.
func (r *resolution) slot(seg segment, declared map[string]struct{}, blocks map[string]Block) {
	if seg.slot == "" {
		r.markInvalid(seg.text)
		r.out.WriteString(seg.text)
		return
	}
	if _, ok := declared[seg.slot]; !ok {
		r.markInvalid(seg.text)
		r.out.WriteString(seg.text)
		return
	}
	block, ok := blocks[seg.slot]
	if !ok {
		// No selection for this slot: leave the marker visible rather
		// than substituting an empty string.
		r.markUnresolved(seg.text)
		r.out.WriteString(seg.text)
		return
	}

	segments, err := scan(block.Content)
	if err != nil {
		// Registration validates block syntax, so a scan failure means
		// the stored content was corrupted; keep the marker visible.
		r.markInvalid(seg.text)
		r.out.WriteString(seg.text)
		return
	}
	for _, inner := range segments {
		switch inner.kind {
		case segmentLiteral:
			r.out.WriteString(inner.text)
		case segmentPlaceholder:
			r.placeholder(inner)
		case segmentSlot:
			r.markInvalid(inner.text)
			r.out.WriteString(inner.text)
		}
	}
	r.usedBlocks = append(r.usedBlocks, block.ID)
}

func (r *resolution) markUnresolved(raw string) {
	if _, seen := r.seenUnresolved[raw]; seen {
		return
	}
	r.seenUnresolved[raw] = struct{}{}
	r.unresolved = append(r.unresolved, raw)
}

func (r *resolution) markInvalid(raw string) {
	if _, seen := r.seenInvalid[raw]; seen {
		return
	}
	r.seenInvalid[raw] = struct{}{}
	r.invalid = append(r.invalid, raw)
}

func missingCategories(required []string, context DataContext) []string {
	missing := []string{}
	for _, category := range required {
		if _, ok := context[category]; !ok {
			missing = append(missing, category)
		}
	}
	return missing
}

// TokensOf scans body and returns the raw placeholder tokens and slot
// markers it contains, in first-occurrence order without duplicates. Used by
// template validation and by the workflow's placeholder_validity rule.
func TokensOf(body string) (placeholders, slots []string, err error) {
	segments, scanErr := scan(body)
	if scanErr != nil {
		return nil, nil, scanErr
	}
	seenPH := make(map[string]struct{})
	seenSL := make(map[string]struct{})
	placeholders = []string{}
	slots = []string{}
	for _, seg := range segments {
		switch seg.kind {
		case segmentPlaceholder:
			if _, ok := seenPH[seg.text]; !ok {
				seenPH[seg.text] = struct{}{}
				placeholders = append(placeholders, seg.text)
			}
		case segmentSlot:
			if _, ok := seenSL[seg.text]; !ok {
				seenSL[seg.text] = struct{}{}
				slots = append(slots, seg.text)
			}
		}
	}
	return placeholders, slots, nil
}

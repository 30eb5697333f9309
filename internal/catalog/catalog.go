package catalog

import (
	"fmt"
	"sync/atomic"
)

// Entry is one legal placeholder token in canonical {{Category.Field}} form.
type Entry struct {
	Category string
	Field    string
	Label    string
}

// DuplicateTokenError is returned when a (category, field) pair is registered
// twice. Duplicate registrations would silently shadow legal placeholders, so
// snapshot construction refuses them.
type DuplicateTokenError struct {
	Category string
	Field    string
}

func (e *DuplicateTokenError) Error() string {
	return fmt.Sprintf("catalog: duplicate token {{%s.%s}}", e.Category, e.Field)
}

// UnknownCategoryError is returned when a category is not part of the
// snapshot.
type UnknownCategoryError struct {
	Category string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("catalog: unknown category %q", e.Category)
}

// Snapshot is an immutable view of the placeholder catalog. All lookups are
// pure; concurrent resolutions share a snapshot without locking.
type Snapshot struct {
	categories []string
	fields     map[string][]string
	entries    map[string]map[string]Entry
}

// NewSnapshot builds a snapshot from entries, preserving first-appearance
// order of categories and insertion order of fields within a category.
func NewSnapshot(entries []Entry) (*Snapshot, error) {
	s := &Snapshot{
		fields:  make(map[string][]string),
		entries: make(map[string]map[string]Entry),
	}
	for _, entry := range entries {
		byField, ok := s.entries[entry.Category]
		if !ok {
			byField = make(map[string]Entry)
			s.entries[entry.Category] = byField
			s.categories = append(s.categories, entry.Category)
		}
		if _, exists := byField[entry.Field]; exists {
			return nil, &DuplicateTokenError{Category: entry.Category, Field: entry.Field}
		}
		byField[entry.Field] = entry
		s.fields[entry.Category] = append(s.fields[entry.Category], entry.Field)
	}
	return s, nil
}

// Lookup returns the entry for a (category, field) pair. Category and field
// are case-sensitive.
func (s *Snapshot) Lookup(category, field string) (Entry, bool) {
	byField, ok := s.entries[category]
	if !ok {
		return Entry{}, false
	}
	entry, ok := byField[field]
	return entry, ok
}

// HasCategory reports whether category exists in the snapshot.
func (s *Snapshot) HasCategory(category string) bool {
	_, ok := s.entries[category]
	return ok
}

// Categories returns the ordered category names.
func (s *Snapshot) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// Fields returns the ordered field names of a category.
func (s *Snapshot) Fields(category string) ([]string, error) {
	fields, ok := s.fields[category]
	if !ok {
		return nil, &UnknownCategoryError{Category: category}
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out, nil
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	n := 0
	for _, fields := range s.fields {
		n += len(fields)
	}
	return n
}

// Store hands out the current catalog snapshot and swaps in new ones
// atomically, so no resolution ever observes a half-updated catalog.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store seeded with snapshot.
func NewStore(snapshot *Snapshot) *Store {
	store := &Store{}
	store.current.Store(snapshot)
	return store
}

// Snapshot returns the current catalog snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace swaps in a new snapshot. In-flight resolutions keep the snapshot
// they started with.
func (s *Store) Replace(snapshot *Snapshot) {
	s.current.Store(snapshot)
}

package catalog

import (
	"errors"
	"testing"
)

func TestNewSnapshotKeepsOrder(t *testing.T) {
	snapshot, err := NewSnapshot([]Entry{
		{Category: "Mieter", Field: "Nachname"},
		{Category: "Mieter", Field: "Vorname"},
		{Category: "Objekt", Field: "Adresse"},
		{Category: "Mietvertrag", Field: "Miete"},
	})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}

	categories := snapshot.Categories()
	if len(categories) != 3 || categories[0] != "Mieter" || categories[1] != "Objekt" || categories[2] != "Mietvertrag" {
		t.Fatalf("categories %v", categories)
	}

	fields, err := snapshot.Fields("Mieter")
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if len(fields) != 2 || fields[0] != "Nachname" || fields[1] != "Vorname" {
		t.Fatalf("fields %v", fields)
	}
	if snapshot.Len() != 4 {
		t.Fatalf("len %d", snapshot.Len())
	}
}

func TestNewSnapshotRejectsDuplicates(t *testing.T) {
	_, err := NewSnapshot([]Entry{
		{Category: "Mieter", Field: "Nachname"},
		{Category: "Mieter", Field: "Nachname"},
	})
	var dup *DuplicateTokenError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTokenError, got %v", err)
	}
	if dup.Category != "Mieter" || dup.Field != "Nachname" {
		t.Fatalf("duplicate %+v", dup)
	}
}

func TestSnapshotLookupIsCaseSensitive(t *testing.T) {
	snapshot, err := NewSnapshot([]Entry{{Category: "Mieter", Field: "Nachname"}})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	if _, ok := snapshot.Lookup("Mieter", "Nachname"); !ok {
		t.Fatalf("expected lookup hit")
	}
	if _, ok := snapshot.Lookup("mieter", "Nachname"); ok {
		t.Fatalf("lookup must be case-sensitive")
	}
	if snapshot.HasCategory("MIETER") {
		t.Fatalf("HasCategory must be case-sensitive")
	}
}

func TestSnapshotUnknownCategory(t *testing.T) {
	snapshot, err := NewSnapshot(nil)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	_, err = snapshot.Fields("Mieter")
	var unknown *UnknownCategoryError
	if !errors.As(err, &unknown) || unknown.Category != "Mieter" {
		t.Fatalf("expected UnknownCategoryError, got %v", err)
	}
}

func TestStoreReplaceSwapsAtomically(t *testing.T) {
	first, err := NewSnapshot([]Entry{{Category: "Mieter", Field: "Nachname"}})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	store := NewStore(first)

	held := store.Snapshot()

	second, err := NewSnapshot([]Entry{
		{Category: "Mieter", Field: "Nachname"},
		{Category: "Mieter", Field: "Vorname"},
	})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	store.Replace(second)

	// In-flight consumers keep the snapshot they loaded.
	if held.Len() != 1 {
		t.Fatalf("held snapshot changed, len %d", held.Len())
	}
	if store.Snapshot().Len() != 2 {
		t.Fatalf("store not updated, len %d", store.Snapshot().Len())
	}
}

func TestDefaultEntriesBuildCleanly(t *testing.T) {
	snapshot, err := NewSnapshot(DefaultEntries())
	if err != nil {
		t.Fatalf("default entries must not collide: %v", err)
	}
	if snapshot.Len() == 0 {
		t.Fatalf("default catalog is empty")
	}
}

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/fintutto/vermietify-docs/internal/workflow"
)

func TestMemoryRunStoreRoundTrip(t *testing.T) {
	store := NewMemoryRunStore()
	run := workflow.NewRun("run-1", workflow.KindDocument, "user-1")
	run.Inputs["template_id"] = "tpl-1"

	if err := store.Save(context.Background(), run); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Get(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.ID != "run-1" || loaded.Kind != workflow.KindDocument || loaded.CurrentStep != 1 {
		t.Fatalf("loaded run %+v", loaded)
	}
	if loaded.StringInput("template_id") != "tpl-1" {
		t.Fatalf("inputs not persisted: %v", loaded.Inputs)
	}
}

func TestMemoryRunStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryRunStore()
	run := workflow.NewRun("run-1", workflow.KindDocument, "user-1")
	if err := store.Save(context.Background(), run); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the saved run must not leak into the stored copy.
	run.CurrentStep = 4
	run.Inputs["name"] = "changed"

	loaded, err := store.Get(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.CurrentStep != 1 {
		t.Fatalf("stored run mutated: step %d", loaded.CurrentStep)
	}
	if _, ok := loaded.Input("name"); ok {
		t.Fatalf("stored run mutated: %v", loaded.Inputs)
	}
}

func TestMemoryRunStoreUnknownRun(t *testing.T) {
	store := NewMemoryRunStore()
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryRunStoreDelete(t *testing.T) {
	store := NewMemoryRunStore()
	run := workflow.NewRun("run-1", workflow.KindDocument, "user-1")
	if err := store.Save(context.Background(), run); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(context.Background(), "run-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(context.Background(), "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound after delete, got %v", err)
	}
	// Deleting an unknown run is a no-op.
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

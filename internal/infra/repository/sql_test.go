package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/infra/database"
)

func setupRepositories(t *testing.T) (*domain.Repositories, func()) {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%s.db?mode=memory&cache=shared&_fk=1", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	migrationPath := filepath.Join("..", "..", "..", "db", "migrations", "000001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("exec migration: %v", err)
	}

	repos := NewSQLRepositories(db, database.NewDialect("sqlite"))
	cleanup := func() { _ = db.Close() }
	return repos, cleanup
}

func createTemplate(t *testing.T, repos *domain.Repositories, name string) *domain.DocumentTemplate {
	t.Helper()
	template := &domain.DocumentTemplate{Name: name}
	if err := repos.Templates.Create(context.Background(), template); err != nil {
		t.Fatalf("create template: %v", err)
	}
	return template
}

func TestUserRepository(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	user := &domain.User{Email: "admin@vermietify.de", HashedPassword: "hash"}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if user.Role != "nur_lesen" {
		t.Fatalf("expected default role nur_lesen got %q", user.Role)
	}

	loaded, err := repos.Users.GetByEmail(ctx, "admin@vermietify.de")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if loaded.ID != user.ID || loaded.Status != "active" {
		t.Fatalf("loaded user %+v", loaded)
	}
	if loaded.LastLoginAt != nil {
		t.Fatalf("fresh user must not have last login")
	}

	if err := repos.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		t.Fatalf("update last login: %v", err)
	}
	loaded, err = repos.Users.GetByEmail(ctx, "admin@vermietify.de")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if loaded.LastLoginAt == nil {
		t.Fatalf("last login not recorded")
	}

	if _, err := repos.Users.GetByEmail(ctx, "missing@vermietify.de"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repos.Users.UpdateLastLogin(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogEntryRepository(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	label := "Nachname"
	entries := []*domain.CatalogEntry{
		{Category: "mieter", Field: "Nachname", Label: &label, Position: 1},
		{Category: "mieter", Field: "Vorname", Position: 0},
		{Category: "objekt", Field: "Adresse", Position: 0},
	}
	for _, entry := range entries {
		if err := repos.CatalogEntries.Create(ctx, entry); err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}

	listed, err := repos.CatalogEntries.ListAll(ctx)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 entries got %d", len(listed))
	}
	// Ordered by category, then position.
	if listed[0].Field != "Vorname" || listed[1].Field != "Nachname" || listed[2].Category != "objekt" {
		t.Fatalf("ordering wrong: %v %v %v", listed[0].Field, listed[1].Field, listed[2].Category)
	}
	if listed[1].Label == nil || *listed[1].Label != "Nachname" {
		t.Fatalf("label lost: %+v", listed[1])
	}

	// Duplicate (category, field) pairs violate the unique index.
	err = repos.CatalogEntries.Create(ctx, &domain.CatalogEntry{Category: "mieter", Field: "Nachname"})
	if err == nil {
		t.Fatalf("expected unique violation")
	}

	if err := repos.CatalogEntries.Delete(ctx, entries[0].ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if err := repos.CatalogEntries.Delete(ctx, entries[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTextBlockRepository(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	first := &domain.TextBlock{CategoryID: "anrede", Title: "Formell", Content: "Sehr geehrter Herr {{mieter.Nachname}},", Position: 2}
	second := &domain.TextBlock{CategoryID: "anrede", Title: "Locker", Content: "Hallo {{mieter.Vorname}},", Position: 1}
	other := &domain.TextBlock{CategoryID: "schluss", Title: "Gruss", Content: "Mit freundlichen Grüßen"}
	for _, block := range []*domain.TextBlock{first, second, other} {
		if err := repos.TextBlocks.Create(ctx, block); err != nil {
			t.Fatalf("create block: %v", err)
		}
	}

	byCategory, err := repos.TextBlocks.ListByCategory(ctx, "anrede")
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(byCategory) != 2 || byCategory[0].Title != "Locker" || byCategory[1].Title != "Formell" {
		t.Fatalf("position ordering wrong: %+v", byCategory)
	}

	all, err := repos.TextBlocks.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 blocks got %d", len(all))
	}

	newTitle := "Formell neu"
	newPosition := 0
	err = repos.TextBlocks.Update(ctx, first.ID, domain.TextBlockUpdateParams{
		HasTitle: true, Title: &newTitle,
		HasPosition: true, Position: &newPosition,
	})
	if err != nil {
		t.Fatalf("update block: %v", err)
	}
	loaded, err := repos.TextBlocks.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if loaded.Title != "Formell neu" || loaded.Position != 0 {
		t.Fatalf("update not applied: %+v", loaded)
	}
	if loaded.Content != first.Content {
		t.Fatalf("content must stay untouched: %q", loaded.Content)
	}

	if err := repos.TextBlocks.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete block: %v", err)
	}
	if _, err := repos.TextBlocks.GetByID(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTemplateRepositoryLifecycle(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	template := createTemplate(t, repos, "Mahnung")
	if template.PageFormat != "A4" {
		t.Fatalf("expected default page format A4 got %q", template.PageFormat)
	}
	if template.Status != "draft" {
		t.Fatalf("expected status draft got %q", template.Status)
	}

	loaded, err := repos.Templates.GetByName(ctx, "Mahnung", false)
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if loaded.ID != template.ID {
		t.Fatalf("wrong template: %+v", loaded)
	}

	name := "Zahlungserinnerung"
	category := "mahnwesen"
	if err := repos.Templates.Update(ctx, template.ID, domain.TemplateUpdateParams{
		HasName: true, Name: &name,
		HasCategory: true, Category: &category,
	}); err != nil {
		t.Fatalf("update template: %v", err)
	}
	loaded, err = repos.Templates.GetByID(ctx, template.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if loaded.Name != name || loaded.Category == nil || *loaded.Category != category {
		t.Fatalf("update not applied: %+v", loaded)
	}

	if err := repos.Templates.Delete(ctx, template.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repos.Templates.GetByID(ctx, template.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("soft-deleted template must be hidden, got %v", err)
	}
	if _, err := repos.Templates.GetByName(ctx, name, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("soft-deleted template visible by name")
	}
	deleted, err := repos.Templates.GetByName(ctx, name, true)
	if err != nil {
		t.Fatalf("get deleted by name: %v", err)
	}
	if deleted.DeletedAt == nil {
		t.Fatalf("deleted_at not set")
	}

	if err := repos.Templates.Restore(ctx, template.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored, err := repos.Templates.GetByID(ctx, template.ID)
	if err != nil {
		t.Fatalf("get restored: %v", err)
	}
	if restored.DeletedAt != nil || restored.Status != "draft" {
		t.Fatalf("restore incomplete: %+v", restored)
	}
	// Restoring an already-live template changes nothing.
	if err := repos.Templates.Restore(ctx, template.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for live restore, got %v", err)
	}
}

func TestTemplateRepositoryListAndCount(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	mahnung := createTemplate(t, repos, "Mahnung Stufe 1")
	category := "mahnwesen"
	if err := repos.Templates.Update(ctx, mahnung.ID, domain.TemplateUpdateParams{HasCategory: true, Category: &category}); err != nil {
		t.Fatalf("update: %v", err)
	}
	createTemplate(t, repos, "Willkommensschreiben")
	removed := createTemplate(t, repos, "Alt")
	if err := repos.Templates.Delete(ctx, removed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	listed, err := repos.Templates.List(ctx, domain.TemplateListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 live templates got %d", len(listed))
	}

	total, err := repos.Templates.Count(ctx, domain.TemplateListOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 with deleted got %d", total)
	}

	bySearch, err := repos.Templates.List(ctx, domain.TemplateListOptions{Limit: 10, Search: "Mahnung"})
	if err != nil {
		t.Fatalf("list search: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].ID != mahnung.ID {
		t.Fatalf("search result %+v", bySearch)
	}

	byCategory, err := repos.Templates.List(ctx, domain.TemplateListOptions{Limit: 10, Category: "mahnwesen"})
	if err != nil {
		t.Fatalf("list category: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].ID != mahnung.ID {
		t.Fatalf("category result %+v", byCategory)
	}
}

func TestTemplateVersionRepository(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	template := createTemplate(t, repos, "Mahnung")

	latest, err := repos.TemplateVersions.GetLatestVersionNumber(ctx, template.ID)
	if err != nil {
		t.Fatalf("latest version: %v", err)
	}
	if latest != 0 {
		t.Fatalf("expected 0 for template without versions got %d", latest)
	}

	required, _ := json.Marshal([]string{"mieter"})
	var versions []*domain.TemplateVersion
	for i := 1; i <= 3; i++ {
		version := &domain.TemplateVersion{
			TemplateID:    template.ID,
			VersionNumber: i,
			Body:          fmt.Sprintf("Fassung %d: {{mieter.Nachname}}", i),
			RequiredData:  required,
		}
		if err := repos.TemplateVersions.Create(ctx, version); err != nil {
			t.Fatalf("create version %d: %v", i, err)
		}
		versions = append(versions, version)
	}

	latest, err = repos.TemplateVersions.GetLatestVersionNumber(ctx, template.ID)
	if err != nil {
		t.Fatalf("latest version: %v", err)
	}
	if latest != 3 {
		t.Fatalf("expected latest 3 got %d", latest)
	}

	listed, err := repos.TemplateVersions.ListByTemplate(ctx, template.ID, 10, 0)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(listed) != 3 || listed[0].VersionNumber != 3 {
		t.Fatalf("versions must list newest first: %+v", listed)
	}

	previous, err := repos.TemplateVersions.GetPreviousVersion(ctx, template.ID, 3)
	if err != nil {
		t.Fatalf("previous version: %v", err)
	}
	if previous.VersionNumber != 2 {
		t.Fatalf("expected version 2 got %d", previous.VersionNumber)
	}
	if _, err := repos.TemplateVersions.GetPreviousVersion(ctx, template.ID, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	body := versions[2].Body
	if err := repos.Templates.UpdateActiveVersion(ctx, template.ID, &versions[2].ID, &body); err != nil {
		t.Fatalf("activate version: %v", err)
	}
	loaded, err := repos.Templates.GetByID(ctx, template.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if loaded.ActiveVersionID == nil || *loaded.ActiveVersionID != versions[2].ID {
		t.Fatalf("active version not set: %+v", loaded)
	}
	if loaded.Body == nil || *loaded.Body != body {
		t.Fatalf("denormalized body not set: %v", loaded.Body)
	}
}

func TestDocumentRepository(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	template := createTemplate(t, repos, "Mahnung")
	unresolved, _ := json.Marshal([]string{"{{mieter.Email}}"})

	document := &domain.Document{
		TemplateID:       &template.ID,
		Name:             "Mahnung Schmidt",
		Body:             "Sehr geehrter Herr Schmidt, ...",
		UnresolvedTokens: unresolved,
	}
	if err := repos.Documents.Create(ctx, document); err != nil {
		t.Fatalf("create document: %v", err)
	}
	if document.Status != domain.DocumentStatusCreated {
		t.Fatalf("expected default status created got %q", document.Status)
	}

	second := &domain.Document{Name: "Willkommen Meier", Body: "Hallo"}
	if err := repos.Documents.Create(ctx, second); err != nil {
		t.Fatalf("create document: %v", err)
	}

	loaded, err := repos.Documents.GetByID(ctx, document.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	var tokens []string
	if err := json.Unmarshal(loaded.UnresolvedTokens, &tokens); err != nil || len(tokens) != 1 {
		t.Fatalf("unresolved tokens round trip failed: %s", loaded.UnresolvedTokens)
	}

	listed, err := repos.Documents.List(ctx, domain.DocumentListOptions{Limit: 10, Search: "Mahnung"})
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != document.ID {
		t.Fatalf("search result %+v", listed)
	}

	if err := repos.Documents.UpdateStatus(ctx, document.ID, domain.DocumentStatusSent); err != nil {
		t.Fatalf("update status: %v", err)
	}
	total, err := repos.Documents.Count(ctx, domain.DocumentListOptions{Status: domain.DocumentStatusSent})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 sent document got %d", total)
	}

	if err := repos.Documents.UpdateStatus(ctx, uuid.NewString(), domain.DocumentStatusSent); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentAuditLogRepository(t *testing.T) {
	repos, cleanup := setupRepositories(t)
	defer cleanup()
	ctx := context.Background()

	document := &domain.Document{Name: "Mahnung", Body: "..."}
	if err := repos.Documents.Create(ctx, document); err != nil {
		t.Fatalf("create document: %v", err)
	}

	for _, action := range []string{"document.created", "document.status_changed"} {
		entry := &domain.DocumentAuditLog{DocumentID: &document.ID, Action: action}
		if err := repos.DocumentAuditLog.Create(ctx, entry); err != nil {
			t.Fatalf("create audit entry: %v", err)
		}
	}

	entries, err := repos.DocumentAuditLog.ListRecent(ctx, document.ID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries got %d", len(entries))
	}
}

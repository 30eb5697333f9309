package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/infra/database"
)

// NewSQLRepositories builds the repository set over a *sql.DB.
func NewSQLRepositories(db *sql.DB, dialect database.Dialect) *domain.Repositories {
	return &domain.Repositories{
		Users:            &userRepository{db: db, dialect: dialect},
		CatalogEntries:   &catalogEntryRepository{db: db, dialect: dialect},
		TextBlocks:       &textBlockRepository{db: db, dialect: dialect},
		Templates:        &templateRepository{db: db, dialect: dialect},
		TemplateVersions: &templateVersionRepository{db: db, dialect: dialect},
		Documents:        &documentRepository{db: db, dialect: dialect},
		DocumentAuditLog: &documentAuditLogRepository{db: db, dialect: dialect},
	}
}

// ---- users ----

type userRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type userRow struct {
	id             string
	email          string
	hashedPassword string
	role           string
	status         string
	lastLoginAt    sql.NullTime
	createdAt      time.Time
	updatedAt      time.Time
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO users (id, email, hashed_password, role, status)
VALUES (%s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	role := user.Role
	if role == "" {
		role = "nur_lesen"
	}
	status := user.Status
	if status == "" {
		status = "active"
	}

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.HashedPassword, role, status)
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT id, email, hashed_password, role, status, last_login_at, created_at, updated_at
FROM users WHERE email = %s`, ph.Next())

	var row userRow
	err := r.db.QueryRowContext(ctx, query, email).Scan(&row.id, &row.email, &row.hashedPassword, &row.role, &row.status, &row.lastLoginAt, &row.createdAt, &row.updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	user := &domain.User{
		ID:             row.id,
		Email:          row.email,
		HashedPassword: row.hashedPassword,
		Role:           row.role,
		Status:         row.status,
		CreatedAt:      row.createdAt,
		UpdatedAt:      row.updatedAt,
	}
	if row.lastLoginAt.Valid {
		user.LastLoginAt = &row.lastLoginAt.Time
	}
	return user, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE users SET last_login_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = %s`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- catalog entries ----

type catalogEntryRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func (r *catalogEntryRepository) Create(ctx context.Context, entry *domain.CatalogEntry) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO catalog_entries (id, category, field, label, position)
VALUES (%s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	label := sql.NullString{}
	if entry.Label != nil {
		label = sql.NullString{String: *entry.Label, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, entry.ID, entry.Category, entry.Field, label, entry.Position)
	return err
}

func (r *catalogEntryRepository) ListAll(ctx context.Context) ([]*domain.CatalogEntry, error) {
	query := `SELECT id, category, field, label, position, created_at
FROM catalog_entries ORDER BY category, position, field`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.CatalogEntry
	for rows.Next() {
		var (
			entry domain.CatalogEntry
			label sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Category, &entry.Field, &label, &entry.Position, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if label.Valid {
			entry.Label = &label.String
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *catalogEntryRepository) Delete(ctx context.Context, entryID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`DELETE FROM catalog_entries WHERE id = %s`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, entryID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- text blocks ----

type textBlockRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type textBlockRow struct {
	id         string
	categoryID string
	title      string
	content    string
	position   int
	createdBy  sql.NullString
	createdAt  time.Time
	updatedAt  time.Time
}

func (row *textBlockRow) toDomain() *domain.TextBlock {
	block := &domain.TextBlock{
		ID:         row.id,
		CategoryID: row.categoryID,
		Title:      row.title,
		Content:    row.content,
		Position:   row.position,
		CreatedAt:  row.createdAt,
		UpdatedAt:  row.updatedAt,
	}
	if row.createdBy.Valid {
		block.CreatedBy = &row.createdBy.String
	}
	return block
}

const textBlockColumns = `id, category_id, title, content, position, created_by, created_at, updated_at`

func (r *textBlockRepository) Create(ctx context.Context, block *domain.TextBlock) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO text_blocks (id, category_id, title, content, position, created_by)
VALUES (%s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	createdBy := sql.NullString{}
	if block.CreatedBy != nil {
		createdBy = sql.NullString{String: *block.CreatedBy, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, block.ID, block.CategoryID, block.Title, block.Content, block.Position, createdBy)
	return err
}

func (r *textBlockRepository) GetByID(ctx context.Context, blockID string) (*domain.TextBlock, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM text_blocks WHERE id = %s`, textBlockColumns, ph.Next())

	var row textBlockRow
	err := r.db.QueryRowContext(ctx, query, blockID).Scan(&row.id, &row.categoryID, &row.title, &row.content, &row.position, &row.createdBy, &row.createdAt, &row.updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *textBlockRepository) ListByCategory(ctx context.Context, categoryID string) ([]*domain.TextBlock, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	// Position then creation time keeps presentation order stable.
	query := fmt.Sprintf(`SELECT %s FROM text_blocks WHERE category_id = %s ORDER BY position, created_at, id`, textBlockColumns, ph.Next())

	return r.queryBlocks(ctx, query, categoryID)
}

func (r *textBlockRepository) ListAll(ctx context.Context) ([]*domain.TextBlock, error) {
	query := fmt.Sprintf(`SELECT %s FROM text_blocks ORDER BY category_id, position, created_at, id`, textBlockColumns)
	return r.queryBlocks(ctx, query)
}

func (r *textBlockRepository) queryBlocks(ctx context.Context, query string, args ...any) ([]*domain.TextBlock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*domain.TextBlock
	for rows.Next() {
		var row textBlockRow
		if err := rows.Scan(&row.id, &row.categoryID, &row.title, &row.content, &row.position, &row.createdBy, &row.createdAt, &row.updatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, row.toDomain())
	}
	return blocks, rows.Err()
}

func (r *textBlockRepository) Update(ctx context.Context, blockID string, params domain.TextBlockUpdateParams) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	var (
		assignments []string
		args        []any
	)

	if params.HasTitle {
		assignments = append(assignments, fmt.Sprintf("title = %s", ph.Next()))
		args = append(args, nullableString(params.Title))
	}
	if params.HasContent {
		assignments = append(assignments, fmt.Sprintf("content = %s", ph.Next()))
		args = append(args, nullableString(params.Content))
	}
	if params.HasPosition {
		assignments = append(assignments, fmt.Sprintf("position = %s", ph.Next()))
		args = append(args, params.Position)
	}
	if len(assignments) == 0 {
		return nil
	}
	assignments = append(assignments, "updated_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf(`UPDATE text_blocks SET %s WHERE id = %s`, strings.Join(assignments, ", "), ph.Next())
	args = append(args, blockID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *textBlockRepository) Delete(ctx context.Context, blockID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`DELETE FROM text_blocks WHERE id = %s`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, blockID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- templates ----

type templateRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type templateRow struct {
	id              string
	name            string
	description     sql.NullString
	category        sql.NullString
	pageFormat      string
	requiredData    sql.NullString
	textblockSlots  sql.NullString
	activeVersionID sql.NullString
	body            sql.NullString
	status          string
	deletedAt       sql.NullTime
	createdBy       sql.NullString
	createdAt       time.Time
	updatedAt       time.Time
}

func (row *templateRow) toDomain() *domain.DocumentTemplate {
	template := &domain.DocumentTemplate{
		ID:         row.id,
		Name:       row.name,
		PageFormat: row.pageFormat,
		Status:     row.status,
		CreatedAt:  row.createdAt,
		UpdatedAt:  row.updatedAt,
	}
	if row.description.Valid {
		template.Description = &row.description.String
	}
	if row.category.Valid {
		template.Category = &row.category.String
	}
	if row.requiredData.Valid {
		template.RequiredData = json.RawMessage(row.requiredData.String)
	}
	if row.textblockSlots.Valid {
		template.TextblockSlots = json.RawMessage(row.textblockSlots.String)
	}
	if row.activeVersionID.Valid {
		template.ActiveVersionID = &row.activeVersionID.String
	}
	if row.body.Valid {
		template.Body = &row.body.String
	}
	if row.deletedAt.Valid {
		template.DeletedAt = &row.deletedAt.Time
	}
	if row.createdBy.Valid {
		template.CreatedBy = &row.createdBy.String
	}
	return template
}

const templateColumns = `id, name, description, category, page_format, required_data, textblock_slots, active_version_id, body, status, deleted_at, created_by, created_at, updated_at`

func scanTemplateRow(scanner interface{ Scan(...any) error }, row *templateRow) error {
	return scanner.Scan(&row.id, &row.name, &row.description, &row.category, &row.pageFormat, &row.requiredData, &row.textblockSlots, &row.activeVersionID, &row.body, &row.status, &row.deletedAt, &row.createdBy, &row.createdAt, &row.updatedAt)
}

func (r *templateRepository) Create(ctx context.Context, template *domain.DocumentTemplate) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO doc_templates (id, name, description, category, page_format, required_data, textblock_slots, active_version_id, body, created_by)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	pageFormat := template.PageFormat
	if pageFormat == "" {
		pageFormat = "A4"
	}

	_, err := r.db.ExecContext(ctx, query,
		template.ID,
		template.Name,
		nullableString(template.Description),
		nullableString(template.Category),
		pageFormat,
		nullableRaw(template.RequiredData),
		nullableRaw(template.TextblockSlots),
		nullableString(template.ActiveVersionID),
		nullableString(template.Body),
		nullableString(template.CreatedBy),
	)
	return err
}

func (r *templateRepository) GetByID(ctx context.Context, templateID string) (*domain.DocumentTemplate, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM doc_templates WHERE id = %s AND deleted_at IS NULL`, templateColumns, ph.Next())

	var row templateRow
	if err := scanTemplateRow(r.db.QueryRowContext(ctx, query, templateID), &row); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *templateRepository) GetByName(ctx context.Context, name string, includeDeleted bool) (*domain.DocumentTemplate, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM doc_templates WHERE name = %s`, templateColumns, ph.Next())
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	var row templateRow
	if err := scanTemplateRow(r.db.QueryRowContext(ctx, query, name), &row); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func buildTemplateFilter(ph *database.PlaceholderBuilder, opts domain.TemplateListOptions) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if !opts.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("name LIKE %s", ph.Next()))
		args = append(args, "%"+search+"%")
	}
	if category := strings.TrimSpace(opts.Category); category != "" {
		clauses = append(clauses, fmt.Sprintf("category = %s", ph.Next()))
		args = append(args, category)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *templateRepository) List(ctx context.Context, opts domain.TemplateListOptions) ([]*domain.DocumentTemplate, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	where, args := buildTemplateFilter(ph, opts)

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM doc_templates%s ORDER BY updated_at DESC, name LIMIT %s OFFSET %s`, templateColumns, where, ph.Next(), ph.Next())
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*domain.DocumentTemplate
	for rows.Next() {
		var row templateRow
		if err := scanTemplateRow(rows, &row); err != nil {
			return nil, err
		}
		templates = append(templates, row.toDomain())
	}
	return templates, rows.Err()
}

func (r *templateRepository) Count(ctx context.Context, opts domain.TemplateListOptions) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	where, args := buildTemplateFilter(ph, opts)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM doc_templates%s`, where)

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *templateRepository) Update(ctx context.Context, templateID string, params domain.TemplateUpdateParams) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	var (
		assignments []string
		args        []any
	)

	if params.HasName {
		assignments = append(assignments, fmt.Sprintf("name = %s", ph.Next()))
		args = append(args, nullableString(params.Name))
	}
	if params.HasDescription {
		assignments = append(assignments, fmt.Sprintf("description = %s", ph.Next()))
		args = append(args, nullableString(params.Description))
	}
	if params.HasCategory {
		assignments = append(assignments, fmt.Sprintf("category = %s", ph.Next()))
		args = append(args, nullableString(params.Category))
	}
	if params.HasPageFormat {
		assignments = append(assignments, fmt.Sprintf("page_format = %s", ph.Next()))
		args = append(args, nullableString(params.PageFormat))
	}
	if params.HasRequiredData {
		assignments = append(assignments, fmt.Sprintf("required_data = %s", ph.Next()))
		args = append(args, nullableString(params.RequiredData))
	}
	if params.HasTextblockSlots {
		assignments = append(assignments, fmt.Sprintf("textblock_slots = %s", ph.Next()))
		args = append(args, nullableString(params.TextblockSlots))
	}
	if len(assignments) == 0 {
		return nil
	}
	assignments = append(assignments, "updated_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf(`UPDATE doc_templates SET %s WHERE id = %s AND deleted_at IS NULL`, strings.Join(assignments, ", "), ph.Next())
	args = append(args, templateID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *templateRepository) UpdateActiveVersion(ctx context.Context, templateID string, versionID *string, body *string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE doc_templates SET active_version_id = %s, body = %s, updated_at = CURRENT_TIMESTAMP WHERE id = %s AND deleted_at IS NULL`, ph.Next(), ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, nullableString(versionID), nullableString(body), templateID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, templateID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE doc_templates SET status = 'deleted', deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = %s AND deleted_at IS NULL`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, templateID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *templateRepository) Restore(ctx context.Context, templateID string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE doc_templates SET status = 'draft', deleted_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = %s AND deleted_at IS NOT NULL`, ph.Next())

	result, err := r.db.ExecContext(ctx, query, templateID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- template versions ----

type templateVersionRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type templateVersionRow struct {
	id             string
	templateID     string
	versionNumber  int
	body           string
	requiredData   sql.NullString
	textblockSlots sql.NullString
	status         string
	metadata       sql.NullString
	createdBy      sql.NullString
	createdAt      time.Time
}

func (row *templateVersionRow) toDomain() *domain.TemplateVersion {
	version := &domain.TemplateVersion{
		ID:            row.id,
		TemplateID:    row.templateID,
		VersionNumber: row.versionNumber,
		Body:          row.body,
		Status:        row.status,
		CreatedAt:     row.createdAt,
	}
	if row.requiredData.Valid {
		version.RequiredData = json.RawMessage(row.requiredData.String)
	}
	if row.textblockSlots.Valid {
		version.TextblockSlots = json.RawMessage(row.textblockSlots.String)
	}
	if row.metadata.Valid {
		version.Metadata = json.RawMessage(row.metadata.String)
	}
	if row.createdBy.Valid {
		version.CreatedBy = &row.createdBy.String
	}
	return version
}

const templateVersionColumns = `id, template_id, version_number, body, required_data, textblock_slots, status, metadata, created_by, created_at`

func (r *templateVersionRepository) Create(ctx context.Context, version *domain.TemplateVersion) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO template_versions (id, template_id, version_number, body, required_data, textblock_slots, status, metadata, created_by)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	status := version.Status
	if status == "" {
		status = "draft"
	}

	_, err := r.db.ExecContext(ctx, query,
		version.ID,
		version.TemplateID,
		version.VersionNumber,
		version.Body,
		nullableRaw(version.RequiredData),
		nullableRaw(version.TextblockSlots),
		status,
		nullableRaw(version.Metadata),
		nullableString(version.CreatedBy),
	)
	return err
}

func (r *templateVersionRepository) GetByID(ctx context.Context, versionID string) (*domain.TemplateVersion, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM template_versions WHERE id = %s`, templateVersionColumns, ph.Next())

	var row templateVersionRow
	err := r.db.QueryRowContext(ctx, query, versionID).Scan(&row.id, &row.templateID, &row.versionNumber, &row.body, &row.requiredData, &row.textblockSlots, &row.status, &row.metadata, &row.createdBy, &row.createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *templateVersionRepository) ListByTemplate(ctx context.Context, templateID string, limit, offset int) ([]*domain.TemplateVersion, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM template_versions WHERE template_id = %s ORDER BY version_number DESC LIMIT %s OFFSET %s`, templateVersionColumns, ph.Next(), ph.Next(), ph.Next())

	rows, err := r.db.QueryContext(ctx, query, templateID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*domain.TemplateVersion
	for rows.Next() {
		var row templateVersionRow
		if err := rows.Scan(&row.id, &row.templateID, &row.versionNumber, &row.body, &row.requiredData, &row.textblockSlots, &row.status, &row.metadata, &row.createdBy, &row.createdAt); err != nil {
			return nil, err
		}
		versions = append(versions, row.toDomain())
	}
	return versions, rows.Err()
}

func (r *templateVersionRepository) GetLatestVersionNumber(ctx context.Context, templateID string) (int, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT COALESCE(MAX(version_number), 0) FROM template_versions WHERE template_id = %s`, ph.Next())

	var latest int
	if err := r.db.QueryRowContext(ctx, query, templateID).Scan(&latest); err != nil {
		return 0, err
	}
	return latest, nil
}

func (r *templateVersionRepository) GetPreviousVersion(ctx context.Context, templateID string, versionNumber int) (*domain.TemplateVersion, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM template_versions WHERE template_id = %s AND version_number < %s ORDER BY version_number DESC LIMIT 1`, templateVersionColumns, ph.Next(), ph.Next())

	var row templateVersionRow
	err := r.db.QueryRowContext(ctx, query, templateID, versionNumber).Scan(&row.id, &row.templateID, &row.versionNumber, &row.body, &row.requiredData, &row.textblockSlots, &row.status, &row.metadata, &row.createdBy, &row.createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// ---- documents ----

type documentRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

type documentRow struct {
	id                string
	templateID        sql.NullString
	templateVersionID sql.NullString
	name              string
	body              string
	status            string
	unresolvedTokens  sql.NullString
	usedBlocks        sql.NullString
	createdBy         sql.NullString
	createdAt         time.Time
	updatedAt         time.Time
}

func (row *documentRow) toDomain() *domain.Document {
	document := &domain.Document{
		ID:        row.id,
		Name:      row.name,
		Body:      row.body,
		Status:    row.status,
		CreatedAt: row.createdAt,
		UpdatedAt: row.updatedAt,
	}
	if row.templateID.Valid {
		document.TemplateID = &row.templateID.String
	}
	if row.templateVersionID.Valid {
		document.TemplateVersionID = &row.templateVersionID.String
	}
	if row.unresolvedTokens.Valid {
		document.UnresolvedTokens = json.RawMessage(row.unresolvedTokens.String)
	}
	if row.usedBlocks.Valid {
		document.UsedBlocks = json.RawMessage(row.usedBlocks.String)
	}
	if row.createdBy.Valid {
		document.CreatedBy = &row.createdBy.String
	}
	return document
}

const documentColumns = `id, template_id, template_version_id, name, body, status, unresolved_tokens, used_blocks, created_by, created_at, updated_at`

func (r *documentRepository) Create(ctx context.Context, document *domain.Document) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO documents (id, template_id, template_version_id, name, body, status, unresolved_tokens, used_blocks, created_by)
VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	status := document.Status
	if status == "" {
		status = domain.DocumentStatusCreated
	}

	_, err := r.db.ExecContext(ctx, query,
		document.ID,
		nullableString(document.TemplateID),
		nullableString(document.TemplateVersionID),
		document.Name,
		document.Body,
		status,
		nullableRaw(document.UnresolvedTokens),
		nullableRaw(document.UsedBlocks),
		nullableString(document.CreatedBy),
	)
	return err
}

func (r *documentRepository) GetByID(ctx context.Context, documentID string) (*domain.Document, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = %s`, documentColumns, ph.Next())

	var row documentRow
	err := r.db.QueryRowContext(ctx, query, documentID).Scan(&row.id, &row.templateID, &row.templateVersionID, &row.name, &row.body, &row.status, &row.unresolvedTokens, &row.usedBlocks, &row.createdBy, &row.createdAt, &row.updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func buildDocumentFilter(ph *database.PlaceholderBuilder, opts domain.DocumentListOptions) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if status := strings.TrimSpace(opts.Status); status != "" {
		clauses = append(clauses, fmt.Sprintf("status = %s", ph.Next()))
		args = append(args, status)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		clauses = append(clauses, fmt.Sprintf("name LIKE %s", ph.Next()))
		args = append(args, "%"+search+"%")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *documentRepository) List(ctx context.Context, opts domain.DocumentListOptions) ([]*domain.Document, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	where, args := buildDocumentFilter(ph, opts)

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM documents%s ORDER BY created_at DESC, id LIMIT %s OFFSET %s`, documentColumns, where, ph.Next(), ph.Next())
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*domain.Document
	for rows.Next() {
		var row documentRow
		if err := rows.Scan(&row.id, &row.templateID, &row.templateVersionID, &row.name, &row.body, &row.status, &row.unresolvedTokens, &row.usedBlocks, &row.createdBy, &row.createdAt, &row.updatedAt); err != nil {
			return nil, err
		}
		documents = append(documents, row.toDomain())
	}
	return documents, rows.Err()
}

func (r *documentRepository) Count(ctx context.Context, opts domain.DocumentListOptions) (int64, error) {
	ph := database.NewPlaceholderBuilder(r.dialect)
	where, args := buildDocumentFilter(ph, opts)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM documents%s`, where)

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, documentID, status string) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`UPDATE documents SET status = %s, updated_at = CURRENT_TIMESTAMP WHERE id = %s`, ph.Next(), ph.Next())

	result, err := r.db.ExecContext(ctx, query, status, documentID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- document audit log ----

type documentAuditLogRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func (r *documentAuditLogRepository) Create(ctx context.Context, entry *domain.DocumentAuditLog) error {
	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`INSERT INTO document_audit_log (id, document_id, template_id, action, payload, created_by)
VALUES (%s, %s, %s, %s, %s, %s)`, ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next(), ph.Next())

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		nullableString(entry.DocumentID),
		nullableString(entry.TemplateID),
		entry.Action,
		nullableRaw(entry.Payload),
		nullableString(entry.CreatedBy),
	)
	return err
}

func (r *documentAuditLogRepository) ListRecent(ctx context.Context, documentID string, limit int) ([]*domain.DocumentAuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ph := database.NewPlaceholderBuilder(r.dialect)
	query := fmt.Sprintf(`SELECT id, document_id, template_id, action, payload, created_by, created_at
FROM document_audit_log WHERE document_id = %s ORDER BY created_at DESC LIMIT %s`, ph.Next(), ph.Next())

	rows, err := r.db.QueryContext(ctx, query, documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.DocumentAuditLog
	for rows.Next() {
		var (
			entry      domain.DocumentAuditLog
			documentID sql.NullString
			templateID sql.NullString
			payload    sql.NullString
			createdBy  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &documentID, &templateID, &entry.Action, &payload, &createdBy, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if documentID.Valid {
			entry.DocumentID = &documentID.String
		}
		if templateID.Valid {
			entry.TemplateID = &templateID.String
		}
		if payload.Valid {
			entry.Payload = json.RawMessage(payload.String)
		}
		if createdBy.Valid {
			entry.CreatedBy = &createdBy.String
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// ---- helpers ----

func nullableString(val *string) sql.NullString {
	if val == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *val, Valid: true}
}

func nullableRaw(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

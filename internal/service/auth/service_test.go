package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fintutto/vermietify-docs/internal/authz"
	"github.com/fintutto/vermietify-docs/internal/config"
	"github.com/fintutto/vermietify-docs/internal/infra/database"
	"github.com/fintutto/vermietify-docs/internal/infra/repository"
	authutil "github.com/fintutto/vermietify-docs/pkg/auth"
)

func setupAuthService(t *testing.T) (*Service, func()) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_test_%s.db?mode=memory&cache=shared&_fk=1", uuid.NewString())
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

	repos := repository.NewSQLRepositories(db, database.NewDialect("sqlite"))
	svc := NewService(repos, config.AuthConfig{
		AccessTokenSecret:  "test-access-secret-test-access-secret",
		RefreshTokenSecret: "test-refresh-secret-test-refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
	})

	cleanup := func() { _ = db.Close() }
	return svc, cleanup
}

func TestRegisterAndLogin(t *testing.T) {
	svc, cleanup := setupAuthService(t)
	defer cleanup()
	ctx := context.Background()

	user, err := svc.Register(ctx, " Admin@Vermietify.DE ", "geheim-passwort", "administrator")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "admin@vermietify.de" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Role != authz.RoleAdministrator {
		t.Fatalf("role %q", user.Role)
	}

	tokens, loggedIn, err := svc.Login(ctx, "admin@vermietify.de", "geheim-passwort")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("wrong user: %+v", loggedIn)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", tokens)
	}

	claims, err := authutil.ParseToken(tokens.AccessToken, "test-access-secret-test-access-secret")
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.TokenType != "access" || claims.UserID != user.ID || claims.Role != authz.RoleAdministrator {
		t.Fatalf("claims %+v", claims)
	}
}

func TestRegisterUnknownRoleFallsBackToReadOnly(t *testing.T) {
	svc, cleanup := setupAuthService(t)
	defer cleanup()

	user, err := svc.Register(context.Background(), "user@vermietify.de", "geheim-passwort", "superuser")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != authz.RoleNurLesen {
		t.Fatalf("expected nur_lesen got %q", user.Role)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, cleanup := setupAuthService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "user@vermietify.de", "geheim-passwort", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "USER@vermietify.de", "anderes-passwort", ""); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if _, err := svc.Register(ctx, "", "geheim-passwort", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, cleanup := setupAuthService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "user@vermietify.de", "geheim-passwort", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "user@vermietify.de", "falsch"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "niemand@vermietify.de", "geheim-passwort"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, cleanup := setupAuthService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "user@vermietify.de", "geheim-passwort", "sachbearbeiter"); err != nil {
		t.Fatalf("register: %v", err)
	}
	tokens, _, err := svc.Login(ctx, "user@vermietify.de", "geheim-passwort")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, user, err := svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if user.Email != "user@vermietify.de" {
		t.Fatalf("refresh user %+v", user)
	}
	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Fatalf("empty rotated tokens")
	}

	// An access token is not accepted as a refresh token.
	if _, _, err := svc.Refresh(ctx, tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, _, err := svc.Refresh(ctx, "kein-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
}

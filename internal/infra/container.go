package infra

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fintutto/vermietify-docs/internal/authz"
	"github.com/fintutto/vermietify-docs/internal/catalog"
	"github.com/fintutto/vermietify-docs/internal/config"
	"github.com/fintutto/vermietify-docs/internal/domain"
	"github.com/fintutto/vermietify-docs/internal/infra/cache"
	"github.com/fintutto/vermietify-docs/internal/infra/database"
	"github.com/fintutto/vermietify-docs/internal/infra/repository"
	"github.com/fintutto/vermietify-docs/internal/infra/session"
	authutil "github.com/fintutto/vermietify-docs/pkg/auth"
)

// Container holds shared application resources and owns their shutdown.
type Container struct {
	DB      *sql.DB
	Redis   *redis.Client
	Repos   *domain.Repositories
	Catalog *catalog.Store
	Runs    session.RunStore
}

// Initialize builds all dependencies and returns a cleanup function.
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, func(context.Context) error, error) {
	container := &Container{}

	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	container.DB = db

	dialect := database.NewDialect(cfg.Database.Driver)
	container.Repos = repository.NewSQLRepositories(db, dialect)

	redisClient, err := cache.New(ctx, cfg.Redis, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	container.Redis = redisClient
	container.Runs = session.NewRedisRunStore(redisClient, cfg.Workflow.SessionTTL)

	catalogStore, err := loadCatalog(ctx, container.Repos.CatalogEntries, logger)
	if err != nil {
		_ = db.Close()
		_ = redisClient.Close()
		return nil, nil, err
	}
	container.Catalog = catalogStore

	if err := ensureDefaultAdmin(ctx, cfg, container.Repos, logger); err != nil {
		_ = db.Close()
		_ = redisClient.Close()
		return nil, nil, err
	}

	cleanup := func(ctx context.Context) error {
		var errs error
		if container.DB != nil {
			if err := container.DB.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if container.Redis != nil {
			if err := container.Redis.Close(); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		return errs
	}

	return container, cleanup, nil
}

// loadCatalog seeds the built-in placeholder catalog on first start and
// publishes the stored entries as an immutable snapshot.
func loadCatalog(ctx context.Context, repo domain.CatalogEntryRepository, logger *zap.Logger) (*catalog.Store, error) {
	stored, err := repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if len(stored) == 0 {
		defaults := catalog.DefaultEntries()
		for position, entry := range defaults {
			label := entry.Label
			record := &domain.CatalogEntry{
				ID:       uuid.NewString(),
				Category: entry.Category,
				Field:    entry.Field,
				Position: position,
			}
			if label != "" {
				record.Label = &label
			}
			if err := repo.Create(ctx, record); err != nil {
				return nil, err
			}
		}
		logger.Info("seeded placeholder catalog", zap.Int("entries", len(defaults)))
		stored, err = repo.ListAll(ctx)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]catalog.Entry, 0, len(stored))
	for _, record := range stored {
		entry := catalog.Entry{Category: record.Category, Field: record.Field}
		if record.Label != nil {
			entry.Label = *record.Label
		}
		entries = append(entries, entry)
	}

	snapshot, err := catalog.NewSnapshot(entries)
	if err != nil {
		return nil, err
	}
	return catalog.NewStore(snapshot), nil
}

func ensureDefaultAdmin(ctx context.Context, cfg *config.Config, repos *domain.Repositories, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Seed.Admin.Email))
	password := cfg.Seed.Admin.Password
	role := authz.NormalizeRole(cfg.Seed.Admin.Role)

	if email == "" || password == "" {
		logger.Info("admin seeding skipped; seed admin email or password not set")
		return nil
	}

	if _, err := repos.Users.GetByEmail(ctx, email); err == nil {
		logger.Info("seed admin exists", zap.String("email", email))
		return nil
	} else if err != domain.ErrNotFound {
		return err
	}

	if !authz.ValidRole(role) {
		role = authz.RoleAdministrator
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		Role:           role,
		Status:         "active",
	}
	if err := repos.Users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("seed admin created", zap.String("email", email), zap.String("role", role))
	return nil
}

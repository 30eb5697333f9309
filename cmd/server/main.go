package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/fintutto/vermietify-docs/internal/app"
	"github.com/fintutto/vermietify-docs/internal/config"
	"github.com/fintutto/vermietify-docs/internal/infra"
	"github.com/fintutto/vermietify-docs/internal/middleware"
	httpserver "github.com/fintutto/vermietify-docs/internal/server/http"
	authsvc "github.com/fintutto/vermietify-docs/internal/service/auth"
	catalogsvc "github.com/fintutto/vermietify-docs/internal/service/catalog"
	documentsvc "github.com/fintutto/vermietify-docs/internal/service/document"
	templatesvc "github.com/fintutto/vermietify-docs/internal/service/template"
	textblocksvc "github.com/fintutto/vermietify-docs/internal/service/textblock"
	"github.com/fintutto/vermietify-docs/internal/workflow"
	"github.com/fintutto/vermietify-docs/pkg/logger"
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigDir, opts.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := infra.Initialize(ctx, cfg, log)
	if err != nil {
		log.Fatal("initialize dependencies", zap.Error(err))
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			log.Error("cleanup failed", zap.Error(err))
		}
	}()

	authService := authsvc.NewService(container.Repos, cfg.Auth)
	catalogService := catalogsvc.NewService(container.Repos, container.Catalog, log)
	templateService := templatesvc.NewService(container.Repos, container.Catalog)
	textblockService := textblocksvc.NewService(container.Repos, container.Catalog)

	registry := workflow.NewRegistry()
	validator := workflow.NewValidator(registry)
	documentService := documentsvc.NewService(container.Repos, container.Catalog, container.Runs, validator, log)
	templateService.RegisterWorkflowRules(registry)
	documentService.RegisterWorkflowRules(registry)

	middlewares := []gin.HandlerFunc{
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(cfg.Server.SecurityHeaders),
		middleware.LimitRequestBody(cfg.Server.MaxRequestBody),
		cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORS.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: cfg.Server.CORS.AllowCredentials,
		}),
	}

	if cfg.Server.RateLimit.Enabled {
		store, err := sredis.NewStoreWithOptions(container.Redis, limiter.StoreOptions{
			Prefix: "vermietify:ratelimit",
		})
		if err != nil {
			log.Fatal("initialize rate limit store", zap.Error(err))
		}
		l := limiter.New(store, limiter.Rate{
			Period: cfg.Server.RateLimit.Period,
			Limit:  cfg.Server.RateLimit.Limit,
		})
		middlewares = append(middlewares, middleware.RateLimit(l, middleware.KeyByUserOrIP()))
	}

	engine := httpserver.NewEngine(cfg, log, httpserver.RouterOptions{
		Middlewares: middlewares,
		HealthDeps: &httpserver.HealthDependencies{
			DB:    container.DB,
			Redis: container.Redis,
		},
		AuthHandler:      httpserver.NewAuthHandler(authService),
		TemplateHandler:  httpserver.NewTemplateHandler(templateService),
		TextBlockHandler: httpserver.NewTextBlockHandler(textblockService),
		CatalogHandler:   httpserver.NewCatalogHandler(catalogService),
		DocumentHandler:  httpserver.NewDocumentHandler(documentService),
	})

	application := app.New(cfg, log, engine)

	if err := application.Run(ctx); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

// options holds the command line flags.
type options struct {
	ConfigDir string
	Env       string
}

func parseFlags() options {
	var opts options
	pflag.StringVar(&opts.ConfigDir, "config-dir", "./config", "configuration directory")
	pflag.StringVar(&opts.Env, "env", "", "override VERMIETIFY_ENV")
	pflag.Parse()
	return opts
}

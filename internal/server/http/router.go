package http

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fintutto/vermietify-docs/internal/authz"
	"github.com/fintutto/vermietify-docs/internal/config"
	"github.com/fintutto/vermietify-docs/internal/infra/cache"
	"github.com/fintutto/vermietify-docs/internal/infra/database"
	"github.com/fintutto/vermietify-docs/internal/middleware"
)

// HealthDependencies bundles what the health endpoint probes.
type HealthDependencies struct {
	DB    *sql.DB
	Redis *redis.Client
}

// RouterOptions customizes router construction, e.g. to inject middleware.
type RouterOptions struct {
	Middlewares      []gin.HandlerFunc
	HealthHandler    gin.HandlerFunc
	HealthDeps       *HealthDependencies
	AuthHandler      *AuthHandler
	TemplateHandler  *TemplateHandler
	TextBlockHandler *TextBlockHandler
	CatalogHandler   *CatalogHandler
	DocumentHandler  *DocumentHandler
}

// NewEngine initializes the Gin engine and mounts all routes.
func NewEngine(cfg *config.Config, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	ginMode := gin.DebugMode
	if cfg.App.Env == "production" {
		ginMode = gin.ReleaseMode
	}
	gin.SetMode(ginMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	for _, mw := range opts.Middlewares {
		if mw != nil {
			engine.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler(cfg, opts.HealthDeps)
	}
	engine.GET("/healthz", healthHandler)

	api := engine.Group("/api/v1")
	if opts.AuthHandler != nil {
		opts.AuthHandler.RegisterRoutes(api.Group("/auth"))
	}

	guard := middleware.AuthGuard(cfg.Auth.AccessTokenSecret)

	if opts.TemplateHandler != nil {
		templates := api.Group("/templates")
		templates.Use(guard)

		templates.GET("", opts.TemplateHandler.ListTemplates)
		templates.GET("/:id", opts.TemplateHandler.GetTemplate)
		templates.GET("/:id/versions", opts.TemplateHandler.ListVersions)
		templates.GET("/:id/versions/:versionId/diff", opts.TemplateHandler.DiffVersion)

		create := templates.Group("")
		create.Use(middleware.RequireCapability(authz.CapTemplatesCreate))
		create.POST("", opts.TemplateHandler.CreateTemplate)

		edit := templates.Group("")
		edit.Use(middleware.RequireCapability(authz.CapTemplatesEdit))
		edit.PUT("/:id", opts.TemplateHandler.UpdateTemplate)
		edit.PATCH("/:id", opts.TemplateHandler.UpdateTemplate)
		edit.POST("/:id/versions", opts.TemplateHandler.CreateVersion)
		edit.POST("/:id/versions/:versionId/activate", opts.TemplateHandler.SetActiveVersion)
		edit.DELETE("/:id", opts.TemplateHandler.DeleteTemplate)
	}

	if opts.TextBlockHandler != nil {
		blocks := api.Group("/textblocks")
		blocks.Use(guard)

		blocks.GET("", opts.TextBlockHandler.ListBlocks)
		blocks.GET("/:id", opts.TextBlockHandler.GetBlock)

		manage := blocks.Group("")
		manage.Use(middleware.RequireCapability(authz.CapTextblocksManage))
		manage.POST("", opts.TextBlockHandler.CreateBlock)
		manage.PUT("/:id", opts.TextBlockHandler.UpdateBlock)
		manage.PATCH("/:id", opts.TextBlockHandler.UpdateBlock)
		manage.DELETE("/:id", opts.TextBlockHandler.DeleteBlock)
	}

	if opts.CatalogHandler != nil {
		catalog := api.Group("/catalog")
		catalog.Use(guard)

		catalog.GET("/categories", opts.CatalogHandler.ListCategories)
		catalog.GET("/entries", opts.CatalogHandler.ListEntries)

		manage := catalog.Group("")
		manage.Use(middleware.RequireCapability(authz.CapCatalogManage))
		manage.POST("/entries", opts.CatalogHandler.AddEntry)
		manage.DELETE("/entries/:id", opts.CatalogHandler.DeleteEntry)
		manage.POST("/reload", opts.CatalogHandler.Reload)
	}

	if opts.DocumentHandler != nil {
		runs := api.Group("/workflow/runs")
		runs.Use(guard)
		runs.Use(middleware.RequireCapability(authz.CapDocumentsCreate))

		runs.POST("", opts.DocumentHandler.StartRun)
		runs.GET("/:id", opts.DocumentHandler.GetRun)
		runs.POST("/:id/advance", opts.DocumentHandler.AdvanceRun)
		runs.POST("/:id/rollback", opts.DocumentHandler.RollbackRun)
		runs.POST("/:id/abandon", opts.DocumentHandler.AbandonRun)
		runs.GET("/:id/preview", opts.DocumentHandler.PreviewRun)

		documents := api.Group("/documents")
		documents.Use(guard)

		documents.GET("", opts.DocumentHandler.ListDocuments)
		documents.GET("/:id", opts.DocumentHandler.GetDocument)
		documents.GET("/:id/audit", opts.DocumentHandler.AuditTrail)

		edit := documents.Group("")
		edit.Use(middleware.RequireCapability(authz.CapDocumentsEdit))
		edit.POST("/:id/status", opts.DocumentHandler.UpdateStatus)
	}

	logger.Info("http router ready", zap.String("env", cfg.App.Env))

	return engine
}

func defaultHealthHandler(cfg *config.Config, deps *HealthDependencies) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		httpStatus := http.StatusOK
		result := gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"env":     cfg.App.Env,
		}

		if deps != nil {
			dependencies := gin.H{}
			if deps.DB != nil {
				if err := database.Health(ctx.Request.Context(), deps.DB); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["database"] = gin.H{"status": "error", "error": err.Error()}
				} else {
					dependencies["database"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["database"] = gin.H{"status": "missing"}
			}

			if deps.Redis != nil {
				if err := cache.Health(ctx.Request.Context(), deps.Redis); err != nil {
					httpStatus = http.StatusServiceUnavailable
					result["status"] = "degraded"
					dependencies["redis"] = gin.H{"status": "error", "error": err.Error()}
				} else {
					dependencies["redis"] = gin.H{"status": "ok"}
				}
			} else {
				dependencies["redis"] = gin.H{"status": "missing"}
			}

			result["dependencies"] = dependencies
		}

		ctx.JSON(httpStatus, result)
	}
}

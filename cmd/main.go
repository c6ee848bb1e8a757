package main

import (
	"net/http"

	"workspace-service/internal/handler"
	mid "workspace-service/internal/middleware"
	"workspace-service/pkg/config"
	"workspace-service/pkg/database"
	"workspace-service/pkg/jwtutil"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (reads .env when present)
	appConfig, err := config.Load("workspace-service")
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting workspace-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&jwtutil.Config{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
	})
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	err = database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Workspace API routes - auth middleware validates the bearer token and
	// extracts the owner UID
	workspaceAPI := e.Group("/api/workspaces", mid.AuthMiddleware)
	workspaceAPI.GET("", handler.ListWorkspaces)
	workspaceAPI.POST("", handler.CreateWorkspace)
	workspaceAPI.POST("/templates/apply", handler.ApplyTemplates)
	workspaceAPI.POST("/import", handler.ImportWorkspace)
	workspaceAPI.GET("/:workspace_id", handler.GetWorkspace)
	workspaceAPI.PATCH("/:workspace_id", handler.UpdateWorkspace)
	workspaceAPI.DELETE("/:workspace_id", handler.DeleteWorkspace)
	workspaceAPI.GET("/:workspace_id/export", handler.ExportWorkspace)
	workspaceAPI.PATCH("/:workspace_id/enabled_environments", handler.UpdateEnabledEnvironments)

	// Artifact routes nested under a workspace
	workspaceAPI.GET("/:workspace_id/artifacts", handler.ListArtifacts)
	workspaceAPI.POST("/:workspace_id/artifacts", handler.CreateArtifact)
	workspaceAPI.POST("/:workspace_id/artifacts/bulk_create", handler.BulkCreate)
	workspaceAPI.GET("/:workspace_id/artifacts/:id", handler.GetArtifact)
	workspaceAPI.PATCH("/:workspace_id/artifacts/:id", handler.UpdateArtifact)
	workspaceAPI.DELETE("/:workspace_id/artifacts/:id", handler.DeleteArtifact)
	workspaceAPI.GET("/:workspace_id/artifacts/:id/reveal_value", handler.RevealValue)
	workspaceAPI.POST("/:workspace_id/artifacts/:id/duplicate_to_environment", handler.DuplicateToEnvironment)

	// Tag routes nested under a workspace
	workspaceAPI.GET("/:workspace_id/tags", handler.ListTags)
	workspaceAPI.POST("/:workspace_id/tags", handler.CreateTag)
	workspaceAPI.PATCH("/:workspace_id/tags/:id", handler.UpdateTag)
	workspaceAPI.DELETE("/:workspace_id/tags/:id", handler.DeleteTag)
	workspaceAPI.DELETE("/:workspace_id/tags/bulk_delete", handler.BulkDeleteTags)

	// Cross-workspace views
	searchAPI := e.Group("/api", mid.AuthMiddleware)
	searchAPI.GET("/search/artifacts", handler.GlobalArtifactSearch)
	searchAPI.GET("/docs", handler.GlobalDocLinks)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}

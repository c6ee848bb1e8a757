package handler

import (
	"net/http"
	"time"

	"workspace-service/internal/model"
	"workspace-service/pkg/database"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RevealValue returns the plaintext value of an environment variable. This
// is the only endpoint that ever ships the stored value over the wire.
func RevealValue(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	artifact, ok := findWorkspaceArtifact(c, workspace)
	if !ok {
		return nil
	}

	if artifact.Kind != model.KindEnvVar {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Not an environment variable",
		})
	}

	prometheus.RecordArtifactOperation("reveal", artifact.Kind)
	log.Info("Environment variable revealed",
		zap.Uint("artifact_id", artifact.ID),
		zap.String("key", artifact.Key))
	return c.JSON(http.StatusOK, echo.Map{
		"id":          artifact.ID,
		"workspace":   artifact.WorkspaceID,
		"key":         artifact.Key,
		"value":       artifact.Value,
		"environment": artifact.Environment,
		"updated_at":  artifact.UpdatedAt,
	})
}

// DuplicateToEnvironment copies an artifact into another environment of the
// same workspace. The target slug must match exactly; no case folding here.
func DuplicateToEnvironment(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	artifact, ok := findWorkspaceArtifact(c, workspace)
	if !ok {
		return nil
	}

	var body struct {
		Environment string `json:"environment"`
	}
	if err := c.Bind(&body); err != nil || body.Environment == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Target environment is required",
		})
	}
	if !model.IsValidEnvironment(body.Environment) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid environment. Must be DEV, STAGING, or PROD",
		})
	}

	db := database.GetDB()
	target := body.Environment

	exists, err := artifactIdentityExists(db, workspace.ID, artifact.Kind, artifact.PrimaryIdentifier(), target, 0)
	if err != nil {
		log.Error("Failed to check duplicate target", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to duplicate artifact",
		})
	}
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": duplicateConflictMessage(artifact, target),
		})
	}

	clone := model.Artifact{
		WorkspaceID: workspace.ID,
		Kind:        artifact.Kind,
		Environment: target,
		Key:         artifact.Key,
		Value:       artifact.Value,
		Title:       artifact.Title,
		Content:     artifact.Content,
		URL:         artifact.URL,
		Notes:       artifact.Notes,
		Metadata:    artifact.Metadata,
	}
	clone.WorkspaceEnvID = resolveWorkspaceEnv(db, workspace.ID, target)

	// Tags stay behind; a copy starts untagged in its new environment.
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&clone).Error; err != nil {
		log.Error("Failed to duplicate artifact",
			zap.Uint("artifact_id", artifact.ID),
			zap.String("target_environment", target),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to duplicate artifact",
		})
	}

	clone.Workspace = workspace

	prometheus.RecordArtifactOperation("duplicate", clone.Kind)
	log.Info("Artifact duplicated to environment",
		zap.Uint("source_id", artifact.ID),
		zap.Uint("copy_id", clone.ID),
		zap.String("target_environment", target))
	return c.JSON(http.StatusCreated, artifactResponse(&clone))
}

func duplicateConflictMessage(a *model.Artifact, target string) string {
	field := "title"
	if a.Kind == model.KindEnvVar {
		field = "key"
	}
	return "An artifact with " + field + " '" + a.PrimaryIdentifier() + "' already exists in " + target + " environment"
}

// BulkCreate creates many artifacts in one request. Items are processed
// independently: valid ones are created, invalid ones are reported with
// their position in the input array.
func BulkCreate(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	var reqs []ArtifactRequest
	if err := c.Bind(&reqs); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Expected an array of artifact data",
		})
	}

	db := database.GetDB()
	created := make([]echo.Map, 0, len(reqs))
	itemErrors := make([]echo.Map, 0)

	defer prometheus.TrackDBOperation("insert")(time.Now())

	for i := range reqs {
		artifact, fieldErrs, err := createArtifactInWorkspace(db, workspace, &reqs[i])
		if err != nil {
			log.Error("Bulk create failed",
				zap.Uint("workspace_id", workspace.ID),
				zap.Int("index", i),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to create artifacts",
			})
		}
		if fieldErrs != nil {
			itemErrors = append(itemErrors, echo.Map{
				"index":  i,
				"errors": fieldErrs,
			})
			continue
		}
		prometheus.RecordArtifactOperation("create", artifact.Kind)
		created = append(created, artifactResponse(artifact))
	}

	status := http.StatusCreated
	if len(created) == 0 {
		status = http.StatusBadRequest
	}

	resp := echo.Map{
		"created":       created,
		"created_count": len(created),
		"error_count":   len(itemErrors),
	}
	if len(itemErrors) > 0 {
		resp["errors"] = itemErrors
	}

	log.Info("Bulk artifact create finished",
		zap.Uint("workspace_id", workspace.ID),
		zap.Int("created", len(created)),
		zap.Int("failed", len(itemErrors)))
	return c.JSON(status, resp)
}

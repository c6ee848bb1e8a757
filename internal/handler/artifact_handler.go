package handler

import (
	"net/http"
	"strings"
	"time"

	"workspace-service/internal/model"
	"workspace-service/pkg/database"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListArtifacts handles retrieving a workspace's artifacts with optional
// kind, environment, and search filtering. Most recently updated first.
func ListArtifacts(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	db := database.GetDB()
	query := db.Where("workspace_id = ?", workspace.ID).
		Preload("Tags").
		Preload("WorkspaceEnv.EnvironmentType")

	if kind := c.QueryParam("kind"); kind != "" {
		query = query.Where("kind = ?", kind)
		log.Info("Filtering artifacts by kind", zap.String("kind", kind))
	}

	// Environment filter prefers the workspace-environment join; the
	// denormalized slug column covers rows created before the join existed.
	if env := c.QueryParam("environment"); env != "" {
		joined := db.Model(&model.WorkspaceEnvironment{}).
			Select("workspace_environments.id").
			Joins("JOIN environment_types ON environment_types.id = workspace_environments.environment_type_id").
			Where("environment_types.slug = ?", env)
		query = query.Where("(workspace_env_id IN (?) OR environment = ?)", joined, env)
		log.Info("Filtering artifacts by environment", zap.String("environment", env))
	}

	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"(LOWER(key) LIKE ? OR LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(notes) LIKE ? OR LOWER(url) LIKE ?)",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var artifacts []model.Artifact
	result := query.Order("updated_at DESC").Find(&artifacts)
	if result.Error != nil {
		log.Error("Failed to list artifacts",
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve artifacts",
		})
	}

	responses := make([]echo.Map, 0, len(artifacts))
	for i := range artifacts {
		artifacts[i].Workspace = workspace
		responses = append(responses, artifactResponse(&artifacts[i]))
	}

	log.Info("Artifacts retrieved successfully",
		zap.Uint("workspace_id", workspace.ID),
		zap.Int("count", len(responses)))
	return c.JSON(http.StatusOK, responses)
}

// GetArtifact handles retrieving a single artifact by ID
func GetArtifact(c echo.Context) error {
	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	artifact, ok := findWorkspaceArtifact(c, workspace)
	if !ok {
		return nil
	}

	return c.JSON(http.StatusOK, artifactResponse(artifact))
}

// CreateArtifact handles creating a new artifact in a workspace
func CreateArtifact(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	var req ArtifactRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	artifact, fieldErrs, err := createArtifactInWorkspace(database.GetDB(), workspace, &req)
	if err != nil {
		log.Error("Failed to create artifact",
			zap.Uint("workspace_id", workspace.ID),
			zap.String("kind", req.Kind),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create artifact",
		})
	}
	if fieldErrs != nil {
		log.Warn("Artifact validation failed",
			zap.Uint("workspace_id", workspace.ID),
			zap.String("kind", req.Kind))
		return c.JSON(http.StatusBadRequest, fieldErrs)
	}

	prometheus.RecordArtifactOperation("create", artifact.Kind)
	log.Info("Artifact created successfully",
		zap.Uint("artifact_id", artifact.ID),
		zap.String("kind", artifact.Kind),
		zap.String("identifier", artifact.PrimaryIdentifier()))
	return c.JSON(http.StatusCreated, artifactResponse(artifact))
}

// UpdateArtifact handles partial updates of an existing artifact. The kind
// discriminant is immutable; only fields relevant to the stored kind are
// applied. An empty ENV_VAR value means "keep the stored value".
func UpdateArtifact(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	artifact, ok := findWorkspaceArtifact(c, workspace)
	if !ok {
		return nil
	}

	var req ArtifactRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data",
			zap.Uint("artifact_id", artifact.ID),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	if errs := req.sanitize(); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	db := database.GetDB()

	if req.Environment != "" {
		env := strings.ToUpper(req.Environment)
		if !model.IsValidEnvironment(env) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"environment": "Invalid environment. Must be DEV, STAGING, or PROD",
			})
		}
		if env != artifact.Environment {
			artifact.Environment = env
			artifact.WorkspaceEnvID = resolveWorkspaceEnv(db, workspace.ID, env)
			artifact.WorkspaceEnv = nil
		}
	}

	if req.Notes != nil {
		artifact.Notes = *req.Notes
	}
	if req.Metadata != nil {
		artifact.Metadata = req.Metadata
	}

	switch artifact.Kind {
	case model.KindEnvVar:
		if req.Key != nil {
			artifact.Key = *req.Key
		}
		// Clients send an empty value when they never revealed it; treat
		// that as "no change" instead of wiping the secret.
		if req.Value != nil && *req.Value != "" {
			artifact.Value = *req.Value
		}
	case model.KindPrompt:
		if req.Title != nil {
			artifact.Title = *req.Title
		}
		if req.Content != nil {
			artifact.Content = *req.Content
		}
	case model.KindDocLink:
		if req.Title != nil {
			artifact.Title = *req.Title
		}
		if req.URL != nil {
			artifact.URL = *req.URL
		}
		if req.Label != nil {
			if artifact.Metadata == nil {
				artifact.Metadata = model.Metadata{}
			}
			artifact.Metadata["label"] = strings.TrimSpace(*req.Label)
		}
	}

	if err := artifact.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, err)
	}

	exists, err := artifactIdentityExists(db, workspace.ID, artifact.Kind, artifact.PrimaryIdentifier(), artifact.Environment, artifact.ID)
	if err != nil {
		log.Error("Failed to check artifact uniqueness", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update artifact",
		})
	}
	if exists {
		field := identityColumn(artifact.Kind)
		return c.JSON(http.StatusBadRequest, echo.Map{
			field: identityConflictMessage(artifact.Kind, artifact.PrimaryIdentifier(), artifact.Environment),
		})
	}

	var tags []model.Tag
	if req.Tags != nil {
		var fieldErrs error
		tags, fieldErrs, err = loadWorkspaceTags(db, workspace.ID, *req.Tags)
		if err != nil {
			log.Error("Failed to load tags", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to update artifact",
			})
		}
		if fieldErrs != nil {
			return c.JSON(http.StatusBadRequest, fieldErrs)
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(artifact).Error; err != nil {
			return err
		}
		if req.Tags != nil {
			if err := tx.Where("artifact_id = ?", artifact.ID).Delete(&model.ArtifactTag{}).Error; err != nil {
				return err
			}
			for _, tag := range tags {
				join := model.ArtifactTag{ArtifactID: artifact.ID, TagID: tag.ID}
				if err := tx.Create(&join).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update artifact",
			zap.Uint("artifact_id", artifact.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update artifact",
		})
	}

	if req.Tags != nil {
		artifact.Tags = tags
	}

	prometheus.RecordArtifactOperation("update", artifact.Kind)
	log.Info("Artifact updated successfully",
		zap.Uint("artifact_id", artifact.ID),
		zap.String("kind", artifact.Kind))
	return c.JSON(http.StatusOK, artifactResponse(artifact))
}

// DeleteArtifact handles deleting an artifact. Tag join rows go with it;
// the tags themselves stay.
func DeleteArtifact(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	artifact, ok := findWorkspaceArtifact(c, workspace)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("artifact_id = ?", artifact.ID).Delete(&model.ArtifactTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Artifact{}, artifact.ID).Error
	})
	if err != nil {
		log.Error("Failed to delete artifact",
			zap.Uint("artifact_id", artifact.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete artifact",
		})
	}

	prometheus.RecordArtifactOperation("delete", artifact.Kind)
	log.Info("Artifact deleted successfully",
		zap.Uint("artifact_id", artifact.ID),
		zap.String("kind", artifact.Kind))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Artifact deleted successfully",
	})
}

// findWorkspaceArtifact loads the :id artifact scoped to the workspace.
// On failure the 404 response is already written.
func findWorkspaceArtifact(c echo.Context, workspace *model.Workspace) (*model.Artifact, bool) {
	id := c.Param("id")

	var artifact model.Artifact
	result := database.GetDB().
		Preload("Tags").
		Preload("WorkspaceEnv.EnvironmentType").
		Where("workspace_id = ?", workspace.ID).
		First(&artifact, id)
	if result.Error != nil {
		logger.FromContext(c).Warn("Artifact not found",
			zap.String("artifact_id", id),
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(result.Error))
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "Artifact not found"})
		return nil, false
	}

	artifact.Workspace = workspace
	return &artifact, true
}

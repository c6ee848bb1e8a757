package handler

import (
	"net/http"
	"time"

	"workspace-service/internal/model"
	"workspace-service/internal/validation"
	"workspace-service/pkg/database"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkspaceRequest defines the structure for workspace creation/update requests
type WorkspaceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ListWorkspaces handles retrieving all workspaces owned by the caller
func ListWorkspaces(c echo.Context) error {
	log := logger.FromContext(c)

	uid, ok := requireOwnerUID(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var workspaces []model.Workspace
	result := database.GetDB().
		Where("owner_uid = ?", uid).
		Order("updated_at DESC, name ASC").
		Find(&workspaces)
	if result.Error != nil {
		log.Error("Failed to list workspaces", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve workspaces",
		})
	}

	db := database.GetDB()
	responses := make([]echo.Map, 0, len(workspaces))
	for i := range workspaces {
		// The listing keeps enabled_environments empty; clients fetch the
		// detail view when they need it.
		responses = append(responses, workspaceResponse(db, &workspaces[i], false))
	}

	log.Info("Workspaces retrieved successfully",
		zap.String("owner_uid", uid),
		zap.Int("count", len(responses)))
	return c.JSON(http.StatusOK, responses)
}

// CreateWorkspace handles creating a new workspace with all environments
// enabled from the start
func CreateWorkspace(c echo.Context) error {
	log := logger.FromContext(c)

	uid, ok := requireOwnerUID(c)
	if !ok {
		return nil
	}

	var req WorkspaceRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	name, err := validation.ValidateWorkspaceName(strOrEmpty(req.Name))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"name": err.Error()})
	}

	db := database.GetDB()

	// Check if a workspace with this name already exists for the owner
	var count int64
	if err := db.Model(&model.Workspace{}).
		Where("owner_uid = ? AND name = ?", uid, name).
		Count(&count).Error; err != nil {
		log.Error("Failed to check workspace name", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create workspace",
		})
	}
	if count > 0 {
		log.Warn("Workspace name already exists",
			zap.String("owner_uid", uid),
			zap.String("name", name))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "A workspace with this name already exists",
		})
	}

	workspace := model.Workspace{
		Name:        name,
		Description: strOrEmpty(req.Description),
		OwnerUID:    uid,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		return enableAllEnvironments(tx, workspace.ID)
	})
	if err != nil {
		log.Error("Failed to create workspace",
			zap.String("owner_uid", uid),
			zap.String("name", name),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create workspace",
		})
	}

	prometheus.RecordWorkspaceOperation("create")
	log.Info("Workspace created successfully",
		zap.Uint("workspace_id", workspace.ID),
		zap.String("name", workspace.Name))
	return c.JSON(http.StatusCreated, workspaceResponse(db, &workspace, true))
}

// GetWorkspace handles retrieving a single workspace with its enabled
// environments and artifact counts
func GetWorkspace(c echo.Context) error {
	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	return c.JSON(http.StatusOK, workspaceResponse(database.GetDB(), workspace, true))
}

// UpdateWorkspace handles partial updates of a workspace's name and description
func UpdateWorkspace(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	var req WorkspaceRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	db := database.GetDB()

	if req.Name != nil {
		name, err := validation.ValidateWorkspaceName(*req.Name)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"name": err.Error()})
		}

		if name != workspace.Name {
			var count int64
			if err := db.Model(&model.Workspace{}).
				Where("owner_uid = ? AND name = ? AND id <> ?", workspace.OwnerUID, name, workspace.ID).
				Count(&count).Error; err != nil {
				log.Error("Failed to check workspace name", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error": "Failed to update workspace",
				})
			}
			if count > 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"name": "A workspace with this name already exists",
				})
			}
		}
		workspace.Name = name
	}
	if req.Description != nil {
		workspace.Description = *req.Description
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := db.Save(workspace).Error; err != nil {
		log.Error("Failed to update workspace",
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update workspace",
		})
	}

	prometheus.RecordWorkspaceOperation("update")
	log.Info("Workspace updated successfully",
		zap.Uint("workspace_id", workspace.ID),
		zap.String("name", workspace.Name))
	return c.JSON(http.StatusOK, workspaceResponse(db, workspace, true))
}

// DeleteWorkspace handles deleting a workspace and everything inside it
func DeleteWorkspace(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var artifactIDs []uint
		if err := tx.Model(&model.Artifact{}).
			Where("workspace_id = ?", workspace.ID).
			Pluck("id", &artifactIDs).Error; err != nil {
			return err
		}
		if len(artifactIDs) > 0 {
			if err := tx.Where("artifact_id IN ?", artifactIDs).Delete(&model.ArtifactTag{}).Error; err != nil {
				return err
			}
			if err := tx.Where("workspace_id = ?", workspace.ID).Delete(&model.Artifact{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("workspace_id = ?", workspace.ID).Delete(&model.Tag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", workspace.ID).Delete(&model.WorkspaceEnvironment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Workspace{}, workspace.ID).Error
	})
	if err != nil {
		log.Error("Failed to delete workspace",
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete workspace",
		})
	}

	prometheus.RecordWorkspaceOperation("delete")
	log.Info("Workspace deleted successfully",
		zap.Uint("workspace_id", workspace.ID),
		zap.String("name", workspace.Name))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Workspace deleted successfully",
	})
}

// enableAllEnvironments creates a workspace-environment join for every
// known environment type.
func enableAllEnvironments(tx *gorm.DB, workspaceID uint) error {
	var types []model.EnvironmentType
	if err := tx.Order("display_order ASC").Find(&types).Error; err != nil {
		return err
	}
	for _, et := range types {
		we := model.WorkspaceEnvironment{
			WorkspaceID:       workspaceID,
			EnvironmentTypeID: et.ID,
		}
		if err := tx.Create(&we).Error; err != nil {
			return err
		}
	}
	return nil
}

// enabledEnvironmentSlugs lists the workspace's enabled environment slugs
// in display order.
func enabledEnvironmentSlugs(db *gorm.DB, workspaceID uint) []string {
	var slugs []string
	db.Model(&model.WorkspaceEnvironment{}).
		Joins("JOIN environment_types ON environment_types.id = workspace_environments.environment_type_id").
		Where("workspace_environments.workspace_id = ?", workspaceID).
		Order("environment_types.display_order ASC").
		Pluck("environment_types.slug", &slugs)
	if slugs == nil {
		slugs = []string{}
	}
	return slugs
}

// enabledEnvironments lists the workspace's enabled environments with their
// reference data, in display order.
func enabledEnvironments(db *gorm.DB, workspaceID uint) []echo.Map {
	var types []model.EnvironmentType
	db.Model(&model.EnvironmentType{}).
		Joins("JOIN workspace_environments ON workspace_environments.environment_type_id = environment_types.id").
		Where("workspace_environments.workspace_id = ?", workspaceID).
		Order("environment_types.display_order ASC").
		Find(&types)

	out := make([]echo.Map, 0, len(types))
	for _, et := range types {
		out = append(out, echo.Map{
			"slug":          et.Slug,
			"name":          et.Name,
			"display_order": et.DisplayOrder,
		})
	}
	return out
}

// artifactCounts summarizes a workspace's artifacts by kind and environment
func artifactCounts(db *gorm.DB, workspaceID uint) echo.Map {
	var artifacts []model.Artifact
	db.Preload("WorkspaceEnv.EnvironmentType").
		Where("workspace_id = ?", workspaceID).
		Find(&artifacts)

	byType := echo.Map{}
	byEnvironment := echo.Map{}
	for _, kind := range model.ArtifactKinds {
		byType[kind] = 0
	}
	for _, slug := range model.EnvironmentSlugs {
		byEnvironment[slug] = 0
	}

	for i := range artifacts {
		a := &artifacts[i]
		if n, ok := byType[a.Kind].(int); ok {
			byType[a.Kind] = n + 1
		}
		if slug := a.EnvironmentSlug(); slug != "" {
			if n, ok := byEnvironment[slug].(int); ok {
				byEnvironment[slug] = n + 1
			}
		}
	}

	return echo.Map{
		"total":          len(artifacts),
		"by_type":        byType,
		"by_environment": byEnvironment,
	}
}

// workspaceResponse renders the external representation of a workspace.
// withEnvironments controls whether the enabled-environment list is loaded;
// the list view skips it.
func workspaceResponse(db *gorm.DB, w *model.Workspace, withEnvironments bool) echo.Map {
	enabled := []echo.Map{}
	if withEnvironments {
		enabled = enabledEnvironments(db, w.ID)
	}

	return echo.Map{
		"id":                   w.ID,
		"name":                 w.Name,
		"description":          w.Description,
		"owner_uid":            w.OwnerUID,
		"created_at":           w.CreatedAt,
		"updated_at":           w.UpdatedAt,
		"enabled_environments": enabled,
		"artifact_counts":      artifactCounts(db, w.ID),
	}
}

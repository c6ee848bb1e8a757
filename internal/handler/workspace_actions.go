package handler

import (
	"net/http"
	"time"

	"workspace-service/internal/model"
	"workspace-service/internal/service"
	"workspace-service/internal/validation"
	"workspace-service/pkg/database"
	"workspace-service/pkg/logger"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// exportVersion stamps export payloads so future importers can branch on
// the document shape.
const exportVersion = "1.0.0"

// ExportWorkspace produces a portable snapshot of a workspace and its
// artifacts. ENV_VAR values stay masked; an export is not a secret dump.
func ExportWorkspace(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	db := database.GetDB()

	defer prometheus.TrackDBOperation("query")(time.Now())

	var artifacts []model.Artifact
	result := db.Where("workspace_id = ?", workspace.ID).
		Preload("Tags").
		Preload("WorkspaceEnv.EnvironmentType").
		Order("id ASC").
		Find(&artifacts)
	if result.Error != nil {
		log.Error("Failed to export workspace",
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to export workspace",
		})
	}

	exported := make([]echo.Map, 0, len(artifacts))
	for i := range artifacts {
		artifacts[i].Workspace = workspace
		exported = append(exported, artifactResponse(&artifacts[i]))
	}

	prometheus.RecordWorkspaceOperation("export")
	log.Info("Workspace exported",
		zap.Uint("workspace_id", workspace.ID),
		zap.Int("artifact_count", len(exported)))
	return c.JSON(http.StatusOK, echo.Map{
		"workspace":  workspaceResponse(db, workspace, true),
		"artifacts":  exported,
		"exportedAt": time.Now().UTC().Format(time.RFC3339),
		"version":    exportVersion,
	})
}

// ImportRequest is the payload accepted by the import endpoint. Its shape
// matches what the export endpoint produces.
type ImportRequest struct {
	Workspace struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"workspace"`
	Artifacts []ArtifactRequest `json:"artifacts"`
}

// ImportWorkspace creates a new workspace from an exported document. Name
// collisions get a numeric suffix; artifacts that fail validation are
// skipped rather than failing the whole import. Environments are not
// auto-enabled, mirroring that the document carries no environment state.
func ImportWorkspace(c echo.Context) error {
	log := logger.FromContext(c)

	uid, ok := requireOwnerUID(c)
	if !ok {
		return nil
	}

	var req ImportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid workspace data",
		})
	}

	name, err := validation.ValidateWorkspaceName(req.Workspace.Name)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid workspace data",
		})
	}

	db := database.GetDB()

	name, err = service.UniqueWorkspaceName(db, uid, name)
	if err != nil {
		log.Error("Failed to resolve workspace name", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to import workspace",
		})
	}

	workspace := model.Workspace{
		Name:        name,
		Description: req.Workspace.Description,
		OwnerUID:    uid,
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&workspace).Error; err != nil {
		log.Error("Failed to create imported workspace", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to import workspace",
		})
	}

	imported := 0
	for i := range req.Artifacts {
		// Imported documents carry masked values and tag IDs from another
		// workspace; neither survives the trip.
		req.Artifacts[i].Tags = nil

		_, fieldErrs, err := createArtifactInWorkspace(db, &workspace, &req.Artifacts[i])
		if err != nil {
			log.Error("Failed to import artifact",
				zap.Uint("workspace_id", workspace.ID),
				zap.Int("index", i),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to import workspace",
			})
		}
		if fieldErrs != nil {
			log.Warn("Skipping invalid imported artifact",
				zap.Uint("workspace_id", workspace.ID),
				zap.Int("index", i))
			continue
		}
		imported++
	}

	prometheus.RecordWorkspaceOperation("import")
	log.Info("Workspace imported",
		zap.Uint("workspace_id", workspace.ID),
		zap.String("name", workspace.Name),
		zap.Int("imported_count", imported))
	return c.JSON(http.StatusCreated, echo.Map{
		"workspace":      workspaceResponse(db, &workspace, true),
		"imported_count": imported,
	})
}

// ApplyTemplates seeds the stock showcase workspaces for the caller
func ApplyTemplates(c echo.Context) error {
	log := logger.FromContext(c)

	uid, ok := requireOwnerUID(c)
	if !ok {
		return nil
	}

	db := database.GetDB()

	defer prometheus.TrackDBOperation("insert")(time.Now())

	workspaces, err := service.ApplyShowcaseTemplates(db, uid)
	if err != nil {
		log.Error("Failed to apply templates",
			zap.String("owner_uid", uid),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to apply templates",
		})
	}

	created := make([]echo.Map, 0, len(workspaces))
	for _, w := range workspaces {
		created = append(created, workspaceResponse(db, w, true))
	}

	prometheus.RecordWorkspaceOperation("apply_templates")
	log.Info("Templates applied",
		zap.String("owner_uid", uid),
		zap.Int("created", len(created)))
	return c.JSON(http.StatusCreated, echo.Map{"created": created})
}

// environmentTypeNames backs lazy seeding when an environment type row is
// missing at toggle time.
var environmentTypeNames = map[string]string{
	model.EnvDev:     "Development",
	model.EnvStaging: "Staging",
	model.EnvProd:    "Production",
}

// EnabledEnvironmentsRequest is the payload for the environment toggle
type EnabledEnvironmentsRequest struct {
	Enabled *[]string `json:"enabled"`
}

// UpdateEnabledEnvironments replaces the workspace's set of enabled
// environments. Disabling an environment that still holds artifacts is
// rejected with the per-slug counts so the client can surface them.
func UpdateEnabledEnvironments(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	var req EnabledEnvironmentsRequest
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "enabled must be an array of strings",
		})
	}

	requested := make(map[string]bool, len(*req.Enabled))
	for _, slug := range *req.Enabled {
		if !model.IsValidEnvironment(slug) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Unknown slugs provided. Allowed: DEV, STAGING, PROD",
			})
		}
		requested[slug] = true
	}

	db := database.GetDB()

	var current []model.WorkspaceEnvironment
	if err := db.Preload("EnvironmentType").
		Where("workspace_id = ?", workspace.ID).
		Find(&current).Error; err != nil {
		log.Error("Failed to load enabled environments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update environments",
		})
	}
	currentBySlug := make(map[string]model.WorkspaceEnvironment, len(current))
	for _, we := range current {
		if we.EnvironmentType != nil {
			currentBySlug[we.EnvironmentType.Slug] = we
		}
	}

	// Disabling is blocked while artifacts still live in the environment.
	// The join count is authoritative; rows written before the join existed
	// only carry the slug column, so fall back to that when the join finds
	// nothing.
	blocking := make([]echo.Map, 0)
	for slug, we := range currentBySlug {
		if requested[slug] {
			continue
		}
		var count int64
		if err := db.Model(&model.Artifact{}).
			Where("workspace_env_id = ?", we.ID).
			Count(&count).Error; err != nil {
			log.Error("Failed to count artifacts", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to update environments",
			})
		}
		if count == 0 {
			if err := db.Model(&model.Artifact{}).
				Where("workspace_id = ? AND environment = ? AND workspace_env_id IS NULL", workspace.ID, slug).
				Count(&count).Error; err != nil {
				log.Error("Failed to count artifacts", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error": "Failed to update environments",
				})
			}
		}
		if count > 0 {
			blocking = append(blocking, echo.Map{
				"slug":           slug,
				"artifact_count": count,
			})
		}
	}
	if len(blocking) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":    "Cannot disable environments that have artifacts",
			"blocking": blocking,
		})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	err := db.Transaction(func(tx *gorm.DB) error {
		for slug := range requested {
			if _, enabled := currentBySlug[slug]; enabled {
				continue
			}
			var et model.EnvironmentType
			err := tx.Where("slug = ?", slug).First(&et).Error
			if err == gorm.ErrRecordNotFound {
				// Reference data can be missing on databases that predate
				// the seeding step; create the row on demand.
				et = model.EnvironmentType{
					Name:         environmentTypeNames[slug],
					Slug:         slug,
					DisplayOrder: environmentDisplayOrder(slug),
				}
				err = tx.Create(&et).Error
			}
			if err != nil {
				return err
			}
			we := model.WorkspaceEnvironment{
				WorkspaceID:       workspace.ID,
				EnvironmentTypeID: et.ID,
			}
			if err := tx.Create(&we).Error; err != nil {
				return err
			}
			prometheus.RecordEnvironmentToggle("enable")
		}

		for slug, we := range currentBySlug {
			if requested[slug] {
				continue
			}
			if err := tx.Delete(&model.WorkspaceEnvironment{}, we.ID).Error; err != nil {
				return err
			}
			prometheus.RecordEnvironmentToggle("disable")
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update environments",
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update environments",
		})
	}

	log.Info("Enabled environments updated",
		zap.Uint("workspace_id", workspace.ID),
		zap.Int("enabled", len(requested)))
	return c.JSON(http.StatusOK, echo.Map{
		"enabled_environments": enabledEnvironmentSlugs(db, workspace.ID),
	})
}

func environmentDisplayOrder(slug string) int {
	for i, s := range model.EnvironmentSlugs {
		if s == slug {
			return i
		}
	}
	return len(model.EnvironmentSlugs)
}

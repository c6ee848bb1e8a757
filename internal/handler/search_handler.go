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
)

// searchResultLimit caps cross-workspace search responses
const searchResultLimit = 200

// GlobalArtifactSearch searches artifacts across every workspace the
// caller owns. Matches cover the text fields and tag names.
func GlobalArtifactSearch(c echo.Context) error {
	log := logger.FromContext(c)

	uid, ok := requireOwnerUID(c)
	if !ok {
		return nil
	}

	db := database.GetDB()
	query := db.Model(&model.Artifact{}).
		Joins("JOIN workspaces ON workspaces.id = artifacts.workspace_id").
		Where("workspaces.owner_uid = ?", uid).
		Preload("Tags").
		Preload("Workspace").
		Preload("WorkspaceEnv.EnvironmentType")

	if q := c.QueryParam("q"); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			`(LOWER(artifacts.key) LIKE ? OR LOWER(artifacts.title) LIKE ? OR LOWER(artifacts.content) LIKE ?
				OR LOWER(artifacts.notes) LIKE ? OR LOWER(artifacts.url) LIKE ?
				OR EXISTS (
					SELECT 1 FROM artifact_tags
					JOIN tags ON tags.id = artifact_tags.tag_id
					WHERE artifact_tags.artifact_id = artifacts.id AND LOWER(tags.name) LIKE ?
				))`,
			pattern, pattern, pattern, pattern, pattern, pattern,
		)
	}

	if kind := c.QueryParam("kind"); kind != "" {
		query = query.Where("artifacts.kind = ?", kind)
	}
	if env := c.QueryParam("environment"); env != "" {
		query = query.Where("artifacts.environment = ?", env)
	}
	if workspaceID := c.QueryParam("workspace"); workspaceID != "" {
		query = query.Where("artifacts.workspace_id = ?", workspaceID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var artifacts []model.Artifact
	result := query.Order("artifacts.updated_at DESC").
		Limit(searchResultLimit).
		Find(&artifacts)
	if result.Error != nil {
		log.Error("Global search failed",
			zap.String("owner_uid", uid),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Search failed",
		})
	}

	results := make([]echo.Map, 0, len(artifacts))
	for i := range artifacts {
		results = append(results, artifactResponse(&artifacts[i]))
	}

	log.Info("Global search completed",
		zap.String("owner_uid", uid),
		zap.Int("count", len(results)))
	return c.JSON(http.StatusOK, echo.Map{
		"results": results,
		"count":   len(results),
	})
}

// GlobalDocLinks lists every documentation link across the caller's
// workspaces, a shelf view for quick navigation.
func GlobalDocLinks(c echo.Context) error {
	log := logger.FromContext(c)

	uid, ok := requireOwnerUID(c)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var artifacts []model.Artifact
	result := database.GetDB().Model(&model.Artifact{}).
		Joins("JOIN workspaces ON workspaces.id = artifacts.workspace_id").
		Where("workspaces.owner_uid = ? AND artifacts.kind = ?", uid, model.KindDocLink).
		Preload("Tags").
		Preload("Workspace").
		Preload("WorkspaceEnv.EnvironmentType").
		Order("artifacts.updated_at DESC").
		Limit(searchResultLimit).
		Find(&artifacts)
	if result.Error != nil {
		log.Error("Failed to list documentation links",
			zap.String("owner_uid", uid),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve documentation links",
		})
	}

	results := make([]echo.Map, 0, len(artifacts))
	for i := range artifacts {
		results = append(results, artifactResponse(&artifacts[i]))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results": results,
		"count":   len(results),
	})
}

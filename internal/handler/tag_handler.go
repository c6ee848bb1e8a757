package handler

import (
	"net/http"
	"sort"
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

// TagRequest defines the structure for tag creation/update requests
type TagRequest struct {
	Name string `json:"name"`
}

// tagWithUsage augments a tag with how many artifacts reference it
type tagWithUsage struct {
	model.Tag
	UsageCount int64 `json:"usage_count"`
}

// ListTags handles retrieving a workspace's tags with usage counts,
// alphabetical by name
func ListTags(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var tags []tagWithUsage
	result := database.GetDB().Model(&model.Tag{}).
		Select("tags.*, COUNT(artifact_tags.artifact_id) AS usage_count").
		Joins("LEFT JOIN artifact_tags ON artifact_tags.tag_id = tags.id").
		Where("tags.workspace_id = ?", workspace.ID).
		Group("tags.id").
		Order("tags.name ASC").
		Find(&tags)
	if result.Error != nil {
		log.Error("Failed to list tags",
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve tags",
		})
	}

	return c.JSON(http.StatusOK, tags)
}

// CreateTag handles creating a new tag in a workspace. Names are unique
// case-insensitively within the workspace.
func CreateTag(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	var req TagRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	name, err := validation.ValidateTagName(req.Name)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"name": err.Error()})
	}

	db := database.GetDB()
	if taken, err := tagNameTaken(db, workspace.ID, name, 0); err != nil {
		log.Error("Failed to check tag name", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create tag",
		})
	} else if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"name": "A tag with this name already exists in this workspace",
		})
	}

	tag := model.Tag{
		WorkspaceID: workspace.ID,
		Name:        name,
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&tag).Error; err != nil {
		// A concurrent create can slip past the pre-check and hit the
		// unique index; report it the same way.
		log.Warn("Tag create hit unique constraint",
			zap.Uint("workspace_id", workspace.ID),
			zap.String("name", name),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"name": "A tag with this name already exists in this workspace",
		})
	}

	prometheus.RecordTagOperation("create")
	log.Info("Tag created successfully",
		zap.Uint("tag_id", tag.ID),
		zap.String("name", tag.Name))
	return c.JSON(http.StatusCreated, tag)
}

// UpdateTag handles renaming a tag
func UpdateTag(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	tag, ok := findWorkspaceTag(c, workspace)
	if !ok {
		return nil
	}

	var req TagRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	name, err := validation.ValidateTagName(req.Name)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"name": err.Error()})
	}

	db := database.GetDB()
	if taken, err := tagNameTaken(db, workspace.ID, name, tag.ID); err != nil {
		log.Error("Failed to check tag name", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update tag",
		})
	} else if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"name": "A tag with this name already exists in this workspace",
		})
	}

	tag.Name = name
	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := db.Save(tag).Error; err != nil {
		log.Error("Failed to update tag",
			zap.Uint("tag_id", tag.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update tag",
		})
	}

	prometheus.RecordTagOperation("update")
	log.Info("Tag updated successfully",
		zap.Uint("tag_id", tag.ID),
		zap.String("name", tag.Name))
	return c.JSON(http.StatusOK, tag)
}

// DeleteTag handles deleting a tag and detaching it from all artifacts
func DeleteTag(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	tag, ok := findWorkspaceTag(c, workspace)
	if !ok {
		return nil
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", tag.ID).Delete(&model.ArtifactTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Tag{}, tag.ID).Error
	})
	if err != nil {
		log.Error("Failed to delete tag",
			zap.Uint("tag_id", tag.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete tag",
		})
	}

	prometheus.RecordTagOperation("delete")
	log.Info("Tag deleted successfully",
		zap.Uint("tag_id", tag.ID),
		zap.String("name", tag.Name))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tag deleted successfully",
	})
}

// BulkDeleteRequest is the payload for the bulk tag delete endpoint
type BulkDeleteRequest struct {
	IDs *[]uint `json:"ids"`
}

// BulkDeleteTags deletes several tags at once and reports which requested
// IDs were not found in the workspace.
func BulkDeleteTags(c echo.Context) error {
	log := logger.FromContext(c)

	workspace := requireWorkspace(c)
	if workspace == nil {
		return nil
	}

	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil || req.IDs == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Expected an array of tag IDs",
		})
	}

	requested := uniqueIDs(*req.IDs)
	db := database.GetDB()

	var tags []model.Tag
	if len(requested) > 0 {
		if err := db.Where("workspace_id = ? AND id IN ?", workspace.ID, requested).
			Find(&tags).Error; err != nil {
			log.Error("Failed to load tags", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to delete tags",
			})
		}
	}

	found := make(map[uint]bool, len(tags))
	tagIDs := make([]uint, 0, len(tags))
	for _, t := range tags {
		found[t.ID] = true
		tagIDs = append(tagIDs, t.ID)
	}

	if len(tagIDs) > 0 {
		defer prometheus.TrackDBOperation("delete")(time.Now())
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("tag_id IN ?", tagIDs).Delete(&model.ArtifactTag{}).Error; err != nil {
				return err
			}
			return tx.Where("id IN ?", tagIDs).Delete(&model.Tag{}).Error
		})
		if err != nil {
			log.Error("Failed to delete tags",
				zap.Uint("workspace_id", workspace.ID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "Failed to delete tags",
			})
		}
		prometheus.RecordTagOperation("bulk_delete")
	}

	resp := echo.Map{
		"deleted_count":   len(tagIDs),
		"requested_count": len(requested),
	}
	var notFound []uint
	for _, id := range requested {
		if !found[id] {
			notFound = append(notFound, id)
		}
	}
	if len(notFound) > 0 {
		sort.Slice(notFound, func(i, j int) bool { return notFound[i] < notFound[j] })
		resp["not_found_ids"] = notFound
	}

	log.Info("Bulk tag delete finished",
		zap.Uint("workspace_id", workspace.ID),
		zap.Int("deleted", len(tagIDs)),
		zap.Int("requested", len(requested)))
	return c.JSON(http.StatusOK, resp)
}

// tagNameTaken checks the case-insensitive per-workspace name rule
func tagNameTaken(db *gorm.DB, workspaceID uint, name string, excludeID uint) (bool, error) {
	query := db.Model(&model.Tag{}).
		Where("workspace_id = ? AND LOWER(name) = LOWER(?)", workspaceID, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// findWorkspaceTag loads the :id tag scoped to the workspace. On failure
// the 404 response is already written.
func findWorkspaceTag(c echo.Context, workspace *model.Workspace) (*model.Tag, bool) {
	id := c.Param("id")

	var tag model.Tag
	result := database.GetDB().
		Where("workspace_id = ?", workspace.ID).
		First(&tag, id)
	if result.Error != nil {
		logger.FromContext(c).Warn("Tag not found",
			zap.String("tag_id", id),
			zap.Uint("workspace_id", workspace.ID),
			zap.Error(result.Error))
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "Tag not found"})
		return nil, false
	}

	return &tag, true
}

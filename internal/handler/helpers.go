package handler

import (
	"net/http"

	"workspace-service/internal/middleware"
	"workspace-service/internal/model"
	"workspace-service/pkg/database"
	"workspace-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// requireOwnerUID extracts the authenticated owner UID. On failure it writes
// a 401 response and returns "", false.
func requireOwnerUID(c echo.Context) (string, bool) {
	uid, ok := middleware.GetOwnerUIDFromContext(c)
	if !ok {
		logger.FromContext(c).Warn("Missing owner UID in context")
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		return "", false
	}
	return uid, true
}

// requireWorkspace loads the workspace addressed by the :workspace_id param
// and verifies the caller owns it. A workspace belonging to someone else is
// reported as 404 so its existence is not confirmed. On failure the response
// is already written and nil is returned.
func requireWorkspace(c echo.Context) *model.Workspace {
	uid, ok := requireOwnerUID(c)
	if !ok {
		return nil
	}

	id := c.Param("workspace_id")
	var workspace model.Workspace
	result := database.GetDB().Where("owner_uid = ?", uid).First(&workspace, id)
	if result.Error != nil {
		logger.FromContext(c).Warn("Workspace not found",
			zap.String("workspace_id", id),
			zap.Error(result.Error))
		_ = c.JSON(http.StatusNotFound, echo.Map{"error": "Workspace not found"})
		return nil
	}

	return &workspace
}

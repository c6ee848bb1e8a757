package handler

import (
	"fmt"
	"net/http"
	"testing"

	"workspace-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorkspace(t *testing.T) {
	conn := setupTestDB(t)

	c, rec := newTestContext(t, http.MethodPost, "/api/workspaces",
		`{"name": "My Project", "description": "First workspace"}`)
	require.NoError(t, CreateWorkspace(c))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "My Project", body["name"])
	assert.Equal(t, "First workspace", body["description"])
	assert.Equal(t, testOwnerUID, body["owner_uid"])

	// All environments are enabled from the start, in display order
	enabled := body["enabled_environments"].([]interface{})
	require.Len(t, enabled, 3)
	slugs := make([]string, 0, 3)
	for _, entry := range enabled {
		slugs = append(slugs, entry.(map[string]interface{})["slug"].(string))
	}
	assert.Equal(t, []string{"DEV", "STAGING", "PROD"}, slugs)

	var count int64
	conn.Model(&model.WorkspaceEnvironment{}).Count(&count)
	assert.EqualValues(t, 3, count)
}

func TestCreateWorkspaceDuplicateName(t *testing.T) {
	conn := setupTestDB(t)
	createTestWorkspace(t, conn, testOwnerUID, "My Project")

	c, rec := newTestContext(t, http.MethodPost, "/api/workspaces", `{"name": "My Project"}`)
	require.NoError(t, CreateWorkspace(c))

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "A workspace with this name already exists", body["error"])
}

func TestCreateWorkspaceInvalidName(t *testing.T) {
	setupTestDB(t)

	for _, name := range []string{"", "   ", "bad/name", "name<script>"} {
		c, rec := newTestContext(t, http.MethodPost, "/api/workspaces",
			fmt.Sprintf(`{"name": %q}`, name))
		require.NoError(t, CreateWorkspace(c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Contains(t, body, "name")
	}
}

func TestListWorkspacesOwnershipScoped(t *testing.T) {
	conn := setupTestDB(t)
	createTestWorkspace(t, conn, testOwnerUID, "Mine")
	createTestWorkspace(t, conn, "someone-else", "Theirs")

	c, rec := newTestContext(t, http.MethodGet, "/api/workspaces", "")
	require.NoError(t, ListWorkspaces(c))

	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBodyList(t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Mine", list[0]["name"])

	// Listing keeps enabled_environments empty
	assert.Empty(t, list[0]["enabled_environments"])
}

func TestGetWorkspaceNotOwned(t *testing.T) {
	conn := setupTestDB(t)
	other := createTestWorkspace(t, conn, "someone-else", "Theirs")

	c, rec := newTestContext(t, http.MethodGet, "/api/workspaces/1", "")
	c.SetParamNames("workspace_id")
	c.SetParamValues(fmt.Sprint(other.ID))
	require.NoError(t, GetWorkspace(c))

	// Another owner's workspace reads as absent
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Workspace not found", body["error"])
}

func TestUpdateWorkspaceNameConflict(t *testing.T) {
	conn := setupTestDB(t)
	createTestWorkspace(t, conn, testOwnerUID, "Taken")
	ws := createTestWorkspace(t, conn, testOwnerUID, "Renameable")

	c, rec := newTestContext(t, http.MethodPut, "/api/workspaces/1", `{"name": "Taken"}`)
	c.SetParamNames("workspace_id")
	c.SetParamValues(fmt.Sprint(ws.ID))
	require.NoError(t, UpdateWorkspace(c))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "A workspace with this name already exists", body["name"])
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Doomed")

	tag := model.Tag{WorkspaceID: ws.ID, Name: "backend"}
	require.NoError(t, conn.Create(&tag).Error)
	artifact := model.Artifact{
		WorkspaceID: ws.ID,
		Kind:        model.KindEnvVar,
		Environment: model.EnvDev,
		Key:         "API_KEY",
		Value:       "secret",
	}
	require.NoError(t, conn.Create(&artifact).Error)
	require.NoError(t, conn.Create(&model.ArtifactTag{ArtifactID: artifact.ID, TagID: tag.ID}).Error)

	c, rec := newTestContext(t, http.MethodDelete, "/api/workspaces/1", "")
	c.SetParamNames("workspace_id")
	c.SetParamValues(fmt.Sprint(ws.ID))
	require.NoError(t, DeleteWorkspace(c))

	require.Equal(t, http.StatusOK, rec.Code)

	for _, m := range []interface{}{
		&model.Workspace{}, &model.Artifact{}, &model.Tag{},
		&model.ArtifactTag{}, &model.WorkspaceEnvironment{},
	} {
		var count int64
		conn.Model(m).Count(&count)
		assert.Zero(t, count, "expected no rows left for %T", m)
	}
}

func TestUpdateEnabledEnvironmentsBlockedByArtifacts(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Envs")

	var prodEnv model.WorkspaceEnvironment
	require.NoError(t, conn.
		Joins("JOIN environment_types ON environment_types.id = workspace_environments.environment_type_id").
		Where("workspace_environments.workspace_id = ? AND environment_types.slug = ?", ws.ID, model.EnvProd).
		First(&prodEnv).Error)

	artifact := model.Artifact{
		WorkspaceID:    ws.ID,
		Kind:           model.KindEnvVar,
		Environment:    model.EnvProd,
		WorkspaceEnvID: &prodEnv.ID,
		Key:            "API_KEY",
		Value:          "secret",
	}
	require.NoError(t, conn.Create(&artifact).Error)

	c, rec := newTestContext(t, http.MethodPatch, "/api/workspaces/1/environments",
		`{"enabled": ["DEV", "STAGING"]}`)
	c.SetParamNames("workspace_id")
	c.SetParamValues(fmt.Sprint(ws.ID))
	require.NoError(t, UpdateEnabledEnvironments(c))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Cannot disable environments that have artifacts", body["error"])

	blocking, ok := body["blocking"].([]interface{})
	require.True(t, ok)
	require.Len(t, blocking, 1)
	entry := blocking[0].(map[string]interface{})
	assert.Equal(t, "PROD", entry["slug"])
	assert.EqualValues(t, 1, entry["artifact_count"])
}

func TestUpdateEnabledEnvironmentsToggle(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Envs")

	c, rec := newTestContext(t, http.MethodPatch, "/api/workspaces/1/environments",
		`{"enabled": ["DEV"]}`)
	c.SetParamNames("workspace_id")
	c.SetParamValues(fmt.Sprint(ws.ID))
	require.NoError(t, UpdateEnabledEnvironments(c))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, []interface{}{"DEV"}, body["enabled_environments"])

	// Re-enable everything
	c, rec = newTestContext(t, http.MethodPatch, "/api/workspaces/1/environments",
		`{"enabled": ["DEV", "STAGING", "PROD"]}`)
	c.SetParamNames("workspace_id")
	c.SetParamValues(fmt.Sprint(ws.ID))
	require.NoError(t, UpdateEnabledEnvironments(c))

	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, []interface{}{"DEV", "STAGING", "PROD"}, body["enabled_environments"])
}

func TestUpdateEnabledEnvironmentsRejectsUnknownSlug(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Envs")

	c, rec := newTestContext(t, http.MethodPatch, "/api/workspaces/1/environments",
		`{"enabled": ["QA"]}`)
	c.SetParamNames("workspace_id")
	c.SetParamValues(fmt.Sprint(ws.ID))
	require.NoError(t, UpdateEnabledEnvironments(c))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Unknown slugs provided. Allowed: DEV, STAGING, PROD", body["error"])
}

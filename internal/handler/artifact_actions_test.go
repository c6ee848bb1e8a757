package handler

import (
	"net/http"
	"testing"

	"workspace-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevealValue(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Secrets")
	artifact := mustCreateArtifact(t, conn, ws.ID, model.KindEnvVar, "API_KEY", "the-plaintext")

	c, rec := artifactContext(t, http.MethodGet, "", ws.ID, artifact.ID)
	require.NoError(t, RevealValue(c))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "API_KEY", body["key"])
	assert.Equal(t, "the-plaintext", body["value"])
	assert.Equal(t, "DEV", body["environment"])
}

func TestRevealValueRejectsOtherKinds(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Prompts")
	artifact := mustCreateArtifact(t, conn, ws.ID, model.KindPrompt, "Greeting", "Say hello")

	c, rec := artifactContext(t, http.MethodGet, "", ws.ID, artifact.ID)
	require.NoError(t, RevealValue(c))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Not an environment variable", body["error"])
}

func TestDuplicateToEnvironment(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Secrets")
	artifact := mustCreateArtifact(t, conn, ws.ID, model.KindEnvVar, "API_KEY", "v")

	tag := model.Tag{WorkspaceID: ws.ID, Name: "backend"}
	require.NoError(t, conn.Create(&tag).Error)
	require.NoError(t, conn.Create(&model.ArtifactTag{ArtifactID: artifact.ID, TagID: tag.ID}).Error)

	c, rec := artifactContext(t, http.MethodPost, `{"environment": "PROD"}`, ws.ID, artifact.ID)
	require.NoError(t, DuplicateToEnvironment(c))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "PROD", body["environment"])
	assert.Equal(t, "API_KEY", body["key"])
	// The copy starts untagged even when the source carries tags
	assert.Empty(t, body["tags"])

	var count int64
	conn.Model(&model.Artifact{}).Count(&count)
	assert.EqualValues(t, 2, count)

	cloneID := uint(body["id"].(float64))
	var joins int64
	conn.Model(&model.ArtifactTag{}).Where("artifact_id = ?", cloneID).Count(&joins)
	assert.Zero(t, joins)
}

func TestDuplicateToEnvironmentConflict(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Secrets")
	artifact := mustCreateArtifact(t, conn, ws.ID, model.KindEnvVar, "API_KEY", "v")

	prod := model.Artifact{
		WorkspaceID: ws.ID,
		Kind:        model.KindEnvVar,
		Environment: model.EnvProd,
		Key:         "API_KEY",
		Value:       "v",
	}
	require.NoError(t, conn.Create(&prod).Error)

	c, rec := artifactContext(t, http.MethodPost, `{"environment": "PROD"}`, ws.ID, artifact.ID)
	require.NoError(t, DuplicateToEnvironment(c))

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "An artifact with key 'API_KEY' already exists in PROD environment", body["error"])
}

func TestDuplicateToEnvironmentValidation(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Secrets")
	artifact := mustCreateArtifact(t, conn, ws.ID, model.KindEnvVar, "API_KEY", "v")

	c, rec := artifactContext(t, http.MethodPost, `{}`, ws.ID, artifact.ID)
	require.NoError(t, DuplicateToEnvironment(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Target environment is required", decodeBody(t, rec)["error"])

	// Slugs are matched exactly; lowercase is not folded
	c, rec = artifactContext(t, http.MethodPost, `{"environment": "prod"}`, ws.ID, artifact.ID)
	require.NoError(t, DuplicateToEnvironment(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid environment. Must be DEV, STAGING, or PROD", decodeBody(t, rec)["error"])
}

func TestBulkCreate(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Bulk")

	payload := `[
		{"kind": "ENV_VAR", "key": "GOOD_KEY", "value": "v"},
		{"kind": "ENV_VAR", "key": "bad key", "value": "v"},
		{"kind": "PROMPT", "title": "Summary", "content": "Summarize"}
	]`
	c, rec := artifactContext(t, http.MethodPost, payload, ws.ID)
	require.NoError(t, BulkCreate(c))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["created_count"])
	assert.EqualValues(t, 1, body["error_count"])

	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	entry := errs[0].(map[string]interface{})
	assert.EqualValues(t, 1, entry["index"])
}

func TestBulkCreateOmitsErrorsWhenAllValid(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Bulk")

	payload := `[
		{"kind": "ENV_VAR", "key": "ONLY_GOOD", "value": "v"},
		{"kind": "DOC_LINK", "title": "Runbook", "url": "https://example.com/runbook"}
	]`
	c, rec := artifactContext(t, http.MethodPost, payload, ws.ID)
	require.NoError(t, BulkCreate(c))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["created_count"])
	assert.EqualValues(t, 0, body["error_count"])
	assert.NotContains(t, body, "errors")
}

func TestBulkCreateAllInvalid(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Bulk")

	c, rec := artifactContext(t, http.MethodPost, `[{"kind": "NOPE"}]`, ws.ID)
	require.NoError(t, BulkCreate(c))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 0, body["created_count"])
	assert.EqualValues(t, 1, body["error_count"])
}

func TestBulkCreateRejectsNonArray(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Bulk")

	c, rec := artifactContext(t, http.MethodPost, `{"kind": "ENV_VAR"}`, ws.ID)
	require.NoError(t, BulkCreate(c))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Expected an array of artifact data", decodeBody(t, rec)["error"])
}

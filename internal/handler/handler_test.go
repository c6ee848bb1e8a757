package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"workspace-service/internal/model"
	"workspace-service/pkg/config"
	"workspace-service/pkg/database"
	"workspace-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testOwnerUID = "firebase-uid-owner-1"

// setupTestDB opens an isolated database, runs migrations and seeding, and
// points the handlers at it for the duration of the test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	prometheus.InitMetrics(&config.Config{
		Metrics: config.MetricsConfig{Prefix: "workspace_service_test"},
	})

	dbPath := filepath.Join(t.TempDir(), "test.db")
	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(conn))
	require.NoError(t, database.SeedEnvironmentTypes(conn))

	database.Set(conn)
	t.Cleanup(func() { database.Set(nil) })

	return conn
}

// newTestContext builds an echo context carrying an authenticated owner UID
func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("owner_uid", testOwnerUID)
	return c, rec
}

// decodeBody unmarshals a JSON response body into a generic map
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// decodeBodyList unmarshals a JSON array response body
func decodeBodyList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// createTestWorkspace inserts a workspace with every environment enabled,
// bypassing the HTTP layer.
func createTestWorkspace(t *testing.T, conn *gorm.DB, ownerUID, name string) *model.Workspace {
	t.Helper()

	workspace := &model.Workspace{Name: name, OwnerUID: ownerUID}
	require.NoError(t, conn.Create(workspace).Error)

	var types []model.EnvironmentType
	require.NoError(t, conn.Order("display_order ASC").Find(&types).Error)
	for _, et := range types {
		we := model.WorkspaceEnvironment{
			WorkspaceID:       workspace.ID,
			EnvironmentTypeID: et.ID,
		}
		require.NoError(t, conn.Create(&we).Error)
	}
	return workspace
}

package handler

import (
	"net/http"
	"testing"

	"workspace-service/prometheus"

	promclient "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dbOperationSamples reads the histogram sample count for one operation
// type label. The collectors live on the default registry, so tests look
// at deltas rather than absolute counts.
func dbOperationSamples(t *testing.T, operationType string) uint64 {
	t.Helper()

	observer := prometheus.DbOperationDuration.WithLabelValues(operationType)
	metric, ok := observer.(promclient.Metric)
	require.True(t, ok)

	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestHandlersRecordDBOperationDuration(t *testing.T) {
	conn := setupTestDB(t)
	ws := createTestWorkspace(t, conn, testOwnerUID, "Metrics")

	queryBefore := dbOperationSamples(t, "query")
	insertBefore := dbOperationSamples(t, "insert")
	deleteBefore := dbOperationSamples(t, "delete")

	c, rec := artifactContext(t, http.MethodGet, "", ws.ID)
	require.NoError(t, ListArtifacts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = artifactContext(t, http.MethodPost, `{"kind": "ENV_VAR", "key": "TRACKED", "value": "v"}`, ws.ID)
	require.NoError(t, CreateArtifact(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeBody(t, rec)
	artifactID := uint(created["id"].(float64))

	c, rec = artifactContext(t, http.MethodDelete, "", ws.ID, artifactID)
	require.NoError(t, DeleteArtifact(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, queryBefore+1, dbOperationSamples(t, "query"))
	assert.Equal(t, insertBefore+1, dbOperationSamples(t, "insert"))
	assert.Equal(t, deleteBefore+1, dbOperationSamples(t, "delete"))
}

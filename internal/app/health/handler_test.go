package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/testutil"
	"taskboard/internal/utils"
)

func check(t *testing.T, checker *utils.HealthChecker) (int, utils.HealthStatus) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), NewHandler(NewService(checker)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var status utils.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	return w.Code, status
}

func TestHealth_Healthy(t *testing.T) {
	redisP, _ := testutil.SetupRedis(t)
	checker := &utils.HealthChecker{
		DB:     testutil.SetupTestDB(t),
		Redis:  redisP.Client,
		Probes: []utils.Probe{{Name: "MinIO", Check: func(context.Context) error { return nil }}},
	}

	code, status := check(t, checker)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, utils.StatusHealthy, status.Status)
	assert.Len(t, status.Services, 3)
}

func TestHealth_DegradedProbe(t *testing.T) {
	checker := &utils.HealthChecker{
		Probes: []utils.Probe{{Name: "MinIO", Check: func(context.Context) error { return errors.New("bucket missing") }}},
	}

	code, status := check(t, checker)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, utils.StatusDegraded, status.Status)
	require.Len(t, status.Services, 1)
	assert.Equal(t, "down", status.Services[0].Status)
	assert.Equal(t, "bucket missing", status.Services[0].Message)
}

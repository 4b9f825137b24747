package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/catalog/internal/monitoring"
)

func healthRouter(manager *monitoring.HealthManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(manager)
	r := gin.New()
	r.GET("/health", h.Summary)
	r.GET("/health/live", h.Live)
	r.GET("/health/ready", h.Ready)
	return r
}

func staticCheck(name string, status monitoring.ProbeStatus) monitoring.Check {
	return monitoring.NewCheck(name, func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: status}
	})
}

func TestHealthHandlerDegradedStaysAvailable(t *testing.T) {
	manager := monitoring.NewHealthManager(0)
	manager.RegisterLiveness(staticCheck("process", monitoring.StatusUp))
	manager.RegisterReadiness(staticCheck("database", monitoring.StatusUp))
	manager.RegisterReadiness(staticCheck("cache", monitoring.StatusDegraded))
	r := healthRouter(manager)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                     `json:"success"`
		Status  string                   `json:"status"`
		Checks  []monitoring.ProbeResult `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "degraded", body.Status)
	require.Len(t, body.Checks, 2)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandlerDownReturns503(t *testing.T) {
	manager := monitoring.NewHealthManager(0)
	manager.RegisterReadiness(staticCheck("database", monitoring.StatusDown))
	r := healthRouter(manager)

	for _, path := range []string{"/health", "/health/ready"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

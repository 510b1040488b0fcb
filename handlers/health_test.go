package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/bandit-router/app"
	"github.com/upb/bandit-router/models"
)

func TestHealthCheck(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	HealthCheck(deps)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReadinessCheck(t *testing.T) {
	t.Run("ready without a database", func(t *testing.T) {
		deps := newTestDeps(t)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
		ReadinessCheck(deps)(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "not_configured", resp.Checks["database"])
		assert.Equal(t, "loaded", resp.Checks["catalog"])
	})

	t.Run("not ready with an empty catalog", func(t *testing.T) {
		deps := &app.Dependencies{
			Config:  testConfig(),
			Logger:  zap.NewNop(),
			Catalog: []models.Backend{},
		}

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
		ReadinessCheck(deps)(w, req)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "empty", resp.Checks["catalog"])
	})
}

func TestStatusHandler(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	w := httptest.NewRecorder()
	StatusHandler(deps)(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Environment string   `json:"environment"`
		Algorithm   string   `json:"algorithm"`
		Backends    []string `json:"backends"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.Environment)
	assert.Equal(t, "ucb1", resp.Algorithm)
	assert.Equal(t, []string{"gpt-large", "claude-mid", "llama-small"}, resp.Backends)
}

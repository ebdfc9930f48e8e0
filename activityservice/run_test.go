package activityservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FrithiofJensen/openproject/internal/config"
)

func TestCalculateStartupHealthTimeout(t *testing.T) {
	assert.Equal(t, 60, calculateStartupHealthTimeout(1))
	assert.Equal(t, 60, calculateStartupHealthTimeout(30))
	assert.Equal(t, 90, calculateStartupHealthTimeout(45))
}

func TestDependenciesBecomeHealthy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewForTesting()
	deps, err := initDependencies(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer deps.close(zerolog.Nop())

	svcHealth := startHealthCheckers(ctx, cfg, zerolog.Nop(), deps)
	require.Eventually(t, svcHealth.IsHealthy, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, map[string]bool{"store": true}, svcHealth.Components())

	router := buildRouter(cfg, zerolog.Nop(), deps, svcHealth)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)

	// the dev key from config authenticates
	req := httptest.NewRequest(http.MethodGet, "/api/sorting", nil)
	req.Header.Set("Authorization", "Bearer "+cfg.DevAPIKey)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

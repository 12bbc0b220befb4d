package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Liveness(t *testing.T) {
	e := newEcho()
	rec := serve(e, NewHealthHandler().Liveness, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec.Body.Bytes())["status"])
}

func TestHealth_Readiness(t *testing.T) {
	e := newEcho()
	up := DependencyCheck{Name: "mongodb", Ping: func(context.Context) error { return nil }}
	down := DependencyCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }}

	rec := serve(e, NewHealthDependenciesHandler(up).Readiness, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec.Body.Bytes())["status"])

	rec = serve(e, NewHealthDependenciesHandler(up, down).Readiness, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec.Body.Bytes())
	assert.Equal(t, "degraded", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["mongodb"].(map[string]any)["status"])
	assert.Equal(t, "unhealthy", deps["redis"].(map[string]any)["status"])
}

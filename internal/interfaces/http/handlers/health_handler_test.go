package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caselens/claimsift/pkg/errors"
)

func newHealthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func TestLivenessAlwaysOK(t *testing.T) {
	failing := CheckerFunc{CheckerName: "postgres", Fn: func(context.Context) error {
		return errors.New(errors.ErrCodeDatabaseError, "down")
	}}
	h := NewHealthHandler("1.2.3", failing)

	w := doJSON(t, newHealthRouter(h), http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestReadinessAllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	h := NewHealthHandler("1.2.3",
		CheckerFunc{CheckerName: "postgres", Fn: ok},
		CheckerFunc{CheckerName: "redis", Fn: ok},
	)

	w := doJSON(t, newHealthRouter(h), http.MethodGet, "/readyz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status     string                    `json:"status"`
		Components map[string]ComponentCheck `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Components["postgres"].Status)
	assert.Equal(t, "ok", body.Components["redis"].Status)
}

func TestReadinessOneFailureYields503(t *testing.T) {
	h := NewHealthHandler("1.2.3",
		CheckerFunc{CheckerName: "postgres", Fn: func(context.Context) error { return nil }},
		CheckerFunc{CheckerName: "opensearch", Fn: func(context.Context) error {
			return errors.New(errors.ErrCodeSearchUnavailable, "cluster red")
		}},
	)

	w := doJSON(t, newHealthRouter(h), http.MethodGet, "/readyz", nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status     string                    `json:"status"`
		Components map[string]ComponentCheck `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "ok", body.Components["postgres"].Status)
	assert.Equal(t, "unavailable", body.Components["opensearch"].Status)
	assert.Contains(t, body.Components["opensearch"].Error, "cluster red")
}

func TestReadinessNoCheckersIsReady(t *testing.T) {
	h := NewHealthHandler("dev")

	w := doJSON(t, newHealthRouter(h), http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

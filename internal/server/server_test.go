package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glidepath/glidepath/internal/executor"
	"github.com/glidepath/glidepath/internal/graph"
)

type fakeSource struct {
	nodes []executor.NodeHealth
}

func (f *fakeSource) Health(_ context.Context, _ ...graph.Stage) []executor.NodeHealth {
	return f.nodes
}

func TestStatusEndpoint(t *testing.T) {
	source := &fakeSource{nodes: []executor.NodeHealth{
		{ID: "network", Stage: graph.StageInfra, State: graph.StateReady},
		{ID: "workload", Stage: graph.StageApp, State: graph.StateCreating, Detail: "ready replicas: 1/2"},
	}}
	router := NewRouter("dev", source, []graph.Stage{graph.StageInfra, graph.StageApp},
		slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dev", resp.Environment)
	require.Len(t, resp.Nodes, 2)
	assert.Equal(t, "network", resp.Nodes[0].ID)
	assert.Equal(t, graph.StateReady, resp.Nodes[0].State)
	assert.Equal(t, "ready replicas: 1/2", resp.Nodes[1].Detail)
	assert.False(t, resp.CheckedAt.IsZero())
}

func TestHealthEndpoint(t *testing.T) {
	router := NewRouter("dev", &fakeSource{}, nil, slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","component":"glidepath"}`, rec.Body.String())
}

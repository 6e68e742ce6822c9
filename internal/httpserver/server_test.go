package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_pricing_extractor/internal/app"
	"github.com/ncecere/model_pricing_extractor/internal/config"
)

func newTestServer(t *testing.T, redisClient *redis.Client) *Server {
	t.Helper()
	cfg := &config.Config{
		Server:        config.ServerConfig{BodyLimitMB: 1},
		LLM:           config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Predefined:    config.PredefinedConfig{Targets: config.DefaultTargets()},
		Observability: config.ObservabilityConfig{EnableMetrics: true},
	}
	container, err := app.NewContainer(context.Background(), cfg, nil, redisClient)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	server, err := New(container)
	require.NoError(t, err)
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNewRequiresContainer(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = New(&app.Container{})
	require.Error(t, err)
}

func TestHealthzReportsUnconfiguredPipeline(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	server := newTestServer(t, client)
	status, body := get(t, server, "/healthz")
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	require.Equal(t, "degraded", payload.Status)
	require.Equal(t, "unconfigured", payload.Checks["extraction"]["status"])
	require.Equal(t, "ok", payload.Checks["redis"]["status"])
}

func TestMetricsEndpointExposesHTTPCounters(t *testing.T) {
	server := newTestServer(t, nil)

	status, _ := get(t, server, "/api/v1/targets")
	require.Equal(t, http.StatusOK, status)

	status, body := get(t, server, "/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "model_pricing_extractor_http_requests_total")
}

func TestEmbeddedUIServed(t *testing.T) {
	server := newTestServer(t, nil)

	status, body := get(t, server, "/")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Quick Extract")
	require.Contains(t, body, "Custom Extraction")
	require.Contains(t, body, "About")

	status, body = get(t, server, "/app.js")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "/api/v1/pricing/custom")
}

package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthz_FollowsStoreReadiness(t *testing.T) {
	h := NewHealthChecker(zap.NewNop())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	get := func() int {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusServiceUnavailable, get())

	h.SetStoreReady(true)
	assert.Equal(t, http.StatusOK, get())

	resp, err := h.grpcHealth.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)

	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, http.StatusServiceUnavailable, get())
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewHealthChecker(zap.NewNop())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

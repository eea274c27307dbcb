package observability

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthChecker serves gRPC health, HTTP /healthz and /metrics.
type HealthChecker struct {
	grpcHealth *health.Server
	httpServer *http.Server
	logger     *zap.Logger
	mu         sync.RWMutex
	ready      bool
	storeReady bool
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		grpcHealth: health.NewServer(),
		logger:     logger,
		ready:      true,
	}
}

// RegisterGRPC registers the health service with the gRPC server
func (h *HealthChecker) RegisterGRPC(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.grpcHealth)
	h.grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Handler returns the HTTP routes.
func (h *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// StartHTTPServer starts the HTTP health and metrics server
func (h *HealthChecker) StartHTTPServer(addr string) error {
	h.mu.Lock()
	h.httpServer = &http.Server{
		Addr:    addr,
		Handler: h.Handler(),
	}
	srv := h.httpServer
	h.mu.Unlock()

	h.logger.Info("starting HTTP health server", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the health checker
func (h *HealthChecker) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.ready = false
	h.grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	srv := h.httpServer
	h.mu.Unlock()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// SetStoreReady records whether the destination store answered the last
// resume position query.
func (h *HealthChecker) SetStoreReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.storeReady = ready

	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if h.ready && ready {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	h.grpcHealth.SetServingStatus("", status)
}

func (h *HealthChecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ok := h.ready && h.storeReady
	h.mu.RUnlock()

	if ok {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("NOT_READY"))
	}
}

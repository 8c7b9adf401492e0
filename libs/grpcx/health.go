package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/homefix/calbook/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes grpc.health.v1 for service, with the status driven by
// the same dependency checks as /readyz.
type HealthServer struct {
	service  string
	checks   []runtime.ReadyCheck
	interval time.Duration
	logger   *slog.Logger
	health   *health.Server
	srv      *grpc.Server
}

func NewHealthServer(logger *slog.Logger, service string, interval time.Duration, checks ...runtime.ReadyCheck) *HealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryServerRequestIDInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return &HealthServer{
		service:  service,
		checks:   checks,
		interval: interval,
		logger:   logger,
		health:   hs,
		srv:      srv,
	}
}

// Serve listens on addr until ctx is cancelled.
func (h *HealthServer) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	h.refresh(ctx)
	go h.watch(ctx)
	go func() {
		<-ctx.Done()
		h.health.Shutdown()
		h.srv.GracefulStop()
	}()

	h.logger.Info("grpc health server starting", "addr", lis.Addr().String())
	return h.srv.Serve(lis)
}

func (h *HealthServer) watch(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refresh(ctx)
		}
	}
}

func (h *HealthServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if failures := runtime.RunChecks(ctx, h.checks); len(failures) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("readiness checks failing", "failures", failures)
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(h.service, status)
}

package main

import (
	"context"
	"errors"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// catalogService is the service name reported by the health endpoint in
// addition to the overall ("") status.
const catalogService = "portal.Catalog"

const healthProbeInterval = 15 * time.Second

// catalogProber is the store check behind the health status.
type catalogProber interface {
	Counts(ctx context.Context) (widgets, dashboards int64, err error)
}

// healthServer exposes grpc.health.v1 for orchestrators. The catalog status
// follows a periodic store probe.
type healthServer struct {
	lis    net.Listener
	grpc   *grpc.Server
	health *health.Server
	store  catalogProber
}

func newHealthServer(addr string, store catalogProber) (*healthServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	hs := &healthServer{
		lis:    lis,
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		store:  store,
	}
	healthpb.RegisterHealthServer(hs.grpc, hs.health)
	hs.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.health.SetServingStatus(catalogService, healthpb.HealthCheckResponse_NOT_SERVING)
	return hs, nil
}

// Addr returns the bound listen address.
func (h *healthServer) Addr() string { return h.lis.Addr().String() }

// Serve blocks until ctx is done, then drains and stops the server.
func (h *healthServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.grpc.Serve(h.lis) }()

	h.probe(ctx)
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			h.grpc.GracefulStop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return err
		case <-ticker.C:
			h.probe(ctx)
		}
	}
}

func (h *healthServer) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if _, _, err := h.store.Counts(pctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("health: catalog probe: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(catalogService, status)
}

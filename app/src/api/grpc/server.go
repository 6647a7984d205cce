package grpcapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

// NewServer constructs a gRPC server exposing the standard health protocol.
// Orchestrators probe this port instead of parsing the HTTP health body.
func NewServer(store domain.MeasurementStore, logger *infra.Logger) *grpc.Server {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	healthpb.RegisterHealthServer(server, &healthServer{store: store})
	return server
}

type healthServer struct {
	healthpb.UnimplementedHealthServer
	store domain.MeasurementStore
}

// Check probes the storage backend live on every call.
func (s *healthServer) Check(ctx context.Context, _ *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	return &healthpb.HealthCheckResponse{Status: status}, nil
}

// Watch reports the current status once; streaming updates are not kept.
func (s *healthServer) Watch(req *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	resp, err := s.Check(stream.Context(), req)
	if err != nil {
		return err
	}
	return stream.Send(resp)
}

func loggingInterceptor(logger *infra.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if logger != nil {
			if err != nil {
				logger.Printf(ctx, "gRPC %s failed in %s: %v", info.FullMethod, time.Since(start), err)
			} else {
				logger.Printf(ctx, "gRPC %s completed in %s", info.FullMethod, time.Since(start))
			}
		}
		return resp, err
	}
}

package grpc

import (
	"github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/grpc/middleware"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewGRPCServer builds the operational gRPC server: standard health checking
// plus reflection. The health status is SERVING until cleanup runs.
func NewGRPCServer(appLogger *logger.Logger) (*grpc.Server, func()) {
	log := appLogger.Named("GRPCServer")

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(middleware.LoggingInterceptor(log)),
		grpc.ChainStreamInterceptor(middleware.StreamLoggingInterceptor(log)),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	log.Info("gRPC server configured with health and reflection services")

	cleanup := func() {
		log.Info("Marking gRPC health NOT_SERVING and stopping server")
		healthServer.Shutdown()
		server.GracefulStop()
		log.Info("gRPC server GracefulStop completed")
	}
	return server, cleanup
}

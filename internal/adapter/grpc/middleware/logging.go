package middleware

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(log, info.FullMethod, time.Since(start), err)
		return resp, err
	}
}

// StreamLoggingInterceptor logs when a stream ends, e.g. a health Watch.
func StreamLoggingInterceptor(log *logger.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(log, info.FullMethod, time.Since(start), err)
		return err
	}
}

func logCall(log *logger.Logger, method string, duration time.Duration, err error) {
	if err != nil {
		log.Error("gRPC request failed",
			zap.String("method", method),
			zap.Duration("duration", duration),
			zap.String("code", status.Code(err).String()),
			zap.Error(err),
		)
		return
	}
	log.Info("gRPC request completed", zap.String("method", method), zap.Duration("duration", duration))
}

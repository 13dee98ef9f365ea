package interceptor

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
)

const requestIDHeader = "x-request-id"

// Metrics is the outermost interceptor: it tags the request logger with a
// request id and records the final status code of every call.
func Metrics() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		done := metrics.RPCStarted(info.FullMethod)

		requestID := uuid.NewString()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get(requestIDHeader); len(v) > 0 && v[0] != "" {
				requestID = v[0]
			}
		}
		ctx = logger.WithContext(ctx, "request_id", requestID, "rpc", info.FullMethod)

		resp, err := handler(ctx, req)
		code := status.Code(err)
		done(code)
		if err != nil {
			logger.DebugContext(ctx, "rpc failed", "code", code.String())
		}
		return resp, err
	}
}

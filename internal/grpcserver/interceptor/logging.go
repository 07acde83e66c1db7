package interceptor

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/schoolproject/internal/logger"
)

// UnaryLoggingInterceptor logs method, duration and status code of the listed
// methods. Calls that end with Internal or Unavailable are logged as warnings.
func UnaryLoggingInterceptor(loggedMethods []string) grpc.UnaryServerInterceptor {
	logged := make(map[string]struct{}, len(loggedMethods))
	for _, m := range loggedMethods {
		logged[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := logged[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		st, _ := status.FromError(err)

		fields := []interface{}{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", st.Code().String()),
		}
		switch st.Code() {
		case codes.Internal, codes.Unavailable:
			logger.Log.Warnw("gRPC request failed", append(fields, zap.String("message", st.Message()))...)
		default:
			logger.Log.Infow("gRPC request", fields...)
		}

		return resp, err
	}
}

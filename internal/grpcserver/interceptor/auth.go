// Package interceptor holds the unary interceptors of the course catalog.
package interceptor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/schoolproject/internal/auth"
	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/logger"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

type authenticator interface {
	GetUserIDFromToken(tokenString string) (string, error)
}

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

type AuthInterceptor struct {
	auth authenticator
	db   userKeeper
}

func NewAuthInterceptor(auth authenticator, db userKeeper) *AuthInterceptor {
	return &AuthInterceptor{auth: auth, db: db}
}

// UnaryAuthInterceptor requires the "authorization" metadata on protectedMethods.
// Its value is a session cookie value; the resolved user id is attached to the
// context under auth.UserIDKey.
func (a *AuthInterceptor) UnaryAuthInterceptor(protectedMethods []string) grpc.UnaryServerInterceptor {
	protected := make(map[string]struct{}, len(protectedMethods))
	for _, m := range protectedMethods {
		protected[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		authHeader := md.Get("authorization")
		if len(authHeader) == 0 || authHeader[0] == "" {
			return nil, status.Error(codes.Unauthenticated, "authorization metadata is required")
		}

		userID, err := a.auth.GetUserIDFromToken(authHeader[0])
		if err != nil {
			logger.Log.Debugln("Error calling the `a.auth.GetUserIDFromToken()`: ", zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "invalid session")
		}

		usr, err := a.db.GetUserByID(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, status.Error(codes.Unauthenticated, "unknown user")
		}
		if err != nil {
			logger.Log.Debugln("Error calling the `a.db.GetUserByID()`: ", zap.Error(err))
			return nil, status.Errorf(codes.Internal, "failed to resolve the session user")
		}

		ctxWithUser := context.WithValue(ctx, auth.UserIDKey, usr.ID)
		return handler(ctxWithUser, req)
	}
}

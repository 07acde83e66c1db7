// Package grpcserver serves the course catalog over gRPC next to the HTTP portal.
package grpcserver

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/schoolproject/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

type authenticator interface {
	GetUserIDFromToken(tokenString string) (string, error)
}

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
}

// NewServer builds the gRPC server with logging and session interceptors.
func NewServer(
	handler CourseCatalogServer,
	auth authenticator,
	db userKeeper,
) *grpc.Server {
	authInterceptor := interceptor.NewAuthInterceptor(auth, db)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor([]string{
				FullMethodListCourses,
				FullMethodCreateCourse,
				FullMethodPing,
			}),
			authInterceptor.UnaryAuthInterceptor([]string{
				FullMethodCreateCourse,
			}),
		),
	)
	RegisterCourseCatalogServer(server, handler)

	return server
}

// NewGRPCServer builds the server and the listener on addr.
func NewGRPCServer(
	addr string,
	handler CourseCatalogServer,
	auth authenticator,
	db userKeeper,
) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("in internal/grpcserver/server.go/NewGRPCServer(): error while `net.Listen()` calling: %w", err)
	}

	return NewServer(handler, auth, db), lis, nil
}

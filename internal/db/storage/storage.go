// Package storage declares the contract every persistence backend satisfies
// and the sentinel errors they report.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

// ErrNotFound is returned when a lookup does not resolve to a record.
var ErrNotFound = errors.New("storage: not found")

// ErrDuplicateKey is returned when a write violates a uniqueness constraint
// (username, email or course name).
var ErrDuplicateKey = errors.New("storage: duplicate key")

type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string) (*user.User, error)

	CreateCourse(ctx context.Context, course *models.Course) (string, error)

	GetCourses(ctx context.Context) ([]models.Course, error)

	GetCourseByName(ctx context.Context, name string) (*models.Course, error)

	AttachOwnedCourses(ctx context.Context, usersCourses map[string][]string) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfCourses(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}

// Package service holds the decision logic behind the HTTP and gRPC handlers:
// registration, authentication, session resolution and course management.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/password"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

type usersKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (string, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

type coursesKeeper interface {
	CreateCourse(ctx context.Context, course *models.Course) (string, error)

	GetCourses(ctx context.Context) ([]models.Course, error)
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfCourses(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type store interface {
	usersKeeper
	coursesKeeper
	statsKeeper
	pinger
}

type passwordHasher interface {
	Hash(plain string) (string, error)

	Verify(hash, plain string) error
}

type ownershipSyncer interface {
	EnqueueJob(job *models.OwnershipJob)
}

// ErrNotFound is returned when a username or a session id does not resolve to a user.
var ErrNotFound = storage.ErrNotFound

// ErrDuplicateKey is returned when a username, email or course name is taken.
var ErrDuplicateKey = storage.ErrDuplicateKey

// ErrInvalidCredentials is returned by Authenticate when the password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNotAuthenticated is returned when an operation needs a session and there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

type Service struct {
	db              store
	hasher          passwordHasher
	ownershipSyncer ownershipSyncer
}

func New(
	db store,
	hasher passwordHasher,
	ownershipSyncer ownershipSyncer,
) *Service {
	return &Service{
		db:              db,
		hasher:          hasher,
		ownershipSyncer: ownershipSyncer,
	}
}

// Register hashes the password and stores a new user. Input is not validated;
// the store rejects what it cannot keep.
func (s *Service) Register(ctx context.Context, request models.RegisterRequest) (string, error) {
	hash, err := s.hasher.Hash(request.Password)
	if err != nil {
		return "", fmt.Errorf("in internal/service/service.go/Register(): error while `s.hasher.Hash()` calling: %w", err)
	}

	userID, err := s.db.CreateUser(ctx, &user.User{
		Username:     request.Username,
		Email:        request.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return "", fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return userID, nil
}

// Authenticate resolves the username and checks the password. It returns
// ErrNotFound for an unknown username and ErrInvalidCredentials for a wrong
// password.
func (s *Service) Authenticate(ctx context.Context, request models.LoginRequest) (*user.User, error) {
	usr, err := s.db.GetUserByUsername(ctx, request.Username)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Authenticate(): error while `s.db.GetUserByUsername()` calling: %w", err)
	}

	err = s.hasher.Verify(usr.PasswordHash, request.Password)
	if errors.Is(err, password.ErrMismatch) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Authenticate(): error while `s.hasher.Verify()` calling: %w", err)
	}

	return usr, nil
}

// CurrentUser resolves the id carried by the session cookie. An empty id is
// ErrNotFound, same as an id the store does not know.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*user.User, error) {
	if userID == "" {
		return nil, ErrNotFound
	}

	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/CurrentUser(): error while `s.db.GetUserByID()` calling: %w", err)
	}

	return usr, nil
}

// ListCourses returns every course in store order.
func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.db.GetCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/ListCourses(): error while `s.db.GetCourses()` calling: %w", err)
	}

	return courses, nil
}

// CreateCourse stores a course owned by ownerID and queues the link from the
// owner's record to the new course. The owner id is taken on trust.
func (s *Service) CreateCourse(ctx context.Context, ownerID string, request models.CreateCourseRequest) (string, error) {
	if ownerID == "" {
		return "", ErrNotAuthenticated
	}

	courseID, err := s.db.CreateCourse(ctx, &models.Course{
		Name:        request.Name,
		Description: request.Description,
		OwnerID:     ownerID,
	})
	if err != nil {
		return "", fmt.Errorf("in internal/service/service.go/CreateCourse(): error while `s.db.CreateCourse()` calling: %w", err)
	}

	if s.ownershipSyncer != nil {
		s.ownershipSyncer.EnqueueJob(&models.OwnershipJob{
			UserID:   ownerID,
			CourseID: courseID,
		})
	}

	return courseID, nil
}

// SeedCourse inserts the ownerless starter course. It reports false without an
// error when the course is already there.
func (s *Service) SeedCourse(ctx context.Context) (bool, error) {
	_, err := s.db.CreateCourse(ctx, &models.Course{
		Name:        models.SeedCourseName,
		Description: models.SeedCourseDescription,
	})
	if errors.Is(err, ErrDuplicateKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("in internal/service/service.go/SeedCourse(): error while `s.db.CreateCourse()` calling: %w", err)
	}

	return true, nil
}

// Profile returns the user behind userID and the courses they own.
func (s *Service) Profile(ctx context.Context, userID string) (*user.User, []models.Course, error) {
	usr, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	courses, err := s.ListCourses(ctx)
	if err != nil {
		return nil, nil, err
	}

	owned := funk.Filter(courses, func(course models.Course) bool {
		return course.OwnerID == usr.ID || usr.OwnsCourse(course.ID)
	}).([]models.Course)

	return usr, owned, nil
}

// GetInternalStats returns the number of courses and users.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	courses, err := s.db.GetNumberOfCourses(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		Courses: courses,
		Users:   users,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

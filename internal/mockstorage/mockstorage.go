// Package mockstorage provides a testify mock of storage.Storage for service,
// router and gRPC tests that need to force store failures.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

// StorageMock implements storage.Storage on top of testify's mock.Mock.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers, when set, replaces the generic handler of GetNumberOfUsers.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfCourses, when set, replaces the generic handler of GetNumberOfCourses.
	OnGetNumberOfCourses func(ctx context.Context) (int64, error)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) CreateCourse(ctx context.Context, course *models.Course) (string, error) {
	args := m.Called(ctx, course)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetCourses(ctx context.Context) ([]models.Course, error) {
	args := m.Called(ctx)
	courses, _ := args.Get(0).([]models.Course)
	return courses, args.Error(1)
}

func (m *StorageMock) GetCourseByName(ctx context.Context, name string) (*models.Course, error) {
	args := m.Called(ctx, name)
	course, _ := args.Get(0).(*models.Course)
	return course, args.Error(1)
}

func (m *StorageMock) AttachOwnedCourses(ctx context.Context, usersCourses map[string][]string) error {
	args := m.Called(ctx, usersCourses)
	return args.Error(0)
}

// GetNumberOfUsers delegates to OnGetNumberOfUsers when it is set.
func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// GetNumberOfCourses delegates to OnGetNumberOfCourses when it is set.
func (m *StorageMock) GetNumberOfCourses(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfCourses != nil {
		return m.OnGetNumberOfCourses(ctx)
	}
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

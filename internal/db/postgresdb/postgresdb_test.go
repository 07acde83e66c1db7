package postgresdb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

const migrationsDir = `../../../cmd/school/migrations`

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "pgx unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "pgx foreign key violation", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "lib/pq unique violation", err: &pq.Error{Code: "23505"}, want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}

	assert.ErrorIs(t, classifyError(&pgconn.PgError{Code: "23505"}), storage.ErrDuplicateKey)
}

func TestPrepareOwnershipPairsSkipsInvalidIDs(t *testing.T) {
	pairs := prepareOwnershipPairs(map[string][]string{
		"not-a-uuid": {"4b0c51a8-0b1f-4f5e-9d87-3b3a3c1d2e10"},
		"4b0c51a8-0b1f-4f5e-9d87-3b3a3c1d2e11": {
			"4b0c51a8-0b1f-4f5e-9d87-3b3a3c1d2e12",
			"forged",
		},
	})

	assert.Equal(t, [][]string{{
		"4b0c51a8-0b1f-4f5e-9d87-3b3a3c1d2e11",
		"4b0c51a8-0b1f-4f5e-9d87-3b3a3c1d2e12",
	}}, pairs)
}

func TestPostgresDB(t *testing.T) {
	databaseDSN := os.Getenv("TEST_DATABASE_DSN")
	if databaseDSN == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	ctx := context.Background()
	db, err := New(ctx, databaseDSN, 10*time.Second, migrationsDir, WithDBPreReset(true))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	require.NoError(t, db.Ping(ctx))

	userID, err := db.CreateUser(ctx, &user.User{Username: "ivan", Email: "ivan@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = db.CreateUser(ctx, &user.User{Username: "petr", Email: "ivan@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = db.GetUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	courseID, err := db.CreateCourse(ctx, &models.Course{Name: "Go", Description: "basics", OwnerID: userID})
	require.NoError(t, err)

	_, err = db.CreateCourse(ctx, &models.Course{Name: "Go", Description: "other", OwnerID: userID})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = db.CreateCourse(ctx, &models.Course{Name: models.SeedCourseName})
	require.NoError(t, err, "A course without an owner should be accepted")

	require.NoError(t, db.AttachOwnedCourses(ctx, map[string][]string{userID: {courseID, courseID}}))

	usr, err := db.GetUserByUsername(ctx, "ivan")
	require.NoError(t, err)
	assert.Equal(t, []string{courseID}, usr.OwnedCourses)

	courses, err := db.GetCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Go", courses[0].Name)
	assert.Equal(t, userID, courses[0].OwnerID)
	assert.Equal(t, "", courses[1].OwnerID)

	course, err := db.GetCourseByName(ctx, "Go")
	require.NoError(t, err)
	assert.Equal(t, "basics", course.Description)

	users, err := db.GetNumberOfUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), users)

	studentID, err := db.CreateUser(ctx, &user.User{Username: "masha", Email: "masha@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	withStudentsID, err := db.CreateCourse(ctx, &models.Course{
		Name:       "SQL",
		OwnerID:    userID,
		StudentIDs: []string{studentID, studentID},
	})
	require.NoError(t, err)

	_, err = db.CreateCourse(ctx, &models.Course{
		Name:       "Broken",
		OwnerID:    userID,
		StudentIDs: []string{"00000000-0000-0000-0000-000000000000"},
	})
	require.Error(t, err, "An unknown student should fail the whole course")

	_, err = db.GetCourseByName(ctx, "Broken")
	assert.ErrorIs(t, err, storage.ErrNotFound, "The failed course should be rolled back")

	courses, err = db.GetCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.Equal(t, withStudentsID, courses[2].ID)
	assert.Equal(t, []string{studentID}, courses[2].StudentIDs)
}

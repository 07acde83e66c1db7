package jsondb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/schoolproject/internal/db/storage"
	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		testDBFileName := filepath.Join(t.TempDir(), "db_test.json")

		theStorage, err := New(testDBFileName)
		require.NoError(t, err)
		require.NotNil(t, theStorage)

		ctx := context.Background()

		userID, err := theStorage.CreateUser(ctx, &user.User{
			Username:     "ivan",
			Email:        "ivan@example.com",
			PasswordHash: "hash",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, userID)

		_, err = theStorage.CreateUser(ctx, &user.User{Username: "ivan", Email: "other@example.com"})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey, "The username should be unique")

		_, err = theStorage.CreateUser(ctx, &user.User{Username: "petr", Email: "ivan@example.com"})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey, "The email should be unique")

		usr, err := theStorage.GetUserByUsername(ctx, "ivan")
		require.NoError(t, err)
		assert.Equal(t, userID, usr.ID)

		_, err = theStorage.GetUserByID(ctx, "unexistent")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		courseID, err := theStorage.CreateCourse(ctx, &models.Course{Name: "Go", Description: "basics", OwnerID: userID})
		require.NoError(t, err)

		_, err = theStorage.CreateCourse(ctx, &models.Course{Name: "Go", Description: "changed", OwnerID: "someone"})
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)

		course, err := theStorage.GetCourseByName(ctx, "Go")
		require.NoError(t, err)
		assert.Equal(t, "basics", course.Description, "The existing course should stay unchanged")

		err = theStorage.AttachOwnedCourses(ctx, map[string][]string{
			userID:       {courseID, courseID},
			"unexistent": {courseID},
		})
		require.NoError(t, err)

		err = theStorage.Close()
		require.NoError(t, err)

		reopened, err := New(testDBFileName)
		require.NoError(t, err)

		usr, err = reopened.GetUserByID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []string{courseID}, usr.OwnedCourses)

		courses, err := reopened.GetCourses(ctx)
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, courseID, courses[0].ID)

		users, err := reopened.GetNumberOfUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), users)

		err = reopened.Ping(ctx)
		assert.NoError(t, err, "The jsondb.Ping() should not return error")
	})
}

func TestNewWithBrokenFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(fileName, []byte("{not json"), 0644))

	_, err := New(fileName)
	assert.Error(t, err)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	theStorage, err := New(filepath.Join(t.TempDir(), "db_test.json"))
	require.NoError(t, err)

	ctx := context.Background()
	userID, err := theStorage.CreateUser(ctx, &user.User{Username: "a", Email: "a@example.com"})
	require.NoError(t, err)

	usr, err := theStorage.GetUserByID(ctx, userID)
	require.NoError(t, err)
	usr.Username = "mutated"

	again, err := theStorage.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Username)
}

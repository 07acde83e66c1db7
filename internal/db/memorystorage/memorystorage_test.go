package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/schoolproject/internal/models"
	"github.com/patric-chuzhbe/schoolproject/internal/user"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		theStorage, err := New()
		assert.NoError(t, err, "The memorystorage.New() should not return error")

		ctx := context.Background()

		courses, err := theStorage.GetCourses(ctx)
		require.NoError(t, err)
		assert.Empty(t, courses)

		userID, err := theStorage.CreateUser(ctx, &user.User{Username: "u", Email: "u@example.com"})
		require.NoError(t, err)

		_, err = theStorage.CreateCourse(ctx, &models.Course{Name: "first", OwnerID: userID})
		require.NoError(t, err)
		_, err = theStorage.CreateCourse(ctx, &models.Course{Name: "second", OwnerID: userID, StudentIDs: []string{userID}})
		require.NoError(t, err)

		courses, err = theStorage.GetCourses(ctx)
		require.NoError(t, err)
		require.Len(t, courses, 2)
		assert.Equal(t, "first", courses[0].Name)
		assert.Equal(t, "second", courses[1].Name)
		assert.Equal(t, []string{userID}, courses[1].StudentIDs)

		amount, err := theStorage.GetNumberOfCourses(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), amount)

		err = theStorage.Ping(ctx)
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})
}

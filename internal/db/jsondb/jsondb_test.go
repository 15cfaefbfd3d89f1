package jsondb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/user"
)

const (
	testDBFileName = "db_test.json"
)

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		ctx := context.Background()
		fileName := filepath.Join(t.TempDir(), testDBFileName)

		theStorage, err := New(fileName)
		require.NoError(t, err)
		require.NotNil(t, theStorage)

		djangoID, err := theStorage.CreateCategory(ctx, &models.Category{Name: "Django", Slug: "django"}, nil)
		assert.NoError(t, err, "The `theStorage.CreateCategory()` should not return error")
		pythonID, err := theStorage.CreateCategory(ctx, &models.Category{Name: "Python", Slug: "python", Likes: 64}, nil)
		assert.NoError(t, err)

		_, err = theStorage.CreateCategory(ctx, &models.Category{Name: "Django", Slug: "django"}, nil)
		assert.ErrorIs(t, err, models.ErrCategoryExists)

		category, found, err := theStorage.GetCategoryBySlug(ctx, "django")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, djangoID, category.ID)
		assert.Equal(t, "Django", category.Name)

		_, found, err = theStorage.GetCategoryBySlug(ctx, "nonexistent")
		assert.NoError(t, err)
		assert.False(t, found)

		top, err := theStorage.ListTopCategories(ctx, 5)
		assert.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, pythonID, top[0].ID, "categories should be ordered by likes descending")

		likes, err := theStorage.LikeCategory(ctx, djangoID)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), likes)
		_, err = theStorage.LikeCategory(ctx, 100)
		assert.ErrorIs(t, err, models.ErrCategoryNotFound)

		docsID, err := theStorage.CreatePage(
			ctx,
			&models.Page{CategoryID: djangoID, Title: "Official Docs", URL: "http://djangoproject.com"},
			nil,
		)
		assert.NoError(t, err)
		tutorialID, err := theStorage.CreatePage(
			ctx,
			&models.Page{CategoryID: pythonID, Title: "Tutorial", URL: "http://docs.python.org/tutorial"},
			nil,
		)
		assert.NoError(t, err)

		_, err = theStorage.CreatePage(ctx, &models.Page{CategoryID: 100, Title: "Orphan", URL: "http://x.org"}, nil)
		assert.ErrorIs(t, err, models.ErrCategoryNotFound)

		pages, err := theStorage.ListPagesByCategory(ctx, djangoID)
		assert.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "Official Docs", pages[0].Title)

		err = theStorage.IncrementPageViews(ctx, map[int64]int64{tutorialID: 3, docsID: 1, 100: 7})
		assert.NoError(t, err)

		topPages, err := theStorage.ListTopPages(ctx, 1)
		assert.NoError(t, err)
		require.Len(t, topPages, 1)
		assert.Equal(t, tutorialID, topPages[0].ID)
		assert.Equal(t, int64(3), topPages[0].Views)

		userID, err := theStorage.CreateUser(ctx, &user.User{Username: "leifos", PasswordHash: "hash", IsActive: true}, nil)
		assert.NoError(t, err)
		assert.NotEmpty(t, userID)

		_, err = theStorage.CreateUser(ctx, &user.User{Username: "leifos"}, nil)
		assert.ErrorIs(t, err, models.ErrUsernameTaken)

		usr, err := theStorage.GetUserByID(ctx, userID, nil)
		assert.NoError(t, err)
		assert.Equal(t, "leifos", usr.Username)
		assert.False(t, usr.DateJoined.IsZero())

		usr, err = theStorage.GetUserByID(ctx, "unknown", nil)
		assert.NoError(t, err)
		assert.Equal(t, &user.User{ID: ""}, usr)

		err = theStorage.CreateUserProfile(ctx, &models.UserProfile{UserID: userID, Website: "http://leifos.com"}, nil)
		assert.NoError(t, err)
		err = theStorage.CreateUserProfile(ctx, &models.UserProfile{UserID: userID}, nil)
		assert.Error(t, err, "a user has at most one profile")
		err = theStorage.CreateUserProfile(ctx, &models.UserProfile{UserID: "unknown"}, nil)
		assert.Error(t, err)

		err = theStorage.Ping(ctx)
		assert.NoError(t, err, "The jsondb.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The jsondb.Close() should not return error")

		reopened, err := New(fileName)
		require.NoError(t, err)

		category, found, err = reopened.GetCategoryBySlug(ctx, "django")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(1), category.Likes)

		profile, found, err := reopened.GetUserProfile(ctx, userID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "http://leifos.com", profile.Website)

		nextID, err := reopened.CreateCategory(ctx, &models.Category{Name: "Go", Slug: "go"}, nil)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), nextID, "ids keep counting after a reload")

		for _, count := range []func(context.Context) (int64, error){
			reopened.GetNumberOfCategories,
			reopened.GetNumberOfPages,
			reopened.GetNumberOfUsers,
		} {
			n, err := count(ctx)
			assert.NoError(t, err)
			assert.Positive(t, n)
		}
	})
}

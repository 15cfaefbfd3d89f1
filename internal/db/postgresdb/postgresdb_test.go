package postgresdb

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/user"
)

const dbConnectionTimeout = 10 * time.Second

func newTestDB(t *testing.T) *PostgresDB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	db, err := New(context.Background(), dsn, dbConnectionTimeout, WithDBPreReset(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	return db
}

func TestCategoriesAndPages(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Ping(ctx))

	djangoID, err := db.CreateCategory(ctx, &models.Category{Name: "Django", Slug: "django", Likes: 32}, nil)
	require.NoError(t, err)
	pythonID, err := db.CreateCategory(ctx, &models.Category{Name: "Python", Slug: "python", Likes: 64}, nil)
	require.NoError(t, err)

	_, err = db.CreateCategory(ctx, &models.Category{Name: "Django", Slug: "django-2"}, nil)
	assert.ErrorIs(t, err, models.ErrCategoryExists)

	category, found, err := db.GetCategoryBySlug(ctx, "django")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, djangoID, category.ID)

	longSlug := strings.Repeat("ss", 128)
	_, err = db.CreateCategory(ctx, &models.Category{Name: strings.Repeat("ß", 128), Slug: longSlug}, nil)
	require.NoError(t, err)
	category, found, err = db.GetCategoryBySlug(ctx, longSlug)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, strings.Repeat("ß", 128), category.Name)

	_, found, err = db.GetCategoryBySlug(ctx, "nonexistent")
	assert.NoError(t, err)
	assert.False(t, found)

	top, err := db.ListTopCategories(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, pythonID, top[0].ID)

	likes, err := db.LikeCategory(ctx, djangoID)
	assert.NoError(t, err)
	assert.Equal(t, int64(33), likes)
	_, err = db.LikeCategory(ctx, -1)
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)

	pageID, err := db.CreatePage(ctx, &models.Page{CategoryID: djangoID, Title: "Docs", URL: "http://djangoproject.com"}, nil)
	require.NoError(t, err)

	_, err = db.CreatePage(ctx, &models.Page{CategoryID: -1, Title: "Orphan", URL: "http://x.org"}, nil)
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)

	require.NoError(t, db.IncrementPageViews(ctx, map[int64]int64{pageID: 4, -1: 1}))

	page, found, err := db.GetPageByID(ctx, pageID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(4), page.Views)

	pages, err := db.ListPagesByCategory(ctx, pythonID)
	assert.NoError(t, err)
	assert.Empty(t, pages)

	topPages, err := db.ListTopPages(ctx, 5)
	require.NoError(t, err)
	require.Len(t, topPages, 1)
	assert.Equal(t, pageID, topPages[0].ID)
}

func TestUsersInTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	transaction, err := db.BeginTransaction()
	require.NoError(t, err)

	userID, err := db.CreateUser(ctx, &user.User{Username: "leifos", Email: "l@x.org", PasswordHash: "h", IsActive: true}, transaction)
	require.NoError(t, err)
	require.NoError(t, db.CreateUserProfile(ctx, &models.UserProfile{UserID: userID, Website: "http://leifos.com"}, transaction))
	require.NoError(t, db.CommitTransaction(transaction))

	usr, err := db.GetUserByID(ctx, userID, nil)
	require.NoError(t, err)
	assert.Equal(t, "leifos", usr.Username)
	assert.True(t, usr.IsActive)

	_, err = db.CreateUser(ctx, &user.User{Username: "leifos", PasswordHash: "h"}, nil)
	assert.ErrorIs(t, err, models.ErrUsernameTaken)

	require.NoError(t, db.SetUserActive(ctx, userID, false))
	usr, found, err := db.GetUserByUsername(ctx, "leifos")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, usr.IsActive)

	profile, found, err := db.GetUserProfile(ctx, userID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "http://leifos.com", profile.Website)

	transaction, err = db.BeginTransaction()
	require.NoError(t, err)
	_, err = db.CreateUser(ctx, &user.User{Username: "rolledback", PasswordHash: "h"}, transaction)
	require.NoError(t, err)
	require.NoError(t, db.RollbackTransaction(transaction))

	_, found, err = db.GetUserByUsername(ctx, "rolledback")
	assert.NoError(t, err)
	assert.False(t, found)

	users, err := db.GetNumberOfUsers(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), users)
}

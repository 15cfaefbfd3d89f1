// Package storage declares the full persistence contract implemented by
// the PostgreSQL, JSON file and in-memory backends.
package storage

import (
	"context"
	"database/sql"

	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/user"
)

type Storage interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error

	CreateCategory(
		ctx context.Context,
		category *models.Category,
		transaction *sql.Tx,
	) (int64, error)

	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, bool, error)

	GetCategoryByID(ctx context.Context, categoryID int64) (*models.Category, bool, error)

	ListTopCategories(ctx context.Context, limit int) ([]models.Category, error)

	LikeCategory(ctx context.Context, categoryID int64) (int64, error)

	CreatePage(
		ctx context.Context,
		page *models.Page,
		transaction *sql.Tx,
	) (int64, error)

	GetPageByID(ctx context.Context, pageID int64) (*models.Page, bool, error)

	ListPagesByCategory(ctx context.Context, categoryID int64) ([]models.Page, error)

	ListTopPages(ctx context.Context, limit int) ([]models.Page, error)

	IncrementPageViews(ctx context.Context, views map[int64]int64) error

	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)

	GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error)

	GetUserByUsername(ctx context.Context, username string) (*user.User, bool, error)

	CreateUserProfile(
		ctx context.Context,
		profile *models.UserProfile,
		transaction *sql.Tx,
	) error

	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, bool, error)

	GetNumberOfCategories(ctx context.Context) (int64, error)

	GetNumberOfPages(ctx context.Context) (int64, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}

// Package mockstorage provides a testify-based mock implementation
// of the storage interface. Service and router tests use it to
// simulate storage failures and to check what gets persisted.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/user"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock

	// OnGetNumberOfUsers, when set, replaces the generic mock handler of
	// GetNumberOfUsers. Unset, the method returns 0 and no error.
	OnGetNumberOfUsers func(ctx context.Context) (int64, error)

	// OnGetNumberOfCategories works the same way for GetNumberOfCategories.
	OnGetNumberOfCategories func(ctx context.Context) (int64, error)

	// OnGetNumberOfPages works the same way for GetNumberOfPages.
	OnGetNumberOfPages func(ctx context.Context) (int64, error)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// BeginTransaction mocks the beginning of a transaction.
func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

// CommitTransaction mocks committing a transaction.
func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

// RollbackTransaction mocks rolling back a transaction.
func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

func (m *StorageMock) CreateCategory(ctx context.Context, category *models.Category, tx *sql.Tx) (int64, error) {
	args := m.Called(ctx, category, tx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, bool, error) {
	args := m.Called(ctx, slug)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Bool(1), args.Error(2)
}

func (m *StorageMock) GetCategoryByID(ctx context.Context, categoryID int64) (*models.Category, bool, error) {
	args := m.Called(ctx, categoryID)
	category, _ := args.Get(0).(*models.Category)
	return category, args.Bool(1), args.Error(2)
}

func (m *StorageMock) ListTopCategories(ctx context.Context, limit int) ([]models.Category, error) {
	args := m.Called(ctx, limit)
	categories, _ := args.Get(0).([]models.Category)
	return categories, args.Error(1)
}

func (m *StorageMock) LikeCategory(ctx context.Context, categoryID int64) (int64, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) CreatePage(ctx context.Context, page *models.Page, tx *sql.Tx) (int64, error) {
	args := m.Called(ctx, page, tx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetPageByID(ctx context.Context, pageID int64) (*models.Page, bool, error) {
	args := m.Called(ctx, pageID)
	page, _ := args.Get(0).(*models.Page)
	return page, args.Bool(1), args.Error(2)
}

func (m *StorageMock) ListPagesByCategory(ctx context.Context, categoryID int64) ([]models.Page, error) {
	args := m.Called(ctx, categoryID)
	pages, _ := args.Get(0).([]models.Page)
	return pages, args.Error(1)
}

func (m *StorageMock) ListTopPages(ctx context.Context, limit int) ([]models.Page, error) {
	args := m.Called(ctx, limit)
	pages, _ := args.Get(0).([]models.Page)
	return pages, args.Error(1)
}

func (m *StorageMock) IncrementPageViews(ctx context.Context, views map[int64]int64) error {
	args := m.Called(ctx, views)
	return args.Error(0)
}

// CreateUser mocks user creation and returns a generated ID.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (string, error) {
	args := m.Called(ctx, usr, tx)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string, tx *sql.Tx) (*user.User, error) {
	args := m.Called(ctx, userID, tx)
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *StorageMock) GetUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) CreateUserProfile(ctx context.Context, profile *models.UserProfile, tx *sql.Tx) error {
	args := m.Called(ctx, profile, tx)
	return args.Error(0)
}

func (m *StorageMock) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Bool(1), args.Error(2)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfUsers != nil {
		return m.OnGetNumberOfUsers(ctx)
	}
	return 0, nil
}

func (m *StorageMock) GetNumberOfCategories(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfCategories != nil {
		return m.OnGetNumberOfCategories(ctx)
	}
	return 0, nil
}

func (m *StorageMock) GetNumberOfPages(ctx context.Context) (int64, error) {
	if m.OnGetNumberOfPages != nil {
		return m.OnGetNumberOfPages(ctx)
	}
	return 0, nil
}

// Package jsondb keeps the whole data set in memory and persists it to a
// JSON file when closed. It is the storage used when no database DSN is
// configured but a file path is.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type CacheStruct struct {
	Categories     map[int64]*models.Category
	Pages          map[int64]*models.Page
	Users          map[string]*user.User
	Profiles       map[string]*models.UserProfile
	NextCategoryID int64
	NextPageID     int64
}

// NewCache returns an empty data set ready for use.
func NewCache() CacheStruct {
	return CacheStruct{
		Categories:     map[int64]*models.Category{},
		Pages:          map[int64]*models.Page{},
		Users:          map[string]*user.User{},
		Profiles:       map[string]*models.UserProfile{},
		NextCategoryID: 1,
		NextPageID:     1,
	}
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New opens the JSON file, creating it with an empty data set when it
// does not exist yet.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    NewCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, err
		}
	}
	db.Cache.fillMissing()

	return db, nil
}

func (c *CacheStruct) fillMissing() {
	if c.Categories == nil {
		c.Categories = map[int64]*models.Category{}
	}
	if c.Pages == nil {
		c.Pages = map[int64]*models.Page{}
	}
	if c.Users == nil {
		c.Users = map[string]*user.User{}
	}
	if c.Profiles == nil {
		c.Profiles = map[string]*models.UserProfile{}
	}
	if c.NextCategoryID == 0 {
		c.NextCategoryID = 1
	}
	if c.NextPageID == 0 {
		c.NextPageID = 1
	}
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

func (db *JSONDB) Close() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (db *JSONDB) CreateCategory(
	ctx context.Context,
	category *models.Category,
	transaction *sql.Tx,
) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.Cache.Categories {
		if existing.Name == category.Name || existing.Slug == category.Slug {
			return 0, models.ErrCategoryExists
		}
	}

	stored := *category
	stored.ID = db.Cache.NextCategoryID
	db.Cache.NextCategoryID++
	db.Cache.Categories[stored.ID] = &stored

	return stored.ID, nil
}

func (db *JSONDB) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, category := range db.Cache.Categories {
		if category.Slug == slug {
			found := *category
			return &found, true, nil
		}
	}

	return nil, false, nil
}

func (db *JSONDB) GetCategoryByID(ctx context.Context, categoryID int64) (*models.Category, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	category, ok := db.Cache.Categories[categoryID]
	if !ok {
		return nil, false, nil
	}
	found := *category

	return &found, true, nil
}

func (db *JSONDB) ListTopCategories(ctx context.Context, limit int) ([]models.Category, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]models.Category, 0, len(db.Cache.Categories))
	for _, category := range db.Cache.Categories {
		result = append(result, *category)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Likes != result[j].Likes {
			return result[i].Likes > result[j].Likes
		}
		return result[i].ID < result[j].ID
	})

	return truncate(result, limit), nil
}

func (db *JSONDB) LikeCategory(ctx context.Context, categoryID int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	category, ok := db.Cache.Categories[categoryID]
	if !ok {
		return 0, models.ErrCategoryNotFound
	}
	category.Likes++

	return category.Likes, nil
}

func (db *JSONDB) CreatePage(
	ctx context.Context,
	page *models.Page,
	transaction *sql.Tx,
) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.Cache.Categories[page.CategoryID]; !ok {
		return 0, models.ErrCategoryNotFound
	}

	stored := *page
	stored.ID = db.Cache.NextPageID
	db.Cache.NextPageID++
	db.Cache.Pages[stored.ID] = &stored

	return stored.ID, nil
}

func (db *JSONDB) GetPageByID(ctx context.Context, pageID int64) (*models.Page, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	page, ok := db.Cache.Pages[pageID]
	if !ok {
		return nil, false, nil
	}
	found := *page

	return &found, true, nil
}

func (db *JSONDB) ListPagesByCategory(ctx context.Context, categoryID int64) ([]models.Page, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	pages := db.allPages()

	return funk.Filter(pages, func(page models.Page) bool {
		return page.CategoryID == categoryID
	}).([]models.Page), nil
}

func (db *JSONDB) ListTopPages(ctx context.Context, limit int) ([]models.Page, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := db.allPages()
	sort.Slice(result, func(i, j int) bool {
		if result[i].Views != result[j].Views {
			return result[i].Views > result[j].Views
		}
		return result[i].ID < result[j].ID
	})

	return truncate(result, limit), nil
}

func (db *JSONDB) IncrementPageViews(ctx context.Context, views map[int64]int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for pageID, delta := range views {
		if page, ok := db.Cache.Pages[pageID]; ok {
			page.Views += delta
		}
	}

	return nil
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.Cache.Users {
		if existing.Username == usr.Username {
			return "", models.ErrUsernameTaken
		}
	}

	stored := *usr
	stored.ID = uuid.New().String()
	if stored.DateJoined.IsZero() {
		stored.DateJoined = time.Now()
	}
	db.Cache.Users[stored.ID] = &stored

	return stored.ID, nil
}

// GetUserByID returns a user with an empty ID when nothing matches.
func (db *JSONDB) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, ok := db.Cache.Users[userID]
	if !ok {
		return &user.User{ID: ""}, nil
	}
	found := *usr

	return &found, nil
}

func (db *JSONDB) GetUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.Cache.Users {
		if usr.Username == username {
			found := *usr
			return &found, true, nil
		}
	}

	return nil, false, nil
}

// SetUserActive is not part of the storage contract; tests and maintenance
// code use it to disable accounts.
func (db *JSONDB) SetUserActive(ctx context.Context, userID string, active bool) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, ok := db.Cache.Users[userID]
	if !ok {
		return fmt.Errorf("user %q not found", userID)
	}
	usr.IsActive = active

	return nil
}

func (db *JSONDB) CreateUserProfile(
	ctx context.Context,
	profile *models.UserProfile,
	transaction *sql.Tx,
) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.Cache.Users[profile.UserID]; !ok {
		return fmt.Errorf("user %q not found", profile.UserID)
	}
	if _, ok := db.Cache.Profiles[profile.UserID]; ok {
		return fmt.Errorf("user %q already has a profile", profile.UserID)
	}

	stored := *profile
	db.Cache.Profiles[stored.UserID] = &stored

	return nil
}

func (db *JSONDB) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	profile, ok := db.Cache.Profiles[userID]
	if !ok {
		return nil, false, nil
	}
	found := *profile

	return &found, true, nil
}

func (db *JSONDB) GetNumberOfCategories(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Categories)), nil
}

func (db *JSONDB) GetNumberOfPages(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Pages)), nil
}

func (db *JSONDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) allPages() []models.Page {
	result := make([]models.Page, 0, len(db.Cache.Pages))
	for _, page := range db.Cache.Pages {
		result = append(result, *page)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result
}

func truncate[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}

	return items
}

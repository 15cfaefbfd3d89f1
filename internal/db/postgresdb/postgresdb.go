// Package postgresdb provides a PostgreSQL-based implementation of the storage interface
// for categories, pages, user accounts and their profiles.
// It supports transactional operations and runs its own schema migrations.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/user"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	migrationsDir       = "migrations"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresDB is a PostgreSQL-backed implementation of the rango storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migration.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs the embedded schema migrations, and returns a configured PostgresDB instance.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w",
				err,
			)
	}

	return result, nil
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}

	return transaction
}

func (db *PostgresDB) executorFor(transaction *sql.Tx) executor {
	if transaction == nil {
		return db.database
	}

	return transaction
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

// CreateCategory inserts a category and returns its id.
// A name or slug collision is reported as models.ErrCategoryExists.
func (db *PostgresDB) CreateCategory(
	ctx context.Context,
	category *models.Category,
	transaction *sql.Tx,
) (int64, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO categories (name, slug, views, likes)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		category.Name,
		category.Slug,
		category.Views,
		category.Likes,
	)
	var id int64
	err := row.Scan(&id)
	if err != nil {
		if pgErrorCode(err) == uniqueViolation {
			return 0, models.ErrCategoryExists
		}
		return 0, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/CreateCategory(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return id, nil
}

func scanCategory(row *sql.Row) (*models.Category, bool, error) {
	category := &models.Category{}
	err := row.Scan(&category.ID, &category.Name, &category.Slug, &category.Views, &category.Likes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return category, true, nil
}

// GetCategoryBySlug looks a category up by its slug.
func (db *PostgresDB) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, bool, error) {
	return scanCategory(
		db.database.QueryRowContext(
			ctx,
			`SELECT id, name, slug, views, likes FROM categories WHERE slug = $1`,
			slug,
		),
	)
}

// GetCategoryByID looks a category up by its id.
func (db *PostgresDB) GetCategoryByID(ctx context.Context, categoryID int64) (*models.Category, bool, error) {
	return scanCategory(
		db.database.QueryRowContext(
			ctx,
			`SELECT id, name, slug, views, likes FROM categories WHERE id = $1`,
			categoryID,
		),
	)
}

// ListTopCategories returns at most limit categories, most liked first.
func (db *PostgresDB) ListTopCategories(ctx context.Context, limit int) ([]models.Category, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT id, name, slug, views, likes
				FROM categories
				ORDER BY likes DESC, id ASC
				LIMIT $1
		`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Category{}
	for rows.Next() {
		var category models.Category
		err = rows.Scan(&category.ID, &category.Name, &category.Slug, &category.Views, &category.Likes)
		if err != nil {
			return nil, err
		}
		result = append(result, category)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// LikeCategory increments the likes of a category and returns the new value.
func (db *PostgresDB) LikeCategory(ctx context.Context, categoryID int64) (int64, error) {
	row := db.database.QueryRowContext(
		ctx,
		`UPDATE categories SET likes = likes + 1 WHERE id = $1 RETURNING likes`,
		categoryID,
	)
	var likes int64
	err := row.Scan(&likes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, models.ErrCategoryNotFound
		}
		return 0, err
	}

	return likes, nil
}

// CreatePage inserts a page and returns its id.
// A missing parent category is reported as models.ErrCategoryNotFound.
func (db *PostgresDB) CreatePage(
	ctx context.Context,
	page *models.Page,
	transaction *sql.Tx,
) (int64, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO pages (category_id, title, url, views)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		page.CategoryID,
		page.Title,
		page.URL,
		page.Views,
	)
	var id int64
	err := row.Scan(&id)
	if err != nil {
		if pgErrorCode(err) == foreignKeyViolation {
			return 0, models.ErrCategoryNotFound
		}
		return 0, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/CreatePage(): error while `row.Scan()` calling: %w",
			err,
		)
	}

	return id, nil
}

// GetPageByID looks a page up by its id.
func (db *PostgresDB) GetPageByID(ctx context.Context, pageID int64) (*models.Page, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, category_id, title, url, views FROM pages WHERE id = $1`,
		pageID,
	)
	page := &models.Page{}
	err := row.Scan(&page.ID, &page.CategoryID, &page.Title, &page.URL, &page.Views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return page, true, nil
}

func (db *PostgresDB) queryPages(ctx context.Context, query string, args ...interface{}) ([]models.Page, error) {
	rows, err := db.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Page{}
	for rows.Next() {
		var page models.Page
		err = rows.Scan(&page.ID, &page.CategoryID, &page.Title, &page.URL, &page.Views)
		if err != nil {
			return nil, err
		}
		result = append(result, page)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListPagesByCategory returns every page filed under the category.
func (db *PostgresDB) ListPagesByCategory(ctx context.Context, categoryID int64) ([]models.Page, error) {
	return db.queryPages(
		ctx,
		`SELECT id, category_id, title, url, views FROM pages WHERE category_id = $1 ORDER BY id`,
		categoryID,
	)
}

// ListTopPages returns at most limit pages, most viewed first.
func (db *PostgresDB) ListTopPages(ctx context.Context, limit int) ([]models.Page, error) {
	return db.queryPages(
		ctx,
		`
			SELECT id, category_id, title, url, views
				FROM pages
				ORDER BY views DESC, id ASC
				LIMIT $1
		`,
		limit,
	)
}

// IncrementPageViews adds every delta to the matching page in a single statement.
// Unknown page ids are ignored.
func (db *PostgresDB) IncrementPageViews(ctx context.Context, views map[int64]int64) error {
	if len(views) == 0 {
		return nil
	}

	pageIDs := funk.Keys(views).([]int64)
	placeholders := make([]string, len(pageIDs))
	queryParams := make([]interface{}, 0, len(pageIDs)*2)
	for i, pageID := range pageIDs {
		placeholders[i] = fmt.Sprintf("($%d::bigint, $%d::bigint)", i*2+1, i*2+2)
		queryParams = append(queryParams, pageID, views[pageID])
	}

	_, err := db.database.ExecContext(
		ctx,
		fmt.Sprintf(
			`
				UPDATE pages
					SET views = pages.views + deltas.delta
					FROM (VALUES %s) AS deltas (id, delta)
					WHERE pages.id = deltas.id
			`,
			strings.Join(placeholders, ","),
		),
		queryParams...,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/IncrementPageViews(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// CreateUser inserts a new user record into the database.
// Returns the created user ID or models.ErrUsernameTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO users (username, email, password_hash, is_active)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		usr.Username,
		usr.Email,
		usr.PasswordHash,
		usr.IsActive,
	)
	var userIDFromDB string
	err := row.Scan(&userIDFromDB)
	if err != nil {
		if pgErrorCode(err) == uniqueViolation {
			return "", models.ErrUsernameTaken
		}
		return "", err
	}

	return userIDFromDB, nil
}

const selectUser = `SELECT id, username, email, password_hash, is_active, date_joined FROM users`

func scanUser(row *sql.Row) (*user.User, bool, error) {
	usr := &user.User{}
	err := row.Scan(&usr.ID, &usr.Username, &usr.Email, &usr.PasswordHash, &usr.IsActive, &usr.DateJoined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return usr, true, nil
}

// GetUserByID fetches a user by their UUID from the database.
// If the user does not exist, it returns a user with an empty ID field.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error) {
	if userID == "" {
		return &user.User{ID: ""}, nil
	}

	usr, found, err := scanUser(
		db.queryerFor(transaction).QueryRowContext(ctx, selectUser+` WHERE id::text = $1`, userID),
	)
	if err != nil {
		return &user.User{ID: ""}, err
	}
	if !found {
		return &user.User{ID: ""}, nil
	}

	return usr, nil
}

// GetUserByUsername fetches a user by username.
func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*user.User, bool, error) {
	return scanUser(db.database.QueryRowContext(ctx, selectUser+` WHERE username = $1`, username))
}

// SetUserActive enables or disables an account.
func (db *PostgresDB) SetUserActive(ctx context.Context, userID string, active bool) error {
	result, err := db.database.ExecContext(
		ctx,
		`UPDATE users SET is_active = $2 WHERE id::text = $1`,
		userID,
		active,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %q not found", userID)
	}

	return nil
}

// CreateUserProfile stores the profile paired with a user.
func (db *PostgresDB) CreateUserProfile(
	ctx context.Context,
	profile *models.UserProfile,
	transaction *sql.Tx,
) error {
	_, err := db.executorFor(transaction).ExecContext(
		ctx,
		`INSERT INTO user_profiles (user_id, website, picture) VALUES ($1, $2, $3)`,
		profile.UserID,
		profile.Website,
		profile.Picture,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/CreateUserProfile(): error while `ExecContext()` calling: %w",
			err,
		)
	}

	return nil
}

// GetUserProfile returns the profile of a user, if any.
func (db *PostgresDB) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT user_id, website, picture FROM user_profiles WHERE user_id::text = $1`,
		userID,
	)
	profile := &models.UserProfile{}
	err := row.Scan(&profile.UserID, &profile.Website, &profile.Picture)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return profile, true, nil
}

func (db *PostgresDB) count(ctx context.Context, table string) (int64, error) {
	row := db.database.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
	var n int64
	err := row.Scan(&n)
	if err != nil {
		return 0, fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/count(): error while counting %s: %w",
			table,
			err,
		)
	}

	return n, nil
}

func (db *PostgresDB) GetNumberOfCategories(ctx context.Context) (int64, error) {
	return db.count(ctx, "categories")
}

func (db *PostgresDB) GetNumberOfPages(ctx context.Context) (int64, error) {
	return db.count(ctx, "pages")
}

func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, "users")
}

// CommitTransaction commits the given SQL transaction.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	return transaction.Rollback()
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

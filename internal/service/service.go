package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/rango/internal/auth"
	"github.com/patric-chuzhbe/rango/internal/forms"
	"github.com/patric-chuzhbe/rango/internal/logger"
	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/user"
)

// TopN is how many categories and pages the index lists.
const TopN = 5

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type categoriesKeeper interface {
	CreateCategory(
		ctx context.Context,
		category *models.Category,
		transaction *sql.Tx,
	) (int64, error)

	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, bool, error)

	ListTopCategories(ctx context.Context, limit int) ([]models.Category, error)

	LikeCategory(ctx context.Context, categoryID int64) (int64, error)

	GetNumberOfCategories(ctx context.Context) (int64, error)
}

type pagesKeeper interface {
	CreatePage(
		ctx context.Context,
		page *models.Page,
		transaction *sql.Tx,
	) (int64, error)

	GetPageByID(ctx context.Context, pageID int64) (*models.Page, bool, error)

	ListPagesByCategory(ctx context.Context, categoryID int64) ([]models.Page, error)

	ListTopPages(ctx context.Context, limit int) ([]models.Page, error)

	GetNumberOfPages(ctx context.Context) (int64, error)
}

type usersKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)

	CreateUserProfile(
		ctx context.Context,
		profile *models.UserProfile,
		transaction *sql.Tx,
	) error

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	categoriesKeeper
	pagesKeeper
	usersKeeper
	pinger
}

type pictureSaver interface {
	SaveProfileImage(image *forms.Image) (string, error)
	Remove(relative string) error
}

type viewsCounter interface {
	Enqueue(ctx context.Context, pageID int64) error
}

type Service struct {
	db       storage
	pictures pictureSaver
	views    viewsCounter
}

func New(
	db storage,
	pictures pictureSaver,
	views viewsCounter,
) *Service {
	return &Service{
		db:       db,
		pictures: pictures,
		views:    views,
	}
}

// TopCategories returns the most liked categories.
func (s *Service) TopCategories(ctx context.Context) ([]models.Category, error) {
	return s.db.ListTopCategories(ctx, TopN)
}

// TopPages returns the most viewed pages.
func (s *Service) TopPages(ctx context.Context) ([]models.Page, error) {
	return s.db.ListTopPages(ctx, TopN)
}

func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, bool, error) {
	return s.db.GetCategoryBySlug(ctx, slug)
}

func (s *Service) ListPagesForCategory(ctx context.Context, category *models.Category) ([]models.Page, error) {
	return s.db.ListPagesByCategory(ctx, category.ID)
}

// AddCategory validates the form and stores the category. Validation
// problems, a taken name included, come back as form errors.
func (s *Service) AddCategory(
	ctx context.Context,
	form *forms.CategoryForm,
) (*models.Category, models.FormErrors, error) {
	formErrors := form.Validate()
	if len(formErrors) > 0 {
		return nil, formErrors, nil
	}

	category := form.Category()
	id, err := s.db.CreateCategory(ctx, category, nil)
	if errors.Is(err, models.ErrCategoryExists) {
		return nil, models.FormErrors{"name": forms.MsgCategoryExists}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("in internal/service/service.go/AddCategory(): error while `s.db.CreateCategory()` calling: %w", err)
	}
	category.ID = id

	return category, models.FormErrors{}, nil
}

// AddPage validates the form and files the page under category. Nothing is
// stored when category is nil.
func (s *Service) AddPage(
	ctx context.Context,
	category *models.Category,
	form *forms.PageForm,
) (*models.Page, models.FormErrors, error) {
	formErrors := form.Validate()
	if len(formErrors) > 0 || category == nil {
		return nil, formErrors, nil
	}

	page := form.Page(category.ID)
	id, err := s.db.CreatePage(ctx, page, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("in internal/service/service.go/AddPage(): error while `s.db.CreatePage()` calling: %w", err)
	}
	page.ID = id

	return page, models.FormErrors{}, nil
}

// Register validates both forms together and creates the account and its
// profile in one transaction. The password is hashed before it is stored.
func (s *Service) Register(
	ctx context.Context,
	userForm *forms.UserForm,
	profileForm *forms.UserProfileForm,
) (*user.User, models.FormErrors, error) {
	formErrors := userForm.Validate()
	for field, message := range profileForm.Validate() {
		formErrors[field] = message
	}
	if len(formErrors) > 0 {
		return nil, formErrors, nil
	}

	passwordHash, err := auth.HashPassword(userForm.Password)
	if err != nil {
		return nil, nil, err
	}

	picture := ""
	if profileForm.Picture != nil {
		picture, err = s.pictures.SaveProfileImage(profileForm.Picture)
		if err != nil {
			return nil, nil, fmt.Errorf("in internal/service/service.go/Register(): error while `s.pictures.SaveProfileImage()` calling: %w", err)
		}
	}

	usr, formErrors, err := s.createAccount(ctx, userForm, passwordHash, profileForm, picture)
	if (err != nil || len(formErrors) > 0) && picture != "" {
		if removeErr := s.pictures.Remove(picture); removeErr != nil {
			logger.Log.Warnw("could not remove orphaned profile picture", "picture", picture, "error", removeErr)
		}
	}

	return usr, formErrors, err
}

func (s *Service) createAccount(
	ctx context.Context,
	userForm *forms.UserForm,
	passwordHash string,
	profileForm *forms.UserProfileForm,
	picture string,
) (*user.User, models.FormErrors, error) {
	tx, err := s.db.BeginTransaction()
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed && tx != nil {
			_ = s.db.RollbackTransaction(tx)
		}
	}()

	usr := &user.User{
		Username:     userForm.Username,
		Email:        userForm.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	usr.ID, err = s.db.CreateUser(ctx, usr, tx)
	if errors.Is(err, models.ErrUsernameTaken) {
		return nil, models.FormErrors{"username": forms.MsgUsernameTaken}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("in internal/service/service.go/createAccount(): error while `s.db.CreateUser()` calling: %w", err)
	}

	profile := profileForm.Profile(usr.ID)
	profile.Picture = picture
	if err := s.db.CreateUserProfile(ctx, profile, tx); err != nil {
		return nil, nil, fmt.Errorf("in internal/service/service.go/createAccount(): error while `s.db.CreateUserProfile()` calling: %w", err)
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return nil, nil, err
	}
	committed = true

	return usr, models.FormErrors{}, nil
}

// TrackPageView returns the URL of the page and counts one view of it.
func (s *Service) TrackPageView(ctx context.Context, pageID int64) (string, bool, error) {
	page, found, err := s.db.GetPageByID(ctx, pageID)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	if err := s.views.Enqueue(ctx, page.ID); err != nil {
		logger.Log.Warnw("page view was not counted", "page_id", page.ID, "error", err)
	}

	return page.URL, true, nil
}

func (s *Service) LikeCategory(ctx context.Context, categoryID int64) (int64, error) {
	return s.db.LikeCategory(ctx, categoryID)
}

// Stats returns the number of categories, pages and users.
func (s *Service) Stats(ctx context.Context) (models.StatsResponse, error) {
	categories, err := s.db.GetNumberOfCategories(ctx)
	if err != nil {
		return models.StatsResponse{}, err
	}

	pages, err := s.db.GetNumberOfPages(ctx)
	if err != nil {
		return models.StatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.StatsResponse{}, err
	}

	return models.StatsResponse{
		Categories: categories,
		Pages:      pages,
		Users:      users,
	}, nil
}

// Ping checks the health of the database/storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

package models

import "errors"

// Category groups pages under a unique name. Slug is derived from Name
// when the category is created and is what URLs use to find it.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Views int64  `json:"views"`
	Likes int64  `json:"likes"`
}

// Page is an external link owned by exactly one Category.
type Page struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Views      int64  `json:"views"`
}

// UserProfile carries the optional extras collected at registration.
// Picture is a path relative to the media directory.
type UserProfile struct {
	UserID  string `json:"user_id"`
	Website string `json:"website"`
	Picture string `json:"picture"`
}

// FormErrors maps a form field name to its error message.
type FormErrors map[string]string

// StatsResponse is returned by the internal stats endpoint.
type StatsResponse struct {
	Categories int64 `json:"categories"`
	Pages      int64 `json:"pages"`
	Users      int64 `json:"users"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

var (
	ErrCategoryExists   = errors.New("category with this name already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrUsernameTaken    = errors.New("a user with that username already exists")
)

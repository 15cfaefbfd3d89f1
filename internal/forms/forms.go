// Package forms validates and normalizes user input submitted through the
// HTML forms, and turns valid input into domain values.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"

	"github.com/patric-chuzhbe/rango/internal/models"
)

const (
	MsgRequired       = "This field is required."
	MsgInvalidURL     = "Enter a valid URL."
	MsgInvalidEmail   = "Enter a valid email address."
	MsgInvalidUser    = "Enter a valid username. This value may contain only letters, numbers and @/./+/-/_ characters."
	MsgInvalidImage   = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	MsgCategoryExists = "Category with this Name already exists."
	MsgNoSlug         = "Enter a name containing at least one letter or number."
	MsgUsernameTaken  = "A user with that username already exists."
	msgInvalidValue   = "Enter a valid value."
)

var (
	validate        = newValidator()
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}

// MaxLengthMessage is reported when a value is longer than allowed.
func MaxLengthMessage(limit string, value string) string {
	return fmt.Sprintf(
		"Ensure this value has at most %s characters (it has %d).",
		limit,
		utf8.RuneCountInString(value),
	)
}

func check(form interface{}) models.FormErrors {
	result := models.FormErrors{}

	err := validate.Struct(form)
	if err == nil {
		return result
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		result["__all__"] = err.Error()
		return result
	}

	for _, fieldErr := range validationErrors {
		if _, exists := result[fieldErr.Field()]; exists {
			continue
		}
		result[fieldErr.Field()] = message(fieldErr)
	}

	return result
}

func message(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return MsgRequired
	case "max":
		return MaxLengthMessage(fieldErr.Param(), fmt.Sprint(fieldErr.Value()))
	case "url":
		return MsgInvalidURL
	case "email":
		return MsgInvalidEmail
	case "username":
		return MsgInvalidUser
	default:
		return msgInvalidValue
	}
}

// NormalizeURL prefixes a scheme-less URL with http://. Empty input and
// values already starting with http:// or https:// are returned as is.
func NormalizeURL(value string) string {
	if value == "" {
		return value
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}

	return "http://" + value
}

type CategoryForm struct {
	Name string `form:"name" validate:"required,max=128"`
}

// Validate also rejects names that produce an empty slug, since the slug is
// what the category page is found by.
func (f *CategoryForm) Validate() models.FormErrors {
	f.Name = strings.TrimSpace(f.Name)

	result := check(f)
	if _, failed := result["name"]; !failed && slug.Make(f.Name) == "" {
		result["name"] = MsgNoSlug
	}

	return result
}

// Category builds the category to persist. Call it on a validated form.
func (f *CategoryForm) Category() *models.Category {
	return &models.Category{
		Name: f.Name,
		Slug: slug.Make(f.Name),
	}
}

type PageForm struct {
	Title string `form:"title" validate:"required,max=128"`
	URL   string `form:"url" validate:"required,max=200,url"`
}

// Validate normalizes the URL before checking it, so "example.com" is
// accepted and stored as "http://example.com".
func (f *PageForm) Validate() models.FormErrors {
	f.Title = strings.TrimSpace(f.Title)
	f.URL = NormalizeURL(strings.TrimSpace(f.URL))

	return check(f)
}

func (f *PageForm) Page(categoryID int64) *models.Page {
	return &models.Page{
		CategoryID: categoryID,
		Title:      f.Title,
		URL:        f.URL,
	}
}

type UserForm struct {
	Username string `form:"username" validate:"required,max=30,username"`
	Email    string `form:"email" validate:"required,email,max=75"`
	Password string `form:"password" validate:"required"`
}

func (f *UserForm) Validate() models.FormErrors {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	return check(f)
}

// Image is an uploaded file.
type Image struct {
	Filename string
	Data     []byte
}

// Extension returns the file extension matching the detected content,
// including the leading dot.
func (i *Image) Extension() string {
	return mimetype.Detect(i.Data).Extension()
}

// rasterImageTypes are the only pictures accepted. Vector formats such as
// SVG can carry scripts and are rejected.
var rasterImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
}

func (i *Image) isImage() bool {
	if len(i.Data) == 0 {
		return false
	}

	return mimetype.EqualsAny(mimetype.Detect(i.Data).String(), rasterImageTypes...)
}

type UserProfileForm struct {
	Website string `form:"website" validate:"omitempty,max=200,url"`
	Picture *Image `form:"-" validate:"-"`
}

func (f *UserProfileForm) Validate() models.FormErrors {
	f.Website = NormalizeURL(strings.TrimSpace(f.Website))

	result := check(f)
	if f.Picture != nil && !f.Picture.isImage() {
		result["picture"] = MsgInvalidImage
	}

	return result
}

// Profile builds the profile for userID. The picture path is filled in
// by whoever stores the file.
func (f *UserProfileForm) Profile(userID string) *models.UserProfile {
	return &models.UserProfile{
		UserID:  userID,
		Website: f.Website,
	}
}

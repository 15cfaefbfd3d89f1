// Package media stores uploaded files below the configured media directory.
package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/rango/internal/forms"
)

const profileImagesDir = "profile_images"

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, profileImagesDir), 0o755); err != nil {
		return nil, fmt.Errorf("in internal/media/media.go/New(): error while `os.MkdirAll()` calling: %w", err)
	}

	return &Store{root: root}, nil
}

// Root is the directory files are stored in and served from.
func (s *Store) Root() string {
	return s.root
}

// SaveProfileImage writes the image under a fresh name and returns its
// slash-separated path relative to Root, e.g. "profile_images/<uuid>.png".
func (s *Store) SaveProfileImage(image *forms.Image) (string, error) {
	name := uuid.New().String() + image.Extension()
	relative := path.Join(profileImagesDir, name)

	err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(relative)), image.Data, 0o644)
	if err != nil {
		return "", fmt.Errorf("in internal/media/media.go/SaveProfileImage(): error while `os.WriteFile()` calling: %w", err)
	}

	return relative, nil
}

// Remove deletes a file previously returned by SaveProfileImage.
func (s *Store) Remove(relative string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(relative)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

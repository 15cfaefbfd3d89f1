// Package auth hashes passwords and checks login credentials against
// the stored user accounts.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/rango/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid login details supplied")
	ErrAccountDisabled    = errors.New("account is disabled")
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, bool, error)
}

// HashPassword returns the bcrypt hash of plain at the default cost.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/HashPassword(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	return string(hash), nil
}

// CheckPassword reports whether plain matches hash.
func CheckPassword(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// Authenticator resolves credentials and session user ids to accounts.
type Authenticator struct {
	db userKeeper
}

func New(db userKeeper) *Authenticator {
	return &Authenticator{db: db}
}

// Authenticate returns the account matching the credentials.
// ErrInvalidCredentials is returned for an unknown username or a wrong
// password, ErrAccountDisabled for a correct password on an inactive account.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	usr, found, err := a.db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/Authenticate(): error while `a.db.GetUserByUsername()` calling: %w", err)
	}
	if !found {
		return nil, ErrInvalidCredentials
	}

	ok, err := CheckPassword(usr.PasswordHash, password)
	if err != nil {
		// A malformed stored hash cannot match anything.
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !usr.IsActive {
		return nil, ErrAccountDisabled
	}

	return usr, nil
}

// CurrentUser returns the active account a session refers to.
func (a *Authenticator) CurrentUser(ctx context.Context, userID string) (*user.User, bool, error) {
	if userID == "" {
		return nil, false, nil
	}

	usr, err := a.db.GetUserByID(ctx, userID, nil)
	if err != nil {
		return nil, false, fmt.Errorf("in internal/auth/auth.go/CurrentUser(): error while `a.db.GetUserByID()` calling: %w", err)
	}
	if usr.ID == "" || !usr.IsActive {
		return nil, false, nil
	}

	return usr, true, nil
}

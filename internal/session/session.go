// Package session keeps the per-browser state of a visitor (visit counter,
// last visit time and the logged-in user) in a signed JWT cookie. Handlers
// receive the Session value explicitly and return the updated one.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Session is the state carried between requests of one browser.
type Session struct {
	Visits    int
	LastVisit string
	UserID    string
}

// IsEmpty reports whether nothing is stored in the session.
func (s Session) IsEmpty() bool {
	return s == Session{}
}

// Claims is the JWT payload of the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	Visits    int    `json:"visits,omitempty"`
	LastVisit string `json:"last_visit,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Store reads and writes sessions from and to cookies.
type Store struct {
	cookieName string
	secretKey  []byte
	maxAge     time.Duration
}

func New(cookieName string, secretKey []byte, maxAge time.Duration) *Store {
	return &Store{
		cookieName: cookieName,
		secretKey:  secretKey,
		maxAge:     maxAge,
	}
}

// Load decodes the session cookie of the request. A missing, tampered
// or expired cookie yields an empty session.
func (s *Store) Load(request *http.Request) Session {
	cookie, err := request.Cookie(s.cookieName)
	if err != nil {
		return Session{}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return Session{}
	}

	return Session{
		Visits:    claims.Visits,
		LastVisit: claims.LastVisit,
		UserID:    claims.UserID,
	}
}

// Save writes the session cookie with a fresh expiry. Saving an empty
// session deletes the cookie.
func (s *Store) Save(response http.ResponseWriter, sess Session) error {
	if sess.IsEmpty() {
		http.SetCookie(
			response,
			&http.Cookie{
				Name:     s.cookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
			},
		)

		return nil
	}

	expiresAt := time.Now().Add(s.maxAge)
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Visits:    sess.Visits,
			LastVisit: sess.LastVisit,
			UserID:    sess.UserID,
		},
	)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return fmt.Errorf("in internal/session/session.go/Save(): error while `token.SignedString()` calling: %w", err)
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     s.cookieName,
			Value:    tokenString,
			Path:     "/",
			Expires:  expiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

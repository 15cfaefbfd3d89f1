package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookieName = "sessionid"

var testSecretKey = []byte("test-secret")

func roundTrip(t *testing.T, store *Store, sess Session) (*http.Cookie, Session) {
	t.Helper()

	recorder := httptest.NewRecorder()
	require.NoError(t, store.Save(recorder, sess))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	defer recorder.Result().Body.Close()

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(cookies[0])

	return cookies[0], store.Load(request)
}

func TestStore(t *testing.T) {
	store := New(testCookieName, testSecretKey, time.Hour)

	t.Run("no cookie gives an empty session", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.True(t, store.Load(request).IsEmpty())
	})

	t.Run("saved session is loaded back", func(t *testing.T) {
		sess := Session{Visits: 3, LastVisit: "2024-01-01 10:00:00.000000", UserID: "u1"}
		cookie, loaded := roundTrip(t, store, sess)
		assert.Equal(t, testCookieName, cookie.Name)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, sess, loaded)
	})

	t.Run("empty session deletes the cookie", func(t *testing.T) {
		cookie, loaded := roundTrip(t, store, Session{})
		assert.Equal(t, -1, cookie.MaxAge)
		assert.True(t, loaded.IsEmpty())
	})

	t.Run("cookie signed with another key is ignored", func(t *testing.T) {
		other := New(testCookieName, []byte("another-secret"), time.Hour)
		recorder := httptest.NewRecorder()
		require.NoError(t, other.Save(recorder, Session{UserID: "intruder"}))
		defer recorder.Result().Body.Close()

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(recorder.Result().Cookies()[0])
		assert.True(t, store.Load(request).IsEmpty())
	})

	t.Run("expired cookie is ignored", func(t *testing.T) {
		expired := New(testCookieName, testSecretKey, -time.Minute)
		recorder := httptest.NewRecorder()
		require.NoError(t, expired.Save(recorder, Session{Visits: 1}))
		defer recorder.Result().Body.Close()

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(recorder.Result().Cookies()[0])
		assert.True(t, store.Load(request).IsEmpty())
	})

	t.Run("garbage cookie is ignored", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: testCookieName, Value: "not-a-jwt"})
		assert.True(t, store.Load(request).IsEmpty())
	})
}

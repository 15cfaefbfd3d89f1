package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/rango/internal/config"
	"github.com/patric-chuzhbe/rango/internal/db/jsondb"
	"github.com/patric-chuzhbe/rango/internal/db/memorystorage"
	"github.com/patric-chuzhbe/rango/internal/models"
)

func TestGetAvailableStorageType(t *testing.T) {
	type tTestCase struct {
		name string
		cfg  config.Config
		want int
	}
	testCases := []tTestCase{
		{name: "dsn wins", cfg: config.Config{DatabaseDSN: "postgres://localhost/rango", DBFileName: "db.json"}, want: models.StorageTypePostgresql},
		{name: "file", cfg: config.Config{DBFileName: "db.json"}, want: models.StorageTypeFile},
		{name: "memory by default", cfg: config.Config{}, want: models.StorageTypeMemory},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, getAvailableStorageType(&tc.cfg))
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("memory storage", func(t *testing.T) {
		t.Setenv("MEDIA_DIR", t.TempDir())

		theApp, err := New(config.WithDisableFlagsParsing(true))
		require.NoError(t, err)
		assert.IsType(t, &memorystorage.MemoryStorage{}, theApp.db)

		server := httptest.NewServer(theApp.Handler())
		resp, err := http.Get(server.URL + "/ping")
		require.NoError(t, err)
		resp.Body.Close()
		server.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NoError(t, theApp.Stop())
	})

	t.Run("file storage", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("MEDIA_DIR", filepath.Join(dir, "media"))
		t.Setenv("FILE_STORAGE_PATH", filepath.Join(dir, "rango.json"))

		theApp, err := New(config.WithDisableFlagsParsing(true))
		require.NoError(t, err)
		assert.IsType(t, &jsondb.JSONDB{}, theApp.db)
		assert.NoError(t, theApp.Stop())
	})

	t.Run("failure before storage leaves nothing open", func(t *testing.T) {
		dir := t.TempDir()
		mediaFile := filepath.Join(dir, "media")
		require.NoError(t, os.WriteFile(mediaFile, []byte("not a directory"), 0o600))
		storagePath := filepath.Join(dir, "rango.json")
		t.Setenv("MEDIA_DIR", mediaFile)
		t.Setenv("FILE_STORAGE_PATH", storagePath)

		_, err := New(config.WithDisableFlagsParsing(true))
		require.Error(t, err)

		_, statErr := os.Stat(storagePath)
		assert.True(t, os.IsNotExist(statErr), "storage must not be opened")
	})

	t.Run("broken trusted subnet", func(t *testing.T) {
		t.Setenv("MEDIA_DIR", t.TempDir())
		t.Setenv("TRUSTED_SUBNET", "not-a-subnet")

		_, err := New(config.WithDisableFlagsParsing(true))
		assert.Error(t, err)
	})
}

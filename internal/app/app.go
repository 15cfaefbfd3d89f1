// Package app initializes and runs the rango web server.
// It configures logging, storage, sessions and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/rango/internal/auth"
	"github.com/patric-chuzhbe/rango/internal/config"
	"github.com/patric-chuzhbe/rango/internal/db/jsondb"
	"github.com/patric-chuzhbe/rango/internal/db/memorystorage"
	"github.com/patric-chuzhbe/rango/internal/db/postgresdb"
	"github.com/patric-chuzhbe/rango/internal/db/storage"
	"github.com/patric-chuzhbe/rango/internal/ipchecker"
	"github.com/patric-chuzhbe/rango/internal/logger"
	"github.com/patric-chuzhbe/rango/internal/media"
	"github.com/patric-chuzhbe/rango/internal/models"
	"github.com/patric-chuzhbe/rango/internal/router"
	"github.com/patric-chuzhbe/rango/internal/service"
	"github.com/patric-chuzhbe/rango/internal/session"
	"github.com/patric-chuzhbe/rango/internal/viewscounter"
)

const shutdownTimeout = 10 * time.Second

// App holds the configuration, HTTP handler, storage backend and the
// background views counter of a running server.
type App struct {
	cfg          *config.Config
	db           storage.Storage
	viewsCounter *viewscounter.ViewsCounter
	stopCounter  context.CancelFunc
	httpHandler  http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - preparing the session key, media dir and trusted subnet
// - selecting and setting up storage
// - starting the background views counter
// - setting up the router and middleware
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	sessionSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.SessionSigningSecretKey)
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `base64.URLEncoding.DecodeString()` calling: %w", err)
	}

	pictures, err := media.New(app.cfg.MediaDir)
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	// Must stay the last step of New that can fail.
	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.viewsCounter = viewscounter.New(
		app.db,
		app.cfg.ViewsQueueCapacity,
		app.cfg.ViewsFlushInterval,
	)
	counterRunCtx, stopCounter := context.WithCancel(context.Background())
	app.stopCounter = stopCounter

	app.viewsCounter.Run(counterRunCtx)
	app.viewsCounter.ListenErrors(func(err error) {
		logger.Log.Warnw("page views were not flushed", zap.Error(err))
	})

	app.httpHandler = router.New(
		service.New(app.db, pictures, app.viewsCounter),
		auth.New(app.db),
		session.New(app.cfg.SessionCookieName, sessionSigningSecretKey, app.cfg.SessionMaxAge),
		checker,
		router.WithMediaRoot(pictures.Root()),
		router.WithMaxBodySize(app.cfg.MaxRequestBodySize),
	)

	return app, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Flushing page views and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.Stop()

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return a.Stop()
		}
		a.stopCounter()
		a.viewsCounter.Wait()
		return fmt.Errorf("server error: %w", err)
	}
}

// Stop flushes the pending page views and closes the storage.
func (a *App) Stop() error {
	a.stopCounter()
	a.viewsCounter.Wait()

	return a.db.Close()
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}

// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/offtune/internal/adapter/engine/httpfetch"
	"github.com/tejashwikalptaru/offtune/internal/adapter/engine/mock"
	"github.com/tejashwikalptaru/offtune/internal/adapter/eventbus"
	httpapi "github.com/tejashwikalptaru/offtune/internal/adapter/http"
	"github.com/tejashwikalptaru/offtune/internal/adapter/metadata"
	"github.com/tejashwikalptaru/offtune/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/offtune/internal/adapter/repository/sqlite"
	"github.com/tejashwikalptaru/offtune/internal/adapter/storage/folder"
	"github.com/tejashwikalptaru/offtune/internal/config"
	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/logger"
	"github.com/tejashwikalptaru/offtune/internal/ports"
	"github.com/tejashwikalptaru/offtune/internal/service"
)

// runner is implemented by engines that perform transfers in the background.
type runner interface {
	Run(ctx context.Context) error
}

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	// Core dependencies
	config  config.Config
	logger  *slog.Logger
	fyneApp fyne.App
	db      *sqlx.DB

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	engine   ports.FetchEngine
	events   *eventbus.Mailbox[domain.Event]
	newIDs   *eventbus.Mailbox[string]

	// Services
	downloadService   *service.DownloadService
	preferenceService *service.PreferenceService
	queueService      *service.QueueService

	handler *httpapi.Handler

	shutdownOnce sync.Once
	shutdownErr  error
}

// Config holds application configuration.
type Config struct {
	// Env is the process configuration read from OFFTUNE_* variables
	Env config.Config

	// UseMockEngine replaces the HTTP fetch engine with an in-memory one (for testing)
	UseMockEngine bool

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{config: cfg.Env}

	// Step 1: Create Fyne application. Only its preferences are used.
	if cfg.TestFyneApp != nil {
		app.fyneApp = cfg.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(cfg.Env.AppID)
	}

	// Step 2: Create logger
	app.logger = logger.NewLogger(cfg.Env.Logger())
	app.logger.Info("initializing application",
		slog.String("app_id", cfg.Env.AppID),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 3: Open the database shared by the download records and the engine
	db, err := sqlite.Open(ctx, cfg.Env.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db

	// Step 4: Create the event bus and the one-shot mailboxes
	app.eventBus = eventbus.NewSyncEventBus(app.logger)
	app.events = eventbus.NewMailbox[domain.Event](cfg.Env.MailboxHistory)
	app.newIDs = eventbus.NewMailbox[string](cfg.Env.MailboxHistory)

	// Step 5: Create the fetch engine
	if cfg.UseMockEngine {
		app.engine = mock.NewEngine(app.logger)
	} else {
		engine, err := httpfetch.NewEngine(ctx, db, httpfetch.Options{
			MaxConcurrent:    cfg.Env.MaxConcurrent,
			RetryCount:       cfg.Env.RetryCount,
			PollInterval:     cfg.Env.PollInterval,
			ProgressInterval: cfg.Env.ProgressInterval,
			UserAgent:        cfg.Env.UserAgent,
		}, app.logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create fetch engine: %w", err)
		}
		app.engine = engine
	}

	// Step 6: Create repositories
	prefs := app.fyneApp.Preferences()
	preferencesRepo := memory.NewPreferencesRepository(prefs)

	// Step 7: Create services (with dependency injection)
	app.downloadService = service.NewDownloadService(app.logger, service.DownloadDeps{
		Records: sqlite.NewDownloadRepository(db, app.logger),
		Engine:  app.engine,
		Folders: folder.NewRoot(app.logger),
		Prefs:   preferencesRepo,
		Grants:  memory.NewGrantStore(prefs, app.logger),
		Tags:    metadata.NewTagReader(),
		Bus:     app.eventBus,
		Events:  app.events,
		NewIDs:  app.newIDs,
	})

	app.preferenceService = service.NewPreferenceService(app.logger, preferencesRepo, app.eventBus, app.downloadService)

	app.queueService = service.NewQueueService(app.logger,
		memory.NewHistoryRepository(prefs),
		memory.NewPlaylistRepository(prefs, app.logger),
		app.downloadService,
		app.eventBus,
		nil,
	)

	// Step 8: Load saved state
	if err := app.loadSavedState(ctx); err != nil {
		// Non-fatal - just log and continue
		app.logger.Warn("failed to load saved state", slog.Any("error", err))
	}

	app.handler = httpapi.NewHandler(app.logger, app.downloadService, app.preferenceService, app.queueService, app.events, app.newIDs)
	return app, nil
}

// loadSavedState restores the queue, heals stale download records and applies
// the configured downloads root when none was chosen yet.
func (a *Application) loadSavedState(ctx context.Context) error {
	var errs []error

	if err := a.queueService.Start(); err != nil {
		errs = append(errs, fmt.Errorf("failed to load queue: %w", err))
	}

	if _, err := a.downloadService.Reconcile(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to reconcile downloads: %w", err))
	}

	if a.config.DownloadsRoot != "" {
		current, err := a.downloadService.DownloadsRoot()
		if err != nil {
			errs = append(errs, err)
		} else if current == "" {
			if err := a.downloadService.SetDownloadsRoot(ctx, a.config.DownloadsRoot); err != nil {
				errs = append(errs, fmt.Errorf("failed to apply downloads root: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

// Run serves the control API and runs the fetch engine until ctx is cancelled.
// The caller must hold the engine lock.
func (a *Application) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.config.HTTP.Addr,
		Handler:      a.handler.Routes(),
		ReadTimeout:  a.config.HTTP.ReadTimeout,
		WriteTimeout: a.config.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if r, ok := a.engine.(runner); ok {
		g.Go(func() error { return r.Run(gctx) })
	}

	g.Go(func() error {
		a.logger.Info("control API listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	a.logger.Info("offtune started")
	return g.Wait()
}

// Shutdown gracefully shuts down the application. Calling it again is a no-op.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")
		var errs []error

		// Shutdown services (in reverse order of creation); the queue saves its state
		if a.queueService != nil {
			if err := a.queueService.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("queue: %w", err))
			}
		}
		if a.preferenceService != nil {
			if err := a.preferenceService.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("preferences: %w", err))
			}
		}

		if a.eventBus != nil {
			if err := a.eventBus.Close(); err != nil {
				errs = append(errs, fmt.Errorf("event bus: %w", err))
			}
		}
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database: %w", err))
			}
		}

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

// Handler returns the control API router.
func (a *Application) Handler() http.Handler {
	return a.handler.Routes()
}

// Downloads returns the download service.
func (a *Application) Downloads() *service.DownloadService {
	return a.downloadService
}

// Preferences returns the preference service.
func (a *Application) Preferences() *service.PreferenceService {
	return a.preferenceService
}

// Queue returns the queue service.
func (a *Application) Queue() *service.QueueService {
	return a.queueService
}

// Events returns the mailbox of one-shot downloader events.
func (a *Application) Events() ports.Mailbox[domain.Event] {
	return a.events
}

// NewIDs returns the mailbox of newly queued content ids.
func (a *Application) NewIDs() ports.Mailbox[string] {
	return a.newIDs
}

// Engine returns the fetch engine.
func (a *Application) Engine() ports.FetchEngine {
	return a.engine
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

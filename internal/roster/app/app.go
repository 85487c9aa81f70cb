package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/koki-kondo/mind-status-app/internal/roster/http"
	"github.com/koki-kondo/mind-status-app/internal/roster/notify"
	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/internal/roster/store/drivers/sqlite"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/jwtx"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the roster service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       *sqlite.Store
	signer   *jwtx.Signer
	verifier *jwtx.Verifier
	registry *prometheus.Registry
	notifier notify.Notifier

	// Services
	authService         *service.AuthService
	accountService      *service.AccountService
	inviteService       *service.InviteService
	importService       *service.ImportService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "roster-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, verifier, err := InitSessionKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.signer, app.verifier = signer, verifier

	app.initMetrics()
	app.initNotifier()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("roster service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down roster service...")

	// Give outstanding requests, including running imports, a deadline
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("roster service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// initNotifier picks SMTP delivery when a host is configured and falls back
// to logging the links.
func (app *Application) initNotifier() {
	if app.cfg.SMTP.Host == "" {
		app.notifier = notify.LogNotifier{}
		app.logger.Warn("SMTP_HOST not set, invitation links are only logged")
		return
	}
	app.notifier = notify.NewSMTPNotifier(app.cfg.SMTP)
	app.logger.Info("smtp notifier enabled", "host", app.cfg.SMTP.Host, "port", app.cfg.SMTP.Port)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	metrics := service.NewImportMetrics(app.registry)

	app.inviteService = &service.InviteService{
		Store:         app.db,
		EnrollmentTTL: app.cfg.InviteTTL,
		ResetTTL:      app.cfg.ResetTTL,
	}
	app.authService = &service.AuthService{
		Store:  app.db,
		Signer: app.signer,
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.SessionTTL,
	}
	app.accountService = &service.AccountService{
		Store:             app.db,
		Invites:           app.inviteService,
		Notifier:          app.notifier,
		Metrics:           metrics,
		FrontendURL:       app.cfg.FrontendURL,
		RegistrationToken: app.cfg.RegistrationToken,
	}
	app.importService = &service.ImportService{
		Store:       app.db,
		Reconciler:  &service.Reconciler{},
		Invites:     app.inviteService,
		Notifier:    app.notifier,
		Limiter:     service.NewUploadLimiter(app.cfg.MaxConcurrentImports),
		Metrics:     metrics,
		FrontendURL: app.cfg.FrontendURL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.ImportHistoryRetention,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		app.verifier,
		app.registry,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.AccountService = app.accountService
	router.InviteService = app.inviteService
	router.ImportService = app.importService
	router.MaxUploadBytes = app.cfg.MaxUploadBytes
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

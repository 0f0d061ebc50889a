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

	"github.com/cenkalti/backoff/v5"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	httpapi "github.com/pesuauth/pesu-oauth2/internal/oauth2/http"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/identity"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/metrics"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store/drivers/postgres"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store/drivers/sqlite"
	"github.com/pesuauth/pesu-oauth2/pkg/cryptox"
	"github.com/pesuauth/pesu-oauth2/pkg/sessionx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

const storeConnectTimeout = 30 * time.Second

// Application encapsulates the OAuth2 server with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	metrics  *metrics.Metrics
	catalog  *consent.Catalog
	sessions *sessionx.Manager

	// Services
	clientService       *service.ClientService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	resourceService     *service.ResourceService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "pesu-oauth2",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg:     cfg,
		logger:  NewLogger(cfg),
		metrics: metrics.New(),
		catalog: consent.Default(),
	}

	sessions, err := sessionx.NewManager([]byte(cfg.SessionSecret),
		sessionx.WithTTL(cfg.SessionTTL),
		sessionx.WithSecure(cfg.SessionSecure),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sessions: %w", err)
	}
	app.sessions = sessions

	db, err := OpenStore(context.Background(), cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	app.initServices()
	app.initHTTP()

	return app, nil
}

// OpenStore loads the pepper, connects the configured driver and applies
// pending migrations.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	var (
		db  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.FileDSN(cfg.DatabaseFile))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := waitForStore(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully", "driver", cfg.DatabaseDriver)
	return db, nil
}

// waitForStore pings until the database answers, so the server can start
// alongside a postgres container that is still booting.
func waitForStore(ctx context.Context, db store.Store, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 5 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := db.Ping(ctx)
		if err != nil {
			logger.Warn("waiting for database", "error", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(exp), backoff.WithMaxElapsedTime(storeConnectTimeout))
	return err
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if app.cfg.HousekeepingInterval > 0 {
		app.housekeepingService.Start()
	}

	app.logger.Info("oauth2 server starting", "port", app.cfg.Port, "version", BuildVersion)

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

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down oauth2 server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.cfg.HousekeepingInterval > 0 {
		app.housekeepingService.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("oauth2 server stopped")
	return nil
}

// Handler exposes the routed handler, for tests.
func (app *Application) Handler() http.Handler { return app.router }

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.clientService = &service.ClientService{
		Store:   app.db,
		Catalog: app.catalog,
	}
	app.authorizeService = &service.AuthorizeService{
		Store:      app.db,
		Clients:    app.clientService,
		Catalog:    app.catalog,
		CodeTTL:    app.cfg.CodeTTL,
		ConsentTTL: app.cfg.ConsentTTL,
		Metrics:    app.metrics,
	}
	app.tokenService = &service.TokenService{
		Store:                   app.db,
		Clients:                 app.clientService,
		AccessTTL:               app.cfg.AccessTokenTTL,
		Metrics:                 app.metrics,
		RevokeAllOnRefreshReuse: app.cfg.RefreshReuseRevokesAll,
	}
	app.resourceService = &service.ResourceService{
		Store:   app.db,
		Catalog: app.catalog,
		Metrics: app.metrics,
	}
	app.userService = &service.UserService{
		Store:   app.db,
		Bridge:  identity.NewHTTPBridge(app.cfg.IdentityBridgeURL, app.cfg.IdentityBridgeTimeout),
		Metrics: app.metrics,
		Admins:  app.cfg.AdminUsers,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.sessions,
		app.metrics,
		app.logger,
	)

	// Wire services to router
	router.LoginURL = app.cfg.LoginURL
	if len(app.cfg.CORSOrigins) > 0 {
		router.CORSOrigins = app.cfg.CORSOrigins
	}
	router.Catalog = app.catalog
	router.ClientService = app.clientService
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.ResourceService = app.resourceService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

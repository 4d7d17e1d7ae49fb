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

	"golang.org/x/time/rate"

	httpapi "github.com/ppmkfriends/ppmkconnect/internal/provision/http"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/mail"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/service"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store/drivers/sqlite"
	"github.com/ppmkfriends/ppmkconnect/pkg/cryptox"
	"github.com/ppmkfriends/ppmkconnect/pkg/jwtx"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application wires the provisioning service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	sender     mail.Sender

	authService         *service.AuthService
	bootstrapService    *service.BootstrapService
	batchService        *service.BatchService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService
	repairService       *service.RepairService

	server *http.Server
	router *httpapi.Router
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "provision-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	km, err := jwtx.NewEphemeralKeyManager(cfg.Issuer, []string{cfg.Audience})
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = km

	if err := app.initMail(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler exposes the HTTP handler for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.repairService.Start()

	app.logger.Info("provision service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

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

func (app *Application) Shutdown() error {
	app.logger.Info("shutting down provision service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.repairService.Stop()
	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("provision service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

func (app *Application) initMail() error {
	var sender mail.Sender
	if app.cfg.SMTPHost == "" {
		sender = &mail.LogSender{Logger: app.logger}
		app.logger.Warn("MAIL_SMTP_HOST not set, credentials emails will only be logged")
	} else {
		smtp, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.MailFrom,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize mail sender: %w", err)
		}
		sender = smtp
	}

	if app.cfg.MailRedirectTo != "" {
		app.logger.Warn("all credentials emails are redirected", "to", app.cfg.MailRedirectTo)
	}
	app.sender = mail.Redirect(sender, app.cfg.MailRedirectTo)
	return nil
}

func (app *Application) initServices() {
	app.authService = &service.AuthService{
		KeyManager: app.keyManager,
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		Audience:   []string{app.cfg.Audience},
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
	}
	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}
	app.userService = &service.UserService{Store: app.db}

	var limiter *rate.Limiter
	if app.cfg.ProvisionRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(app.cfg.ProvisionRatePerSec), 1)
	}
	attempts := uint(1)
	if app.cfg.MailMaxAttempts > 1 {
		attempts = uint(app.cfg.MailMaxAttempts)
	}
	app.batchService = &service.BatchService{
		Provisioner: service.NewProvisioner(app.db, &service.DirectoryIdentityProvider{Store: app.db}),
		Dispatcher:  service.NewDispatcher(app.sender, attempts),
		Secrets:     cryptox.GenerateSecret,
		RowTimeout:  app.cfg.RowTimeout,
		MaxBatch:    app.cfg.MaxBatchSize,
		Limiter:     limiter,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.repairService = service.NewRepairService(
		app.db,
		app.logger,
		app.cfg.RepairInterval,
		app.cfg.RepairMaxAttempts,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.CORSAllowOrigin,
	)

	router.AuthService = app.authService
	router.BootstrapService = app.bootstrapService
	router.BatchService = app.batchService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

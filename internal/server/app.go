// Package server initializes and runs the main application server.
// It opens the database, applies migrations, wires the services together,
// and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/seabattle/internal/logging"
	"github.com/dmitrijs2005/seabattle/internal/server/auth"
	"github.com/dmitrijs2005/seabattle/internal/server/config"
	"github.com/dmitrijs2005/seabattle/internal/server/httpapi"
	"github.com/dmitrijs2005/seabattle/internal/server/recaptcha"
	"github.com/dmitrijs2005/seabattle/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/seabattle/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
)

const (
	dbPingBackoffBase = 1 * time.Second
	dbPingMaxRetries  = 5
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	captcha     recaptcha.Verifier
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout)

	db, err := openDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.SecretKey, cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("issuer init error: %w", err)
	}

	us := services.NewUserService(db, rm, issuer)

	var captcha recaptcha.Verifier = recaptcha.NoopVerifier{}
	if cfg.RecaptchaSecret != "" {
		captcha = recaptcha.NewGoogleVerifier(cfg.RecaptchaSecret)
	}

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		userService: us,
		captcha:     captcha,
	}, nil
}

// openDatabase is a seam for testing NewApp without a running database.
var openDatabase = openDB

// openDB opens the connection pool and waits for the database to come up,
// retrying the ping with exponential backoff.
func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	backoff := retry.WithMaxRetries(dbPingMaxRetries, retry.NewExponential(dbPingBackoffBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger,
		app.userService, app.captcha, app.db,
		app.config.SecretKey, app.config.JWTIssuer, app.config.JWTAudience)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
}

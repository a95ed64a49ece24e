// Package server wires the mailauth components together and runs the HTTP
// API until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/mailauth/internal/cryptox"
	"github.com/dmitrijs2005/mailauth/internal/logging"
	"github.com/dmitrijs2005/mailauth/internal/server/auth"
	"github.com/dmitrijs2005/mailauth/internal/server/config"
	"github.com/dmitrijs2005/mailauth/internal/server/httpapi"
	"github.com/dmitrijs2005/mailauth/internal/server/mailer"
	"github.com/dmitrijs2005/mailauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mailauth/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// openStore picks the user store: PostgreSQL when a DSN is configured,
// otherwise a process-local in-memory store.
func openStore(ctx context.Context, dsn string) (repomanager.RepositoryManager, *sql.DB, error) {
	if dsn == "" {
		return repomanager.NewInMemoryRepositoryManager(), nil, nil
	}

	db, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return m, db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	hasher, err := cryptox.NewBcryptHasher(c.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	sealer, err := cryptox.NewSealer(c.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}

	m, db, err := openStore(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if db == nil {
		logger.Warn(ctx, "no database DSN configured, users are kept in memory")
	}

	codec := auth.NewCodec()
	as := services.NewAuthService(m.Users(db), hasher, codec, sealer, c, logger)

	ms, err := mailer.NewSender(sealer, mailer.DefaultOptions(), logger)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	srv := httpapi.NewServer(c.EndpointAddrHTTP, logger, as, ms, codec, as.AccessPolicy())

	return &App{config: c, logger: logger, db: db, server: srv}, nil
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
	if err := app.server.Run(ctx); err != nil {
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

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}
	app.logger.Info(ctx, "Stopped")
}

// Package server wires the MailReminder process: storage, the credential
// vault, the reminder dispatcher and both the web and gRPC surfaces. It
// handles graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/mailreminder/internal/cryptox"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/config"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/mail"
	"github.com/dmitrijs2005/mailreminder/internal/server/metrics"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"github.com/dmitrijs2005/mailreminder/internal/server/web"

	gs "github.com/dmitrijs2005/mailreminder/internal/server/grpc"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	accountService  *services.AccountService
	reminderService *services.ReminderService
	exportService   *services.ExportService
	metrics         *metrics.Metrics
	dispatchRunner  *dispatcher.Runner
}

// openDB is a seam for tests; it returns a migrated database.
var openDB = func(ctx context.Context, dsn string, rm repomanager.RepositoryManager) (*sql.DB, error) {
	db, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(c.LogBackend, os.Stdout)

	rm := repomanager.NewPostgresRepositoryManager()
	db, err := openDB(ctx, c.DatabaseDSN, rm)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	vault, err := cryptox.NewVault(c.VaultSecret)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault init error: %w", err)
	}

	as := services.NewAccountService(db, rm, vault, logger)
	rs := services.NewReminderService(db, rm, c.Location(), logger)
	es := services.NewExportService(rs, c, logger)

	if c.SMTPHost == "" {
		logger.Warn(ctx, "No SMTP host configured, due reminders will be logged and kept pending")
	}
	sender := mail.NewSender(c.SMTPHost, c.SMTPPort, c.SMTPTimeout, logger)

	mt := metrics.New()
	d := dispatcher.New(rm, db, vault, sender, mt, logger)

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		accountService:  as,
		reminderService: rs,
		exportService:   es,
		metrics:         mt,
		dispatchRunner:  dispatcher.NewRunner(d, c.SweepInterval, logger),
	}, nil
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

func (app *App) startWebServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := web.NewServer(app.config, app.logger, app.accountService, app.reminderService,
		app.exportService, app.metrics.Handler(app.logger))

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.accountService, app.reminderService,
		app.dispatchRunner, app.exportService, app.config.SessionSecret, app.config.SessionValidityDuration)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run starts the dispatcher and both servers and blocks until ctx is
// cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	app.dispatchRunner.Start()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startWebServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.shutdown(ctx)
}

func (app *App) shutdown(ctx context.Context) {
	if err := app.dispatchRunner.Stop(); err != nil {
		app.logger.Error(ctx, "stopping dispatcher", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}

// Package bootstrap wires configuration, storage, engines, and the HTTP
// server into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudbill/cloudbill/adapters/clock"
	"github.com/cloudbill/cloudbill/adapters/idgen"
	"github.com/cloudbill/cloudbill/adapters/metrics"
	"github.com/cloudbill/cloudbill/adapters/sqlite"
	"github.com/cloudbill/cloudbill/app"
	"github.com/cloudbill/cloudbill/config"
	"github.com/cloudbill/cloudbill/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	DB         *sqlite.DB
	Reporter   *app.Reporter
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	holder *config.Holder
}

// New creates an application from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	return build(cfg, nil)
}

// NewWithHotReload creates an application that reloads its configuration on
// file change and SIGHUP. Only fields listed by config.ReloadableFields take
// effect without restart.
func NewWithHotReload(path string) (*App, error) {
	logger := setupLogger(&config.Config{Logging: config.LoggingConfig{Level: "info", Format: "json"}})

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, err
	}
	if err := holder.WatchFile(); err != nil {
		return nil, err
	}
	holder.WatchSignals()

	holder.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})

	return build(holder.Get(), holder)
}

func build(cfg *config.Config, holder *config.Holder) (*App, error) {
	logger := setupLogger(cfg)

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
	}

	ids := idgen.UUID{}
	usageStore := sqlite.NewUsageStore(db, ids)
	priceStore := sqlite.NewPriceStore(db, ids)
	directory := sqlite.NewDirectoryStore(db)

	reporter := app.NewReporter(app.ReporterDeps{
		Usage:     usageStore,
		Prices:    priceStore,
		Directory: directory,
		Metrics:   collector,
		Logger:    logger,
		Workers:   cfg.Report.Workers,
	})

	handler := web.NewHandler(web.Deps{
		Reporter:    reporter,
		Usage:       usageStore,
		Prices:      priceStore,
		Clock:       clock.Real{},
		Metrics:     collector,
		Logger:      logger,
		Timeout:     cfg.Report.Timeout,
		MetricsPath: cfg.Metrics.Path,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		Logger:     logger,
		DB:         db,
		Reporter:   reporter,
		HTTPServer: server,
		Metrics:    collector,
		holder:     holder,
	}, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTPServer.Addr).Msg("http server listening")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if a.holder != nil {
		a.holder.Stop()
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

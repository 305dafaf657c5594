// Command quizd serves the quiz HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/internal/config"
	"github.com/MrEthical07/goQuiz/internal/httpapi"
	"github.com/MrEthical07/goQuiz/internal/janitor"
	otelexport "github.com/MrEthical07/goQuiz/metrics/export/otel"
	"github.com/MrEthical07/goQuiz/middleware"
	"github.com/MrEthical07/goQuiz/store/sqlstore"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("quizd exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	logger.Info("connected to database", slog.String("driver", store.Driver()))

	if cfg.Database.MigrateOnStart {
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		version, dirty, _ := store.MigrationVersion()
		logger.Info("database migrations completed", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))

	engine, err := goQuiz.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithUserStore(store).
		WithQuizStore(store).
		WithAuditSink(goQuiz.NewSlogSink(logger.With("component", "audit"))).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	exporter, err := otelexport.New(otel.Meter("github.com/MrEthical07/goQuiz"), engine)
	if err != nil {
		return fmt.Errorf("otel exporter: %w", err)
	}
	defer exporter.Close()

	if cfg.Janitor.Enabled {
		j, err := janitor.New(store, janitor.Config{
			Interval:   cfg.Janitor.Interval,
			StaleAfter: cfg.Janitor.StaleAfter,
		}, logger)
		if err != nil {
			return err
		}
		if err := j.Start(); err != nil {
			return fmt.Errorf("start janitor: %w", err)
		}
		defer j.Stop()
	}

	api, err := httpapi.New(httpapi.Options{
		Engine:         engine,
		Store:          store,
		Logger:         logger,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
		RequestTimeout: cfg.Server.WriteTimeout,
		Cookie: &middleware.RefreshCookie{
			Name:   "rt",
			Path:   "/auth/session",
			Domain: cfg.Auth.CookieDomain,
			Secure: cfg.Auth.CookieSecure,
		},
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout + 5*time.Second,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/internal/config"
	"github.com/MrEthical07/goQuiz/store/sqlstore"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "quizctl",
	Short:         "Administer a goQuiz deployment",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
}

// deps holds what a command opened; close releases it.
type deps struct {
	cfg    *config.Config
	store  *sqlstore.Store
	engine *goQuiz.Engine
	redis  *redis.Client
}

func (d *deps) close() {
	if d.engine != nil {
		d.engine.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
}

func openStore(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &deps{cfg: cfg, store: store}, nil
}

// openEngine builds an engine over the configured store. Catalog writes do
// not touch Redis, so no connection is made until a token operation runs.
func openEngine(ctx context.Context, out io.Writer) (*deps, error) {
	d, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	d.redis = redis.NewClient(&redis.Options{
		Addr:     d.cfg.Redis.Addr,
		Password: d.cfg.Redis.Password,
		DB:       d.cfg.Redis.DB,
	})

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelWarn}))
	d.engine, err = goQuiz.New().
		WithConfig(d.cfg.Engine()).
		WithRedis(d.redis).
		WithUserStore(d.store).
		WithQuizStore(d.store).
		WithLogger(logger).
		Build()
	if err != nil {
		d.close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return d, nil
}

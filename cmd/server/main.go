package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"two-truths/internal/config"
	"two-truths/internal/db"
	"two-truths/internal/game"
	"two-truths/internal/logging"
	"two-truths/internal/server"
)

const releaseVersion = "0.1.0"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(newCmd().ExecuteContext(ctx))
}

func newCmd() *cobra.Command {
	cfg := config.Default()
	cmd := &cobra.Command{
		Use:           "two-truths",
		Short:         "Backend for the two truths and a lie Telegram mini app.",
		Args:          cobra.NoArgs,
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.BindEnv(cmd.Flags(), viper.New())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cfg.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit.",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
				return err
			}
			logrus.Info("database migrations applied")
			return nil
		},
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("two-truths v{{.Version}}\n")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	store, ready, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	retry := game.DefaultRetryPolicy()
	retry.Attempts = cfg.StoreRetryAttempts
	engine := game.NewEngine(store, game.Options{Retry: retry, Logger: log})

	opts := []server.Option{}
	if ready != nil {
		opts = append(opts, server.WithReadiness(ready))
	}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis is unreachable, rate limiting will fail open")
		}
		opts = append(opts, server.WithRedis(client))
	}

	api := server.New(engine, cfg, log, opts...)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks Postgres when DATABASE_URL is set and the in-memory store
// otherwise.
func openStore(cfg config.Config, log *logrus.Logger) (game.Store, func(context.Context) error, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is not set, using the in-memory store")
		return game.NewMemoryStore(), nil, func() {}, nil
	}
	if cfg.AutoMigrate {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			return nil, nil, nil, err
		}
		log.Info("database migrations applied")
	}
	conn, err := db.Open(cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
		ConnMaxIdleTime: cfg.ConnMaxIdleTime(),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, nil, nil, err
	}
	return db.NewRepository(conn), sqlDB.PingContext, func() { _ = sqlDB.Close() }, nil
}

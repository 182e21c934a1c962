package main

import (
	"errors"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"two-truths/internal/config"
	"two-truths/internal/db"
)

type options struct {
	databaseURL string
	down        int
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	if opts.down <= 0 {
		if err := db.MigrateUp(opts.databaseURL); err != nil {
			logrus.WithError(err).Fatal("database migration failed")
		}
		logrus.Info("database migrations applied")
		return
	}

	m, err := db.NewMigrator(opts.databaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("migration setup failed")
	}
	defer m.Close()
	if err := m.Steps(-opts.down); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logrus.WithError(err).Fatal("rollback failed")
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logrus.WithError(err).Fatal("read migration version")
	}
	logrus.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("rolled back")
}

// parseArgs accepts the shared config flags next to --down, with the
// environment filling whatever the command line leaves out.
func parseArgs(args []string) (options, error) {
	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations instead of applying")
	cfg, err := config.Parse(fs, args)
	if err != nil {
		return options{}, err
	}
	if cfg.DatabaseURL == "" {
		return options{}, errors.New("DATABASE_URL is not set")
	}
	if *down < 0 {
		return options{}, errors.New("--down must not be negative")
	}
	return options{databaseURL: cfg.DatabaseURL, down: *down}, nil
}

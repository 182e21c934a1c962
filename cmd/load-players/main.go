package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"two-truths/internal/config"
	"two-truths/internal/db"
	"two-truths/internal/game"
	"two-truths/internal/logging"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	cfg := config.Default()
	var (
		file   string
		roomID int
	)
	cmd := &cobra.Command{
		Use:          "load-players",
		Short:        "Register players from a CSV roster, optionally adding them to a room.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.BindEnv(cmd.Flags(), viper.New()); err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			records, err := db.ReadRoster(file)
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg.DatabaseURL, db.PoolOptions{MaxOpenConns: cfg.DBMaxOpenConns})
			if err != nil {
				return err
			}
			if sqlDB, err := conn.DB(); err == nil {
				defer sqlDB.Close()
			}
			engine := game.NewEngine(db.NewRepository(conn), game.Options{Logger: log})
			loaded, err := load(cmd.Context(), engine, records, roomID)
			log.WithFields(logrus.Fields{"loaded": loaded, "total": len(records)}).Info("roster import finished")
			return err
		},
	}
	fs := cmd.Flags()
	cfg.RegisterFlags(fs)
	fs.StringVar(&file, "file", "players.csv", "path to the roster csv (id,name,surname,position)")
	fs.IntVar(&roomID, "room", 0, "room to add every imported player to")
	return cmd
}

// load registers every record and joins it to roomID when one is given.
// It stops at the first failure and reports how many rows made it in.
func load(ctx context.Context, engine *game.Engine, records []db.RosterRecord, roomID int) (int, error) {
	if roomID != 0 {
		if _, err := engine.Rooms.Get(ctx, roomID); err != nil {
			return 0, err
		}
	}
	loaded := 0
	for _, record := range records {
		profile := game.Profile{Name: record.Name, Surname: record.Surname, Position: record.Position}
		if _, err := engine.Players.Register(ctx, record.ID, profile); err != nil {
			return loaded, err
		}
		if roomID != 0 {
			if _, err := engine.Rooms.JoinRoom(ctx, record.ID, roomID); err != nil {
				return loaded, err
			}
		}
		loaded++
	}
	return loaded, nil
}

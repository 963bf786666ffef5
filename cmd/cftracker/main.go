package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vytor/cftracker/internal/config"
	"github.com/vytor/cftracker/internal/db"
	"github.com/vytor/cftracker/internal/logger"
)

var (
	cfg      config.Config
	database *db.DB
	log      *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cftracker",
	Short: "Track students' Codeforces progress",
	Long: `cftracker keeps a roster of students and mirrors their Codeforces
profiles, contests, rating history and submissions into a local database.

Configuration comes from .env, an optional YAML file named by CONFIG_PATH,
and environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log = logger.New(
			logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
			logger.WithJSON(cfg.LogFormat == "json"),
			logger.WithColors(cfg.LogFormat == "console"),
		)
		logger.SetDefault(log)
		log.Debug("configuration loaded: addr=%s db_path=%s cf_base_url=%s", cfg.Addr, cfg.DBPath, cfg.CFBaseURL)

		database, err = db.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if database != nil {
			log.Debug("closing database connection")
			_ = database.Close()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, syncCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and list the applied ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Open has already applied anything pending.
		migrations, err := database.AppliedMigrations(cmd.Context())
		if err != nil {
			return fmt.Errorf("list migrations: %w", err)
		}
		for _, m := range migrations {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
		}
		log.Info("schema up to date (%d migrations)", len(migrations))
		return nil
	},
}

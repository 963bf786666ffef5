package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	cfsync "github.com/vytor/cftracker/internal/sync"
)

var syncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync [handle...]",
	Short: "Sync students once and print the batch report",
	Long: `Runs one sync batch in the foreground.

With handles, only those students are synced. Without handles, every student
not synced within SYNC_STALE_AFTER is synced. --all syncs every student with
sync enabled regardless of staleness.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every sync-enabled student")
}

func runSync(cmd *cobra.Command, handles []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if syncAll && len(handles) > 0 {
		return fmt.Errorf("--all cannot be combined with handles")
	}

	repos := newRepositories(database)
	engine := newEngine(cfg, repos)

	var ids []int64
	trigger := cfsync.TriggerManual
	switch {
	case len(handles) > 0:
		for _, handle := range handles {
			student, err := repos.students.GetByHandle(ctx, handle)
			if err != nil {
				return fmt.Errorf("look up %s: %w", handle, err)
			}
			if student == nil {
				return fmt.Errorf("no tracked student with handle %q", handle)
			}
			ids = append(ids, student.ID)
		}
	case syncAll:
		trigger = cfsync.TriggerForced
		students, err := repos.students.ListSyncEnabled(ctx)
		if err != nil {
			return fmt.Errorf("list students: %w", err)
		}
		for _, s := range students {
			ids = append(ids, s.ID)
		}
	default:
		students, err := repos.students.ListStale(ctx, time.Now().Add(-cfg.SyncStaleAfter))
		if err != nil {
			return fmt.Errorf("list stale students: %w", err)
		}
		for _, s := range students {
			ids = append(ids, s.ID)
		}
	}

	log.Info("syncing %d students (trigger=%s)", len(ids), trigger)
	report := engine.SyncBatch(ctx, trigger, ids)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if report.Cancelled {
		return fmt.Errorf("sync cancelled after %d of %d students", report.Succeeded+report.Failed, report.Requested)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d syncs failed", report.Failed, report.Requested)
	}
	return nil
}

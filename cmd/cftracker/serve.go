package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/cftracker/internal/api"
	"github.com/vytor/cftracker/internal/jobs"
	"github.com/vytor/cftracker/internal/scheduler"
	"github.com/vytor/cftracker/internal/services"
	"github.com/vytor/cftracker/internal/supervisor"
	"github.com/vytor/cftracker/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the background sync scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("===========================================")
	log.Info("cftracker server starting")
	log.Info("===========================================")

	repos := newRepositories(database)
	engine := newEngine(cfg, repos)

	pool := worker.NewPool(cfg.SyncWorkerCount, cfg.SyncQueueSize)
	queue := jobs.NewWorkerQueue(pool, engine)
	sched := scheduler.New(engine, repos.students, scheduler.Options{
		Interval:   cfg.SyncInterval,
		StaleAfter: cfg.SyncStaleAfter,
		RunOnStart: cfg.SyncOnStart,
	})

	srv := &api.Server{
		StudentService:  services.NewStudentService(repos.students, queue),
		ProgressService: services.NewProgressService(repos.students, repos.contests, repos.ratings, repos.submissions, nil),
		SyncService:     services.NewSyncService(repos.students, engine, queue, sched),
		DB:              database,
		RateLimit:       cfg.HTTPRateLimit,
		RateWindow:      time.Minute,
		CORSOrigins:     cfg.CORSOriginList(),
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(log, supervisor.DefaultTreeConfig())
	tree.AddSyncService(supervisor.NewStartStopService("worker-pool", pool))
	tree.AddSyncService(supervisor.NewStartStopService("scheduler", sched))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, 30*time.Second))

	log.Info("HTTP server listening on %s", cfg.Addr)
	err := tree.Serve(ctx)
	log.Info("received shutdown signal, services stopped")

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil {
		for _, svc := range report {
			log.Warn("service did not stop in time: %s", svc.Name)
		}
	}

	log.Info("===========================================")
	log.Info("cftracker server stopped")
	log.Info("===========================================")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

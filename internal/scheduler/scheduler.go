// Package scheduler runs sync batches on a timer and on request.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/metrics"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
	cfsync "github.com/vytor/cftracker/internal/sync"
)

// ErrBatchRunning is returned when a batch is requested while another runs.
var ErrBatchRunning = errors.New("a sync batch is already running")

// BatchRunner executes a batch under a caller-chosen run id.
type BatchRunner interface {
	RunBatch(ctx context.Context, runID string, trigger cfsync.Trigger, studentIDs []int64) *cfsync.BatchReport
}

type Options struct {
	Interval   time.Duration
	StaleAfter time.Duration
	RunOnStart bool
	Clock      clockwork.Clock
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running        bool                `json:"running"`
	CurrentRunID   string              `json:"current_run_id,omitempty"`
	CurrentTrigger cfsync.Trigger      `json:"current_trigger,omitempty"`
	Interval       string              `json:"interval"`
	StaleAfter     string              `json:"stale_after"`
	NextRunAt      *time.Time          `json:"next_run_at,omitempty"`
	LastRun        *cfsync.BatchReport `json:"last_run,omitempty"`
}

type Scheduler struct {
	runner     BatchRunner
	students   repository.StudentRepository
	clock      clockwork.Clock
	interval   time.Duration
	staleAfter time.Duration
	runOnStart bool
	log        *logger.Logger

	mu             sync.Mutex
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	running        bool
	currentRunID   string
	currentTrigger cfsync.Trigger
	lastReport     *cfsync.BatchReport
	nextRunAt      time.Time
}

func New(runner BatchRunner, students repository.StudentRepository, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 24 * time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		runner:     runner,
		students:   students,
		clock:      opts.Clock,
		interval:   opts.Interval,
		staleAfter: opts.StaleAfter,
		runOnStart: opts.RunOnStart,
		log:        logger.Default().WithPrefix("scheduler"),
	}
}

// Start launches the tick loop. Batches started later inherit ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(logger.NewContext(ctx, s.log))
	ticker := s.clock.NewTicker(s.interval)
	s.nextRunAt = s.clock.Now().Add(s.interval)

	s.wg.Add(1)
	go s.loop(s.ctx, ticker)

	s.log.Info("scheduler started: interval=%v stale_after=%v run_on_start=%t", s.interval, s.staleAfter, s.runOnStart)
	if s.runOnStart {
		if _, err := s.startLocked(cfsync.TriggerScheduled); err != nil {
			s.log.Warn("initial run not started: %v", err)
		}
	}
	return nil
}

// Stop cancels any running batch and waits for all goroutines to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, ticker clockwork.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.mu.Lock()
			s.nextRunAt = s.clock.Now().Add(s.interval)
			_, err := s.startLocked(cfsync.TriggerScheduled)
			s.mu.Unlock()
			if errors.Is(err, ErrBatchRunning) {
				s.log.Info("tick skipped: previous batch still running")
			} else if err != nil {
				s.log.Error("scheduled run not started: %v", err)
			}
		}
	}
}

// TriggerStale starts a background batch over stale students and returns its run id.
func (s *Scheduler) TriggerStale(ctx context.Context) (string, error) {
	return s.trigger(cfsync.TriggerManual)
}

// TriggerAll starts a background batch over every sync-enabled student.
func (s *Scheduler) TriggerAll(ctx context.Context) (string, error) {
	return s.trigger(cfsync.TriggerForced)
}

func (s *Scheduler) trigger(trigger cfsync.Trigger) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return "", errors.New("scheduler not started")
	}
	return s.startLocked(trigger)
}

// startLocked claims the running slot and launches a batch. s.mu must be held.
func (s *Scheduler) startLocked(trigger cfsync.Trigger) (string, error) {
	if s.running {
		return "", ErrBatchRunning
	}
	if s.ctx.Err() != nil {
		return "", s.ctx.Err()
	}

	runID := uuid.NewString()
	s.running = true
	s.currentRunID = runID
	s.currentTrigger = trigger
	metrics.BatchRunning.Set(1)

	s.wg.Add(1)
	go s.run(s.ctx, runID, trigger)
	return runID, nil
}

func (s *Scheduler) run(ctx context.Context, runID string, trigger cfsync.Trigger) {
	defer s.wg.Done()

	var report *cfsync.BatchReport
	defer func() {
		s.mu.Lock()
		s.running = false
		s.currentRunID = ""
		s.currentTrigger = ""
		if report != nil {
			s.lastReport = report
		}
		s.mu.Unlock()
		metrics.BatchRunning.Set(0)
	}()

	ids, err := s.selectStudents(ctx, trigger)
	if err != nil {
		s.log.Error("failed to select students for %s run %s: %v", trigger, runID, err)
		return
	}
	if len(ids) == 0 {
		s.log.Debug("%s run %s: nothing to sync", trigger, runID)
	}
	report = s.runner.RunBatch(ctx, runID, trigger, ids)
}

func (s *Scheduler) selectStudents(ctx context.Context, trigger cfsync.Trigger) ([]int64, error) {
	var (
		students []models.Student
		err      error
	)
	if trigger == cfsync.TriggerForced {
		students, err = s.students.ListSyncEnabled(ctx)
	} else {
		students, err = s.students.ListStale(ctx, s.clock.Now().Add(-s.staleAfter))
	}
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	ids := make([]int64, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids, nil
}

// Status reports whether a batch is running and how the last one went.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:        s.running,
		CurrentRunID:   s.currentRunID,
		CurrentTrigger: s.currentTrigger,
		Interval:       s.interval.String(),
		StaleAfter:     s.staleAfter.String(),
		LastRun:        s.lastReport,
	}
	if s.cancel != nil && !s.nextRunAt.IsZero() {
		next := s.nextRunAt
		st.NextRunAt = &next
	}
	return st
}

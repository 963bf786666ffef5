// Package sync reconciles a student's Codeforces data with the local store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/vytor/cftracker/internal/codeforces"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/metrics"
	"github.com/vytor/cftracker/internal/models"
	"github.com/vytor/cftracker/internal/repository"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStudentNotFound is returned when asked to sync an unknown student.
	ErrStudentNotFound = repository.ErrStudentNotFound
	// ErrHandleChanged is returned when the student's handle changed while
	// the sync was fetching. The fetched data is discarded.
	ErrHandleChanged = repository.ErrHandleChanged
)

type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerForced    Trigger = "forced"
)

// Result is the outcome of one student's sync.
type Result struct {
	StudentID     int64             `json:"student_id"`
	Handle        string            `json:"handle"`
	Inserted      models.SyncCounts `json:"inserted"`
	CurrentRating int               `json:"current_rating"`
	MaxRating     int               `json:"max_rating"`
	SyncedAt      *time.Time        `json:"synced_at,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// BatchReport summarises a run over several students.
type BatchReport struct {
	RunID      string    `json:"run_id"`
	Trigger    Trigger   `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Requested  int       `json:"requested"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Cancelled  bool      `json:"cancelled"`
	Results    []Result  `json:"results"`
}

type Options struct {
	// UserDelay is the pause between two students of a batch.
	UserDelay time.Duration
	// SubmissionLimit caps submissions fetched per student; 0 fetches all.
	SubmissionLimit int
	Clock           clockwork.Clock
}

type Engine struct {
	students        repository.StudentRepository
	store           repository.SyncRepository
	client          codeforces.ClientInterface
	clock           clockwork.Clock
	userDelay       time.Duration
	submissionLimit int
	inflight        singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context of one shared sync run. It is cancelled once every
// caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func NewEngine(students repository.StudentRepository, store repository.SyncRepository, client codeforces.ClientInterface, opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		students:        students,
		store:           store,
		client:          client,
		clock:           clock,
		userDelay:       opts.UserDelay,
		submissionLimit: opts.SubmissionLimit,
		flights:         make(map[string]*flight),
	}
}

// SyncStudent fetches a student's remote state and stores whatever is new.
// Concurrent calls for the same student and handle share one run. A caller
// that gives up gets its own ctx error without failing the others.
func (e *Engine) SyncStudent(ctx context.Context, studentID int64) (*Result, error) {
	student, err := e.students.Get(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load student %d: %w", studentID, err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %d: %w", studentID, ErrStudentNotFound)
	}

	key := fmt.Sprintf("%d:%s", student.ID, strings.ToLower(student.Handle))
	f := e.join(ctx, key)
	defer e.leave(key, f)

	ch := e.inflight.DoChan(key, func() (any, error) {
		return e.syncStudent(f.ctx, student)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			logger.FromContext(ctx).WithPrefix("sync").Debug("joined in-flight sync for student_id=%d", studentID)
		}
		res, _ := r.Val.(*Result)
		if res != nil {
			cp := *res
			res = &cp
		}
		return res, r.Err
	}
}

func (e *Engine) join(ctx context.Context, key string) *flight {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.flights[key]
	if f == nil {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: runCtx, cancel: cancel}
		e.flights[key] = f
	}
	f.waiters++
	return f
}

func (e *Engine) leave(key string, f *flight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if e.flights[key] == f {
		delete(e.flights, key)
	}
	// A run cancelled for lack of waiters must not be joined by later callers.
	e.inflight.Forget(key)
}

func (e *Engine) syncStudent(ctx context.Context, student *models.Student) (*Result, error) {
	log := logger.FromContext(ctx).WithPrefix("sync").WithFields(map[string]any{
		"student_id": student.ID,
		"handle":     student.Handle,
	})
	ctx = logger.NewContext(ctx, log)
	res := &Result{StudentID: student.ID, Handle: student.Handle}
	start := e.clock.Now()
	log.Info("sync started")

	update, err := e.fetch(ctx, student)
	if err != nil {
		return e.fail(ctx, res, err)
	}

	counts, err := e.store.ApplySync(ctx, student.ID, student.Handle, update)
	if err != nil {
		return e.fail(ctx, res, fmt.Errorf("store sync: %w", err))
	}

	res.Inserted = counts
	res.CurrentRating = update.Profile.CurrentRating
	res.MaxRating = update.Profile.MaxRating
	syncedAt := update.SyncedAt
	res.SyncedAt = &syncedAt

	metrics.StudentSyncs.WithLabelValues("ok").Inc()
	metrics.RecordsInserted.WithLabelValues("contests").Add(float64(counts.Contests))
	metrics.RecordsInserted.WithLabelValues("submissions").Add(float64(counts.Submissions))
	metrics.RecordsInserted.WithLabelValues("rating_changes").Add(float64(counts.RatingChanges))

	log.Info("sync finished in %v: contests=%d submissions=%d rating_changes=%d rating=%d",
		e.clock.Since(start), counts.Contests, counts.Submissions, counts.RatingChanges, res.CurrentRating)
	return res, nil
}

// fetch pulls the remote state and reduces it to the rows not yet stored.
func (e *Engine) fetch(ctx context.Context, student *models.Student) (models.SyncUpdate, error) {
	info, err := e.client.UserInfo(ctx, student.Handle)
	if err != nil {
		return models.SyncUpdate{}, fmt.Errorf("fetch profile: %w", err)
	}
	ratings, err := e.client.UserRating(ctx, student.Handle)
	if err != nil {
		return models.SyncUpdate{}, fmt.Errorf("fetch rating history: %w", err)
	}
	subs, err := e.client.UserStatus(ctx, student.Handle, e.submissionLimit)
	if err != nil {
		return models.SyncUpdate{}, fmt.Errorf("fetch submissions: %w", err)
	}

	keys, err := e.store.ExistingKeys(ctx, student.ID)
	if err != nil {
		return models.SyncUpdate{}, fmt.Errorf("load existing keys: %w", err)
	}

	return BuildUpdate(info, ratings, subs, keys, e.clock.Now()), nil
}

// fail stamps the failure on the student unless the caller gave up or the
// student has moved to another handle.
func (e *Engine) fail(ctx context.Context, res *Result, cause error) (*Result, error) {
	log := logger.FromContext(ctx)
	res.Error = cause.Error()

	switch {
	case errors.Is(cause, ErrHandleChanged):
		metrics.StudentSyncs.WithLabelValues("superseded").Inc()
		log.Warn("sync discarded: %v", cause)
		return res, cause
	case errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded):
		metrics.StudentSyncs.WithLabelValues("failed").Inc()
		log.Warn("sync interrupted: %v", cause)
		return res, cause
	}

	metrics.StudentSyncs.WithLabelValues("failed").Inc()
	log.Error("sync failed: %v", cause)
	err := e.students.MarkSyncFailed(ctx, res.StudentID, res.Handle, cause.Error(), e.clock.Now())
	switch {
	case errors.Is(err, ErrHandleChanged):
		log.Warn("sync failure not recorded: handle changed")
	case err != nil:
		log.Error("failed to record sync failure: %v", err)
	}
	return res, cause
}

// SyncBatch syncs students in order under a fresh run id.
func (e *Engine) SyncBatch(ctx context.Context, trigger Trigger, studentIDs []int64) *BatchReport {
	return e.RunBatch(ctx, uuid.NewString(), trigger, studentIDs)
}

// RunBatch syncs students in order, pausing UserDelay between them. A
// failing student is reported and the batch moves on. Cancelling ctx stops
// the batch and students not reached are left out of the report.
func (e *Engine) RunBatch(ctx context.Context, runID string, trigger Trigger, studentIDs []int64) *BatchReport {
	log := logger.FromContext(ctx).WithPrefix("sync").WithFields(map[string]any{
		"run_id":  runID,
		"trigger": string(trigger),
	})
	ctx = logger.NewContext(ctx, log)

	report := &BatchReport{
		RunID:     runID,
		Trigger:   trigger,
		StartedAt: e.clock.Now(),
		Requested: len(studentIDs),
		Results:   []Result{},
	}
	log.Info("batch started: %d students", len(studentIDs))

	for i, id := range studentIDs {
		if i > 0 && e.userDelay > 0 {
			select {
			case <-ctx.Done():
			case <-e.clock.After(e.userDelay):
			}
		}
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		res, err := e.SyncStudent(ctx, id)
		if res == nil {
			res = &Result{StudentID: id}
		}
		if err != nil {
			res.Error = err.Error()
			report.Failed++
		} else {
			report.Succeeded++
		}
		report.Results = append(report.Results, *res)
	}
	if ctx.Err() != nil {
		report.Cancelled = true
	}

	report.FinishedAt = e.clock.Now()
	metrics.BatchDuration.WithLabelValues(string(trigger)).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	log.Info("batch finished in %v: succeeded=%d failed=%d cancelled=%t",
		report.FinishedAt.Sub(report.StartedAt), report.Succeeded, report.Failed, report.Cancelled)
	return report
}

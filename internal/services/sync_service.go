package services

import (
	"context"
	stderrors "errors"

	"github.com/vytor/cftracker/internal/codeforces"
	"github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/jobs"
	"github.com/vytor/cftracker/internal/logger"
	"github.com/vytor/cftracker/internal/repository"
	"github.com/vytor/cftracker/internal/scheduler"
	cfsync "github.com/vytor/cftracker/internal/sync"
)

// StudentSyncer runs one student's sync inline.
type StudentSyncer interface {
	SyncStudent(ctx context.Context, studentID int64) (*cfsync.Result, error)
}

// BatchTrigger starts and reports on background batches.
type BatchTrigger interface {
	TriggerStale(ctx context.Context) (string, error)
	TriggerAll(ctx context.Context) (string, error)
	Status() scheduler.Status
}

// SyncService exposes on-demand and batch syncs.
type SyncService interface {
	// SyncNow runs the sync inline when wait is set, otherwise it queues it
	// and returns a nil result.
	SyncNow(ctx context.Context, studentID int64, wait bool) (*cfsync.Result, error)
	RunBatch(ctx context.Context, force bool) (string, error)
	Status(ctx context.Context) scheduler.Status
}

type syncService struct {
	studentRepo repository.StudentRepository
	syncer      StudentSyncer
	queue       jobs.JobQueue
	batches     BatchTrigger
}

// NewSyncService creates a new SyncService
func NewSyncService(studentRepo repository.StudentRepository, syncer StudentSyncer, queue jobs.JobQueue, batches BatchTrigger) SyncService {
	return &syncService{studentRepo: studentRepo, syncer: syncer, queue: queue, batches: batches}
}

func (s *syncService) SyncNow(ctx context.Context, studentID int64, wait bool) (*cfsync.Result, error) {
	log := logger.FromContext(ctx)
	log.Debug("on-demand sync: student_id=%d wait=%t", studentID, wait)

	if !wait {
		student, err := s.studentRepo.Get(ctx, studentID)
		if err != nil {
			log.Error("failed to load student: %v", err)
			return nil, errors.NewInternalError(err)
		}
		if student == nil {
			return nil, errors.NewNotFoundError("student", studentID)
		}
		if err := s.queue.EnqueueSync(studentID); err != nil {
			if stderrors.Is(err, jobs.ErrQueueFull) {
				return nil, errors.NewUnavailableError("sync queue is full, retry later", err)
			}
			log.Error("failed to enqueue sync: %v", err)
			return nil, errors.NewInternalError(err)
		}
		return nil, nil
	}

	res, err := s.syncer.SyncStudent(ctx, studentID)
	if err != nil {
		return nil, syncError(studentID, err)
	}
	return res, nil
}

func (s *syncService) RunBatch(ctx context.Context, force bool) (string, error) {
	log := logger.FromContext(ctx)

	var (
		runID string
		err   error
	)
	if force {
		runID, err = s.batches.TriggerAll(ctx)
	} else {
		runID, err = s.batches.TriggerStale(ctx)
	}
	if err != nil {
		if stderrors.Is(err, scheduler.ErrBatchRunning) {
			return "", errors.NewConflictError("a sync batch is already running")
		}
		log.Error("failed to start batch: %v", err)
		return "", errors.NewUnavailableError("sync scheduler is not accepting runs", err)
	}
	log.Info("batch %s started (force=%t)", runID, force)
	return runID, nil
}

func (s *syncService) Status(ctx context.Context) scheduler.Status {
	return s.batches.Status()
}

// syncError maps engine and remote failures onto API errors.
func syncError(studentID int64, err error) error {
	switch {
	case stderrors.Is(err, cfsync.ErrStudentNotFound):
		return errors.NewNotFoundError("student", studentID)
	case stderrors.Is(err, cfsync.ErrHandleChanged):
		return errors.NewConflictError("student handle changed during sync, retry")
	case stderrors.Is(err, codeforces.ErrHandleNotFound):
		return errors.NewValidationError("handle", "not found on Codeforces")
	case stderrors.Is(err, codeforces.ErrRateLimited), stderrors.Is(err, codeforces.ErrUnavailable):
		return errors.NewUnavailableError("Codeforces is unavailable, retry later", err)
	}
	var apiErr *codeforces.APIError
	if stderrors.As(err, &apiErr) {
		return errors.NewUpstreamError("Codeforces rejected the request", err)
	}
	return errors.NewInternalError(err)
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vytor/cftracker/internal/models"
)

var (
	// ErrDuplicateHandle is returned when a handle is already tracked.
	ErrDuplicateHandle = errors.New("handle already tracked")
	// ErrStudentNotFound is returned by writes that target a missing student.
	ErrStudentNotFound = errors.New("student not found")
	// ErrHandleChanged is returned by sync writes whose handle no longer
	// matches the student's. Nothing is written.
	ErrHandleChanged = errors.New("student handle changed during sync")
)

// StudentRepository handles student data access. Get and GetByHandle
// return nil, nil when nothing matches.
type StudentRepository interface {
	Get(ctx context.Context, id int64) (*models.Student, error)
	GetByHandle(ctx context.Context, handle string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	Count(ctx context.Context, filter models.StudentFilter) (int, error)
	Create(ctx context.Context, student models.Student) (*models.Student, error)
	Update(ctx context.Context, student models.Student) (*models.Student, error)
	Delete(ctx context.Context, id int64) error
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Student, error)
	ListSyncEnabled(ctx context.Context) ([]models.Student, error)
	MarkSyncFailed(ctx context.Context, id int64, handle, reason string, at time.Time) error
	ResetSyncData(ctx context.Context, id int64) error
}

// SyncRepository is the write side of the sync engine. ApplySync only
// writes while the student still has the handle the data was fetched for.
type SyncRepository interface {
	ExistingKeys(ctx context.Context, studentID int64) (*models.ExistingKeys, error)
	ApplySync(ctx context.Context, studentID int64, handle string, update models.SyncUpdate) (models.SyncCounts, error)
}

// ContestRepository handles contest history access. A nil since returns
// the full history.
type ContestRepository interface {
	ListByStudent(ctx context.Context, studentID int64, since *time.Time) ([]models.Contest, error)
}

// RatingRepository handles rating-change access.
type RatingRepository interface {
	ListByStudent(ctx context.Context, studentID int64, since *time.Time) ([]models.RatingChange, error)
}

// SubmissionRepository handles submission access. limit <= 0 means no limit.
type SubmissionRepository interface {
	ListByStudent(ctx context.Context, studentID int64, since *time.Time, limit int) ([]models.Submission, error)
}

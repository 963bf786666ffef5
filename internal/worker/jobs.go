package worker

import (
	"context"
	"fmt"

	cfsync "github.com/vytor/cftracker/internal/sync"
)

// StudentSyncer syncs a single student.
type StudentSyncer interface {
	SyncStudent(ctx context.Context, studentID int64) (*cfsync.Result, error)
}

// SyncStudentJob runs one on-demand sync in the background.
type SyncStudentJob struct {
	Syncer    StudentSyncer
	StudentID int64
}

func (j *SyncStudentJob) Name() string { return fmt.Sprintf("sync_student:%d", j.StudentID) }

func (j *SyncStudentJob) Run(ctx context.Context) error {
	_, err := j.Syncer.SyncStudent(ctx, j.StudentID)
	return err
}

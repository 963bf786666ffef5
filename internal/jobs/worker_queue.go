package jobs

import (
	"github.com/vytor/cftracker/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	pool   *worker.Pool
	syncer worker.StudentSyncer
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(pool *worker.Pool, syncer worker.StudentSyncer) *WorkerQueue {
	return &WorkerQueue{pool: pool, syncer: syncer}
}

func (q *WorkerQueue) EnqueueSync(studentID int64) error {
	return q.pool.Submit(&worker.SyncStudentJob{
		Syncer:    q.syncer,
		StudentID: studentID,
	})
}

var _ JobQueue = (*WorkerQueue)(nil)

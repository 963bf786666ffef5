package jobs

import "github.com/vytor/cftracker/internal/worker"

// ErrQueueFull is returned when a job cannot be queued right now.
var ErrQueueFull = worker.ErrQueueFull

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	EnqueueSync(studentID int64) error
}

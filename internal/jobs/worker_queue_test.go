package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/cftracker/internal/jobs"
	cfsync "github.com/vytor/cftracker/internal/sync"
	"github.com/vytor/cftracker/internal/worker"
)

type chanSyncer chan int64

func (c chanSyncer) SyncStudent(_ context.Context, id int64) (*cfsync.Result, error) {
	c <- id
	return &cfsync.Result{StudentID: id}, nil
}

func TestWorkerQueue_EnqueueSyncRunsOnPool(t *testing.T) {
	pool := worker.NewPool(1, 4)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	synced := make(chanSyncer, 1)
	q := jobs.NewWorkerQueue(pool, synced)
	require.NoError(t, q.EnqueueSync(7))

	select {
	case id := <-synced:
		assert.Equal(t, int64(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("sync job did not run")
	}
}

func TestWorkerQueue_FullQueue(t *testing.T) {
	pool := worker.NewPool(1, 1)
	q := jobs.NewWorkerQueue(pool, make(chanSyncer, 1))

	require.NoError(t, q.EnqueueSync(1))
	assert.ErrorIs(t, q.EnqueueSync(2), jobs.ErrQueueFull)
}

package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cfsync "github.com/vytor/cftracker/internal/sync"
	"github.com/vytor/cftracker/internal/worker"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type funcJob struct {
	name string
	fn   func(context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

func TestPool_RunsSubmittedJobs(t *testing.T) {
	pool := worker.NewPool(2, 8)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	var ran int32
	done := make(chan struct{}, 4)
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(funcJob{name: "count", fn: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			done <- struct{}{}
			return nil
		}}))
	}
	for i := 0; i < 4; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&ran))
}

func TestPool_SubmitFailsFastWhenFull(t *testing.T) {
	pool := worker.NewPool(1, 1)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(funcJob{name: "blocker", fn: func(ctx context.Context) error {
		close(started)
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}}))
	<-started

	noop := funcJob{name: "noop", fn: func(context.Context) error { return nil }}
	require.NoError(t, pool.Submit(noop))
	assert.ErrorIs(t, pool.Submit(noop), worker.ErrQueueFull)
	assert.Equal(t, 1, pool.QueueSize())
	close(block)
}

func TestPool_FailingAndPanickingJobsDoNotKillWorkers(t *testing.T) {
	pool := worker.NewPool(1, 4)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(funcJob{name: "fails", fn: func(context.Context) error { return errors.New("boom") }}))
	require.NoError(t, pool.Submit(funcJob{name: "panics", fn: func(context.Context) error { panic("kaboom") }}))
	require.NoError(t, pool.Submit(funcJob{name: "after", fn: func(context.Context) error { close(done); return nil }}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive earlier jobs")
	}
}

func TestPool_StopCancelsRunningJobs(t *testing.T) {
	pool := worker.NewPool(1, 1)
	require.NoError(t, pool.Start(context.Background()))

	started := make(chan struct{})
	require.NoError(t, pool.Submit(funcJob{name: "long", fn: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}))
	<-started

	require.NoError(t, pool.Stop())
	assert.ErrorIs(t, pool.Submit(funcJob{name: "late", fn: func(context.Context) error { return nil }}), worker.ErrPoolStopped)
	assert.NoError(t, pool.Stop(), "stop is idempotent")
}

type stubSyncer struct {
	got int64
}

func (s *stubSyncer) SyncStudent(_ context.Context, id int64) (*cfsync.Result, error) {
	s.got = id
	return &cfsync.Result{StudentID: id}, nil
}

func TestSyncStudentJob(t *testing.T) {
	syncer := &stubSyncer{}
	job := &worker.SyncStudentJob{Syncer: syncer, StudentID: 42}

	assert.Equal(t, "sync_student:42", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int64(42), syncer.got)
}

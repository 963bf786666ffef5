package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	shutdowns atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return nil
}

type fakeComponent struct {
	started  chan struct{}
	starts   atomic.Int32
	stops    atomic.Int32
	startErr error
}

func newFakeComponent() *fakeComponent {
	return &fakeComponent{started: make(chan struct{}, 8)}
}

func (f *fakeComponent) Start(context.Context) error {
	f.starts.Add(1)
	f.started <- struct{}{}
	return f.startErr
}

func (f *fakeComponent) Stop() error {
	f.stops.Add(1)
	return nil
}

func TestHTTPServerService_ShutsDownOnCancel(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, int32(1), srv.shutdowns.Load())
	assert.Equal(t, "http-server", svc.String())
}

func TestHTTPServerService_ReturnsListenError(t *testing.T) {
	srv := newFakeServer()
	srv.listenErr = errors.New("address in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Zero(t, srv.shutdowns.Load())
}

func TestStartStopService_Lifecycle(t *testing.T) {
	comp := newFakeComponent()
	svc := NewStartStopService("scheduler", comp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-comp.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int32(1), comp.stops.Load())
	assert.Equal(t, "scheduler", svc.String())
}

func TestStartStopService_StartFailure(t *testing.T) {
	comp := newFakeComponent()
	comp.startErr = errors.New("boom")

	err := NewStartStopService("worker-pool", comp).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker-pool start failed")
	assert.Zero(t, comp.stops.Load())
}

func TestTree_RunsAndStopsServices(t *testing.T) {
	tree := NewTree(nil, TreeConfig{ShutdownTimeout: 2 * time.Second})
	pool := newFakeComponent()
	srv := newFakeServer()
	tree.AddSyncService(NewStartStopService("worker-pool", pool))
	tree.AddAPIService(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-pool.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sync service never started")
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}

	assert.Equal(t, int32(1), pool.stops.Load())
	assert.Equal(t, int32(1), srv.shutdowns.Load())
}

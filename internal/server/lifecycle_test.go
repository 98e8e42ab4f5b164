package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// blockingService blocks in Start until Stop is called and records the stop
// order in a shared log.
type blockingService struct {
	name    string
	started chan struct{}
	stop    chan struct{}
	once    sync.Once
	log     *stopLog
}

type stopLog struct {
	mu    sync.Mutex
	order []string
}

func (s *stopLog) add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, name)
}

func newBlockingService(name string, log *stopLog) *blockingService {
	return &blockingService{name: name, started: make(chan struct{}), stop: make(chan struct{}), log: log}
}

func (b *blockingService) Start() error {
	close(b.started)
	<-b.stop
	return nil
}

func (b *blockingService) Stop() {
	b.once.Do(func() {
		b.log.add(b.name)
		close(b.stop)
	})
}

func waitStarted(t *testing.T, svcs ...*blockingService) {
	t.Helper()
	for _, s := range svcs {
		select {
		case <-s.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("service %s did not start in time", s.name)
		}
	}
}

func TestLifecycle_CancelStopsInReverseOrder(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	log := &stopLog{}
	loop := newBlockingService("loop", log)
	feed := newBlockingService("feed", log)
	lc.Add("loop", loop)
	lc.Add("feed", feed)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	waitStarted(t, loop, feed)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.Equal(t, []string{"feed", "loop"}, log.order)
}

func TestLifecycle_ServiceErrorIsReturned(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	log := &stopLog{}
	loop := newBlockingService("loop", log)
	boom := errors.New("boom")
	lc.Add("loop", loop)
	lc.Add("broken", &FuncService{
		StartFn: func() error { return boom },
		StopFn:  func() {},
	})

	err := lc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service broken")
	assert.Equal(t, []string{"loop"}, log.order)
}

func TestLifecycle_AddRejectsMissingArguments(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	assert.Panics(t, func() { lc.Add("", &FuncService{}) })
	assert.Panics(t, func() { lc.Add("x", nil) })
}

func TestFuncService(t *testing.T) {
	started, stopped := false, false
	svc := &FuncService{
		StartFn: func() error {
			started = true
			return nil
		},
		StopFn: func() { stopped = true },
	}

	assert.NoError(t, svc.Start())
	assert.True(t, started)
	svc.Stop()
	assert.True(t, stopped)
}

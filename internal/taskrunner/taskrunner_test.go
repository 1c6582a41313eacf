package taskrunner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/taskrunner"
)

type fnTask struct {
	taskrunner.BaseTask
	name string
	fn   func(ctx context.Context) error
}

func (f fnTask) Execute(ctx context.Context) error { return f.fn(ctx) }
func (f fnTask) String() string                    { return f.name }

func TestRunner_ExecutesTask(t *testing.T) {
	r := taskrunner.New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, r.Enqueue(ctx, fnTask{name: "t1", fn: func(context.Context) error {
		ran.Store(true)
		wg.Done()
		return nil
	}}))

	waitOrTimeout(t, &wg)
	assert.True(t, ran.Load())
}

func TestRunner_FailingTaskDoesNotBlockQueue(t *testing.T) {
	r := taskrunner.New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, r.Enqueue(ctx, fnTask{name: "fails", fn: func(context.Context) error {
		wg.Done()
		return errors.New("boom")
	}}))
	var secondRan atomic.Bool
	require.NoError(t, r.Enqueue(ctx, fnTask{name: "ok", fn: func(context.Context) error {
		secondRan.Store(true)
		wg.Done()
		return nil
	}}))

	waitOrTimeout(t, &wg)
	assert.True(t, secondRan.Load())
}

func TestRunner_DelayIsHonored(t *testing.T) {
	r := taskrunner.New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	start := time.Now()
	done := make(chan time.Time, 1)
	require.NoError(t, r.Enqueue(ctx, fnTask{
		BaseTask: taskrunner.BaseTask{DelayFor: 30 * time.Millisecond},
		name:     "delayed",
		fn: func(context.Context) error {
			done <- time.Now()
			return nil
		},
	}))

	select {
	case at := <-done:
		assert.GreaterOrEqual(t, at.Sub(start), 30*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delayed task")
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}
}

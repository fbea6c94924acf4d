package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvmd-go/kvmd/internal/primitives"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	server := wsrv.New(wsrv.Config{SocketPath: filepath.Join(t.TempDir(), "kvmd.sock")}, nil, nil)
	return New(server, nil)
}

func TestSuperviseRestartsFailingTask(t *testing.T) {
	o := newTestOrchestrator(t)

	var runs atomic.Int32
	task := Task{Name: "flaky", Run: func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	o.supervise(ctx, "test", task)

	// With a 1 s backoff the task runs at startup plus at least once
	// more before the deadline.
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestSuperviseStopsOnCancel(t *testing.T) {
	o := newTestOrchestrator(t)

	ctx, cancel := context.WithCancel(context.Background())
	task := Task{Name: "blocker", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	done := make(chan struct{})
	go func() {
		o.supervise(ctx, "test", task)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervise did not stop on cancel")
	}
}

func TestSuperviseRecoversFromPanic(t *testing.T) {
	o := newTestOrchestrator(t)

	var runs atomic.Int32
	task := Task{Name: "panicky", Run: func(ctx context.Context) error {
		runs.Add(1)
		panic("oops")
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	o.supervise(ctx, "test", task)

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestMergedStateCollectsAllSources(t *testing.T) {
	o := newTestOrchestrator(t)

	o.AddStateSource(StateSource{
		Name:     "hid",
		Notifier: primitives.NewNotifier(),
		State:    func() any { return map[string]any{"online": true} },
	})
	o.AddStateSource(StateSource{
		Name:     "atx",
		Notifier: primitives.NewNotifier(),
		State:    func() any { return map[string]any{"busy": false} },
	})

	state := o.mergedState()
	require.Contains(t, state, "hid")
	require.Contains(t, state, "atx")
}

func TestRunCleansUpComponentsInOrder(t *testing.T) {
	o := newTestOrchestrator(t)

	var order []string
	o.AddComponent(Component{Name: "first", Cleanup: func() { order = append(order, "first") }})
	o.AddComponent(Component{Name: "second", Cleanup: func() { order = append(order, "second") }})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The listener fails immediately on the cancelled context or the
	// unusable socket path; cleanup must still run in order.
	_ = o.Run(ctx)
	assert.Equal(t, []string{"first", "second"}, order)
}

// Package orchestrator wires the daemon together: it starts each
// component's background task under a restart-with-backoff supervisor,
// fans coalesced state deltas out to WebSocket subscribers, and tears
// everything down in order on shutdown.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kvmd-go/kvmd/internal/primitives"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

// restartBackoff is the pause before a crashed task is restarted.
const restartBackoff = time.Second

// Task is one supervised background job.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Component is a participant in startup/shutdown ordering. Cleanup
// runs after all tasks have stopped, in registration order; errors
// inside Cleanup must be handled by the component itself.
type Component struct {
	Name    string
	Tasks   []Task
	Cleanup func()
}

// StateSource contributes one subtree to the merged WS state event.
type StateSource struct {
	Name     string
	Notifier *primitives.Notifier
	State    func() any
}

// Orchestrator runs the daemon.
type Orchestrator struct {
	server  *wsrv.Server
	logger  *log.Logger
	comps   []Component
	sources []StateSource
}

// New builds an Orchestrator around an already-configured server.
func New(server *wsrv.Server, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{server: server, logger: logger}
}

// AddComponent registers a component; cleanup order follows
// registration order.
func (o *Orchestrator) AddComponent(c Component) {
	o.comps = append(o.comps, c)
}

// AddStateSource registers a subtree of the merged state event.
func (o *Orchestrator) AddStateSource(s StateSource) {
	o.sources = append(o.sources, s)
}

// Run starts everything and blocks until ctx is cancelled, then
// cleans up. The HTTP listener failing to bind is fatal; supervised
// task errors are not.
func (o *Orchestrator) Run(ctx context.Context) error {
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	for _, comp := range o.comps {
		for _, task := range comp.Tasks {
			wg.Add(1)
			go func(name string, task Task) {
				defer wg.Done()
				o.supervise(taskCtx, name, task)
			}(comp.Name, task)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.broadcastLoop(taskCtx)
	}()

	err := o.server.Listen(ctx)

	// Shutdown: the listener is already closed (no new WS clients),
	// now stop supervised tasks, wait them out, and release hardware.
	cancelTasks()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		o.logger.Warn("shutdown: tasks did not stop in time")
	}

	for _, comp := range o.comps {
		if comp.Cleanup != nil {
			comp.Cleanup()
		}
	}
	return err
}

// supervise restarts task until ctx is cancelled.
func (o *Orchestrator) supervise(ctx context.Context, comp string, task Task) {
	for {
		err := o.runTask(ctx, task)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			o.logger.Error("task failed, restarting", "component", comp, "task", task.Name, "err", err)
		} else {
			o.logger.Warn("task exited unexpectedly, restarting", "component", comp, "task", task.Name)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartBackoff):
		}
	}
}

func (o *Orchestrator) runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("task panicked", "task", task.Name, "recover", rec)
		}
	}()
	return task.Run(ctx)
}

// broadcastLoop runs one waiter per source: each notifier wakeup
// sends that subsystem's "<name>_state" event to every WS session,
// so an idle subsystem never generates traffic.
func (o *Orchestrator) broadcastLoop(ctx context.Context) {
	var wg sync.WaitGroup
	for _, src := range o.sources {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-src.Notifier.C():
					src.Notifier.Wait()
					o.server.Hub().Broadcast(src.Name+"_state", src.State())
				}
			}
		}()
	}
	wg.Wait()
}

func (o *Orchestrator) mergedState() map[string]any {
	state := make(map[string]any, len(o.sources))
	for _, src := range o.sources {
		state[src.Name] = src.State()
	}
	return state
}

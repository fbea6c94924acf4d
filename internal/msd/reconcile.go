package msd

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reconciler watches the storage root (not its subdirectories, and
// not the LUN directory) and rebuilds the image list whenever the
// filesystem changes underneath the daemon.
type Reconciler struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	onRestart func()
}

// restartEvents are events on the backing device itself rather than
// the image tree; they mean the USB gadget dropped out from under the
// daemon and must be treated as a disconnect.
var restartEvents = fsnotify.Remove | fsnotify.Rename

// NewReconciler opens an inotify watch rooted at root. onChange is
// invoked (debounced) after any content change; onRestart is invoked
// immediately on a restart-class event.
func NewReconciler(root string, debounce time.Duration, onChange, onRestart func()) (*Reconciler, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Reconciler{root: root, watcher: w, debounce: debounce, onChange: onChange, onRestart: onRestart}, nil
}

// Run drains the watcher until ctx is canceled, debouncing bursts of
// change events into a single rescan.
func (r *Reconciler) Run(ctx context.Context) {
	defer r.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&restartEvents != 0 && ev.Name == r.root {
				r.onRestart()
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}
			timerC = timer.C

		case <-timerC:
			r.onChange()
			timerC = nil

		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the underlying watcher without waiting for Run's ctx.
func (r *Reconciler) Close() error {
	return r.watcher.Close()
}

package primitives

import (
	"fmt"
	"sync"
)

// ErrBusy is returned by Resource.Acquire when the resource is already
// held; component boundaries translate it to the Busy error kind
// (HTTP 409).
var ErrBusy = fmt.Errorf("resource is busy")

// Resource is an ownership-scoped exclusive region: at most one holder
// at a time, used to serialize MSD write/read/set_connected(true).
type Resource struct {
	mu     sync.Mutex
	held   bool
	holder string
}

// Release is returned by Acquire and must be called exactly once to
// free the resource.
type Release func()

// Acquire takes exclusive ownership tagged with a human-readable
// holder name (used in logs), or returns ErrBusy if already held.
func (r *Resource) Acquire(holder string) (Release, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held {
		return nil, fmt.Errorf("%w: held by %s", ErrBusy, r.holder)
	}

	r.held = true
	r.holder = holder

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.held = false
			r.holder = ""
			r.mu.Unlock()
		})
	}, nil
}

// Holder returns the current holder name, or "" if free.
func (r *Resource) Holder() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holder
}

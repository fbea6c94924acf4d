package primitives

import "sync"

// Notifier is a bounded, coalescing wakeup signal: any number of
// Notify calls between two Wait wakeups collapse into a single
// delivery, carrying the maximum "reason" level seen. It replaces callback-based
// cross-component notification.
type Notifier struct {
	mu      sync.Mutex
	signal  chan struct{}
	pending bool
	reason  int
}

// NewNotifier creates a ready-to-use Notifier.
func NewNotifier() *Notifier {
	return &Notifier{signal: make(chan struct{}, 1)}
}

// Notify schedules a wakeup carrying reason, coalescing with any
// already-pending wakeup by taking the larger reason value.
func (n *Notifier) Notify(reason int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.pending || reason > n.reason {
		n.reason = reason
	}

	if !n.pending {
		n.pending = true
		select {
		case n.signal <- struct{}{}:
		default:
		}
	}
}

// C returns a channel that becomes readable once a notification is
// pending; callers should follow a receive with Wait to fetch the
// coalesced reason and clear the pending flag.
func (n *Notifier) C() <-chan struct{} {
	return n.signal
}

// Wait blocks until the next coalesced notification and returns its
// reason, clearing the pending flag. If a notification is already
// pending (including one whose signal was received from C), it
// returns at once.
func (n *Notifier) Wait() int {
	n.mu.Lock()
	if n.pending {
		select {
		case <-n.signal:
		default:
		}
	} else {
		n.mu.Unlock()
		<-n.signal
		n.mu.Lock()
	}
	reason := n.reason
	n.pending = false
	n.mu.Unlock()
	return reason
}

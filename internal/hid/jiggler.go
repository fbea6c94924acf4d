package hid

import (
	"context"
	"sync"
	"time"
)

// Jiggler emits a short square pattern of mouse moves when no user
// event has been seen for longer than interval, keeping the managed
// host awake without disturbing the cursor's resting position.
type Jiggler struct {
	mu       sync.Mutex
	enabled  bool
	active   bool
	interval time.Duration
	lastEvt  time.Time
	absolute bool

	emit func(dx, dy int)
	now  func() time.Time
}

// NewJiggler builds a Jiggler that calls emit for each of the four
// square-pattern moves. absolute selects ±100 (absolute backends) vs
// ±10 (relative backends).
func NewJiggler(absolute bool, emit func(dx, dy int)) *Jiggler {
	return &Jiggler{
		absolute: absolute,
		emit:     emit,
		now:      time.Now,
		lastEvt:  time.Now(),
	}
}

// SetParams toggles enabled/active and the inactivity interval.
func (j *Jiggler) SetParams(enabled, active bool, interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.enabled = enabled
	j.active = active
	if interval > 0 {
		j.interval = interval
	}
}

// Params returns the current enabled/active flags and interval.
func (j *Jiggler) Params() (enabled, active bool, interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enabled, j.active, j.interval
}

// NoteUserEvent resets the inactivity clock; call this for every
// user-originated event before it reaches a backend.
func (j *Jiggler) NoteUserEvent() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastEvt = j.now()
}

// Run polls for inactivity until ctx is cancelled. It checks every
// tenth of the configured interval, but never more often than every
// 10 ms, so a zero interval never busy-loops.
func (j *Jiggler) Run(ctx context.Context) {
	for {
		_, _, interval := j.Params()
		period := interval / 10
		if period < 10*time.Millisecond {
			period = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(period):
			j.maybeFire(ctx)
		}
	}
}

func (j *Jiggler) maybeFire(ctx context.Context) {
	j.mu.Lock()
	enabled, active, interval, last := j.enabled, j.active, j.interval, j.lastEvt
	j.mu.Unlock()

	if !enabled || !active || interval <= 0 {
		return
	}
	if j.now().Sub(last) <= interval {
		return
	}

	step := 10
	if j.absolute {
		step = 100
	}

	pattern := [4][2]int{{step, 0}, {0, step}, {-step, 0}, {0, -step}}
	for _, d := range pattern {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
		j.emit(d[0], d[1])
	}

	j.mu.Lock()
	j.lastEvt = j.now()
	j.mu.Unlock()
}

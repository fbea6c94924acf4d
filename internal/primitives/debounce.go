package primitives

import "time"

// Debouncer accepts raw boolean samples and reports a stable value only
// once it has held steady for at least the configured duration, so a
// flag does not flap on transient hardware noise. The GPIO reader does
// not use it; its per-line debounce is done by the kernel.
type Debouncer struct {
	delay      time.Duration
	value      bool
	pending    bool
	rawPending bool
	since      time.Time
	now        func() time.Time
}

// NewDebouncer creates a debouncer seeded with the given initial stable
// value.
func NewDebouncer(delay time.Duration, initial bool) *Debouncer {
	return &Debouncer{
		delay: delay,
		value: initial,
		now:   time.Now,
	}
}

// Sample feeds a new raw reading and returns the debounced value
// together with whether it just changed.
func (d *Debouncer) Sample(raw bool) (value bool, changed bool) {
	now := d.now()

	if raw == d.value {
		d.pending = false
		return d.value, false
	}

	if !d.pending || d.rawPending != raw {
		d.pending = true
		d.rawPending = raw
		d.since = now
		return d.value, false
	}

	if now.Sub(d.since) >= d.delay {
		d.value = raw
		d.pending = false
		return d.value, true
	}

	return d.value, false
}

// Value returns the current stable value without sampling.
func (d *Debouncer) Value() bool {
	return d.value
}

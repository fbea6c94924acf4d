package primitives

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncerHoldsUntilStable(t *testing.T) {
	d := NewDebouncer(50*time.Millisecond, false)
	base := time.Now()
	clock := base
	d.now = func() time.Time { return clock }

	v, changed := d.Sample(true)
	require.False(t, v)
	require.False(t, changed)

	clock = base.Add(10 * time.Millisecond)
	v, changed = d.Sample(true)
	require.False(t, v)
	require.False(t, changed)

	clock = base.Add(60 * time.Millisecond)
	v, changed = d.Sample(true)
	require.True(t, v)
	require.True(t, changed)
}

func TestDebouncerRestartsOnFlap(t *testing.T) {
	d := NewDebouncer(50*time.Millisecond, false)
	base := time.Now()
	clock := base
	d.now = func() time.Time { return clock }

	d.Sample(true)

	clock = base.Add(30 * time.Millisecond)
	d.Sample(false) // flap back, resets the pending timer

	clock = base.Add(60 * time.Millisecond)
	v, changed := d.Sample(true)
	require.False(t, v, "should not have accumulated enough stable time yet")
	require.False(t, changed)
}

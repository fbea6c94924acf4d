package streamer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmanagedStreamerRefusesStart(t *testing.T) {
	s := New(Config{}, nil)

	st := s.State()
	assert.False(t, st.Managed)
	assert.Error(t, s.EnsureStart())
}

func TestManagedStartStop(t *testing.T) {
	s := New(Config{Command: []string{"sleep", "60"}}, nil)

	require.NoError(t, s.EnsureStart())
	assert.True(t, s.State().Running)

	// Starting again while running is a no-op.
	require.NoError(t, s.EnsureStart())

	require.NoError(t, s.EnsureStop())
	assert.False(t, s.State().Running)
}

func TestExitedProcessClearsRunning(t *testing.T) {
	s := New(Config{Command: []string{"true"}}, nil)
	require.NoError(t, s.EnsureStart())

	deadline := time.Now().Add(2 * time.Second)
	for s.State().Running && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.False(t, s.State().Running)
}

func TestSnapshotUnreachable(t *testing.T) {
	s := New(Config{UnixSocket: "/nonexistent/streamer.sock"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := s.Snapshot(ctx)
	assert.Error(t, err)
}

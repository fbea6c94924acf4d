package pst

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSetGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	client := NewController(root, "").Client()

	require.NoError(t, client.Set("switch.active_port", 5))

	var port int
	ok, err := client.Get("switch.active_port", &port)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, port)
}

func TestClientGetMissingKey(t *testing.T) {
	client := NewController(t.TempDir(), "").Client()

	var out int
	ok, err := client.Get("nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	c := NewController(t.TempDir(), "")

	sess, err := c.OpenSession()
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	c.mu.Lock()
	assert.Equal(t, 0, c.sessions)
	c.mu.Unlock()
}

func TestSessionSetAfterCloseFails(t *testing.T) {
	c := NewController(t.TempDir(), "")

	sess, err := c.OpenSession()
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	assert.Error(t, sess.Set("key", 1))
}

func TestRemountHelperInvokedAroundSessions(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(root, "remounts.log")
	script := filepath.Join(root, "remount.sh")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\necho \"$1\" >> "+logPath+"\n"), 0o755))

	c := NewController(root, script)

	first, err := c.OpenSession()
	require.NoError(t, err)
	second, err := c.OpenSession()
	require.NoError(t, err)

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	// Only the first open and the last close touch the mount.
	assert.Equal(t, "rw\nro\n", string(data))
}

func TestStoreRejectsTraversalKeys(t *testing.T) {
	client := NewController(t.TempDir(), "").Client()
	assert.Error(t, client.Set("../escape", 1))
	assert.Error(t, client.Set("a/b", 1))
}

package msd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	dir := t.TempDir()
	return NewEngine(&Storage{Root: dir}, LUNPaths{})
}

func TestWriteThenReadImageRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	payload := strings.Repeat("kvmd", 1024)
	n, err := e.WriteImage("disk.img", strings.NewReader(payload))
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)

	var out bytes.Buffer
	n, err = e.ReadImage("disk.img", &out)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)
	assert.Equal(t, payload, out.String())
}

func TestWriteImageRefusedWhileConnected(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.WriteImage("disk.img", strings.NewReader("abc"))
	require.NoError(t, err)
	require.NoError(t, e.SetParams("disk.img", false))
	require.NoError(t, e.SetConnected(true))

	_, err = e.WriteImage("disk.img", strings.NewReader("xyz"))
	assert.Error(t, err)
}

func TestConcurrentWriteAndSetConnectedAreMutuallyExclusive(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.WriteImage("disk.img", strings.NewReader("abc"))
	require.NoError(t, err)
	require.NoError(t, e.SetParams("disk.img", false))

	release, err := e.region.Acquire("test-holder")
	require.NoError(t, err)
	defer release()

	err = e.SetConnected(true)
	assert.Error(t, err, "region already held")
}

func TestRemoveImageRefusedWhileBackingConnectedDrive(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.WriteImage("disk.img", strings.NewReader("abc"))
	require.NoError(t, err)
	require.NoError(t, e.SetParams("disk.img", false))
	require.NoError(t, e.SetConnected(true))

	err = e.RemoveImage("disk.img")
	assert.Error(t, err)
}

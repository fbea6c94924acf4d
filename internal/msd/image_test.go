package msd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarIdempotence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.True(t, IsComplete(path), "no sidecar yet means complete")

	require.NoError(t, markIncomplete(path))
	assert.False(t, IsComplete(path))

	require.NoError(t, clearIncomplete(path))
	assert.True(t, IsComplete(path))

	// Clearing again on an already-absent marker must not error.
	require.NoError(t, clearIncomplete(path))
	assert.True(t, IsComplete(path))
}

func TestRemoveImageRemovesSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, markIncomplete(path))

	require.NoError(t, RemoveImage(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(sidecarPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestListImagesSkipsHiddenAndSidecars(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.img"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".__visible.img.incomplete"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("z"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	images, err := ListImages(dir)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "visible.img", images[0].Name)
	assert.False(t, images[0].Complete, "sidecar present means incomplete")
}

func TestImagePathRejectsEscape(t *testing.T) {
	_, err := ImagePath("/storage", "../etc/passwd")
	assert.Error(t, err)
}

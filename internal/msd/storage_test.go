package msd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden(".foo"))
	assert.True(t, IsHidden("lost+found"))
	assert.False(t, IsHidden("disk.img"))
}

func TestRemountNoopWithoutCommand(t *testing.T) {
	s := &Storage{Root: t.TempDir()}
	assert.NoError(t, s.Remount(true))
	assert.NoError(t, s.Remount(false))
}

func TestRemountInvokesConfiguredCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "remount.sh")
	marker := filepath.Join(dir, "called")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" > \""+marker+"\"\n"), 0o755))

	s := &Storage{Root: dir, RemountCmd: script}
	require.NoError(t, s.Remount(true))

	out, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Contains(t, string(out), "rw")
}

func TestPartitionsFindsStorageRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "disk.img"), []byte("abc"), 0o644))

	s := &Storage{Root: dir}
	parts, err := s.Partitions()
	require.NoError(t, err)
	assert.NotEmpty(t, parts)
}

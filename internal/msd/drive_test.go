package msd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCDROMAndRWAreMutuallyExclusive(t *testing.T) {
	d := &Drive{}

	d.SetRW(true)
	assert.True(t, d.RW)
	assert.False(t, d.CDROM)

	d.SetCDROM(true)
	assert.True(t, d.CDROM)
	assert.False(t, d.RW)

	d.SetRW(true)
	assert.True(t, d.RW)
	assert.False(t, d.CDROM)
}

func TestSetParamsRefusedWhileConnected(t *testing.T) {
	d := &Drive{Connected: true}
	err := d.SetParams(&Image{Path: "/x.img"}, false)
	assert.Error(t, err)
}

func TestSetConnectedRequiresExistingImage(t *testing.T) {
	d := &Drive{}
	err := d.SetConnected(true, LUNPaths{}, func(bool) error { return nil })
	assert.Error(t, err, "no image selected")

	d.Image = &Image{Path: "/does/not/exist.img"}
	err = d.SetConnected(true, LUNPaths{}, func(bool) error { return nil })
	assert.Error(t, err, "image does not exist on disk")
}

func TestSetConnectedRemountsOnlyWhenRW(t *testing.T) {
	dir := t.TempDir() + "/disk.img"
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o644))

	var calls []bool
	remount := func(rw bool) error {
		calls = append(calls, rw)
		return nil
	}

	d := &Drive{Image: &Image{Path: dir}, RW: true}
	require.NoError(t, d.SetConnected(true, LUNPaths{}, remount))
	assert.Equal(t, []bool{true}, calls)
	assert.True(t, d.Connected)

	calls = nil
	require.NoError(t, d.SetConnected(false, LUNPaths{}, remount))
	assert.Equal(t, []bool{false}, calls)
	assert.False(t, d.Connected)
}

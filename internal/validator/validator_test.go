package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageNameRejectsPathSeparators(t *testing.T) {
	_, err := ImageName("sub/dir.iso")
	require.Error(t, err)

	name, err := ImageName("ubuntu.iso")
	require.NoError(t, err)
	assert.Equal(t, "ubuntu.iso", name)
}

func TestPathRejectsEscape(t *testing.T) {
	_, err := Path("../etc/passwd")
	require.Error(t, err)

	_, err = Path("/etc/passwd")
	require.Error(t, err)

	p, err := Path("images/ubuntu.iso")
	require.NoError(t, err)
	assert.Equal(t, "images/ubuntu.iso", p)
}

func TestColorHex(t *testing.T) {
	r, g, b, err := ColorHex("ff8000")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), r)
	assert.Equal(t, uint8(0x80), g)
	assert.Equal(t, uint8(0x00), b)

	_, _, _, err = ColorHex("zzzzzz")
	require.Error(t, err)
}

func TestEDIDHexLength(t *testing.T) {
	short := "00"
	_, err := EDIDHex(short)
	require.Error(t, err)

	good := make([]byte, 128)
	hex := ""
	for range good {
		hex += "00"
	}
	data, err := EDIDHex(hex)
	require.NoError(t, err)
	assert.Len(t, data, 128)
}

func TestAbsoluteCoordRange(t *testing.T) {
	_, err := AbsoluteCoord("x", 40000)
	require.Error(t, err)

	v, err := AbsoluteCoord("x", 32767)
	require.NoError(t, err)
	assert.Equal(t, int16(32767), v)
}

func TestUUIDOrDefault(t *testing.T) {
	v, err := UUIDOrDefault("default")
	require.NoError(t, err)
	assert.Equal(t, "default", v)

	_, err = UUIDOrDefault("not-a-uuid")
	require.Error(t, err)

	v, err = UUIDOrDefault("550E8400-E29B-41D4-A716-446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", v)
}

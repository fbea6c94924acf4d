package primitives

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCRC16RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "data")
		framed := AppendCRC16BE(append([]byte{}, data...))
		require.True(t, CheckCRC16BE(framed))
	})
}

func TestCRC16TamperFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data")
		framed := AppendCRC16BE(append([]byte{}, data...))

		idx := rapid.IntRange(0, len(framed)-1).Draw(t, "idx")
		flip := rapid.IntRange(1, 255).Draw(t, "flip")
		framed[idx] ^= byte(flip)

		require.False(t, CheckCRC16BE(framed))
	})
}

func TestCRC16KnownVector(t *testing.T) {
	// CRC16-CCITT("123456789") == 0x31C3, the standard XModem test vector.
	got := ComputeCRC16([]byte("123456789"))
	require.Equal(t, uint16(0x31C3), got)
}

package hid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRemapAbsoluteBounds(t *testing.T) {
	assert.Equal(t, int16(-32768), RemapAbsolute(0, 0, 1000))
	assert.Equal(t, int16(32767), RemapAbsolute(1000, 0, 1000))
}

func TestRemapAbsoluteMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(0, 1000).Draw(rt, "lo")
		hi := rapid.IntRange(lo+1, lo+100000).Draw(rt, "hi")
		a := rapid.IntRange(lo, hi).Draw(rt, "a")
		b := rapid.IntRange(lo, hi).Draw(rt, "b")

		ra := RemapAbsolute(a, lo, hi)
		rb := RemapAbsolute(b, lo, hi)

		if a <= b {
			assert.LessOrEqual(t, ra, rb)
		} else {
			assert.GreaterOrEqual(t, ra, rb)
		}
	})
}

func TestWin98FixDoublesX(t *testing.T) {
	plain := NewMouseState(false)
	win98 := NewMouseState(true)

	x := RemapAbsolute(500, 0, 1000)
	y := RemapAbsolute(500, 0, 1000)

	rPlain := plain.AbsoluteReport(x, y, 0, 0)
	rWin98 := win98.AbsoluteReport(x, y, 0, 0)

	plainX := uint16(rPlain[1]) | uint16(rPlain[2])<<8
	win98X := uint16(rWin98[1]) | uint16(rWin98[2])<<8

	assert.Equal(t, uint16(plainX*2), win98X)
}

func TestReleaseAllReportKeepsPosition(t *testing.T) {
	m := NewMouseState(false)
	m.ApplyButton(MouseButtonEvent{Button: ButtonLeft, Pressed: true})
	r := m.AbsoluteReport(100, 200, 5, 3)
	assert.NotEqual(t, byte(0), r[0])

	release := m.ReleaseAllReport()
	assert.Equal(t, byte(0), release[0])
	assert.Equal(t, r[1], release[1])
	assert.Equal(t, r[2], release[2])
	assert.Equal(t, byte(0), release[5])
	assert.Equal(t, byte(0), release[6])
}

package hid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func press(usage int) KeyEvent  { return KeyEvent{USBUsage: usage, Pressed: true} }
func release(usage int) KeyEvent { return KeyEvent{USBUsage: usage, Pressed: false} }

func TestSixSlotRollover(t *testing.T) {
	k := NewKeyboardState()

	// Press six distinct keys with no release in between.
	for i := 1; i <= 6; i++ {
		reports := k.Apply(press(i))
		assert.Len(t, reports, 1)
	}

	// A seventh distinct press releases all six, then presses the
	// seventh.
	reports := k.Apply(press(7))
	assert.Len(t, reports, 2)
	assert.Equal(t, [8]byte{0, 0, 0, 0, 0, 0, 0, 0}, reports[0])
	assert.Equal(t, byte(7), reports[1][2])
	for i := 3; i < 8; i++ {
		assert.Equal(t, byte(0), reports[1][i])
	}
}

func TestRepressReleasesThenPresses(t *testing.T) {
	k := NewKeyboardState()
	k.Apply(press(5))

	reports := k.Apply(press(5))
	assert.Len(t, reports, 2)
	assert.Equal(t, byte(0), reports[0][2])
	assert.Equal(t, byte(5), reports[1][2])
}

func TestModifierBitmap(t *testing.T) {
	k := NewKeyboardState()
	reports:= k.Apply(KeyEvent{USBUsage: 0xE1, IsModifier: true, Pressed: true}) // ShiftLeft
	assert.Len(t, reports, 1)
	assert.Equal(t, byte(0x02), reports[0][0])

	reports = k.Apply(KeyEvent{USBUsage: 0xE1, IsModifier: true, Pressed: false})
	assert.Equal(t, byte(0x00), reports[0][0])
}

func TestDecodeLEDReport(t *testing.T) {
	s:= DecodeLEDReport(0x05) // num + scroll
	assert.True(t, s.NumLock)
	assert.False(t, s.CapsLock)
	assert.True(t, s.ScrollLock)
}

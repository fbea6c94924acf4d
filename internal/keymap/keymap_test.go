package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableBijection(t *testing.T) {
	require.True(t, Len() > 0)

	for _, e := range All() {
		byName, ok := ByWebName(e.WebName)
		require.True(t, ok, "web name %q missing", e.WebName)
		assert.Equal(t, e, byName)

		byEvdev, ok := ByEvdevCode(e.EvdevCode)
		require.True(t, ok, "evdev code %d missing", e.EvdevCode)
		assert.Equal(t, e, byEvdev)

		byUsage, ok := ByUSBUsage(e.USBUsage)
		require.True(t, ok, "usb usage 0x%02X missing", e.USBUsage)
		assert.Equal(t, e, byUsage)
	}
}

func TestModifierKeysFlaggedConsistently(t *testing.T) {
	expectedModifiers := map[string]uint{
		"ControlLeft": 0, "ShiftLeft": 1, "AltLeft": 2, "MetaLeft": 3,
		"ControlRight": 4, "ShiftRight": 5, "AltRight": 6, "MetaRight": 7,
	}

	for _, e := range All() {
		wantBit, isExpectedModifier := expectedModifiers[e.WebName]
		assert.Equal(t, isExpectedModifier, e.IsModifier, "IsModifier mismatch for %q", e.WebName)

		bit, ok := ModifierBit(e.WebName)
		if isExpectedModifier {
			require.True(t, ok)
			assert.Equal(t, wantBit, bit)
		} else {
			assert.False(t, ok)
		}
	}

	assert.Len(t, expectedModifiers, 8)
}

func TestUnknownLookupsFail(t *testing.T) {
	_, ok := ByWebName("NotAKey")
	assert.False(t, ok)

	_, ok = ByEvdevCode(-1)
	assert.False(t, ok)

	_, ok = ByUSBUsage(0xFF)
	assert.False(t, ok)
}

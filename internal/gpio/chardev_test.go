package gpio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChardevDriverRegistersTrackedPins(t *testing.T) {
	d := NewChardevDriver("/dev/gpiochip0", "test", nil)
	require.NoError(t, d.RegisterInput("3", true, 0.1))
	require.NoError(t, d.RegisterOutput("5", nil))

	require.Contains(t, d.inputs, 3)
	require.True(t, d.inputs[3].inverted)
	require.Contains(t, d.initial, 5)
}

func TestChardevDriverRegisterInputRejectsNonNumericPin(t *testing.T) {
	d := NewChardevDriver("/dev/gpiochip0", "test", nil)
	require.Error(t, d.RegisterInput("not-a-number", false, 0))
}

func TestChardevDriverWriteRejectsUnpreparedPin(t *testing.T) {
	d := NewChardevDriver("/dev/gpiochip0", "test", nil)
	err := d.Write("9", true)
	require.Error(t, err)
}

func TestChardevDriverReadUnknownPin(t *testing.T) {
	d := NewChardevDriver("/dev/gpiochip0", "test", nil)
	_, err := d.Read("9")
	require.Error(t, err)
}

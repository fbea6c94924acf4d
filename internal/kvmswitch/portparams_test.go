package kvmswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortParamsDefaults(t *testing.T) {
	p := NewPortParams()

	assert.Equal(t, "", p.Name(3))
	assert.Equal(t, DefaultPowerClickDelay, p.PowerClickDelay(3))
	assert.Equal(t, DefaultLongPowerClickDelay, p.LongPowerClickDelay(3))
	assert.Equal(t, DefaultResetClickDelay, p.ResetClickDelay(3))
}

func TestPortParamsStoresOnlyNonDefaults(t *testing.T) {
	p := NewPortParams()

	p.SetName(0, "build box")
	p.SetName(1, "") // default, must not be stored
	p.SetPowerClickDelay(0, 1.0)
	p.SetPowerClickDelay(1, DefaultPowerClickDelay)

	names, power, longPower, reset := p.Snapshot()
	assert.Equal(t, map[int]string{0: "build box"}, names)
	assert.Equal(t, map[int]float64{0: 1.0}, power)
	assert.Empty(t, longPower)
	assert.Empty(t, reset)
}

func TestPortParamsSettingDefaultClearsEntry(t *testing.T) {
	p := NewPortParams()

	p.SetResetClickDelay(2, 1.5)
	p.SetResetClickDelay(2, DefaultResetClickDelay)

	_, _, _, reset := p.Snapshot()
	assert.Empty(t, reset)
}

func TestPortParamsRestore(t *testing.T) {
	p := NewPortParams()
	p.Restore(map[int]string{4: "nas"}, nil, map[int]float64{4: 10}, nil)

	assert.Equal(t, "nas", p.Name(4))
	assert.Equal(t, 10.0, p.LongPowerClickDelay(4))
	assert.Equal(t, DefaultPowerClickDelay, p.PowerClickDelay(4))
}

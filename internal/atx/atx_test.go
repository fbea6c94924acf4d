package atx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvmd-go/kvmd/internal/gpio"
)

// fakeDriver records writes and serves canned input values.
type fakeDriver struct {
	mu     sync.Mutex
	values map[string]bool
	writes []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{values: map[string]bool{}}
}

func (f *fakeDriver) RegisterInput(string, bool, float64) error { return nil }
func (f *fakeDriver) RegisterOutput(string, *bool) error        { return nil }
func (f *fakeDriver) Prepare() error                            { return nil }
func (f *fakeDriver) Run(ctx context.Context)                   { <-ctx.Done() }
func (f *fakeDriver) Cleanup()                                  {}

func (f *fakeDriver) Read(pin string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[pin], nil
}

func (f *fakeDriver) Write(pin string, state bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[pin] = state
	label := pin + "=off"
	if state {
		label = pin + "=on"
	}
	f.writes = append(f.writes, label)
	return nil
}

func (f *fakeDriver) writeLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func (f *fakeDriver) set(pin string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[pin] = v
}

func newTestATX(t *testing.T) (*ATX, *fakeDriver) {
	t.Helper()

	driver := newFakeDriver()
	model := gpio.NewModel()
	model.AddDriver("fake", driver)

	for name, mode := range map[string]gpio.PinMode{
		"led":   gpio.PinInput,
		"hdd":   gpio.PinInput,
		"power": gpio.PinOutput,
		"reset": gpio.PinOutput,
	} {
		require.NoError(t, model.AddChannel(name, gpio.ChannelConfig{
			Driver: "fake",
			Pin:    name,
			Mode:   mode,
		}))
	}

	a := New(Config{
		PowerLEDChannel:    "led",
		HDDLEDChannel:      "hdd",
		PowerSwitchChannel: "power",
		ResetSwitchChannel: "reset",
		ClickDelay:         time.Millisecond,
		LongClickDelay:     2 * time.Millisecond,
	}, model)
	return a, driver
}

func TestClickPowerPulses(t *testing.T) {
	a, driver := newTestATX(t)

	require.NoError(t, a.Click(context.Background(), ButtonPower))
	assert.Equal(t, []string{"power=on", "power=off"}, driver.writeLog())
}

func TestClickResetPulses(t *testing.T) {
	a, driver := newTestATX(t)

	require.NoError(t, a.Click(context.Background(), ButtonReset))
	assert.Equal(t, []string{"reset=on", "reset=off"}, driver.writeLog())
}

func TestClickUnknownButton(t *testing.T) {
	a, _ := newTestATX(t)
	assert.Error(t, a.Click(context.Background(), "eject"))
}

func TestPowerOnIsNoOpWhilePowered(t *testing.T) {
	a, driver := newTestATX(t)
	driver.set("led", true)

	require.NoError(t, a.Power(context.Background(), ActionOn, false))
	assert.Empty(t, driver.writeLog())
}

func TestPowerOffIsNoOpWhileUnpowered(t *testing.T) {
	a, driver := newTestATX(t)

	require.NoError(t, a.Power(context.Background(), ActionOff, false))
	assert.Empty(t, driver.writeLog())
}

func TestResetHardRequiresPower(t *testing.T) {
	a, _ := newTestATX(t)
	assert.Error(t, a.Power(context.Background(), ActionResetHard, false))
}

func TestStateReflectsLEDs(t *testing.T) {
	a, driver := newTestATX(t)
	driver.set("led", true)
	driver.set("hdd", true)

	st := a.State()
	assert.True(t, st.Enabled)
	assert.True(t, st.LEDs.Power)
	assert.True(t, st.LEDs.HDD)
}

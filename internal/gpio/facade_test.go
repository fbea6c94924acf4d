package gpio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	values map[string]bool
	fail   map[string]bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{values: map[string]bool{}, fail: map[string]bool{}}
}

func (f *fakeDriver) RegisterInput(pin string, _ bool, _ float64) error {
	f.values[pin] = false
	return nil
}

func (f *fakeDriver) RegisterOutput(pin string, initial *bool) error {
	if initial != nil {
		f.values[pin] = *initial
	} else {
		f.values[pin] = false
	}
	return nil
}

func (f *fakeDriver) Prepare() error    { return nil }
func (f *fakeDriver) Run(context.Context) {}
func (f *fakeDriver) Cleanup()          {}

func (f *fakeDriver) Read(pin string) (bool, error) {
	if f.fail[pin] {
		return false, ErrOffline("fake", pin)
	}
	return f.values[pin], nil
}

func (f *fakeDriver) Write(pin string, value bool) error {
	if f.fail[pin] {
		return ErrOffline("fake", pin)
	}
	f.values[pin] = value
	return nil
}

func TestModelWriteRejectsInputChannel(t *testing.T) {
	m := NewModel()
	driver := newFakeDriver()
	m.AddDriver("d", driver)
	require.NoError(t, m.AddChannel("sense", ChannelConfig{Driver: "d", Pin: "1", Mode: PinInput}))

	err := m.Write("sense", true)
	require.Error(t, err)
}

func TestModelReadWriteRoundTrip(t *testing.T) {
	m := NewModel()
	driver := newFakeDriver()
	m.AddDriver("d", driver)
	require.NoError(t, m.AddChannel("relay", ChannelConfig{Driver: "d", Pin: "2", Mode: PinOutput}))

	require.NoError(t, m.Write("relay", true))
	state, err := m.Read("relay")
	require.NoError(t, err)
	require.True(t, state.Online)
	require.True(t, state.Value)
}

func TestModelReadUnknownChannel(t *testing.T) {
	m := NewModel()
	_, err := m.Read("nope")
	require.Error(t, err)
}

func TestModelReadOfflineDriverReportsOffline(t *testing.T) {
	m := NewModel()
	driver := newFakeDriver()
	driver.fail["3"] = true
	m.AddDriver("d", driver)
	require.NoError(t, m.AddChannel("flaky", ChannelConfig{Driver: "d", Pin: "3", Mode: PinInput}))

	state, err := m.Read("flaky")
	require.NoError(t, err)
	require.False(t, state.Online)
}

func TestModelPulseReturnsLineLow(t *testing.T) {
	m := NewModel()
	driver := newFakeDriver()
	m.AddDriver("d", driver)
	require.NoError(t, m.AddChannel("button", ChannelConfig{Driver: "d", Pin: "4", Mode: PinOutput}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Pulse(ctx, "button", 10*time.Millisecond))

	state, err := m.Read("button")
	require.NoError(t, err)
	require.False(t, state.Value)
}

func TestModelNotifierFiresOnWrite(t *testing.T) {
	m := NewModel()
	driver := newFakeDriver()
	m.AddDriver("d", driver)
	require.NoError(t, m.AddChannel("relay", ChannelConfig{Driver: "d", Pin: "5", Mode: PinOutput}))

	require.NoError(t, m.Write("relay", true))
	select {
	case <-m.Notifier().C():
	default:
		t.Fatal("expected a pending notification after Write")
	}
}

package gpio

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/primitives"
)

// ChannelConfig names one user-facing GPIO channel and binds it to a
// driver-local pin.
type ChannelConfig struct {
	Driver          string
	Pin             string
	Mode            PinMode
	Inverted        bool
	DebounceSeconds float64
	Initial         *bool
}

// ChannelState is one channel's current reported value, shaped for
// JSON serialization at the API edge.
type ChannelState struct {
	Online bool `json:"online"`
	Value  bool `json:"value"`
	Mode   string `json:"mode"`
}

// Model is the user GPIO facade: a set of named drivers plus a
// channel-name -> (driver, pin) registry, exposing a single Read/
// Write/Pulse surface and one coalescing notifier regardless of how
// many drivers are actually backing it.
type Model struct {
	mu       sync.Mutex
	drivers  map[string]Driver
	channels map[string]ChannelConfig
	notifier *primitives.Notifier
}

// NewModel returns an empty Model; call AddDriver/AddChannel to
// populate it before Prepare.
func NewModel() *Model {
	return &Model{
		drivers:  map[string]Driver{},
		channels: map[string]ChannelConfig{},
		notifier: primitives.NewNotifier(),
	}
}

// Notifier exposes the coalescing wakeup signal channel state changes
// fire, shared with the HTTP/WS broadcast loop.
func (m *Model) Notifier() *primitives.Notifier { return m.notifier }

// AddDriver registers a named driver instance.
func (m *Model) AddDriver(name string, d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[name] = d
}

// AddChannel binds a user-facing channel name to a driver pin,
// registering it with that driver immediately.
func (m *Model) AddChannel(name string, cfg ChannelConfig) error {
	m.mu.Lock()
	driver, ok := m.drivers[cfg.Driver]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("gpio: unknown driver %q for channel %q", cfg.Driver, name)
	}

	var err error
	if cfg.Mode == PinInput {
		err = driver.RegisterInput(cfg.Pin, cfg.Inverted, cfg.DebounceSeconds)
	} else {
		err = driver.RegisterOutput(cfg.Pin, cfg.Initial)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.channels[name] = cfg
	m.mu.Unlock()
	return nil
}

// Prepare calls every driver's Prepare, in no defined order, and
// stops at the first error.
func (m *Model) Prepare() error {
	m.mu.Lock()
	drivers := make([]Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		drivers = append(drivers, d)
	}
	m.mu.Unlock()

	for _, d := range drivers {
		if err := d.Prepare(); err != nil {
			return err
		}
	}
	return nil
}

// Run starts every driver's background loop and blocks until ctx is
// canceled.
func (m *Model) Run(ctx context.Context) {
	m.mu.Lock()
	drivers := make([]Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		drivers = append(drivers, d)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range drivers {
		wg.Add(1)
		go func(d Driver) {
			defer wg.Done()
			d.Run(ctx)
		}(d)
	}
	wg.Wait()
}

// Cleanup releases every driver's resources.
func (m *Model) Cleanup() {
	m.mu.Lock()
	drivers := make([]Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		drivers = append(drivers, d)
	}
	m.mu.Unlock()

	for _, d := range drivers {
		d.Cleanup()
	}
}

// Channels lists every registered channel name.
func (m *Model) Channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Model) resolve(name string) (Driver, ChannelConfig, error) {
	m.mu.Lock()
	cfg, ok := m.channels[name]
	var driver Driver
	if ok {
		driver = m.drivers[cfg.Driver]
	}
	m.mu.Unlock()
	if !ok || driver == nil {
		return nil, ChannelConfig{}, kvmerr.Validation("gpio: unknown channel %q", name)
	}
	return driver, cfg, nil
}

// Read returns a channel's current value.
func (m *Model) Read(name string) (ChannelState, error) {
	driver, cfg, err := m.resolve(name)
	if err != nil {
		return ChannelState{}, err
	}
	value, err := driver.Read(cfg.Pin)
	if err != nil {
		return ChannelState{Online: false}, nil
	}
	mode := "input"
	if cfg.Mode == PinOutput {
		mode = "output"
	}
	return ChannelState{Online: true, Value: value, Mode: mode}, nil
}

// Write sets an output channel's value; it is a kvmerr.Validation
// error to write an input channel.
func (m *Model) Write(name string, value bool) error {
	driver, cfg, err := m.resolve(name)
	if err != nil {
		return err
	}
	if cfg.Mode != PinOutput {
		return kvmerr.Validation("gpio: channel %q is not an output", name)
	}
	if err := driver.Write(cfg.Pin, value); err != nil {
		return kvmerr.Operation("gpio: write %q: %v", name, err)
	}
	m.notifier.Notify(0)
	return nil
}

// Switch sets an output to an explicit on/off state (alias for Write
// kept for symmetry with Pulse).
func (m *Model) Switch(name string, value bool) error { return m.Write(name, value) }

// Pulse drives an output high for hold, then releases it low —
// momentary-contact relay wiring (e.g. a power button behind a plain
// GPIO channel, as distinct from the switch chain's dedicated
// ATX_CLICK opcode). It blocks for hold or until ctx is canceled, in
// which case the line is still released before returning.
func (m *Model) Pulse(ctx context.Context, name string, hold time.Duration) error {
	driver, cfg, err := m.resolve(name)
	if err != nil {
		return err
	}
	if cfg.Mode != PinOutput {
		return kvmerr.Validation("gpio: channel %q is not an output", name)
	}
	if err := driver.Write(cfg.Pin, true); err != nil {
		return kvmerr.Operation("gpio: pulse %q: %v", name, err)
	}
	m.notifier.Notify(0)

	select {
	case <-time.After(hold):
	case <-ctx.Done():
	}

	if err := driver.Write(cfg.Pin, false); err != nil {
		return kvmerr.Operation("gpio: release %q: %v", name, err)
	}
	m.notifier.Notify(0)
	return nil
}

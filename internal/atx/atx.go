// Package atx drives the managed host's front-panel header: power
// and reset buttons as pulsed GPIO outputs, power and disk-activity
// LEDs as debounced GPIO inputs. All pin access goes through internal/gpio so the same
// chardev driver, debounce and notifier plumbing backs both the ATX
// surface and the user GPIO surface.
package atx

import (
	"context"
	"time"

	"github.com/kvmd-go/kvmd/internal/gpio"
	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/primitives"
)

// Button names accepted by Click.
const (
	ButtonPower     = "power"
	ButtonPowerLong = "power_long"
	ButtonReset     = "reset"
)

// Power actions accepted by Power.
const (
	ActionOn        = "on"
	ActionOff       = "off"
	ActionOffHard   = "off_hard"
	ActionResetHard = "reset_hard"
)

// Config names the gpio.Model channels this component drives and the
// click hold durations.
type Config struct {
	PowerLEDChannel    string
	HDDLEDChannel      string
	PowerSwitchChannel string
	ResetSwitchChannel string

	ClickDelay     time.Duration // short power/reset press
	LongClickDelay time.Duration // forced power-off press
}

// State is the ATX surface's reported status.
type State struct {
	Enabled bool `json:"enabled"`
	Busy    bool `json:"busy"`
	LEDs    struct {
		Power bool `json:"power"`
		HDD   bool `json:"hdd"`
	} `json:"leds"`
}

// ATX exposes power control over the front-panel header. One click at
// a time: a second click while one is in flight reports Busy.
type ATX struct {
	cfg    Config
	model  *gpio.Model
	region primitives.Resource
}

// New wires an ATX component over an already-populated gpio.Model.
func New(cfg Config, model *gpio.Model) *ATX {
	if cfg.ClickDelay <= 0 {
		cfg.ClickDelay = 100 * time.Millisecond
	}
	if cfg.LongClickDelay <= 0 {
		cfg.LongClickDelay = 5500 * time.Millisecond
	}
	return &ATX{cfg: cfg, model: model}
}

// Notifier returns the underlying gpio.Model notifier; LED edges and
// click transitions both fire it.
func (a *ATX) Notifier() *primitives.Notifier { return a.model.Notifier() }

// State snapshots the LEDs and busy flag.
func (a *ATX) State() State {
	var st State
	st.Enabled = a.cfg.PowerSwitchChannel != ""
	st.Busy = a.region.Holder() != ""

	if a.cfg.PowerLEDChannel != "" {
		if ch, err := a.model.Read(a.cfg.PowerLEDChannel); err == nil && ch.Online {
			st.LEDs.Power = ch.Value
		}
	}
	if a.cfg.HDDLEDChannel != "" {
		if ch, err := a.model.Read(a.cfg.HDDLEDChannel); err == nil && ch.Online {
			st.LEDs.HDD = ch.Value
		}
	}
	return st
}

// powered reads the power LED; the LED being lit is the only signal
// the header gives us about the host's power state.
func (a *ATX) powered() bool {
	if a.cfg.PowerLEDChannel == "" {
		return false
	}
	ch, err := a.model.Read(a.cfg.PowerLEDChannel)
	return err == nil && ch.Online && ch.Value
}

// Click pulses the named button. Busy if another click is in flight.
func (a *ATX) Click(ctx context.Context, button string) error {
	var channel string
	var hold time.Duration

	switch button {
	case ButtonPower:
		channel, hold = a.cfg.PowerSwitchChannel, a.cfg.ClickDelay
	case ButtonPowerLong:
		channel, hold = a.cfg.PowerSwitchChannel, a.cfg.LongClickDelay
	case ButtonReset:
		channel, hold = a.cfg.ResetSwitchChannel, a.cfg.ClickDelay
	default:
		return kvmerr.Validation("atx: unknown button %q", button)
	}
	if channel == "" {
		return kvmerr.Operation("atx: button %q is not wired", button)
	}

	release, err := a.region.Acquire("click:" + button)
	if err != nil {
		return kvmerr.Busy("atx: %v", err)
	}
	defer release()

	return a.model.Pulse(ctx, channel, hold)
}

// Power performs a high-level action conditioned on the current power
// LED: "on" and "off" are no-ops if the host is already in the target
// state; "off_hard" forces via a long press; "reset_hard" pulses
// reset unconditionally (but requires power on). When wait is true
// the call polls the LED until it reflects the target state or ctx
// expires.
func (a *ATX) Power(ctx context.Context, action string, wait bool) error {
	var clickButton string
	var wantPowered bool

	switch action {
	case ActionOn:
		if a.powered() {
			return nil
		}
		clickButton, wantPowered = ButtonPower, true
	case ActionOff:
		if !a.powered() {
			return nil
		}
		clickButton, wantPowered = ButtonPower, false
	case ActionOffHard:
		if !a.powered() {
			return nil
		}
		clickButton, wantPowered = ButtonPowerLong, false
	case ActionResetHard:
		if !a.powered() {
			return kvmerr.Operation("atx: host is not powered")
		}
		clickButton, wantPowered = ButtonReset, true
	default:
		return kvmerr.Validation("atx: unknown action %q", action)
	}

	if err := a.Click(ctx, clickButton); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	return a.waitPowered(ctx, wantPowered)
}

func (a *ATX) waitPowered(ctx context.Context, want bool) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if a.powered() == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return kvmerr.Operation("atx: timed out waiting for power state")
		case <-ticker.C:
		}
	}
}

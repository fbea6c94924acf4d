package kvmswitch

// Event is something the chain wants to tell the rest of the daemon
// about: a state change, a truncation, or activation of a port.
type Event interface{ isSwitchEvent() }

// DeviceFoundEvent fires once the serial device reappears and the
// main loop starts talking to it.
type DeviceFoundEvent struct{}

func (DeviceFoundEvent) isSwitchEvent() {}

// ChainTruncatedEvent fires when a downlink-less unit reports fewer
// units than previously tracked, or the device disappears entirely
// (units == 0).
type ChainTruncatedEvent struct{ Units int }

func (ChainTruncatedEvent) isSwitchEvent() {}

// PortActivatedEvent fires whenever the active port changes, whether
// by external request or auto-activation.
type PortActivatedEvent struct{ Port int }

func (PortActivatedEvent) isSwitchEvent() {}

// UnitStateEvent carries a freshly decoded STATE reply.
type UnitStateEvent struct {
	Unit  int
	State UnitState
}

func (UnitStateEvent) isSwitchEvent() {}

// UnitAtxLedsEvent carries a freshly decoded ATX_LEDS reply.
type UnitAtxLedsEvent struct {
	Unit    int
	ATXLeds UnitAtxLeds
}

func (UnitAtxLedsEvent) isSwitchEvent() {}

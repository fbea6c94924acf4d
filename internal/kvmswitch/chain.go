package kvmswitch

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

type command interface{ isSwitchCommand() }

type cmdSetActual struct{ actual bool }
type cmdSetActivePort struct{ port int }
type cmdSetPortBeacon struct {
	port int
	on   bool
}
type cmdSetUnitBeacon struct {
	unit     int
	on       bool
	downlink bool
}
type cmdSetEdids struct{ edids *Edids }
type cmdSetColors struct{ colors Colors }
type cmdAtxClick struct {
	port      int
	delay     time.Duration
	reset     bool
	ifPowered *bool
}
type cmdRebootUnit struct {
	unit       int
	bootloader bool
}

func (cmdSetActual) isSwitchCommand()     {}
func (cmdSetActivePort) isSwitchCommand() {}
func (cmdSetPortBeacon) isSwitchCommand() {}
func (cmdSetUnitBeacon) isSwitchCommand() {}
func (cmdSetEdids) isSwitchCommand()      {}
func (cmdSetColors) isSwitchCommand()     {}
func (cmdAtxClick) isSwitchCommand()      {}
func (cmdRebootUnit) isSwitchCommand()    {}

// Chain drives one daisy-chained switch over a serial device,
// reconciling configured state (active port, EDIDs, colors, quirks)
// against what each unit reports.
type Chain struct {
	devicePath     string
	ignoreHPDOnTop bool
	logger         *log.Logger
	cache          *StateCache

	commands chan command
	events   chan Event

	actual     bool
	edids      *Edids
	colors     Colors
	units      []*UnitContext
	activePort int
}

// NewChain builds a Chain for devicePath; ignoreHPDOnTop mirrors the
// `ignore_hpd` quirk applied to unit 0 when true. cache may be nil, in which case summaries are not fed
// anywhere and pollers have nothing to read; pass the cache shared
// with the HTTP/WS front-end to make reconciled state visible there.
func NewChain(devicePath string, ignoreHPDOnTop bool, logger *log.Logger, cache *StateCache) *Chain {
	return &Chain{
		devicePath:     devicePath,
		ignoreHPDOnTop: ignoreHPDOnTop,
		logger:         logger,
		cache:          cache,
		commands:       make(chan command, 64),
		events:         make(chan Event, 256),
		edids:          NewEdids(),
		colors:         DefaultColors(),
		activePort:     -1,
	}
}

// Events exposes the outbound event stream.
func (c *Chain) Events() <-chan Event { return c.events }

func (c *Chain) queueCmd(cmd command) {
	select {
	case c.commands <- cmd:
	default:
		c.logger.Warn("kvmswitch: command queue full, dropping", "cmd", cmd)
	}
}

func (c *Chain) queueEvent(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("kvmswitch: event queue full, dropping")
	}
}

// SetActual toggles whether EDID/color convergence runs at all.
func (c *Chain) SetActual(actual bool) { c.queueCmd(cmdSetActual{actual}) }

// SetActivePort requests port become the active virtual port.
func (c *Chain) SetActivePort(port int) { c.queueCmd(cmdSetActivePort{port}) }

// SetPortBeacon toggles the per-port status LED.
func (c *Chain) SetPortBeacon(port int, on bool) { c.queueCmd(cmdSetPortBeacon{port, on}) }

// SetUplinkBeacon toggles the uplink indicator on unit.
func (c *Chain) SetUplinkBeacon(unit int, on bool) {
	c.queueCmd(cmdSetUnitBeacon{unit: unit, on: on, downlink: false})
}

// SetDownlinkBeacon toggles the downlink indicator on unit.
func (c *Chain) SetDownlinkBeacon(unit int, on bool) {
	c.queueCmd(cmdSetUnitBeacon{unit: unit, on: on, downlink: true})
}

// SetEdids replaces the chain-wide EDID table and port assignment.
func (c *Chain) SetEdids(edids *Edids) { c.queueCmd(cmdSetEdids{edids}) }

// SetColors replaces the neopixel color roles.
func (c *Chain) SetColors(colors Colors) { c.queueCmd(cmdSetColors{colors}) }

// ClickPower requests an ATX power button click on port, gated by
// ifPowered if non-nil.
func (c *Chain) ClickPower(port int, delay time.Duration, ifPowered *bool) {
	c.queueCmd(cmdAtxClick{port: port, delay: delay, reset: false, ifPowered: ifPowered})
}

// ClickReset requests an ATX reset button click.
func (c *Chain) ClickReset(port int, delay time.Duration, ifPowered *bool) {
	c.queueCmd(cmdAtxClick{port: port, delay: delay, reset: true, ifPowered: ifPowered})
}

// RebootUnit requests unit reboot into normal or bootloader mode.
func (c *Chain) RebootUnit(unit int, bootloader bool) {
	c.queueCmd(cmdRebootUnit{unit: unit, bootloader: bootloader})
}

// Run owns the serial device for as long as ctx is alive, reconnecting
// with a 1-second backoff whenever the device disappears or a
// transport error occurs.
func (c *Chain) Run(ctx context.Context) {
	reported := false
	for ctx.Err() == nil {
		if _, err := os.Stat(c.devicePath); err != nil {
			if !reported {
				c.queueEvent(ChainTruncatedEvent{Units: 0})
				c.logger.Info("kvmswitch: device missing")
				reported = true
			}
			sleepOrDone(ctx, time.Second)
			continue
		}
		reported = false

		dev, err := OpenDevice(c.devicePath, 0)
		if err != nil {
			c.logger.Error("kvmswitch: open failed", "err", err)
			sleepOrDone(ctx, time.Second)
			continue
		}
		_ = dev.SetReadTimeout(200 * time.Millisecond)

		c.logger.Info("kvmswitch: device found")
		c.queueEvent(DeviceFoundEvent{})
		c.mainLoop(ctx, dev)
		dev.Close()
		drainCommands(c.commands)

		sleepOrDone(ctx, time.Second)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func drainCommands(ch chan command) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (c *Chain) mainLoop(ctx context.Context, dev *Device) {
	if _, err := dev.Send(OpState, 0xFF, nil); err != nil {
		c.logger.Error("kvmswitch: request_state failed", "err", err)
		return
	}
	if _, err := dev.Send(OpATXLEDs, 0xFF, nil); err != nil {
		c.logger.Error("kvmswitch: request_atx_leds failed", "err", err)
		return
	}

	for ctx.Err() == nil {
		resps, err := dev.ReadAll()
		if err != nil {
			c.logger.Error("kvmswitch: read failed", "err", err)
			return
		}
		for _, resp := range resps {
			c.updateUnits(resp)
			c.adjustQuirks(dev)
			c.adjustStartPort()
			c.finishChangingRequest(resp)
		}
		c.consumeCommands(dev)
		c.ensureConfig(dev)
	}
}

func (c *Chain) consumeCommands(dev *Device) {
	for {
		select {
		case cmd := <-c.commands:
			c.applyCommand(dev, cmd)
		default:
			return
		}
	}
}

func (c *Chain) applyCommand(dev *Device, cmd command) {
	switch v := cmd.(type) {
	case cmdSetActual:
		c.actual = v.actual

	case cmdSetActivePort:
		c.activePort = v.port
		c.queueEvent(PortActivatedEvent{Port: c.activePort})
		if c.cache != nil {
			c.cache.SetActivePort(c.activePort)
		}

	case cmdSetPortBeacon:
		unit, ch := RealUnitChannel(v.port)
		if unit < len(c.units) {
			_, _ = dev.Send(OpBeacon, byte(unit), bodySetBeacon(byte(ch), v.on))
		}

	case cmdSetUnitBeacon:
		ch := byte(5)
		if v.downlink {
			ch = 4
		}
		_, _ = dev.Send(OpBeacon, byte(v.unit), bodySetBeacon(ch, v.on))

	case cmdAtxClick:
		unit, ch := RealUnitChannel(v.port)
		if unit < len(c.units) {
			allowed, powered := c.units[unit].IsATXAllowed(ch)
			if allowed && (v.ifPowered == nil || *v.ifPowered == powered) {
				delayMS := v.delay.Milliseconds()
				if delayMS > 0xFFFF {
					delayMS = 0xFFFF
				}
				action := byte(ATXActionPower)
				if v.reset {
					action = ATXActionReset
				}
				_, _ = dev.Send(OpATXClick, byte(unit), bodyAtxClick(byte(ch), action, uint16(delayMS)))
			}
		}

	case cmdSetEdids:
		c.edids = v.edids
		if c.cache != nil {
			c.cache.SetEdids(v.edids)
		}

	case cmdSetColors:
		c.colors = v.colors
		if c.cache != nil {
			c.cache.SetColors(v.colors)
		}

	case cmdRebootUnit:
		op := OpReboot
		if v.bootloader {
			op = OpBootloader
		}
		_, _ = dev.Send(op, byte(v.unit), nil)
	}
}

func (c *Chain) updateUnits(resp Response) {
	need := int(resp.Header.Unit) + 1
	for len(c.units) < need {
		c.units = append(c.units, newUnitContext())
	}

	switch resp.Header.Op {
	case OpState:
		state, err := DecodeUnitState(resp.Body)
		if err != nil {
			return
		}
		if !state.Flags.HasDownlink && len(c.units) > need {
			c.units = c.units[:need]
			c.queueEvent(ChainTruncatedEvent{Units: need})
			if c.cache != nil {
				c.cache.ApplyTruncation(need)
			}
		}
		c.units[resp.Header.Unit].State = &state
		c.queueEvent(UnitStateEvent{Unit: int(resp.Header.Unit), State: state})
		if c.cache != nil {
			c.cache.ApplyUnitState(int(resp.Header.Unit), state)
		}

	case OpATXLEDs:
		leds, err := DecodeUnitAtxLeds(resp.Body)
		if err != nil {
			return
		}
		c.units[resp.Header.Unit].ATXLeds = &leds
		c.queueEvent(UnitAtxLedsEvent{Unit: int(resp.Header.Unit), ATXLeds: leds})
		if c.cache != nil {
			c.cache.ApplyATXLeds(int(resp.Header.Unit), leds)
		}
	}
}

func (c *Chain) adjustQuirks(dev *Device) {
	for unit, ctx := range c.units {
		if ctx.State == nil {
			continue
		}
		if !ctx.State.Version.IsFresh(7) {
			continue
		}
		ignoreHPD := unit == 0 && c.ignoreHPDOnTop
		if ctx.State.Quirks.IgnoreHPD != ignoreHPD {
			c.logger.Info("kvmswitch: applying quirk", "unit", unit, "ignore_hpd", ignoreHPD)
			_, _ = dev.Send(OpSetQuirks, byte(unit), bodySetQuirks(ignoreHPD))
		}
	}
}

func (c *Chain) adjustStartPort() {
	if c.activePort >= 0 {
		return
	}
	for unit, ctx := range c.units {
		if ctx.State != nil && ctx.State.Ch < NumChannels {
			port := VirtualPort(unit, int(ctx.State.Ch))
			c.logger.Info("kvmswitch: found active port, syncing", "port", port, "unit", unit)
			c.activePort = port
			c.queueEvent(PortActivatedEvent{Port: port})
			if c.cache != nil {
				c.cache.SetActivePort(port)
			}
			break
		}
	}
}

func (c *Chain) finishChangingRequest(resp Response) {
	unit := int(resp.Header.Unit)
	if unit < 0 || unit >= len(c.units) {
		return
	}
	if c.units[unit].ChangingRID() == int32(resp.Header.RID) {
		c.units[unit].SetChangingRID(-1)
	}
}

func (c *Chain) ensureConfig(dev *Device) {
	for unit, ctx := range c.units {
		if ctx.State == nil {
			continue
		}
		c.ensureConfigPort(dev, unit, ctx)
		if c.actual {
			c.ensureConfigEdids(dev, unit, ctx)
			c.ensureConfigColors(dev, unit, ctx)
		}
	}
}

func (c *Chain) ensureConfigPort(dev *Device, unit int, ctx *UnitContext) {
	if c.activePort < 0 || !ctx.CanBeChanged() {
		return
	}
	target := byte(UnitTargetChannel(unit, c.activePort))
	if ctx.State.Ch == target {
		return
	}
	c.logger.Info("kvmswitch: switching for active port", "port", c.activePort, "unit", unit, "from", ctx.State.Ch, "to", target)
	rid, err := dev.Send(OpSwitch, byte(unit), bodySwitch(target))
	if err == nil {
		ctx.SetChangingRID(int32(rid))
	}
}

func (c *Chain) ensureConfigEdids(dev *Device, unit int, ctx *UnitContext) {
	if !ctx.CanBeChanged() {
		return
	}
	for ch := 0; ch < NumChannels; ch++ {
		port := VirtualPort(unit, ch)
		edid := c.edids.EdidForPort(port)
		if ctx.State.CompareEDID(ch, edid) {
			continue
		}
		c.logger.Info("kvmswitch: changing EDID", "port", port, "unit", unit, "ch", ch, "name", edid.Name)
		var rid uint16
		var err error
		if edid.Valid() {
			rid, err = dev.Send(OpSetEDID, byte(unit), bodySetEdid(byte(ch), edid))
		} else {
			rid, err = dev.Send(OpClearEDID, byte(unit), bodyClearEdid(byte(ch)))
		}
		if err == nil {
			ctx.SetChangingRID(int32(rid))
		}
		break // globally busy until reply, matching the upstream driver
	}
}

func (c *Chain) ensureConfigColors(dev *Device, unit int, ctx *UnitContext) {
	for np := 0; np < NumNeopixels; np++ {
		if c.colors.CRC16() != ctx.State.NPCRC[np] {
			_, _ = dev.Send(OpSetColors, byte(unit), bodySetColors(byte(np), c.colors))
		}
	}
}

// RealUnitChannel maps a virtual port number to (unit, channel).
func RealUnitChannel(port int) (unit, ch int) {
	return port / NumChannels, port % NumChannels
}

// UnitTargetChannel computes which channel unit should switch to in
// order to route port: its own channel if port lives on this unit, or
// the downlink channel (4) otherwise.
func UnitTargetChannel(unit, port int) int {
	targetUnit, targetCh := RealUnitChannel(port)
	if unit != targetUnit {
		return NumChannels
	}
	return targetCh
}

// VirtualPort maps (unit, channel) back to a single port number.
func VirtualPort(unit, ch int) int {
	return unit*NumChannels + ch
}

package kvmswitch

import (
	"sync"
	"time"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

// Service is the control-plane face of the switch driver: it owns the
// configured entities (EDIDs, colors, port attributes), feeds
// snapshots of them to the Chain for convergence, and folds the same
// snapshots into the StateCache for pollers. The Chain goroutine only
// ever sees cloned copies, so Service mutations never race the
// convergence loop.
type Service struct {
	chain *Chain
	cache *StateCache

	mu     sync.Mutex
	edids  *Edids
	colors Colors
	ports  *PortParams
}

// NewService wires a Service over an existing Chain and StateCache.
func NewService(chain *Chain, cache *StateCache) *Service {
	s := &Service{
		chain:  chain,
		cache:  cache,
		edids:  NewEdids(),
		colors: DefaultColors(),
		ports:  NewPortParams(),
	}
	s.pushEdids()
	s.pushColors()
	return s
}

// Ports exposes the port attribute dicts.
func (s *Service) Ports() *PortParams { return s.ports }

// Cache exposes the state cache for pollers.
func (s *Service) Cache() *StateCache { return s.cache }

func (s *Service) cloneEdids() *Edids {
	out := NewEdids()
	for id, e := range s.edids.All {
		data := append([]byte(nil), e.Data...)
		out.All[id] = Edid{Name: e.Name, Data: data}
	}
	for port, id := range s.edids.Port {
		out.Port[port] = id
	}
	return out
}

func (s *Service) pushEdids() {
	snapshot := s.cloneEdids()
	s.chain.SetEdids(snapshot)
	s.cache.SetEdids(s.cloneEdids())
}

func (s *Service) pushColors() {
	s.chain.SetColors(s.colors)
	s.cache.SetColors(s.colors)
}

// SetActivePort requests a switch to virtual port.
func (s *Service) SetActivePort(port int) {
	s.chain.SetActivePort(port)
}

// CreateEdid registers a new EDID blob and returns its generated id.
func (s *Service) CreateEdid(name string, data []byte) (string, error) {
	if len(data) != 128 && len(data) != 256 {
		return "", kvmerr.Validation("switch: EDID must be 128 or 256 bytes, got %d", len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.edids.Add(Edid{Name: name, Data: append([]byte(nil), data...)})
	s.pushEdids()
	return id, nil
}

// RemoveEdid deletes an EDID; ports using it fall back to default.
func (s *Service) RemoveEdid(id string) error {
	if id == DefaultEdidID {
		return kvmerr.Operation("switch: the default EDID cannot be removed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edids.All[id]; !ok {
		return kvmerr.Operation("switch: unknown EDID id %q", id)
	}
	s.edids.Remove(id)
	s.pushEdids()
	return nil
}

// AssignPortEdid binds an EDID id to a port ("default" clears the
// binding).
func (s *Service) AssignPortEdid(port int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edids.All[id]; !ok && id != DefaultEdidID {
		return kvmerr.Operation("switch: unknown EDID id %q", id)
	}
	s.edids.Assign(port, id)
	s.pushEdids()
	return nil
}

// EdidsSnapshot returns cloned views of the EDID table and the
// port assignment map.
func (s *Service) EdidsSnapshot() (all map[string]Edid, ports map[int]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := s.cloneEdids()
	return clone.All, clone.Port
}

// SetColor replaces one named role and reconverges the chain.
func (s *Service) SetColor(role string, c Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch role {
	case "inactive":
		s.colors.Inactive = c
	case "active":
		s.colors.Active = c
	case "flashing":
		s.colors.Flashing = c
	case "beacon":
		s.colors.Beacon = c
	case "bootloader":
		s.colors.Bootloader = c
	default:
		return kvmerr.Validation("switch: unknown color role %q", role)
	}
	s.pushColors()
	return nil
}

// ResetColors restores the factory defaults.
func (s *Service) ResetColors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors = DefaultColors()
	s.pushColors()
}

// Colors returns the current role set.
func (s *Service) Colors() Colors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.colors
}

// SetPortBeacon toggles the locator LED for a host-facing port.
func (s *Service) SetPortBeacon(port int, on bool) {
	s.chain.SetPortBeacon(port, on)
}

// SetUplinkBeacon toggles a unit's uplink locator LED.
func (s *Service) SetUplinkBeacon(unit int, on bool) {
	s.chain.SetUplinkBeacon(unit, on)
}

// SetDownlinkBeacon toggles a unit's downlink locator LED.
func (s *Service) SetDownlinkBeacon(unit int, on bool) {
	s.chain.SetDownlinkBeacon(unit, on)
}

// AtxClick pulses the named front-panel button on the host behind
// port, using the per-port delay dicts. ifPowered gating matches the
// spec: power-on only fires while the LED is off, the rest only while
// it is on.
func (s *Service) AtxClick(port int, button string) error {
	var delay float64
	var ifPowered bool

	switch button {
	case "power":
		delay, ifPowered = s.ports.PowerClickDelay(port), false
	case "power_long":
		delay, ifPowered = s.ports.LongPowerClickDelay(port), true
	case "reset":
		delay, ifPowered = s.ports.ResetClickDelay(port), true
	default:
		return kvmerr.Validation("switch: unknown button %q", button)
	}

	d := time.Duration(delay * float64(time.Second))
	if button == "reset" {
		s.chain.ClickReset(port, d, &ifPowered)
	} else {
		s.chain.ClickPower(port, d, &ifPowered)
	}
	return nil
}

// NotifyPortsChanged snapshots the port attribute dicts into the
// cache so they are persisted after the quiescence window.
func (s *Service) NotifyPortsChanged() {
	names, power, longPower, reset := s.ports.Snapshot()
	s.cache.SetPortParams(names, power, longPower, reset)
}

// Reboot reboots a unit, optionally into its bootloader.
func (s *Service) Reboot(unit int, bootloader bool) {
	s.chain.RebootUnit(unit, bootloader)
}

// State assembles the coarse state dict for the HTTP surface.
func (s *Service) State() map[string]any {
	units, activePort := s.cache.Summary()
	all, portAssign := s.EdidsSnapshot()

	edidList := make(map[string]map[string]any, len(all))
	for id, e := range all {
		edidList[id] = map[string]any{
			"name":  e.Name,
			"valid": e.Valid(),
			"crc":   e.CRC16(),
		}
	}

	unitList := make(map[int]map[string]any, len(units))
	for unit, u := range units {
		unitList[unit] = map[string]any{
			"online": u.Online,
			"ch":     u.Ch,
			"busy":   u.Busy,
		}
	}

	names, power, longPower, reset := s.ports.Snapshot()
	return map[string]any{
		"active_port": activePort,
		"units":       unitList,
		"edids": map[string]any{
			"all":  edidList,
			"used": portAssign,
		},
		"colors": s.Colors(),
		"ports": map[string]any{
			"names":                   names,
			"power_click_delays":      power,
			"long_power_click_delays": longPower,
			"reset_click_delays":      reset,
		},
	}
}

package kvmswitch

import (
	"sync"
	"time"

	"github.com/kvmd-go/kvmd/internal/primitives"
)

// SubtreeMask bits identify which part of the cached state changed,
// so pollers can fetch only what moved.
type SubtreeMask uint16

const (
	SubtreeFull SubtreeMask = 1 << iota
	SubtreeSummary
	SubtreeEdids
	SubtreeColors
	SubtreeVideo
	SubtreeUSB
	SubtreeBeacons
	SubtreeATX
)

// atxCoalesceWindow batches bursts of per-unit ATX LED updates that
// arrive within a short span of each other into a single notification.
const atxCoalesceWindow = 200 * time.Millisecond

// PersistStore is the narrow interface the cache needs from a
// persistent key-value store; internal/pst.Client satisfies it.
type PersistStore interface {
	Set(key string, value any) error
}

// persistQuiescence is how long the cache waits after the last change
// before flushing to PersistStore.
const persistQuiescence = 5 * time.Second

// UnitSummary is the coarse per-unit view exposed to state pollers.
type UnitSummary struct {
	Online bool
	Ch     byte
	Busy   bool
}

// StateCache aggregates per-unit reports and configured entities
// (EDIDs, colors, port assignments) into the coarse dict HTTP/WS
// pollers read, tracking which subtrees changed since the last poll
// and persisting reconciled entities after a quiescence window.
type StateCache struct {
	mu       sync.Mutex
	notifier *primitives.Notifier
	changed  SubtreeMask

	units      map[int]UnitSummary
	activePort int
	edids      *Edids
	colors     Colors

	portNames       map[int]string
	powerDelays     map[int]float64
	longPowerDelays map[int]float64
	resetDelays     map[int]float64

	store        PersistStore
	persistTimer *time.Timer
	persistMu    sync.Mutex

	atxTimer *time.Timer
	atxMu    sync.Mutex
}

// NewStateCache builds an empty cache. store may be nil, in which
// case persistence is skipped entirely.
func NewStateCache(store PersistStore) *StateCache {
	return &StateCache{
		notifier:   primitives.NewNotifier(),
		units:      make(map[int]UnitSummary),
		activePort: -1,
		store:      store,
	}
}

// Notifier exposes the coalescing wakeup signal pollers wait on.
func (c *StateCache) Notifier() *primitives.Notifier { return c.notifier }

func (c *StateCache) mark(mask SubtreeMask) {
	c.changed |= mask
	c.notifier.Notify(0)
}

// ApplyUnitState folds a freshly decoded unit report into the cache.
func (c *StateCache) ApplyUnitState(unit int, state UnitState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.units[unit] = UnitSummary{Online: true, Ch: state.Ch, Busy: state.Flags.ChangingBusy}
	c.mark(SubtreeSummary | SubtreeVideo | SubtreeUSB | SubtreeBeacons)
	c.schedulePersist()
}

// ApplyATXLeds folds an ATX_LEDS report in. The mask bit is set
// immediately so a poller already waiting sees it, but the wakeup
// itself is delayed by atxCoalesceWindow and re-armed on every call,
// so a burst of LED updates across several units collapses into a
// single notification fired after the burst settles.
func (c *StateCache) ApplyATXLeds(unit int, leds UnitAtxLeds) {
	c.mu.Lock()
	c.changed |= SubtreeATX
	c.mu.Unlock()

	c.atxMu.Lock()
	defer c.atxMu.Unlock()
	if c.atxTimer != nil {
		c.atxTimer.Stop()
	}
	c.atxTimer = time.AfterFunc(atxCoalesceWindow, func() { c.notifier.Notify(0) })
}

// ApplyTruncation drops units beyond n and marks the full state dirty.
func (c *StateCache) ApplyTruncation(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for unit := range c.units {
		if unit >= n {
			delete(c.units, unit)
		}
	}
	c.mark(SubtreeFull)
}

// SetActivePort records the active virtual port.
func (c *StateCache) SetActivePort(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activePort = port
	c.mark(SubtreeSummary)
	c.schedulePersist()
}

// SetEdids replaces the configured EDID table.
func (c *StateCache) SetEdids(edids *Edids) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edids = edids
	c.mark(SubtreeEdids)
	c.schedulePersist()
}

// SetColors replaces the configured color roles.
func (c *StateCache) SetColors(colors Colors) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = colors
	c.mark(SubtreeColors)
	c.schedulePersist()
}

// SetPortParams records the persisted port attribute dicts (names
// plus the three delay maps, non-default entries only).
func (c *StateCache) SetPortParams(names map[int]string, power, longPower, reset map[int]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.portNames = names
	c.powerDelays = power
	c.longPowerDelays = longPower
	c.resetDelays = reset
	c.mark(SubtreeSummary)
	c.schedulePersist()
}

// Poll returns the accumulated change mask since the last Poll and
// clears it.
func (c *StateCache) Poll() SubtreeMask {
	c.mu.Lock()
	defer c.mu.Unlock()
	mask := c.changed
	c.changed = 0
	return mask
}

// Summary returns a snapshot of the coarse per-unit dict.
func (c *StateCache) Summary() (units map[int]UnitSummary, activePort int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]UnitSummary, len(c.units))
	for k, v := range c.units {
		out[k] = v
	}
	return out, c.activePort
}

// schedulePersist (re)arms a quiescence timer; each call resets it, so
// only a 5-second gap in configuration churn triggers a flush.
func (c *StateCache) schedulePersist() {
	if c.store == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if c.persistTimer != nil {
		c.persistTimer.Stop()
	}
	c.persistTimer = time.AfterFunc(persistQuiescence, c.flush)
}

func (c *StateCache) flush() {
	c.mu.Lock()
	edids := c.edids
	colors := c.colors
	activePort := c.activePort
	c.mu.Unlock()

	if edids != nil {
		_ = c.store.Set("switch.edids", edids.All)
		_ = c.store.Set("switch.edid_ports", edids.Port)
	}
	_ = c.store.Set("switch.colors", colors)
	_ = c.store.Set("switch.active_port", activePort)

	c.mu.Lock()
	names, power, longPower, reset := c.portNames, c.powerDelays, c.longPowerDelays, c.resetDelays
	c.mu.Unlock()
	if names != nil {
		_ = c.store.Set("switch.port_names", names)
	}
	if power != nil {
		_ = c.store.Set("switch.power_click_delays", power)
	}
	if longPower != nil {
		_ = c.store.Set("switch.long_power_click_delays", longPower)
	}
	if reset != nil {
		_ = c.store.Set("switch.reset_click_delays", reset)
	}
}

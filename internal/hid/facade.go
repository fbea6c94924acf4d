package hid

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/kvmd-go/kvmd/internal/primitives"
)

// Backend is implemented by each wire-level HID driver (usbgadget,
// mcu, bluetooth, ch9329). The facade never talks to hardware
// directly — it filters and remaps events, then hands them to a
// Backend.
type Backend interface {
	State() State
	SendEvent(Event)
	SetConnected(bool)
	Reset()
	Cleanup()
}

// State is a backend's reported status, shaped for JSON serialization
// at the API edge.
type State struct {
	Online    bool `json:"online"`
	Connected bool `json:"connected"`
	Keyboard  struct {
		Online bool     `json:"online"`
		LEDs   LEDState `json:"leds"`
	} `json:"keyboard"`
	Mouse struct {
		Online  bool `json:"online"`
		Outputs []string
	} `json:"mouse"`
}

// Params are the facade's runtime-tunable knobs.
type Params struct {
	KeyboardOutput  string
	MouseOutput     string
	JigglerEnabled  bool
	JigglerActive   bool
	JigglerInterval time.Duration
}

// Facade is the HID contract exposed to internal/api: get_state,
// poll_state, reset, cleanup, set_params, set_connected, and the
// event injectors, with ignore_keys filtering and coordinate remap
// applied uniformly ahead of every backend.
type Facade struct {
	mu          sync.Mutex
	backend     Backend
	ignoreKeys  map[int]struct{}
	remapLo     int
	remapHi     int
	jiggler     *Jiggler
	lastState   State
	lastX, lastY int16
	notifier    *primitives.Notifier
}

// NewFacade wraps backend. remapLo/remapHi are the configured input
// coordinate range for absolute mouse events.
func NewFacade(backend Backend, remapLo, remapHi int, absoluteJiggler bool) *Facade {
	f := &Facade{
		backend:    backend,
		ignoreKeys: map[int]struct{}{},
		remapLo:    remapLo,
		remapHi:    remapHi,
		notifier:   primitives.NewNotifier(),
	}
	f.jiggler = NewJiggler(absoluteJiggler, func(dx, dy int) {
		if absoluteJiggler {
			f.backend.SendEvent(MouseMoveEvent{
				X: primitives.ClampInt16(int(f.lastAbsoluteX()) + dx),
				Y: primitives.ClampInt16(int(f.lastAbsoluteY()) + dy),
			})
		} else {
			f.backend.SendEvent(MouseRelativeEvent{DX: int8(dx), DY: int8(dy)})
		}
	})
	return f
}

// lastAbsoluteX/Y let the jiggler center its square pattern on the
// last known position rather than drifting the cursor to a corner.
func (f *Facade) lastAbsoluteX() int16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastX
}

func (f *Facade) lastAbsoluteY() int16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastY
}

// SetIgnoreKeys configures the set of USB usages filtered pre-injection.
func (f *Facade) SetIgnoreKeys(usages []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignoreKeys = make(map[int]struct{}, len(usages))
	for _, u := range usages {
		f.ignoreKeys[u] = struct{}{}
	}
}

// SendKeyEvents injects a batch of key events, dropping ignored keys.
func (f *Facade) SendKeyEvents(events []KeyEvent) {
	f.mu.Lock()
	ignore := f.ignoreKeys
	f.mu.Unlock()

	for _, e := range events {
		if _, skip := ignore[e.USBUsage]; skip {
			continue
		}
		f.jiggler.NoteUserEvent()
		f.backend.SendEvent(e)
	}
	f.poke()
}

// SendMouseButtonEvent injects a button press/release.
func (f *Facade) SendMouseButtonEvent(e MouseButtonEvent) {
	f.jiggler.NoteUserEvent()
	f.backend.SendEvent(e)
	f.poke()
}

// SendMouseMoveEvent injects an absolute move, remapping from the
// configured input range to hardware space first.
func (f *Facade) SendMouseMoveEvent(rawX, rawY int) {
	f.jiggler.NoteUserEvent()
	x := RemapAbsolute(rawX, f.remapLo, f.remapHi)
	y := RemapAbsolute(rawY, f.remapLo, f.remapHi)
	f.mu.Lock()
	f.lastX, f.lastY = x, y
	f.mu.Unlock()
	f.backend.SendEvent(MouseMoveEvent{X: x, Y: y})
	f.poke()
}

// SendMouseRelativeEvent injects a relative move.
func (f *Facade) SendMouseRelativeEvent(e MouseRelativeEvent) {
	f.jiggler.NoteUserEvent()
	f.backend.SendEvent(e)
	f.poke()
}

// SendMouseWheelEvent injects a wheel delta.
func (f *Facade) SendMouseWheelEvent(e MouseWheelEvent) {
	f.jiggler.NoteUserEvent()
	f.backend.SendEvent(e)
	f.poke()
}

// ClearEvents releases everything held.
func (f *Facade) ClearEvents() {
	f.backend.SendEvent(ClearEvent{})
	f.poke()
}

// SetParams applies the tunable knobs, including the jiggler.
func (f *Facade) SetParams(p Params) {
	f.jiggler.SetParams(p.JigglerEnabled, p.JigglerActive, p.JigglerInterval)
	f.poke()
}

// JigglerParams returns the jiggler's current settings for the state
// dict.
func (f *Facade) JigglerParams() (enabled, active bool, interval time.Duration) {
	return f.jiggler.Params()
}

// SetConnected toggles whether the HID device is attached to the host.
func (f *Facade) SetConnected(connected bool) {
	f.backend.SetConnected(connected)
	f.poke()
}

// Reset clears backend state without tearing down the facade.
func (f *Facade) Reset() {
	f.backend.Reset()
	f.poke()
}

// Cleanup releases all held keys/buttons and shuts the backend down.
func (f *Facade) Cleanup() {
	f.backend.Cleanup()
}

// GetState returns a snapshot of the current backend state.
func (f *Facade) GetState() State {
	return f.backend.State()
}

// PollState streams states to out whenever the backend's state
// actually changes, until ctx is cancelled.
func (f *Facade) PollState(ctx context.Context, out chan<- State) {
	f.mu.Lock()
	f.lastState = f.backend.State()
	f.mu.Unlock()
	select {
	case out <- f.lastState:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.notifier.C():
			f.notifier.Wait()
			state := f.backend.State()
			f.mu.Lock()
			changed := !reflect.DeepEqual(state, f.lastState)
			if changed {
				f.lastState = state
			}
			f.mu.Unlock()
			if !changed {
				continue
			}
			select {
			case out <- state:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Notifier exposes the facade's state-change wakeup signal for the
// orchestrator's broadcast loop.
func (f *Facade) Notifier() *primitives.Notifier {
	return f.notifier
}

// RunJiggler starts the background jiggler loop; call as a goroutine.
func (f *Facade) RunJiggler(ctx context.Context) {
	f.jiggler.Run(ctx)
}

func (f *Facade) poke() {
	f.notifier.Notify(0)
}

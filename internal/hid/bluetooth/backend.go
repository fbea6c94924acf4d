package bluetooth

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kvmd-go/kvmd/internal/hid"
)

// client owns one control and one interrupt socket.
type client struct {
	addr      clientAddr
	controlFD int
	interFD   int
}

// Backend implements hid.Backend by broadcasting reports to every
// connected client.
type Backend struct {
	mu      sync.Mutex
	clients map[clientAddr]*client
	kbState *hid.KeyboardState
	leds    hid.LEDState
	revokeOnClose bool
}

// New builds an empty Backend. revokeOnClose is stored on the Backend
// but nothing reads it: forgetting a client never revokes its pairing.
func New(revokeOnClose bool) *Backend {
	return &Backend{
		clients:       map[clientAddr]*client{},
		kbState:       hid.NewKeyboardState(),
		revokeOnClose: revokeOnClose,
	}
}

// AddClient registers a newly connected peer.
func (b *Backend) AddClient(addr clientAddr, controlFD, interFD int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[addr] = &client{addr: addr, controlFD: controlFD, interFD: interFD}
}

// RemoveClient forgets a peer once the last socket of its pair closes.
func (b *Backend) RemoveClient(addr clientAddr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, addr)
}

func (b *Backend) broadcast(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.clients {
		_, _ = unix.Write(c.interFD, frame)
	}
}

// keyboardReport wraps a report as an interrupt-channel HID report.
func keyboardReport(report [8]byte) []byte {
	return append([]byte{0xA1, 0x01}, report[:]...)
}

// mouseReport wraps a report as "0xA1 0x02 <mouse report>".
func mouseReport(report [8]byte) []byte {
	return append([]byte{0xA1, 0x02}, report[:]...)
}

func (b *Backend) SendEvent(e hid.Event) {
	switch ev := e.(type) {
	case hid.KeyEvent:
		for _, r := range b.kbState.Apply(ev) {
			b.broadcast(keyboardReport(r))
		}
	case hid.ClearEvent:
		r := b.kbState.Clear()
		b.broadcast(keyboardReport(r))
		b.broadcast(mouseReport([8]byte{}))
	default:
		// Only relative moves are sent, always with no buttons
		// held; absolute, button and wheel events are dropped.
		if rel, ok := e.(hid.MouseRelativeEvent); ok {
			ms := hid.NewMouseState(false)
			b.broadcast(mouseReport(ms.RelativeReport(rel.DX, rel.DY, 0, 0)))
		}
	}
}

// HandleInterruptFrame decodes a frame from the host.
func HandleInterruptFrame(frame []byte) (hid.LEDState, bool) {
	if len(frame) != 3 || frame[0] != 0xA2 || frame[1] != 0x01 {
		return hid.LEDState{}, false
	}
	return hid.DecodeLEDReport(frame[2]), true
}

// setLEDs records the host-reported LED state from an interrupt
// frame.
func (b *Backend) setLEDs(leds hid.LEDState) {
	b.mu.Lock()
	b.leds = leds
	b.mu.Unlock()
}

func (b *Backend) SetConnected(bool) {}

func (b *Backend) Reset() {
	b.mu.Lock()
	b.kbState = hid.NewKeyboardState()
	b.mu.Unlock()
}

func (b *Backend) Cleanup() {
	b.SendEvent(hid.ClearEvent{})
}

func (b *Backend) State() hid.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	var s hid.State
	s.Online = len(b.clients) > 0
	s.Keyboard.Online = s.Online
	s.Keyboard.LEDs = b.leds
	s.Mouse.Online = s.Online
	return s
}

// Package ch9329 implements the CH9329 UART HID backend: a checksum-framed
// command dialect carrying pre-encoded keyboard/mouse reports, with a six-
// slot keyboard model emulated in software the same way the USB gadget
// backend does.
package ch9329

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/term"

	"github.com/kvmd-go/kvmd/internal/hid"
)

const (
	frameHeader0 = 0x57
	frameHeader1 = 0xAB
	addrHost     = 0x00

	cmdKeyboard     = 0x02
	cmdMouseAbs     = 0x04
	cmdMouseRel     = 0x05
)

// checksum is the unsigned 8-bit sum of all preceding bytes.
func checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

func buildFrame(cmd byte, payload []byte) []byte {
	frame := []byte{frameHeader0, frameHeader1, addrHost, cmd, byte(len(payload))}
	frame = append(frame, payload...)
	frame = append(frame, checksum(frame))
	return frame
}

func verifyResponse(raw []byte) bool {
	if len(raw) < 6 || raw[0] != frameHeader0 || raw[1] != frameHeader1 {
		return false
	}
	length := int(raw[4])
	if len(raw) != 5+length+1 {
		return false
	}
	return checksum(raw[:len(raw)-1]) == raw[len(raw)-1]
}

// Backend implements hid.Backend over a CH9329 UART link.
type Backend struct {
	fd *term.Term

	mu      sync.Mutex
	kbState *hid.KeyboardState
	online  bool
}

// Open opens device at baud (CH9329 defaults to 9600) and returns a
// ready Backend.
func Open(device string, baud int) (*Backend, error) {
	fd, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open ch9329 %s: %w", device, err)
	}
	if baud <= 0 {
		baud = 9600
	}
	if err := fd.SetSpeed(baud); err != nil {
		fd.Close()
		return nil, fmt.Errorf("set speed: %w", err)
	}
	return &Backend{fd: fd, kbState: hid.NewKeyboardState()}, nil
}

func (b *Backend) send(frame []byte) bool {
	if _, err := b.fd.Write(frame); err != nil {
		b.mu.Lock()
		b.online = false
		b.mu.Unlock()
		return false
	}

	resp := make([]byte, 16)
	_ = b.fd.SetReadTimeout(200 * time.Millisecond)
	n, err := b.fd.Read(resp)

	b.mu.Lock()
	b.online = err == nil && n >= 6 && verifyResponse(resp[:n])
	b.mu.Unlock()
	return b.online
}

func (b *Backend) SendEvent(e hid.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev := e.(type) {
	case hid.KeyEvent:
		for _, report := range b.kbState.Apply(ev) {
			b.send(buildFrame(cmdKeyboard, report[:]))
		}
	case hid.MouseButtonEvent:
		payload := []byte{0x02, bitForButton(ev.Button, ev.Pressed), 0, 0, 0, 0}
		b.send(buildFrame(cmdMouseAbs, payload))
	case hid.MouseMoveEvent:
		payload := []byte{0x02, 0, byte(ev.X), byte(ev.X >> 8), byte(ev.Y), byte(ev.Y >> 8), 0}
		b.send(buildFrame(cmdMouseAbs, payload))
	case hid.MouseRelativeEvent:
		payload := []byte{0x01, 0, byte(ev.DX), byte(ev.DY), 0}
		b.send(buildFrame(cmdMouseRel, payload))
	case hid.MouseWheelEvent:
		// CH9329 only encodes the Y wheel axis.
		payload := []byte{0x01, 0, 0, 0, byte(ev.DY)}
		b.send(buildFrame(cmdMouseRel, payload))
	case hid.ClearEvent:
		report := b.kbState.Clear()
		b.send(buildFrame(cmdKeyboard, report[:]))
		b.send(buildFrame(cmdMouseAbs, make([]byte, 6)))
	}
}

func bitForButton(btn hid.MouseButton, pressed bool) byte {
	if !pressed {
		return 0
	}
	switch btn {
	case hid.ButtonLeft:
		return 0x01
	case hid.ButtonRight:
		return 0x02
	case hid.ButtonMiddle:
		return 0x04
	default:
		return 0
	}
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
	s.Online = b.online
	s.Keyboard.Online = b.online
	s.Mouse.Online = b.online
	return s
}

func (b *Backend) Close() error {
	return b.fd.Close()
}

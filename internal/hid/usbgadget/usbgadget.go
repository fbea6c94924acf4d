// Package usbgadget implements the /dev/hidgN HID backend: two sibling
// workers (keyboard, mouse) each own one character device; SendEvent
// serializes HID reports and writes them synchronously with
// write-deadline discipline and unplug tolerance.
package usbgadget

import (
	"errors"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kvmd-go/kvmd/internal/hid"
)

// Config describes one worker's device path and retry budget.
type Config struct {
	KeyboardDevice string
	MouseDevice    string
	WriteRetries   int
	WriteTimeout   time.Duration
}

// Backend implements hid.Backend over two /dev/hidgN character
// devices.
type Backend struct {
	cfg Config

	mu        sync.Mutex
	keyboard  *worker
	mouse     *worker
	kbState   *hid.KeyboardState
	mouseSt   *hid.MouseState
	connected bool
}

// New builds a Backend. win98Fix doubles the absolute X coordinate.
func New(cfg Config, win98Fix bool) *Backend {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Millisecond
	}
	if cfg.WriteRetries <= 0 {
		cfg.WriteRetries = 3
	}
	return &Backend{
		cfg:     cfg,
		keyboard: newWorker(cfg.KeyboardDevice, cfg.WriteTimeout, cfg.WriteRetries),
		mouse:    newWorker(cfg.MouseDevice, cfg.WriteTimeout, cfg.WriteRetries),
		kbState:  hid.NewKeyboardState(),
		mouseSt:  hid.NewMouseState(win98Fix),
	}
}

func (b *Backend) SendEvent(e hid.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev := e.(type) {
	case hid.KeyEvent:
		for _, report := range b.kbState.Apply(ev) {
			b.keyboard.write(report[:])
		}
	case hid.MouseButtonEvent:
		b.mouseSt.ApplyButton(ev)
		report := b.mouseSt.AbsoluteReport(0, 0, 0, 0)
		b.mouse.write(report[:])
	case hid.MouseMoveEvent:
		report := b.mouseSt.AbsoluteReport(ev.X, ev.Y, 0, 0)
		b.mouse.write(report[:])
	case hid.MouseRelativeEvent:
		report := b.mouseSt.RelativeReport(ev.DX, ev.DY, 0, 0)
		b.mouse.write(report[:])
	case hid.MouseWheelEvent:
		report := b.mouseSt.AbsoluteReport(0, 0, ev.DY, ev.DX)
		b.mouse.write(report[:])
	case hid.ClearEvent:
		kbReport := b.kbState.Clear()
		b.keyboard.write(kbReport[:])
		mReport := b.mouseSt.ReleaseAllReport()
		b.mouse.write(mReport[:])
	}
}

func (b *Backend) SetConnected(connected bool) {
	b.mu.Lock()
	b.connected = connected
	b.mu.Unlock()
}

func (b *Backend) Reset() {
	b.mu.Lock()
	b.kbState = hid.NewKeyboardState()
	b.mu.Unlock()
}

func (b *Backend) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	kbReport := b.kbState.Clear()
	b.keyboard.write(kbReport[:])
	mReport := b.mouseSt.ReleaseAllReport()
	b.mouse.write(mReport[:])
}

func (b *Backend) State() hid.State {
	b.mu.Lock()
	defer b.mu.Unlock()

	var s hid.State
	s.Connected = b.connected
	s.Keyboard.Online = b.keyboard.online()
	s.Mouse.Online = b.mouse.online()
	s.Online = s.Keyboard.Online && s.Mouse.Online

	if led, err := b.keyboard.readLED(); err == nil {
		s.Keyboard.LEDs = hid.DecodeLEDReport(led)
	}
	return s
}

// worker owns one /dev/hidgN endpoint.
type worker struct {
	device  string
	timeout time.Duration
	retries int

	mu         sync.Mutex
	isOnline   bool
	lastReport []byte
}

func newWorker(device string, timeout time.Duration, retries int) *worker {
	return &worker{device: device, timeout: timeout, retries: retries}
}

// write serializes one report, tolerating a transient unplug: a
// failed write (EAGAIN/ESHUTDOWN or deadline) marks the worker offline
// without logging spam, and the same report is written again at once,
// up to retries more times.
func (w *worker) write(report []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.device); os.IsNotExist(err) {
		w.isOnline = false
		return
	}

	w.lastReport = append([]byte(nil), report...)
	if w.writeOnce(w.lastReport) {
		w.isOnline = true
		return
	}

	w.isOnline = false
	for i := 0; i < w.retries; i++ {
		if w.writeOnce(w.lastReport) {
			w.isOnline = true
			return
		}
	}
}

func (w *worker) writeOnce(report []byte) bool {
	if report == nil {
		return false
	}

	f, err := os.OpenFile(w.device, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := f.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
		return false
	}

	_, err = f.Write(report)
	if err == nil {
		return true
	}

	if isTransientUnplug(err) {
		return false
	}
	return false
}

func isTransientUnplug(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.ESHUTDOWN) || os.IsTimeout(err)
}

func (w *worker) online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isOnline
}

func (w *worker) readLED() (byte, error) {
	w.mu.Lock()
	device := w.device
	w.mu.Unlock()

	f, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := f.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
		return 0, err
	}

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

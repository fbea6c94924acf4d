package mcu

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kvmd-go/kvmd/internal/hid"
)

// Config tunes the per-request retry discipline.
type Config struct {
	ReadRetries     int
	CommonRetries   int
	ErrorsThreshold int
	PoweredCheck    func() bool // GPIO "powered" sense line; nil means always powered
}

// Backend implements hid.Backend over a framed MCU link.
type Backend struct {
	transport Transport
	reset     *ResetLine
	cfg       Config
	logger    *log.Logger

	mu           sync.Mutex
	online       bool
	errorCount   int
	lastResponse []byte
	ledState     hid.LEDState
	connected    bool
}

// New builds a Backend over transport, with reset used to recover a
// wedged MCU.
func New(transport Transport, reset *ResetLine, cfg Config, logger *log.Logger) *Backend {
	if cfg.ReadRetries <= 0 {
		cfg.ReadRetries = 3
	}
	if cfg.CommonRetries <= 0 {
		cfg.CommonRetries = 5
	}
	if cfg.ErrorsThreshold <= 0 {
		cfg.ErrorsThreshold = 10
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Backend{transport: transport, reset: reset, cfg: cfg, logger: logger}
}

func (b *Backend) SendEvent(e hid.Event) {
	switch ev := e.(type) {
	case hid.KeyEvent:
		var arg [4]byte
		arg[0] = byte(ev.USBUsage)
		if ev.Pressed {
			arg[1] = 1
		}
		if ev.IsModifier {
			arg[2] = 1
		}
		b.request(OpKey, arg)
	case hid.MouseButtonEvent:
		var arg [4]byte
		arg[0] = byte(ev.Button)
		if ev.Pressed {
			arg[1] = 1
		}
		b.request(OpMouseButton, arg)
	case hid.MouseMoveEvent:
		var arg [4]byte
		arg[0], arg[1] = byte(ev.X), byte(ev.X>>8)
		arg[2], arg[3] = byte(ev.Y), byte(ev.Y>>8)
		b.request(OpMouseMove, arg)
	case hid.MouseRelativeEvent:
		var arg [4]byte
		arg[0], arg[1] = byte(ev.DX), byte(ev.DY)
		b.request(OpMouseRelative, arg)
	case hid.MouseWheelEvent:
		var arg [4]byte
		arg[0], arg[1] = byte(ev.DY), byte(ev.DX)
		b.request(OpMouseWheel, arg)
	case hid.ClearEvent:
		b.request(OpClear, [4]byte{})
	}
}

func (b *Backend) SetConnected(connected bool) {
	var arg [4]byte
	if connected {
		arg[0] = 1
	}
	if resp, ok := b.request(OpSetConnected, arg); ok {
		b.mu.Lock()
		b.connected = connected
		_ = resp
		b.mu.Unlock()
	}
}

func (b *Backend) Reset() {
	b.request(OpClear, [4]byte{})
}

func (b *Backend) Cleanup() {
	b.request(OpClear, [4]byte{})
}

func (b *Backend) State() hid.State {
	b.mu.Lock()
	defer b.mu.Unlock()

	var s hid.State
	s.Online = b.online
	s.Connected = b.connected
	s.Keyboard.Online = b.online
	s.Keyboard.LEDs = b.ledState
	s.Mouse.Online = b.online
	return s
}

// request runs one MCU transaction with the configured retry
// discipline: up to ReadRetries short reads, CommonRetries total
// errors, accumulated against ErrorsThreshold before errors start
// logging live. While the powered-sense GPIO says "not powered", the
// request returns success without transmitting and online is false.
func (b *Backend) request(op Opcode, arg [4]byte) (Response, bool) {
	if b.cfg.PoweredCheck != nil && !b.cfg.PoweredCheck() {
		b.mu.Lock()
		b.online = false
		b.mu.Unlock()
		return Response{}, true
	}

	frame := EncodeRequest(op, arg)

	var lastErr error
	for attempt := 0; attempt < b.cfg.CommonRetries; attempt++ {
		raw, err := b.readWithRetries(frame[:])
		if err != nil {
			lastErr = err
			b.countError()
			continue
		}

		resp := DecodeResponse(raw)
		if !resp.Valid {
			b.countError()
			continue
		}

		if resp.IsFatal() {
			b.markFatal(resp)
			return resp, false
		}
		if resp.NeedsRetransmit() {
			continue
		}

		b.mu.Lock()
		b.online = true
		b.lastResponse = raw
		if resp.IsPong && len(resp.Data) >= 1 {
			b.ledState = hid.DecodeLEDReport(resp.Data[0])
		}
		b.mu.Unlock()
		return resp, true
	}

	if lastErr != nil {
		b.logIfOverThreshold(lastErr)
	}
	b.mu.Lock()
	b.online = false
	b.mu.Unlock()
	return Response{}, false
}

func (b *Backend) readWithRetries(frame []byte) ([]byte, error) {
	var lastErr error
	for i := 0; i < b.cfg.ReadRetries; i++ {
		raw, err := b.transport.Exchange(frame)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (b *Backend) countError() {
	b.mu.Lock()
	b.errorCount++
	b.mu.Unlock()
}

func (b *Backend) logIfOverThreshold(err error) {
	b.mu.Lock()
	over := b.errorCount > b.cfg.ErrorsThreshold
	b.mu.Unlock()
	if over {
		b.logger.Warn("mcu request failing", "err", err)
	}
}

func (b *Backend) markFatal(resp Response) {
	b.mu.Lock()
	b.online = false
	b.mu.Unlock()

	if resp.Status == StatusRebooted || resp.Status == 0 {
		if b.reset != nil {
			if err := b.reset.Pulse(100 * time.Millisecond); err != nil && err != ErrSelfReset {
				b.logger.Warn("mcu reset pulse failed", "err", err)
			}
		}
	}
}

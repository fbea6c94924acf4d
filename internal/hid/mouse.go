package hid

import "github.com/kvmd-go/kvmd/internal/primitives"

// MouseButtonMask is the button bitmap byte shared by absolute and
// relative mouse reports.
type MouseButtonMask byte

const (
	maskLeft   = 1 << 0
	maskRight  = 1 << 1
	maskMiddle = 1 << 2
	maskUp     = 1 << 3
	maskDown   = 1 << 4
)

func bitForButton(b MouseButton) byte {
	switch b {
	case ButtonLeft:
		return maskLeft
	case ButtonRight:
		return maskRight
	case ButtonMiddle:
		return maskMiddle
	case ButtonUp:
		return maskUp
	case ButtonDown:
		return maskDown
	default:
		return 0
	}
}

// MouseState tracks button and absolute-position state and packs
// reports matching: "Mouse report (absolute, 8 bytes):
// [buttons, xLE16, yLE16, wheelY, wheelX?].... Relative form:
// [buttons, dxS8, dyS8, wheelY, wheelX?]."
type MouseState struct {
	buttons byte
	x, y    int16 // last absolute position, hardware space
	win98   bool
}

// NewMouseState returns a released mouse state. win98 enables the
// Win98 fix.
func NewMouseState(win98Fix bool) *MouseState {
	return &MouseState{win98: win98Fix}
}

// ApplyButton updates the held-button bitmap.
func (m *MouseState) ApplyButton(e MouseButtonEvent) {
	bit := bitForButton(e.Button)
	if e.Pressed {
		m.buttons |= bit
	} else {
		m.buttons &^= bit
	}
}

// RemapAbsolute maps a raw coordinate in [lo, hi] onto hardware space
// [-32768, 32767], monotonically.
func RemapAbsolute(raw, lo, hi int) int16 {
	if hi <= lo {
		return 0
	}
	span := float64(hi - lo)
	frac := float64(raw-lo) / span
	v := -32768 + frac*65535
	return primitives.ClampInt16(int(v))
}

// AbsoluteReport packs an 8-byte absolute report for position (x, y)
// already in hardware space [-32768, 32767], remapped to unsigned
// [0, 32767] and optionally doubled for the Win98 fix.
func (m *MouseState) AbsoluteReport(x, y int16, wheelY, wheelX int8) [8]byte {
	m.x, m.y = x, y

	ux := uint16(int32(x) + 32768)
	ux >>= 1 // [-32768,32767] -> [0,32767]
	if m.win98 {
		ux *= 2
	}
	uy := uint16(int32(y)+32768) >> 1

	xb := primitives.LEUint16(ux)
	yb := primitives.LEUint16(uy)

	var r [8]byte
	r[0] = m.buttons
	r[1], r[2] = xb[0], xb[1]
	r[3], r[4] = yb[0], yb[1]
	r[5] = byte(wheelY)
	r[6] = byte(wheelX)
	return r
}

// RelativeReport packs an 8-byte relative report.
func (m *MouseState) RelativeReport(dx, dy, wheelY, wheelX int8) [8]byte {
	var r [8]byte
	r[0] = m.buttons
	r[1] = byte(dx)
	r[2] = byte(dy)
	r[3] = byte(wheelY)
	r[4] = byte(wheelX)
	return r
}

// ReleaseAllReport packs the "release all" cleanup report: all-zero
// buttons with the last absolute position and zero wheel.
func (m *MouseState) ReleaseAllReport() [8]byte {
	m.buttons = 0
	return m.AbsoluteReport(m.x, m.y, 0, 0)
}

package mcu

import (
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// ResetLine pulses a GPIO line to recover a wedged MCU.
type ResetLine struct {
	line     *gpiocdev.Line
	selfReset bool
}

// OpenResetLine requests chip/offset as an output line. selfReset
// marks a backend that resets itself without external GPIO help.
func OpenResetLine(chip string, offset int, selfReset bool) (*ResetLine, error) {
	if selfReset {
		return &ResetLine{selfReset: true}, nil
	}

	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return &ResetLine{line: line}, nil
}

// ErrSelfReset is returned by Pulse when the backend handles its own
// reset and no GPIO action is needed.
var ErrSelfReset = errSelfReset{}

type errSelfReset struct{}

func (errSelfReset) Error() string { return "mcu: backend is self-resetting" }

// Pulse drives the line high for dur then low again.
func (r *ResetLine) Pulse(dur time.Duration) error {
	if r.selfReset {
		return ErrSelfReset
	}
	if err := r.line.SetValue(1); err != nil {
		return err
	}
	time.Sleep(dur)
	return r.line.SetValue(0)
}

// Close releases the GPIO line.
func (r *ResetLine) Close() error {
	if r.selfReset || r.line == nil {
		return nil
	}
	return r.line.Close()
}

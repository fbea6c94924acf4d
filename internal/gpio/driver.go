// Package gpio implements the user GPIO plane: named
// drivers exposing input/output pins by name, a chardev driver talking
// to a real gpiochip, and HTTP outlet adapters for networked power
// strips, all fed through one coalescing notifier.
package gpio

import (
	"context"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

// PinMode says whether a registered pin is read or written.
type PinMode int

const (
	PinInput PinMode = iota
	PinOutput
)

// Driver is implemented by each GPIO backend (chardev, HTTP outlet).
// Pin identifiers are driver-specific strings (a chardev line offset,
// an outlet channel number) so the facade never needs to know their
// shape.
type Driver interface {
	RegisterInput(pin string, inverted bool, debounceSeconds float64) error
	RegisterOutput(pin string, initial *bool) error
	Prepare() error
	Run(ctx context.Context)
	Cleanup()
	Read(pin string) (bool, error)
	Write(pin string, state bool) error
}

// ErrOffline reports a driver whose backend is unreachable (e.g. an
// HTTP outlet that has never completed a successful poll).
func ErrOffline(driver, pin string) error {
	return kvmerr.Unavailable("gpio: %s pin %s is offline", driver, pin)
}

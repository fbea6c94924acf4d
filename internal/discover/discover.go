// Package discover resolves "auto" device paths to concrete /dev nodes via
// udev: the MCU HID bridge and the switch chain both appear as USB-CDC
// serial ports whose vendor/model properties identify them regardless of
// enumeration order.
package discover

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

// SerialByVendor returns the device node of the first tty whose USB
// vendor/model ids match; model may be empty to match on vendor only.
func SerialByVendor(vendorID, modelID string) (string, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()
	if err := e.AddMatchSubsystem("tty"); err != nil {
		return "", fmt.Errorf("discover: %w", err)
	}

	devices, err := e.Devices()
	if err != nil {
		return "", fmt.Errorf("discover: enumerate tty: %w", err)
	}
	for _, d := range devices {
		if d.Devnode() == "" {
			continue
		}
		if d.PropertyValue("ID_VENDOR_ID") != vendorID {
			continue
		}
		if modelID != "" && d.PropertyValue("ID_MODEL_ID") != modelID {
			continue
		}
		return d.Devnode(), nil
	}
	return "", fmt.Errorf("discover: no tty with vendor %s model %s", vendorID, modelID)
}

// HIDGadgets lists the /dev/hidgN function nodes currently exposed by
// the kernel gadget, ordered by udev enumeration.
func HIDGadgets() ([]string, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()
	if err := e.AddMatchSubsystem("hidg"); err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("discover: enumerate hidg: %w", err)
	}
	var nodes []string
	for _, d := range devices {
		if node := d.Devnode(); node != "" {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

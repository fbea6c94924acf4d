package msd

import (
	"os"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

// Drive is the virtual drive state.
// cdrom and rw are mutually exclusive.
type Drive struct {
	Image     *Image
	Connected bool
	CDROM     bool
	RW        bool
}

// LUNPaths locates the USB-gadget LUN sysfs attributes this drive
// controls.
type LUNPaths struct {
	File  string //.../lun.0/file
	CDROM string //.../lun.0/cdrom
	RO    string //.../lun.0/ro
	UDC   string //.../UDC, the gadget's bind attribute
	UDCName string // the controller name written to UDC to rebind
}

// SetCDROM sets the cdrom flag, clearing rw.
func (d *Drive) SetCDROM(on bool) {
	d.CDROM = on
	if on {
		d.RW = false
	}
}

// SetRW sets the rw flag, clearing cdrom.
func (d *Drive) SetRW(on bool) {
	d.RW = on
	if on {
		d.CDROM = false
	}
}

// SetParams is refused while the drive is connected.
func (d *Drive) SetParams(image *Image, cdrom bool) error {
	if d.Connected {
		return kvmerr.Operation("msd: cannot set_params while connected")
	}
	d.Image = image
	if cdrom {
		d.SetCDROM(true)
	} else {
		d.SetRW(true)
	}
	return nil
}

// SetConnected attaches or detaches the image from the LUN.
func (d *Drive) SetConnected(connected bool, lun LUNPaths, remount func(rw bool) error) error {
	if connected {
		if d.Image == nil {
			return kvmerr.Operation("msd: no image selected")
		}
		if _, err := os.Stat(d.Image.Path); err != nil {
			return kvmerr.Operation("msd: selected image does not exist: %v", err)
		}

		if d.RW {
			if err := remount(true); err != nil {
				return kvmerr.Internal(err)
			}
		}

		if err := unbindUDC(lun.UDC); err != nil {
			return kvmerr.Internal(err)
		}

		if err := writeLUNAttr(lun.File, ""); err != nil {
			return kvmerr.Internal(err)
		}
		if err := writeLUNAttr(lun.File, d.Image.Path); err != nil {
			return kvmerr.Internal(err)
		}
		if err := writeLUNAttr(lun.CDROM, boolAttr(d.CDROM)); err != nil {
			return kvmerr.Internal(err)
		}
		if err := writeLUNAttr(lun.RO, boolAttr(!d.RW)); err != nil {
			return kvmerr.Internal(err)
		}

		if err := rebindUDC(lun.UDC, lun.UDCName); err != nil {
			return kvmerr.Internal(err)
		}

		d.Connected = true
		return nil
	}

	if err := unbindUDC(lun.UDC); err != nil {
		return kvmerr.Internal(err)
	}
	if err := writeLUNAttr(lun.File, ""); err != nil {
		return kvmerr.Internal(err)
	}
	if err := rebindUDC(lun.UDC, lun.UDCName); err != nil {
		return kvmerr.Internal(err)
	}
	if err := remount(false); err != nil {
		return kvmerr.Internal(err)
	}

	d.Connected = false
	return nil
}

// unbindUDC writes an empty string to the gadget's UDC attribute,
// detaching it from the controller. A no-op if UDC is unset, which
// keeps it safe to call from tests that don't model a real gadget.
func unbindUDC(path string) error {
	return writeLUNAttr(path, "")
}

// rebindUDC writes the controller name back to UDC, reattaching the
// gadget.
func rebindUDC(path, name string) error {
	if path == "" {
		return nil
	}
	return writeLUNAttr(path, name)
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func writeLUNAttr(path, value string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(value), 0o644)
}

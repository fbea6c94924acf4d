// Package bluetooth implements the Bluetooth HID backend: an SDP record
// for a combined keyboard+mouse profile registered over D-Bus against
// BlueZ, two L2CAP listening sockets (control PSM 17, interrupt PSM 19),
// and per-client report/LED framing.
package bluetooth

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService      = "org.bluez"
	bluezAdapterIface = "org.bluez.Adapter1"
)

// Adapter controls one local Bluetooth adapter via BlueZ's D-Bus API.
type Adapter struct {
	conn   *dbus.Conn
	object dbus.BusObject
	path   dbus.ObjectPath
}

// OpenAdapter connects to the system bus and binds to the adapter at
// objectPath (typically "/org/bluez/hci0").
func OpenAdapter(objectPath string) (*Adapter, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	path := dbus.ObjectPath(objectPath)
	return &Adapter{
		conn:   conn,
		object: conn.Object(bluezService, path),
		path:   path,
	}, nil
}

// SetAlias sets the adapter's advertised name.
func (a *Adapter) SetAlias(alias string) error {
	return a.setProperty("Alias", dbus.MakeVariant(alias))
}

// SetPairable toggles pairability/discoverability while there is
// spare client capacity.
func (a *Adapter) SetPairable(pairable, discoverable bool) error {
	if err := a.setProperty("Pairable", dbus.MakeVariant(pairable)); err != nil {
		return err
	}
	return a.setProperty("Discoverable", dbus.MakeVariant(discoverable))
}

func (a *Adapter) setProperty(name string, value dbus.Variant) error {
	call := a.object.Call("org.freedesktop.DBus.Properties.Set", 0,
		bluezAdapterIface, name, value)
	return call.Err
}

// RegisterHIDProfile registers an SDP record describing a combined
// keyboard+mouse HID profile via org.bluez.ProfileManager1.
func (a *Adapter) RegisterHIDProfile(profilePath dbus.ObjectPath, sdpRecordXML string) error {
	manager := a.conn.Object(bluezService, dbus.ObjectPath("/org/bluez"))

	opts := map[string]dbus.Variant{
		"ServiceRecord":         dbus.MakeVariant(sdpRecordXML),
		"RequireAuthentication": dbus.MakeVariant(true),
		"RequireAuthorization":  dbus.MakeVariant(false),
	}

	call := manager.Call("org.bluez.ProfileManager1.RegisterProfile", 0,
		profilePath, "00001124-0000-1000-8000-00805f9b34fb", opts)
	return call.Err
}

// Close releases the D-Bus connection.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

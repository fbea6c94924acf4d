package api

import (
	"net/http"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/kvmswitch"
	"github.com/kvmd-go/kvmd/internal/validator"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

// maxSwitchPorts bounds port numbers accepted from operators; the
// chain itself discovers how many units actually answer.
const maxSwitchPorts = 32

func (a *API) switchEndpoints() []wsrv.Endpoint {
	auth := func(m, p string, h http.HandlerFunc) wsrv.Endpoint {
		return wsrv.Endpoint{Method: m, Path: p, AuthRequired: true, AllowPeerCreds: true, Handler: h}
	}
	return []wsrv.Endpoint{
		auth(http.MethodGet, "/switch", a.handleSwitchState),
		auth(http.MethodPost, "/switch/set_active", a.handleSwitchSetActive),
		auth(http.MethodPost, "/switch/set_beacon", a.handleSwitchSetBeacon),
		auth(http.MethodPost, "/switch/set_port_params", a.handleSwitchSetPortParams),
		auth(http.MethodPost, "/switch/set_colors", a.handleSwitchSetColors),
		auth(http.MethodPost, "/switch/reset_colors", a.handleSwitchResetColors),
		auth(http.MethodPost, "/switch/edids/create", a.handleSwitchEdidCreate),
		auth(http.MethodPost, "/switch/edids/remove", a.handleSwitchEdidRemove),
		auth(http.MethodPost, "/switch/atx/click", a.handleSwitchAtxClick),
		auth(http.MethodPost, "/switch/reboot", a.handleSwitchReboot),
	}
}

func (a *API) handleSwitchState(w http.ResponseWriter, r *http.Request) {
	wsrv.WriteJSON(w, a.c.Switch.State())
}

func (a *API) handleSwitchSetActive(w http.ResponseWriter, r *http.Request) {
	port, err := queryInt(r, "port")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if port, err = validator.Port(port, maxSwitchPorts); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.Switch.SetActivePort(port)
	wsrv.WriteJSON(w, struct{}{})
}

// handleSwitchSetBeacon toggles a locator LED: ?port= addresses a
// host-facing port, ?uplink=/?downlink= address a unit's chain LEDs.
func (a *API) handleSwitchSetBeacon(w http.ResponseWriter, r *http.Request) {
	on, err := queryBool(r, "state", true)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("port") != "":
		port, err := queryInt(r, "port")
		if err == nil {
			port, err = validator.Port(port, maxSwitchPorts)
		}
		if err != nil {
			wsrv.WriteError(w, err)
			return
		}
		a.c.Switch.SetPortBeacon(port, on)
	case q.Get("uplink") != "":
		unit, err := queryInt(r, "uplink")
		if err != nil {
			wsrv.WriteError(w, err)
			return
		}
		a.c.Switch.SetUplinkBeacon(unit, on)
	case q.Get("downlink") != "":
		unit, err := queryInt(r, "downlink")
		if err != nil {
			wsrv.WriteError(w, err)
			return
		}
		a.c.Switch.SetDownlinkBeacon(unit, on)
	default:
		wsrv.WriteError(w, kvmerr.Validation("one of port/uplink/downlink is required"))
		return
	}
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleSwitchSetPortParams(w http.ResponseWriter, r *http.Request) {
	port, err := queryInt(r, "port")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if port, err = validator.Port(port, maxSwitchPorts); err != nil {
		wsrv.WriteError(w, err)
		return
	}

	q := r.URL.Query()
	ports := a.c.Switch.Ports()

	if _, ok := q["name"]; ok {
		ports.SetName(port, q.Get("name"))
	}
	if _, ok := q["edid_id"]; ok {
		id, err := validator.UUIDOrDefault(q.Get("edid_id"))
		if err != nil {
			wsrv.WriteError(w, err)
			return
		}
		if err := a.c.Switch.AssignPortEdid(port, id); err != nil {
			wsrv.WriteError(w, err)
			return
		}
	}

	setDelay := func(param string, set func(int, float64)) error {
		if _, ok := q[param]; !ok {
			return nil
		}
		secs, err := queryFloat(r, param, 0)
		if err != nil {
			return err
		}
		if secs, err = validator.Positive(param, secs); err != nil {
			return err
		}
		// Delays ride in a 16-bit millisecond field on the wire.
		if secs > 65.535 {
			return kvmerr.Validation("%s too long: %g s", param, secs)
		}
		set(port, secs)
		return nil
	}
	if err := setDelay("power_click_delay", ports.SetPowerClickDelay); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := setDelay("long_power_click_delay", ports.SetLongPowerClickDelay); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := setDelay("reset_click_delay", ports.SetResetClickDelay); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.Switch.NotifyPortsChanged()

	wsrv.WriteJSON(w, a.c.Switch.State())
}

func (a *API) handleSwitchSetColors(w http.ResponseWriter, r *http.Request) {
	role, err := validator.Enum("role", r.URL.Query().Get("role"),
		"inactive", "active", "flashing", "beacon", "bootloader")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	red, green, blue, err := validator.ColorHex(r.URL.Query().Get("color"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	brightness, err := queryInt(r, "brightness")
	if err != nil || brightness < 0 || brightness > 255 {
		wsrv.WriteError(w, kvmerr.Validation("brightness out of range [0, 255]"))
		return
	}
	blinkMS, err := queryInt(r, "blink_ms")
	if err != nil {
		blinkMS = 0
	}
	if blinkMS < 0 || blinkMS > 65535 {
		wsrv.WriteError(w, kvmerr.Validation("blink_ms out of range [0, 65535]"))
		return
	}

	c := kvmswitch.Color{R: red, G: green, B: blue, Brightness: byte(brightness), BlinkMS: uint16(blinkMS)}
	if err := a.c.Switch.SetColor(role, c); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, a.c.Switch.Colors())
}

func (a *API) handleSwitchResetColors(w http.ResponseWriter, r *http.Request) {
	a.c.Switch.ResetColors()
	wsrv.WriteJSON(w, a.c.Switch.Colors())
}

func (a *API) handleSwitchEdidCreate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		wsrv.WriteError(w, kvmerr.Validation("missing parameter name"))
		return
	}
	data, err := validator.EDIDHex(r.URL.Query().Get("data"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	id, err := a.c.Switch.CreateEdid(name, data)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, map[string]any{"id": id})
}

func (a *API) handleSwitchEdidRemove(w http.ResponseWriter, r *http.Request) {
	id, err := validator.UUIDOrDefault(r.URL.Query().Get("id"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := a.c.Switch.RemoveEdid(id); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleSwitchAtxClick(w http.ResponseWriter, r *http.Request) {
	port, err := queryInt(r, "port")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if port, err = validator.Port(port, maxSwitchPorts); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	button, err := validator.Enum("button", r.URL.Query().Get("button"), "power", "power_long", "reset")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := a.c.Switch.AtxClick(port, button); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleSwitchReboot(w http.ResponseWriter, r *http.Request) {
	unit, err := queryInt(r, "unit")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	bootloader, err := queryBool(r, "bootloader", false)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.Switch.Reboot(unit, bootloader)
	wsrv.WriteJSON(w, struct{}{})
}

package api

import (
	"encoding/binary"
	"io"
	"net/http"
	"time"

	"github.com/kvmd-go/kvmd/internal/hid"
	"github.com/kvmd-go/kvmd/internal/keymap"
	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

// WS binary opcodes for HID events.
const (
	wsOpKey           = 1
	wsOpMouseButton   = 2
	wsOpMouseMove     = 3
	wsOpMouseRelative = 4
	wsOpMouseWheel    = 5
)

func (a *API) hidEndpoints() []wsrv.Endpoint {
	auth := func(m, p string, h http.HandlerFunc) wsrv.Endpoint {
		return wsrv.Endpoint{Method: m, Path: p, AuthRequired: true, AllowPeerCreds: true, Handler: h}
	}
	return []wsrv.Endpoint{
		auth(http.MethodGet, "/hid", a.handleHIDState),
		auth(http.MethodPost, "/hid/set_params", a.handleHIDSetParams),
		auth(http.MethodPost, "/hid/set_connected", a.handleHIDSetConnected),
		auth(http.MethodPost, "/hid/reset", a.handleHIDReset),
		auth(http.MethodGet, "/hid/keymaps", a.handleHIDKeymaps),
		auth(http.MethodPost, "/hid/print", a.handleHIDPrint),
		auth(http.MethodPost, "/hid/events/send_key", a.handleHIDSendKey),
		auth(http.MethodPost, "/hid/events/send_mouse_button", a.handleHIDSendMouseButton),
		auth(http.MethodPost, "/hid/events/send_mouse_move", a.handleHIDSendMouseMove),
		auth(http.MethodPost, "/hid/events/send_mouse_relative", a.handleHIDSendMouseRelative),
		auth(http.MethodPost, "/hid/events/send_mouse_wheel", a.handleHIDSendMouseWheel),
	}
}

func (a *API) hidState() map[string]any {
	st := a.c.HID.GetState()
	enabled, active, interval := a.c.HID.JigglerParams()
	return map[string]any{
		"online":    st.Online,
		"connected": st.Connected,
		"keyboard":  st.Keyboard,
		"mouse":     st.Mouse,
		"jiggler": map[string]any{
			"enabled":  enabled,
			"active":   active,
			"interval": interval.Seconds(),
		},
	}
}

func (a *API) handleHIDState(w http.ResponseWriter, r *http.Request) {
	wsrv.WriteJSON(w, a.hidState())
}

func (a *API) handleHIDSetParams(w http.ResponseWriter, r *http.Request) {
	enabled, active, interval := a.c.HID.JigglerParams()

	if v := r.URL.Query().Get("jiggler"); v != "" {
		b, err := queryBool(r, "jiggler", active)
		if err != nil {
			wsrv.WriteError(w, err)
			return
		}
		active = b
	}
	secs, err := queryFloat(r, "jiggler_interval", interval.Seconds())
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	a.c.HID.SetParams(hid.Params{
		KeyboardOutput:  r.URL.Query().Get("keyboard_output"),
		MouseOutput:     r.URL.Query().Get("mouse_output"),
		JigglerEnabled:  enabled,
		JigglerActive:   active,
		JigglerInterval: time.Duration(secs * float64(time.Second)),
	})
	wsrv.WriteJSON(w, a.hidState())
}

func (a *API) handleHIDSetConnected(w http.ResponseWriter, r *http.Request) {
	connected, err := queryBool(r, "connected", true)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.HID.SetConnected(connected)
	wsrv.WriteJSON(w, a.hidState())
}

func (a *API) handleHIDReset(w http.ResponseWriter, r *http.Request) {
	a.c.HID.Reset()
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleHIDKeymaps(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Web      string `json:"web"`
		Evdev    int    `json:"evdev"`
		USB      int    `json:"usb"`
		Modifier bool   `json:"modifier"`
	}
	entries := make([]entry, 0, keymap.Len())
	for _, e := range keymap.All() {
		entries = append(entries, entry{Web: e.WebName, Evdev: e.EvdevCode, USB: e.USBUsage, Modifier: e.IsModifier})
	}
	wsrv.WriteJSON(w, map[string]any{"keymaps": entries})
}

// handleHIDPrint types the request body on the emulated keyboard,
// translating ASCII to key events with a US layout.
func (a *API) handleHIDPrint(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		limit = 1024
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)))
	if err != nil {
		wsrv.WriteError(w, kvmerr.Internal(err))
		return
	}

	events, err := textToKeyEvents(string(body))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.HID.SendKeyEvents(events)
	wsrv.WriteJSON(w, map[string]any{"typed": len(body)})
}

func (a *API) handleHIDSendKey(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("key")
	entry, ok := keymap.ByWebName(name)
	if !ok {
		wsrv.WriteError(w, kvmerr.Validation("unknown key %q", name))
		return
	}
	pressed, err := queryBool(r, "state", true)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.HID.SendKeyEvents([]hid.KeyEvent{{
		USBUsage:   entry.USBUsage,
		IsModifier: entry.IsModifier,
		Pressed:    pressed,
	}})
	wsrv.WriteJSON(w, struct{}{})
}

func mouseButtonByName(name string) (hid.MouseButton, error) {
	switch name {
	case "left":
		return hid.ButtonLeft, nil
	case "right":
		return hid.ButtonRight, nil
	case "middle":
		return hid.ButtonMiddle, nil
	case "up":
		return hid.ButtonUp, nil
	case "down":
		return hid.ButtonDown, nil
	}
	return 0, kvmerr.Validation("unknown mouse button %q", name)
}

func (a *API) handleHIDSendMouseButton(w http.ResponseWriter, r *http.Request) {
	button, err := mouseButtonByName(r.URL.Query().Get("button"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	pressed, err := queryBool(r, "state", true)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.HID.SendMouseButtonEvent(hid.MouseButtonEvent{Button: button, Pressed: pressed})
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleHIDSendMouseMove(w http.ResponseWriter, r *http.Request) {
	x, err := queryInt(r, "x")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	y, err := queryInt(r, "y")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.HID.SendMouseMoveEvent(x, y)
	wsrv.WriteJSON(w, struct{}{})
}

func clampDelta(field string, v int) (int8, error) {
	if v < -127 || v > 127 {
		return 0, kvmerr.Validation("%s out of range [-127, 127]: %d", field, v)
	}
	return int8(v), nil
}

func (a *API) handleHIDSendMouseRelative(w http.ResponseWriter, r *http.Request) {
	dxv, err := queryInt(r, "dx")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	dyv, err := queryInt(r, "dy")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	dx, err := clampDelta("dx", dxv)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	dy, err := clampDelta("dy", dyv)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.HID.SendMouseRelativeEvent(hid.MouseRelativeEvent{DX: dx, DY: dy})
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleHIDSendMouseWheel(w http.ResponseWriter, r *http.Request) {
	dxv, err := queryInt(r, "dx")
	if err != nil {
		dxv = 0
	}
	dyv, err := queryInt(r, "dy")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	dx, err := clampDelta("dx", dxv)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	dy, err := clampDelta("dy", dyv)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.HID.SendMouseWheelEvent(hid.MouseWheelEvent{DY: dy, DX: dx})
	wsrv.WriteJSON(w, struct{}{})
}

// HandleWSBinary dispatches a binary WS frame by opcode. Layouts are
// fixed big-endian:
//	1 key:u16 USB usage | u8 pressed
//	2 mouse button:u8 button | u8 pressed
//	3 mouse move:i16 x | i16 y (in the configured input range)
//	4 mouse relative: i8 dx | i8 dy
//	5 mouse wheel:i8 dx | i8 dy
func (a *API) HandleWSBinary(_ *wsrv.Session, opcode byte, payload []byte) {
	if a.c.HID == nil {
		return
	}

	switch opcode {
	case wsOpKey:
		if len(payload) < 3 {
			return
		}
		usage := int(binary.BigEndian.Uint16(payload[0:2]))
		entry, ok := keymap.ByUSBUsage(usage)
		if !ok {
			return
		}
		a.c.HID.SendKeyEvents([]hid.KeyEvent{{
			USBUsage:   entry.USBUsage,
			IsModifier: entry.IsModifier,
			Pressed:    payload[2] != 0,
		}})
	case wsOpMouseButton:
		if len(payload) < 2 || payload[0] > byte(hid.ButtonDown) {
			return
		}
		a.c.HID.SendMouseButtonEvent(hid.MouseButtonEvent{
			Button:  hid.MouseButton(payload[0]),
			Pressed: payload[1] != 0,
		})
	case wsOpMouseMove:
		if len(payload) < 4 {
			return
		}
		x := int(int16(binary.BigEndian.Uint16(payload[0:2])))
		y := int(int16(binary.BigEndian.Uint16(payload[2:4])))
		a.c.HID.SendMouseMoveEvent(x, y)
	case wsOpMouseRelative:
		if len(payload) < 2 {
			return
		}
		a.c.HID.SendMouseRelativeEvent(hid.MouseRelativeEvent{DX: int8(payload[0]), DY: int8(payload[1])})
	case wsOpMouseWheel:
		if len(payload) < 2 {
			return
		}
		a.c.HID.SendMouseWheelEvent(hid.MouseWheelEvent{DX: int8(payload[0]), DY: int8(payload[1])})
	}
}

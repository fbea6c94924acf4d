package api

import (
	"encoding/json"

	"github.com/kvmd-go/kvmd/internal/hid"
	"github.com/kvmd-go/kvmd/internal/keymap"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

// RegisterWS mounts the unified /ws endpoint: binary frames carry HID
// events by opcode, text frames carry the same events as JSON for
// clients that cannot speak binary.
func (a *API) RegisterWS(server *wsrv.Server) {
	server.RegisterWS("/ws", true, true, a.handleWSText, a.HandleWSBinary)
}

func (a *API) handleWSText(s *wsrv.Session, frame wsrv.TextFrame) {
	if a.c.HID == nil {
		return
	}

	switch frame.EventType {
	case "key":
		var ev struct {
			Key   string `json:"key"`
			State bool   `json:"state"`
		}
		if json.Unmarshal(frame.Event, &ev) != nil {
			return
		}
		entry, ok := keymap.ByWebName(ev.Key)
		if !ok {
			return
		}
		a.c.HID.SendKeyEvents([]hid.KeyEvent{{
			USBUsage:   entry.USBUsage,
			IsModifier: entry.IsModifier,
			Pressed:    ev.State,
		}})
	case "mouse_button":
		var ev struct {
			Button string `json:"button"`
			State  bool   `json:"state"`
		}
		if json.Unmarshal(frame.Event, &ev) != nil {
			return
		}
		button, err := mouseButtonByName(ev.Button)
		if err != nil {
			return
		}
		a.c.HID.SendMouseButtonEvent(hid.MouseButtonEvent{Button: button, Pressed: ev.State})
	case "mouse_move":
		var ev struct {
			To struct {
				X int `json:"x"`
				Y int `json:"y"`
			} `json:"to"`
		}
		if json.Unmarshal(frame.Event, &ev) != nil {
			return
		}
		a.c.HID.SendMouseMoveEvent(ev.To.X, ev.To.Y)
	case "mouse_relative":
		var ev struct {
			Delta struct {
				X int `json:"x"`
				Y int `json:"y"`
			} `json:"delta"`
		}
		if json.Unmarshal(frame.Event, &ev) != nil {
			return
		}
		dx, errX := clampDelta("dx", ev.Delta.X)
		dy, errY := clampDelta("dy", ev.Delta.Y)
		if errX != nil || errY != nil {
			return
		}
		a.c.HID.SendMouseRelativeEvent(hid.MouseRelativeEvent{DX: dx, DY: dy})
	case "mouse_wheel":
		var ev struct {
			Delta struct {
				X int `json:"x"`
				Y int `json:"y"`
			} `json:"delta"`
		}
		if json.Unmarshal(frame.Event, &ev) != nil {
			return
		}
		dx, errX := clampDelta("dx", ev.Delta.X)
		dy, errY := clampDelta("dy", ev.Delta.Y)
		if errX != nil || errY != nil {
			return
		}
		a.c.HID.SendMouseWheelEvent(hid.MouseWheelEvent{DX: dx, DY: dy})
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

func (a *API) gpioEndpoints() []wsrv.Endpoint {
	auth := func(m, p string, h http.HandlerFunc) wsrv.Endpoint {
		return wsrv.Endpoint{Method: m, Path: p, AuthRequired: true, AllowPeerCreds: true, Handler: h}
	}
	return []wsrv.Endpoint{
		auth(http.MethodGet, "/gpio", a.handleGPIOState),
		auth(http.MethodPost, "/gpio/switch", a.handleGPIOSwitch),
		auth(http.MethodPost, "/gpio/pulse", a.handleGPIOPulse),
	}
}

// handleGPIOState reports the model (channel names/modes) and each
// channel's current value.
func (a *API) handleGPIOState(w http.ResponseWriter, r *http.Request) {
	state := map[string]any{}
	for _, name := range a.c.GPIO.Channels() {
		ch, err := a.c.GPIO.Read(name)
		if err != nil {
			continue
		}
		state[name] = ch
	}
	wsrv.WriteJSON(w, map[string]any{"state": state})
}

func (a *API) handleGPIOSwitch(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		wsrv.WriteError(w, kvmerr.Validation("missing parameter channel"))
		return
	}
	state, err := queryBool(r, "state", true)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := a.c.GPIO.Switch(channel, state); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, struct{}{})
}

func (a *API) handleGPIOPulse(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		wsrv.WriteError(w, kvmerr.Validation("missing parameter channel"))
		return
	}
	secs, err := queryFloat(r, "delay", 0.1)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if secs <= 0 || secs > 60 {
		wsrv.WriteError(w, kvmerr.Validation("delay out of range (0, 60]"))
		return
	}
	if err := a.c.GPIO.Pulse(r.Context(), channel, time.Duration(secs*float64(time.Second))); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, struct{}{})
}

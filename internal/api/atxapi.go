package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kvmd-go/kvmd/internal/atx"
	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/validator"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

func (a *API) atxEndpoints() []wsrv.Endpoint {
	auth := func(m, p string, h http.HandlerFunc) wsrv.Endpoint {
		return wsrv.Endpoint{Method: m, Path: p, AuthRequired: true, AllowPeerCreds: true, Handler: h}
	}
	return []wsrv.Endpoint{
		auth(http.MethodGet, "/atx", a.handleATXState),
		auth(http.MethodPost, "/atx/power", a.handleATXPower),
		auth(http.MethodPost, "/atx/click", a.handleATXClick),
	}
}

func (a *API) handleATXState(w http.ResponseWriter, r *http.Request) {
	wsrv.WriteJSON(w, a.c.ATX.State())
}

// powerWaitTimeout bounds ?wait=1 polling so a dead host cannot hold
// the request forever.
const powerWaitTimeout = 60 * time.Second

func (a *API) handleATXPower(w http.ResponseWriter, r *http.Request) {
	action, err := validator.Enum("action", r.URL.Query().Get("action"),
		atx.ActionOn, atx.ActionOff, atx.ActionOffHard, atx.ActionResetHard)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wait, err := queryBool(r, "wait", false)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	ctx := r.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, powerWaitTimeout)
		defer cancel()
	}

	if err := a.c.ATX.Power(ctx, action, wait); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, a.c.ATX.State())
}

func (a *API) handleATXClick(w http.ResponseWriter, r *http.Request) {
	button, err := validator.Enum("button", r.URL.Query().Get("button"),
		atx.ButtonPower, atx.ButtonPowerLong, atx.ButtonReset)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := a.c.ATX.Click(r.Context(), button); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, struct{}{})
}

// redfishEndpoints is the minimal Redfish power adapter: enough of the ComputerSystem
// resource for BMC-style tooling to read power state and post reset
// actions.
func (a *API) redfishEndpoints() []wsrv.Endpoint {
	auth := func(m, p string, h http.HandlerFunc) wsrv.Endpoint {
		return wsrv.Endpoint{Method: m, Path: p, AuthRequired: true, AllowPeerCreds: true, Handler: h}
	}
	return []wsrv.Endpoint{
		auth(http.MethodGet, "/redfish/v1", a.handleRedfishRoot),
		auth(http.MethodGet, "/redfish/v1/Systems", a.handleRedfishSystems),
		auth(http.MethodGet, "/redfish/v1/Systems/0", a.handleRedfishSystem),
		auth(http.MethodPost, "/redfish/v1/Systems/0/Actions/ComputerSystem.Reset", a.handleRedfishReset),
	}
}

// writeRedfish emits a bare (un-enveloped) JSON resource; Redfish
// clients expect the resource itself, not the daemon's {ok, result}
// wrapper.
func writeRedfish(w http.ResponseWriter, obj map[string]any) {
	wsrv.WriteRawJSON(w, obj)
}

func (a *API) handleRedfishRoot(w http.ResponseWriter, r *http.Request) {
	writeRedfish(w, map[string]any{
		"@odata.id":      "/redfish/v1",
		"RedfishVersion": "1.6.0",
		"Systems":        map[string]any{"@odata.id": "/redfish/v1/Systems"},
	})
}

func (a *API) handleRedfishSystems(w http.ResponseWriter, r *http.Request) {
	writeRedfish(w, map[string]any{
		"@odata.id":          "/redfish/v1/Systems",
		"Members":            []map[string]any{{"@odata.id": "/redfish/v1/Systems/0"}},
		"Members@odata.count": 1,
	})
}

func (a *API) handleRedfishSystem(w http.ResponseWriter, r *http.Request) {
	power := "Off"
	if a.c.ATX.State().LEDs.Power {
		power = "On"
	}
	writeRedfish(w, map[string]any{
		"@odata.id":  "/redfish/v1/Systems/0",
		"Id":         "0",
		"PowerState": power,
		"Actions": map[string]any{
			"#ComputerSystem.Reset": map[string]any{
				"target": "/redfish/v1/Systems/0/Actions/ComputerSystem.Reset",
				"ResetType@Redfish.AllowableValues": []string{
					"On", "ForceOff", "GracefulShutdown", "ForceRestart",
				},
			},
		},
	})
}

func (a *API) handleRedfishReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ResetType string `json:"ResetType"`
	}
	if err := decodeJSONBody(r, &body); err != nil {
		wsrv.WriteError(w, err)
		return
	}

	var action string
	switch body.ResetType {
	case "On":
		action = atx.ActionOn
	case "ForceOff":
		action = atx.ActionOffHard
	case "GracefulShutdown":
		action = atx.ActionOff
	case "ForceRestart":
		action = atx.ActionResetHard
	default:
		wsrv.WriteError(w, kvmerr.Validation("unsupported ResetType %q", body.ResetType))
		return
	}

	if err := a.c.ATX.Power(r.Context(), action, false); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"
	"strings"

	"github.com/kvmd-go/kvmd/internal/wsrv"
)

func (a *API) infoEndpoints() []wsrv.Endpoint {
	return []wsrv.Endpoint{
		{Method: http.MethodGet, Path: "/info", AuthRequired: true, AllowPeerCreds: true, Handler: a.handleInfo},
	}
}

// handleInfo composes every component's info subtree; ?fields=a,b
// narrows the response to the named subtrees.
func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	full := map[string]any{}

	if a.c.Meta != nil {
		full["meta"] = a.c.Meta
	}
	if a.c.HID != nil {
		full["hid"] = a.c.HID.GetState()
	}
	if a.c.ATX != nil {
		full["atx"] = a.c.ATX.State()
	}
	if a.c.MSD != nil {
		full["msd"] = a.msdState()
	}
	if a.c.Switch != nil {
		full["switch"] = a.c.Switch.State()
	}
	if a.c.Streamer != nil {
		full["streamer"] = a.c.Streamer.State()
	}

	fields := r.URL.Query().Get("fields")
	if fields == "" {
		wsrv.WriteJSON(w, full)
		return
	}

	selected := map[string]any{}
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if sub, ok := full[f]; ok {
			selected[f] = sub
		}
	}
	wsrv.WriteJSON(w, selected)
}

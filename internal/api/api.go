// Package api maps the daemon's components onto the HTTP/WebSocket
// surface: one handler file per subsystem, all registered
// on the internal/wsrv framework, plus the unified WS state-event
// stream the orchestrator broadcasts into.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/kvmd-go/kvmd/internal/atx"
	"github.com/kvmd-go/kvmd/internal/authmgr"
	"github.com/kvmd-go/kvmd/internal/gpio"
	"github.com/kvmd-go/kvmd/internal/hid"
	"github.com/kvmd-go/kvmd/internal/klog"
	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/kvmswitch"
	"github.com/kvmd-go/kvmd/internal/msd"
	"github.com/kvmd-go/kvmd/internal/streamer"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

// Components is everything the API serves; nil members disable their
// endpoint group.
type Components struct {
	Auth     *authmgr.Manager
	LogBuf   *klog.Buffer
	HID      *hid.Facade
	ATX      *atx.ATX
	MSD      *msd.Engine
	Switch   *kvmswitch.Service
	GPIO     *gpio.Model
	Streamer *streamer.Streamer

	// Meta is served under /info as the "meta" subtree.
	Meta map[string]any
}

// API owns the handler set.
type API struct {
	c      Components
	logger *log.Logger
}

// New builds the API over the given components.
func New(c Components, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{c: c, logger: logger}
}

// Endpoints enumerates every HTTP route for wsrv registration.
func (a *API) Endpoints() []wsrv.Endpoint {
	var eps []wsrv.Endpoint

	eps = append(eps, a.authEndpoints()...)
	eps = append(eps, a.infoEndpoints()...)
	if a.c.LogBuf != nil {
		eps = append(eps, a.logEndpoints()...)
	}
	if a.c.HID != nil {
		eps = append(eps, a.hidEndpoints()...)
	}
	if a.c.ATX != nil {
		eps = append(eps, a.atxEndpoints()...)
		eps = append(eps, a.redfishEndpoints()...)
	}
	if a.c.MSD != nil {
		eps = append(eps, a.msdEndpoints()...)
	}
	if a.c.Switch != nil {
		eps = append(eps, a.switchEndpoints()...)
	}
	if a.c.GPIO != nil {
		eps = append(eps, a.gpioEndpoints()...)
	}
	if a.c.Streamer != nil {
		eps = append(eps, a.streamerEndpoints()...)
	}
	return eps
}

// decodeJSONBody decodes a JSON request body into out.
func decodeJSONBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return kvmerr.Validation("bad JSON body: %v", err)
	}
	return nil
}

// queryBool parses a boolean query parameter; absent means def.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	switch s {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, kvmerr.Validation("invalid boolean %q for %s", s, name)
}

// queryInt parses a required integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, kvmerr.Validation("missing parameter %s", name)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, kvmerr.Validation("invalid integer %q for %s", s, name)
	}
	return v, nil
}

// queryFloat parses an optional float query parameter.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, kvmerr.Validation("invalid number %q for %s", s, name)
	}
	return v, nil
}

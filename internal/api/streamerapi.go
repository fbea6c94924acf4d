package api

import (
	"net/http"

	"github.com/kvmd-go/kvmd/internal/wsrv"
)

func (a *API) streamerEndpoints() []wsrv.Endpoint {
	auth := func(m, p string, h http.HandlerFunc) wsrv.Endpoint {
		return wsrv.Endpoint{Method: m, Path: p, AuthRequired: true, AllowPeerCreds: true, Handler: h}
	}
	return []wsrv.Endpoint{
		auth(http.MethodGet, "/streamer", a.handleStreamerState),
		auth(http.MethodGet, "/streamer/snapshot", a.handleStreamerSnapshot),
		auth(http.MethodPost, "/streamer/start", a.handleStreamerStart),
		auth(http.MethodPost, "/streamer/stop", a.handleStreamerStop),
	}
}

func (a *API) handleStreamerState(w http.ResponseWriter, r *http.Request) {
	wsrv.WriteJSON(w, a.c.Streamer.State())
}

func (a *API) handleStreamerSnapshot(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := a.c.Streamer.Snapshot(r.Context())
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *API) handleStreamerStart(w http.ResponseWriter, r *http.Request) {
	if err := a.c.Streamer.EnsureStart(); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, a.c.Streamer.State())
}

func (a *API) handleStreamerStop(w http.ResponseWriter, r *http.Request) {
	if err := a.c.Streamer.EnsureStop(); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, a.c.Streamer.State())
}

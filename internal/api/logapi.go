package api

import (
	"net/http"
	"time"

	"github.com/kvmd-go/kvmd/internal/wsrv"
)

func (a *API) logEndpoints() []wsrv.Endpoint {
	return []wsrv.Endpoint{
		{Method: http.MethodGet, Path: "/log", AuthRequired: true, AllowPeerCreds: true, Handler: a.handleLog},
	}
}

// handleLog streams captured log records as NDJSON; ?seek=sec replays
// history, ?follow=1 keeps the stream open for live records until the
// client disconnects.
func (a *API) handleLog(w http.ResponseWriter, r *http.Request) {
	seek, err := queryFloat(r, "seek", 0)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	follow, err := queryBool(r, "follow", false)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	out := wsrv.NewNDJSONWriter(w)
	last := time.Time{}
	for _, rec := range a.c.LogBuf.Seek(time.Duration(seek * float64(time.Second))) {
		if out.WriteObject(rec) != nil {
			return
		}
		last = rec.TS
	}
	if !follow {
		return
	}

	// Poll rather than share the buffer's notifier: several followers
	// may be attached at once and a coalescing notifier only wakes one.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			for _, rec := range a.c.LogBuf.Since(last) {
				if out.WriteObject(rec) != nil {
					return
				}
				last = rec.TS
			}
		}
	}
}

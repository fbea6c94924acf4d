package api

import (
	"io"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/validator"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

func (a *API) msdEndpoints() []wsrv.Endpoint {
	auth := func(m, p string, h http.HandlerFunc) wsrv.Endpoint {
		return wsrv.Endpoint{Method: m, Path: p, AuthRequired: true, AllowPeerCreds: true, Handler: h}
	}
	return []wsrv.Endpoint{
		auth(http.MethodGet, "/msd", a.handleMSDState),
		auth(http.MethodPost, "/msd/set_params", a.handleMSDSetParams),
		auth(http.MethodPost, "/msd/set_connected", a.handleMSDSetConnected),
		auth(http.MethodGet, "/msd/read", a.handleMSDRead),
		auth(http.MethodPost, "/msd/write", a.handleMSDWrite),
		auth(http.MethodPost, "/msd/write_remote", a.handleMSDWriteRemote),
		auth(http.MethodPost, "/msd/remove", a.handleMSDRemove),
		auth(http.MethodPost, "/msd/reset", a.handleMSDReset),
	}
}

func (a *API) msdState() map[string]any {
	e := a.c.MSD

	images, err := e.ListImages()
	if err != nil {
		images = nil
	}
	imageList := make(map[string]any, len(images))
	for _, img := range images {
		imageList[img.Name] = map[string]any{
			"size":      img.Size,
			"complete":  img.Complete,
			"removable": img.Removable,
			"in_storage": img.InStorage,
			"mod_ts":    img.ModTime,
		}
	}

	parts, err := e.Storage.Partitions()
	if err != nil {
		parts = nil
	}
	partList := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		partList = append(partList, map[string]any{
			"path":     p.Path,
			"size":     p.Size,
			"free":     p.Free,
			"writable": p.Writable,
		})
	}

	var imageName *string
	if e.Drive.Image != nil {
		imageName = &e.Drive.Image.Name
	}
	return map[string]any{
		"enabled": true,
		"drive": map[string]any{
			"image":     imageName,
			"connected": e.Drive.Connected,
			"cdrom":     e.Drive.CDROM,
			"rw":        e.Drive.RW,
		},
		"storage": map[string]any{
			"images":     imageList,
			"partitions": partList,
		},
	}
}

func (a *API) handleMSDState(w http.ResponseWriter, r *http.Request) {
	wsrv.WriteJSON(w, a.msdState())
}

func (a *API) handleMSDSetParams(w http.ResponseWriter, r *http.Request) {
	name, err := validator.ImageName(r.URL.Query().Get("image"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	cdrom, err := queryBool(r, "cdrom", false)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := a.c.MSD.SetParams(name, cdrom); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, a.msdState())
}

func (a *API) handleMSDSetConnected(w http.ResponseWriter, r *http.Request) {
	connected, err := queryBool(r, "connected", true)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := a.c.MSD.SetConnected(connected); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, a.msdState())
}

// handleMSDRead streams an image back to the operator, optionally zstd-
// compressed.
func (a *API) handleMSDRead(w http.ResponseWriter, r *http.Request) {
	name, err := validator.ImageName(r.URL.Query().Get("image"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	compress, err := validator.Enum("compress", orDefault(r.URL.Query().Get("compress"), "none"), "none", "zstd")
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	switch compress {
	case "zstd":
		w.Header().Set("Content-Type", "application/zstd")
		w.Header().Set("Content-Disposition", "attachment; filename="+path.Base(name)+".zst")
		enc, err := zstd.NewWriter(w)
		if err != nil {
			wsrv.WriteError(w, kvmerr.Internal(err))
			return
		}
		if _, err := a.c.MSD.ReadImage(name, enc); err != nil {
			enc.Close()
			wsrv.WriteError(w, err)
			return
		}
		if err := enc.Close(); err != nil {
			a.logger.Warn("msd read: zstd close", "err", err)
		}
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", "attachment; filename="+path.Base(name))
		if _, err := a.c.MSD.ReadImage(name, w); err != nil {
			wsrv.WriteError(w, err)
			return
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (a *API) handleMSDWrite(w http.ResponseWriter, r *http.Request) {
	name, err := validator.ImageName(r.URL.Query().Get("image"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		p, err := validator.ImageName(prefix)
		if err != nil {
			wsrv.WriteError(w, err)
			return
		}
		name = p + "/" + name
	}

	written, err := a.c.MSD.WriteImage(name, r.Body)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, map[string]any{
		"image": map[string]any{
			"name":    name,
			"size":    written,
			"written": written,
		},
	})
}

// remoteDownloadTimeouts: 10 s to connect, effectively
// unbounded (7 days) to read.
var remoteClient = &http.Client{
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		ResponseHeaderTimeout: 10 * time.Second,
	},
	Timeout: 7 * 24 * time.Hour,
}

// handleMSDWriteRemote downloads url into storage, streaming NDJSON
// progress records.
func (a *API) handleMSDWriteRemote(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		wsrv.WriteError(w, kvmerr.Validation("missing parameter url"))
		return
	}
	name := r.URL.Query().Get("image")
	if name == "" {
		name = path.Base(url)
	}
	name, err := validator.ImageName(name)
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		wsrv.WriteError(w, kvmerr.Validation("bad url: %v", err))
		return
	}
	resp, err := remoteClient.Do(req)
	if err != nil {
		wsrv.WriteError(w, kvmerr.Operation("download failed: %v", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		wsrv.WriteError(w, kvmerr.Operation("download failed: status %d", resp.StatusCode))
		return
	}

	out := wsrv.NewNDJSONWriter(w)
	progress := &progressReader{
		inner: resp.Body,
		total: resp.ContentLength,
		report: func(written, total int64) {
			_ = out.WriteObject(map[string]any{
				"image":   name,
				"written": written,
				"total":   total,
			})
		},
	}

	written, err := a.c.MSD.WriteImage(name, progress)
	if err != nil {
		_ = out.WriteObject(map[string]any{"image": name, "written": written, "error": err.Error()})
		return
	}
	_ = out.WriteObject(map[string]any{"image": name, "written": written, "total": progress.total, "complete": true})
}

// progressReader reports download progress at most once per second.
type progressReader struct {
	inner   io.Reader
	total   int64
	written int64
	last    time.Time
	report  func(written, total int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.inner.Read(buf)
	p.written += int64(n)
	if now := time.Now(); now.Sub(p.last) >= time.Second {
		p.last = now
		p.report(p.written, p.total)
	}
	return n, err
}

func (a *API) handleMSDRemove(w http.ResponseWriter, r *http.Request) {
	name, err := validator.ImageName(r.URL.Query().Get("image"))
	if err != nil {
		wsrv.WriteError(w, err)
		return
	}
	if err := a.c.MSD.RemoveImage(name); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	wsrv.WriteJSON(w, a.msdState())
}

// handleMSDReset force-detaches the drive and clears the selected
// image.
func (a *API) handleMSDReset(w http.ResponseWriter, r *http.Request) {
	if err := a.c.MSD.SetConnected(false); err != nil {
		wsrv.WriteError(w, err)
		return
	}
	a.c.MSD.Drive.Image = nil
	a.c.MSD.Drive.CDROM = false
	a.c.MSD.Drive.RW = false
	wsrv.WriteJSON(w, a.msdState())
}

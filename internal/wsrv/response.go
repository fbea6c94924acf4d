package wsrv

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

// envelope is the response wrapper: "{"ok": bool,
// "result": obj}".
type envelope struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ErrMsg string `json:"error_msg,omitempty"`
}

// WriteJSON wraps result as {"ok": true, "result": result}.
func WriteJSON(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, Result: result})
}

// WriteRawJSON writes obj as a bare JSON document without the
// {ok, result} envelope; used by surfaces with their own schema
// (Redfish).
func WriteRawJSON(w http.ResponseWriter, obj any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(obj)
}

// WriteError maps err to its HTTP statusand writes the
// matching {"ok": false, "error": kind, "error_msg": msg} envelope.
func WriteError(w http.ResponseWriter, err error) {
	var kerr *kvmerr.Error
	if !kvmerr.As(err, &kerr) {
		kerr = kvmerr.Internal(err)
	}

	status := http.StatusInternalServerError
	switch kerr.Kind {
	case kvmerr.KindValidation, kvmerr.KindOperation:
		status = http.StatusBadRequest
	case kvmerr.KindBusy:
		status = http.StatusConflict
	case kvmerr.KindAuth:
		if kerr.IsForbidden() {
			status = http.StatusForbidden
		} else {
			status = http.StatusUnauthorized
		}
	case kvmerr.KindUnavailable:
		status = http.StatusServiceUnavailable
	case kvmerr.KindInternal:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: false, Error: string(kerr.Kind), ErrMsg: kerr.Msg})
}

// NDJSONWriter streams one wrapped JSON object per line terminated by
// "\r\n".
type NDJSONWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewNDJSONWriter prepares w for streaming and sends headers
// immediately so the client sees a live connection.
func NewNDJSONWriter(w http.ResponseWriter) *NDJSONWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &NDJSONWriter{w: w, flusher: flusher}
}

// WriteObject emits one wrapped, newline-terminated JSON record.
func (n *NDJSONWriter) WriteObject(result any) error {
	line, err := json.Marshal(envelope{OK: true, Result: result})
	if err != nil {
		return err
	}
	if _, err := n.w.Write(append(line, '\r', '\n')); err != nil {
		return err
	}
	if n.flusher != nil {
		n.flusher.Flush()
	}
	return nil
}

func errInternalPanic(rec any) error {
	return kvmerr.Internal(fmt.Errorf("panic: %v", rec))
}

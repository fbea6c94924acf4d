package wsrv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{kvmerr.Validation("bad"), http.StatusBadRequest, "Validator"},
		{kvmerr.Operation("bad state"), http.StatusBadRequest, "Operation"},
		{kvmerr.Busy("held"), http.StatusConflict, "IsBusy"},
		{kvmerr.Unauthorized("nope"), http.StatusUnauthorized, "Auth"},
		{kvmerr.Forbidden("nope"), http.StatusForbidden, "Auth"},
		{kvmerr.Unavailable("not ready"), http.StatusServiceUnavailable, "Unavailable"},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, c.err)
		assert.Equal(t, c.status, rec.Code)

		env := decodeEnvelope(t, rec)
		assert.False(t, env.OK)
		assert.Equal(t, c.kind, env.Error)
	}
}

func TestWriteJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, map[string]int{"x": 1})

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.OK)
}

func TestNDJSONWriterTerminatesWithCRLF(t *testing.T) {
	rec := httptest.NewRecorder()
	nd := NewNDJSONWriter(rec)

	require.NoError(t, nd.WriteObject(map[string]int{"n": 1}))
	require.NoError(t, nd.WriteObject(map[string]int{"n": 2}))

	body := rec.Body.String()
	assert.Contains(t, body, "\r\n")
}

package api

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvmd-go/kvmd/internal/authmgr"
	"github.com/kvmd-go/kvmd/internal/hid"
	"github.com/kvmd-go/kvmd/internal/keymap"
	"github.com/kvmd-go/kvmd/internal/msd"
)

type staticBackend struct {
	users map[string]string
}

func (s *staticBackend) Verify(user, passwd string) (bool, error) {
	want, ok := s.users[user]
	return ok && want == passwd, nil
}

// recordingHID captures injected events for assertions.
type recordingHID struct {
	mu     sync.Mutex
	events []hid.Event
}

func (r *recordingHID) State() hid.State     { return hid.State{Online: true} }
func (r *recordingHID) SetConnected(bool)    {}
func (r *recordingHID) Reset()               {}
func (r *recordingHID) Cleanup()             {}

func (r *recordingHID) SendEvent(e hid.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingHID) recorded() []hid.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hid.Event(nil), r.events...)
}

func newTestAPI(t *testing.T) (*API, *recordingHID) {
	t.Helper()

	backend := &recordingHID{}
	facade := hid.NewFacade(backend, -32768, 32767, true)
	auth := authmgr.New(authmgr.Config{
		Backend: &staticBackend{users: map[string]string{"admin": "secret"}},
	})

	return New(Components{
		Auth: auth,
		HID:  facade,
	}, nil), backend
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoginSetsTokenCookie(t *testing.T) {
	a, _ := newTestAPI(t)

	form := strings.NewReader("user=admin&passwd=secret")
	r := httptest.NewRequest(http.MethodPost, "/auth/login", form)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	a.handleAuthLogin(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Len(t, cookies[0].Value, 64)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	a, _ := newTestAPI(t)

	form := strings.NewReader("user=admin&passwd=wrong")
	r := httptest.NewRequest(http.MethodPost, "/auth/login", form)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	a.handleAuthLogin(rec, r)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["ok"])
}

func TestSendKeyByWebName(t *testing.T) {
	a, backend := newTestAPI(t)

	r := httptest.NewRequest(http.MethodPost, "/hid/events/send_key?key=KeyA&state=1", nil)
	rec := httptest.NewRecorder()
	a.handleHIDSendKey(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	events := backend.recorded()
	require.Len(t, events, 1)

	key, ok := events[0].(hid.KeyEvent)
	require.True(t, ok)
	entry, _ := keymap.ByWebName("KeyA")
	assert.Equal(t, entry.USBUsage, key.USBUsage)
	assert.True(t, key.Pressed)
}

func TestSendKeyUnknownName(t *testing.T) {
	a, _ := newTestAPI(t)

	r := httptest.NewRequest(http.MethodPost, "/hid/events/send_key?key=KeyQuux", nil)
	rec := httptest.NewRecorder()
	a.handleHIDSendKey(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWSBinaryKeyOpcode(t *testing.T) {
	a, backend := newTestAPI(t)

	entry, _ := keymap.ByWebName("KeyB")
	payload := make([]byte, 3)
	binary.BigEndian.PutUint16(payload, uint16(entry.USBUsage))
	payload[2] = 1

	a.HandleWSBinary(nil, wsOpKey, payload)

	events := backend.recorded()
	require.Len(t, events, 1)
	key := events[0].(hid.KeyEvent)
	assert.Equal(t, entry.USBUsage, key.USBUsage)
	assert.True(t, key.Pressed)
}

func TestWSBinaryMouseMoveOpcode(t *testing.T) {
	a, backend := newTestAPI(t)

	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], uint16(int16(1000)))
	binary.BigEndian.PutUint16(payload[2:4], uint16(int16(-1000)))

	a.HandleWSBinary(nil, wsOpMouseMove, payload)

	events := backend.recorded()
	require.Len(t, events, 1)
	move := events[0].(hid.MouseMoveEvent)
	assert.Greater(t, move.X, int16(0))
	assert.Less(t, move.Y, int16(0))
}

func TestWSBinaryShortPayloadDropped(t *testing.T) {
	a, backend := newTestAPI(t)
	a.HandleWSBinary(nil, wsOpKey, []byte{0x01})
	assert.Empty(t, backend.recorded())
}

func TestPrintTypesText(t *testing.T) {
	a, backend := newTestAPI(t)

	r := httptest.NewRequest(http.MethodPost, "/hid/print?limit=100", strings.NewReader("Hi"))
	rec := httptest.NewRecorder()
	a.handleHIDPrint(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	events := backend.recorded()
	// "H" = shift down, press, release, shift up; "i" = press, release.
	require.Len(t, events, 6)
	shift := events[0].(hid.KeyEvent)
	assert.True(t, shift.IsModifier)
	assert.True(t, shift.Pressed)
}

func TestPrintRejectsUnmappableRune(t *testing.T) {
	a, _ := newTestAPI(t)

	r := httptest.NewRequest(http.MethodPost, "/hid/print?limit=100", strings.NewReader("\x07"))
	rec := httptest.NewRecorder()
	a.handleHIDPrint(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func newMSDAPI(t *testing.T) (*API, string) {
	t.Helper()
	root := t.TempDir()
	engine := msd.NewEngine(&msd.Storage{Root: root}, msd.LUNPaths{})
	engine.ReadChunkSize = 4096

	return New(Components{MSD: engine}, nil), root
}

func TestMSDWriteUpload(t *testing.T) {
	a, root := newMSDAPI(t)

	body := strings.NewReader(strings.Repeat("x", 4096))
	r := httptest.NewRequest(http.MethodPost, "/msd/write?image=test.iso", body)
	rec := httptest.NewRecorder()
	a.handleMSDWrite(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	result := env["result"].(map[string]any)
	image := result["image"].(map[string]any)
	assert.Equal(t, "test.iso", image["name"])
	assert.Equal(t, float64(4096), image["written"])

	// Sidecar marker is gone after a successful upload.
	_, err := os.Stat(filepath.Join(root, ".__test.iso.incomplete"))
	assert.True(t, os.IsNotExist(err))
}

func TestMSDWriteWithPrefix(t *testing.T) {
	a, root := newMSDAPI(t)

	r := httptest.NewRequest(http.MethodPost, "/msd/write?image=disk.img&prefix=isos", strings.NewReader("data"))
	rec := httptest.NewRecorder()
	a.handleMSDWrite(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := os.Stat(filepath.Join(root, "isos", "disk.img"))
	assert.NoError(t, err)
}

func TestMSDReadStreamsImage(t *testing.T) {
	a, root := newMSDAPI(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "boot.img"), []byte("payload"), 0o644))

	r := httptest.NewRequest(http.MethodGet, "/msd/read?image=boot.img", nil)
	rec := httptest.NewRecorder()
	a.handleMSDRead(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payload", rec.Body.String())
}

func TestMSDReadRejectsUnknownCompression(t *testing.T) {
	a, _ := newMSDAPI(t)

	r := httptest.NewRequest(http.MethodGet, "/msd/read?image=boot.img&compress=lzma", nil)
	rec := httptest.NewRecorder()
	a.handleMSDRead(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMSDRemove(t *testing.T) {
	a, root := newMSDAPI(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.iso"), []byte("x"), 0o644))

	r := httptest.NewRequest(http.MethodPost, "/msd/remove?image=old.iso", nil)
	rec := httptest.NewRecorder()
	a.handleMSDRemove(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := os.Stat(filepath.Join(root, "old.iso"))
	assert.True(t, os.IsNotExist(err))
}

func TestInfoFieldsSelection(t *testing.T) {
	a, _ := newTestAPI(t)
	a.c.Meta = map[string]any{"daemon": "kvmd"}

	r := httptest.NewRequest(http.MethodGet, "/info?fields=meta", nil)
	rec := httptest.NewRecorder()
	a.handleInfo(rec, r)

	env := decodeEnvelope(t, rec)
	result := env["result"].(map[string]any)
	assert.Contains(t, result, "meta")
	assert.NotContains(t, result, "hid")
}

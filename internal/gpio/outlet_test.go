package gpio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPOutletDriverPollUpdatesState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			_ = json.NewEncoder(w).Encode(map[string]bool{"0": true})
		case "/channels/0":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	notified := make(chan struct{}, 8)
	d := NewHTTPOutletDriver(srv.URL, time.Second, 50*time.Millisecond, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	})
	require.NoError(t, d.RegisterOutput("0", nil))

	d.poll()
	state, err := d.Read("0")
	require.NoError(t, err)
	require.True(t, state)

	select {
	case <-notified:
	default:
		t.Fatal("expected a notification after the first successful poll")
	}
}

func TestHTTPOutletDriverReadBeforeAnyPollIsOffline(t *testing.T) {
	d := NewHTTPOutletDriver("http://127.0.0.1:0", time.Second, time.Second, nil)
	require.NoError(t, d.RegisterOutput("1", nil))

	_, err := d.Read("1")
	require.Error(t, err)
}

func TestHTTPOutletDriverWriteFailureReportsOffline(t *testing.T) {
	d := NewHTTPOutletDriver("http://127.0.0.1:0", 10*time.Millisecond, time.Second, nil)
	require.NoError(t, d.RegisterOutput("2", nil))

	err := d.Write("2", true)
	require.Error(t, err)
}

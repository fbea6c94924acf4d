package gpio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// HTTPOutletDriver adapts a networked power strip/outlet exposing a bulk
// JSON status GET and a per-channel state POST.
type HTTPOutletDriver struct {
	BaseURL      string
	Client       *http.Client
	Timeout      time.Duration
	PollInterval time.Duration
	notify       func()

	mu      sync.Mutex
	tracked map[string]struct{}
	initial map[string]*bool
	state   map[string]*bool // nil until the first successful poll

	wake chan struct{}
}

// NewHTTPOutletDriver builds a driver polling baseURL's status
// endpoint every pollInterval; notify fires whenever any channel's
// reported state changes.
func NewHTTPOutletDriver(baseURL string, timeout, pollInterval time.Duration, notify func()) *HTTPOutletDriver {
	return &HTTPOutletDriver{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Timeout:      timeout,
		PollInterval: pollInterval,
		notify:       notify,
		tracked:      map[string]struct{}{},
		initial:      map[string]*bool{},
		state:        map[string]*bool{},
		wake:         make(chan struct{}, 1),
	}
}

func (d *HTTPOutletDriver) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// RegisterInput tracks pin for read-back of its reported state;
// outlets have no real input lines, so debounce/inversion are unused.
func (d *HTTPOutletDriver) RegisterInput(pin string, _ bool, _ float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracked[pin] = struct{}{}
	d.state[pin] = nil
	return nil
}

// RegisterOutput tracks pin as a channel that can be switched.
func (d *HTTPOutletDriver) RegisterOutput(pin string, initial *bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracked[pin] = struct{}{}
	d.initial[pin] = initial
	d.state[pin] = nil
	return nil
}

// Prepare applies any configured initial values, best-effort: a
// failure here does not abort startup since the outlet may simply not
// be reachable yet (mirrors the upstream plugin's
// return_exceptions=True gather).
func (d *HTTPOutletDriver) Prepare() error {
	for pin, initial := range d.initial {
		if initial == nil {
			continue
		}
		_ = d.Write(pin, *initial)
	}
	return nil
}

// Run polls BaseURL's status endpoint on PollInterval, or immediately
// after any Write, notifying on any observed change.
func (d *HTTPOutletDriver) Run(ctx context.Context) {
	interval := d.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.poll()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

func (d *HTTPOutletDriver) poll() {
	statusURL := d.BaseURL + "/status"
	resp, err := d.client().Get(statusURL)
	if err != nil {
		d.markAllOffline()
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.markAllOffline()
		return
	}

	var report map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		d.markAllOffline()
		return
	}

	d.mu.Lock()
	changed := false
	for pin := range d.tracked {
		v, ok := report[pin]
		prev := d.state[pin]
		if !ok {
			if prev != nil {
				changed = true
				d.state[pin] = nil
			}
			continue
		}
		if prev == nil || *prev != v {
			changed = true
		}
		vv := v
		d.state[pin] = &vv
	}
	d.mu.Unlock()

	if changed && d.notify != nil {
		d.notify()
	}
}

func (d *HTTPOutletDriver) markAllOffline() {
	d.mu.Lock()
	changed := false
	for pin, v := range d.state {
		if v != nil {
			d.state[pin] = nil
			changed = true
		}
	}
	d.mu.Unlock()
	if changed && d.notify != nil {
		d.notify()
	}
}

// Cleanup releases idle HTTP connections.
func (d *HTTPOutletDriver) Cleanup() {
	d.client().CloseIdleConnections()
}

// Read returns the last polled state, or ErrOffline if no successful
// poll has ever reported this pin.
func (d *HTTPOutletDriver) Read(pin string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[pin]
	if !ok || v == nil {
		return false, ErrOffline("outlet", pin)
	}
	return *v, nil
}

// Write posts a channel's desired state and immediately wakes the
// polling loop so the change is reflected without waiting a full
// interval.
func (d *HTTPOutletDriver) Write(pin string, value bool) error {
	form := url.Values{"state": {fmt.Sprintf("%v", value)}}
	resp, err := d.client().PostForm(d.BaseURL+"/channels/"+pin, form)
	if err != nil {
		return ErrOffline("outlet", pin)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrOffline("outlet", pin)
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

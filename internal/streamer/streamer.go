// Package streamer is the thin client for the external video
// streamer subprocess. The streamer itself (mjpg/h264 production) is
// out of scope for this daemon; the core only starts/stops the
// process and reads snapshots from its local HTTP API over a unix
// socket.
package streamer

import (
	"context"
	"io"
	"net"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
	"github.com/kvmd-go/kvmd/internal/primitives"
)

// Config locates the streamer binary and its control socket.
type Config struct {
	Command    []string // argv to spawn; empty disables process management
	UnixSocket string   // streamer's own HTTP API socket
}

// State is the streamer's reported status.
type State struct {
	Managed bool `json:"managed"`
	Running bool `json:"running"`
}

// Streamer owns the subprocess handle and a snapshot HTTP client.
type Streamer struct {
	cfg    Config
	logger *log.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	notifier *primitives.Notifier

	client *http.Client
}

// New builds a Streamer; no process is spawned until EnsureStart.
func New(cfg Config, logger *log.Logger) *Streamer {
	if logger == nil {
		logger = log.Default()
	}
	s := &Streamer{
		cfg:      cfg,
		logger:   logger,
		notifier: primitives.NewNotifier(),
	}
	s.client = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", cfg.UnixSocket)
			},
		},
	}
	return s
}

// Notifier fires on start/stop transitions.
func (s *Streamer) Notifier() *primitives.Notifier { return s.notifier }

// State snapshots the process status.
func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Managed: len(s.cfg.Command) > 0,
		Running: s.cmd != nil,
	}
}

// EnsureStart spawns the streamer if it is managed and not running.
func (s *Streamer) EnsureStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cfg.Command) == 0 {
		return kvmerr.Operation("streamer: not managed by this daemon")
	}
	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)
	if err := cmd.Start(); err != nil {
		return kvmerr.Internal(err)
	}
	s.cmd = cmd
	s.logger.Info("streamer started", "pid", cmd.Process.Pid)
	s.notifier.Notify(0)

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
		}
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("streamer exited", "err", err)
		}
		s.notifier.Notify(0)
	}()
	return nil
}

// EnsureStop terminates the managed process if running.
func (s *Streamer) EnsureStop() error {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return kvmerr.Internal(err)
	}
	s.notifier.Notify(0)
	return nil
}

// Snapshot fetches the current frame from the streamer's HTTP API.
// Unavailable if the streamer is unreachable or has no frame yet.
func (s *Streamer) Snapshot(ctx context.Context) ([]byte, string, error) {
	req, err:= http.NewRequestWithContext(ctx, http.MethodGet, "http://streamer/snapshot", nil)
	if err != nil {
		return nil, "", kvmerr.Internal(err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", kvmerr.Unavailable("streamer: snapshot unavailable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", kvmerr.Unavailable("streamer: snapshot status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", kvmerr.Internal(err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// Cleanup stops a managed process on shutdown; errors are logged,
// never propagated.
func (s *Streamer) Cleanup() {
	if err := s.EnsureStop(); err != nil {
		s.logger.Warn("streamer cleanup", "err", err)
	}
}

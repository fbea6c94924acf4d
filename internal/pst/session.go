package pst

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Controller owns the PST mount point: the filesystem stays read-only
// except while at least one writer session is open, mirroring the MSD
// storage remount discipline. The remount itself is delegated to a
// configured helper command invoked with "rw" or "ro".
type Controller struct {
	store      *Store
	remountCmd string

	mu       sync.Mutex
	sessions int
}

// NewController builds a Controller for the PST mount point at root.
// Data files live under root/data, which only exists while the mount
// is writable.
func NewController(root, remountCmd string) *Controller {
	return &Controller{
		store:      NewStore(filepath.Join(root, "data")),
		remountCmd: remountCmd,
	}
}

func (c *Controller) remount(rw bool) error {
	if c.remountCmd == "" {
		return nil
	}
	mode := "ro"
	if rw {
		mode = "rw"
	}
	parts := strings.Fields(c.remountCmd)
	cmd := exec.Command(parts[0], append(parts[1:], mode)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pst: remount %s: %w: %s", mode, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Session is one open writer hold on the PST mount. The mount stays
// read-write until the last session closes.
type Session struct {
	c      *Controller
	closed bool
	mu     sync.Mutex
}

// OpenSession remounts RW if this is the first open session.
func (c *Controller) OpenSession() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessions == 0 {
		if err := c.remount(true); err != nil {
			return nil, err
		}
	}
	c.sessions++
	return &Session{c: c}, nil
}

// Set writes value under key; valid only while the session is open.
func (s *Session) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("pst: session closed")
	}
	return s.c.store.set(key, value)
}

// Close releases the hold, remounting RO when it was the last one.
// Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.sessions--
	if s.c.sessions == 0 {
		return s.c.remount(false)
	}
	return nil
}

// Client is the convenience write-through handle handed to other
// components; each Set opens a short-lived session around one write.
// It satisfies kvmswitch.PersistStore.
type Client struct {
	c *Controller
}

// Client returns a write-through handle on this controller.
func (c *Controller) Client() *Client { return &Client{c: c} }

// Set stores value under key inside a one-shot writer session.
func (cl *Client) Set(key string, value any) error {
	sess, err := cl.c.OpenSession()
	if err != nil {
		return err
	}
	defer sess.Close()
	return sess.Set(key, value)
}

// Get reads key without touching the mount state; reads are always
// allowed on the read-only mount.
func (cl *Client) Get(key string, out any) (bool, error) {
	return cl.c.store.Get(key, out)
}

// Keys lists stored keys.
func (cl *Client) Keys() ([]string, error) {
	return cl.c.store.Keys()
}

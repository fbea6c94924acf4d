// Package wsrv is the HTTP/WS server framework: a single UNIX stream
// socket listener (no TCP listener in the core), a normalizing router, an
// auth pipeline in front of every endpoint, and a WebSocket session hub
// with heartbeats and broadcast.
package wsrv

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/kvmd-go/kvmd/internal/authmgr"
)

// Config configures the unix socket listener.
type Config struct {
	SocketPath   string
	SocketMode   os.FileMode
	HeartbeatDur time.Duration
}

// Server is the daemon's sole network-facing component: one unix
// socket, one router, one WS hub.
type Server struct {
	cfg    Config
	auth   *authmgr.Manager
	router *mux.Router
	hub    *Hub
	logger *log.Logger

	httpServer *http.Server
}

// New builds a Server bound to a unix socket at cfg.SocketPath. auth
// may be nil only in tests that never register an auth-required
// endpoint.
func New(cfg Config, auth *authmgr.Manager, logger *log.Logger) *Server {
	if cfg.HeartbeatDur <= 0 {
		cfg.HeartbeatDur = 15 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:    cfg,
		auth:   auth,
		router: mux.NewRouter(),
		hub:    NewHub(cfg.HeartbeatDur, logger),
		logger: logger,
	}
	s.router.SkipClean(false) // merge adjacent slashes, strip trailing slash
	s.router.StrictSlash(true)
	return s
}

// Registerer is implemented by any component that exposes HTTP/WS
// endpoints; the framework "reflects" over registered instances in
// the sense that each instance enumerates its own endpoint metadata.
type Registerer interface {
	Endpoints() []Endpoint
}

// Register mounts every endpoint exposed by comp.
func (s *Server) Register(comp Registerer) {
	for _, ep := range comp.Endpoints() {
		ep := ep
		s.router.HandleFunc(ep.Path, s.wrap(ep)).Methods(ep.Method)
	}
}

// RegisterWS mounts a WebSocket endpoint at path, routed through the
// same auth pipeline unless authRequired is false.
func (s *Server) RegisterWS(path string, authRequired, allowPeerCreds bool, onText TextHandler, onBinary BinaryHandler) {
	s.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if authRequired {
			user, err := s.authenticate(r, allowPeerCreds)
			if err != nil {
				WriteError(w, err)
				return
			}
			r = r.WithContext(contextWithUser(r.Context(), user))
		}
		s.hub.Serve(w, r, onText, onBinary)
	})
}

// Listen binds the unix socket with cfg.SocketMode and starts serving
// until ctx is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	if err := os.Remove(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", s.cfg.SocketPath, err)
	}
	if s.cfg.SocketMode != 0 {
		if err := os.Chmod(s.cfg.SocketPath, s.cfg.SocketMode); err != nil {
			ln.Close()
			return fmt.Errorf("chmod socket: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Handler: s.router,
		ConnContext: func(ctx context.Context, conn net.Conn) context.Context {
			if uid, ok := authmgr.ResolvePeerUID(conn); ok {
				return authmgr.ContextWithPeerUID(ctx, uid)
			}
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", "err", err)
		}
	}()

	s.logger.Info("listening", "socket", s.cfg.SocketPath)
	err = s.httpServer.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Hub exposes the WS session hub so orchestrator components can push
// state broadcasts.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) authenticate(r *http.Request, allowPeerCreds bool) (string, error) {
	if s.auth == nil {
		return "", nil
	}
	return s.auth.Authenticate(r, allowPeerCreds)
}

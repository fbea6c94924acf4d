// Package authmgr implements the authentication pipeline: four
// checkers tried in order (header, cookie, basic, unix
// peer credentials), an internal htpasswd backend optionally composed
// with LDAP/RADIUS/HTTP, and login/logout token issuance.
package authmgr

import (
	"net/http"
	"time"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

// Manager runs the auth pipeline and owns the token store.
type Manager struct {
	backend  Backend
	tokens   *tokenStore
	uidUsers map[uint32]string
	tokenTTL time.Duration

	checkers []checker
}

// Config describes how a Manager should be constructed.
type Config struct {
	Backend  Backend
	UIDUsers map[uint32]string // unix peer credential UID -> username
	TokenTTL time.Duration
}

// New builds a Manager from cfg.
func New(cfg Config) *Manager {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	uidUsers := cfg.UIDUsers
	if uidUsers == nil {
		uidUsers = map[uint32]string{}
	}

	return &Manager{
		backend:  cfg.Backend,
		tokens:   newTokenStore(),
		uidUsers: uidUsers,
		tokenTTL: ttl,
		checkers: []checker{headerChecker, cookieChecker, basicChecker, peerCredsChecker},
	}
}

// Authenticate runs the four checkers in order against r. allowPeerCreds gates whether the unix peer credential
// checker may fire, set per endpoint.
func (m *Manager) Authenticate(r *http.Request, allowPeerCreds bool) (string, error) {
	for _, c := range m.checkers {
		user, v := c(m, r, allowPeerCreds)
		switch v {
		case verdictAuthenticated:
			return user, nil
		case verdictDenied:
			return "", kvmerr.Forbidden("credentials denied")
		case verdictIndeterminate:
			continue
		}
	}
	return "", kvmerr.Unauthorized("no credentials matched")
}

// Login consults the backend and, on success, issues or renews a
// token.
func (m *Manager) Login(user, passwd string) (token string, err error) {
	ok, err := m.backend.Verify(user, passwd)
	if err != nil {
		return "", kvmerr.Internal(err)
	}
	if !ok {
		return "", kvmerr.Forbidden("invalid credentials")
	}

	tok, err := m.tokens.issue(user, m.tokenTTL)
	if err != nil {
		return "", kvmerr.Internal(err)
	}
	return tok, nil
}

// Logout removes a token.
func (m *Manager) Logout(token string) {
	m.tokens.revoke(token)
}

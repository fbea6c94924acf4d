package authmgr

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// verdict is the outcome of one checker in the auth pipeline:
// authenticated, denied, or indeterminate.
type verdict int

const (
	verdictIndeterminate verdict = iota
	verdictAuthenticated
	verdictDenied
)

// checker is one stage of the pipeline: header, cookie, basic, or
// unix peer credentials.
type checker func(m *Manager, r *http.Request, allowPeerCreds bool) (user string, v verdict)

func headerChecker(m *Manager, r *http.Request, _ bool) (string, verdict) {
	user := r.Header.Get("X-KVMD-User")
	passwd := r.Header.Get("X-KVMD-Passwd")
	if user == "" {
		return "", verdictIndeterminate
	}

	ok, err := m.backend.Verify(user, passwd)
	if err != nil || !ok {
		return "", verdictDenied
	}
	return user, verdictAuthenticated
}

func cookieChecker(m *Manager, r *http.Request, _ bool) (string, verdict) {
	c, err := r.Cookie("auth_token")
	if err != nil || c.Value == "" {
		return "", verdictIndeterminate
	}

	user, ok := m.tokens.lookup(c.Value)
	if !ok {
		return "", verdictDenied
	}
	return user, verdictAuthenticated
}

func basicChecker(m *Manager, r *http.Request, _ bool) (string, verdict) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Basic ") {
		return "", verdictIndeterminate
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return "", verdictDenied
	}

	user, passwd, found := strings.Cut(string(raw), ":")
	if !found {
		return "", verdictDenied
	}

	ok, err := m.backend.Verify(user, passwd)
	if err != nil || !ok {
		return "", verdictDenied
	}
	return user, verdictAuthenticated
}

func peerCredsChecker(m *Manager, r *http.Request, allowPeerCreds bool) (string, verdict) {
	if !allowPeerCreds {
		return "", verdictIndeterminate
	}

	uid, ok := PeerUID(r)
	if !ok {
		return "", verdictIndeterminate
	}

	user, ok := m.uidUsers[uid]
	if !ok {
		return "", verdictIndeterminate
	}
	return user, verdictAuthenticated
}

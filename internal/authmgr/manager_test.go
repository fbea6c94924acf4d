package authmgr

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	users map[string]string
}

func (f *fakeBackend) Verify(user, passwd string) (bool, error) {
	want, ok := f.users[user]
	return ok && want == passwd, nil
}

func newTestManager() *Manager {
	return New(Config{
		Backend: &fakeBackend{users: map[string]string{"admin": "secret"}},
	})
}

func TestLoginRoundTrip(t *testing.T) {
	m := newTestManager()

	tok, err := m.Login("admin", "secret")
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	r := httptest.NewRequest(http.MethodGet, "/auth/check", nil)
	r.AddCookie(&http.Cookie{Name: "auth_token", Value: tok})

	user, err := m.Authenticate(r, false)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	m.Logout(tok)

	r2 := httptest.NewRequest(http.MethodGet, "/auth/check", nil)
	r2.AddCookie(&http.Cookie{Name: "auth_token", Value: tok})
	_, err = m.Authenticate(r2, false)
	require.Error(t, err)
}

func TestLoginSameUserReusesLiveToken(t *testing.T) {
	m := newTestManager()

	tok1, err := m.Login("admin", "secret")
	require.NoError(t, err)
	tok2, err := m.Login("admin", "secret")
	require.NoError(t, err)

	assert.Equal(t, tok1, tok2)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	m := newTestManager()

	_, err := m.Login("admin", "wrong")
	require.Error(t, err)
}

func TestHeaderChecker(t *testing.T) {
	m := newTestManager()

	r := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	r.Header.Set("X-KVMD-User", "admin")
	r.Header.Set("X-KVMD-Passwd", "secret")

	user, err := m.Authenticate(r, false)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
}

func TestNoCredentialsIsUnauthorized(t *testing.T) {
	m := newTestManager()

	r := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	_, err := m.Authenticate(r, false)
	require.Error(t, err)
}

func TestBasicChecker(t *testing.T) {
	m := newTestManager()

	r := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	r.SetBasicAuth("admin", "secret")

	user, err := m.Authenticate(r, false)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
}

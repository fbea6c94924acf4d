package authmgr

import (
	"net/http"
	"net/url"
	"time"
)

// HTTPBackend delegates verification to an external HTTP endpoint
// that accepts a user/passwd form POST and answers 2xx for valid
// credentials, anything else for invalid.
type HTTPBackend struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

func (b *HTTPBackend) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (b *HTTPBackend) Verify(user, passwd string) (bool, error) {
	form := url.Values{"user": {user}, "passwd": {passwd}}

	resp, err := b.client().PostForm(b.URL, form)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

package authmgr

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HtpasswdBackend is the internal credential backend: a bcrypt-hashed
// `user:hash` file, reloaded on every Verify call so external edits
// (htpasswd(1) runs) take effect without a restart.
type HtpasswdBackend struct {
	path string
	mu   sync.Mutex
}

// NewHtpasswdBackend opens an htpasswd-format file at path.
func NewHtpasswdBackend(path string) *HtpasswdBackend {
	return &HtpasswdBackend{path: path}
}

// Verify reports whether user/passwd match an entry in the file.
func (b *HtpasswdBackend) Verify(user, passwd string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		return false, fmt.Errorf("open htpasswd: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || parts[0] != user {
			continue
		}
		err := bcrypt.CompareHashAndPassword([]byte(parts[1]), []byte(passwd))
		return err == nil, nil
	}
	return false, scanner.Err()
}

// Has reports whether user has any entry, regardless of password.
func (b *HtpasswdBackend) Has(user string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		return false, fmt.Errorf("open htpasswd: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 && parts[0] == user {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// HashPassword returns a bcrypt hash suitable for an htpasswd line,
// used by administrative tooling that provisions new users.
func HashPassword(passwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

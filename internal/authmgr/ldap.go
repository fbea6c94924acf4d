package authmgr

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// LDAPBackend authenticates by performing a simple bind against an
// LDAP(S) server: connect, send a bind request built from a DN
// template, read the response's result code. No pack dependency
// covers LDAP, so this is a small stdlib client over net.Conn/net/tls
// rather than a full LDAP library.
type LDAPBackend struct {
	Addr       string
	UseTLS     bool
	DNTemplate string // e.g. "uid=%s,ou=people,dc=example,dc=com"
	Timeout    time.Duration
}

func (b *LDAPBackend) dial() (net.Conn, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if b.UseTLS {
		d := &net.Dialer{Timeout: timeout}
		return tls.DialWithDialer(d, "tcp", b.Addr, &tls.Config{ServerName: hostOf(b.Addr)})
	}
	return net.DialTimeout("tcp", b.Addr, timeout)
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Verify performs an LDAPv3 simple bind; a successful bind response
// (resultCode 0) is treated as valid credentials.
func (b *LDAPBackend) Verify(user, passwd string) (bool, error) {
	if passwd == "" {
		return false, nil
	}

	conn, err := b.dial()
	if err != nil {
		return false, fmt.Errorf("ldap dial: %w", err)
	}
	defer conn.Close()

	dn := fmt.Sprintf(b.DNTemplate, user)
	req := encodeLDAPBindRequest(1, dn, passwd)

	if _, err := conn.Write(req); err != nil {
		return false, fmt.Errorf("ldap write: %w", err)
	}

	buf := make([]byte, 256)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		return false, fmt.Errorf("ldap read: %w", err)
	}

	return decodeLDAPBindResultCode(buf[:n]) == 0, nil
}

// encodeLDAPBindRequest builds a minimal BER-encoded LDAPv3
// BindRequest for a simple (name, password) authentication.
func encodeLDAPBindRequest(messageID int, dn, passwd string) []byte {
	auth := berTag(0x80, []byte(passwd)) // simple auth, context tag 0
	bindOp := berSequence(0x60,
		berInteger(3), // version
		berOctetString(dn),
		auth,
	)
	msg := berSequence(0x30,
		berInteger(messageID),
		bindOp,
	)
	return msg
}

// decodeLDAPBindResultCode extracts the resultCode of a BindResponse;
// returns -1 if the frame can't be parsed, never matching 0 (success).
func decodeLDAPBindResultCode(frame []byte) int {
	// BindResponse: SEQUENCE { messageID INTEGER, SEQUENCE(APP 1) { enum resultCode, ... } }
	idx := 0
	for idx < len(frame) {
		if frame[idx] == 0x0A && idx+2 < len(frame) { // ENUMERATED tag
			length := int(frame[idx+1])
			if length == 1 && idx+2 < len(frame) {
				return int(frame[idx+2])
			}
		}
		idx++
	}
	return -1
}

func berTag(tag byte, content []byte) []byte {
	out := []byte{tag}
	out = append(out, berLength(len(content))...)
	return append(out, content...)
}

func berSequence(tag byte, parts ...[]byte) []byte {
	var content []byte
	for _, p := range parts {
		content = append(content, p...)
	}
	return berTag(tag, content)
}

func berInteger(v int) []byte {
	return berTag(0x02, []byte{byte(v)})
}

func berOctetString(s string) []byte {
	return berTag(0x04, []byte(s))
}

func berLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte(n & 0xff)}, b...)
		n >>= 8
	}
	return append([]byte{byte(0x80 | len(b))}, b...)
}

package authmgr

import (
	"context"
	"net"
	"net/http"

	"golang.org/x/sys/unix"
)

type peerUIDKey struct{}

// ContextWithPeerUID attaches a resolved peer UID to ctx; internal/wsrv
// calls this from an http.Server's ConnContext hook once per accepted
// connection so handlers can later recover it via PeerUID.
func ContextWithPeerUID(ctx context.Context, uid uint32) context.Context {
	return context.WithValue(ctx, peerUIDKey{}, uid)
}

// PeerUID recovers the UID stashed by ContextWithPeerUID, if any.
func PeerUID(r *http.Request) (uint32, bool) {
	uid, ok := r.Context().Value(peerUIDKey{}).(uint32)
	return uid, ok
}

// ResolvePeerUID reads SO_PEERCRED off a Unix domain socket connection,
// used by the server's
// ConnContext hook.
func ResolvePeerUID(conn net.Conn) (uint32, bool) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return 0, false
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return 0, false
	}

	var uid uint32
	var gotCred bool
	err = raw.Control(func(fd uintptr) {
		cred, err := unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
		if err == nil {
			uid = cred.Uid
			gotCred = true
		}
	})
	if err != nil || !gotCred {
		return 0, false
	}
	return uid, true
}

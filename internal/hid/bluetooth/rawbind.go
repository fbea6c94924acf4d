package bluetooth

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// rawBind issues bind(2) directly since unix.Bind only marshals the
// sockaddr shapes it knows about, and sockaddr_l2 is not one of them.
func rawBind(fd int, sa []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_BIND,
		uintptr(fd),
		uintptr(unsafe.Pointer(&sa[0])),
		uintptr(len(sa)))
	if errno != 0 {
		return fmt.Errorf("bind: %w", errno)
	}
	return nil
}

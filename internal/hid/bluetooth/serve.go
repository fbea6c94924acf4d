package bluetooth

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

// SDPRecordXML is the combined keyboard+mouse HID service record
// registered with BlueZ.
const SDPRecordXML = `<?xml version="1.0" encoding="UTF-8" ?>
<record>
  <attribute id="0x0001"><sequence><uuid value="0x1124"/></sequence></attribute>
  <attribute id="0x0004">
    <sequence>
      <sequence><uuid value="0x0100"/><uint16 value="0x0011"/></sequence>
      <sequence><uuid value="0x0011"/></sequence>
    </sequence>
  </attribute>
  <attribute id="0x0009">
    <sequence><sequence><uuid value="0x1124"/><uint16 value="0x0100"/></sequence></sequence>
  </attribute>
  <attribute id="0x000d">
    <sequence>
      <sequence>
        <sequence><uuid value="0x0100"/><uint16 value="0x0013"/></sequence>
        <sequence><uuid value="0x0011"/></sequence>
      </sequence>
    </sequence>
  </attribute>
  <attribute id="0x0100"><text value="Keyboard/Mouse"/></attribute>
  <attribute id="0x0201"><uint16 value="0x0111"/></attribute>
  <attribute id="0x0202"><uint8 value="0xC0"/></attribute>
  <attribute id="0x0203"><uint8 value="0x00"/></attribute>
  <attribute id="0x0204"><boolean value="true"/></attribute>
  <attribute id="0x0205"><boolean value="true"/></attribute>
</record>`

// ServeConfig tunes the accept loop.
type ServeConfig struct {
	Adapter    *Adapter
	Alias      string
	MaxClients int
}

// pendingClient holds sockets until both PSMs of a peer are open.
type pendingClient struct {
	controlFD int
	interFD   int
}

// Serve binds the two L2CAP PSMs and runs the accept loop until ctx
// is cancelled: sockets are paired by peer address, complete pairs
// become clients, and interrupt traffic is drained per client for LED
// updates and close detection.
func (b *Backend) Serve(ctx context.Context, cfg ServeConfig, logger *log.Logger) error {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 1
	}

	if cfg.Adapter != nil {
		if cfg.Alias != "" {
			if err := cfg.Adapter.SetAlias(cfg.Alias); err != nil {
				logger.Warn("bt: set alias", "err", err)
			}
		}
		if err := cfg.Adapter.RegisterHIDProfile(dbus.ObjectPath("/kvmd/hid"), SDPRecordXML); err != nil {
			return fmt.Errorf("bt: register profile: %w", err)
		}
	}

	ctrlFD, err := ListenL2CAP(PSMControl)
	if err != nil {
		return err
	}
	defer unix.Close(ctrlFD)

	intrFD, err := ListenL2CAP(PSMInterrupt)
	if err != nil {
		return err
	}
	defer unix.Close(intrFD)

	pending := map[clientAddr]*pendingClient{}
	fds := []unix.PollFd{
		{Fd: int32(ctrlFD), Events: unix.POLLIN},
		{Fd: int32(intrFD), Events: unix.POLLIN},
	}

	for ctx.Err() == nil {
		b.updatePairable(cfg)

		n, err := unix.Poll(fds, 1000)
		if err == unix.EINTR || n == 0 {
			continue
		}
		if err != nil {
			return fmt.Errorf("bt: poll: %w", err)
		}

		for i := range fds {
			if fds[i].Revents&unix.POLLIN == 0 {
				continue
			}
			nfd, addr, err := acceptL2CAP(int(fds[i].Fd))
			if err != nil {
				logger.Warn("bt: accept", "err", err)
				continue
			}

			p := pending[addr]
			if p == nil {
				p = &pendingClient{controlFD: -1, interFD: -1}
				pending[addr] = p
			}
			if int(fds[i].Fd) == ctrlFD {
				p.controlFD = nfd
			} else {
				p.interFD = nfd
			}

			if p.controlFD >= 0 && p.interFD >= 0 {
				delete(pending, addr)
				b.AddClient(addr, p.controlFD, p.interFD)
				logger.Info("bt: client connected", "addr", addr.String())
				go b.drainInterrupt(addr, p.controlFD, p.interFD, logger)
			}
		}
	}

	for _, p := range pending {
		if p.controlFD >= 0 {
			unix.Close(p.controlFD)
		}
		if p.interFD >= 0 {
			unix.Close(p.interFD)
		}
	}
	return nil
}

// updatePairable keeps the adapter pairable/discoverable only while
// there is spare client capacity.
func (b *Backend) updatePairable(cfg ServeConfig) {
	if cfg.Adapter == nil {
		return
	}
	b.mu.Lock()
	spare := len(b.clients) < cfg.MaxClients
	b.mu.Unlock()
	_ = cfg.Adapter.SetPairable(spare, spare)
}

// drainInterrupt reads host-to-device interrupt frames until the
// socket dies, then tears the client down.
func (b *Backend) drainInterrupt(addr clientAddr, controlFD, interFD int, logger *log.Logger) {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(interFD, buf)
		if err != nil || n == 0 {
			break
		}
		if leds, ok := HandleInterruptFrame(buf[:n]); ok {
			b.setLEDs(leds)
		}
	}

	unix.Close(interFD)
	unix.Close(controlFD)
	b.RemoveClient(addr)
	logger.Info("bt: client disconnected", "addr", addr.String())
}

// acceptL2CAP accepts one connection and extracts the peer's 6-byte
// Bluetooth address from the raw sockaddr, which unix.Accept does not
// decode for AF_BLUETOOTH.
func acceptL2CAP(listenFD int) (int, clientAddr, error) {
	var raw [16]byte
	rawLen := uint32(len(raw))

	nfd, _, errno := unix.Syscall6(unix.SYS_ACCEPT4,
		uintptr(listenFD),
		uintptr(unsafe.Pointer(&raw[0])),
		uintptr(unsafe.Pointer(&rawLen)),
		0, 0, 0)
	if errno != 0 {
		return -1, clientAddr{}, fmt.Errorf("accept: %w", errno)
	}

	var addr clientAddr
	copy(addr[:], raw[4:10])
	return int(nfd), addr, nil
}

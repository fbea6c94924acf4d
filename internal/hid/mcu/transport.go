package mcu

import (
	"fmt"
	"time"

	"github.com/pkg/term"
)

// Transport is the physical link an MCU backend speaks over: serial
// (UART) or SPI. Both exchange one 8-byte request for one 4- or
// 8-byte response.
type Transport interface {
	Exchange(request []byte) (response []byte, err error)
	Close() error
}

// SerialTransport is a UART link to the MCU.
type SerialTransport struct {
	fd      *term.Term
	timeout time.Duration
}

// OpenSerial opens device at baud with a bounded per-read timeout.
func OpenSerial(device string, baud int, timeout time.Duration) (*SerialTransport, error) {
	fd, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}

	switch baud {
	case 0:
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200:
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("set speed: %w", err)
		}
	default:
		if err := fd.SetSpeed(115200); err != nil {
			fd.Close()
			return nil, fmt.Errorf("set fallback speed: %w", err)
		}
	}

	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if err := fd.SetReadTimeout(timeout); err != nil {
		fd.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return &SerialTransport{fd: fd, timeout: timeout}, nil
}

func (t *SerialTransport) Exchange(request []byte) ([]byte, error) {
	if _, err := t.fd.Write(request); err != nil {
		return nil, fmt.Errorf("serial write: %w", err)
	}

	resp := make([]byte, 8)
	n, err := t.fd.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("serial read: %w", err)
	}
	return resp[:n], nil
}

func (t *SerialTransport) Close() error {
	return t.fd.Close()
}

// SPITransport garbage-drains until an all-zero dummy round-trips,
// then exchanges the real frame. No SPI
// driver appears anywhere in the example pack, so the physical
// transfer is expressed behind this same Transport interface and is
// supplied by the caller (e.g. a periph.io/x/conn SPI port) rather
// than invented here.
type SPITransport struct {
	transfer func(tx []byte) (rx []byte, err error)
	timeout  time.Duration
}

// NewSPITransport wraps a raw full-duplex transfer function.
func NewSPITransport(transfer func(tx []byte) ([]byte, error), timeout time.Duration) *SPITransport {
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &SPITransport{transfer: transfer, timeout: timeout}
}

func (t *SPITransport) Exchange(request []byte) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	dummy := make([]byte, len(request))
	for time.Now().Before(deadline) {
		rx, err := t.transfer(dummy)
		if err != nil {
			return nil, err
		}
		if allZero(rx) {
			break
		}
	}

	rx, err := t.transfer(request)
	if err != nil {
		return nil, err
	}

	for i, b := range rx {
		if b != 0 {
			end := i + 8
			if end > len(rx) {
				end = len(rx)
			}
			return rx[i:end], nil
		}
	}
	return nil, fmt.Errorf("spi: no response within timeout")
}

func (t *SPITransport) Close() error { return nil }

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

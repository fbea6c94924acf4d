package kvmswitch

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/term"
)

// Device owns the serial port and the request-id counter for one
// connection to the switch chain.
type Device struct {
	path string
	fd   *term.Term
	buf  []byte
	rid  uint16
}

const switchBaud = 115200

// OpenDevice opens the serial port at the fixed baud the firmware
// expects.
func OpenDevice(path string, startRID uint16) (*Device, error) {
	fd, err := term.Open(path, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("kvmswitch: open %s: %w", path, err)
	}
	if err := fd.SetSpeed(switchBaud); err != nil {
		fd.Close()
		return nil, fmt.Errorf("kvmswitch: set speed: %w", err)
	}
	if startRID == 0 {
		startRID = 1
	}
	return &Device{path: path, fd: fd, rid: startRID}, nil
}

// Close releases the serial port.
func (d *Device) Close() error { return d.fd.Close() }

func (d *Device) nextRID() uint16 {
	rid := d.rid
	d.rid++
	if d.rid > 0xFFFF {
		d.rid = 1
	}
	return rid
}

// Send writes one framed request and returns its rid, for the caller
// to track against the matching reply.
func (d *Device) Send(op Opcode, unit byte, body []byte) (uint16, error) {
	rid := d.nextRID()
	req := Request{
		Header: Header{Proto: 1, RID: rid, Op: op, Unit: unit},
		Body:   body,
	}
	if _, err := d.fd.Write(req.Encode()); err != nil {
		return 0, fmt.Errorf("kvmswitch: write: %w", err)
	}
	return rid, nil
}

func (d *Device) ReadAll() ([]Response, error) {
	chunk := make([]byte, 4096)
	n, err := d.fd.Read(chunk)
	if err != nil {
		if isTimeoutErr(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("kvmswitch: read: %w", err)
	}
	if n > 0 {
		d.buf = append(d.buf, chunk[:n]...)
	}

	var out []Response
	for {
		begin := bytes.IndexByte(d.buf, frameStart)
		if begin < 0 {
			break
		}
		end := bytes.IndexByte(d.buf[begin+1:], frameEnd)
		if end < 0 {
			break
		}
		end += begin + 1

		msg := d.buf[begin+1 : end]
		if bad := bytes.IndexByte(msg, frameStart); bad >= 0 {
			// A start byte inside what should be an escaped body means
			// this candidate frame is bogus; drop up to the bad start
			// and let the next pass resync on it.
			d.buf = d.buf[begin+1+bad:]
			continue
		}
		d.buf = d.buf[end+1:]

		unescaped, uerr := Unescape(msg)
		if uerr != nil {
			continue
		}
		hdr, rest, derr := DecodeHeader(unescaped)
		if derr != nil {
			continue
		}
		out = append(out, Response{Header: hdr, Body: rest})
	}
	return out, nil
}

func isTimeoutErr(err error) bool {
	type timeout interface{ Timeout() bool }
	t, ok := err.(timeout)
	return ok && t.Timeout()
}

// SetReadTimeout bounds how long ReadAll blocks waiting for bytes;
// Chain.Run sets 200 ms so queued commands are picked up promptly.
func (d *Device) SetReadTimeout(timeout time.Duration) error {
	return d.fd.SetReadTimeout(timeout)
}

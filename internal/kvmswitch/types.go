package kvmswitch

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/kvmd-go/kvmd/internal/primitives"
)

// Color is one RGB+brightness+blink role; its CRC16 over the packed
// wire form is what units compare during convergence.
type Color struct {
	R, G, B    byte
	Brightness byte
	BlinkMS    uint16
}

// Pack returns the 5-byte wire form: r,g,b,brightness,blink_ms(LE).
func (c Color) Pack() []byte {
	buf := make([]byte, 5)
	buf[0], buf[1], buf[2], buf[3] = c.R, c.G, c.B, c.Brightness
	binary.LittleEndian.PutUint16(buf[4:], c.BlinkMS)
	return buf
}

// CRC16 is the CRC of this color's packed bytes.
func (c Color) CRC16() uint16 { return primitives.ComputeCRC16(c.Pack()) }

// Colors is the five named roles plus a composite CRC16 over their
// individual CRCs, used to detect onboard neopixel drift.
type Colors struct {
	Inactive, Active, Flashing, Beacon, Bootloader Color
}

// DefaultColors mirrors the upstream factory defaults.
func DefaultColors() Colors {
	return Colors{
		Inactive:   Color{R: 255, G: 0, B: 0, Brightness: 64},
		Active:     Color{R: 0, G: 255, B: 0, Brightness: 128},
		Flashing:   Color{R: 0, G: 170, B: 255, Brightness: 128},
		Beacon:     Color{R: 228, G: 44, B: 156, Brightness: 255, BlinkMS: 250},
		Bootloader: Color{R: 255, G: 170, B: 0, Brightness: 128},
	}
}

func (c Colors) roles() [5]Color {
	return [5]Color{c.Inactive, c.Active, c.Flashing, c.Beacon, c.Bootloader}
}

// Pack concatenates every role's packed bytes, the body sent with
// SET_COLORS.
func (c Colors) Pack() []byte {
	var out []byte
	for _, role := range c.roles() {
		out = append(out, role.Pack()...)
	}
	return out
}

func (c Colors) CRC16() uint16 {
	buf := make([]byte, 10)
	for i, role := range c.roles() {
		binary.LittleEndian.PutUint16(buf[i*2:], role.CRC16())
	}
	return primitives.ComputeCRC16(buf)
}

// Edid is one EDID blob, zero-padded to 256 bytes on the wire, with a
// validity flag and CRC16 over the padded form.
type Edid struct {
	Name string
	Data []byte // original 128 or 256 bytes, unpadded
}

// DefaultEdidID is the reserved id meaning "no EDID assigned".
const DefaultEdidID = "default"

const edidWireSize = 256

// Packed zero-pads Data to 256 bytes, the form sent over the wire and
// CRC16'd.
func (e Edid) Packed() []byte {
	buf := make([]byte, edidWireSize)
	copy(buf, e.Data)
	return buf
}

// CRC16 is computed over the zero-padded 256-byte form.
func (e Edid) CRC16() uint16 { return primitives.ComputeCRC16(e.Packed()) }

// Valid reports whether Data looks like a real EDID header (the first
// 8 bytes of the EDID 1.x fixed header).
func (e Edid) Valid() bool {
	header := []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	if len(e.Data) < 8 {
		return false
	}
	for i, b := range header {
		if e.Data[i] != b {
			return false
		}
	}
	return true
}

// Edids maps EDID ids to blobs plus the per-port assignment table;
// a port absent from Port uses DefaultEdidID.
type Edids struct {
	All  map[string]Edid
	Port map[int]string // port -> edid id; absence means DefaultEdidID
}

// NewEdids returns an Edids with only the reserved default entry
// present (empty, invalid EDID).
func NewEdids() *Edids {
	return &Edids{
		All:  map[string]Edid{DefaultEdidID: {Name: "Default", Data: make([]byte, 256)}},
		Port: map[int]string{},
	}
}

// Add registers a new EDID under a fresh UUID and returns its id.
func (e *Edids) Add(edid Edid) string {
	id := uuid.NewString()
	e.All[id] = edid
	return id
}

// Remove deletes an EDID and clears any port assignment pointing at
// it.
func (e *Edids) Remove(id string) {
	delete(e.All, id)
	for port, assigned := range e.Port {
		if assigned == id {
			delete(e.Port, port)
		}
	}
}

// Assign binds port to id; assigning DefaultEdidID clears the
// override.
func (e *Edids) Assign(port int, id string) {
	if id == DefaultEdidID {
		delete(e.Port, port)
		return
	}
	e.Port[port] = id
}

// IDForPort returns the EDID id assigned to port, or DefaultEdidID.
func (e *Edids) IDForPort(port int) string {
	if id, ok := e.Port[port]; ok {
		return id
	}
	return DefaultEdidID
}

// EdidForPort resolves port to its Edid value.
func (e *Edids) EdidForPort(port int) Edid {
	return e.All[e.IDForPort(port)]
}

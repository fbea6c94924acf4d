// Package mcu implements the serial/SPI MCU HID backend:
// an 8-byte framed request/response protocol with CRC16, opcode
// dispatch, and a GPIO reset line for recovering a wedged MCU.
package mcu

import "github.com/kvmd-go/kvmd/internal/primitives"

// Opcode identifies an MCU command.
type Opcode byte

const (
	OpPing             Opcode = 0x01
	OpRepeatLast       Opcode = 0x02
	OpSetKeyboardOut   Opcode = 0x03
	OpSetMouseOut      Opcode = 0x04
	OpSetConnected     Opcode = 0x05
	OpClear            Opcode = 0x10
	OpKey              Opcode = 0x11
	OpMouseMove        Opcode = 0x12
	OpMouseButton      Opcode = 0x13
	OpMouseWheel       Opcode = 0x14
	OpMouseRelative    Opcode = 0x15
)

// frameMagic is the fixed leading byte of every request frame.
const frameMagic = 0x33

// StatusByte classifies an MCU response's leading byte.
type StatusByte byte

const (
	StatusLegacyOK      StatusByte = 0x20
	StatusCRCError      StatusByte = 0x40
	StatusTimeout       StatusByte = 0x48
	StatusUnknownCmd    StatusByte = 0x45
	StatusRebooted      StatusByte = 0x24
	statusPongFlag      StatusByte = 0x80
)

// EncodeRequest builds the 8-byte request frame: 0x33 | CMD | ARG(4) | CRC16BE(2).
func EncodeRequest(op Opcode, arg [4]byte) [8]byte {
	var frame [8]byte
	frame[0] = frameMagic
	frame[1] = byte(op)
	copy(frame[2:6], arg[:])

	crc := primitives.ComputeCRC16(frame[:6])
	frame[6] = byte(crc >> 8)
	frame[7] = byte(crc)
	return frame
}

// Response is a decoded MCU reply, either 4 or 8 bytes.
type Response struct {
	Status StatusByte
	IsPong bool
	Data   []byte
	Valid  bool
}

// DecodeResponse parses a 4- or 8-byte response and verifies its
// trailing CRC16.
func DecodeResponse(raw []byte) Response {
	if len(raw) != 4 && len(raw) != 8 {
		return Response{}
	}
	if !primitives.CheckCRC16BE(raw) {
		return Response{}
	}

	status := StatusByte(raw[0])
	return Response{
		Status: status & 0x7F,
		IsPong: status&statusPongFlag != 0,
		Data:   raw[1 : len(raw)-2],
		Valid:  true,
	}
}

// IsFatal reports whether status should abort the current request
// rather than retry.
func (r Response) IsFatal() bool {
	return r.Status == StatusUnknownCmd || r.Status == StatusRebooted
}

// NeedsRetransmit reports a CRC error on our side.
func (r Response) NeedsRetransmit() bool {
	return r.Status == StatusCRCError
}

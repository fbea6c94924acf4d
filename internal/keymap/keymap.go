// Package keymap holds the compile-time key tableco-indexing web key
// names, Linux evdev codes, and USB HID usages, plus the modifier flag
// that distinguishes the eight modifier keys from the rest.
package keymap

//go:generate go run ../../cmd/kvmd-keymap-gen -in keymap.csv -out table_generated.go

import "fmt"

// Entry is one row of the key table: a web name co-indexed with its
// evdev code and USB HID usage.
type Entry struct {
	WebName    string
	EvdevCode  int
	USBUsage   int
	IsModifier bool
}

var (
	byWebName   = map[string]Entry{}
	byEvdev     = map[int]Entry{}
	byUSBUsage  = map[int]Entry{}
	modifierBit = map[string]uint{}
)

func init() {
	modifierOrder := []string{
		"ControlLeft", "ShiftLeft", "AltLeft", "MetaLeft",
		"ControlRight", "ShiftRight", "AltRight", "MetaRight",
	}
	for i, name := range modifierOrder {
		modifierBit[name] = uint(i)
	}

	for _, e := range generatedTable {
		if _, dup := byWebName[e.WebName]; dup {
			panic(fmt.Sprintf("keymap: duplicate web name %q", e.WebName))
		}
		if _, dup := byEvdev[e.EvdevCode]; dup {
			panic(fmt.Sprintf("keymap: duplicate evdev code %d", e.EvdevCode))
		}
		if _, dup := byUSBUsage[e.USBUsage]; dup {
			panic(fmt.Sprintf("keymap: duplicate USB usage 0x%02X", e.USBUsage))
		}
		byWebName[e.WebName] = e
		byEvdev[e.EvdevCode] = e
		byUSBUsage[e.USBUsage] = e
	}
}

// ByWebName looks up an entry by its web key name (e.g. "KeyA").
func ByWebName(name string) (Entry, bool) {
	e, ok := byWebName[name]
	return e, ok
}

// ByEvdevCode looks up an entry by its Linux evdev code.
func ByEvdevCode(code int) (Entry, bool) {
	e, ok := byEvdev[code]
	return e, ok
}

// ByUSBUsage looks up an entry by its USB HID usage ID.
func ByUSBUsage(usage int) (Entry, bool) {
	e, ok := byUSBUsage[usage]
	return e, ok
}

// ModifierBit returns the bit position of a modifier key's web name in
// an 8-bit USB HID keyboard report modifier byte, and
// whether name names a modifier at all.
func ModifierBit(webName string) (uint, bool) {
	bit, ok := modifierBit[webName]
	return bit, ok
}

// All returns every entry in the table, in CSV order.
func All() []Entry {
	out := make([]Entry, len(generatedTable))
	copy(out, generatedTable)
	return out
}

// Len returns the number of entries in the table.
func Len() int {
	return len(generatedTable)
}

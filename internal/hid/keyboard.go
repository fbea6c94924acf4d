package hid

// KeyboardState tracks the modifier bitmap and up to six concurrently
// pressed non-modifier keys, emitting the USB HID keyboard reports
// that result from each transition.
type KeyboardState struct {
	modifiers byte
	slots     [6]int // 0 means empty; USBUsage otherwise
}

// NewKeyboardState returns an all-released keyboard state.
func NewKeyboardState() *KeyboardState {
	return &KeyboardState{}
}

// Apply processes one key event and returns the sequence of 8-byte
// reports it produces, in order. Re-pressing an already-held key
// releases it first (one report) then re-presses (a second report,
// When the six-slot buffer is full and a new key arrives,
// all six are released first.
func (k *KeyboardState) Apply(e KeyEvent) [][8]byte {
	if e.IsModifier {
		return k.applyModifier(e)
	}
	return k.applyKey(e)
}

func (k *KeyboardState) applyModifier(e KeyEvent) [][8]byte {
	bit := modifierBitForUsage(e.USBUsage)
	if bit < 0 {
		return nil
	}

	if e.Pressed {
		k.modifiers |= 1 << uint(bit)
	} else {
		k.modifiers &^= 1 << uint(bit)
	}
	return [][8]byte{k.report()}
}

func (k *KeyboardState) applyKey(e KeyEvent) [][8]byte {
	idx := k.indexOf(e.USBUsage)

	if !e.Pressed {
		if idx < 0 {
			return nil
		}
		k.slots[idx] = 0
		return [][8]byte{k.report()}
	}

	if idx >= 0 {
		k.slots[idx] = 0
		reports := [][8]byte{k.report()}
		k.slots[idx] = e.USBUsage
		return append(reports, k.report())
	}

	free := k.indexOf(0)
	if free < 0 {
		var reports [][8]byte
		for i := range k.slots {
			k.slots[i] = 0
		}
		reports = append(reports, k.report())
		k.slots[0] = e.USBUsage
		reports = append(reports, k.report())
		return reports
	}

	k.slots[free] = e.USBUsage
	return [][8]byte{k.report()}
}

// Clear releases every modifier and key, returning the single
// resulting zero report.
func (k *KeyboardState) Clear() [8]byte {
	k.modifiers = 0
	for i := range k.slots {
		k.slots[i] = 0
	}
	return k.report()
}

func (k *KeyboardState) indexOf(usage int) int {
	for i, s := range k.slots {
		if s == usage {
			return i
		}
	}
	return -1
}

func (k *KeyboardState) report() [8]byte {
	var r [8]byte
	r[0] = k.modifiers
	r[1] = 0
	for i, s := range k.slots {
		r[2+i] = byte(s)
	}
	return r
}

// modifierBitForUsage maps a modifier key's USB HID usage (0xE0-0xE7)
// to its bit position in the report's modifier byte.
func modifierBitForUsage(usage int) int {
	if usage < 0xE0 || usage > 0xE7 {
		return -1
	}
	return usage - 0xE0
}

// LEDState decodes the 1-byte LED report.
type LEDState struct {
	NumLock    bool
	CapsLock   bool
	ScrollLock bool
}

// DecodeLEDReport parses a 1-byte LED report.
func DecodeLEDReport(b byte) LEDState {
	return LEDState{
		NumLock:    b&0x01 != 0,
		CapsLock:   b&0x02 != 0,
		ScrollLock: b&0x04 != 0,
	}
}

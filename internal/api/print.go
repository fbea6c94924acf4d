package api

import (
	"fmt"

	"github.com/kvmd-go/kvmd/internal/hid"
	"github.com/kvmd-go/kvmd/internal/keymap"
	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

// usKey maps one printable rune to its web key name and whether Shift
// is held.
type usKey struct {
	web   string
	shift bool
}

// usLayout covers printable ASCII for /hid/print.
var usLayout = map[rune]usKey{
	'\n': {"Enter", false},
	'\t': {"Tab", false},
	' ':  {"Space", false},
	'`':  {"Backquote", false}, '~': {"Backquote", true},
	'1': {"Digit1", false}, '!': {"Digit1", true},
	'2': {"Digit2", false}, '@': {"Digit2", true},
	'3': {"Digit3", false}, '#': {"Digit3", true},
	'4': {"Digit4", false}, '$': {"Digit4", true},
	'5': {"Digit5", false}, '%': {"Digit5", true},
	'6': {"Digit6", false}, '^': {"Digit6", true},
	'7': {"Digit7", false}, '&': {"Digit7", true},
	'8': {"Digit8", false}, '*': {"Digit8", true},
	'9': {"Digit9", false}, '(': {"Digit9", true},
	'0': {"Digit0", false}, ')': {"Digit0", true},
	'-': {"Minus", false}, '_': {"Minus", true},
	'=': {"Equal", false}, '+': {"Equal", true},
	'[': {"BracketLeft", false}, '{': {"BracketLeft", true},
	']': {"BracketRight", false}, '}': {"BracketRight", true},
	'\\': {"Backslash", false}, '|': {"Backslash", true},
	';': {"Semicolon", false}, ':': {"Semicolon", true},
	'\'': {"Quote", false}, '"': {"Quote", true},
	',': {"Comma", false}, '<': {"Comma", true},
	'.': {"Period", false}, '>': {"Period", true},
	'/': {"Slash", false}, '?': {"Slash", true},
}

func init() {
	for r := 'a'; r <= 'z'; r++ {
		web := "Key" + string(r-'a'+'A')
		usLayout[r] = usKey{web, false}
		usLayout[r-'a'+'A'] = usKey{web, true}
	}
}

// textToKeyEvents turns text into a press/release key event sequence,
// wrapping shifted characters in ShiftLeft press/release pairs.
func textToKeyEvents(text string) ([]hid.KeyEvent, error) {
	shiftEntry, _ := keymap.ByWebName("ShiftLeft")

	var events []hid.KeyEvent
	for _, r := range text {
		if r == '\r' {
			continue
		}
		k, ok := usLayout[r]
		if !ok {
			return nil, kvmerr.Validation("unprintable character %q", r)
		}
		entry, ok := keymap.ByWebName(k.web)
		if !ok {
			return nil, kvmerr.Internal(fmt.Errorf("layout references unknown key %q", k.web))
		}

		if k.shift {
			events = append(events, hid.KeyEvent{USBUsage: shiftEntry.USBUsage, IsModifier: true, Pressed: true})
		}
		events = append(events,
			hid.KeyEvent{USBUsage: entry.USBUsage, IsModifier: entry.IsModifier, Pressed: true},
			hid.KeyEvent{USBUsage: entry.USBUsage, IsModifier: entry.IsModifier, Pressed: false},
		)
		if k.shift {
			events = append(events, hid.KeyEvent{USBUsage: shiftEntry.USBUsage, IsModifier: true, Pressed: false})
		}
	}
	return events, nil
}

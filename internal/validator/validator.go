// Package validator parses and range-checks every external input before it
// reaches a component boundary: bad shape or range surfaces as a
// Validation error (HTTP 400), never a panic.
package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kvmd-go/kvmd/internal/kvmerr"
)

// Int parses s as an integer in [lo, hi].
func Int(field, s string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, kvmerr.Validation("%s: not an integer: %q", field, s)
	}
	if v < lo || v > hi {
		return 0, kvmerr.Validation("%s: %d out of range [%d, %d]", field, v, lo, hi)
	}
	return v, nil
}

// Bool parses common truthy/falsy string forms used by the HTTP query
// parameters in (e.g. "1"/"0", "true"/"false").
func Bool(field, s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	default:
		return false, kvmerr.Validation("%s: not a boolean: %q", field, s)
	}
}

// Enum checks that s is one of allowed, case-sensitively.
func Enum(field, s string, allowed ...string) (string, error) {
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", kvmerr.Validation("%s: %q is not one of %v", field, s, allowed)
}

var imageNameRE = regexp.MustCompile(`^[^/\x00]+$`)

// ImageName validates an MSD image name: non-empty, no path separators,
// no NUL.
func ImageName(s string) (string, error) {
	if s == "" {
		return "", kvmerr.Validation("image name: empty")
	}
	if !imageNameRE.MatchString(s) {
		return "", kvmerr.Validation("image name: %q contains a path separator", s)
	}
	if s == "." || s == ".." {
		return "", kvmerr.Validation("image name: %q is not a valid file name", s)
	}
	return s, nil
}

// Path validates a filesystem path fragment intended to be joined
// under a storage root; it rejects absolute paths and ".." segments to
// prevent escaping the root.
func Path(s string) (string, error) {
	if s == "" {
		return "", kvmerr.Validation("path: empty")
	}
	if strings.HasPrefix(s, "/") {
		return "", kvmerr.Validation("path: %q must be relative", s)
	}
	for _, part := range strings.Split(s, "/") {
		if part == ".." {
			return "", kvmerr.Validation("path: %q escapes root", s)
		}
	}
	return s, nil
}

var colorHexRE = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// ColorHex validates a "rrggbb" hex color used by switch LED roles.
func ColorHex(s string) (r, g, b uint8, err error) {
	if !colorHexRE.MatchString(s) {
		return 0, 0, 0, kvmerr.Validation("color: %q is not 6 hex digits", s)
	}
	v, _ := strconv.ParseUint(s, 16, 32)
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// EDIDHex validates an EDID blob given as a hex string: must be 128 or
// 256 bytes once decoded.
func EDIDHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s)%2 != 0 {
		return nil, kvmerr.Validation("edid: odd-length hex string")
	}
	data := make([]byte, len(s)/2)
	for i := range data {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, kvmerr.Validation("edid: invalid hex at byte %d", i)
		}
		data[i] = byte(v)
	}
	if len(data) != 128 && len(data) != 256 {
		return nil, kvmerr.Validation("edid: length %d, want 128 or 256", len(data))
	}
	return data, nil
}

// AbsoluteCoord validates a mouse absolute coordinate in [-32768, 32767].
func AbsoluteCoord(field string, v int) (int16, error) {
	if v < -32768 || v > 32767 {
		return 0, kvmerr.Validation("%s: %d out of range [-32768, 32767]", field, v)
	}
	return int16(v), nil
}

// RelativeDelta validates a relative/wheel delta in [-127, 127].
func RelativeDelta(field string, v int) (int8, error) {
	if v < -127 || v > 127 {
		return 0, kvmerr.Validation("%s: %d out of range [-127, 127]", field, v)
	}
	return int8(v), nil
}

// Port validates a switch virtual port number given a chain's total
// host-facing port count.
func Port(v, maxPorts int) (int, error) {
	if v < 0 || v >= maxPorts {
		return 0, kvmerr.Validation("port: %d out of range [0, %d)", v, maxPorts)
	}
	return v, nil
}

// UUIDOrDefault validates an EDID id field: either the literal string
// "default" or a well-formed UUID.
func UUIDOrDefault(s string) (string, error) {
	if s == "default" {
		return s, nil
	}
	if !uuidRE.MatchString(s) {
		return "", kvmerr.Validation("edid_id: %q is not \"default\" or a UUID", s)
	}
	return strings.ToLower(s), nil
}

var uuidRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Positive checks a float is > 0, used for click-delay seconds fields.
func Positive(field string, v float64) (float64, error) {
	if v <= 0 {
		return 0, kvmerr.Validation("%s: must be > 0, got %v", field, v)
	}
	return v, nil
}

// FormatCoords is a convenience for error messages.
func FormatCoords(x, y int) string {
	return fmt.Sprintf("(%d, %d)", x, y)
}

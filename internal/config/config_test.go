package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kvmd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/run/kvmd/kvmd.sock", cfg.Server.UnixSocket)
	assert.Equal(t, "usbgadget", cfg.HID.Backend)
	assert.Equal(t, -32768, cfg.HID.RemapLo)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
hid:
  backend: mcu
  mcu:
    device: /dev/ttyACM0
msd:
  storage: /var/lib/kvmd/msd
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "mcu", cfg.HID.Backend)
	assert.Equal(t, "/dev/ttyACM0", cfg.HID.MCU.Device)
	// Untouched defaults survive the overlay.
	assert.Equal(t, 115200, cfg.HID.MCU.Baud)
	assert.Equal(t, "/var/lib/kvmd/msd", cfg.MSD.StorageRoot)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "logging: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownHIDBackend(t *testing.T) {
	cfg := Default()
	cfg.Auth.Enabled = false
	cfg.MSD.Enabled = false
	cfg.HID.Backend = "telepathy"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresHtpasswdWhileAuthEnabled(t *testing.T) {
	cfg := Default()
	cfg.MSD.Enabled = false
	require.Error(t, cfg.Validate())

	cfg.Auth.HtpasswdPath = "/etc/kvmd/htpasswd"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsEmptyMouseRange(t *testing.T) {
	cfg := Default()
	cfg.Auth.Enabled = false
	cfg.MSD.Enabled = false
	cfg.HID.RemapLo = 100
	cfg.HID.RemapHi = 100
	assert.Error(t, cfg.Validate())
}

func TestValidateChecksGPIOReferences(t *testing.T) {
	cfg := Default()
	cfg.Auth.Enabled = false
	cfg.MSD.Enabled = false
	cfg.GPIO.Drivers = map[string]GPIODriver{
		"main": {Type: "gpiod", Chip: "/dev/gpiochip0"},
	}
	cfg.GPIO.Channels = map[string]GPIOChannel{
		"led": {Driver: "ghost", Pin: "3", Mode: "input"},
	}
	require.Error(t, cfg.Validate())

	cfg.GPIO.Channels["led"] = GPIOChannel{Driver: "main", Pin: "3", Mode: "sideways"}
	require.Error(t, cfg.Validate())

	cfg.GPIO.Channels["led"] = GPIOChannel{Driver: "main", Pin: "3", Mode: "input"}
	assert.NoError(t, cfg.Validate())
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Seconds(1.5))
}

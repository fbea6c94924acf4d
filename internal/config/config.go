// Package config is the daemon's YAML configuration model plus the CLI
// flag overlay. One document describes every component; cmd/kvmd loads it,
// applies flag overrides, validates, and hands sub-structs to the
// orchestrator.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root document.
type Config struct {
	Logging  Logging  `yaml:"logging"`
	Server   Server   `yaml:"server"`
	Auth     Auth     `yaml:"auth"`
	HID      HID      `yaml:"hid"`
	MSD      MSD      `yaml:"msd"`
	Switch   Switch   `yaml:"switch"`
	GPIO     GPIO     `yaml:"gpio"`
	ATX      ATX      `yaml:"atx"`
	Streamer Streamer `yaml:"streamer"`
	PST      PST      `yaml:"pst"`
}

// Logging selects the console log level.
type Logging struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Server configures the unix socket listener.
type Server struct {
	UnixSocket     string  `yaml:"unix_socket"`
	UnixSocketMode uint32  `yaml:"unix_socket_mode"`
	Heartbeat      float64 `yaml:"heartbeat"` // seconds
}

// Auth configures the auth manager.
type Auth struct {
	Enabled      bool              `yaml:"enabled"`
	HtpasswdPath string            `yaml:"htpasswd"`
	Internal     string            `yaml:"internal"` // htpasswd, ldap, radius, http
	ForceInternal []string         `yaml:"force_internal_users"`
	LDAP         LDAPAuth          `yaml:"ldap"`
	RADIUS       RADIUSAuth        `yaml:"radius"`
	HTTP         HTTPAuth          `yaml:"http"`
	UnixPeers    map[uint32]string `yaml:"unix_peers"` // uid -> user
	TokenTTL     float64           `yaml:"token_ttl"`  // seconds
}

// LDAPAuth configures the LDAP backend.
type LDAPAuth struct {
	Address  string `yaml:"address"`
	BaseDN   string `yaml:"base_dn"`
	UserAttr string `yaml:"user_attr"`
}

// RADIUSAuth configures the RADIUS backend.
type RADIUSAuth struct {
	Address string `yaml:"address"`
	Secret  string `yaml:"secret"`
}

// HTTPAuth configures the remote HTTP auth backend.
type HTTPAuth struct {
	URL     string  `yaml:"url"`
	Timeout float64 `yaml:"timeout"` // seconds
}

// HID selects and configures the input backend.
type HID struct {
	Backend string `yaml:"backend"` // usbgadget, mcu, bluetooth, ch9329

	IgnoreKeys []string `yaml:"ignore_keys"`
	RemapLo    int      `yaml:"mouse_x_min"`
	RemapHi    int      `yaml:"mouse_x_max"`
	Win98Fix   bool     `yaml:"win98_fix"`

	Jiggler Jiggler `yaml:"jiggler"`

	USBGadget USBGadgetHID `yaml:"usbgadget"`
	MCU       MCUHID       `yaml:"mcu"`
	Bluetooth BluetoothHID `yaml:"bluetooth"`
	CH9329    CH9329HID    `yaml:"ch9329"`
}

// Jiggler is the anti-idle mouse configuration.
type Jiggler struct {
	Enabled  bool    `yaml:"enabled"`
	Active   bool    `yaml:"active"`
	Interval float64 `yaml:"interval"` // seconds
	Absolute bool    `yaml:"absolute"`
}

// USBGadgetHID locates the /dev/hidgN endpoints.
type USBGadgetHID struct {
	KeyboardDevice string  `yaml:"keyboard_device"`
	MouseDevice    string  `yaml:"mouse_device"`
	WriteRetries   int     `yaml:"write_retries"`
	WriteTimeout   float64 `yaml:"write_timeout"` // seconds
}

// MCUHID configures the serial/SPI microcontroller link.
type MCUHID struct {
	Device          string  `yaml:"device"` // serial device; "auto" resolves via udev
	Baud            int     `yaml:"baud"`
	ReadTimeout     float64 `yaml:"read_timeout"` // seconds
	ReadRetries     int     `yaml:"read_retries"`
	CommonRetries   int     `yaml:"common_retries"`
	ErrorsThreshold int     `yaml:"errors_threshold"`
	ResetChip       string  `yaml:"reset_chip"`
	ResetPin        int     `yaml:"reset_pin"`
	SelfReset       bool    `yaml:"reset_self"`
}

// BluetoothHID configures the BT HID backend.
type BluetoothHID struct {
	RevokeOnClose bool `yaml:"unpair_on_close"`
}

// CH9329HID configures the CH9329 UART bridge.
type CH9329HID struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// MSD configures the mass-storage engine.
type MSD struct {
	Enabled          bool    `yaml:"enabled"`
	StorageRoot      string  `yaml:"storage"`
	RemountCmd       string  `yaml:"remount_cmd"`
	SyncChunkSize    int64   `yaml:"sync_chunk_size"`
	ReadChunkSize    int     `yaml:"read_chunk_size"`
	RemoveIncomplete bool    `yaml:"remove_incomplete"`
	InitialImage     string  `yaml:"initial_image"`
	InitialCDROM     bool    `yaml:"initial_cdrom"`
	Gadget           LUN     `yaml:"gadget"`
	ScanDebounce     float64 `yaml:"scan_debounce"` // seconds
}

// LUN locates the gadget's mass-storage sysfs attributes.
type LUN struct {
	File    string `yaml:"file"`
	CDROM   string `yaml:"cdrom"`
	RO      string `yaml:"ro"`
	UDC     string `yaml:"udc"`
	UDCName string `yaml:"udc_name"`
}

// Switch configures the daisy-chained KVM switch driver.
type Switch struct {
	Enabled        bool   `yaml:"enabled"`
	Device         string `yaml:"device"` // serial device; "auto" resolves via udev
	IgnoreHPDOnTop bool   `yaml:"ignore_hpd_on_top"`
}

// GPIO configures drivers and user-facing channels.
type GPIO struct {
	Drivers  map[string]GPIODriver  `yaml:"drivers"`
	Channels map[string]GPIOChannel `yaml:"scheme"`
}

// GPIODriver describes one driver instance.
type GPIODriver struct {
	Type string `yaml:"type"` // gpiod, outlet

	// gpiod
	Chip string `yaml:"chip"`

	// outlet
	URL          string  `yaml:"url"`
	Timeout      float64 `yaml:"timeout"`       // seconds
	PollInterval float64 `yaml:"poll_interval"` // seconds
}

// GPIOChannel binds a user-facing channel name to a driver pin.
type GPIOChannel struct {
	Driver   string  `yaml:"driver"`
	Pin      string  `yaml:"pin"`
	Mode     string  `yaml:"mode"` // input, output
	Inverted bool    `yaml:"inverted"`
	Debounce float64 `yaml:"debounce"` // seconds
	Initial  *bool   `yaml:"initial"`
}

// ATX names the gpio channels backing the front-panel header.
type ATX struct {
	Enabled            bool    `yaml:"enabled"`
	PowerLEDChannel    string  `yaml:"power_led"`
	HDDLEDChannel      string  `yaml:"hdd_led"`
	PowerSwitchChannel string  `yaml:"power_switch"`
	ResetSwitchChannel string  `yaml:"reset_switch"`
	ClickDelay         float64 `yaml:"click_delay"`      // seconds
	LongClickDelay     float64 `yaml:"long_click_delay"` // seconds
}

// Streamer locates the external video streamer.
type Streamer struct {
	Command    []string `yaml:"command"`
	UnixSocket string   `yaml:"unix_socket"`
}

// PST locates the persistent-state mount point.
type PST struct {
	Root       string `yaml:"root"`
	RemountCmd string `yaml:"remount_cmd"`
}

// Default returns a Config with working defaults for everything that
// has a sane one; paths and device nodes stay empty and must come
// from the YAML document or flags.
func Default() Config {
	return Config{
		Logging: Logging{Level: "info"},
		Server: Server{
			UnixSocket:     "/run/kvmd/kvmd.sock",
			UnixSocketMode: 0o660,
			Heartbeat:      15,
		},
		Auth: Auth{
			Enabled:  true,
			Internal: "htpasswd",
			TokenTTL: 24 * 3600,
		},
		HID: HID{
			Backend: "usbgadget",
			RemapLo: -32768,
			RemapHi: 32767,
			Jiggler: Jiggler{Interval: 60, Absolute: true},
			USBGadget: USBGadgetHID{
				KeyboardDevice: "/dev/hidg0",
				MouseDevice:    "/dev/hidg1",
				WriteRetries:   150,
				WriteTimeout:   0.1,
			},
			MCU: MCUHID{
				Baud:            115200,
				ReadTimeout:     2,
				ReadRetries:     5,
				CommonRetries:   5,
				ErrorsThreshold: 5,
			},
			CH9329: CH9329HID{Baud: 9600},
		},
		MSD: MSD{
			Enabled:          true,
			SyncChunkSize:    4 * 1024 * 1024,
			ReadChunkSize:    256 * 1024,
			RemoveIncomplete: true,
			ScanDebounce:     1,
		},
		ATX: ATX{
			ClickDelay:     0.1,
			LongClickDelay: 5.5,
		},
	}
}

// Load reads the YAML document at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot possibly run.
func (c *Config) Validate() error {
	if c.Server.UnixSocket == "" {
		return fmt.Errorf("config: server.unix_socket is required")
	}

	switch c.HID.Backend {
	case "usbgadget", "mcu", "bluetooth", "ch9329", "none":
	default:
		return fmt.Errorf("config: unknown hid.backend %q", c.HID.Backend)
	}

	switch c.Auth.Internal {
	case "htpasswd", "ldap", "radius", "http":
	default:
		return fmt.Errorf("config: unknown auth.internal %q", c.Auth.Internal)
	}
	if c.Auth.Enabled && c.Auth.HtpasswdPath == "" {
		return fmt.Errorf("config: auth.htpasswd is required while auth is enabled")
	}

	if c.HID.RemapLo >= c.HID.RemapHi {
		return fmt.Errorf("config: hid mouse range is empty: [%d, %d]", c.HID.RemapLo, c.HID.RemapHi)
	}

	if c.MSD.Enabled && c.MSD.StorageRoot == "" {
		return fmt.Errorf("config: msd.storage is required while msd is enabled")
	}
	if c.Switch.Enabled && c.Switch.Device == "" {
		return fmt.Errorf("config: switch.device is required while switch is enabled")
	}

	for name, ch := range c.GPIO.Channels {
		if _, ok := c.GPIO.Drivers[ch.Driver]; !ok {
			return fmt.Errorf("config: gpio channel %q references unknown driver %q", name, ch.Driver)
		}
		if ch.Mode != "input" && ch.Mode != "output" {
			return fmt.Errorf("config: gpio channel %q has invalid mode %q", name, ch.Mode)
		}
	}
	for name, drv := range c.GPIO.Drivers {
		switch drv.Type {
		case "gpiod":
			if drv.Chip == "" {
				return fmt.Errorf("config: gpio driver %q needs a chip path", name)
			}
		case "outlet":
			if drv.URL == "" {
				return fmt.Errorf("config: gpio driver %q needs a url", name)
			}
		default:
			return fmt.Errorf("config: gpio driver %q has unknown type %q", name, drv.Type)
		}
	}
	return nil
}

// Seconds converts a float seconds field to a Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Command kvmd is the KVM-over-IP daemon: it emulates keyboard/mouse
// and mass-storage peripherals toward the managed host and exposes the
// HTTP/WebSocket control plane over a unix socket toward operators.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/kvmd-go/kvmd/internal/api"
	"github.com/kvmd-go/kvmd/internal/atx"
	"github.com/kvmd-go/kvmd/internal/authmgr"
	"github.com/kvmd-go/kvmd/internal/config"
	"github.com/kvmd-go/kvmd/internal/discover"
	"github.com/kvmd-go/kvmd/internal/gpio"
	"github.com/kvmd-go/kvmd/internal/hid"
	"github.com/kvmd-go/kvmd/internal/hid/bluetooth"
	"github.com/kvmd-go/kvmd/internal/hid/ch9329"
	"github.com/kvmd-go/kvmd/internal/hid/mcu"
	"github.com/kvmd-go/kvmd/internal/hid/usbgadget"
	"github.com/kvmd-go/kvmd/internal/keymap"
	"github.com/kvmd-go/kvmd/internal/klog"
	"github.com/kvmd-go/kvmd/internal/kvmswitch"
	"github.com/kvmd-go/kvmd/internal/msd"
	"github.com/kvmd-go/kvmd/internal/orchestrator"
	"github.com/kvmd-go/kvmd/internal/primitives"
	"github.com/kvmd-go/kvmd/internal/pst"
	"github.com/kvmd-go/kvmd/internal/streamer"
	"github.com/kvmd-go/kvmd/internal/wsrv"
)

// USB vendor ids used to resolve "auto" device paths via udev.
const (
	switchVendorID = "2e8a" // RP2040-class switch chain controller
	mcuVendorID    = "1209" // pid.codes HID bridge
)

func main() {
	configPath := pflag.StringP("config", "c", "/etc/kvmd/kvmd.yaml", "configuration file")
	logLevel := pflag.String("log-level", "", "override logging.level")
	socket := pflag.String("socket", "", "override server.unix_socket")
	pflag.Parse()

	if err := run(*configPath, *logLevel, *socket); err != nil {
		fmt.Fprintln(os.Stderr, "kvmd:", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel, socket string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if socket != "" {
		cfg.Server.UnixSocket = socket
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logBuf := klog.NewBuffer()
	logger := klog.New(cfg.Logging.Level, logBuf)

	var auth *authmgr.Manager
	if cfg.Auth.Enabled {
		auth = authmgr.New(authmgr.Config{
			Backend:  buildAuthBackend(cfg.Auth),
			UIDUsers: cfg.Auth.UnixPeers,
			TokenTTL: config.Seconds(cfg.Auth.TokenTTL),
		})
	}

	server := wsrv.New(wsrv.Config{
		SocketPath:   cfg.Server.UnixSocket,
		SocketMode:   os.FileMode(cfg.Server.UnixSocketMode),
		HeartbeatDur: config.Seconds(cfg.Server.Heartbeat),
	}, auth, logger)

	orch := orchestrator.New(server, logger)
	comps := api.Components{
		Auth:   auth,
		LogBuf: logBuf,
		Meta:   map[string]any{"daemon": "kvmd"},
	}

	// GPIO model backs both the user GPIO surface and ATX.
	model := gpio.NewModel()
	if err := buildGPIO(cfg.GPIO, model); err != nil {
		return err
	}
	if len(cfg.GPIO.Channels) > 0 {
		if err := model.Prepare(); err != nil {
			return err
		}
		comps.GPIO = model
		orch.AddComponent(orchestrator.Component{
			Name: "gpio",
			Tasks: []orchestrator.Task{{Name: "run", Run: func(ctx context.Context) error {
				model.Run(ctx)
				return ctx.Err()
			}}},
			Cleanup: model.Cleanup,
		})
		orch.AddStateSource(orchestrator.StateSource{
			Name:     "gpio",
			Notifier: model.Notifier(),
			State:    func() any { return gpioState(model) },
		})
	}

	if cfg.ATX.Enabled {
		panel := atx.New(atx.Config{
			PowerLEDChannel:    cfg.ATX.PowerLEDChannel,
			HDDLEDChannel:      cfg.ATX.HDDLEDChannel,
			PowerSwitchChannel: cfg.ATX.PowerSwitchChannel,
			ResetSwitchChannel: cfg.ATX.ResetSwitchChannel,
			ClickDelay:         config.Seconds(cfg.ATX.ClickDelay),
			LongClickDelay:     config.Seconds(cfg.ATX.LongClickDelay),
		}, model)
		comps.ATX = panel
		orch.AddStateSource(orchestrator.StateSource{
			Name:     "atx",
			Notifier: panel.Notifier(),
			State:    func() any { return panel.State() },
		})
	}

	facade, hidTasks, err := buildHID(cfg.HID, logger)
	if err != nil {
		return err
	}
	if facade != nil {
		comps.HID = facade
		orch.AddComponent(orchestrator.Component{
			Name:    "hid",
			Tasks:   hidTasks,
			Cleanup: facade.Cleanup,
		})
		orch.AddStateSource(orchestrator.StateSource{
			Name:     "hid",
			Notifier: facade.Notifier(),
			State:    func() any { return facade.GetState() },
		})
	}

	if cfg.MSD.Enabled {
		engine, tasks, notifier, err := buildMSD(cfg.MSD, logger)
		if err != nil {
			return err
		}
		comps.MSD = engine
		orch.AddComponent(orchestrator.Component{
			Name:  "msd",
			Tasks: tasks,
			Cleanup: func() {
				if err := engine.SetConnected(false); err != nil {
					logger.Warn("msd cleanup", "err", err)
				}
			},
		})
		orch.AddStateSource(orchestrator.StateSource{
			Name:     "msd",
			Notifier: notifier,
			State: func() any {
				return map[string]any{"connected": engine.Drive.Connected}
			},
		})
	}

	if cfg.Switch.Enabled {
		svc, tasks, cache, err := buildSwitch(cfg.Switch, cfg.PST, logger)
		if err != nil {
			return err
		}
		comps.Switch = svc
		orch.AddComponent(orchestrator.Component{Name: "switch", Tasks: tasks})
		orch.AddStateSource(orchestrator.StateSource{
			Name:     "switch",
			Notifier: cache.Notifier(),
			State:    func() any { return svc.State() },
		})
	}

	if cfg.Streamer.UnixSocket != "" || len(cfg.Streamer.Command) > 0 {
		s := streamer.New(streamer.Config{
			Command:    cfg.Streamer.Command,
			UnixSocket: cfg.Streamer.UnixSocket,
		}, logger)
		comps.Streamer = s
		orch.AddComponent(orchestrator.Component{Name: "streamer", Cleanup: s.Cleanup})
		orch.AddStateSource(orchestrator.StateSource{
			Name:     "streamer",
			Notifier: s.Notifier(),
			State:    func() any { return s.State() },
		})
	}

	a := api.New(comps, logger)
	server.Register(a)
	a.RegisterWS(server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("kvmd starting", "socket", cfg.Server.UnixSocket)
	return orch.Run(ctx)
}

func buildAuthBackend(cfg config.Auth) authmgr.Backend {
	internal := authmgr.NewHtpasswdBackend(cfg.HtpasswdPath)

	var external authmgr.Backend
	switch cfg.Internal {
	case "ldap":
		external = &authmgr.LDAPBackend{
			Addr:       cfg.LDAP.Address,
			DNTemplate: cfg.LDAP.UserAttr + "=%s," + cfg.LDAP.BaseDN,
		}
	case "radius":
		external = &authmgr.RADIUSBackend{
			Addr:   cfg.RADIUS.Address,
			Secret: cfg.RADIUS.Secret,
		}
	case "http":
		external = &authmgr.HTTPBackend{
			URL:     cfg.HTTP.URL,
			Timeout: config.Seconds(cfg.HTTP.Timeout),
		}
	default:
		return internal
	}
	return authmgr.NewCompositeBackend(internal, external, cfg.ForceInternal)
}

func buildGPIO(cfg config.GPIO, model *gpio.Model) error {
	notify := func() { model.Notifier().Notify(0) }

	for name, drv := range cfg.Drivers {
		switch drv.Type {
		case "gpiod":
			model.AddDriver(name, gpio.NewChardevDriver(drv.Chip, "kvmd", notify))
		case "outlet":
			model.AddDriver(name, gpio.NewHTTPOutletDriver(
				drv.URL,
				config.Seconds(drv.Timeout),
				config.Seconds(drv.PollInterval),
				notify,
			))
		}
	}

	for name, ch := range cfg.Channels {
		mode := gpio.PinInput
		if ch.Mode == "output" {
			mode = gpio.PinOutput
		}
		err := model.AddChannel(name, gpio.ChannelConfig{
			Driver:          ch.Driver,
			Pin:             ch.Pin,
			Mode:            mode,
			Inverted:        ch.Inverted,
			DebounceSeconds: ch.Debounce,
			Initial:         ch.Initial,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func gpioState(model *gpio.Model) map[string]any {
	state := map[string]any{}
	for _, name := range model.Channels() {
		if ch, err := model.Read(name); err == nil {
			state[name] = ch
		}
	}
	return state
}

func buildHID(cfg config.HID, logger *log.Logger) (*hid.Facade, []orchestrator.Task, error) {
	var backend hid.Backend
	var tasks []orchestrator.Task

	switch cfg.Backend {
	case "none":
		return nil, nil, nil
	case "usbgadget":
		backend = usbgadget.New(usbgadget.Config{
			KeyboardDevice: cfg.USBGadget.KeyboardDevice,
			MouseDevice:    cfg.USBGadget.MouseDevice,
			WriteRetries:   cfg.USBGadget.WriteRetries,
			WriteTimeout:   config.Seconds(cfg.USBGadget.WriteTimeout),
		}, cfg.Win98Fix)
	case "mcu":
		device := cfg.MCU.Device
		if device == "auto" {
			var err error
			device, err = discover.SerialByVendor(mcuVendorID, "")
			if err != nil {
				return nil, nil, err
			}
		}
		transport, err := mcu.OpenSerial(device, cfg.MCU.Baud, config.Seconds(cfg.MCU.ReadTimeout))
		if err != nil {
			return nil, nil, err
		}
		var reset *mcu.ResetLine
		if cfg.MCU.ResetChip != "" {
			reset, err = mcu.OpenResetLine(cfg.MCU.ResetChip, cfg.MCU.ResetPin, cfg.MCU.SelfReset)
			if err != nil {
				return nil, nil, err
			}
		}
		backend = mcu.New(transport, reset, mcu.Config{
			ReadRetries:     cfg.MCU.ReadRetries,
			CommonRetries:   cfg.MCU.CommonRetries,
			ErrorsThreshold: cfg.MCU.ErrorsThreshold,
		}, logger)
	case "bluetooth":
		bt := bluetooth.New(cfg.Bluetooth.RevokeOnClose)
		backend = bt
		tasks = append(tasks, orchestrator.Task{Name: "bt-serve", Run: func(ctx context.Context) error {
			adapter, err := bluetooth.OpenAdapter("/org/bluez/hci0")
			if err != nil {
				return err
			}
			defer adapter.Close()
			return bt.Serve(ctx, bluetooth.ServeConfig{Adapter: adapter, Alias: "KVM Keyboard/Mouse"}, logger)
		}})
	case "ch9329":
		b, err := ch9329.Open(cfg.CH9329.Device, cfg.CH9329.Baud)
		if err != nil {
			return nil, nil, err
		}
		backend = b
	}

	facade := hid.NewFacade(backend, cfg.RemapLo, cfg.RemapHi, cfg.Jiggler.Absolute)
	facade.SetParams(hid.Params{
		JigglerEnabled:  cfg.Jiggler.Enabled,
		JigglerActive:   cfg.Jiggler.Active,
		JigglerInterval: config.Seconds(cfg.Jiggler.Interval),
	})

	var ignore []int
	for _, name := range cfg.IgnoreKeys {
		if entry, ok := keymap.ByWebName(name); ok {
			ignore = append(ignore, entry.USBUsage)
		}
	}
	facade.SetIgnoreKeys(ignore)

	tasks = append(tasks, orchestrator.Task{Name: "jiggler", Run: func(ctx context.Context) error {
		facade.RunJiggler(ctx)
		return ctx.Err()
	}})
	return facade, tasks, nil
}

func buildMSD(cfg config.MSD, logger *log.Logger) (*msd.Engine, []orchestrator.Task, *primitives.Notifier, error) {
	storage := &msd.Storage{Root: cfg.StorageRoot, RemountCmd: cfg.RemountCmd}
	engine := msd.NewEngine(storage, msd.LUNPaths{
		File:    cfg.Gadget.File,
		CDROM:   cfg.Gadget.CDROM,
		RO:      cfg.Gadget.RO,
		UDC:     cfg.Gadget.UDC,
		UDCName: cfg.Gadget.UDCName,
	})
	engine.SyncChunkSize = cfg.SyncChunkSize
	engine.ReadChunkSize = cfg.ReadChunkSize
	engine.RemoveIncomplete = cfg.RemoveIncomplete

	// Initial image: selected and left disconnected awaiting operator
	// action.
	if cfg.InitialImage != "" {
		if err := engine.SetParams(cfg.InitialImage, cfg.InitialCDROM); err != nil {
			logger.Warn("msd: initial image not selected", "image", cfg.InitialImage, "err", err)
		}
	}

	notifier := primitives.NewNotifier()
	reconciler, err := msd.NewReconciler(cfg.StorageRoot, config.Seconds(cfg.ScanDebounce),
		func() { notifier.Notify(0) },
		func() {
			logger.Warn("msd: storage root vanished, forcing disconnect")
			if err := engine.SetConnected(false); err != nil {
				logger.Warn("msd: forced disconnect", "err", err)
			}
			notifier.Notify(1)
		},
	)
	if err != nil {
		return nil, nil, nil, err
	}

	tasks := []orchestrator.Task{{Name: "reconcile", Run: func(ctx context.Context) error {
		reconciler.Run(ctx)
		return ctx.Err()
	}}}
	return engine, tasks, notifier, nil
}

func buildSwitch(cfg config.Switch, pstCfg config.PST, logger *log.Logger) (*kvmswitch.Service, []orchestrator.Task, *kvmswitch.StateCache, error) {
	var store kvmswitch.PersistStore
	var client *pst.Client
	if pstCfg.Root != "" {
		client = pst.NewController(pstCfg.Root, pstCfg.RemountCmd).Client()
		store = client
	}

	device := cfg.Device
	if device == "auto" {
		var err error
		device, err = discover.SerialByVendor(switchVendorID, "")
		if err != nil {
			return nil, nil, nil, err
		}
	}

	cache := kvmswitch.NewStateCache(store)
	chain := kvmswitch.NewChain(device, cfg.IgnoreHPDOnTop, logger, cache)
	svc := kvmswitch.NewService(chain, cache)
	restoreSwitch(svc, client, logger)
	chain.SetActual(true)

	tasks := []orchestrator.Task{
		{Name: "chain", Run: func(ctx context.Context) error {
			chain.Run(ctx)
			return ctx.Err()
		}},
		{Name: "events", Run: func(ctx context.Context) error {
			return drainSwitchEvents(ctx, chain, logger)
		}},
	}
	return svc, tasks, cache, nil
}

// restoreSwitch replays persisted port attributes into a fresh
// Service.
func restoreSwitch(svc *kvmswitch.Service, client *pst.Client, logger *log.Logger) {
	if client == nil {
		return
	}

	var names map[int]string
	var power, longPower, reset map[int]float64
	for key, out := range map[string]any{
		"switch.port_names":              &names,
		"switch.power_click_delays":      &power,
		"switch.long_power_click_delays": &longPower,
		"switch.reset_click_delays":      &reset,
	} {
		if _, err := client.Get(key, out); err != nil {
			logger.Warn("pst: restore", "key", key, "err", err)
		}
	}
	svc.Ports().Restore(names, power, longPower, reset)
}

func drainSwitchEvents(ctx context.Context, chain *kvmswitch.Chain, logger *log.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-chain.Events():
			switch e := ev.(type) {
			case kvmswitch.DeviceFoundEvent:
				logger.Info("switch: device found")
			case kvmswitch.ChainTruncatedEvent:
				logger.Info("switch: chain truncated", "units", e.Units)
			case kvmswitch.PortActivatedEvent:
				logger.Info("switch: port activated", "port", e.Port)
			}
		}
	}
}

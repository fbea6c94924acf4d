package gpio

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	gpiocdev "github.com/warthog618/go-gpiocdev"
)

// resyncInterval mirrors the "1s without events" watchdog.
const resyncInterval = time.Second

type pinState struct {
	value    bool
	inverted bool
}

// ChardevDriver drives GPIO lines directly off a /dev/gpiochipN device.
// Debouncing is pushed down to the kernel via
// gpiocdev's per-line debounce period rather than reimplemented in a
// userspace consumer task.
type ChardevDriver struct {
	chipPath string
	consumer string
	notify   func()

	mu          sync.Mutex
	inputs      map[int]*pinState
	debounce    map[int]time.Duration
	outputs     map[int]bool
	initial     map[int]*bool
	lastEventAt time.Time

	chip        *gpiocdev.Chip
	inputLines  map[int]*gpiocdev.Line
	outputLines map[int]*gpiocdev.Line
}

// NewChardevDriver builds a driver bound to chipPath (e.g.
// "/dev/gpiochip0"); notify is invoked whenever an input value
// changes or a resync finds one drifted.
func NewChardevDriver(chipPath, consumer string, notify func()) *ChardevDriver {
	return &ChardevDriver{
		chipPath: chipPath,
		consumer: consumer,
		notify:   notify,
		inputs:   map[int]*pinState{},
		debounce: map[int]time.Duration{},
		outputs:  map[int]bool{},
		initial:  map[int]*bool{},
	}
}

func parsePin(pin string) (int, error) {
	n, err := strconv.Atoi(pin)
	if err != nil {
		return 0, fmt.Errorf("gpio: invalid chardev pin %q: %w", pin, err)
	}
	return n, nil
}

// RegisterInput records pin as a both-edge input; debounceSeconds is
// applied as the line's kernel debounce period.
func (d *ChardevDriver) RegisterInput(pin string, inverted bool, debounceSeconds float64) error {
	offset, err := parsePin(pin)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs[offset] = &pinState{inverted: inverted}
	d.debounce[offset] = time.Duration(debounceSeconds * float64(time.Second))
	return nil
}

// RegisterOutput records pin as an output line with an optional
// initial value applied at Prepare time.
func (d *ChardevDriver) RegisterOutput(pin string, initial *bool) error {
	offset, err := parsePin(pin)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initial[offset] = initial
	return nil
}

// Prepare opens the chip and requests every registered line.
func (d *ChardevDriver) Prepare() error {
	chip, err := gpiocdev.NewChip(d.chipPath)
	if err != nil {
		return fmt.Errorf("gpio: open %s: %w", d.chipPath, err)
	}
	d.chip = chip

	d.inputLines = make(map[int]*gpiocdev.Line, len(d.inputs))
	for offset := range d.inputs {
		offset := offset
		opts := []gpiocdev.LineReqOption{
			gpiocdev.WithConsumer(d.consumer),
			gpiocdev.AsInput,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) { d.onEvent(offset, evt) }),
		}
		if debounce := d.debounce[offset]; debounce > 0 {
			opts = append(opts, gpiocdev.WithDebounce(debounce))
		}
		line, err := chip.RequestLine(offset, opts...)
		if err != nil {
			return fmt.Errorf("gpio: request input line %d: %w", offset, err)
		}
		d.inputLines[offset] = line

		value, err := line.Value()
		if err != nil {
			return fmt.Errorf("gpio: read initial value of line %d: %w", offset, err)
		}
		d.mu.Lock()
		d.inputs[offset].value = value != 0
		d.mu.Unlock()
	}

	d.outputLines = make(map[int]*gpiocdev.Line, len(d.initial))
	for offset, initial := range d.initial {
		v := 0
		if initial != nil && *initial {
			v = 1
		}
		line, err := chip.RequestLine(offset, gpiocdev.WithConsumer(d.consumer), gpiocdev.AsOutput(v))
		if err != nil {
			return fmt.Errorf("gpio: request output line %d: %w", offset, err)
		}
		d.outputLines[offset] = line
		d.mu.Lock()
		d.outputs[offset] = v != 0
		d.mu.Unlock()
	}
	return nil
}

func (d *ChardevDriver) onEvent(offset int, evt gpiocdev.LineEvent) {
	value := evt.Type == gpiocdev.LineEventRisingEdge
	d.mu.Lock()
	state, ok := d.inputs[offset]
	if ok {
		state.value = value
	}
	d.lastEventAt = time.Now()
	d.mu.Unlock()
	if ok && d.notify != nil {
		d.notify()
	}
}

// Run watches for a gap longer than resyncInterval between edge
// events and forces a full re-read of every input line when one
// happens, since the kernel drops events past its per-line buffer
// rather than blocking.
func (d *ChardevDriver) Run(ctx context.Context) {
	ticker := time.NewTicker(resyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			stale := time.Since(d.lastEventAt) >= resyncInterval
			d.mu.Unlock()
			if stale {
				d.resync()
			}
		}
	}
}

func (d *ChardevDriver) resync() {
	changed := false
	d.mu.Lock()
	for offset, line := range d.inputLines {
		value, err := line.Value()
		if err != nil {
			continue
		}
		v := value != 0
		if d.inputs[offset].value != v {
			d.inputs[offset].value = v
			changed = true
		}
	}
	d.mu.Unlock()
	if changed && d.notify != nil {
		d.notify()
	}
}

// Cleanup releases every requested line and the chip handle.
func (d *ChardevDriver) Cleanup() {
	for _, line := range d.inputLines {
		_ = line.Close()
	}
	for _, line := range d.outputLines {
		_ = line.Close()
	}
	if d.chip != nil {
		_ = d.chip.Close()
	}
}

// Read returns an input's debounced, inversion-applied value, or an
// output's last-written value.
func (d *ChardevDriver) Read(pin string) (bool, error) {
	offset, err := parsePin(pin)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if state, ok := d.inputs[offset]; ok {
		return state.value != state.inverted, nil
	}
	if v, ok := d.outputs[offset]; ok {
		return v, nil
	}
	return false, fmt.Errorf("gpio: unknown pin %q", pin)
}

// Write sets an output line's value.
func (d *ChardevDriver) Write(pin string, value bool) error {
	offset, err := parsePin(pin)
	if err != nil {
		return err
	}
	line, ok := d.outputLines[offset]
	if !ok {
		return fmt.Errorf("gpio: pin %q is not a registered output", pin)
	}
	v := 0
	if value {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("gpio: write line %d: %w", offset, err)
	}
	d.mu.Lock()
	d.outputs[offset] = value
	d.mu.Unlock()
	return nil
}

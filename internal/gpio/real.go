//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the four button lines from actual Raspberry Pi hardware.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines map[Button]*gpiocdev.Line
}

// NewRealReader requests the four button lines as inputs with internal
// pull-ups, matching the active-low wiring.
func NewRealReader(pinUp, pinDown, pinDefrost, pinAlarm int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	pins := map[Button]int{
		ButtonUp:      pinUp,
		ButtonDown:    pinDown,
		ButtonDefrost: pinDefrost,
		ButtonAlarm:   pinAlarm,
	}

	lines := make(map[Button]*gpiocdev.Line, len(pins))
	for btn, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			for _, l := range lines {
				l.Close()
			}
			chip.Close()
			return nil, fmt.Errorf("request button pin %d: %w", pin, err)
		}
		lines[btn] = line
	}

	return &RealReader{chip: chip, lines: lines}, nil
}

// Read returns the raw electrical state of each button line.
func (r *RealReader) Read() (map[Button]bool, error) {
	out := make(map[Button]bool, len(r.lines))
	for btn, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return nil, fmt.Errorf("read button %d: %w", btn, err)
		}
		out[btn] = v != 0
	}
	return out, nil
}

// Close releases GPIO resources.
func (r *RealReader) Close() error {
	var errs []error
	for _, line := range r.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.chip.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealWriter drives the four relay lines on actual Raspberry Pi hardware.
type RealWriter struct {
	chip  *gpiocdev.Chip
	lines map[Relay]*gpiocdev.Line
}

// NewRealWriter requests the four relay lines as outputs, initially
// de-energised.
func NewRealWriter(pinCompressor, pinFan, pinValve, pinElectricHeater int) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	pins := map[Relay]int{
		RelayCompressor:     pinCompressor,
		RelayFan:            pinFan,
		RelayValve:          pinValve,
		RelayElectricHeater: pinElectricHeater,
	}

	lines := make(map[Relay]*gpiocdev.Line, len(pins))
	for relay, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			for _, l := range lines {
				l.Close()
			}
			chip.Close()
			return nil, fmt.Errorf("request relay pin %d: %w", pin, err)
		}
		lines[relay] = line
	}

	return &RealWriter{chip: chip, lines: lines}, nil
}

// Write sets the physical output level for a relay.
func (w *RealWriter) Write(r Relay, level bool) error {
	line, ok := w.lines[r]
	if !ok {
		return fmt.Errorf("unknown relay: %d", r)
	}
	v := 0
	if level {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("write relay %d: %w", r, err)
	}
	return nil
}

// Close de-energises and releases all relay lines.
func (w *RealWriter) Close() error {
	var errs []error
	for _, line := range w.lines {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, err)
		}
		if err := line.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.chip.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

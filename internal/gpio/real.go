//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives an actual output line using Linux GPIO character device.
type RealWriter struct {
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	pin       int
	activeLow bool
}

// NewRealWriter requests pin on chip as an output, initially inactive.
// With activeLow set, "high" means the physical line is pulled to 0V.
func NewRealWriter(chipName string, pin int, activeLow bool) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}

	return &RealWriter{chip: chip, line: line, pin: pin, activeLow: activeLow}, nil
}

// SetHigh drives the line active.
func (w *RealWriter) SetHigh() error {
	if err := w.line.SetValue(1); err != nil {
		return fmt.Errorf("set pin %d high: %w", w.pin, err)
	}
	return nil
}

// SetLow drives the line inactive.
func (w *RealWriter) SetLow() error {
	if err := w.line.SetValue(0); err != nil {
		return fmt.Errorf("set pin %d low: %w", w.pin, err)
	}
	return nil
}

// releaseBias is the bias applied when the line is handed back as an input.
// It holds the physical line at the inactive level: low normally, high for
// an active-low driver.
func releaseBias(activeLow bool) gpiocdev.LineBias {
	if activeLow {
		return gpiocdev.WithPullUp
	}
	return gpiocdev.WithPullDown
}

// Close releases GPIO resources.
// The motor is stopped first, then the line is reconfigured to input biased
// to the inactive level so nothing keeps driving the motor driver after the
// process exits.
func (w *RealWriter) Close() error {
	var errs []error

	if w.line != nil {
		if err := w.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive pin %d low: %w", w.pin, err))
		}
		if err := w.line.Reconfigure(gpiocdev.AsInput, releaseBias(w.activeLow)); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", w.pin, err))
		}
		if err := w.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", w.pin, err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

//go:build !linux

package gpio

import "errors"

// RealWriter is not available on non-Linux platforms.
type RealWriter struct{}

// NewRealWriter returns an error on non-Linux platforms.
func NewRealWriter(chipName string, pin int, activeLow bool) (*RealWriter, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetHigh is not implemented on non-Linux platforms.
func (w *RealWriter) SetHigh() error {
	return errors.New("gpio: not supported")
}

// SetLow is not implemented on non-Linux platforms.
func (w *RealWriter) SetLow() error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (w *RealWriter) Close() error {
	return nil
}

// Package gpio provides GPIO output driving with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives a single GPIO output line.
type Writer interface {
	// SetHigh drives the line active (motor ON).
	SetHigh() error

	// SetLow drives the line inactive (motor OFF).
	SetLow() error

	// Close drives the line low and releases GPIO resources.
	Close() error
}

// Defaults for a Raspberry Pi Pico-style wiring on a Pi header.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 16 // motor driver input

	// Consumer is the label the line is requested with (visible in gpioinfo).
	Consumer = "motor-switch"
)

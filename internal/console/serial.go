package console

import (
	"fmt"
	"os"

	"go.bug.st/serial"
)

// DefaultBaud matches the USB CDC console of most microcontroller boards.
const DefaultBaud = 115200

// Stdio is the device name that selects stdin/stdout instead of a serial port.
const Stdio = "-"

// Open returns a Port for device: "" or "-" reads stdin and writes stdout,
// anything else is opened as a serial device at baud, 8N1.
// Reads block with no timeout.
func Open(device string, baud int) (Port, error) {
	if device == "" || device == Stdio {
		return NewLinePort(os.Stdin, os.Stdout, nil), nil
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return NewLinePort(port, port, port), nil
}

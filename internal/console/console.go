// Package console provides line-framed command input from stdin or a serial
// device, and the pump that feeds lines into the command loop.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.bug.st/serial"
)

// Port is a line-oriented, bidirectional text stream.
type Port interface {
	// ReadLine blocks until one line is available and returns it without
	// its terminator. Failures are returned as *InputError.
	ReadLine() (string, error)

	// WriteLine writes s followed by a newline.
	WriteLine(s string) error

	// Close releases the stream. For a serial device this also unblocks a
	// pending ReadLine; a read blocked on stdin stays blocked until input
	// arrives or the process exits.
	Close() error
}

// InputError reports a failed read from the input stream.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsClosed reports whether err means the port itself was closed, so no
// further read can succeed. io.EOF is not closed: a terminal can send
// more lines after Ctrl-D.
func IsClosed(err error) bool {
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return true
	}
	var pe *serial.PortError
	return errors.As(err, &pe) && pe.Code() == serial.PortClosed
}

// LinePort frames an arbitrary reader/writer pair into lines.
type LinePort struct {
	r      *bufio.Reader
	w      io.Writer
	closer io.Closer
}

// NewLinePort creates a LinePort. closer may be nil.
func NewLinePort(r io.Reader, w io.Writer, closer io.Closer) *LinePort {
	return &LinePort{
		r:      bufio.NewReader(r),
		w:      w,
		closer: closer,
	}
}

// ReadLine returns the next line with "\n" or "\r\n" stripped.
// A final unterminated line is returned as-is; the following call reports EOF.
// EOF is not sticky: the next call reads the underlying stream again.
func (p *LinePort) ReadLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", &InputError{Err: err}
	}

	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// WriteLine writes s followed by a newline.
func (p *LinePort) WriteLine(s string) error {
	if p.w == nil {
		return nil
	}
	if _, err := io.WriteString(p.w, s+"\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// Close closes the underlying stream, if it has a closer.
func (p *LinePort) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

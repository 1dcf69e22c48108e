package console

import "io"

// ScriptLine is one scripted ReadLine result.
type ScriptLine struct {
	Text string
	Err  error // returned wrapped in *InputError when set
}

// FakePort is a test double that returns scripted lines and records writes.
// Once the script is exhausted it behaves like a closed port.
type FakePort struct {
	Script []ScriptLine

	// index tracks current position in Script
	index int

	// Written contains every line written, in order.
	Written []string

	// WriteError, if set, will be returned by WriteLine.
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePort creates a FakePort that yields lines in order.
func NewFakePort(lines ...string) *FakePort {
	f := &FakePort{}
	for _, l := range lines {
		f.Script = append(f.Script, ScriptLine{Text: l})
	}
	return f
}

// ReadLine returns the next scripted line.
func (f *FakePort) ReadLine() (string, error) {
	if f.index >= len(f.Script) {
		return "", &InputError{Err: io.ErrClosedPipe}
	}
	s := f.Script[f.index]
	f.index++
	if s.Err != nil {
		return "", &InputError{Err: s.Err}
	}
	return s.Text, nil
}

// WriteLine records s.
func (f *FakePort) WriteLine(s string) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Written = append(f.Written, s)
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

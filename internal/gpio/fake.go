package gpio

// FakeWriter is a test double that records GPIO writes.
type FakeWriter struct {
	// Writes contains every level written, in order (true = high).
	Writes []bool

	// High is the current level of the line.
	High bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetHigh and SetLow.
	// The line level is left unchanged.
	SetError error
}

// NewFakeWriter creates a FakeWriter with the line low.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// SetHigh records a high write.
func (f *FakeWriter) SetHigh() error {
	return f.set(true)
}

// SetLow records a low write.
func (f *FakeWriter) SetLow() error {
	return f.set(false)
}

func (f *FakeWriter) set(high bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, high)
	f.High = high
	return nil
}

// Close drives the line low and marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.High = false
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.High = false
	f.Closed = false
	f.SetError = nil
}

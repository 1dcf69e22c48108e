// Package logic contains the pure command handling for the motor switch.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// The actuator is injected; time is always passed in by the caller.
package logic

import "time"

// State represents the logical state of the actuator pin.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Source identifies where a command came from.
type Source string

const (
	SourceSerial Source = "serial"
	SourceMQTT   Source = "mqtt"
	SourceHTTP   Source = "http"
)

// Result classifies the outcome of one loop iteration.
type Result string

const (
	ResultAccepted Result = "ACCEPTED"
	ResultUnknown  Result = "UNKNOWN"
	ResultInvalid  Result = "INVALID"
	ResultError    Result = "ERROR"
)

// Console messages. These are the exact strings written back to the input port.
const (
	MsgTurnedOn       = "Motor turned ON."
	MsgTurnedOff      = "Motor turned OFF."
	MsgInvalidState   = "Invalid state. Use 'ON' or 'OFF'."
	MsgUnknownCommand = "Unknown command. Use 'ON' or 'OFF'."
	msgErrorPrefix    = "Error: "
)

// EventType represents an accepted command to be published.
type EventType string

const (
	EventMotorOn  EventType = "MOTOR_ON"
	EventMotorOff EventType = "MOTOR_OFF"
)

// Request is one unit of work for the command loop.
type Request struct {
	Line   string // raw text, not yet normalized
	Source Source
	Err    error // input failure; Line is ignored when set

	// Reply, if non-nil, receives the outcome. It must be buffered so the
	// loop never blocks on a slow caller.
	Reply chan<- Outcome
}

// Outcome is the result of handling one Request.
type Outcome struct {
	Command string // normalized command, empty for input errors
	Result  Result
	State   State // actuator state after handling
	Message string
	Err     error
}

// Counts tracks outcomes since startup.
type Counts struct {
	On      int
	Off     int
	Unknown int
	Errors  int
}

// Event represents an accepted command to be published.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      EventType
	State     State
	Command   string
	Source    Source
}

// NewEvent builds the event for an accepted outcome.
// Returns false for any outcome that did not drive the pin.
func NewEvent(id string, ts time.Time, source Source, out Outcome) (Event, bool) {
	if out.Result != ResultAccepted {
		return Event{}, false
	}
	typ := EventMotorOff
	if out.State == StateOn {
		typ = EventMotorOn
	}
	return Event{
		ID:        id,
		Timestamp: ts,
		Type:      typ,
		State:     out.State,
		Command:   out.Command,
		Source:    source,
	}, true
}

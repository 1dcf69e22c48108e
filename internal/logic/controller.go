package logic

import (
	"errors"
	"strings"
)

// ErrInvalidState is returned by Control for a state other than ON or OFF.
var ErrInvalidState = errors.New("invalid state")

// Actuator drives the single output line.
type Actuator interface {
	SetHigh() error
	SetLow() error
}

// Controller owns the actuator and its logical state.
// Not safe for concurrent use: only the command loop calls it.
type Controller struct {
	pin    Actuator
	state  State
	counts Counts
}

// NewController creates a controller for pin. initial must match the level
// the pin was requested with (OFF for a freshly requested output line).
func NewController(pin Actuator, initial State) *Controller {
	if initial != StateOn {
		initial = StateOff
	}
	return &Controller{pin: pin, state: initial}
}

// Normalize trims surrounding whitespace and upper-cases a raw input line.
func Normalize(line string) string {
	return strings.ToUpper(strings.TrimSpace(line))
}

// Handle runs one loop iteration for req: input errors are reported,
// everything else is normalized and dispatched.
func (c *Controller) Handle(req Request) Outcome {
	if req.Err != nil {
		return c.InputError(req.Err)
	}
	return c.Dispatch(Normalize(req.Line))
}

// Dispatch interprets an already normalized command.
// Anything other than ON or OFF leaves the pin untouched.
func (c *Controller) Dispatch(command string) Outcome {
	switch command {
	case string(StateOn):
		return c.control(StateOn, command)
	case string(StateOff):
		return c.control(StateOff, command)
	}

	c.counts.Unknown++
	return Outcome{
		Command: command,
		Result:  ResultUnknown,
		State:   c.state,
		Message: MsgUnknownCommand,
	}
}

// Control drives the pin to state.
func (c *Controller) Control(state State) Outcome {
	return c.control(state, string(state))
}

func (c *Controller) control(state State, command string) Outcome {
	var err error
	switch state {
	case StateOn:
		err = c.pin.SetHigh()
	case StateOff:
		err = c.pin.SetLow()
	default:
		return Outcome{
			Command: command,
			Result:  ResultInvalid,
			State:   c.state,
			Message: MsgInvalidState,
			Err:     ErrInvalidState,
		}
	}

	if err != nil {
		c.counts.Errors++
		return Outcome{
			Command: command,
			Result:  ResultError,
			State:   c.state,
			Message: ErrorMessage(err),
			Err:     err,
		}
	}

	c.state = state
	if state == StateOn {
		c.counts.On++
		return Outcome{Command: command, Result: ResultAccepted, State: state, Message: MsgTurnedOn}
	}
	c.counts.Off++
	return Outcome{Command: command, Result: ResultAccepted, State: state, Message: MsgTurnedOff}
}

// InputError records a failed read and returns its outcome. State is unchanged.
func (c *Controller) InputError(err error) Outcome {
	c.counts.Errors++
	return Outcome{
		Result:  ResultError,
		State:   c.state,
		Message: ErrorMessage(err),
		Err:     err,
	}
}

// State returns the current actuator state.
func (c *Controller) State() State {
	return c.state
}

// Counts returns a copy of the outcome counters.
func (c *Controller) Counts() Counts {
	return c.counts
}

// ErrorMessage formats err the way it is reported on the console.
func ErrorMessage(err error) string {
	return msgErrorPrefix + err.Error()
}

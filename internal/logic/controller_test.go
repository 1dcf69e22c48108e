package logic

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/motor-switch/internal/gpio"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"on", "ON"},
		{"ON", "ON"},
		{" On ", "ON"},
		{"off\r\n", "OFF"},
		{"\tOfF\t", "OFF"},
		{"", ""},
		{"   ", ""},
		{"start", "START"},
		{"o n", "O N"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewControllerStartsOff(t *testing.T) {
	pin := gpio.NewFakeWriter()
	c := NewController(pin, StateOff)

	if c.State() != StateOff {
		t.Errorf("expected initial state OFF, got %s", c.State())
	}
	if len(pin.Writes) != 0 {
		t.Errorf("constructor should not write the pin, got %d writes", len(pin.Writes))
	}
}

func TestNewControllerUnknownInitialIsOff(t *testing.T) {
	c := NewController(gpio.NewFakeWriter(), State(""))
	if c.State() != StateOff {
		t.Errorf("expected OFF for empty initial state, got %s", c.State())
	}
}

func TestHandleOnVariants(t *testing.T) {
	for _, line := range []string{"on", "ON", " On "} {
		t.Run(line, func(t *testing.T) {
			pin := gpio.NewFakeWriter()
			c := NewController(pin, StateOff)

			out := c.Handle(Request{Line: line, Source: SourceSerial})

			if out.Result != ResultAccepted {
				t.Errorf("expected ACCEPTED, got %s", out.Result)
			}
			if out.State != StateOn || c.State() != StateOn {
				t.Errorf("expected state ON, got outcome=%s controller=%s", out.State, c.State())
			}
			if out.Message != "Motor turned ON." {
				t.Errorf("unexpected message: %q", out.Message)
			}
			if !pin.High {
				t.Error("expected pin high")
			}
		})
	}
}

func TestHandleOffVariants(t *testing.T) {
	for _, line := range []string{"off", "OFF"} {
		t.Run(line, func(t *testing.T) {
			pin := gpio.NewFakeWriter()
			c := NewController(pin, StateOff)
			c.Handle(Request{Line: "on"})

			out := c.Handle(Request{Line: line})

			if out.State != StateOff || c.State() != StateOff {
				t.Errorf("expected state OFF, got outcome=%s controller=%s", out.State, c.State())
			}
			if out.Message != "Motor turned OFF." {
				t.Errorf("unexpected message: %q", out.Message)
			}
			if pin.High {
				t.Error("expected pin low")
			}
		})
	}
}

func TestHandleUnknownLeavesStateUnchanged(t *testing.T) {
	for _, line := range []string{"start", "", "123", "onn", "o n"} {
		t.Run(line, func(t *testing.T) {
			pin := gpio.NewFakeWriter()
			c := NewController(pin, StateOff)
			c.Handle(Request{Line: "ON"})
			writes := len(pin.Writes)

			out := c.Handle(Request{Line: line})

			if out.Result != ResultUnknown {
				t.Errorf("expected UNKNOWN, got %s", out.Result)
			}
			if out.Message != "Unknown command. Use 'ON' or 'OFF'." {
				t.Errorf("unexpected message: %q", out.Message)
			}
			if c.State() != StateOn {
				t.Errorf("state should be unchanged (ON), got %s", c.State())
			}
			if len(pin.Writes) != writes {
				t.Errorf("unknown command should not touch the pin")
			}
		})
	}
}

func TestHandleIdempotentOn(t *testing.T) {
	pin := gpio.NewFakeWriter()
	c := NewController(pin, StateOff)

	first := c.Handle(Request{Line: "ON"})
	second := c.Handle(Request{Line: "ON"})

	for i, out := range []Outcome{first, second} {
		if out.Result != ResultAccepted {
			t.Errorf("outcome %d: expected ACCEPTED, got %s", i, out.Result)
		}
		if out.Message != MsgTurnedOn {
			t.Errorf("outcome %d: expected confirmation, got %q", i, out.Message)
		}
	}
	if c.State() != StateOn {
		t.Errorf("expected ON, got %s", c.State())
	}
	if c.Counts().On != 2 {
		t.Errorf("expected 2 ON counts, got %d", c.Counts().On)
	}
}

func TestHandleScenario(t *testing.T) {
	pin := gpio.NewFakeWriter()
	c := NewController(pin, StateOff)

	lines := []string{"on", "off", "xyz", "ON"}
	wantStates := []State{StateOn, StateOff, StateOff, StateOn}
	wantMessages := []string{MsgTurnedOn, MsgTurnedOff, MsgUnknownCommand, MsgTurnedOn}

	var messages []string
	for i, line := range lines {
		out := c.Handle(Request{Line: line})
		if c.State() != wantStates[i] {
			t.Errorf("step %d (%q): expected %s, got %s", i, line, wantStates[i], c.State())
		}
		messages = append(messages, out.Message)
	}

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	for i := range wantMessages {
		if messages[i] != wantMessages[i] {
			t.Errorf("message %d: got %q, want %q", i, messages[i], wantMessages[i])
		}
	}

	counts := c.Counts()
	if counts.On != 2 || counts.Off != 1 || counts.Unknown != 1 || counts.Errors != 0 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestHandleInputError(t *testing.T) {
	pin := gpio.NewFakeWriter()
	c := NewController(pin, StateOff)
	c.Handle(Request{Line: "on"})

	out := c.Handle(Request{Line: "off", Err: errors.New("device not configured")})

	if out.Result != ResultError {
		t.Errorf("expected ERROR, got %s", out.Result)
	}
	if out.Message != "Error: device not configured" {
		t.Errorf("unexpected message: %q", out.Message)
	}
	if c.State() != StateOn {
		t.Errorf("input error should leave state unchanged, got %s", c.State())
	}
	if c.Counts().Errors != 1 {
		t.Errorf("expected 1 error count, got %d", c.Counts().Errors)
	}

	// The next line is handled normally.
	out = c.Handle(Request{Line: "off"})
	if out.Result != ResultAccepted || c.State() != StateOff {
		t.Errorf("expected recovery to OFF, got %s / %s", out.Result, c.State())
	}
}

func TestHandlePinFailureLeavesStateUnchanged(t *testing.T) {
	pin := gpio.NewFakeWriter()
	c := NewController(pin, StateOff)
	pin.SetError = errors.New("line busy")

	out := c.Handle(Request{Line: "ON"})

	if out.Result != ResultError {
		t.Errorf("expected ERROR, got %s", out.Result)
	}
	if out.Message != "Error: line busy" {
		t.Errorf("unexpected message: %q", out.Message)
	}
	if out.State != StateOff || c.State() != StateOff {
		t.Errorf("expected state to stay OFF, got %s", c.State())
	}
	if !errors.Is(out.Err, pin.SetError) {
		t.Errorf("expected outcome to carry the pin error, got %v", out.Err)
	}
}

func TestControlInvalidState(t *testing.T) {
	pin := gpio.NewFakeWriter()
	c := NewController(pin, StateOff)

	out := c.Control(State("HALF"))

	if out.Result != ResultInvalid {
		t.Errorf("expected INVALID, got %s", out.Result)
	}
	if out.Message != "Invalid state. Use 'ON' or 'OFF'." {
		t.Errorf("unexpected message: %q", out.Message)
	}
	if !errors.Is(out.Err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", out.Err)
	}
	if len(pin.Writes) != 0 {
		t.Error("invalid state should not touch the pin")
	}
}

func TestControlValidStates(t *testing.T) {
	pin := gpio.NewFakeWriter()
	c := NewController(pin, StateOff)

	if out := c.Control(StateOn); out.Message != MsgTurnedOn {
		t.Errorf("unexpected message: %q", out.Message)
	}
	if out := c.Control(StateOff); out.Message != MsgTurnedOff {
		t.Errorf("unexpected message: %q", out.Message)
	}
}

func TestNewEvent(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ev, ok := NewEvent("abc", ts, SourceSerial, Outcome{Command: "ON", Result: ResultAccepted, State: StateOn})
	if !ok {
		t.Fatal("expected event for accepted outcome")
	}
	if ev.Type != EventMotorOn {
		t.Errorf("expected MOTOR_ON, got %s", ev.Type)
	}
	if ev.ID != "abc" || !ev.Timestamp.Equal(ts) || ev.Source != SourceSerial || ev.Command != "ON" {
		t.Errorf("unexpected event: %+v", ev)
	}

	ev, ok = NewEvent("def", ts, SourceMQTT, Outcome{Command: "OFF", Result: ResultAccepted, State: StateOff})
	if !ok || ev.Type != EventMotorOff {
		t.Errorf("expected MOTOR_OFF event, got %+v (ok=%v)", ev, ok)
	}

	for _, r := range []Result{ResultUnknown, ResultInvalid, ResultError} {
		if _, ok := NewEvent("x", ts, SourceSerial, Outcome{Result: r}); ok {
			t.Errorf("expected no event for %s", r)
		}
	}
}

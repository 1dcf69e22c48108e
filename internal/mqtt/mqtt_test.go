package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/motor-switch/internal/logic"
)

func testEvent() logic.Event {
	return logic.Event{
		ID:        "cv1d2k8l0s4c73a0b0g0",
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventMotorOn,
		State:     logic.StateOn,
		Command:   "ON",
		Source:    logic.SourceSerial,
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(testEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Motor.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Motor.Timestamp)
	}
	if parsed.Motor.Event != "MOTOR_ON" {
		t.Errorf("unexpected event: %s", parsed.Motor.Event)
	}
	if parsed.Motor.State != "ON" {
		t.Errorf("unexpected state: %s", parsed.Motor.State)
	}
	if parsed.Motor.Source != "serial" {
		t.Errorf("unexpected source: %s", parsed.Motor.Source)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	payload, err := FormatPayload(testEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"motor":{"id":"cv1d2k8l0s4c73a0b0g0","timestamp":"2026-02-02T22:18:12Z","event":"MOTOR_ON","state":"ON","command":"ON","source":"serial"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	event := testEvent()
	event.Timestamp = time.Date(2026, 2, 3, 12, 0, 0, 0, loc)

	payload, _ := FormatPayload(event)
	var parsed Payload
	json.Unmarshal(payload, &parsed)

	if parsed.Motor.Timestamp != "2026-02-03T10:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Motor.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "home/motor-switch/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "home/motor-switch/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
	if TopicCommand != "home/motor-switch/command" {
		t.Errorf("unexpected command topic: %s", TopicCommand)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, _ := FormatSystemPayload(event)
	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRawPayload(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestCommandRequest(t *testing.T) {
	req := CommandRequest([]byte(" on\n"))
	if req.Source != logic.SourceMQTT {
		t.Errorf("expected mqtt source, got %s", req.Source)
	}
	if req.Line != " on\n" {
		t.Errorf("payload should be passed through untouched, got %q", req.Line)
	}
	if req.Err != nil || req.Reply != nil {
		t.Errorf("unexpected request fields: %+v", req)
	}
}

func TestForwardCommandQueueFull(t *testing.T) {
	out := make(chan logic.Request, 1)

	if !forwardCommand(out, CommandRequest([]byte("ON"))) {
		t.Fatal("first forward should succeed")
	}
	if forwardCommand(out, CommandRequest([]byte("OFF"))) {
		t.Error("forward into a full queue should fail without blocking")
	}

	req := <-out
	if req.Line != "ON" {
		t.Errorf("expected queued ON, got %q", req.Line)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher(nil)

	if err := f.Publish(testEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if f.Events[0].Type != logic.EventMotorOn {
		t.Errorf("unexpected event type: %s", f.Events[0].Type)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher(nil)
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(testEvent()); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Errorf("expected no events recorded on error, got %d", len(f.Events))
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher(nil)
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGINT",
		Retained:  true,
	}

	if err := f.PublishSystem(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.SystemEvents))
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected retained flag to be recorded")
	}
	if len(f.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(f.SystemPayloads))
	}

	f.PublishSystemError = errors.New("simulated error")
	if err := f.PublishSystem(event); err == nil {
		t.Error("expected error")
	}
	if len(f.SystemEvents) != 1 {
		t.Errorf("failed publish should not be recorded")
	}
}

func TestFakePublisherDeliver(t *testing.T) {
	commands := make(chan logic.Request, 1)
	f := NewFakePublisher(commands)

	if !f.Deliver([]byte("off")) {
		t.Fatal("expected delivery to succeed")
	}
	req := <-commands
	if req.Line != "off" || req.Source != logic.SourceMQTT {
		t.Errorf("unexpected request: %+v", req)
	}

	if NewFakePublisher(nil).Deliver([]byte("on")) {
		t.Error("delivery without subscriber should fail")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher(nil)
	f.Publish(testEvent())
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true
	f.PublishError = errors.New("error")

	f.Reset()

	if len(f.Events) != 0 || len(f.Payloads) != 0 {
		t.Error("events should be cleared")
	}
	if len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("system events should be cleared")
	}
	if f.Closed || f.Connected {
		t.Error("flags should be reset")
	}
	if f.PublishError != nil {
		t.Error("error should be cleared")
	}
}

func TestFakePublisherImplementsInterfaces(t *testing.T) {
	var _ Publisher = NewFakePublisher(nil)
	var _ ConnectionStatus = NewFakePublisher(nil)
}

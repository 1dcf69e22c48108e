// Package mqtt provides MQTT publishing and command subscription with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/motor-switch/internal/logic"
)

// Topic is the MQTT topic for accepted motor commands.
const Topic = "home/motor-switch/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/motor-switch/system"

// TopicCommand is the MQTT topic the daemon subscribes to for ON/OFF commands.
const TopicCommand = "home/motor-switch/command"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a motor event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Motor MotorPayload `json:"motor"`
}

// MotorPayload contains the motor event details.
type MotorPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Command   string `json:"command"`
	Source    string `json:"source"`
}

// FormatPayload creates the JSON payload for a motor event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Motor: MotorPayload{
			ID:        event.ID,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     string(event.State),
			Command:   event.Command,
			Source:    string(event.Source),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// CommandRequest turns a command-topic payload into a loop request.
// The payload is passed through untouched; the loop normalizes it.
func CommandRequest(payload []byte) logic.Request {
	return logic.Request{Line: string(payload), Source: logic.SourceMQTT}
}

// forwardCommand hands req to the loop without blocking the MQTT client.
// Returns false if the loop's queue is full.
func forwardCommand(out chan<- logic.Request, req logic.Request) bool {
	select {
	case out <- req:
		return true
	default:
		return false
	}
}

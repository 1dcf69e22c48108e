package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Motor         string       `json:"motor"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Last          *LastJSON    `json:"last_command,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of outcome counts.
type CountsJSON struct {
	On      int `json:"on"`
	Off     int `json:"off"`
	Unknown int `json:"unknown"`
	Errors  int `json:"errors"`
}

// LastJSON is the JSON representation of the last handled request.
type LastJSON struct {
	Command   string `json:"command"`
	Source    string `json:"source"`
	Result    string `json:"result"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Device      string `json:"device"`
	Baud        int    `json:"baud"`
	Chip        string `json:"chip"`
	Pin         int    `json:"pin"`
	ActiveLow   bool   `json:"active_low"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	History     bool   `json:"history"`
}

func buildInner(snap Snapshot) StatusInner {
	motor := string(snap.Motor)
	if motor == "" {
		motor = "UNKNOWN"
	}

	inner := StatusInner{
		Motor:         motor,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			On:      snap.Counts.On,
			Off:     snap.Counts.Off,
			Unknown: snap.Counts.Unknown,
			Errors:  snap.Counts.Errors,
		},
		Config: ConfigJSON{
			Device:      snap.Config.Device,
			Baud:        snap.Config.Baud,
			Chip:        snap.Config.Chip,
			Pin:         snap.Config.Pin,
			ActiveLow:   snap.Config.ActiveLow,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			History:     snap.Config.History,
		},
	}

	if snap.Last != nil {
		inner.Last = &LastJSON{
			Command:   snap.Last.Command,
			Source:    string(snap.Last.Source),
			Result:    string(snap.Last.Result),
			Message:   snap.Last.Message,
			Timestamp: snap.Last.Time.UTC().Format(time.RFC3339),
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

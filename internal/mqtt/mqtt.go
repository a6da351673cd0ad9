// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/testpod-monitor/internal/monitor"
)

// Topic is the MQTT topic for rail transition events.
const Topic = "testpod/rails/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "testpod/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a rail event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event monitor.Event) error

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
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "DNA_READY"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Rail RailPayload `json:"rail"`
}

// RailPayload contains the rail event details.
type RailPayload struct {
	Timestamp  string      `json:"timestamp"`
	Event      string      `json:"event"`
	Rail       string      `json:"rail"`
	Millivolts uint32      `json:"millivolts"`
	Status     StatusState `json:"status"`
}

// StatusState is the whole status field at the time of the event.
type StatusState struct {
	Field uint8           `json:"field"`
	Rails map[string]bool `json:"rails"`
}

// FormatPayload creates the JSON payload for a rail event.
func FormatPayload(event monitor.Event) ([]byte, error) {
	rails := make(map[string]bool, monitor.NumRails)
	for _, r := range monitor.Rails {
		rails[r.String()] = event.Status.Good(r)
	}
	payload := Payload{
		Rail: RailPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Rail:       event.Rail.String(),
			Millivolts: event.Millivolts,
			Status: StatusState{
				Field: uint8(event.Status & monitor.StatusMask),
				Rails: rails,
			},
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

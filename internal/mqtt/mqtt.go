// Package mqtt provides MQTT publishing and keypoint subscription with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/squat-coach/internal/logic"
)

// Topic is the MQTT topic for rep events.
const Topic = "fitness/squat/coach/reps"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "fitness/squat/coach/system"

// TopicLandmarks is the MQTT topic the pose model publishes keypoints on.
const TopicLandmarks = "fitness/squat/pose/landmarks"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventSessionEnd  = "SESSION_END"
	EventReconnected = "RECONNECTED"
	EventOffline     = "OFFLINE"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a rep event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(rep RepEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// RepEvent is a scored rep tagged with the session it belongs to.
type RepEvent struct {
	Session string
	Event   logic.Event
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SESSION_END", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SUCCESS"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Rep RepPayload `json:"rep"`
}

// RepPayload contains the rep event details.
type RepPayload struct {
	Timestamp string        `json:"timestamp"`
	Session   string        `json:"session"`
	Event     string        `json:"event"`
	Fault     string        `json:"fault"`
	Counts    CountsPayload `json:"counts"`
	Feedback  string        `json:"feedback"`
}

// CountsPayload carries the session totals after the rep.
type CountsPayload struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// FormatPayload creates the JSON payload for a rep event.
func FormatPayload(rep RepEvent) ([]byte, error) {
	e := rep.Event
	payload := Payload{
		Rep: RepPayload{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			Session:   rep.Session,
			Event:     string(e.Type),
			Fault:     string(e.Fault),
			Counts:    CountsPayload{Correct: e.Counts.Correct, Incorrect: e.Counts.Incorrect},
			Feedback:  e.Feedback,
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

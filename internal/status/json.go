package status

import (
	"encoding/json"
	"math"
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
	Session       SessionJSON  `json:"session"`
	Posture       PostureJSON  `json:"posture"`
	Feedback      string       `json:"feedback"`
	Frames        FramesJSON   `json:"frames"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SessionJSON is the current session.
type SessionJSON struct {
	ID          string `json:"id"`
	StartTime   string `json:"start_time"`
	Correct     int    `json:"correct"`
	Incorrect   int    `json:"incorrect"`
	Ended       int    `json:"ended"`
	LastOutcome string `json:"last_outcome,omitempty"`
}

// PostureJSON is the posture of the latest processed frame.
type PostureJSON struct {
	State       string  `json:"state"`
	FaultRaised bool    `json:"fault_raised"`
	Knee        float64 `json:"knee"`
	Hip         float64 `json:"hip"`
	Ankle       float64 `json:"ankle"`
}

// FramesJSON counts received frames.
type FramesJSON struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Stale     int `json:"stale"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
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
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPPort     string `json:"http_port"`
	Source       string `json:"source"`
	LEDPin       int    `json:"led_pin"`
	SuccessAfter int    `json:"success_after"`
	MaxAttempts  int    `json:"max_attempts"`
	WSBroker     string `json:"ws_broker,omitempty"`
}

// StateLabel is the display name of a posture state.
func StateLabel(s string) string {
	if s == "" {
		return "NONE"
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Session: SessionJSON{
			ID:          snap.SessionID,
			Correct:     snap.Counts.Correct,
			Incorrect:   snap.Counts.Incorrect,
			Ended:       snap.Sessions,
			LastOutcome: string(snap.LastOutcome),
		},
		Posture: PostureJSON{
			State:       StateLabel(string(snap.State)),
			FaultRaised: snap.FaultRaised,
			Knee:        round1(snap.Angles.Knee),
			Hip:         round1(snap.Angles.Hip),
			Ankle:       round1(snap.Angles.Ankle),
		},
		Feedback: snap.Feedback,
		Frames: FramesJSON{
			Processed: snap.Frames,
			Skipped:   snap.Skipped,
			Stale:     snap.Stale,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPPort:     snap.Config.HTTPPort,
			Source:       snap.Config.Source,
			LEDPin:       snap.Config.LEDPin,
			SuccessAfter: snap.Config.SuccessAfter,
			MaxAttempts:  snap.Config.MaxAttempts,
			WSBroker:     snap.Config.WSBroker,
		},
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	if !snap.SessionStart.IsZero() {
		inner.Session.StartTime = snap.SessionStart.UTC().Format(time.RFC3339)
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

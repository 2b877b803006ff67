// Package status provides a thread-safe status tracker for the squat-coach daemon.
// It is read by HTTP handlers and by MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/squat-coach/internal/logic"
)

// NetworkInfo is the host network state reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	HeartbeatMs  int64
	Broker       string
	HTTPPort     string
	Source       string // "mqtt" or the replay file path
	LEDPin       int    // -1 when disabled
	SuccessAfter int
	MaxAttempts  int
	WSBroker     string // websocket broker URL for the live page (empty = disabled)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Counts      logic.RepCounts
	Feedback    string
	State       logic.PostureState
	FaultRaised bool
	Angles      logic.Angles

	SessionID    string
	SessionStart time.Time
	LastOutcome  logic.SessionOutcome
	Sessions     int // sessions ended since startup

	Frames  int
	Skipped int
	Stale   int

	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update copies the outcome of one frame.
// Called from the frame loop on every frame.
func (t *Tracker) Update(res logic.Result) {
	t.mu.Lock()
	t.snap.Counts = logic.RepCounts{Correct: res.Correct, Incorrect: res.Incorrect}
	t.snap.Feedback = res.Feedback
	t.snap.FaultRaised = res.FaultRaised
	if !res.Skipped {
		t.snap.State = res.State
		t.snap.Angles = res.Angles
	}
	t.mu.Unlock()
}

// SetFrames sets the frame totals.
func (t *Tracker) SetFrames(processed, skipped, stale int) {
	t.mu.Lock()
	t.snap.Frames = processed
	t.snap.Skipped = skipped
	t.snap.Stale = stale
	t.mu.Unlock()
}

// StartSession begins a new session with zeroed counts.
func (t *Tracker) StartSession(id string, start time.Time) {
	t.mu.Lock()
	t.snap.SessionID = id
	t.snap.SessionStart = start
	t.snap.Counts = logic.RepCounts{}
	t.snap.Feedback = ""
	t.snap.State = logic.StateNone
	t.snap.FaultRaised = false
	t.snap.Angles = logic.Angles{}
	t.mu.Unlock()
}

// EndSession records how the current session ended.
func (t *Tracker) EndSession(outcome logic.SessionOutcome) {
	t.mu.Lock()
	t.snap.LastOutcome = outcome
	t.snap.Sessions++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info. A nil info clears it.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	if info != nil {
		c := *info
		info = &c
	}
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// Package logic contains the pure squat-rep state machine.
// This package has NO I/O dependencies (no MQTT, GPIO, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"time"
)

// ErrMissingLandmarks is returned when a frame has no keypoints or fewer
// than the tracker needs.
var ErrMissingLandmarks = errors.New("missing landmarks")

// Landmark indices following the MediaPipe Pose convention.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28

	// MinLandmarks is the shortest landmark list the tracker accepts.
	MinLandmarks = RightAnkle + 1
)

// Keypoint is a single landmark in normalized frame coordinates (0..1).
// Y grows downward, so y=0 is the top edge of the frame.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmarks is the ordered keypoint list produced by the pose model.
type Landmarks []Keypoint

// Validate reports ErrMissingLandmarks if the list is absent or too short.
func (l Landmarks) Validate() error {
	if len(l) < MinLandmarks {
		return ErrMissingLandmarks
	}
	return nil
}

// PostureState is the discretized knee-vertical angle band.
type PostureState string

const (
	StateNone     PostureState = ""
	StateStanding PostureState = "s1"
	StateTrans    PostureState = "s2"
	StateSquat    PostureState = "s3"
)

// Fault is a form violation detected mid-rep.
type Fault string

const (
	FaultNone        Fault = ""
	FaultBackAngle   Fault = "BACK_ANGLE"
	FaultKneeOverToe Fault = "KNEE_OVER_TOE"
	FaultTooDeep     Fault = "TOO_DEEP"
)

// Feedback strings shown to the athlete.
const (
	FeedbackPerfect     = "Perfect squat! 🎉"
	FeedbackIncorrect   = "Incorrect form! Check your posture."
	FeedbackBackAngle   = "Keep your back straight!"
	FeedbackKneeOverToe = "Knees going too far over toes!"
	FeedbackTooDeep     = "Squat too deep!"
)

// FeedbackFor returns the feedback string for a fault.
func FeedbackFor(f Fault) string {
	switch f {
	case FaultBackAngle:
		return FeedbackBackAngle
	case FaultKneeOverToe:
		return FeedbackKneeOverToe
	case FaultTooDeep:
		return FeedbackTooDeep
	}
	return ""
}

// EventType identifies a counted rep.
type EventType string

const (
	EventRepCorrect   EventType = "REP_CORRECT"
	EventRepIncorrect EventType = "REP_INCORRECT"
)

// RepCounts tracks scored reps since the session started.
type RepCounts struct {
	Correct   int
	Incorrect int
}

// Attempts returns the total number of scored reps.
func (c RepCounts) Attempts() int {
	return c.Correct + c.Incorrect
}

// Event represents a scored rep to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// Fault is the last fault raised during the attempt (incorrect reps only).
	Fault    Fault
	Counts   RepCounts
	Feedback string
}

// Angles holds the joint angles derived from one frame, in degrees.
type Angles struct {
	Knee  float64
	Hip   float64
	Ankle float64
}

// RepState is the explicitly owned per-rep state. The zero value is an
// empty state ready for the first frame.
type RepState struct {
	// Seq holds the recorded posture states of the current attempt.
	Seq []PostureState
	// IncorrectPosture is raised when any fault fires during the attempt.
	IncorrectPosture bool
	// LastFault is the most recent fault raised during the attempt.
	LastFault Fault
	// Prev is the previous processed frame's state.
	Prev PostureState
}

// Reset clears the attempt at a rep boundary. Prev is kept.
func (s *RepState) Reset() {
	s.Seq = s.Seq[:0]
	s.IncorrectPosture = false
	s.LastFault = FaultNone
}

// Input represents a single frame of keypoints.
type Input struct {
	Landmarks Landmarks
	Time      time.Time
}

// Result is the observable output of one tracker frame.
type Result struct {
	Correct     int
	Incorrect   int
	Feedback    string
	FaultRaised bool

	// Skipped is set when the frame had missing landmarks.
	Skipped bool
	State   PostureState
	Angles  Angles
	// Fault is the fault detected on this frame, if any.
	Fault Fault
	// Event is non-nil when this frame completed a scored rep.
	Event *Event
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    RepCounts
	Frames    int
	Skipped   int
}

// Package pose provides keypoint frame sources with abstraction for testing.
// Frames are produced by an external pose-estimation model and arrive over
// MQTT or from a JSONL replay file.
package pose

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/squat-coach/internal/logic"
)

// Frame is one pose-model result.
type Frame struct {
	Timestamp time.Time
	Landmarks logic.Landmarks
}

// Source delivers frames to the frame loop.
type Source interface {
	// Frames returns the channel frames are delivered on. The channel is
	// closed when the source is exhausted or closed.
	Frames() <-chan Frame

	// Close stops the source.
	Close() error
}

// Payload is the wire format of a frame.
type Payload struct {
	Timestamp string           `json:"timestamp,omitempty"`
	Landmarks []logic.Keypoint `json:"landmarks"`
}

// DecodeFrame parses a frame payload. A payload without a timestamp is
// stamped with now. Absent landmarks are not an error here; the tracker
// skips such frames.
func DecodeFrame(data []byte, now time.Time) (Frame, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	ts := now
	if p.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, p.Timestamp)
		if err != nil {
			return Frame{}, fmt.Errorf("decode frame timestamp: %w", err)
		}
		ts = parsed
	}

	return Frame{Timestamp: ts, Landmarks: p.Landmarks}, nil
}

// EncodeFrame creates the wire payload for a frame.
func EncodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(Payload{
		Timestamp: f.Timestamp.UTC().Format(time.RFC3339Nano),
		Landmarks: f.Landmarks,
	})
}

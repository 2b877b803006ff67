package pose

import (
	"math"
	"time"

	"github.com/sweeney/squat-coach/internal/logic"
)

// FakeSource is a test double that delivers scripted frames.
type FakeSource struct {
	frames chan Frame

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeSource creates a FakeSource preloaded with frames. The channel
// closes after the last frame is read.
func NewFakeSource(frames []Frame) *FakeSource {
	ch := make(chan Frame, len(frames))
	for _, f := range frames {
		ch <- f
	}
	close(ch)
	return &FakeSource{frames: ch}
}

// Frames returns the scripted frames.
func (f *FakeSource) Frames() <-chan Frame {
	return f.frames
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Synthesize builds a 33-point landmark list whose derived knee, hip and
// ankle angles equal the arguments, in degrees. Both legs are identical.
func Synthesize(knee, hip, ankle float64) logic.Landmarks {
	l := make(logic.Landmarks, 33)
	kneePt := logic.Keypoint{X: 0.5, Y: 0.6}

	kr := knee * math.Pi / 180
	hipPt := logic.Keypoint{X: kneePt.X + 0.2*math.Sin(kr), Y: kneePt.Y - 0.2*math.Cos(kr)}

	// Shoulder: hip->knee direction rotated by hip degrees.
	dx, dy := kneePt.X-hipPt.X, kneePt.Y-hipPt.Y
	n := math.Hypot(dx, dy)
	hr := hip * math.Pi / 180
	sx := (dx*math.Cos(hr) - dy*math.Sin(hr)) / n
	sy := (dx*math.Sin(hr) + dy*math.Cos(hr)) / n
	shoulderPt := logic.Keypoint{X: hipPt.X + 0.25*sx, Y: hipPt.Y + 0.25*sy}

	ar := ankle * math.Pi / 180
	anklePt := logic.Keypoint{X: kneePt.X - 0.2*math.Sin(ar), Y: kneePt.Y + 0.2*math.Cos(ar)}

	l[logic.Nose] = logic.Keypoint{X: shoulderPt.X, Y: shoulderPt.Y - 0.1}
	l[logic.LeftShoulder], l[logic.RightShoulder] = shoulderPt, shoulderPt
	l[logic.LeftHip], l[logic.RightHip] = hipPt, hipPt
	l[logic.LeftKnee], l[logic.RightKnee] = kneePt, kneePt
	l[logic.LeftAnkle], l[logic.RightAnkle] = anklePt, anklePt
	return l
}

// Knee angles that land mid-band with the default thresholds.
const (
	KneeStanding = 10
	KneeTrans    = 60
	KneeSquat    = 100
)

// Sequence returns frames with clean form for each knee angle, spaced step apart.
func Sequence(start time.Time, step time.Duration, knees ...float64) []Frame {
	out := make([]Frame, len(knees))
	for i, k := range knees {
		out[i] = Frame{
			Timestamp: start.Add(time.Duration(i) * step),
			Landmarks: Synthesize(k, 90, 20),
		}
	}
	return out
}

// CorrectRep is the knee-angle path of one clean rep.
func CorrectRep() []float64 {
	return []float64{KneeTrans, KneeSquat, KneeTrans, KneeStanding}
}

// ShallowRep is the knee-angle path of a rep that never reaches depth.
func ShallowRep() []float64 {
	return []float64{KneeTrans, KneeStanding}
}

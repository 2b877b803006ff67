package logic

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

func vec(k Keypoint) r2.Vec {
	return r2.Vec{X: k.X, Y: k.Y}
}

// FindAngle returns the angle at p2 formed by p1 and p3, in degrees [0, 180].
func FindAngle(p1, p2, p3 Keypoint) float64 {
	a := r2.Sub(vec(p3), vec(p2))
	b := r2.Sub(vec(p1), vec(p2))
	radians := math.Atan2(a.Y, a.X) - math.Atan2(b.Y, b.X)
	angle := math.Abs(radians * 180 / math.Pi)
	if angle > 180 {
		angle = 360 - angle
	}
	return angle
}

// verticalRef returns the point at the top edge of the frame directly
// above k.
func verticalRef(k Keypoint) Keypoint {
	return Keypoint{X: k.X, Y: 0}
}

// ComputeAngles derives the knee, hip and ankle angles from a validated
// landmark list. The knee angle averages both legs; hip and ankle use the
// left side only.
func ComputeAngles(l Landmarks) Angles {
	leftKnee := FindAngle(l[LeftHip], l[LeftKnee], verticalRef(l[LeftKnee]))
	rightKnee := FindAngle(l[RightHip], l[RightKnee], verticalRef(l[RightKnee]))

	return Angles{
		Knee:  stat.Mean([]float64{leftKnee, rightKnee}, nil),
		Hip:   FindAngle(l[LeftShoulder], l[LeftHip], l[LeftKnee]),
		Ankle: FindAngle(l[LeftKnee], l[LeftAnkle], verticalRef(l[LeftAnkle])),
	}
}

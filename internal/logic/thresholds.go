package logic

import "fmt"

// Band is a closed numeric interval in degrees.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max].
func (b Band) Contains(v float64) bool {
	return b.Min <= v && v <= b.Max
}

// Thresholds is the immutable angle configuration for one tracker.
// Pass it by value; nothing in this package mutates it.
type Thresholds struct {
	// Knee-vertical bands for posture classification.
	Normal Band
	Trans  Band
	Pass   Band

	// Hip is the shoulder-hip-knee bound; only Max is enforced.
	Hip Band
	// Ankle is the knee-over-toe bound.
	Ankle float64
	// Knee holds the knee bands; Knee[2] is the "too deep" bound.
	Knee [3]float64
}

// DefaultThresholds returns the stock squat thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Normal: Band{0, 45},
		Trans:  Band{45, 90},
		Pass:   Band{90, 135},
		Hip:    Band{60, 120},
		Ankle:  80,
		Knee:   [3]float64{50, 100, 130},
	}
}

// TooDeep returns the excessive depth bound.
func (t Thresholds) TooDeep() float64 {
	return t.Knee[2]
}

// Validate checks that bands are well formed and ordered.
func (t Thresholds) Validate() error {
	bands := []struct {
		name string
		b    Band
	}{
		{"normal", t.Normal},
		{"trans", t.Trans},
		{"pass", t.Pass},
		{"hip", t.Hip},
	}
	for _, nb := range bands {
		if nb.b.Min > nb.b.Max {
			return fmt.Errorf("%s band: min %.1f > max %.1f", nb.name, nb.b.Min, nb.b.Max)
		}
		if nb.b.Min < 0 || nb.b.Max > 180 {
			return fmt.Errorf("%s band: [%.1f, %.1f] outside [0, 180]", nb.name, nb.b.Min, nb.b.Max)
		}
	}
	if t.Normal.Max > t.Trans.Min || t.Trans.Max > t.Pass.Min {
		return fmt.Errorf("posture bands out of order: normal %v, trans %v, pass %v", t.Normal, t.Trans, t.Pass)
	}
	if t.Ankle < 0 || t.Ankle > 180 {
		return fmt.Errorf("ankle bound %.1f outside [0, 180]", t.Ankle)
	}
	if t.Knee[0] > t.Knee[1] || t.Knee[1] > t.Knee[2] {
		return fmt.Errorf("knee bands not ascending: %v", t.Knee)
	}
	return nil
}

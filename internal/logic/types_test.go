package logic

import "testing"

func TestLandmarksValidate(t *testing.T) {
	if err := Landmarks(nil).Validate(); err != ErrMissingLandmarks {
		t.Errorf("nil: got %v, want ErrMissingLandmarks", err)
	}
	if err := make(Landmarks, MinLandmarks-1).Validate(); err != ErrMissingLandmarks {
		t.Errorf("short: got %v, want ErrMissingLandmarks", err)
	}
	if err := make(Landmarks, MinLandmarks).Validate(); err != nil {
		t.Errorf("complete: unexpected error %v", err)
	}
}

func TestFeedbackFor(t *testing.T) {
	want := map[Fault]string{
		FaultBackAngle:   FeedbackBackAngle,
		FaultKneeOverToe: FeedbackKneeOverToe,
		FaultTooDeep:     FeedbackTooDeep,
		FaultNone:        "",
	}
	for f, s := range want {
		if got := FeedbackFor(f); got != s {
			t.Errorf("FeedbackFor(%q): got %q, want %q", f, got, s)
		}
	}
}

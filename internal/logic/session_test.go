package logic

import "testing"

func TestSessionPolicyEvaluate(t *testing.T) {
	p := DefaultSessionPolicy()
	tests := []struct {
		counts RepCounts
		want   SessionOutcome
	}{
		{RepCounts{}, SessionOngoing},
		{RepCounts{Correct: 10}, SessionOngoing},
		{RepCounts{Correct: 11}, SessionSuccess},
		{RepCounts{Correct: 5, Incorrect: 44}, SessionOngoing},
		{RepCounts{Correct: 5, Incorrect: 45}, SessionFailure},
		{RepCounts{Incorrect: 50}, SessionFailure},
		{RepCounts{Correct: 11, Incorrect: 39}, SessionSuccess},
	}
	for _, tt := range tests {
		if got := p.Evaluate(tt.counts); got != tt.want {
			t.Errorf("Evaluate(%+v): got %q, want %q", tt.counts, got, tt.want)
		}
	}
}

func TestSessionPolicyDisabledLimits(t *testing.T) {
	p := SessionPolicy{}
	if got := p.Evaluate(RepCounts{Correct: 1000, Incorrect: 1000}); got != SessionOngoing {
		t.Errorf("zero policy should never end a session, got %q", got)
	}
}

package logic

import (
	"slices"
	"time"
)

// RepOutcome is the scoring decision taken at a rep boundary.
type RepOutcome int

const (
	OutcomeNone RepOutcome = iota
	OutcomeCorrect
	OutcomeIncorrect
)

// StepResult is what one frame did to a RepState.
type StepResult struct {
	Skipped bool
	State   PostureState
	Angles  Angles
	// Fault is the fault detected on this frame.
	Fault Fault
	// Outcome is set on s1 frames that closed a scored attempt.
	Outcome RepOutcome
	// RepFault is the fault that forced an incorrect outcome, if any.
	RepFault Fault
}

// Classify maps a knee-vertical angle to a posture state.
// Bands are checked in declared order so shared boundaries resolve low.
func (t Thresholds) Classify(kneeAngle float64) PostureState {
	switch {
	case t.Normal.Contains(kneeAngle):
		return StateStanding
	case t.Trans.Contains(kneeAngle):
		return StateTrans
	case t.Pass.Contains(kneeAngle):
		return StateSquat
	}
	return StateNone
}

// CheckForm returns the highest priority fault for a mid-rep frame.
func (t Thresholds) CheckForm(a Angles) Fault {
	switch {
	case a.Hip > t.Hip.Max:
		return FaultBackAngle
	case a.Ankle > t.Ankle:
		return FaultKneeOverToe
	case a.Knee > t.TooDeep():
		return FaultTooDeep
	}
	return FaultNone
}

// RecordTransition appends state to the sequence when the ordering rules
// allow it: one s2 before the bottom, one s3, one s2 after.
func (s *RepState) RecordTransition(state PostureState) {
	hasSquat := slices.Contains(s.Seq, StateSquat)
	trans := s.count(StateTrans)

	switch state {
	case StateTrans:
		if (!hasSquat && trans == 0) || (hasSquat && trans == 1) {
			s.Seq = append(s.Seq, state)
		}
	case StateSquat:
		if !hasSquat && trans > 0 {
			s.Seq = append(s.Seq, state)
		}
	}
}

func (s *RepState) count(state PostureState) int {
	n := 0
	for _, v := range s.Seq {
		if v == state {
			n++
		}
	}
	return n
}

// complete reports whether the sequence is exactly [s2, s3, s2].
func (s *RepState) complete() bool {
	return len(s.Seq) == 3
}

// shallow reports whether the attempt never got past the first s2.
func (s *RepState) shallow() bool {
	return len(s.Seq) == 1 && s.Seq[0] == StateTrans
}

// Step advances st by one frame. Missing landmarks leave st untouched.
func Step(t Thresholds, st *RepState, l Landmarks) StepResult {
	if l.Validate() != nil {
		return StepResult{Skipped: true}
	}

	angles := ComputeAngles(l)
	state := t.Classify(angles.Knee)
	res := StepResult{State: state, Angles: angles}

	st.RecordTransition(state)

	if state == StateStanding {
		switch {
		case st.complete() && !st.IncorrectPosture:
			res.Outcome = OutcomeCorrect
		case st.IncorrectPosture || st.shallow():
			res.Outcome = OutcomeIncorrect
			res.RepFault = st.LastFault
		}
		st.Reset()
	} else if fault := t.CheckForm(angles); fault != FaultNone {
		res.Fault = fault
		st.IncorrectPosture = true
		st.LastFault = fault
	}

	st.Prev = state
	return res
}

// Tracker scores squat reps frame by frame. It is not safe for concurrent
// use; a single goroutine owns it.
type Tracker struct {
	thresholds    Thresholds
	state         RepState
	counts        RepCounts
	feedback      string
	startTime     time.Time
	lastHeartbeat time.Time
	frames        int
	skipped       int
}

// NewTracker creates a tracker with the given thresholds.
// The startTime is used for calculating uptime in heartbeat events.
func NewTracker(t Thresholds, startTime time.Time) *Tracker {
	return &Tracker{
		thresholds:    t,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// OnFrame processes one frame and returns the updated counters and feedback.
func (tr *Tracker) OnFrame(in Input) Result {
	step := Step(tr.thresholds, &tr.state, in.Landmarks)
	if step.Skipped {
		tr.skipped++
		return tr.result(step)
	}
	tr.frames++

	if step.Fault != FaultNone {
		tr.feedback = FeedbackFor(step.Fault)
	}

	var event *Event
	switch step.Outcome {
	case OutcomeCorrect:
		tr.counts.Correct++
		tr.feedback = FeedbackPerfect
		event = tr.event(in.Time, EventRepCorrect, FaultNone)
	case OutcomeIncorrect:
		tr.counts.Incorrect++
		tr.feedback = FeedbackIncorrect
		event = tr.event(in.Time, EventRepIncorrect, step.RepFault)
	}

	res := tr.result(step)
	res.Event = event
	return res
}

func (tr *Tracker) event(ts time.Time, typ EventType, fault Fault) *Event {
	return &Event{
		Timestamp: ts,
		Type:      typ,
		Fault:     fault,
		Counts:    tr.counts,
		Feedback:  tr.feedback,
	}
}

func (tr *Tracker) result(step StepResult) Result {
	return Result{
		Correct:     tr.counts.Correct,
		Incorrect:   tr.counts.Incorrect,
		Feedback:    tr.feedback,
		FaultRaised: tr.state.IncorrectPosture,
		Skipped:     step.Skipped,
		State:       step.State,
		Angles:      step.Angles,
		Fault:       step.Fault,
	}
}

// Counts returns the scored reps so far.
func (tr *Tracker) Counts() RepCounts {
	return tr.counts
}

// Feedback returns the latest feedback string.
func (tr *Tracker) Feedback() string {
	return tr.feedback
}

// Thresholds returns the tracker's configuration.
func (tr *Tracker) Thresholds() Thresholds {
	return tr.thresholds
}

// State returns a copy of the current rep state.
func (tr *Tracker) State() RepState {
	s := tr.state
	s.Seq = slices.Clone(tr.state.Seq)
	return s
}

// Reset starts a new session: counts, feedback and rep state are cleared.
// Frame totals and heartbeat timing are daemon-wide and survive.
func (tr *Tracker) Reset() {
	tr.counts = RepCounts{}
	tr.feedback = ""
	tr.state = RepState{}
}

// FrameCounts returns the number of processed and skipped frames.
func (tr *Tracker) FrameCounts() (processed, skipped int) {
	return tr.frames, tr.skipped
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed or is <= 0 (disabled).
func (tr *Tracker) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(tr.lastHeartbeat) < interval {
		return nil
	}

	tr.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(tr.startTime),
		Counts:    tr.counts,
		Frames:    tr.frames,
		Skipped:   tr.skipped,
	}
}

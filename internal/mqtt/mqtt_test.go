package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sweeney/squat-coach/internal/logic"
	"github.com/sweeney/squat-coach/internal/pose"
)

var testTime = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func correctRep() RepEvent {
	return RepEvent{
		Session: "5f0c6a8e-1d9b-4b8f-9b43-0d1d6f1c2a77",
		Event: logic.Event{
			Timestamp: testTime,
			Type:      logic.EventRepCorrect,
			Counts:    logic.RepCounts{Correct: 1},
			Feedback:  logic.FeedbackPerfect,
		},
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	payload, err := FormatPayload(correctRep())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"rep":{"timestamp":"2026-02-02T22:18:12Z","session":"5f0c6a8e-1d9b-4b8f-9b43-0d1d6f1c2a77","event":"REP_CORRECT","fault":"","counts":{"correct":1,"incorrect":0},"feedback":"Perfect squat! 🎉"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadIncorrectRep(t *testing.T) {
	rep := RepEvent{
		Session: "s",
		Event: logic.Event{
			Timestamp: testTime.Add(250 * time.Millisecond),
			Type:      logic.EventRepIncorrect,
			Fault:     logic.FaultKneeOverToe,
			Counts:    logic.RepCounts{Correct: 2, Incorrect: 3},
			Feedback:  logic.FeedbackIncorrect,
		},
	}

	payload, err := FormatPayload(rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Rep.Timestamp != "2026-02-02T22:18:12.25Z" {
		t.Errorf("timestamp: got %s", parsed.Rep.Timestamp)
	}
	if parsed.Rep.Event != "REP_INCORRECT" {
		t.Errorf("event: got %s, want REP_INCORRECT", parsed.Rep.Event)
	}
	if parsed.Rep.Fault != "KNEE_OVER_TOE" {
		t.Errorf("fault: got %s, want KNEE_OVER_TOE", parsed.Rep.Fault)
	}
	if parsed.Rep.Counts != (CountsPayload{Correct: 2, Incorrect: 3}) {
		t.Errorf("counts: got %+v", parsed.Rep.Counts)
	}
	if parsed.Rep.Feedback != logic.FeedbackIncorrect {
		t.Errorf("feedback: got %q", parsed.Rep.Feedback)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	rep := correctRep()
	rep.Event.Timestamp = time.Date(2026, 2, 3, 0, 18, 12, 0, loc)

	payload, err := FormatPayload(rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Rep.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Rep.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "fitness/squat/coach/reps" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "fitness/squat/coach/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
	if TopicLandmarks != "fitness/squat/pose/landmarks" {
		t.Errorf("unexpected landmarks topic: %s", TopicLandmarks)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	tests := []struct {
		event    SystemEvent
		expected string
	}{
		{
			SystemEvent{Timestamp: testTime, Event: EventShutdown, Reason: "SIGTERM"},
			`{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`,
		},
		{
			SystemEvent{Timestamp: testTime, Event: EventReconnected},
			`{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`,
		},
		{
			SystemEvent{Timestamp: testTime, Event: EventOffline},
			`{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"OFFLINE"}}`,
		},
		{
			SystemEvent{Timestamp: testTime, Event: EventSessionEnd, Reason: "SUCCESS"},
			`{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SESSION_END","reason":"SUCCESS"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.event.Event, func(t *testing.T) {
			payload, err := FormatSystemPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.expected {
				t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), tt.expected)
			}
		})
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventStartup, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(correctRep()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Reps) != 1 {
		t.Fatalf("expected 1 rep, got %d", len(f.Reps))
	}
	if f.Reps[0].Event.Type != logic.EventRepCorrect {
		t.Errorf("unexpected event type: %s", f.Reps[0].Event.Type)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	if err := f.Publish(correctRep()); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSystem(SystemEvent{Event: EventHeartbeat}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Reps) != 0 || len(f.SystemEvents) != 0 {
		t.Errorf("expected nothing recorded on error, got %d reps, %d system", len(f.Reps), len(f.SystemEvents))
	}
}

func TestFakePublisherSystemEventOrder(t *testing.T) {
	f := NewFakePublisher()
	for _, e := range []string{EventStartup, EventHeartbeat, EventSessionEnd, EventShutdown} {
		if err := f.PublishSystem(SystemEvent{Timestamp: testTime, Event: e}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := fmt.Sprint(f.SystemEventNames())
	if got != "[STARTUP HEARTBEAT SESSION_END SHUTDOWN]" {
		t.Errorf("order: got %s", got)
	}
	if len(f.SystemPayloads) != 4 {
		t.Errorf("expected 4 payloads, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherCloseAndReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	f.Publish(correctRep())
	f.PublishSystem(SystemEvent{Event: EventStartup, Retained: true})

	if !f.SystemEvents[0].Retained {
		t.Error("retained flag not recorded")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed || f.Connected || len(f.Reps) != 0 || len(f.SystemEvents) != 0 || len(f.Payloads) != 0 {
		t.Errorf("reset left state behind: %+v", f)
	}

	// Reusable after reset
	if err := f.Publish(correctRep()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Reps) != 1 {
		t.Errorf("expected 1 rep after reset, got %d", len(f.Reps))
	}
}

func TestSubscriberDeliversFrames(t *testing.T) {
	s := newSubscriber(SubscribeOptions{Capacity: 4, Now: func() time.Time { return testTime }})

	data, err := pose.EncodeFrame(pose.Frame{Timestamp: testTime, Landmarks: pose.Synthesize(pose.KneeSquat, 90, 20)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s.handle(data)
	s.handle([]byte(`{"landmarks":null}`))

	f := <-s.Frames()
	if !f.Timestamp.Equal(testTime) {
		t.Errorf("timestamp: got %v", f.Timestamp)
	}
	if err := f.Landmarks.Validate(); err != nil {
		t.Errorf("expected complete landmarks: %v", err)
	}

	f = <-s.Frames()
	if !errors.Is(f.Landmarks.Validate(), logic.ErrMissingLandmarks) {
		t.Error("null landmarks should be delivered as missing")
	}
}

func TestSubscriberDropsWhenFull(t *testing.T) {
	drops := 0
	s := newSubscriber(SubscribeOptions{Capacity: 2, OnDrop: func() { drops++ }})

	for i := 0; i < 5; i++ {
		s.handle([]byte(`{"landmarks":[]}`))
	}
	if s.Dropped() != 3 {
		t.Errorf("dropped: got %d, want 3", s.Dropped())
	}
	if drops != 3 {
		t.Errorf("OnDrop calls: got %d, want 3", drops)
	}
	if len(s.Frames()) != 2 {
		t.Errorf("queued: got %d, want 2", len(s.Frames()))
	}
}

func TestSubscriberIgnoresGarbage(t *testing.T) {
	s := newSubscriber(SubscribeOptions{Capacity: 1})
	s.handle([]byte(`not json`))
	if len(s.Frames()) != 0 {
		t.Error("garbage should not produce a frame")
	}
	if s.Dropped() != 0 {
		t.Error("decode failures are not queue drops")
	}
}

func TestSubscriberClose(t *testing.T) {
	unsubscribed := 0
	s := newSubscriber(SubscribeOptions{})
	s.unsubscribe = func() error {
		unsubscribed++
		return nil
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if unsubscribed != 1 {
		t.Errorf("unsubscribe calls: got %d, want 1", unsubscribed)
	}

	// Late messages after close are ignored, not a panic.
	s.handle([]byte(`{"landmarks":[]}`))

	if _, ok := <-s.Frames(); ok {
		t.Error("frames channel should be closed")
	}
}

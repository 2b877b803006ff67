package main

import (
	"os"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/squat-coach/internal/logic"
	"github.com/sweeney/squat-coach/internal/metrics"
	"github.com/sweeney/squat-coach/internal/mqtt"
	"github.com/sweeney/squat-coach/internal/pose"
	"github.com/sweeney/squat-coach/internal/pulse"
	"github.com/sweeney/squat-coach/internal/status"
	"github.com/sweeney/squat-coach/internal/store"
)

// maxFrameSkew is how far ahead of the local clock a frame may be stamped.
const maxFrameSkew = 5 * time.Second

// historyStore persists reps and sessions.
type historyStore interface {
	RecordRep(r store.Rep) error
	RecordSession(s store.Session) error
}

type loopDeps struct {
	tracker    *logic.Tracker
	policy     logic.SessionPolicy
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // optional
	status     *status.Tracker
	history    historyStore  // optional
	pulser     *pulse.Pulser // optional
	metrics    *metrics.Manager
	network    func() *status.NetworkInfo // optional
	heartbeat  time.Duration
	now        func() time.Time
	newID      func() string
}

// loop is the single writer: only it touches the rep tracker.
type loop struct {
	loopDeps

	session      string
	sessionStart time.Time
	lastFrame    time.Time
	stale        int
}

func newLoop(d loopDeps) *loop {
	l := &loop{loopDeps: d}
	l.startSession(d.now())
	return l
}

// run processes frames until a signal arrives or the frame channel closes.
func (l *loop) run(frames <-chan pose.Frame, resets <-chan struct{}, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			l.shutdown(signalName(s))
			return nil

		case f, ok := <-frames:
			if !ok {
				log.Infof("frame source closed, shutting down")
				l.shutdown("EOF")
				return nil
			}
			l.onFrame(f)

		case <-resets:
			log.Infof("session reset requested")
			l.endSession(logic.SessionReset)

		case <-tick:
			l.refreshConnected()
			l.checkHeartbeat(l.now())
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func (l *loop) onFrame(f pose.Frame) {
	began := time.Now()
	defer func() { l.metrics.HistFrameDuration.Observe(time.Since(began).Seconds()) }()

	// Only the latest frame counts; late deliveries belong to the past.
	if !l.lastFrame.IsZero() && f.Timestamp.Before(l.lastFrame) {
		l.discard(f, "stale")
		return
	}
	// A frame from the future would hold the gate shut.
	if f.Timestamp.After(l.now().Add(maxFrameSkew)) {
		l.discard(f, "future")
		return
	}
	l.lastFrame = f.Timestamp

	res := l.tracker.OnFrame(logic.Input{Landmarks: f.Landmarks, Time: f.Timestamp})
	if res.Skipped {
		l.metrics.Frame(metrics.FrameSkipped)
	} else {
		l.metrics.Frame(metrics.FrameProcessed)
	}
	if res.Fault != logic.FaultNone {
		l.metrics.CounterFaults.WithLabelValues(string(res.Fault)).Inc()
		log.Debugf("fault %s: knee=%.1f hip=%.1f ankle=%.1f", res.Fault, res.Angles.Knee, res.Angles.Hip, res.Angles.Ankle)
	}

	l.status.Update(res)
	l.updateFrames()

	if res.Event != nil {
		l.onRep(*res.Event)
	}
}

func (l *loop) discard(f pose.Frame, why string) {
	l.stale++
	l.metrics.Frame(metrics.FrameStale)
	log.Debugf("discarding %s frame %v (latest %v)", why, f.Timestamp, l.lastFrame)
	l.updateFrames()
}

func (l *loop) onRep(e logic.Event) {
	log.Infof("rep: %s fault=%q correct=%d incorrect=%d", e.Type, e.Fault, e.Counts.Correct, e.Counts.Incorrect)

	if err := l.publisher.Publish(mqtt.RepEvent{Session: l.session, Event: e}); err != nil {
		log.Errorf("publish error: %v", err)
		// Don't crash on publish failure
	}
	if l.history != nil {
		err := l.history.RecordRep(store.Rep{
			Session:   l.session,
			Timestamp: e.Timestamp,
			Event:     string(e.Type),
			Fault:     string(e.Fault),
			Correct:   e.Counts.Correct,
			Incorrect: e.Counts.Incorrect,
		})
		if err != nil {
			log.Errorf("history error: %v", err)
		}
	}

	l.metrics.CounterReps.WithLabelValues(string(e.Type)).Inc()
	l.metrics.SetCounts(e.Counts.Correct, e.Counts.Incorrect)

	if e.Type == logic.EventRepCorrect && l.pulser != nil {
		l.pulser.Trigger()
	}

	if outcome := l.policy.Evaluate(e.Counts); outcome != logic.SessionOngoing {
		l.endSession(outcome)
	}
}

func (l *loop) startSession(t time.Time) {
	l.session = l.newID()
	l.sessionStart = t
	l.lastFrame = time.Time{}
	l.status.StartSession(l.session, t)
	l.metrics.SetCounts(0, 0)
	log.Infof("session %s started", l.session)
}

// endSession reports the finished session and starts a new one.
func (l *loop) endSession(outcome logic.SessionOutcome) {
	t := l.now()
	counts := l.tracker.Counts()
	log.Infof("session %s ended: %s (correct=%d incorrect=%d)", l.session, outcome, counts.Correct, counts.Incorrect)

	l.status.EndSession(outcome)
	l.publishLifecycle(mqtt.EventSessionEnd, string(outcome), false)
	l.recordSession(outcome, t)
	l.metrics.CounterSessions.WithLabelValues(string(outcome)).Inc()

	l.tracker.Reset()
	l.startSession(t)
}

func (l *loop) recordSession(outcome logic.SessionOutcome, t time.Time) {
	if l.history == nil {
		return
	}
	counts := l.tracker.Counts()
	err := l.history.RecordSession(store.Session{
		ID:        l.session,
		Started:   l.sessionStart,
		Ended:     t,
		Outcome:   string(outcome),
		Correct:   counts.Correct,
		Incorrect: counts.Incorrect,
	})
	if err != nil {
		log.Errorf("history error: %v", err)
	}
}

func (l *loop) shutdown(reason string) {
	if l.pulser != nil {
		l.pulser.Stop()
	}
	// An interrupted session with reps is kept without an outcome.
	if l.tracker.Counts().Attempts() > 0 {
		l.recordSession(logic.SessionOngoing, l.now())
	}
	l.publishLifecycle(mqtt.EventShutdown, reason, true)
}

func (l *loop) checkHeartbeat(t time.Time) {
	hb := l.tracker.CheckHeartbeat(t, l.heartbeat)
	if hb == nil {
		return
	}
	log.Infof("heartbeat: uptime=%v correct=%d incorrect=%d frames=%d skipped=%d stale=%d",
		hb.Uptime, hb.Counts.Correct, hb.Counts.Incorrect, hb.Frames, hb.Skipped, l.stale)
	if l.network != nil {
		l.status.SetNetwork(l.network())
	}
	l.publishLifecycle(mqtt.EventHeartbeat, "", false)
}

// publishLifecycle publishes a system event carrying a full status snapshot.
func (l *loop) publishLifecycle(event, reason string, retained bool) {
	l.refreshConnected()
	snap := l.status.Snapshot()
	err := l.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Errorf("failed to publish %s event: %v", event, err)
		return
	}
	log.Debugf("published %s event", event)
}

func (l *loop) updateFrames() {
	processed, skipped := l.tracker.FrameCounts()
	l.status.SetFrames(processed, skipped, l.stale)
}

func (l *loop) refreshConnected() {
	if l.mqttStatus != nil {
		l.status.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

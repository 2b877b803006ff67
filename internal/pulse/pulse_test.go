package pulse

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/sweeney/squat-coach/internal/gpio"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// manualTimer records a scheduled callback for the test to fire.
type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := !m.stopped
	m.stopped = true
	return was
}

type manualClock struct {
	timers []*manualTimer
}

func (c *manualClock) after(d time.Duration, f func()) Timer {
	mt := &manualTimer{d: d, f: f}
	c.timers = append(c.timers, mt)
	return mt
}

func TestTriggerLightsThenExpires(t *testing.T) {
	led := gpio.NewFakeLED()
	clk := &manualClock{}
	p := NewPulserWithTimer(led, 0, clk.after)

	p.Trigger()
	if !led.On() {
		t.Fatal("LED should be on after Trigger")
	}
	if !p.Active() {
		t.Error("pulse should be active")
	}
	if len(clk.timers) != 1 {
		t.Fatalf("expected 1 timer, got %d", len(clk.timers))
	}
	if clk.timers[0].d != DefaultDuration {
		t.Errorf("duration: got %v, want %v", clk.timers[0].d, DefaultDuration)
	}

	clk.timers[0].f()
	if led.On() {
		t.Error("LED should be off after expiry")
	}
	if p.Active() {
		t.Error("pulse should not be active after expiry")
	}
}

func TestRetriggerRestartsCountdown(t *testing.T) {
	led := gpio.NewFakeLED()
	clk := &manualClock{}
	p := NewPulserWithTimer(led, time.Second, clk.after)

	p.Trigger()
	p.Trigger()
	if !clk.timers[0].stopped {
		t.Error("first timer should be stopped on retrigger")
	}

	// A stale callback that raced the Stop must not turn the LED off.
	clk.timers[0].f()
	if !led.On() {
		t.Error("stale expiry turned the LED off")
	}

	clk.timers[1].f()
	if led.On() {
		t.Error("LED should be off after the latest pulse expires")
	}
}

func TestStopCancelsPulse(t *testing.T) {
	led := gpio.NewFakeLED()
	clk := &manualClock{}
	p := NewPulserWithTimer(led, time.Second, clk.after)

	p.Trigger()
	p.Stop()
	if led.On() {
		t.Error("LED should be off after Stop")
	}
	if !clk.timers[0].stopped {
		t.Error("timer should be stopped")
	}

	clk.timers[0].f()
	writes := led.Writes()
	if len(writes) != 2 {
		t.Errorf("expired callback after Stop wrote to LED: %v", writes)
	}
}

func TestStopWithoutPulse(t *testing.T) {
	led := gpio.NewFakeLED()
	p := NewPulserWithTimer(led, time.Second, (&manualClock{}).after)
	p.Stop()
	if led.On() {
		t.Error("LED should be off")
	}
}

func TestLEDErrorsAreTolerated(t *testing.T) {
	led := gpio.NewFakeLED()
	led.SetError = errors.New("line busy")
	clk := &manualClock{}
	p := NewPulserWithTimer(led, time.Second, clk.after)

	p.Trigger()
	if !p.Active() {
		t.Error("pulse should still be scheduled when the LED write fails")
	}
	clk.timers[0].f()
}

func TestRealTimer(t *testing.T) {
	led := gpio.NewFakeLED()
	p := NewPulser(led, 10*time.Millisecond)

	p.Trigger()
	deadline := time.Now().Add(2 * time.Second)
	for led.On() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if led.On() {
		t.Fatal("LED still on after pulse duration")
	}
	p.Stop()
}

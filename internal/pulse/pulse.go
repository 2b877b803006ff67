// Package pulse lights an indicator for a fixed duration after a correct
// rep.
package pulse

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/squat-coach/internal/gpio"
)

// DefaultDuration is how long the success LED stays lit.
const DefaultDuration = 1500 * time.Millisecond

// Timer is the subset of *time.Timer the pulser needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via NewPulser.
type AfterFunc func(d time.Duration, f func()) Timer

// Pulser turns an LED on and schedules it off.
type Pulser struct {
	mu       sync.Mutex
	led      gpio.LED
	duration time.Duration
	after    AfterFunc
	timer    Timer
	gen      uint64
}

// NewPulser creates a Pulser using real timers.
func NewPulser(led gpio.LED, duration time.Duration) *Pulser {
	return NewPulserWithTimer(led, duration, func(d time.Duration, f func()) Timer {
		return time.AfterFunc(d, f)
	})
}

// NewPulserWithTimer creates a Pulser with an injected scheduler.
func NewPulserWithTimer(led gpio.LED, duration time.Duration, after AfterFunc) *Pulser {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Pulser{led: led, duration: duration, after: after}
}

// Trigger lights the LED. A trigger during an active pulse restarts the
// countdown.
func (p *Pulser) Trigger() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	if err := p.led.Set(true); err != nil {
		log.Warnf("pulse: LED on: %v", err)
	}

	p.gen++
	gen := p.gen
	p.timer = p.after(p.duration, func() { p.expire(gen) })
}

// expire turns the LED off unless a newer pulse has started.
func (p *Pulser) expire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}
	p.timer = nil
	if err := p.led.Set(false); err != nil {
		log.Warnf("pulse: LED off: %v", err)
	}
}

// Active reports whether a pulse is pending.
func (p *Pulser) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

// Stop cancels any pending pulse and turns the LED off.
func (p *Pulser) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if err := p.led.Set(false); err != nil {
		log.Warnf("pulse: LED off: %v", err)
	}
}

package mqtt

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/squat-coach/internal/pose"
)

// DefaultFrameQueue bounds frames waiting for the frame loop.
const DefaultFrameQueue = 8

// SubscribeOptions configures a keypoint subscription.
type SubscribeOptions struct {
	// Capacity of the frame channel. Frames arriving while it is full are dropped.
	Capacity int

	// Now stamps frames that carry no timestamp.
	Now func() time.Time

	// OnDrop, if set, is called for every frame dropped on a full channel.
	OnDrop func()
}

// Subscriber delivers keypoint frames received over MQTT. It implements
// pose.Source.
type Subscriber struct {
	frames  chan pose.Frame
	now     func() time.Time
	onDrop  func()
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool

	unsubscribe func() error
}

var _ pose.Source = (*Subscriber)(nil)

func newSubscriber(opts SubscribeOptions) *Subscriber {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultFrameQueue
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Subscriber{
		frames: make(chan pose.Frame, opts.Capacity),
		now:    opts.Now,
		onDrop: opts.OnDrop,
	}
}

// handle decodes one message. It never blocks the MQTT client goroutine.
func (s *Subscriber) handle(data []byte) {
	f, err := pose.DecodeFrame(data, s.now())
	if err != nil {
		log.Warnf("mqtt: dropping frame: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.frames <- f:
	default:
		s.dropped.Add(1)
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

// Frames returns the frame channel. It is closed by Close.
func (s *Subscriber) Frames() <-chan pose.Frame {
	return s.frames
}

// Dropped returns the number of frames discarded because the loop lagged.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes and closes the frame channel.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.frames)
	s.mu.Unlock()

	if s.unsubscribe != nil {
		return s.unsubscribe()
	}
	return nil
}

package pose

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxLineSize bounds one JSONL frame; 33 landmarks fit comfortably.
const maxLineSize = 1 << 20

// ReplaySource reads newline-delimited frame payloads from a reader.
type ReplaySource struct {
	frames chan Frame
	done   chan struct{}
	once   sync.Once
	closer io.Closer
}

// NewReplaySource starts reading r. If r is an io.Closer it is closed by
// Close. Lines that fail to decode are logged and skipped.
func NewReplaySource(r io.Reader, now func() time.Time) *ReplaySource {
	s := &ReplaySource{
		frames: make(chan Frame),
		done:   make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	go s.read(r, now)
	return s
}

func (s *ReplaySource) read(r io.Reader, now func() time.Time) {
	defer close(s.frames)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		f, err := DecodeFrame(data, now())
		if err != nil {
			log.Warnf("replay: line %d: %v", line, err)
			continue
		}
		select {
		case s.frames <- f:
		case <-s.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Errorf("replay: read error after line %d: %v", line, err)
	}
}

// Frames returns the frame channel.
func (s *ReplaySource) Frames() <-chan Frame {
	return s.frames
}

// Close stops reading and closes the underlying reader, if closable.
func (s *ReplaySource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

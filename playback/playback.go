// Package playback schedules decoded audio buffers for gapless, in-order
// playback against an output clock, and can hard-stop everything in flight
// when the server reports a barge-in.
package playback

import (
	"sync"

	"go.uber.org/zap"

	"github.com/knowlegather/dominivoice/audio"
)

// OutputSampleRate is the playback rate delivered by the live endpoint.
const OutputSampleRate = 24000

// Source is a handle to one scheduled buffer. Stop cancels it whether it is
// playing or still pending.
type Source interface {
	Stop()
}

// Clock abstracts the output device: a monotonically advancing audio clock
// plus the ability to schedule a buffer at an absolute clock time. onEnded
// fires once the buffer finishes or is stopped.
type Clock interface {
	Now() float64
	Schedule(buf *audio.Buffer, startAt float64, onEnded func()) Source
}

// Scheduler keeps an advancing next-start-time cursor so that buffers
// enqueued at arbitrary, possibly bursty intervals play back to back
// without gaps or overlap.
type Scheduler struct {
	clock  Clock
	logger *zap.Logger

	mu            sync.Mutex
	nextStartTime float64
	active        map[*slot]struct{}
}

// slot is the registry token for one scheduled buffer. It exists before
// the clock hands back a Source, so a completion callback that fires
// during Schedule itself still releases the right entry.
type slot struct {
	src Source
}

// NewScheduler creates a scheduler driven by the given clock.
func NewScheduler(clock Clock, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clock:  clock,
		logger: logger,
		active: make(map[*slot]struct{}),
	}
}

// Enqueue schedules buf to start when the previous buffer ends, or now if
// the cursor has fallen behind the clock. The cursor advances by the
// buffer's duration, never backwards.
func (s *Scheduler) Enqueue(buf *audio.Buffer) {
	s.mu.Lock()
	startAt := s.nextStartTime
	if now := s.clock.Now(); now > startAt {
		startAt = now
	}
	sl := &slot{}
	s.active[sl] = struct{}{}
	s.nextStartTime = startAt + buf.Duration()
	s.mu.Unlock()

	// Schedule outside the lock; the clock may invoke onEnded inline.
	src := s.clock.Schedule(buf, startAt, func() {
		s.release(sl)
	})

	s.mu.Lock()
	if _, ok := s.active[sl]; !ok {
		// Finished or interrupted while Schedule was in flight. The slot
		// is gone, so any pending stop missed this source.
		s.mu.Unlock()
		src.Stop()
		return
	}
	sl.src = src
	s.mu.Unlock()
}

func (s *Scheduler) release(sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sl)
}

// Interrupt stops every in-flight buffer and resets the cursor to zero so
// the next Enqueue starts at the current clock time instead of stacking
// behind cancelled audio. No-op when nothing is playing.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	sources := make([]Source, 0, len(s.active))
	for sl := range s.active {
		if sl.src != nil {
			sources = append(sources, sl.src)
		}
	}
	s.active = make(map[*slot]struct{})
	s.nextStartTime = 0
	s.mu.Unlock()

	// Stop outside the lock; a Source's onEnded may call back into release.
	for _, src := range sources {
		src.Stop()
	}
	if len(sources) > 0 {
		s.logger.Debug("playback interrupted", zap.Int("stopped", len(sources)))
	}
}

// Playing reports whether any buffer is scheduled or audible.
func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active) > 0
}

// NextStartTime exposes the cursor, for diagnostics.
func (s *Scheduler) NextStartTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStartTime
}

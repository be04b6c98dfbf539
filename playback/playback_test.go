package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/knowlegather/dominivoice/audio"
)

type fakeSource struct {
	startAt float64
	dur     float64
	stopped bool
	onEnded func()
}

func (f *fakeSource) Stop() {
	if !f.stopped {
		f.stopped = true
		f.onEnded()
	}
}

// fakeClock records scheduled sources; time only moves when the test says so.
type fakeClock struct {
	now     float64
	sources []*fakeSource
}

func (c *fakeClock) Now() float64 { return c.now }

func (c *fakeClock) Schedule(buf *audio.Buffer, startAt float64, onEnded func()) Source {
	src := &fakeSource{startAt: startAt, dur: buf.Duration(), onEnded: onEnded}
	c.sources = append(c.sources, src)
	return src
}

func bufferOfDuration(seconds float64) *audio.Buffer {
	n := int(seconds * OutputSampleRate)
	return &audio.Buffer{Data: [][]float32{make([]float32, n)}, SampleRate: OutputSampleRate}
}

func TestGaplessScheduling(t *testing.T) {
	clock := &fakeClock{now: 1.0}
	s := NewScheduler(clock, zaptest.NewLogger(t))

	durations := []float64{0.5, 0.25, 1.0}
	for _, d := range durations {
		s.Enqueue(bufferOfDuration(d))
	}

	require.Len(t, clock.sources, 3)
	assert.InDelta(t, 1.0, clock.sources[0].startAt, 1e-9)
	assert.InDelta(t, 1.5, clock.sources[1].startAt, 1e-9)
	assert.InDelta(t, 1.75, clock.sources[2].startAt, 1e-9)
	assert.InDelta(t, 2.75, s.NextStartTime(), 1e-9)
	assert.True(t, s.Playing())
}

func TestEnqueueNeverSchedulesInThePast(t *testing.T) {
	clock := &fakeClock{now: 0}
	s := NewScheduler(clock, zaptest.NewLogger(t))

	s.Enqueue(bufferOfDuration(0.1))
	// Clock overtakes the cursor (a long silence between chunks).
	clock.now = 5.0
	s.Enqueue(bufferOfDuration(0.1))

	require.Len(t, clock.sources, 2)
	assert.InDelta(t, 0.0, clock.sources[0].startAt, 1e-9)
	assert.InDelta(t, 5.0, clock.sources[1].startAt, 1e-9)
}

func TestInterruptStopsAllAndResetsCursor(t *testing.T) {
	clock := &fakeClock{now: 2.0}
	s := NewScheduler(clock, zaptest.NewLogger(t))

	s.Enqueue(bufferOfDuration(1.0))
	s.Enqueue(bufferOfDuration(1.0))
	require.InDelta(t, 4.0, s.NextStartTime(), 1e-9)

	s.Interrupt()

	for _, src := range clock.sources {
		assert.True(t, src.stopped)
	}
	assert.False(t, s.Playing())
	assert.Zero(t, s.NextStartTime())

	// Next chunk starts at the clock, not at the stale cursor.
	s.Enqueue(bufferOfDuration(0.5))
	assert.InDelta(t, 2.0, clock.sources[2].startAt, 1e-9)
}

func TestInterruptOnEmptySchedulerIsNoOp(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(clock, zaptest.NewLogger(t))
	s.Interrupt()
	assert.False(t, s.Playing())
	assert.Zero(t, s.NextStartTime())
}

// syncClock completes every buffer inside Schedule itself, the way a
// zero-duration buffer behaves on a timer-driven output.
type syncClock struct {
	scheduled int
	stops     int
}

func (c *syncClock) Now() float64 { return 0 }

func (c *syncClock) Schedule(buf *audio.Buffer, startAt float64, onEnded func()) Source {
	c.scheduled++
	onEnded()
	return &countingSource{stops: &c.stops}
}

type countingSource struct {
	stops *int
}

func (s *countingSource) Stop() { *s.stops++ }

func TestSynchronousCompletionReleasesSlot(t *testing.T) {
	clock := &syncClock{}
	s := NewScheduler(clock, zaptest.NewLogger(t))

	s.Enqueue(bufferOfDuration(0))
	s.Enqueue(bufferOfDuration(0))

	assert.Equal(t, 2, clock.scheduled)
	assert.False(t, s.Playing(), "inline completion must not leak a slot")

	// The slot was already released when the source came back, so the
	// scheduler stops it rather than tracking a finished source.
	assert.Equal(t, 2, clock.stops)

	s.Interrupt()
	assert.Equal(t, 2, clock.stops, "nothing left for interrupt to stop")
}

func TestCompletionReleasesSlot(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(clock, zaptest.NewLogger(t))

	s.Enqueue(bufferOfDuration(0.2))
	require.True(t, s.Playing())

	clock.sources[0].onEnded()
	assert.False(t, s.Playing())

	// Cursor is untouched by completion; only Interrupt resets it.
	assert.InDelta(t, 0.2, s.NextStartTime(), 1e-9)
}

package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knowlegather/dominivoice/audio"
	"github.com/knowlegather/dominivoice/capture"
	"github.com/knowlegather/dominivoice/playback"
)

// remoteMic adapts microphone samples relayed over the websocket into a
// capture.Device. The browser owns the physical microphone; this end sees
// a stream of float frames reassembled from the client's audio messages.
type remoteMic struct {
	mu     sync.Mutex
	stream *micStream
}

func newRemoteMic() *remoteMic {
	return &remoteMic{}
}

// Open hands out the frame stream. A connection that is already gone
// behaves like a denied microphone.
func (m *remoteMic) Open(ctx context.Context, sampleRate, frameSize int) (capture.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		select {
		case <-m.stream.closed:
			// Previous session ended; the slot is free again.
			m.stream = nil
		default:
			return nil, fmt.Errorf("%w: microphone already in use", capture.ErrPermission)
		}
	}
	m.stream = newMicStream(frameSize)
	return m.stream, nil
}

// Push feeds decoded samples from one client audio message. Samples
// arriving with no open stream are dropped.
func (m *remoteMic) Push(samples []float32) {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()
	if stream != nil {
		stream.push(samples)
	}
}

// Shutdown closes the stream on connection teardown.
func (m *remoteMic) Shutdown() {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()
	if stream != nil {
		stream.Close()
	}
}

// micStream reassembles arbitrarily sized client chunks into fixed-size
// frames.
type micStream struct {
	frameSize int
	incoming  chan []float32
	pending   []float32
	closed    chan struct{}
	once      sync.Once
}

func newMicStream(frameSize int) *micStream {
	return &micStream{
		frameSize: frameSize,
		incoming:  make(chan []float32, 64),
		closed:    make(chan struct{}),
	}
}

func (s *micStream) push(samples []float32) {
	select {
	case s.incoming <- samples:
	case <-s.closed:
	default:
		// Client is outpacing the session; drop this chunk rather than
		// buffer without bound.
	}
}

// Read blocks until a full frame of samples is available.
func (s *micStream) Read(frame []float32) error {
	for len(s.pending) < s.frameSize {
		select {
		case samples := <-s.incoming:
			s.pending = append(s.pending, samples...)
		case <-s.closed:
			return fmt.Errorf("microphone stream closed")
		}
	}
	copy(frame, s.pending[:s.frameSize])
	s.pending = s.pending[s.frameSize:]
	return nil
}

func (s *micStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// remoteSpeaker implements playback.Clock against the websocket: scheduled
// buffers are re-encoded and pushed to the client with their absolute
// start time on this clock, and completion is timed off buffer duration.
type remoteSpeaker struct {
	epoch       time.Time
	send        func(data string, startAt float64)
	interrupted func()
	wasStopped  atomic.Bool
}

func newRemoteSpeaker(send func(data string, startAt float64), interrupted func()) *remoteSpeaker {
	return &remoteSpeaker{
		epoch:       time.Now(),
		send:        send,
		interrupted: interrupted,
	}
}

// Now returns seconds since the session began.
func (r *remoteSpeaker) Now() float64 {
	return time.Since(r.epoch).Seconds()
}

// Schedule pushes the buffer to the client and arms the completion timer.
func (r *remoteSpeaker) Schedule(buf *audio.Buffer, startAt float64, onEnded func()) playback.Source {
	r.wasStopped.Store(false)

	pcm := audio.EncodePCM(buf.Data[0])
	r.send(audio.EncodeBase64(pcm), startAt)

	src := &speakerSource{speaker: r}
	delay := startAt + buf.Duration() - r.Now()
	if delay < 0 {
		delay = 0
	}
	src.timer = time.AfterFunc(time.Duration(delay*float64(time.Second)), func() {
		src.finish(onEnded, false)
	})
	src.onEnded = onEnded
	return src
}

type speakerSource struct {
	speaker *remoteSpeaker
	timer   *time.Timer
	onEnded func()
	once    sync.Once
}

func (s *speakerSource) finish(onEnded func(), stopped bool) {
	s.once.Do(func() {
		if stopped {
			s.timer.Stop()
			// Tell the client once per interruption wave to drop its local
			// playback queue.
			if s.speaker.wasStopped.CompareAndSwap(false, true) {
				s.speaker.interrupted()
			}
		}
		onEnded()
	})
}

// Stop cancels the slot before its natural end.
func (s *speakerSource) Stop() {
	s.finish(s.onEnded, true)
}

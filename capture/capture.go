// Package capture owns the microphone side of a live session: it opens an
// input device, slices the stream into fixed-size frames, converts each
// frame to 16-bit PCM and forwards it to a sink while the transmit gate is
// open. Frames produced while the gate is closed are dropped, never
// buffered.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/knowlegather/dominivoice/audio"
)

const (
	// InputSampleRate is the capture rate expected by the live endpoint.
	InputSampleRate = 16000
	// FrameSize is the number of samples per captured frame (~256ms at 16kHz).
	FrameSize = 4096
)

// ErrPermission is returned when the input device is denied or unavailable.
var ErrPermission = errors.New("capture: microphone unavailable")

// Device grants access to an audio input. Open fails with an error wrapping
// ErrPermission when access is denied.
type Device interface {
	Open(ctx context.Context, sampleRate, frameSize int) (Stream, error)
}

// Stream delivers captured frames. Read fills frame completely or returns an
// error; it blocks at the device's native frame cadence.
type Stream interface {
	Read(frame []float32) error
	Close() error
}

// Pipeline reads frames from a Device and forwards PCM-converted frames to
// a sink. The gate is re-evaluated per frame so toggling listening or
// push-to-talk takes effect within one frame interval.
type Pipeline struct {
	device Device
	gate   func() bool
	sink   func(pcm []byte)
	logger *zap.Logger

	mu      sync.Mutex
	stream  Stream
	done    chan struct{}
	started bool
}

// New creates a pipeline. gate and sink must be non-nil.
func New(device Device, gate func() bool, sink func(pcm []byte), logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		device: device,
		gate:   gate,
		sink:   sink,
		logger: logger,
	}
}

// Start opens the device and begins the frame loop. A device denial is
// surfaced as an error wrapping ErrPermission and leaves the pipeline
// stopped.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("capture: pipeline already started")
	}

	stream, err := p.device.Open(ctx, InputSampleRate, FrameSize)
	if err != nil {
		if errors.Is(err, ErrPermission) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPermission, err)
	}

	p.stream = stream
	p.done = make(chan struct{})
	p.started = true

	go p.run(stream, p.done)
	return nil
}

// run is the per-frame loop. Errors end the loop quietly; they never
// propagate past this goroutine.
func (p *Pipeline) run(stream Stream, done chan struct{}) {
	frame := make([]float32, FrameSize)
	for {
		select {
		case <-done:
			return
		default:
		}

		if err := stream.Read(frame); err != nil {
			select {
			case <-done:
				// Stop closed the stream under us.
			default:
				p.logger.Debug("capture stream ended", zap.Error(err))
			}
			return
		}

		// The gate decision is made per frame, at production time. A frame
		// captured while the gate is closed is dropped, not queued.
		if !p.gate() {
			continue
		}

		p.sink(audio.EncodePCM(frame))
	}
}

// Stop closes the stream and releases the device. Safe to call repeatedly
// and before Start.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.started = false

	close(p.done)
	if err := p.stream.Close(); err != nil {
		p.logger.Debug("capture stream close", zap.Error(err))
	}
	p.stream = nil
}

// Active reports whether the frame loop is running.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowlegather/dominivoice/audio"
	"github.com/knowlegather/dominivoice/capture"
	"github.com/knowlegather/dominivoice/gemini"
	"github.com/knowlegather/dominivoice/live"
	"github.com/knowlegather/dominivoice/messages"
)

func TestMicStreamReassemblesFrames(t *testing.T) {
	mic := newRemoteMic()
	stream, err := mic.Open(context.Background(), capture.InputSampleRate, 4)
	require.NoError(t, err)

	// Chunks smaller and larger than the frame size.
	mic.Push([]float32{0.1, 0.2})
	mic.Push([]float32{0.3, 0.4, 0.5, 0.6, 0.7, 0.8})

	frame := make([]float32, 4)
	require.NoError(t, stream.Read(frame))
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, frame)

	require.NoError(t, stream.Read(frame))
	assert.Equal(t, []float32{0.5, 0.6, 0.7, 0.8}, frame)
}

func TestMicStreamReadFailsAfterClose(t *testing.T) {
	mic := newRemoteMic()
	stream, err := mic.Open(context.Background(), capture.InputSampleRate, 4)
	require.NoError(t, err)

	mic.Shutdown()

	frame := make([]float32, 4)
	assert.Error(t, stream.Read(frame))
}

func TestMicSecondOpenDeniedWhileInUse(t *testing.T) {
	mic := newRemoteMic()
	_, err := mic.Open(context.Background(), capture.InputSampleRate, 4)
	require.NoError(t, err)

	_, err = mic.Open(context.Background(), capture.InputSampleRate, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrPermission)
}

func TestMicReopensAfterStreamClosed(t *testing.T) {
	mic := newRemoteMic()
	stream, err := mic.Open(context.Background(), capture.InputSampleRate, 4)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	_, err = mic.Open(context.Background(), capture.InputSampleRate, 4)
	assert.NoError(t, err)
}

func TestSpeakerSchedulePushesAudioWithStartTime(t *testing.T) {
	var sentData string
	var sentStart float64
	speaker := newRemoteSpeaker(
		func(data string, startAt float64) {
			sentData = data
			sentStart = startAt
		},
		func() {},
	)

	buf := &audio.Buffer{Data: [][]float32{{0.5, -0.5}}, SampleRate: 24000}
	src := speaker.Schedule(buf, 1.25, func() {})
	defer src.Stop()

	assert.Equal(t, 1.25, sentStart)

	raw, err := audio.DecodeBase64(sentData)
	require.NoError(t, err)
	decoded, err := audio.DecodePCM(raw, 24000, 1)
	require.NoError(t, err)
	assert.Len(t, decoded.Data[0], 2)
}

func TestSpeakerInterruptNotifiesOncePerWave(t *testing.T) {
	interrupts := 0
	speaker := newRemoteSpeaker(func(string, float64) {}, func() { interrupts++ })

	buf := &audio.Buffer{Data: [][]float32{make([]float32, 24000)}, SampleRate: 24000}
	a := speaker.Schedule(buf, 10, func() {})
	b := speaker.Schedule(buf, 11, func() {})

	a.Stop()
	b.Stop()
	assert.Equal(t, 1, interrupts)

	// A fresh wave after the interruption notifies again.
	c := speaker.Schedule(buf, 12, func() {})
	c.Stop()
	assert.Equal(t, 2, interrupts)
}

func TestSpeakerSourceCompletionFiresOnce(t *testing.T) {
	speaker := newRemoteSpeaker(func(string, float64) {}, func() {})

	ended := make(chan struct{}, 2)
	buf := &audio.Buffer{Data: [][]float32{make([]float32, 24)}, SampleRate: 24000}
	src := speaker.Schedule(buf, 0, func() { ended <- struct{}{} })

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("completion callback never fired")
	}

	// A late Stop after natural completion must not fire it again.
	src.Stop()
	select {
	case <-ended:
		t.Fatal("completion callback fired twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestErrorCodeMapping(t *testing.T) {
	assert.Equal(t, messages.ErrCodePermission, errorCode(capture.ErrPermission))
	assert.Equal(t, messages.ErrCodeConnection, errorCode(gemini.ErrConnection))
	assert.Equal(t, messages.ErrCodeRequest, errorCode(gemini.ErrRequest))
	assert.Equal(t, messages.ErrCodeSessionActive, errorCode(live.ErrSessionActive))
	assert.Equal(t, messages.ErrCodeSessionFailed, errorCode(errors.New("boom")))
}

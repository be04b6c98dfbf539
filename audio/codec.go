// Package audio contains the codec utilities shared by the capture and
// playback paths: base64 transport encoding for raw audio bytes, and
// conversion between interleaved 16-bit little-endian PCM and normalized
// float samples.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrDecode is returned when inbound audio data cannot be decoded.
// Callers are expected to drop the offending chunk and carry on.
var ErrDecode = errors.New("audio: decode failed")

// Buffer holds decoded, de-interleaved audio: one []float32 per channel,
// samples normalized to [-1.0, 1.0].
type Buffer struct {
	Data       [][]float32
	SampleRate int
}

// FrameCount returns the number of sample frames per channel.
func (b *Buffer) FrameCount() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the playback length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.FrameCount()) / float64(b.SampleRate)
}

// EncodeBase64 encodes raw audio bytes for transport.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
	}
	return data, nil
}

// DecodePCM interprets data as interleaved little-endian signed 16-bit PCM
// and returns a de-interleaved float buffer. Each sample is normalized by
// dividing by 32768, so full negative scale maps to exactly -1.0.
func DecodePCM(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrDecode, channels)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte length %d", ErrDecode, len(data))
	}

	frameCount := len(data) / 2 / channels
	buf := &Buffer{
		Data:       make([][]float32, channels),
		SampleRate: sampleRate,
	}
	for ch := 0; ch < channels; ch++ {
		buf.Data[ch] = make([]float32, frameCount)
		for i := 0; i < frameCount; i++ {
			offset := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(data[offset : offset+2]))
			buf.Data[ch][i] = float32(sample) / 32768.0
		}
	}
	return buf, nil
}

// EncodePCM converts normalized float samples to little-endian signed
// 16-bit PCM. Samples are scaled by 32768 and clamped to the int16 range.
func EncodePCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(s * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(v)))
	}
	return out
}

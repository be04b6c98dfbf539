package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64RoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{0},
		{0, 1, 2, 3, 127, 128, 129, 255},
		{0xff, 0x00, 0xff, 0x00},
	}
	// Every byte value must survive the round trip.
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	cases = append(cases, all)

	for _, in := range cases {
		out, err := DecodeBase64(EncodeBase64(in))
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	_, err := DecodeBase64("not!!base64")
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecodePCMNormalization(t *testing.T) {
	// Full positive scale, full negative scale, zero.
	data := []byte{
		0xff, 0x7f, // 32767
		0x00, 0x80, // -32768
		0x00, 0x00, // 0
	}
	buf, err := DecodePCM(data, 24000, 1)
	require.NoError(t, err)
	require.Equal(t, 3, buf.FrameCount())
	assert.InDelta(t, 32767.0/32768.0, float64(buf.Data[0][0]), 1e-6)
	assert.InDelta(t, -1.0, float64(buf.Data[0][1]), 1e-6)
	assert.InDelta(t, 0.0, float64(buf.Data[0][2]), 1e-6)
}

func TestDecodePCMStereoDeinterleave(t *testing.T) {
	// L=100, R=-100 repeated twice.
	data := EncodePCM([]float32{100.0 / 32768, -100.0 / 32768, 100.0 / 32768, -100.0 / 32768})
	buf, err := DecodePCM(data, 16000, 2)
	require.NoError(t, err)
	require.Len(t, buf.Data, 2)
	require.Equal(t, 2, buf.FrameCount())
	assert.InDelta(t, 100.0/32768, float64(buf.Data[0][0]), 1e-6)
	assert.InDelta(t, -100.0/32768, float64(buf.Data[1][0]), 1e-6)
}

func TestDecodePCMErrors(t *testing.T) {
	_, err := DecodePCM([]byte{1}, 16000, 1)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodePCM([]byte{1, 2}, 16000, 0)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEncodePCMClamps(t *testing.T) {
	out := EncodePCM([]float32{2.0, -2.0})
	buf, err := DecodePCM(out, 16000, 1)
	require.NoError(t, err)
	assert.InDelta(t, 32767.0/32768.0, float64(buf.Data[0][0]), 1e-6)
	assert.InDelta(t, -1.0, float64(buf.Data[0][1]), 1e-6)
}

func TestPCMRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.25, -1.0}
	buf, err := DecodePCM(EncodePCM(in), 16000, 1)
	require.NoError(t, err)
	for i, want := range in {
		assert.InDelta(t, float64(want), float64(buf.Data[0][i]), 1.0/32768)
	}
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{Data: [][]float32{make([]float32, 24000)}, SampleRate: 24000}
	assert.InDelta(t, 1.0, buf.Duration(), 1e-9)

	empty := &Buffer{}
	assert.Zero(t, empty.Duration())
	assert.Zero(t, empty.FrameCount())
}

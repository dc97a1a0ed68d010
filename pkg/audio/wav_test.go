package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWav(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	sampleRate := 16000
	wav := EncodeWav(pcm, sampleRate)

	assert.True(t, bytes.HasPrefix(wav, []byte("RIFF")))
	assert.True(t, bytes.Contains(wav, []byte("WAVE")))
	assert.Equal(t, 44+len(pcm), len(wav))
}

func TestDecodeWav_RoundTrip(t *testing.T) {
	pcm := make([]byte, FrameSizeBytes*5)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}

	wav := EncodeWav(pcm, SampleRateHz)
	decoded, rate, err := DecodeWav(wav)
	require.NoError(t, err)
	assert.Equal(t, SampleRateHz, rate)
	assert.Equal(t, pcm, decoded)
}

func TestDecodeWav_RejectsNonWav(t *testing.T) {
	_, _, err := DecodeWav([]byte("not a wav file at all"))
	require.ErrorIs(t, err, ErrNotWav)
}

func TestDecodeWav_SkipsUnknownChunks(t *testing.T) {
	// LIST chunk inserted between fmt and data, as some encoders emit.
	pcm := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	wav := EncodeWav(pcm, SampleRateHz)

	// Splice a bogus "LIST" chunk (4 bytes of payload) right after the fmt chunk.
	fmtEnd := 12 + 8 + 16 // RIFF header + "fmt " chunk header + 16-byte body
	spliced := append([]byte{}, wav[:fmtEnd]...)
	spliced = append(spliced, []byte("LIST")...)
	spliced = append(spliced, 0x04, 0x00, 0x00, 0x00) // chunk size = 4
	spliced = append(spliced, []byte{1, 2, 3, 4}...)
	spliced = append(spliced, wav[fmtEnd:]...)

	decoded, rate, err := DecodeWav(spliced)
	require.NoError(t, err)
	assert.Equal(t, SampleRateHz, rate)
	assert.Equal(t, pcm, decoded)
}

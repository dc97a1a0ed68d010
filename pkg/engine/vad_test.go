package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
	"github.com/team-hashing/duet-interpreter/pkg/interlock"
)

// loudFrame and silentFrame produce FrameSizeBytes of constant-amplitude
// signed 16-bit PCM, at an amplitude chosen to sit clearly above/below
// aggressiveThreshold once squared and averaged.
func loudFrame(ts int64) audio.Frame {
	pcm := make([]byte, audio.FrameSizeBytes)
	const amp int16 = 8000
	for i := 0; i+1 < len(pcm); i += 2 {
		pcm[i] = byte(amp)
		pcm[i+1] = byte(amp >> 8)
	}
	return audio.Frame{PCM: pcm, Timestamp: ts}
}

func silentFrame(ts int64) audio.Frame {
	return audio.Frame{PCM: make([]byte, audio.FrameSizeBytes), Timestamp: ts}
}

func feedFrames(t *testing.T, s *Segmenter, frames []audio.Frame) *Utterance {
	t.Helper()
	var out *Utterance
	for _, f := range frames {
		u, err := s.ProcessFrame(f)
		require.NoError(t, err)
		if u != nil {
			require.Nil(t, out, "segmenter emitted more than one utterance")
			out = u
		}
	}
	return out
}

// buildSpeechThenSilence returns speechFrames loud frames followed by
// endSilenceFrames+1 silent frames; callers pass more than
// aggressiveConfirmFrames loud frames so the classifier triggers before the
// silence closes the utterance out.
func buildSpeechThenSilence(speechFrames int) []audio.Frame {
	var frames []audio.Frame
	var ts int64
	for i := 0; i < speechFrames; i++ {
		frames = append(frames, loudFrame(ts))
		ts++
	}
	for i := 0; i < endSilenceFrames+1; i++ {
		frames = append(frames, silentFrame(ts))
		ts++
	}
	return frames
}

func TestSegmenter_EmitsUtteranceAfterTrailingSilence(t *testing.T) {
	il := interlock.New()
	s := NewSegmenter(nil, il, "SENDER", nil, nil, nil)

	frames := buildSpeechThenSilence(aggressiveConfirmFrames + 5)
	u := feedFrames(t, s, frames)

	require.NotNil(t, u)
	assert.True(t, len(u.Frames) > 0)
}

func TestSegmenter_NoSpeechNeverEmits(t *testing.T) {
	il := interlock.New()
	s := NewSegmenter(nil, il, "SENDER", nil, nil, nil)

	var frames []audio.Frame
	var ts int64
	for i := 0; i < 50; i++ {
		frames = append(frames, silentFrame(ts))
		ts++
	}
	u := feedFrames(t, s, frames)
	assert.Nil(t, u)
}

func TestSegmenter_InterlockHeld_DiscardsBufferedSpeech(t *testing.T) {
	il := interlock.New()
	s := NewSegmenter(nil, il, "SENDER", nil, nil, nil)

	var ts int64
	for i := 0; i < aggressiveConfirmFrames+5; i++ {
		u, err := s.ProcessFrame(loudFrame(ts))
		require.NoError(t, err)
		require.Nil(t, u)
		ts++
	}

	il.Acquire("RECEIVER")
	u, err := s.ProcessFrame(loudFrame(ts))
	require.NoError(t, err)
	assert.Nil(t, u)
	ts++
	il.Release("RECEIVER")

	// Buffer was discarded on the override frame, so the state machine
	// must restart from idle: feeding more silence alone should not emit.
	var frames []audio.Frame
	for i := 0; i < endSilenceFrames+1; i++ {
		frames = append(frames, silentFrame(ts))
		ts++
	}
	u = feedFrames(t, s, frames)
	assert.Nil(t, u)
}

func TestSegmenter_SelfPlayingOverride_DiscardsBuffer(t *testing.T) {
	il := interlock.New()
	playing := true
	s := NewSegmenter(nil, il, "SENDER", func() bool { return playing }, nil, nil)

	var ts int64
	for i := 0; i < aggressiveConfirmFrames+5; i++ {
		u, err := s.ProcessFrame(loudFrame(ts))
		require.NoError(t, err)
		assert.Nil(t, u, "frames captured while isPlaying() is true must never accumulate")
		ts++
	}
}

func TestSegmenter_ThresholdFloor_DropsWeakUtterance(t *testing.T) {
	il := interlock.New()
	s := NewSegmenter(nil, il, "SENDER", nil, nil, nil)

	// A classifier that fires on frames carrying near-zero RMS opens an
	// utterance; once trailing silence closes it, the mean-RMS floor must
	// still drop it on emit.
	weak := &fakeClassifier{speech: true}
	s.classifier = weak

	var frames []audio.Frame
	var ts int64
	for i := 0; i < 5; i++ {
		frames = append(frames, silentFrame(ts))
		ts++
	}
	require.Nil(t, feedFrames(t, s, frames))
	require.Equal(t, stateSpeaking, s.state, "the classifier's speech verdict must open an utterance")

	weak.speech = false
	frames = nil
	for i := 0; i < endSilenceFrames+1; i++ {
		frames = append(frames, silentFrame(ts))
		ts++
	}
	u := feedFrames(t, s, frames)
	assert.Nil(t, u)
}

func TestSegmenter_Close_DiscardsInProgressBuffer(t *testing.T) {
	il := interlock.New()
	s := NewSegmenter(nil, il, "SENDER", nil, nil, nil)

	var ts int64
	for i := 0; i < aggressiveConfirmFrames+2; i++ {
		_, err := s.ProcessFrame(loudFrame(ts))
		require.NoError(t, err)
		ts++
	}
	s.Close()
	assert.Equal(t, stateIdle, s.state)
	assert.Nil(t, s.buffer)
}

func TestSegmenter_EmitsSpeechDetectedAndEndedEvents(t *testing.T) {
	il := interlock.New()
	var events []StatusEventType
	s := NewSegmenter(nil, il, "SENDER", nil, nil, func(e StatusEventType) {
		events = append(events, e)
	})

	frames := buildSpeechThenSilence(aggressiveConfirmFrames + 5)
	u := feedFrames(t, s, frames)

	require.NotNil(t, u)
	assert.Equal(t, []StatusEventType{StatusSpeechDetected, StatusSpeechEnded}, events)
}

type fakeClassifier struct{ speech bool }

func (f *fakeClassifier) IsSpeech(audio.Frame) (bool, error) { return f.speech, nil }

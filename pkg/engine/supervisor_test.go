package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
	"github.com/team-hashing/duet-interpreter/pkg/interlock"
	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

type fakeCapture struct {
	frames chan audio.Frame
	closed bool
	lost   chan struct{}
}

func (f *fakeCapture) Frames() <-chan audio.Frame { return f.frames }
func (f *fakeCapture) Close() error {
	f.closed = true
	return nil
}
func (f *fakeCapture) Lost() <-chan struct{} { return f.lost }

func TestEngineSupervisor_StartStopIsIdempotentAndClean(t *testing.T) {
	cap := &fakeCapture{frames: make(chan audio.Frame)}
	sink := &fakeSink{drain: true}
	il := interlock.New()

	cfg := EngineConfig{
		EngineName: "SENDER",
		SourceLang: lang.Tag{Name: "English", Code: "en"},
		TargetLang: lang.Tag{Name: "Spanish", Code: "es"},
		STT:        &fakeSTT{text: "hi"},
		MT:         &fakeMT{out: "hola"},
		TTS:        &fakeTTS{},
	}

	sup := NewEngineSupervisor(cfg, cap, sink, il, nil, nil)
	assert.Equal(t, StateConstructed, sup.State())

	require.NoError(t, sup.Start(context.Background()))
	require.NoError(t, sup.Start(context.Background())) // idempotent
	assert.Equal(t, StateRunning, sup.State())

	require.NoError(t, sup.Stop())
	require.NoError(t, sup.Stop()) // idempotent

	assert.Equal(t, StateStopped, sup.State())
	assert.True(t, cap.closed)
	assert.Equal(t, 0, il.Count(), "stop must never leave the interlock held")
}

func TestEngineSupervisor_ProcessesCapturedUtterance(t *testing.T) {
	cap := &fakeCapture{frames: make(chan audio.Frame, 64)}
	sink := &fakeSink{drain: true}
	il := interlock.New()
	status := make(chan StatusEvent, 8)

	cfg := EngineConfig{
		EngineName: "SENDER",
		SourceLang: lang.Tag{Name: "English", Code: "en"},
		TargetLang: lang.Tag{Name: "Spanish", Code: "es"},
		STT:        &fakeSTT{text: "hello there"},
		MT:         &fakeMT{out: "hola"},
		TTS:        &fakeTTS{chunks: [][]byte{{1, 2}}},
	}

	sup := NewEngineSupervisor(cfg, cap, sink, il, nil, status)
	require.NoError(t, sup.Start(context.Background()))
	defer sup.Stop()

	for _, f := range buildSpeechThenSilence(aggressiveConfirmFrames + 5) {
		cap.frames <- f
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-status:
			if evt.Type != StatusTranscriptPair {
				continue
			}
			require.NotNil(t, evt.Pair)
			assert.Equal(t, "hola", evt.Pair.TranslatedText)
			return
		case <-deadline:
			t.Fatal("timed out waiting for processed utterance")
		}
	}
}

func TestEngineSupervisor_DeviceLoss_TransitionsToStopped(t *testing.T) {
	cap := &fakeCapture{frames: make(chan audio.Frame), lost: make(chan struct{})}
	sink := &fakeSink{drain: true}
	il := interlock.New()
	status := make(chan StatusEvent, 8)

	cfg := EngineConfig{
		EngineName: "SENDER",
		SourceLang: lang.Tag{Name: "English", Code: "en"},
		TargetLang: lang.Tag{Name: "Spanish", Code: "es"},
		STT:        &fakeSTT{text: "hi"},
		MT:         &fakeMT{out: "hola"},
		TTS:        &fakeTTS{},
	}

	sup := NewEngineSupervisor(cfg, cap, sink, il, nil, status)
	require.NoError(t, sup.Start(context.Background()))

	close(cap.lost)

	require.Eventually(t, func() bool {
		return sup.State() == StateStopped
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sup.Stop(), "Stop after a device-loss halt must still be a no-op")

	var sawDeviceLost bool
	for {
		select {
		case evt := <-status:
			if evt.Type == StatusDeviceLost {
				sawDeviceLost = true
			}
		default:
			assert.True(t, sawDeviceLost, "expected a StatusDeviceLost event")
			return
		}
	}
}

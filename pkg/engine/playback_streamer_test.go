package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-hashing/duet-interpreter/pkg/interlock"
)

type fakeSink struct {
	mu     sync.Mutex
	writes [][]byte
	drain  bool
}

func (f *fakeSink) WriteContext(ctx context.Context, pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), pcm...))
	return nil
}
func (f *fakeSink) Reset()       {}
func (f *fakeSink) Drain() bool  { return f.drain }
func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func TestPlaybackStreamer_AcquiresAndReleasesAroundBurst(t *testing.T) {
	il := interlock.New()
	sink := &fakeSink{drain: true}
	in := make(chan PCMChunk, 4)

	s := NewPlaybackStreamer("SENDER", sink, il, in, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	in <- PCMChunk{1, 2, 3, 4}

	require.Eventually(t, func() bool { return sink.writeCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !il.Held() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, il.Count())
}

func TestPlaybackStreamer_IsPlayingReflectsActiveHold(t *testing.T) {
	il := interlock.New()
	sink := &fakeSink{drain: false}
	in := make(chan PCMChunk, 4)

	s := NewPlaybackStreamer("SENDER", sink, il, in, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)

	in <- PCMChunk{1, 2}
	require.Eventually(t, func() bool { return s.IsPlaying() }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !s.IsPlaying() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, il.Count(), "cancellation mid-burst must still release the interlock")
}

package engine

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	// emptyPollInterval is how often the streamer checks for new chunks
	// and for the device buffer draining while the queue is empty during a
	// burst.
	emptyPollInterval = 50 * time.Millisecond

	// drainedPollInterval is how long the streamer keeps holding the
	// interlock after the device buffer has fully drained before it ends
	// the burst, giving the segmenter a clean window to resume capture
	// (spec.md §4.5).
	drainedPollInterval = 100 * time.Millisecond
)

// PlaybackStreamer drains synthesized PCM chunks onto a PCMSink while
// holding the shared half-duplex interlock for the duration of playback,
// so the same engine's (and the peer engine's) capture never hears its own
// output (spec.md §4.5, C5).
//
// Grounded on the teacher's worker-goroutine shape (managed_stream.go's
// poll-and-sleep loops) and pkg/interlock's Acquire/Release contract.
type PlaybackStreamer struct {
	engineName string
	sink       PCMSink
	interlock  interlockHolder
	in         <-chan PCMChunk
	playing    atomic.Bool
	logger     Logger
}

// interlockHolder is the narrow slice of pkg/interlock.Interlock this
// package depends on.
type interlockHolder interface {
	Acquire(owner string)
	Release(owner string) bool
}

// NewPlaybackStreamer constructs a PlaybackStreamer reading chunks from in.
func NewPlaybackStreamer(engineName string, sink PCMSink, il interlockHolder, in <-chan PCMChunk, logger Logger) *PlaybackStreamer {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &PlaybackStreamer{
		engineName: engineName,
		sink:       sink,
		interlock:  il,
		in:         in,
		logger:     logger,
	}
}

// IsPlaying reports whether this streamer currently holds the interlock,
// for the owning engine's Segmenter to consult (spec.md §4.2's
// self-play override).
func (s *PlaybackStreamer) IsPlaying() bool {
	return s.playing.Load()
}

// Run drains s.in until ctx is cancelled or the channel closes. It never
// returns a partial-hold of the interlock: every Acquire on a burst is
// matched by exactly one Release, even on ctx cancellation mid-burst
// (spec.md §4.5 edge cases, §7's InterlockInconsistency avoidance).
func (s *PlaybackStreamer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-s.in:
			if !ok {
				return
			}
			s.drainBurst(ctx, chunk)
		}
	}
}

// drainBurst plays chunk and then opportunistically drains whatever has
// queued up behind it under a single interlock hold, so a rapid sequence
// of TTS chunks doesn't thrash Acquire/Release per chunk.
func (s *PlaybackStreamer) drainBurst(ctx context.Context, first PCMChunk) {
	s.interlock.Acquire(s.engineName)
	s.playing.Store(true)
	defer func() {
		s.playing.Store(false)
		if inconsistent := s.interlock.Release(s.engineName); inconsistent {
			s.logger.Warn("interlock release without matching acquire", "engine", s.engineName)
		}
	}()

	if err := s.write(ctx, first); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-s.in:
			if !ok {
				return
			}
			if err := s.write(ctx, chunk); err != nil {
				return
			}
		default:
			if s.sink.Drain() {
				select {
				case <-ctx.Done():
				case <-time.After(drainedPollInterval):
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(emptyPollInterval):
			}
		}
	}
}

func (s *PlaybackStreamer) write(ctx context.Context, chunk PCMChunk) error {
	if err := s.sink.WriteContext(ctx, chunk); err != nil {
		s.logger.Warn("playback write failed", "engine", s.engineName, "error", err)
		return err
	}
	return nil
}

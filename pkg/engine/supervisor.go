package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/team-hashing/duet-interpreter/pkg/interlock"
)

// State is an EngineSupervisor's lifecycle stage (spec.md §4.6, C7).
type State int

const (
	StateConstructed State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "CONSTRUCTED"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// failureBackoff is how long a worker pauses after one of the known
// per-utterance provider failures (recognizer/translator/synthesizer) before
// resuming (spec.md §7).
const failureBackoff = 2 * time.Second

// unknownFailureBackoff is the longer pause applied when Process returns
// something other than the three known provider sentinels — an "unknown
// exception" in spec.md §7 terms, e.g. a bug or an error type no adapter is
// documented to return.
const unknownFailureBackoff = 5 * time.Second

// audioQueueDepth bounds the synthesized-PCM queue between the processor and
// the playback streamer; a full queue applies backpressure rather than
// growing unbounded. Utterances are not queued: the frame-consumer goroutine
// processes each one inline.
const audioQueueDepth = 64

// EngineSupervisor owns one direction's capture -> segment -> process ->
// play pipeline and its lifecycle (spec.md §4.6, C7). Two Supervisors
// (SENDER, RECEIVER) share one *interlock.Interlock and may share one
// status sink channel.
//
// Grounded on the teacher's cmd/agent/main.go wiring (one malgo device pair
// driving one orchestrator) and MrWong99-glyphoxa's errgroup.WithContext
// fan-out (internal/hotctx/assembler.go), generalized to a long-running
// supervised pipeline instead of a single bounded fetch.
type EngineSupervisor struct {
	cfg       EngineConfig
	capture   FrameSource
	playback  PCMSink
	interlock *interlock.Interlock
	telemetry *Telemetry
	status    chan<- StatusEvent

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	done   chan struct{}

	streamer *PlaybackStreamer
}

// deviceLossDetector is the optional capability a FrameSource may implement
// to report an unrequested device stop (spec.md §4.1, §7 scenario S5).
// *audio.Capture implements it; the supervisor degrades gracefully (the
// loss channel is simply never ready) when a FrameSource doesn't implement
// it or returns a nil channel, e.g. a fakeCapture in tests with no lost
// channel set.
type deviceLossDetector interface {
	Lost() <-chan struct{}
}

// NewEngineSupervisor constructs a supervisor in StateConstructed. capture
// and playback must already be open; the supervisor never owns their
// lifecycle beyond Close() on Stop.
func NewEngineSupervisor(cfg EngineConfig, capture FrameSource, playback PCMSink, il *interlock.Interlock, telemetry *Telemetry, status chan<- StatusEvent) *EngineSupervisor {
	return &EngineSupervisor{
		cfg:       cfg,
		capture:   capture,
		playback:  playback,
		interlock: il,
		telemetry: telemetry,
		status:    status,
		state:     StateConstructed,
	}
}

// State reports the supervisor's current lifecycle stage.
func (s *EngineSupervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions CONSTRUCTED -> RUNNING and spawns two goroutines under
// one errgroup: the capture consumer, which segments frames and runs the
// processor inline, and the playback streamer. Calling Start twice
// is a no-op after the first call (idempotent).
func (s *EngineSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateConstructed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateRunning
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	audioOut := make(chan PCMChunk, audioQueueDepth)
	s.streamer = NewPlaybackStreamer(s.cfg.EngineName, s.playback, s.interlock, audioOut, s.cfg.logger())

	eg, egCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		s.streamer.Run(egCtx)
		return nil
	})

	eg.Go(func() error {
		s.runSegmentAndProcess(egCtx, audioOut)
		return nil
	})

	go func() {
		_ = eg.Wait()
		close(s.done)
	}()

	return nil
}

// runSegmentAndProcess is the frame-consumer goroutine: it feeds captured
// frames to a Segmenter and hands completed Utterances to a Processor,
// backing off on a per-utterance failure rather than exiting (spec.md §7).
// It also watches the capture device for an unrequested stop and halts the
// supervisor permanently when one happens (spec.md §7 scenario S5).
func (s *EngineSupervisor) runSegmentAndProcess(ctx context.Context, audioOut chan<- PCMChunk) {
	segmenter := NewSegmenter(nil, s.interlock, s.cfg.EngineName, s.streamer.IsPlaying, s.cfg.logger(), s.publishSimpleEvent)
	defer segmenter.Close()

	processor := NewProcessor(s.cfg, s.telemetry, audioOut, s.status)

	var lost <-chan struct{}
	if d, ok := s.capture.(deviceLossDetector); ok {
		lost = d.Lost()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-lost:
			s.cfg.logger().Error("capture device lost", "engine", s.cfg.EngineName)
			s.handleDeviceLost()
			return
		case frame, ok := <-s.capture.Frames():
			if !ok {
				return
			}
			u, err := segmenter.ProcessFrame(frame)
			if err != nil {
				s.cfg.logger().Warn("segmenter error", "engine", s.cfg.EngineName, "error", err)
				continue
			}
			if u == nil {
				continue
			}
			if err := processor.Process(ctx, *u); err != nil && err != ErrEmptyTranscript {
				backoff := knownFailureBackoff(err)
				s.cfg.logger().Warn("utterance processing failed", "engine", s.cfg.EngineName, "error", err, "backoff", backoff)
				s.publishTransientError(err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
			}
		}
	}
}

// publishSimpleEvent sends a pre-formatted status line carrying no
// TranscriptPair — the segmenter's "Speech detected"/"End of speech,
// processing" lines (SPEC_FULL.md supplemented features).
func (s *EngineSupervisor) publishSimpleEvent(t StatusEventType) {
	if s.status == nil {
		return
	}
	var msg string
	switch t {
	case StatusSpeechDetected:
		msg = fmt.Sprintf("[%s] Speech detected", s.cfg.EngineName)
	case StatusSpeechEnded:
		msg = fmt.Sprintf("[%s] End of speech, processing", s.cfg.EngineName)
	default:
		return
	}
	select {
	case s.status <- StatusEvent{Type: t, EngineName: s.cfg.EngineName, Message: msg}:
	default:
	}
}

// publishTransientError sends spec.md §7's mandated transient-error line:
// `"⚠️ Connection Glitch: <msg>. Retrying..."`.
func (s *EngineSupervisor) publishTransientError(err error) {
	if s.status == nil {
		return
	}
	evt := StatusEvent{
		Type:       StatusTransientError,
		EngineName: s.cfg.EngineName,
		Message:    fmt.Sprintf("⚠️ Connection Glitch: %v. Retrying...", err),
	}
	select {
	case s.status <- evt:
	default:
	}
}

// publishDeviceLost sends the once-only permanent-failure line spec.md §7
// describes for a halted engine.
func (s *EngineSupervisor) publishDeviceLost() {
	if s.status == nil {
		return
	}
	evt := StatusEvent{
		Type:       StatusDeviceLost,
		EngineName: s.cfg.EngineName,
		Message:    fmt.Sprintf("[%s] %v", s.cfg.EngineName, ErrDeviceUnavailable),
	}
	select {
	case s.status <- evt:
	default:
	}
}

// handleDeviceLost tears the supervisor down the same way Stop does, but
// from inside its own worker goroutine in response to an unrequested device
// stop rather than an external Stop call (spec.md §7 scenario S5: "SENDER
// transitions to STOPPED ... RECEIVER continues running"). A later external
// Stop call becomes a no-op since the state is already StateStopped.
func (s *EngineSupervisor) handleDeviceLost() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	cancel := s.cancel
	s.mu.Unlock()

	s.publishDeviceLost()

	if cancel != nil {
		cancel()
	}
	_ = s.capture.Close()
	_ = s.playback.Close()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}

// knownFailureBackoff maps a Process error to its spec.md §7 backoff: the
// three documented provider sentinels get the short backoff, anything else
// (a genuinely unexpected error) gets the longer one.
func knownFailureBackoff(err error) time.Duration {
	if errors.Is(err, ErrRecognizerFailed) || errors.Is(err, ErrTranslatorFailed) || errors.Is(err, ErrSynthesizerFailed) {
		return failureBackoff
	}
	return unknownFailureBackoff
}

// Stop transitions RUNNING -> STOPPING -> STOPPED, cancels all workers, and
// waits for them to exit before closing the capture and playback devices.
// Calling Stop before Start or twice is a no-op (idempotent).
func (s *EngineSupervisor) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	var errs []error
	if err := s.capture.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close capture: %w", err))
	}
	if err := s.playback.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close playback: %w", err))
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("engine supervisor stop: %v", errs)
	}
	return nil
}

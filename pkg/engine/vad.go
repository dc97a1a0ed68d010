package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
	"github.com/team-hashing/duet-interpreter/pkg/interlock"
)

const (
	// endSilenceFrames is ~1000ms of trailing silence at 30ms/frame
	// (spec.md §4.2).
	endSilenceFrames = 33

	// silenceRMSFloor drops an emitted utterance whose mean RMS never
	// really rose above the noise floor, even if the classifier fired
	// (spec.md §4.2 "Threshold floor").
	silenceRMSFloor = 0.01

	// aggressiveThreshold and aggressiveConfirmFrames approximate WebRTC-VAD
	// mode 3 ("very aggressive"): a higher RMS bar than a lenient VAD and a
	// short confirmation run to reject onset clicks/pops, at the cost of
	// rejecting soft speech in some accents (spec.md §9, flagged for
	// tuning, not solved further here).
	aggressiveThreshold     = 0.02
	aggressiveConfirmFrames = 3
)

// Classifier makes the frame-level speech/non-speech decision the segmenter
// state machine is deterministic given (spec.md §4.2: "design-level,
// deterministic given the VAD oracle"). The default aggressiveClassifier is
// RMS-based since no libwebrtc binding exists anywhere in the retrieval
// pack; grounded on the teacher's RMSVAD.calculateRMS.
type Classifier interface {
	IsSpeech(frame audio.Frame) (bool, error)
}

// aggressiveClassifier approximates WebRTC-VAD mode 3.
type aggressiveClassifier struct {
	threshold     float64
	confirmFrames int
	run           int
}

// NewAggressiveClassifier returns the default mode-3-compatible classifier.
func NewAggressiveClassifier() Classifier {
	return &aggressiveClassifier{threshold: aggressiveThreshold, confirmFrames: aggressiveConfirmFrames}
}

func (c *aggressiveClassifier) IsSpeech(frame audio.Frame) (bool, error) {
	if audio.RMS(frame.PCM) > c.threshold {
		c.run++
	} else {
		c.run = 0
	}
	return c.run >= c.confirmFrames, nil
}

type segmenterState int

const (
	stateIdle segmenterState = iota
	stateSpeaking
)

// Segmenter turns a frame stream into discrete Utterances using a mode-3
// aggressive VAD decision per frame with hysteresis (spec.md §4.2, C2).
//
// Grounded on the teacher's RMSVAD hysteresis state machine
// (pkg/orchestrator/vad.go) and original_source/translation_engine.py's
// _audio_producer VAD callback (triggered/buffer/silence_counter), adapted
// to spec.md's IDLE/SPEAKING two-state machine and interlock override.
type Segmenter struct {
	classifier Classifier
	interlock  *interlock.Interlock
	ownerName  string
	isPlaying  func() bool // this engine's own playback flag
	onEvent    func(StatusEventType)

	state        segmenterState
	buffer       []audio.Frame
	silenceCount int
	start        time.Time

	logger Logger
}

// NewSegmenter constructs a Segmenter. isPlaying reports this engine's own
// PlaybackStreamer activity; the segmenter must discard frames whenever
// EITHER the shared interlock is held OR this engine is itself playing
// (spec.md §4.2). onEvent, if non-nil, is invoked with StatusSpeechDetected
// at the IDLE->SPEAKING transition and StatusSpeechEnded when trailing
// silence closes an utterance out (SPEC_FULL.md supplemented features).
func NewSegmenter(classifier Classifier, il *interlock.Interlock, ownerName string, isPlaying func() bool, logger Logger, onEvent func(StatusEventType)) *Segmenter {
	if classifier == nil {
		classifier = NewAggressiveClassifier()
	}
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Segmenter{
		classifier: classifier,
		interlock:  il,
		ownerName:  ownerName,
		isPlaying:  isPlaying,
		onEvent:    onEvent,
		logger:     logger,
	}
}

// ProcessFrame feeds one captured frame into the state machine. It returns a
// non-nil Utterance exactly when END_SILENCE_FRAMES trailing silence frames
// close out a buffer that contains at least one speech frame (spec.md §8
// test 1) and whose mean RMS is at least silenceRMSFloor; a closed buffer
// below the floor is dropped. It never returns a partial utterance: interlock/self-play
// overrides and Close() both discard the buffer instead of flushing it
// (spec.md §3 invariants, §4.2 edge cases).
func (s *Segmenter) ProcessFrame(frame audio.Frame) (*Utterance, error) {
	if s.interlock.Held() || (s.isPlaying != nil && s.isPlaying()) {
		s.reset()
		return nil, nil
	}

	isSpeech, err := s.classifier.IsSpeech(frame)
	if err != nil {
		// VAD errors are treated as silence for that frame (spec.md §4.2
		// Failure semantics).
		s.logger.Debug("vad classify error, treating frame as silence", "owner", s.ownerName, "error", err)
		isSpeech = false
	}

	switch s.state {
	case stateIdle:
		if isSpeech {
			s.state = stateSpeaking
			s.buffer = []audio.Frame{frame}
			s.silenceCount = 0
			s.start = time.Unix(0, frame.Timestamp)
			s.fireEvent(StatusSpeechDetected)
		}
		return nil, nil

	case stateSpeaking:
		s.buffer = append(s.buffer, frame)
		if isSpeech {
			s.silenceCount = 0
			return nil, nil
		}

		s.silenceCount++
		if s.silenceCount < endSilenceFrames {
			return nil, nil
		}

		u := &Utterance{
			ID:     uuid.New(),
			Frames: s.buffer,
			Start:  s.start,
			End:    time.Unix(0, frame.Timestamp),
		}
		s.reset()

		if u.MeanRMS() < silenceRMSFloor {
			return nil, nil
		}
		s.fireEvent(StatusSpeechEnded)
		return u, nil
	}

	return nil, nil
}

func (s *Segmenter) fireEvent(t StatusEventType) {
	if s.onEvent != nil {
		s.onEvent(t)
	}
}

// Close discards any in-progress buffer without flushing it (spec.md §4.2
// "If close() is called while SPEAKING, the current buffer is discarded").
func (s *Segmenter) Close() {
	s.reset()
}

func (s *Segmenter) reset() {
	s.state = stateIdle
	s.buffer = nil
	s.silenceCount = 0
}

// Package engine implements the streaming speech-translation pipeline:
// capture -> VAD segmentation -> STT -> MT -> streaming TTS -> gapless
// playback, for one direction of the bi-directional translator (spec.md §2).
// Two Supervisors, one per direction, share a single pkg/interlock.Interlock
// and one status sink.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

// Logger is the narrow logging contract every component depends on, never a
// concrete logging library. Grounded on the teacher's orchestrator.Logger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything; the zero-value default.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}

// PCMChunk is a contiguous slice of signed 16-bit PCM at the playback sample
// rate, produced by a SpeechSynthesizer stream and consumed by the
// PlaybackStreamer (spec.md §3).
type PCMChunk []byte

// StatusEventType distinguishes the status sink's event varieties (spec.md
// §4.4 step 5, §4.7, §7; SPEC_FULL.md's "Speech Detected.../End of
// Speech..." supplement). Grounded on the teacher's EventType/OrchestratorEvent
// pair in pkg/orchestrator/types.go.
type StatusEventType string

const (
	// StatusTranscriptPair carries a completed, translated utterance.
	StatusTranscriptPair StatusEventType = "TRANSCRIPT_PAIR"
	// StatusSpeechDetected fires at the segmenter's IDLE->SPEAKING transition.
	StatusSpeechDetected StatusEventType = "SPEECH_DETECTED"
	// StatusSpeechEnded fires when trailing silence closes an utterance out,
	// before the pipeline processes it.
	StatusSpeechEnded StatusEventType = "SPEECH_ENDED"
	// StatusTransientError is a per-utterance provider failure the worker
	// backs off from and resumes after (spec.md §7).
	StatusTransientError StatusEventType = "TRANSIENT_ERROR"
	// StatusDeviceLost is the permanent, once-only failure that halts an
	// engine (spec.md §7, §4.1).
	StatusDeviceLost StatusEventType = "DEVICE_LOST"
)

// StatusEvent is the one thing a caller ever reads off an EngineSupervisor's
// status sink. Message is pre-formatted and ready to display verbatim; Pair
// is populated only for StatusTranscriptPair.
type StatusEvent struct {
	Type       StatusEventType
	EngineName string
	Message    string
	Pair       *TranscriptPair
}

// Transcript is STT output: text plus the language it was recognized in. It
// may be empty or later filtered (spec.md §3).
type Transcript struct {
	Text       string
	SourceLang lang.Tag
}

// Translation is MT output: text in the target language (spec.md §3).
type Translation struct {
	Text       string
	TargetLang lang.Tag
}

// Utterance is a maximal run of speech frames bracketed by silence, the unit
// of translation (spec.md §3, GLOSSARY). It is discarded after TTS enqueue.
// ID correlates its TranscriptPair and telemetry records across stages.
type Utterance struct {
	ID     uuid.UUID
	Frames []audio.Frame
	Start  time.Time
	End    time.Time
}

// PCM concatenates the utterance's frames into one contiguous PCM buffer.
func (u Utterance) PCM() []byte {
	out := make([]byte, 0, len(u.Frames)*audio.FrameSizeBytes)
	for _, f := range u.Frames {
		out = append(out, f.PCM...)
	}
	return out
}

// MeanRMS is the mean per-frame RMS across the utterance, used for the
// threshold-floor drop (spec.md §4.2).
func (u Utterance) MeanRMS() float64 {
	if len(u.Frames) == 0 {
		return 0
	}
	var sum float64
	for _, f := range u.Frames {
		sum += audio.RMS(f.PCM)
	}
	return sum / float64(len(u.Frames))
}

// RecognizeOptions carries the non-credential parameters of an STT call
// (spec.md §4.3).
type RecognizeOptions struct {
	TagAudioEvents bool
	Prompt         string
}

// SpeechRecognizer is the abstract STT provider contract (spec.md §4.3, C3).
// Implementations are stateless between calls; credentials are captured at
// construction.
type SpeechRecognizer interface {
	Recognize(ctx context.Context, utteranceWav []byte, sourceLang lang.Tag, opts RecognizeOptions) (Transcript, error)
	Name() string
}

// Translator is the abstract MT provider contract (spec.md §4.3, C3).
// Implementations MUST enforce a structured JSON response and MUST NOT leak
// wrapping text; on parse failure they return the source text unchanged
// (best-effort passthrough).
type Translator interface {
	Translate(ctx context.Context, text string, targetLang lang.Tag) (string, error)
	Name() string
}

// SpeechSynthesizer is the abstract streaming TTS provider contract (spec.md
// §4.3, C3). SynthesizeStream MUST deliver chunks via onChunk as they arrive
// — never buffer the whole response before the first call — so downstream
// playback can start within the TTFB budget.
type SpeechSynthesizer interface {
	SynthesizeStream(ctx context.Context, text, voiceID, modelID string, onChunk func(PCMChunk) error) error
	Name() string
}

// FrameSource is the structural contract an EngineSupervisor needs from an
// audio capture device (satisfied by *audio.Capture).
type FrameSource interface {
	Frames() <-chan audio.Frame
	Close() error
}

// PCMSink is the structural contract an EngineSupervisor needs from an audio
// playback device (satisfied by *audio.Playback).
type PCMSink interface {
	WriteContext(ctx context.Context, pcm []byte) error
	Reset()
	Drain() bool
	Close() error
}

// EngineConfig is immutable once an EngineSupervisor is constructed (spec.md
// §3). Device handles are supplied already-open so this package never
// depends on a concrete audio driver.
type EngineConfig struct {
	EngineName string // "SENDER" or "RECEIVER", for logging and interlock attribution
	SourceLang lang.Tag
	TargetLang lang.Tag

	VoiceID string
	ModelID string

	STT SpeechRecognizer
	MT  Translator
	TTS SpeechSynthesizer

	Logger Logger

	// FilterList overrides the default ignore-list (spec.md §4.4 step 3);
	// nil uses DefaultFilterList.
	FilterList map[string]struct{}
}

func (c EngineConfig) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return NoOpLogger{}
}

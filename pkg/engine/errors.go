package engine

import "errors"

// Error kinds from spec.md §7. Propagation policy: the processor and
// playback workers are never allowed to die from these — they are caught,
// logged, and followed by a bounded backoff; only Stop() ends a worker.
var (
	// ErrDeviceUnavailable is fatal per engine: the supervisor transitions to
	// Stopped and surfaces it on the status sink.
	ErrDeviceUnavailable = errors.New("engine: device unavailable")

	// ErrRecognizerFailed, ErrTranslatorFailed, ErrSynthesizerFailed are
	// per-utterance: the utterance is dropped and the worker backs off 2s.
	ErrRecognizerFailed  = errors.New("engine: speech recognition failed")
	ErrTranslatorFailed  = errors.New("engine: translation failed")
	ErrSynthesizerFailed = errors.New("engine: speech synthesis failed")

	// ErrEmptyTranscript marks an utterance whose transcript did not pass
	// the filter (spec.md §4.4 step 3); not itself a failure.
	ErrEmptyTranscript = errors.New("engine: transcript filtered or empty")

	// ErrInterlockInconsistency is logged, never returned to a caller that
	// would retry: release-without-acquire is corrected by clamping to zero
	// in pkg/interlock.
	ErrInterlockInconsistency = errors.New("engine: interlock release without matching acquire")
)

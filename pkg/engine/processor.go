package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/team-hashing/duet-interpreter/pkg/audio"
)

// TranscriptPair is published once per processed utterance so a caller (a
// subtitle overlay, a log, a UI) can observe both sides of a translation
// (spec.md §4.4 step 4).
type TranscriptPair struct {
	UtteranceID    uuid.UUID
	EngineName     string
	SourceText     string
	SourceLangCode string
	TranslatedText string
	TargetLangCode string
	Timestamp      time.Time
}

// Processor runs the STT -> filter -> MT -> streaming TTS pipeline for one
// Utterance at a time (spec.md §4.4, C4). It is not safe for concurrent
// calls to Process; the EngineSupervisor runs at most one at a time per
// engine direction.
//
// Grounded on original_source/translation_engine.py's
// _process_utterance/_transcribe/_translate/_text_to_speech sequence and the
// teacher's worker-goroutine structuring in managed_stream.go.
type Processor struct {
	cfg       EngineConfig
	telemetry *Telemetry
	audioOut  chan<- PCMChunk
	status    chan<- StatusEvent
	logger    Logger
}

// NewProcessor constructs a Processor. audioOut receives synthesized PCM in
// arrival order; status receives one StatusTranscriptPair event per
// successfully translated utterance.
func NewProcessor(cfg EngineConfig, telemetry *Telemetry, audioOut chan<- PCMChunk, status chan<- StatusEvent) *Processor {
	return &Processor{
		cfg:       cfg,
		telemetry: telemetry,
		audioOut:  audioOut,
		status:    status,
		logger:    cfg.logger(),
	}
}

// Process runs one utterance through the full pipeline. A returned error is
// always one of the engine sentinel errors; the caller (EngineSupervisor)
// is responsible for backoff and never treats it as fatal to the worker loop
// (spec.md §7).
func (p *Processor) Process(ctx context.Context, u Utterance) error {
	start := time.Now()

	wav := audio.EncodeWav(u.PCM(), audio.SampleRateHz)

	sttStart := time.Now()
	transcript, err := p.cfg.STT.Recognize(ctx, wav, p.cfg.SourceLang, RecognizeOptions{})
	p.telemetry.recordSTT(ctx, msSince(sttStart), p.cfg.EngineName)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRecognizerFailed, p.cfg.STT.Name(), err)
	}

	if !passesFilter(transcript.Text, p.cfg.FilterList) {
		p.logger.Debug("utterance filtered", "engine", p.cfg.EngineName, "text", transcript.Text)
		return ErrEmptyTranscript
	}

	mtStart := time.Now()
	translated, err := p.cfg.MT.Translate(ctx, transcript.Text, p.cfg.TargetLang)
	p.telemetry.recordMT(ctx, msSince(mtStart), p.cfg.EngineName)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTranslatorFailed, p.cfg.MT.Name(), err)
	}

	p.publishStatus(u.ID, transcript.Text, translated)

	if err := p.synthesize(ctx, translated); err != nil {
		return err
	}

	p.telemetry.recordTotal(ctx, msSince(start), p.cfg.EngineName)
	return nil
}

// publishStatus publishes the transcript pair line spec.md §4.4 step 5
// mandates: `"[<engine>] Original: <src> -> Translated: <tgt>"`.
func (p *Processor) publishStatus(utteranceID uuid.UUID, sourceText, translatedText string) {
	if p.status == nil {
		return
	}
	pair := TranscriptPair{
		UtteranceID:    utteranceID,
		EngineName:     p.cfg.EngineName,
		SourceText:     sourceText,
		SourceLangCode: p.cfg.SourceLang.Code,
		TranslatedText: translatedText,
		TargetLangCode: p.cfg.TargetLang.Code,
		Timestamp:      time.Now(),
	}
	evt := StatusEvent{
		Type:       StatusTranscriptPair,
		EngineName: p.cfg.EngineName,
		Message:    fmt.Sprintf("[%s] Original: %s -> Translated: %s", p.cfg.EngineName, sourceText, translatedText),
		Pair:       &pair,
	}
	select {
	case p.status <- evt:
	default:
		p.logger.Warn("status sink full, dropping transcript pair", "engine", p.cfg.EngineName)
	}
}

// synthesize streams TTS output chunk-by-chunk onto audioOut, recording
// time-to-first-byte. It never assembles the full utterance in memory
// before forwarding (spec.md §4.3, §9).
func (p *Processor) synthesize(ctx context.Context, text string) error {
	ttsStart := time.Now()
	first := true

	err := p.cfg.TTS.SynthesizeStream(ctx, text, p.cfg.VoiceID, p.cfg.ModelID, func(chunk PCMChunk) error {
		if first {
			p.telemetry.recordTTSFirstByte(ctx, msSince(ttsStart), p.cfg.EngineName)
			first = false
		}
		select {
		case p.audioOut <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSynthesizerFailed, p.cfg.TTS.Name(), err)
	}
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}

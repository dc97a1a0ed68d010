package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/team-hashing/duet-interpreter/pkg/engine"
	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

// OpenAISTT transcribes through the official SDK client, replacing the
// teacher's hand-rolled HTTP OpenAISTT (pkg/providers/stt/openai.go) now
// that the retrieval pack lists the real SDK in go.mod.
type OpenAISTT struct {
	client openai.Client
	model  string
}

// NewOpenAISTT constructs an OpenAISTT. An empty model defaults to
// whisper-1, matching the teacher.
func NewOpenAISTT(apiKey, model string) *OpenAISTT {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAISTT{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (s *OpenAISTT) Name() string { return "openai-stt" }

func (s *OpenAISTT) Recognize(ctx context.Context, utteranceWav []byte, sourceLang lang.Tag, opts engine.RecognizeOptions) (engine.Transcript, error) {
	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(s.model),
		File:  openai.File(bytes.NewReader(utteranceWav), "audio.wav", "audio/wav"),
	}
	if sourceLang.Code != "" {
		params.Language = openai.String(sourceLang.Code)
	}
	if opts.Prompt != "" {
		params.Prompt = openai.String(opts.Prompt)
	}

	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return engine.Transcript{}, fmt.Errorf("%w: %v", engine.ErrRecognizerFailed, err)
	}

	return engine.Transcript{Text: resp.Text, SourceLang: sourceLang}, nil
}

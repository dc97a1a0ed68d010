// Package stt implements engine.SpeechRecognizer against vendor speech-to-
// text APIs. Scope is deliberately narrower than the teacher's: Deepgram and
// AssemblyAI adapters are not carried over (see DESIGN.md).
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/team-hashing/duet-interpreter/pkg/engine"
	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

// GroqSTT uploads a WAV utterance to Groq's Whisper endpoint. Grounded on
// the teacher's pkg/providers/stt/groq.go, adapted to the engine.Transcript
// / lang.Tag contracts.
type GroqSTT struct {
	mu     sync.RWMutex
	apiKey string
	url    string
	model  string
}

// NewGroqSTT constructs a GroqSTT. An empty model defaults to
// whisper-large-v3-turbo, matching the teacher.
func NewGroqSTT(apiKey, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/audio/transcriptions",
		model:  model,
	}
}

func (s *GroqSTT) Name() string { return "groq-stt" }

// SetAPIKey updates the credential used by subsequent calls, letting
// pkg/config's hot-reload watcher apply an edited config.json without
// restarting the engine.
func (s *GroqSTT) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = apiKey
}

func (s *GroqSTT) key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

func (s *GroqSTT) Recognize(ctx context.Context, utteranceWav []byte, sourceLang lang.Tag, opts engine.RecognizeOptions) (engine.Transcript, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return engine.Transcript{}, fmt.Errorf("groq stt: %w", err)
	}
	if sourceLang.Code != "" {
		if err := writer.WriteField("language", sourceLang.Code); err != nil {
			return engine.Transcript{}, fmt.Errorf("groq stt: %w", err)
		}
	}
	if opts.Prompt != "" {
		if err := writer.WriteField("prompt", opts.Prompt); err != nil {
			return engine.Transcript{}, fmt.Errorf("groq stt: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return engine.Transcript{}, fmt.Errorf("groq stt: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(utteranceWav)); err != nil {
		return engine.Transcript{}, fmt.Errorf("groq stt: %w", err)
	}
	if err := writer.Close(); err != nil {
		return engine.Transcript{}, fmt.Errorf("groq stt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return engine.Transcript{}, fmt.Errorf("groq stt: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.key())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return engine.Transcript{}, fmt.Errorf("%w: %v", engine.ErrRecognizerFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return engine.Transcript{}, fmt.Errorf("%w: groq status %d: %s", engine.ErrRecognizerFailed, resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return engine.Transcript{}, fmt.Errorf("groq stt: decode response: %w", err)
	}

	return engine.Transcript{Text: result.Text, SourceLang: sourceLang}, nil
}

// Package mt implements engine.Translator against several chat-completion
// backends, each enforcing a structured JSON response with best-effort
// passthrough on parse failure (spec.md §4.3).
package mt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

const systemPrompt = `You are a professional translator. Output only JSON: {"translation": "..."}`

// translationTemperature keeps every backend's output deterministic (spec.md
// §4.3: "Temperature low (<=0.1)").
const translationTemperature = 0.1

// GroqTranslator calls the Groq-hosted chat-completions endpoint, grounded
// on original_source/translation_engine.py's _translate and the teacher's
// hand-rolled HTTP provider shape (pkg/providers/llm/anthropic.go,
// google.go) — Groq has no dedicated Go SDK in the retrieval pack, so a
// plain HTTP client is the corpus's own idiom for this vendor.
type GroqTranslator struct {
	mu     sync.RWMutex
	apiKey string
	url    string
	model  string
}

// NewGroqTranslator constructs a GroqTranslator. An empty model defaults to
// llama-3.1-8b-instant, matching the original implementation.
func NewGroqTranslator(apiKey, model string) *GroqTranslator {
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqTranslator{
		apiKey: apiKey,
		url:    "https://api.groq.com/openai/v1/chat/completions",
		model:  model,
	}
}

func (t *GroqTranslator) Name() string { return "groq-mt" }

// SetAPIKey updates the credential used by subsequent calls, letting
// pkg/config's hot-reload watcher apply an edited config.json without
// restarting the engine.
func (t *GroqTranslator) SetAPIKey(apiKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiKey = apiKey
}

func (t *GroqTranslator) key() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.apiKey
}

func (t *GroqTranslator) Translate(ctx context.Context, text string, targetLang lang.Tag) (string, error) {
	payload := map[string]interface{}{
		"model":       t.model,
		"temperature": translationTemperature,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": fmt.Sprintf("Translate to %s: %s", targetLang.Name, text)},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("groq mt: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("groq mt: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.key())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq mt: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("groq mt: status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("groq mt: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return text, nil
	}

	return parseTranslation(result.Choices[0].Message.Content, text)
}

// parseTranslation unwraps the enforced {"translation": "..."} envelope; on
// any parse failure it passes the source text through unchanged rather than
// leaking raw model output (spec.md §4.3 Translator contract).
func parseTranslation(content, fallback string) (string, error) {
	var data struct {
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return fallback, nil
	}
	if data.Translation == "" {
		return fallback, nil
	}
	return data.Translation, nil
}

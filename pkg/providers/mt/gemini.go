package mt

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

// GeminiTranslator calls Gemini through the official Google SDK, replacing
// the teacher's hand-rolled llm.GoogleLLM HTTP client with the real SDK the
// retrieval pack lists in go.mod.
type GeminiTranslator struct {
	client *genai.Client
	model  string
}

// NewGeminiTranslator constructs a GeminiTranslator against a live client. An
// empty model defaults to gemini-1.5-flash, matching the teacher's default.
func NewGeminiTranslator(client *genai.Client, model string) *GeminiTranslator {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiTranslator{client: client, model: model}
}

// DialGemini opens a genai.Client for NewGeminiTranslator's use.
func DialGemini(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

func (t *GeminiTranslator) Name() string { return "gemini-mt" }

func (t *GeminiTranslator) Translate(ctx context.Context, text string, targetLang lang.Tag) (string, error) {
	temp := float32(translationTemperature)

	model := t.client.GenerativeModel(t.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	model.ResponseMIMEType = "application/json"
	model.Temperature = &temp

	prompt := fmt.Sprintf("Translate to %s: %s", targetLang.Name, text)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini mt: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return text, nil
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if s, ok := part.(genai.Text); ok {
			content += string(s)
		}
	}
	if content == "" {
		return text, nil
	}

	return parseTranslation(content, text)
}

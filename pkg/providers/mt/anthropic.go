package mt

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/team-hashing/duet-interpreter/pkg/lang"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicTranslator calls Claude through the official SDK, grounded on
// NeboLoop-nebo's AnthropicProvider client setup (real SDK usage, unlike
// the teacher's hand-rolled HTTP llm.AnthropicLLM).
type AnthropicTranslator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicTranslator constructs an AnthropicTranslator. An empty model
// defaults to Claude's current fast tier.
func NewAnthropicTranslator(apiKey, model string) *AnthropicTranslator {
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}
	return &AnthropicTranslator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (t *AnthropicTranslator) Name() string { return "anthropic-mt" }

func (t *AnthropicTranslator) Translate(ctx context.Context, text string, targetLang lang.Tag) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(t.model),
		MaxTokens:   defaultAnthropicMaxTokens,
		Temperature: anthropic.Float(translationTemperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				fmt.Sprintf("Translate to %s: %s", targetLang.Name, text),
			)),
		},
	}

	msg, err := t.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic mt: %w", err)
	}

	var content string
	for _, block := range msg.Content {
		if text := block.Text; text != "" {
			content += text
		}
	}
	if content == "" {
		return text, nil
	}

	return parseTranslation(content, text)
}

// Package anthropic binds internal/reasoner.Reasoner to the Anthropic
// Claude Messages API via github.com/anthropics/anthropic-sdk-go, selected
// via REASONER_BACKEND=anthropic. Claude has no dedicated JSON-mode flag;
// structured output is obtained by instruction plus schema validation, the
// same contract internal/reasoner/openai honors.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pocketomega/pocket-omega/internal/reasoner"
)

// MessagesClient is the subset of the SDK's Messages service this package
// uses, so tests can substitute a fake instead of a live API key.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Reasoner wraps an Anthropic Messages client.
type Reasoner struct {
	client    MessagesClient
	model     string
	maxTokens int
	cache     *reasoner.SchemaCache
}

// Config configures a Reasoner.
type Config struct {
	Model     string
	MaxTokens int // defaults to 4096 when <= 0
}

// New wraps an already-constructed Messages client (typically &sdk.NewClient(...).Messages).
func New(client MessagesClient, cfg Config, cache *reasoner.SchemaCache) *Reasoner {
	if cache == nil {
		cache = reasoner.NewSchemaCache()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Reasoner{client: client, model: cfg.Model, maxTokens: maxTokens, cache: cache}
}

// NewFromAPIKey constructs a Reasoner using the default Anthropic HTTP
// client, reading ANTHROPIC_API_KEY when apiKey is empty.
func NewFromAPIKey(apiKey, model string, cache *reasoner.SchemaCache) *Reasoner {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	ac := sdk.NewClient(opts...)
	return New(&ac.Messages, Config{Model: model}, cache)
}

func (r *Reasoner) Name() string { return "reasoner-anthropic:" + r.model }

// Reason sends prompt as a single user turn with a system instruction to
// answer strictly as JSON matching schema, then validates the response.
func (r *Reasoner) Reason(ctx context.Context, prompt string, schema reasoner.Schema) (reasoner.Result, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(r.model),
		MaxTokens: int64(r.maxTokens),
		System:    []sdk.TextBlockParam{{Text: systemInstruction(schema)}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
	}

	msg, err := r.client.New(ctx, params)
	if err != nil {
		return reasoner.Result{}, fmt.Errorf("reasoner anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	raw := []byte(extractJSON(text.String()))

	if err := reasoner.Validate(r.cache, schema, raw); err != nil {
		return reasoner.Result{}, err
	}
	tokens := int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
	return reasoner.Result{Value: raw, Tokens: tokens}, nil
}

func systemInstruction(schema reasoner.Schema) string {
	return fmt.Sprintf(
		"Respond with exactly one JSON object and nothing else — no prose, no "+
			"markdown code fences. The object must conform to this JSON Schema "+
			"(name=%q):\n\n%s",
		schema.Name, string(schema.JSON),
	)
}

// extractJSON strips a markdown code fence around the object if Claude adds
// one despite the instruction not to; otherwise returns s unchanged.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// Package openai binds internal/reasoner.Reasoner to the internal/llm/openai
// client, using the provider's native JSON mode for structured output
// (the default REASONER_BACKEND).
package openai

import (
	"context"
	"fmt"

	"github.com/pocketomega/pocket-omega/internal/llm"
	openaillm "github.com/pocketomega/pocket-omega/internal/llm/openai"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
)

// Reasoner wraps an openaillm.Client.
type Reasoner struct {
	client *openaillm.Client
	cache  *reasoner.SchemaCache
}

// New wraps an already-configured client. cache may be shared across
// Reasoner instances so a schema is compiled once regardless of backend.
func New(client *openaillm.Client, cache *reasoner.SchemaCache) *Reasoner {
	if cache == nil {
		cache = reasoner.NewSchemaCache()
	}
	return &Reasoner{client: client, cache: cache}
}

func (r *Reasoner) Name() string { return "reasoner-openai:" + r.client.GetConfig().Model }

// Reason sends prompt with an instruction to answer strictly as JSON
// matching schema, then validates the response before returning it.
func (r *Reasoner) Reason(ctx context.Context, prompt string, schema reasoner.Schema) (reasoner.Result, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemInstruction(schema)},
		{Role: llm.RoleUser, Content: prompt},
	}

	content, tokens, err := r.client.CallLLMJSON(ctx, messages)
	if err != nil {
		return reasoner.Result{}, fmt.Errorf("reasoner openai: %w", err)
	}

	raw := []byte(content)
	if err := reasoner.Validate(r.cache, schema, raw); err != nil {
		return reasoner.Result{}, err
	}
	return reasoner.Result{Value: raw, Tokens: tokens}, nil
}

func systemInstruction(schema reasoner.Schema) string {
	return fmt.Sprintf(
		"You respond with exactly one JSON object and nothing else — no prose, "+
			"no markdown code fences. The object must conform to this JSON Schema "+
			"(name=%q):\n\n%s",
		schema.Name, string(schema.JSON),
	)
}

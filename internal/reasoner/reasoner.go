// Package reasoner is the sole boundary between the reasoning-chain engine
// and a large language model. Planning, Orchestration, and the synthesis
// step in Execution all go through a Reasoner instead of talking to an
// llm.LLMProvider directly, so every structured-output call is validated
// against a JSON Schema the same way, regardless of backend.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pocketomega/pocket-omega/internal/errs"
)

// Schema names a response shape for error reporting and schema caching.
type Schema struct {
	Name string
	JSON json.RawMessage // JSON Schema object
}

// Result is a structured-output reasoning call's outcome.
type Result struct {
	Value  json.RawMessage // the validated JSON value, matching Schema
	Tokens int             // total tokens billed for the call, 0 if unknown
}

// Reasoner is the contract every stage uses: reason(prompt, schema) ->
// {value, tokens}. Concrete bindings live in internal/reasoner/openai and
// internal/reasoner/anthropic.
type Reasoner interface {
	Reason(ctx context.Context, prompt string, schema Schema) (Result, error)
	Name() string
}

// SchemaCache compiles each distinct Schema.JSON exactly once; bindings
// share it rather than recompiling per call.
type SchemaCache struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{schemas: make(map[string]*jsonschema.Schema)}
}

func (c *SchemaCache) compile(s Schema) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.schemas[s.Name]; ok {
		return cached, nil
	}

	var doc any
	if err := json.Unmarshal(s.JSON, &doc); err != nil {
		return nil, fmt.Errorf("schema %q is not valid JSON: %w", s.Name, err)
	}
	url := "mem://reasoner/" + s.Name
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, err
	}
	c.schemas[s.Name] = compiled
	return compiled, nil
}

// Validate checks raw against schema, returning errs.ReasonerSchemaError on
// mismatch rather than letting a malformed response reach a caller.
// Reasoner-schema errors are never silently coerced.
func Validate(cache *SchemaCache, schema Schema, raw json.RawMessage) error {
	compiled, err := cache.compile(schema)
	if err != nil {
		return errs.ReasonerSchemaError(schema.Name, err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return errs.ReasonerSchemaError(schema.Name, fmt.Errorf("response is not valid JSON: %w", err))
	}
	if err := compiled.Validate(decoded); err != nil {
		return errs.ReasonerSchemaError(schema.Name, err)
	}
	return nil
}

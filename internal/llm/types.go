package llm

import (
	"context"
	"encoding/json"
)

// Message represents a chat message for LLM communication.
type Message struct {
	Role             string `json:"role"`                        // "user", "assistant", "system", "tool"
	Content          string `json:"content"`                     // The message text
	ReasoningContent string `json:"reasoning_content,omitempty"` // Native thinking output (e.g. DeepSeek-R1)

	// Name and ToolCallID are set on role="tool" messages carrying a tool's
	// result back to the model.
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolCalls is set on role="assistant" messages the model answered with
	// function-calling instead of plain text.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolDefinition describes one callable tool in Function Calling form.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema object
}

// ToolCall is one invocation the model requested via Function Calling.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// StreamCallback is invoked for each chunk of streamed text.
// Implementations should be lightweight; heavy work should be deferred.
type StreamCallback func(chunk string)

// LLMProvider defines the interface for all LLM implementations.
// Any OpenAI-compatible endpoint (litellm, Ollama, Azure, vLLM, etc.)
// can be used by implementing this interface.
type LLMProvider interface {
	// CallLLM sends messages to the LLM and returns the complete response.
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// CallLLMStream sends messages and streams the response token-by-token.
	// Each chunk of text triggers the onChunk callback.
	// Returns the full assembled message once streaming finishes.
	// If the provider does not support streaming, it may fall back to CallLLM.
	CallLLMStream(ctx context.Context, messages []Message, onChunk StreamCallback) (Message, error)

	// GetName returns the provider name/identifier.
	GetName() string
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

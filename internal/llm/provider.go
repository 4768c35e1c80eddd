package llm

import (
	"context"
	"encoding/json"
)

// Provider is one text-generation backend. The content service sends a
// single-turn prompt per quiz batch and parses the reply itself.
type Provider interface {
	// Generate makes one request. Providers do not retry; a failed call is
	// the caller's cue to use its fallback content.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the configured model, used for event records and pricing.
	ModelID() string
}

// Request is a single generation call.
type Request struct {
	// System carries the output rules: JSON-only for batches, plain text
	// for explanation feedback.
	System string

	// Messages holds the prompt. Quiz calls always send one user message.
	Messages []Message

	// Schema asks the backend for native structured output. Batch prompts
	// leave it nil and are validated after extraction instead.
	Schema *Schema

	MaxTokens int

	// Temperature is passed through when positive.
	Temperature float64
}

// Message is one turn of the prompt.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema.
type Schema struct {
	// Name is kebab-case, e.g. "card-batch". Anthropic uses it as a tool
	// name and OpenAI as the schema name.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the backend's reply. Content is the model text as-is
// unless a Schema was requested, in which case it is validated JSON.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// checkTruncated rejects replies cut off at MaxTokens. A truncated batch
// never parses, so it is reported as its own failure.
func checkTruncated(resp *Response) (*Response, error) {
	if resp.StopReason == "max_tokens" {
		return nil, &ErrMaxTokensExceeded{Content: resp.Content}
	}
	return resp, nil
}

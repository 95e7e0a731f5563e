// Package llm provides an abstraction for the LLM backend.
package llm

import "context"

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request is a non-streaming completion request.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	JSONMode    bool      `json:"json_mode,omitempty"`
}

// Usage reports token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the model's completion.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Client defines the interface for LLM completion calls.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

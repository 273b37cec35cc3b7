// Package llm provides the vision-model provider interface and registry
// used by the few-shot layout proposer.
package llm

import "context"

// Roles of a conversation turn. Few-shot examples are replayed as
// alternating user/model turns before the real request.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one conversation turn: text, optionally accompanied by an
// image. Providers map turns onto their own wire formats.
type Turn struct {
	Role      string
	Text      string
	ImageData []byte
	ImageMIME string
}

// Request is a complete layout-proposal prompt: a system instruction and
// an ordered list of turns ending with the target page.
type Request struct {
	System      string
	Turns       []Turn
	Model       string
	MaxTokens   int
	Temperature float64
}

// Provider is the interface all vision-model providers implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "gemini").
	Name() string

	// Propose sends the request and returns the raw model output. The
	// caller parses and validates it; providers never interpret content.
	Propose(ctx context.Context, req Request) (string, error)

	// Validate checks if the provider is properly configured.
	Validate() error
}

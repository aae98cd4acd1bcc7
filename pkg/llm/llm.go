// Package llm wraps the hosted Gemini model behind a small interface so AI call
// sites can be exercised with fakes.
package llm

import (
	"context"
	"errors"
)

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one chat turn.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ErrDisabled is returned by every call when no API key is configured.
var ErrDisabled = errors.New("llm: api key not configured")

// Client is the surface consumed by insight, reflection and chat services.
type Client interface {
	Enabled() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	StreamChat(ctx context.Context, systemInstruction string, history []Message, message string, onChunk func(string) error) (string, error)
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/noah-isme/mindsetu-api/pkg/config"
)

// Gemini implements Client with the Google Gen AI SDK.
type Gemini struct {
	client    *genai.Client
	chatModel string
	textModel string
	timeout   time.Duration
}

// NewGemini builds a client. A blank API key yields a disabled client rather than an error.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	g := &Gemini{chatModel: cfg.ChatModel, textModel: cfg.TextModel, timeout: cfg.Timeout}
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return g, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Enabled reports whether an API key was configured.
func (g *Gemini) Enabled() bool {
	return g != nil && g.client != nil
}

// GenerateText runs a single-turn free text completion.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, nil)
}

// GenerateJSON runs a single-turn completion in JSON response mode.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
}

func (g *Gemini) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

// StreamChat replays history, sends message and forwards each streamed chunk to onChunk.
// It returns the concatenated reply.
func (g *Gemini) StreamChat(ctx context.Context, systemInstruction string, history []Message, message string, onChunk func(string) error) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	var full strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.chatModel, contents, cfg) {
		if err != nil {
			return full.String(), fmt.Errorf("gemini stream: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}

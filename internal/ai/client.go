// Package ai delegates prayer-partner matching and lead scoring to a
// generative model and validates what comes back.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrNotConfigured is returned when no model credentials are set
	ErrNotConfigured = errors.New("ai: not configured")
	// ErrUpstream wraps a failed model call
	ErrUpstream = errors.New("ai: upstream error")
	// ErrMalformed is returned when the model answer cannot be used
	ErrMalformed = errors.New("ai: malformed response")
)

// Generator produces a JSON answer for a prompt and decodes it into out
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// GeminiClient is a Generator backed by the Gemini API
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed generator
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// GenerateJSON asks for a JSON response and decodes it
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, out any) error {
	temp := float32(0.2)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temp,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return decodeJSON(resp.Text(), out)
}

// decodeJSON tolerates a fenced code block around the payload
func decodeJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty answer", ErrMalformed)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Unconfigured is a Generator that always reports ErrNotConfigured
type Unconfigured struct{}

// GenerateJSON implements Generator
func (Unconfigured) GenerateJSON(context.Context, string, any) error {
	return ErrNotConfigured
}

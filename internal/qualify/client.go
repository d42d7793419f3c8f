package qualify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// TextClient is the narrow surface the qualifier needs from a
// text-generation backend. Tests substitute deterministic stubs.
type TextClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements TextClient using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a new Gemini text client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("qualify: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.0-flash-exp"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("qualify: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// Generate sends a single-turn prompt to Gemini and returns the reply text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	// Low temperature keeps the structured reply stable across calls.
	model.SetTemperature(0.1)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("qualify: gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("qualify: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("qualify: gemini returned empty content")
	}

	var responseText strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return strings.TrimSpace(responseText.String()), nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// DisabledClient is used when no generation backend is configured. Every
// call fails, which routes intake through the fallback qualification.
type DisabledClient struct{}

func (DisabledClient) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("qualify: no generation backend configured")
}

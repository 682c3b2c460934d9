package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient generates text with Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	cfg    Config
	logger *zap.Logger
}

// NewGeminiClient creates a Gemini client; cfg.BaseURL overrides the API
// endpoint.
func NewGeminiClient(ctx context.Context, cfg Config, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logger.Info("initialized gemini client", zap.String("model", cfg.Model))
	return &GeminiClient{client: client, cfg: cfg, logger: logger}, nil
}

// Generate implements Client.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var gc *genai.GenerateContentConfig
	if g.cfg.Temperature != nil {
		gc = &genai.GenerateContentConfig{Temperature: genai.Ptr(*g.cfg.Temperature)}
	}

	g.logger.Debug("generating via gemini", zap.String("model", g.cfg.Model), zap.Int("prompt_bytes", len(prompt)))
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), gc)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", ErrInvalidResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	g.logger.Debug("gemini response", zap.String("finish_reason", string(resp.Candidates[0].FinishReason)))
	return sb.String(), nil
}

// Name implements Client.
func (g *GeminiClient) Name() string { return ProviderGemini + ":" + g.cfg.Model }

package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator talks to the Gemini API
type GeminiGenerator struct {
	client *genai.Client
	model  string
	params Params
	logger *zap.Logger
}

// Ensure GeminiGenerator satisfies the interfaces.Generator interface
var _ interfaces.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini client
func NewGeminiGenerator(ctx context.Context, apiKey, model string, params Params, logger *zap.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini generator requires an API key")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  model,
		params: params,
		logger: logger.Named("gemini"),
	}, nil
}

// Close releases the client
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Generate requests one completion
func (g *GeminiGenerator) Generate(ctx context.Context, systemInstructions, storyContext string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstructions)}}
	model.SetTemperature(float32(g.params.Temperature))
	model.SetTopP(float32(g.params.TopP))
	if g.params.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(g.params.MaxTokens))
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(storyContext))
	duration := time.Since(start)

	if err != nil {
		observe("gemini", duration.Seconds(), 0, err)
		return "", fmt.Errorf("%w: %v", types.ErrGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		err := fmt.Errorf("%w: no content returned", types.ErrGenerationFailed)
		observe("gemini", duration.Seconds(), 0, err)
		return "", err
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		err := fmt.Errorf("%w: no text returned", types.ErrGenerationFailed)
		observe("gemini", duration.Seconds(), 0, err)
		return "", err
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	observe("gemini", duration.Seconds(), tokens, nil)
	g.logger.Debug("Generated passage",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("tokens", tokens))

	return b.String(), nil
}

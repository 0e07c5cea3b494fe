package narrative

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// DefaultOllamaURL is used when no base URL is configured
const DefaultOllamaURL = "http://localhost:11434"

// OllamaGenerator talks to a local Ollama server through its native chat API
type OllamaGenerator struct {
	client *api.Client
	model  string
	params Params
	logger *zap.Logger
}

// Ensure OllamaGenerator satisfies the interfaces.Generator interface
var _ interfaces.Generator = (*OllamaGenerator)(nil)

// NewOllamaGenerator creates a generator for the Ollama server at baseURL
func NewOllamaGenerator(baseURL, model string, timeout time.Duration, params Params, logger *zap.Logger) (*OllamaGenerator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	// The native API lives at the root, not under /v1
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama url %q: %w", baseURL, err)
	}

	return &OllamaGenerator{
		client: api.NewClient(parsed, &http.Client{Timeout: timeout}),
		model:  model,
		params: params,
		logger: logger.Named("ollama"),
	}, nil
}

// Generate requests one non-streaming chat response
func (g *OllamaGenerator) Generate(ctx context.Context, systemInstructions, storyContext string) (string, error) {
	messages := []api.Message{
		{Role: "system", Content: systemInstructions},
	}
	if storyContext != "" {
		messages = append(messages, api.Message{Role: "user", Content: storyContext})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": g.params.Temperature,
			"top_p":       g.params.TopP,
			"num_predict": g.params.MaxTokens,
		},
	}

	start := time.Now()
	var resp api.ChatResponse
	err := g.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		observe("ollama", duration.Seconds(), 0, err)
		return "", fmt.Errorf("%w: %v", types.ErrGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		err := fmt.Errorf("%w: empty response", types.ErrGenerationFailed)
		observe("ollama", duration.Seconds(), 0, err)
		return "", err
	}

	observe("ollama", duration.Seconds(), resp.PromptEvalCount+resp.EvalCount, nil)
	g.logger.Debug("Generated passage",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.PromptEvalCount),
		zap.Int("completion_tokens", resp.EvalCount))

	return resp.Message.Content, nil
}

package narrative

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// Params are the sampling parameters sent with each request
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// OpenAIGenerator talks to any OpenAI compatible chat completion API
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	params Params
	logger *zap.Logger
}

// Ensure OpenAIGenerator satisfies the interfaces.Generator interface
var _ interfaces.Generator = (*OpenAIGenerator)(nil)

// NewOpenAIGenerator creates a generator. An empty baseURL uses the OpenAI default.
func NewOpenAIGenerator(apiKey, baseURL, model string, timeout time.Duration, params Params, logger *zap.Logger) *OpenAIGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		model:  model,
		params: params,
		logger: logger.Named("openai"),
	}
}

// Generate requests one chat completion
func (g *OpenAIGenerator) Generate(ctx context.Context, systemInstructions, storyContext string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemInstructions},
	}
	if storyContext != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: storyContext,
		})
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.params.MaxTokens,
		Temperature: float32(g.params.Temperature),
		TopP:        float32(g.params.TopP),
	})
	duration := time.Since(start)

	if err != nil {
		observe("openai", duration.Seconds(), 0, err)
		return "", fmt.Errorf("%w: %v", types.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		err := fmt.Errorf("%w: empty response", types.ErrGenerationFailed)
		observe("openai", duration.Seconds(), 0, err)
		return "", err
	}

	observe("openai", duration.Seconds(), resp.Usage.TotalTokens, nil)
	g.logger.Debug("Generated passage",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

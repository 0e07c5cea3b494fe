package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/interfaces"
)

// NewGenerator builds the generator named by the configuration.
// The "none" backend returns a nil generator so every passage is canned.
func NewGenerator(ctx context.Context, cfg config.GeneratorConfig, logger *zap.Logger) (interfaces.Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	params := Params{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	logger.Info("Narrative generator selected",
		zap.String("backend", backend),
		zap.String("model", cfg.Model))

	switch backend {
	case "", "none":
		return nil, nil
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model, timeout, params, logger), nil
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, timeout, params, logger)
	case "gemini":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, params, logger)
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Backend)
	}
}

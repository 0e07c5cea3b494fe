package narrative

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
)

// DefaultTimeout bounds a single generator call
const DefaultTimeout = 30 * time.Second

// Random draws the canned passage to serve
type Random interface {
	Intn(n int) int
}

// Narrator turns narration requests into text. It never fails: when the generator
// is missing, slow or broken a canned passage is returned instead.
type Narrator struct {
	generator interfaces.Generator
	timeout   time.Duration
	rng       Random
	logger    *zap.Logger
}

// Ensure Narrator satisfies the interfaces.Narrator interface
var _ interfaces.Narrator = (*Narrator)(nil)

// NewNarrator creates a narrator. A nil generator always serves canned passages.
func NewNarrator(generator interfaces.Generator, timeout time.Duration, rng Random, logger *zap.Logger) *Narrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if rng == nil {
		rng = game.NewDiceRoller()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Narrator{
		generator: generator,
		timeout:   timeout,
		rng:       rng,
		logger:    logger.Named("narrator"),
	}
}

// Narrate produces the next passage for a request
func (n *Narrator) Narrate(ctx context.Context, req interfaces.NarrationRequest) interfaces.Narration {
	if n.generator == nil {
		return n.fallback(req, "disabled")
	}

	system, story, err := BuildPrompt(req)
	if err != nil {
		n.logger.Error("Failed to build prompt", zap.String("session_id", req.SessionID), zap.Error(err))
		return n.fallback(req, "prompt")
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text, err := n.generator.Generate(ctx, system, story)
	if err != nil {
		n.logger.Warn("Generator failed, serving canned passage",
			zap.String("session_id", req.SessionID),
			zap.Int("turn", req.TurnCount),
			zap.Error(err))
		return n.fallback(req, "error")
	}

	text = cleanGenerated(text)
	if text == "" {
		n.logger.Warn("Generator returned empty text, serving canned passage",
			zap.String("session_id", req.SessionID),
			zap.Int("turn", req.TurnCount))
		return n.fallback(req, "empty")
	}

	return interfaces.Narration{Text: text}
}

func (n *Narrator) fallback(req interfaces.NarrationRequest, reason string) interfaces.Narration {
	fallbacksTotal.WithLabelValues(reason).Inc()

	passage := FallbackPassage(req.TurnCount, n.rng)
	if req.ChoiceIndex > 0 {
		passage = Continuation(req.ChoiceIndex) + "\n\n" + passage
	}
	return interfaces.Narration{Text: passage, FallbackUsed: true}
}

// cleanGenerated strips whitespace and markdown fences some models wrap their output in
func cleanGenerated(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```markdown")
		text = strings.TrimPrefix(text, "```text")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

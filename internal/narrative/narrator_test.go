package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// MockGenerator is a mock implementation of interfaces.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, systemInstructions, storyContext string) (string, error) {
	args := m.Called(ctx, systemInstructions, storyContext)
	return args.String(0), args.Error(1)
}

// slowGenerator blocks until its context is done
type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, systemInstructions, storyContext string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type fixedRandom int

func (f fixedRandom) Intn(n int) int { return int(f) % n }

func narrationRequest(turn, choice int) interfaces.NarrationRequest {
	return interfaces.NarrationRequest{
		SessionID: "s1",
		Mission: types.Mission{
			Name:      "Liberation of Carentan",
			Location:  "Carentan, France",
			Date:      "June 10, 1944",
			Objective: "Capture the strategic crossroads town",
		},
		Player: types.Player{
			Name: "Miller", Rank: "Sergeant", Class: types.ClassMedic, Weapon: "SMG",
			Health: 70, MaxHealth: 100, Morale: 60,
		},
		Phase:       types.PhaseFor(turn),
		TurnCount:   turn,
		Story:       "The column halts at the edge of the village.",
		Choice:      "Advance along the hedgerow",
		ChoiceIndex: choice,
	}
}

func TestNarratorUsesGenerator(t *testing.T) {
	// Setup
	generator := new(MockGenerator)
	generator.On("Generate", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return("```markdown\nShots ring out.\n\n1. Return fire\n2. Take cover\n3. Flank left\n```", nil).Once()
	narrator := NewNarrator(generator, time.Second, fixedRandom(0), nil)

	// Test case 1: Generated text is cleaned and returned
	narration := narrator.Narrate(context.Background(), narrationRequest(1, 1))
	assert.False(t, narration.FallbackUsed)
	assert.Equal(t, "Shots ring out.\n\n1. Return fire\n2. Take cover\n3. Flank left", narration.Text)

	// Test case 2: The prompt carries the request
	system := generator.Calls[0].Arguments.String(1)
	story := generator.Calls[0].Arguments.String(2)
	assert.Contains(t, system, "Mission phase: Middle")
	assert.Contains(t, system, "exactly three numbered tactical choices")
	assert.Contains(t, story, "Player: Miller (Sergeant, Medic, armed with SMG)")
	assert.Contains(t, story, "Choice made: Advance along the hedgerow")
	generator.AssertExpectations(t)
}

func TestNarratorFallback(t *testing.T) {
	// Setup
	ctx := context.Background()

	// Test case 1: No generator
	narration := NewNarrator(nil, 0, fixedRandom(0), nil).Narrate(ctx, narrationRequest(0, 0))
	assert.True(t, narration.FallbackUsed)
	assert.Equal(t, fallbackPassages[0][0], narration.Text)

	// Test case 2: Generator error
	failing := new(MockGenerator)
	failing.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited"))
	narration = NewNarrator(failing, time.Second, fixedRandom(1), nil).Narrate(ctx, narrationRequest(2, 2))
	assert.True(t, narration.FallbackUsed)
	assert.True(t, strings.HasPrefix(narration.Text, Continuation(2)))
	assert.True(t, strings.HasSuffix(narration.Text, fallbackPassages[1][1]))

	// Test case 3: Empty text
	empty := new(MockGenerator)
	empty.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("  \n ", nil)
	narration = NewNarrator(empty, time.Second, fixedRandom(0), nil).Narrate(ctx, narrationRequest(4, 3))
	assert.True(t, narration.FallbackUsed)
	assert.Contains(t, narration.Text, "Make a final push to the objective.")

	// Test case 4: Timeout
	narration = NewNarrator(slowGenerator{}, 20*time.Millisecond, fixedRandom(0), nil).Narrate(ctx, narrationRequest(1, 9))
	assert.True(t, narration.FallbackUsed)
	assert.True(t, strings.HasPrefix(narration.Text, defaultContinuation))
}

func TestFallbackPassagesOfferThreeChoices(t *testing.T) {
	for bucket := range fallbackPassages {
		for i, passage := range fallbackPassages[bucket] {
			assert.Equal(t, game.ChoiceCount, game.RecoveredChoiceCount(passage), "bucket %d passage %d", bucket, i)
		}
	}

	// Turns map onto buckets 0, 1-2 and 3+
	assert.Equal(t, fallbackPassages[0][1], FallbackPassage(0, fixedRandom(1)))
	assert.Equal(t, fallbackPassages[1][0], FallbackPassage(2, fixedRandom(0)))
	assert.Equal(t, fallbackPassages[2][0], FallbackPassage(3, fixedRandom(0)))
	assert.Equal(t, fallbackPassages[2][1], FallbackPassage(12, fixedRandom(1)))
}

func TestBuildPromptWindow(t *testing.T) {
	// Setup
	req := narrationRequest(0, 0)
	req.Story = strings.Repeat("a", StoryWindow) + "TAIL"

	// Test case 1: Only the end of a long story is sent
	system, story, err := BuildPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, system, "Mission phase: Start")
	assert.Contains(t, story, "TAIL")
	assert.NotContains(t, story, strings.Repeat("a", StoryWindow))
	assert.Contains(t, story, "Background: A crucial crossroads town")

	// Test case 2: An empty story leaves out the situation block
	req.Story = ""
	_, story, err = BuildPrompt(req)
	require.NoError(t, err)
	assert.NotContains(t, story, "Current situation")
}

func TestCleanGenerated(t *testing.T) {
	assert.Equal(t, "text", cleanGenerated("```\ntext\n```"))
	assert.Equal(t, "text", cleanGenerated("  text  "))
	assert.Equal(t, "", cleanGenerated("```text\n```"))
}

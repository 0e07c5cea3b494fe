package interfaces

import (
	"context"

	"github.com/user/frontline-missions/internal/types"
)

// MessageSender defines the interface for sending messages
type MessageSender interface {
	SendMessage(phoneNumber, recipient, message string) (string, error)
}

// Generator produces narrative text from instructions and story context
type Generator interface {
	Generate(ctx context.Context, systemInstructions, storyContext string) (string, error)
}

// NarrationRequest describes the passage a turn needs
type NarrationRequest struct {
	SessionID string
	Mission   types.Mission
	Player    types.Player
	Phase     types.Phase
	TurnCount int
	Story     string
	Choice    string
	// 1-based index of the chosen option, 0 for the mission opening
	ChoiceIndex int
}

// Narration is the text a Narrator produced
type Narration struct {
	Text         string
	FallbackUsed bool
}

// Narrator always returns narrative text, falling back to canned passages
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) Narration
}

// ArchiveStore keeps full narrative text recoverable by turn tag
type ArchiveStore interface {
	Put(ctx context.Context, sessionID, tag, text string) error
	Get(ctx context.Context, sessionID, tag string) (string, error)
}

// ArchivePurger is implemented by archives that can drop a session's narrative
type ArchivePurger interface {
	Purge(ctx context.Context, sessionID string) error
}

// SessionStore persists game sessions by id
type SessionStore interface {
	Save(ctx context.Context, session *types.GameSession) error
	Load(ctx context.Context, sessionID string) (*types.GameSession, error)
	Delete(ctx context.Context, sessionID string) error
}

// CharacterRequest carries the fields of a new character
type CharacterRequest struct {
	Name   string `json:"name"`
	Rank   string `json:"rank"`
	Class  string `json:"class"`
	Weapon string `json:"weapon"`
}

// AchievementCard is an achievement as shown to the player
type AchievementCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
	TriviaTitle string `json:"trivia_title,omitempty"`
	TriviaFact  string `json:"trivia_fact,omitempty"`
	Category    string `json:"category,omitempty"`
}

// GameManager defines the interface for game operations
type GameManager interface {
	CreateCharacter(ctx context.Context, sessionID string, req CharacterRequest) (*types.GameSession, error)
	GetSession(ctx context.Context, sessionID string) (*types.GameSession, error)
	ResetSession(ctx context.Context, sessionID string) error
	ListMissions() []types.Mission
	StartMission(ctx context.Context, sessionID, missionID string) (*types.TurnResult, error)
	MakeChoice(ctx context.Context, sessionID string, choice int) (*types.TurnResult, error)
	ResolveCombat(ctx context.Context, sessionID, action string) (*types.TurnResult, error)
	UseItem(ctx context.Context, sessionID, item string) (*types.TurnResult, error)
	Achievements(ctx context.Context, sessionID string) ([]AchievementCard, error)
	RecoverNarrative(ctx context.Context, sessionID string, turn int) (string, error)
}

package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// Starting values of a new character
const (
	DefaultMaxHealth = 100
	DefaultMorale    = 80
	DefaultRank      = "Private"
	DefaultWeapon    = "Rifle"
)

// GameManager handles sessions and routes player requests to the turn engine
type GameManager struct {
	sessions interfaces.SessionStore
	archive  interfaces.ArchiveStore
	engine   *TurnEngine
	missions []types.Mission
	rng      Random
	locks    *sessionLocks
	Logger   *zap.Logger
	now      func() time.Time
}

// Ensure GameManager satisfies the interfaces.GameManager interface
var _ interfaces.GameManager = (*GameManager)(nil)

// NewGameManager creates a game manager from configuration
func NewGameManager(cfg config.Config, sessions interfaces.SessionStore, archive interfaces.ArchiveStore, narrator interfaces.Narrator, logger *zap.Logger) (*GameManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Load mission catalog
	missions := DefaultMissions()
	if cfg.Game.MissionsFile != "" {
		loaded, err := NewDataLoader(cfg.Game.MissionsFile).LoadMissions()
		if err != nil {
			return nil, fmt.Errorf("failed to load missions: %w", err)
		}
		missions = loaded
	}

	var rng *DiceRoller
	if cfg.Game.Seed != 0 {
		rng = NewSeededDiceRoller(cfg.Game.Seed)
	} else {
		rng = NewDiceRoller()
	}

	tables := DefaultTables()
	engine := NewTurnEngine(narrator, tables,
		WithRandom(rng),
		WithLogger(logger.Named("engine")),
		WithTurnCap(cfg.Game.TurnCap),
		WithInteractiveCombat(cfg.Game.InteractiveCombat),
		WithDetector(NewOutcomeDetector(tables, cfg.Game.OutcomeMargin, cfg.Game.ResolutionTurn)),
		WithCompactor(NewStoryCompactor(archive, tables, cfg.Game.SummaryThreshold, cfg.Game.SummaryBudget, logger.Named("compactor"))),
	)

	return NewGameManagerWithEngine(engine, sessions, archive, missions, rng, logger), nil
}

// NewGameManagerWithEngine creates a game manager around a prepared engine
func NewGameManagerWithEngine(engine *TurnEngine, sessions interfaces.SessionStore, archive interfaces.ArchiveStore, missions []types.Mission, rng Random, logger *zap.Logger) *GameManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(missions) == 0 {
		missions = DefaultMissions()
	}
	if rng == nil {
		rng = NewDiceRoller()
	}
	return &GameManager{
		sessions: sessions,
		archive:  archive,
		engine:   engine,
		missions: missions,
		rng:      rng,
		locks:    newSessionLocks(),
		Logger:   logger,
		now:      time.Now,
	}
}

// CreateCharacter enlists a new character under a session id.
// Statistics and achievements of an earlier character on the same session carry over.
func (gm *GameManager) CreateCharacter(ctx context.Context, sessionID string, req interfaces.CharacterRequest) (*types.GameSession, error) {
	// Validate request
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, types.ErrInvalidName
	}
	class, ok := ValidClass(req.Class)
	if !ok {
		return nil, types.ErrInvalidClass
	}
	rank := DefaultRank
	if req.Rank != "" {
		if rank, ok = ValidRank(req.Rank); !ok {
			return nil, types.ErrInvalidRank
		}
	}
	weapon := DefaultWeapon
	if req.Weapon != "" {
		if weapon, ok = ValidWeapon(req.Weapon); !ok {
			return nil, types.ErrInvalidWeapon
		}
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	unlock := gm.locks.lock(sessionID)
	defer unlock()

	now := gm.now()
	session := &types.GameSession{
		ID: sessionID,
		Player: types.Player{
			Name:      name,
			Rank:      rank,
			Class:     class,
			Weapon:    weapon,
			Health:    DefaultMaxHealth,
			MaxHealth: DefaultMaxHealth,
			Morale:    DefaultMorale,
		},
		Squad:     GenerateSquad(rank, gm.rng),
		Resources: DefaultResources(),
		Phase:     types.PhaseStart,
		State:     types.StateAwaitingChoice,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Carry over the record of a previous character
	previous, err := gm.loadSession(ctx, sessionID)
	switch {
	case err == nil:
		session.Stats = previous.Stats.Clone()
		session.AchievementsUnlocked = append([]string(nil), previous.AchievementsUnlocked...)
		session.CompletedMissions = append([]types.CompletedMission(nil), previous.CompletedMissions...)
		session.Score = previous.Score
		session.CreatedAt = previous.CreatedAt
	case errors.Is(err, types.ErrSessionNotFound), errors.Is(err, types.ErrSessionCorrupt):
	default:
		return nil, err
	}

	session.Stats = ApplyStatEvent(session.Stats, StatUpdate{Event: types.EventClassSelected, Class: string(class)})
	fresh := gm.engine.Evaluator().Evaluate(session.Stats, session.AchievementsUnlocked)
	session.AchievementsUnlocked = append(session.AchievementsUnlocked, fresh...)

	// Save session
	if err := gm.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	gm.Logger.Info("Character created",
		zap.String("session_id", sessionID),
		zap.String("name", name),
		zap.String("class", string(class)),
		zap.String("rank", rank))

	return session, nil
}

// GetSession retrieves a session by id
func (gm *GameManager) GetSession(ctx context.Context, sessionID string) (*types.GameSession, error) {
	unlock := gm.locks.lock(sessionID)
	defer unlock()

	return gm.loadSession(ctx, sessionID)
}

// ResetSession deletes a session and everything it recorded
func (gm *GameManager) ResetSession(ctx context.Context, sessionID string) error {
	unlock := gm.locks.lock(sessionID)
	defer unlock()

	if err := gm.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if purger, ok := gm.archive.(interfaces.ArchivePurger); ok {
		if err := purger.Purge(ctx, sessionID); err != nil {
			gm.Logger.Warn("Failed to purge archived narrative", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	gm.Logger.Info("Session reset", zap.String("session_id", sessionID))
	return nil
}

// ListMissions returns the mission catalog
func (gm *GameManager) ListMissions() []types.Mission {
	return append([]types.Mission(nil), gm.missions...)
}

// StartMission deploys the player on a mission; an empty id picks the next campaign mission
func (gm *GameManager) StartMission(ctx context.Context, sessionID, missionID string) (*types.TurnResult, error) {
	unlock := gm.locks.lock(sessionID)
	defer unlock()

	session, err := gm.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mission != nil && !session.State.Terminal() {
		return nil, types.ErrMissionInProgress
	}

	// Pick mission
	var mission types.Mission
	var ok bool
	if missionID == "" {
		mission, ok = NextMission(gm.missions, session)
	} else {
		mission, ok = FindMission(gm.missions, missionID)
	}
	if !ok {
		return nil, types.ErrMissionNotFound
	}

	// Fresh deployment
	session.Player.Health = session.Player.MaxHealth
	session.Resources = DefaultResources()
	if len(session.Squad) == 0 {
		session.Squad = GenerateSquad(session.Player.Rank, gm.rng)
	}

	next, res := gm.engine.StartMission(ctx, *session, mission)
	if err := gm.sessions.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return res, nil
}

// MakeChoice resolves one turn with the chosen option (1-3)
func (gm *GameManager) MakeChoice(ctx context.Context, sessionID string, choice int) (*types.TurnResult, error) {
	unlock := gm.locks.lock(sessionID)
	defer unlock()

	session, err := gm.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mission == nil {
		return nil, types.ErrNoActiveMission
	}
	if session.State == types.StateCombatPending {
		return nil, types.ErrCombatPending
	}

	next, res := gm.engine.ResolveTurn(ctx, *session, choice)
	if res.Degraded {
		return res, nil
	}

	// Save session
	if err := gm.sessions.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return res, nil
}

// ResolveCombat settles a pending fight with the player's stated action
func (gm *GameManager) ResolveCombat(ctx context.Context, sessionID, action string) (*types.TurnResult, error) {
	unlock := gm.locks.lock(sessionID)
	defer unlock()

	session, err := gm.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next, res, err := gm.engine.ResolvePendingCombat(*session, action)
	if err != nil {
		return nil, err
	}

	// Save session
	if err := gm.sessions.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return res, nil
}

// UseItem spends a consumable during an active mission
func (gm *GameManager) UseItem(ctx context.Context, sessionID, item string) (*types.TurnResult, error) {
	unlock := gm.locks.lock(sessionID)
	defer unlock()

	session, err := gm.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Mission == nil || session.State.Terminal() {
		return nil, types.ErrNoActiveMission
	}

	next, res, err := gm.engine.UseItem(*session, item)
	if err != nil {
		return nil, err
	}

	// Save session
	if err := gm.sessions.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return res, nil
}

// Achievements lists every achievement; trivia is revealed once unlocked
func (gm *GameManager) Achievements(ctx context.Context, sessionID string) ([]interfaces.AchievementCard, error) {
	session, err := gm.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rules := gm.engine.Evaluator().Rules()
	cards := make([]interfaces.AchievementCard, 0, len(rules))
	for _, rule := range rules {
		card := interfaces.AchievementCard{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Icon:        rule.Icon,
			Unlocked:    session.HasUnlocked(rule.ID),
		}
		if card.Unlocked {
			card.TriviaTitle = rule.Trivia.Title
			card.TriviaFact = rule.Trivia.Fact
			card.Category = rule.Trivia.Category
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// RecoverNarrative returns the full narrative archived at a turn
func (gm *GameManager) RecoverNarrative(ctx context.Context, sessionID string, turn int) (string, error) {
	if gm.archive == nil {
		return "", types.ErrArchiveNotFound
	}
	if _, err := gm.GetSession(ctx, sessionID); err != nil {
		return "", err
	}
	return gm.archive.Get(ctx, sessionID, ArchiveTag(turn))
}

// loadSession loads and validates a session. Invalid sessions are deleted.
func (gm *GameManager) loadSession(ctx context.Context, sessionID string) (*types.GameSession, error) {
	session, err := gm.sessions.Load(ctx, sessionID)
	if err == nil {
		err = session.Validate()
	}
	if errors.Is(err, types.ErrSessionCorrupt) {
		gm.Logger.Warn("Deleting invalid session", zap.String("session_id", sessionID), zap.Error(err))
		if delErr := gm.sessions.Delete(ctx, sessionID); delErr != nil {
			gm.Logger.Error("Failed to delete invalid session", zap.String("session_id", sessionID), zap.Error(delErr))
		}
		return nil, types.ErrSessionCorrupt
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// sessionLocks serializes work on each session id
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (sl *sessionLocks) lock(id string) func() {
	sl.mu.Lock()
	l, ok := sl.locks[id]
	if !ok {
		l = &sessionLock{}
		sl.locks[id] = l
	}
	l.refs++
	sl.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		sl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(sl.locks, id)
		}
		sl.mu.Unlock()
	}
}

package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// DefaultTurnCap is the hard turn limit of a mission
const DefaultTurnCap = 6

// MedkitHeal is the health restored by a medkit used outside a turn
const MedkitHeal = 30

// TurnEngine resolves one player choice at a time.
// It takes a session value and returns the next one without holding any session state.
type TurnEngine struct {
	tables            *Tables
	narrator          interfaces.Narrator
	detector          *OutcomeDetector
	combat            *CombatResolver
	compactor         *StoryCompactor
	evaluator         *RuleEvaluator
	consequences      ConsequenceFunc
	rng               Random
	turnCap           int
	interactiveCombat bool
	logger            *zap.Logger
	now               func() time.Time
}

// EngineOption configures a TurnEngine
type EngineOption func(*TurnEngine)

// WithTurnCap sets the hard turn limit
func WithTurnCap(n int) EngineOption {
	return func(te *TurnEngine) {
		if n > 0 {
			te.turnCap = n
		}
	}
}

// WithInteractiveCombat stores detected fights for the player to resolve
func WithInteractiveCombat(enabled bool) EngineOption {
	return func(te *TurnEngine) { te.interactiveCombat = enabled }
}

// WithRandom sets the random source shared by combat and consequences
func WithRandom(rng Random) EngineOption {
	return func(te *TurnEngine) { te.rng = rng }
}

// WithConsequences replaces the consequence model
func WithConsequences(fn ConsequenceFunc) EngineOption {
	return func(te *TurnEngine) { te.consequences = fn }
}

// WithDetector replaces the outcome detector
func WithDetector(d *OutcomeDetector) EngineOption {
	return func(te *TurnEngine) { te.detector = d }
}

// WithCompactor replaces the story compactor
func WithCompactor(c *StoryCompactor) EngineOption {
	return func(te *TurnEngine) { te.compactor = c }
}

// WithEvaluator replaces the achievement evaluator
func WithEvaluator(e *RuleEvaluator) EngineOption {
	return func(te *TurnEngine) { te.evaluator = e }
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) EngineOption {
	return func(te *TurnEngine) { te.logger = logger }
}

// WithClock sets the time source used for timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(te *TurnEngine) { te.now = now }
}

// NewTurnEngine creates an engine around a narrator
func NewTurnEngine(narrator interfaces.Narrator, tables *Tables, opts ...EngineOption) *TurnEngine {
	if tables == nil {
		tables = DefaultTables()
	}
	te := &TurnEngine{
		tables:       tables,
		narrator:     narrator,
		consequences: DefaultConsequences,
		turnCap:      DefaultTurnCap,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(te)
	}
	if te.rng == nil {
		te.rng = NewDiceRoller()
	}
	if te.detector == nil {
		te.detector = NewOutcomeDetector(tables, DefaultOutcomeMargin, DefaultResolutionTurn)
	}
	if te.combat == nil {
		te.combat = NewCombatResolver(tables)
	}
	if te.compactor == nil {
		te.compactor = NewStoryCompactor(nil, tables, DefaultSummaryThreshold, DefaultSummaryBudget, te.logger)
	}
	if te.evaluator == nil {
		te.evaluator = NewRuleEvaluator(nil)
	}
	return te
}

// Tables returns the keyword tables the engine runs on
func (te *TurnEngine) Tables() *Tables {
	return te.tables
}

// Evaluator returns the achievement evaluator
func (te *TurnEngine) Evaluator() *RuleEvaluator {
	return te.evaluator
}

// StartMission puts a session at the opening of a mission
func (te *TurnEngine) StartMission(ctx context.Context, session types.GameSession, mission types.Mission) (types.GameSession, *types.TurnResult) {
	next := session.Clone()
	next.Mission = &mission
	next.TurnCount = 0
	next.Phase = types.PhaseStart
	next.State = types.StateAwaitingChoice
	next.PendingCombat = nil
	next.MissionCombatVictories = 0
	next.LastSummary = nil
	next.Stats.MissionChoices = 0
	next.Stats.MissionDamage = 0

	narration := te.narrator.Narrate(ctx, interfaces.NarrationRequest{
		SessionID: next.ID,
		Mission:   mission,
		Player:    next.Player,
		Phase:     types.PhaseStart,
		TurnCount: 0,
		Choice:    "Mission Start",
	})
	opening := strings.TrimSpace(narration.Text)
	next.Narrative = types.NarrativeState{
		Text:      opening,
		LastChunk: opening,
	}
	next.UpdatedAt = te.now()

	te.logger.Info("Mission started",
		zap.String("session_id", next.ID),
		zap.String("mission", mission.Name),
		zap.Bool("fallback", narration.FallbackUsed))

	res := te.result(&next, &types.TurnResult{FallbackUsed: narration.FallbackUsed}, types.StateAwaitingChoice)
	return next, res
}

// ResolveTurn applies one choice to a session.
// A finished mission is returned unchanged with its summary; a failing turn
// returns the original session marked as degraded.
func (te *TurnEngine) ResolveTurn(ctx context.Context, session types.GameSession, choice int) (out types.GameSession, res *types.TurnResult) {
	if session.State.Terminal() {
		return session, te.result(&session, &types.TurnResult{Summary: session.LastSummary}, session.State)
	}

	defer func() {
		if r := recover(); r != nil {
			te.logger.Error("Turn resolution panicked",
				zap.String("session_id", session.ID),
				zap.Any("panic", r))
			out, res = session, te.degraded(&session)
		}
	}()

	next := session.Clone()
	res, err := te.resolve(ctx, &next, choice)
	if err != nil {
		te.logger.Error("Failed to resolve turn",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return session, te.degraded(&session)
	}
	turnsTotal.WithLabelValues(string(res.Transition)).Inc()
	return next, res
}

func (te *TurnEngine) resolve(ctx context.Context, s *types.GameSession, choice int) (*types.TurnResult, error) {
	if s.Mission == nil {
		return nil, types.ErrNoActiveMission
	}
	if s.State == types.StateCombatPending {
		return nil, types.ErrCombatPending
	}

	idx := ClampChoice(choice)
	choices := ExtractChoices(s.Narrative.LastChunk, te.tables)
	if RecoveredChoiceCount(s.Narrative.LastChunk) < ChoiceCount {
		te.logger.Debug("Filled missing choices from fallback",
			zap.String("session_id", s.ID),
			zap.Int("recovered", RecoveredChoiceCount(s.Narrative.LastChunk)))
	}
	action := choices[idx-1]
	turn := s.TurnCount + 1

	s.State = types.StateResolving
	s.Narrative.Text += fmt.Sprintf("\n\n> **Order:** %s\n", action)
	s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventChoiceMade})
	s.UpdatedAt = te.now()
	res := &types.TurnResult{Action: action}

	// Orders that end the mission outright
	if te.tables.IsCompletion(action) {
		te.appendVignette(s)
		return te.finish(s, res, turn, types.VerdictSuccess, "Objective completed on your order", false), nil
	}
	if turn >= te.turnCap {
		te.appendVignette(s)
		return te.finish(s, res, turn, types.VerdictSuccess, "The mission reached its final turn", false), nil
	}

	// Consequences of the order
	category := te.tables.Classify(action)
	report := te.consequences(s, action, category, te.rng)
	damage := applyConsequences(s, report)
	res.Consequences = &report
	if damage > 0 {
		s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventDamageTaken, Amount: damage})
	}
	for i := 0; i < report.ItemsConsumed; i++ {
		s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventItemUsed})
	}
	if s.Player.Health <= 0 {
		return te.finish(s, res, turn, types.VerdictFailure, "You were killed in action", true), nil
	}

	// Narrate what happens next
	phase := types.PhaseFor(turn)
	narration := te.narrator.Narrate(ctx, interfaces.NarrationRequest{
		SessionID:   s.ID,
		Mission:     *s.Mission,
		Player:      s.Player,
		Phase:       phase,
		TurnCount:   turn,
		Story:       s.Narrative.Text,
		Choice:      action,
		ChoiceIndex: idx,
	})
	res.FallbackUsed = narration.FallbackUsed
	chunk := strings.TrimSpace(narration.Text)
	s.Narrative.Text += "\n\n" + chunk
	s.Narrative.LastChunk = chunk

	switch te.detector.Detect(s.Narrative.Text, turn) {
	case types.VerdictSuccess:
		return te.finish(s, res, turn, types.VerdictSuccess, "The objective was achieved", false), nil
	case types.VerdictFailure:
		return te.finish(s, res, turn, types.VerdictFailure, "The mission could not be completed", false), nil
	}

	// Fights breaking out in the new passage
	state := types.StateAwaitingChoice
	transition := types.StateContinuing
	if te.tables.HasCombat(chunk) {
		encounter := GenerateEncounter(s.Player, *s.Mission, action, te.rng)
		if te.interactiveCombat {
			s.PendingCombat = encounter
			res.PendingCombat = encounter
			state = types.StateCombatPending
			transition = types.StateCombatPending
		} else {
			result := te.applyCombat(s, encounter)
			res.Combat = &result
			s.Narrative.Text += fmt.Sprintf("\n\n(Combat Report: %s)", result.Description)
			if s.Player.Health <= 0 {
				return te.finish(s, res, turn, types.VerdictFailure, "You fell in combat", true), nil
			}
		}
	}

	compaction := te.compactor.Compact(ctx, s.ID, turn, s.Narrative.Text, *s.Mission, s.Player)
	if compaction.Compacted {
		s.Narrative.Text = compaction.Text
		s.Narrative.Summary = compaction.Text
	}
	if compaction.Archived {
		s.Narrative.ArchivedTurns = append(s.Narrative.ArchivedTurns, turn)
	}

	s.TurnCount = turn
	s.Phase = phase
	s.State = state
	te.evaluate(s, res)

	te.logger.Debug("Turn resolved",
		zap.String("session_id", s.ID),
		zap.Int("turn", turn),
		zap.String("action", action),
		zap.String("transition", string(transition)))

	return te.result(s, res, transition), nil
}

// ResolvePendingCombat settles a stored encounter with the player's stated action
func (te *TurnEngine) ResolvePendingCombat(session types.GameSession, action string) (types.GameSession, *types.TurnResult, error) {
	if session.State != types.StateCombatPending || session.PendingCombat == nil || session.Mission == nil {
		return session, nil, types.ErrNoPendingCombat
	}

	next := session.Clone()
	encounter := next.PendingCombat
	if action = strings.TrimSpace(action); action != "" {
		encounter.Action = action
	}
	next.PendingCombat = nil
	next.UpdatedAt = te.now()

	result := te.applyCombat(&next, encounter)
	next.Narrative.Text += fmt.Sprintf("\n\n> **Engage:** %s\n\n(Combat Report: %s)", encounter.Action, result.Description)
	res := &types.TurnResult{Action: encounter.Action, Combat: &result}

	if next.Player.Health <= 0 {
		res = te.finish(&next, res, next.TurnCount, types.VerdictFailure, "You fell in combat", true)
		turnsTotal.WithLabelValues(string(res.Transition)).Inc()
		return next, res, nil
	}

	next.State = types.StateAwaitingChoice
	te.evaluate(&next, res)
	res = te.result(&next, res, types.StateContinuing)
	turnsTotal.WithLabelValues(string(res.Transition)).Inc()
	return next, res, nil
}

// UseItem spends one consumable outside the turn flow. Only medkits can be used this way.
func (te *TurnEngine) UseItem(session types.GameSession, item string) (types.GameSession, *types.TurnResult, error) {
	if !strings.EqualFold(strings.TrimSpace(item), "medkit") || session.Resources.Medkits <= 0 {
		return session, nil, types.ErrItemUnavailable
	}
	if session.State.Terminal() {
		return session, nil, types.ErrNoActiveMission
	}

	next := session.Clone()
	next.Resources.Medkits--
	healed := min(MedkitHeal, next.Player.MaxHealth-next.Player.Health)
	next.Player.Health += healed
	next.Player.Clamp()
	next.Stats = ApplyStatEvent(next.Stats, StatUpdate{Event: types.EventItemUsed})
	next.UpdatedAt = te.now()

	res := &types.TurnResult{
		Action: "Use medkit",
		Consequences: &types.ConsequenceReport{
			Category:      CategoryMedical,
			HealthChange:  healed,
			MedkitsChange: -1,
			ItemsConsumed: 1,
			Description:   fmt.Sprintf("You patch yourself up and recover %d health.", healed),
		},
	}
	te.evaluate(&next, res)
	return next, te.result(&next, res, next.State), nil
}

func (te *TurnEngine) applyCombat(s *types.GameSession, encounter *types.CombatEncounter) types.CombatResult {
	result := te.combat.ResolveEncounter(s.Player, encounter, s.Mission.Difficulty, te.rng)

	s.Player.Health -= result.Damage
	s.Player.Clamp()
	s.Resources.Ammo -= result.AmmoUsed
	s.Resources.Clamp()

	if result.Damage > 0 {
		s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventDamageTaken, Amount: result.Damage})
	}
	if result.Victory {
		s.MissionCombatVictories++
		s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventCombatVictory})
		combatsTotal.WithLabelValues("victory").Inc()
	} else {
		combatsTotal.WithLabelValues("defeat").Inc()
	}
	return result
}

func (te *TurnEngine) appendVignette(s *types.GameSession) {
	vignette := te.tables.Vignette(s.Mission.Name)
	s.Narrative.Text += "\n\n" + vignette
	s.Narrative.LastChunk = vignette
}

// finish ends the mission, scores it and records the summary
func (te *TurnEngine) finish(s *types.GameSession, res *types.TurnResult, turn int, verdict types.Verdict, reason string, death bool) *types.TurnResult {
	s.TurnCount = turn
	s.Phase = types.PhaseFor(turn)
	s.PendingCombat = nil

	score := CalculateMissionScore(*s.Mission, verdict, turn, s.MissionCombatVictories)
	s.Score += score

	if verdict == types.VerdictSuccess {
		s.State = types.StateMissionComplete
		s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventMissionCompleted, Score: score})
		if len(s.Squad) > 0 {
			s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventSquadMissionSuccess})
		}
	} else {
		s.State = types.StateMissionFailed
		if death {
			s.Stats = ApplyStatEvent(s.Stats, StatUpdate{Event: types.EventPlayerDeath})
		}
	}

	s.CompletedMissions = append(s.CompletedMissions, types.CompletedMission{
		MissionID:   s.Mission.ID,
		Name:        s.Mission.Name,
		Outcome:     verdict,
		Score:       score,
		Turns:       turn,
		CompletedAt: te.now(),
	})
	s.LastSummary = &types.MissionSummary{
		Mission:         s.Mission.Name,
		Outcome:         verdict,
		Score:           score,
		Turns:           turn,
		CombatVictories: s.MissionCombatVictories,
		SquadSurvivors:  len(s.Squad),
		Reason:          reason,
	}
	missionsEnded.WithLabelValues(string(verdict)).Inc()

	te.logger.Info("Mission ended",
		zap.String("session_id", s.ID),
		zap.String("mission", s.Mission.Name),
		zap.String("outcome", string(verdict)),
		zap.Int("score", score),
		zap.Int("turns", turn))

	res.Outcome = verdict
	res.Summary = s.LastSummary
	te.evaluate(s, res)
	return te.result(s, res, s.State)
}

func (te *TurnEngine) evaluate(s *types.GameSession, res *types.TurnResult) {
	fresh := te.evaluator.Evaluate(s.Stats, s.AchievementsUnlocked)
	if len(fresh) == 0 {
		return
	}
	s.AchievementsUnlocked = append(s.AchievementsUnlocked, fresh...)
	res.NewAchievements = append(res.NewAchievements, fresh...)
}

// result copies the presentation fields of a session into res
func (te *TurnEngine) result(s *types.GameSession, res *types.TurnResult, transition types.TurnState) *types.TurnResult {
	res.SessionID = s.ID
	res.Narrative = s.Narrative.Text
	res.LastChunk = s.Narrative.LastChunk
	res.Player = s.Player
	res.Resources = s.Resources
	res.Squad = append([]types.SquadMember(nil), s.Squad...)
	res.Score = s.Score
	res.TurnCount = s.TurnCount
	res.Phase = s.Phase
	res.Transition = transition
	if s.PendingCombat != nil {
		res.PendingCombat = s.PendingCombat
	}
	if !s.State.Terminal() {
		res.Choices = ExtractChoices(s.Narrative.LastChunk, te.tables)
	}
	return res
}

func (te *TurnEngine) degraded(s *types.GameSession) *types.TurnResult {
	turnsDegraded.Inc()
	res := te.result(s, &types.TurnResult{Degraded: true}, s.State)
	res.Narrative = s.Narrative.Text + "\n\n" + te.tables.ContinuationFallback
	return res
}

// ClampChoice forces a choice index into 1..3
func ClampChoice(choice int) int {
	return max(1, min(ChoiceCount, choice))
}

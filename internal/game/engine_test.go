package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/frontline-missions/internal/types"
)

func TestResolveTurnMissionAccomplished(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator("The last defenders throw down their rifles. Mission accomplished!")
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(99)))
	session := testSession()

	// Test case 1: A decisive passage completes the mission
	next, res := engine.ResolveTurn(context.Background(), session, 2)
	assert.Equal(t, "Hold position and observe", res.Action)
	assert.Equal(t, types.StateMissionComplete, next.State)
	assert.Equal(t, types.StateMissionComplete, res.Transition)
	assert.Equal(t, types.VerdictSuccess, res.Outcome)
	assert.Equal(t, 1, next.TurnCount)
	assert.Equal(t, 150, next.Score)
	assert.Nil(t, res.Choices)

	// Test case 2: Statistics and achievements follow the mission end
	assert.Equal(t, 1, next.Stats.MissionsCompleted)
	assert.Equal(t, 1, next.Stats.SuccessfulSquadMissions)
	assert.Equal(t, []string{"first_mission", "perfect_health", "rapid_completion"}, res.NewAchievements)
	require.Len(t, next.CompletedMissions, 1)
	assert.Equal(t, "carentan", next.CompletedMissions[0].MissionID)
	require.NotNil(t, next.LastSummary)
	assert.Equal(t, 2, next.LastSummary.SquadSurvivors)

	// Test case 3: The input session is untouched
	assert.Equal(t, types.StateAwaitingChoice, session.State)
	assert.Equal(t, 0, session.TurnCount)
	assert.Empty(t, session.AchievementsUnlocked)
}

func TestResolveTurnNarrationRequest(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator(quietPassage)
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(99)))

	// Test case 1: The narrator sees the chosen order and the new phase
	next, res := engine.ResolveTurn(context.Background(), testSession(), 2)
	require.Len(t, narrator.requests, 1)
	req := narrator.requests[0]
	assert.Equal(t, "Hold position and observe", req.Choice)
	assert.Equal(t, 2, req.ChoiceIndex)
	assert.Equal(t, 1, req.TurnCount)
	assert.Equal(t, types.PhaseMiddle, req.Phase)
	assert.Contains(t, req.Story, "> **Order:** Hold position and observe")

	// Test case 2: The session continues with the new menu
	assert.Equal(t, types.StateAwaitingChoice, next.State)
	assert.Equal(t, types.StateContinuing, res.Transition)
	assert.Equal(t, types.PhaseMiddle, next.Phase)
	assert.Equal(t, quietPassage, next.Narrative.LastChunk)
	assert.Equal(t, []string{"Hold position and observe the road", "Wait quietly for the patrol", "Check the map and regroup"}, res.Choices)
	assert.Equal(t, 1, next.Stats.MissionChoices)
	require.NotNil(t, res.Consequences)
	assert.Equal(t, CategoryCautious, res.Consequences.Category)
	assert.Equal(t, 82, next.Player.Morale)
}

func TestResolveTurnClampsChoice(t *testing.T) {
	// Setup
	engine := NewTurnEngine(newScriptedNarrator(quietPassage), nil, WithRandom(constRandom(99)))

	// Test case 1: Below range picks the first option
	_, res := engine.ResolveTurn(context.Background(), testSession(), -2)
	assert.Equal(t, "Move along the hedgerow", res.Action)

	// Test case 2: Above range picks the last option
	_, res = engine.ResolveTurn(context.Background(), testSession(), 12)
	assert.Equal(t, "Make a final push to the objective", res.Action)
}

func TestResolveTurnCompletionOrder(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator()
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(99)))

	// Test case 1: A completion order ends the mission without narration
	next, res := engine.ResolveTurn(context.Background(), testSession(), 3)
	assert.Equal(t, types.StateMissionComplete, next.State)
	assert.Equal(t, 0, narrator.calls())
	assert.Equal(t, DefaultTables().Vignette("Liberation of Carentan"), next.Narrative.LastChunk)
	assert.Contains(t, res.Narrative, "Mission accomplished")
}

func TestResolveTurnPlayerDeath(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator()
	lethal := func(session *types.GameSession, action, category string, rng Random) types.ConsequenceReport {
		return types.ConsequenceReport{Category: category, HealthChange: -50}
	}
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(99)), WithConsequences(lethal))
	session := testSession()
	session.Player.Health = 10

	// Test case 1: Health reaching zero fails the mission
	next, res := engine.ResolveTurn(context.Background(), session, 1)
	assert.Equal(t, types.StateMissionFailed, next.State)
	assert.Equal(t, types.VerdictFailure, res.Outcome)
	assert.Equal(t, 0, next.Player.Health)
	assert.Equal(t, 1, next.Stats.Deaths)
	assert.Equal(t, 0, next.Stats.MissionsCompleted)
	assert.Equal(t, 10, next.Stats.MissionDamage)
	assert.Equal(t, 30, next.Score)
	assert.Equal(t, 1, next.TurnCount)
	assert.Equal(t, 0, narrator.calls())

	// Test case 2: A finished mission is frozen
	again, res := engine.ResolveTurn(context.Background(), next, 2)
	assert.Equal(t, 1, again.TurnCount)
	assert.Equal(t, types.StateMissionFailed, again.State)
	assert.Equal(t, next.LastSummary, res.Summary)
	assert.Equal(t, 0, narrator.calls())
	assert.Equal(t, 1, again.Stats.Deaths)
}

func TestResolveTurnDetectedFailure(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator("The squad was overwhelmed and forced to withdraw.")
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(99)))

	// Test case 1: Failure without death keeps the death count
	next, res := engine.ResolveTurn(context.Background(), testSession(), 2)
	assert.Equal(t, types.StateMissionFailed, next.State)
	assert.Equal(t, types.VerdictFailure, res.Outcome)
	assert.Equal(t, 0, next.Stats.Deaths)
	assert.Equal(t, 30, next.Score)
	assert.Empty(t, res.NewAchievements)
}

func TestResolveTurnTerminatesWithinCap(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator(quietPassage)
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(99)))
	session := testSession()
	session.Narrative.LastChunk = quietPassage

	// Test case 1: The mission ends by the sixth turn at the latest
	turns := 0
	for !session.State.Terminal() {
		session, _ = engine.ResolveTurn(context.Background(), session, 1)
		turns++
		require.LessOrEqual(t, turns, DefaultTurnCap)
	}
	assert.Equal(t, DefaultTurnCap, session.TurnCount)
	assert.Equal(t, types.StateMissionComplete, session.State)
	assert.Equal(t, types.PhaseEnd, session.Phase)
	assert.Equal(t, DefaultTables().Vignette(session.Mission.Name), session.Narrative.LastChunk)
	assert.Equal(t, DefaultTurnCap-1, narrator.calls())
}

func TestResolveTurnImmediateCombat(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator("Shots crack overhead as you come under fire from the farmhouse.\n\n1. Return fire from the ditch\n2. Hold position and observe\n3. Check the map and regroup")
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(0)))
	session := testSession()
	session.Player.Class = types.ClassSniper
	session.Player.Weapon = "Sniper Rifle"
	session.Mission.Difficulty = types.DifficultyEasy
	session.Narrative.LastChunk = "1. Advance cautiously toward the farmhouse\n2. Wait\n3. Call in support"

	// Test case 1: The fight is resolved inside the turn
	next, res := engine.ResolveTurn(context.Background(), session, 1)
	require.NotNil(t, res.Combat)
	assert.True(t, res.Combat.Victory)
	assert.Equal(t, 90, res.Combat.VictoryChance)
	assert.Equal(t, 1, next.MissionCombatVictories)
	assert.Equal(t, 1, next.Stats.CombatVictories)
	assert.Equal(t, DefaultResources().Ammo-1, next.Resources.Ammo)
	assert.Contains(t, next.Narrative.Text, "(Combat Report: ")
	assert.Equal(t, types.StateAwaitingChoice, next.State)
	assert.Nil(t, next.PendingCombat)
}

func TestResolveTurnInteractiveCombat(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator("An ambush! Rifles crack from the treeline.\n\n1. Flank the treeline\n2. Hold position and observe\n3. Check the map and regroup")
	engine := NewTurnEngine(narrator, nil, WithRandom(constRandom(0)), WithInteractiveCombat(true))

	// Test case 1: The fight is stored for the player
	next, res := engine.ResolveTurn(context.Background(), testSession(), 2)
	assert.Equal(t, types.StateCombatPending, next.State)
	assert.Equal(t, types.StateCombatPending, res.Transition)
	require.NotNil(t, next.PendingCombat)
	assert.NotNil(t, res.PendingCombat)

	// Test case 2: Choices are refused until the fight is settled
	blocked, res := engine.ResolveTurn(context.Background(), next, 1)
	assert.True(t, res.Degraded)
	assert.Equal(t, next.TurnCount, blocked.TurnCount)

	// Test case 3: Settling the fight returns to the menu
	settled, res, err := engine.ResolvePendingCombat(next, "Flank the treeline")
	require.NoError(t, err)
	assert.Equal(t, types.StateAwaitingChoice, settled.State)
	assert.Nil(t, settled.PendingCombat)
	require.NotNil(t, res.Combat)
	assert.True(t, res.Combat.Victory)
	assert.Equal(t, "Flank the treeline", res.Action)
	assert.Equal(t, 1, settled.Stats.CombatVictories)

	// Test case 4: Nothing left to settle
	_, _, err = engine.ResolvePendingCombat(settled, "Attack")
	assert.ErrorIs(t, err, types.ErrNoPendingCombat)
}

func TestResolveTurnDegraded(t *testing.T) {
	// Setup
	broken := func(session *types.GameSession, action, category string, rng Random) types.ConsequenceReport {
		panic("consequence table missing")
	}
	engine := NewTurnEngine(newScriptedNarrator(), nil, WithConsequences(broken))
	session := testSession()

	// Test case 1: A failing turn hands back the committed session
	next, res := engine.ResolveTurn(context.Background(), session, 1)
	assert.True(t, res.Degraded)
	assert.Equal(t, session, next)
	assert.True(t, strings.HasSuffix(res.Narrative, DefaultTables().ContinuationFallback))
	assert.Len(t, res.Choices, ChoiceCount)

	// Test case 2: No mission is also degraded
	session.Mission = nil
	_, res = engine.ResolveTurn(context.Background(), session, 1)
	assert.True(t, res.Degraded)
}

func TestResolveTurnArchivesCompaction(t *testing.T) {
	// Setup
	archive := newMemoryArchive()
	engine := NewTurnEngine(newScriptedNarrator(quietPassage), nil,
		WithRandom(constRandom(99)),
		WithCompactor(NewStoryCompactor(archive, nil, 100, 400, nil)))

	// Test case 1: Long narrative is archived and compacted
	next, _ := engine.ResolveTurn(context.Background(), testSession(), 2)
	assert.Equal(t, []int{1}, next.Narrative.ArchivedTurns)
	assert.NotEmpty(t, next.Narrative.Summary)
	full, err := archive.Get(context.Background(), "session-1", ArchiveTag(1))
	require.NoError(t, err)
	assert.Contains(t, full, quietPassage)
	assert.Equal(t, quietPassage, next.Narrative.LastChunk)
}

func TestStartMission(t *testing.T) {
	// Setup
	narrator := newScriptedNarrator(openingMenu)
	engine := NewTurnEngine(narrator, nil)
	session := testSession()
	session.Mission = nil
	session.State = types.StateMissionComplete
	session.TurnCount = 4
	session.Stats.MissionChoices = 4

	// Test case 1: The opening passage is in place
	next, res := engine.StartMission(context.Background(), session, testMission())
	assert.Equal(t, types.StateAwaitingChoice, next.State)
	assert.Equal(t, types.PhaseStart, next.Phase)
	assert.Equal(t, 0, next.TurnCount)
	assert.Equal(t, 0, next.Stats.MissionChoices)
	assert.Equal(t, openingMenu, next.Narrative.LastChunk)
	assert.Len(t, res.Choices, ChoiceCount)
	require.Len(t, narrator.requests, 1)
	assert.Equal(t, "Mission Start", narrator.requests[0].Choice)
	assert.Equal(t, 0, narrator.requests[0].ChoiceIndex)
}

func TestUseItem(t *testing.T) {
	// Setup
	engine := NewTurnEngine(newScriptedNarrator(), nil)
	session := testSession()
	session.Player.Health = 50

	// Test case 1: A medkit heals thirty
	next, res, err := engine.UseItem(session, "medkit")
	require.NoError(t, err)
	assert.Equal(t, 80, next.Player.Health)
	assert.Equal(t, 1, next.Resources.Medkits)
	assert.Equal(t, 1, next.Stats.ItemsUsed)
	assert.Equal(t, 30, res.Consequences.HealthChange)

	// Test case 2: Healing stops at max health
	next.Player.Health = 90
	next, _, err = engine.UseItem(next, "Medkit")
	require.NoError(t, err)
	assert.Equal(t, 100, next.Player.Health)
	assert.Equal(t, 0, next.Resources.Medkits)

	// Test case 3: Nothing left
	_, _, err = engine.UseItem(next, "medkit")
	assert.ErrorIs(t, err, types.ErrItemUnavailable)

	// Test case 4: Other items are not usable here
	_, _, err = engine.UseItem(session, "explosives")
	assert.ErrorIs(t, err, types.ErrItemUnavailable)
}

func TestResolveTurnCustomRulesAndClock(t *testing.T) {
	// Setup
	fixed := time.Date(1944, 6, 6, 6, 30, 0, 0, time.UTC)
	rules := []AchievementRule{{
		ID: "liberator", Name: "Liberator", Icon: "🗽",
		Conditions: []Condition{{types.FieldMissionsCompleted, OpGTE, 1}},
	}}
	narrator := newScriptedNarrator("The church steeple falls silent. Mission accomplished!")
	engine := NewTurnEngine(narrator, nil,
		WithRandom(constRandom(99)),
		WithEvaluator(NewRuleEvaluator(rules)),
		WithClock(func() time.Time { return fixed }))

	// Test case 1: Only the configured rules unlock
	next, res := engine.ResolveTurn(context.Background(), testSession(), 1)
	require.Equal(t, types.StateMissionComplete, next.State)
	assert.Equal(t, []string{"liberator"}, res.NewAchievements)

	// Test case 2: Timestamps come from the clock
	require.Len(t, next.CompletedMissions, 1)
	assert.Equal(t, fixed, next.CompletedMissions[0].CompletedAt)
}

func TestResolveTurnSniperAdvancesCautiously(t *testing.T) {
	// Setup
	menu := "Dawn over the orchard.\n\n1. Advance cautiously\n2. Hold position and observe\n3. Check the map and regroup"
	session := testSession()
	session.Player.Class = types.ClassSniper
	session.Player.Weapon = "Sniper Rifle"
	session.Player.Health = 100
	session.Mission.Difficulty = types.DifficultyEasy
	session.Narrative = types.NarrativeState{Text: menu, LastChunk: menu}
	engine := NewTurnEngine(newScriptedNarrator(quietPassage), nil, WithRandom(constRandom(0)))

	// Test case 1: A quiet cautious advance only moves the story on
	next, res := engine.ResolveTurn(context.Background(), session, 1)
	assert.Equal(t, "Advance cautiously", res.Action)
	assert.Equal(t, types.StateAwaitingChoice, next.State)
	assert.Equal(t, types.PhaseMiddle, next.Phase)
	assert.Equal(t, 1, next.TurnCount)
	assert.Equal(t, 100, next.Player.Health)
	assert.Nil(t, res.Combat)
	require.NotNil(t, res.Consequences)
	assert.Equal(t, CategoryCautious, res.Consequences.Category)
}

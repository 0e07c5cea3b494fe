package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/narrative"
	"github.com/user/frontline-missions/internal/storage"
)

func newTestGames(t *testing.T) *game.GameManager {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Game.Seed = 7
	store := storage.NewMemoryStore()
	narrator := narrative.NewNarrator(nil, 0, game.NewSeededDiceRoller(1), nil)
	gm, err := game.NewGameManager(cfg, store, store, narrator, nil)
	require.NoError(t, err)
	return gm
}

// step feeds msg to the model and returns the updated model
func step(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(model)
	require.True(t, ok)
	return updated, cmd
}

// enter types input and presses Enter, running the resulting command once
func enter(t *testing.T, m model, input string) model {
	t.Helper()
	m.textInput.SetValue(input)
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return m
	}
	m, follow := step(t, m, cmd())
	if follow != nil {
		if msg := follow(); msg != nil {
			m, _ = step(t, m, msg)
		}
	}
	return m
}

func TestEnlistAndDeploy(t *testing.T) {
	// Setup
	games := newTestGames(t)
	m := NewModel(games, "local")

	// Test case 1: Unknown session asks to enlist
	m, _ = step(t, m, m.loadSession()())
	assert.Equal(t, stateEnlist, m.state)

	// Test case 2: Bad input is rejected without a call
	m = enter(t, m, "Miller")
	assert.Equal(t, stateEnlist, m.state)
	assert.Contains(t, m.gameLog, "<name> <class>")

	// Test case 3: Enlisting moves to the briefing
	m = enter(t, m, "Miller Sniper Sergeant")
	require.Equal(t, stateBriefing, m.state)
	require.NotNil(t, m.session)
	assert.Equal(t, "Sergeant", m.session.Player.Rank)
	assert.Contains(t, m.gameLog, "CAMPAIGN")

	// Test case 4: Enter deploys on the next mission
	m = enter(t, m, "")
	require.Equal(t, statePlaying, m.state)
	require.NotNil(t, m.turn)
	assert.Equal(t, 0, m.turn.TurnCount)
	require.NotNil(t, m.session.Mission)
	assert.Equal(t, "overlord", m.session.Mission.ID)
	assert.Contains(t, m.View(), "SOLDIER")

	// Test case 5: Invalid choice
	m = enter(t, m, "9")
	assert.Contains(t, m.gameLog, "Pick 1, 2 or 3.")
	assert.False(t, m.busy)

	// Test case 6: A choice resolves a turn
	m = enter(t, m, "1")
	require.NotNil(t, m.turn)
	assert.Equal(t, 1, m.turn.TurnCount)
	assert.False(t, m.busy)
}

func TestResumeSession(t *testing.T) {
	// Setup
	games := newTestGames(t)
	first := NewModel(games, "local")
	first, _ = step(t, first, first.loadSession()())
	first = enter(t, first, "Doc Medic")
	first = enter(t, first, "2")
	require.Equal(t, statePlaying, first.state)

	// Test case 1: A new client picks up the running mission
	m := NewModel(games, "local")
	m, _ = step(t, m, m.loadSession()())
	assert.Equal(t, statePlaying, m.state)
	assert.Contains(t, m.gameLog, "Welcome back, Private Doc.")

	// Test case 2: Reset returns to enlistment
	m = enter(t, m, "/reset")
	assert.Equal(t, stateEnlist, m.state)
	assert.Nil(t, m.session)
}

func TestQuit(t *testing.T) {
	m := NewModel(newTestGames(t), "local")
	m.state = stateEnlist
	m.textInput.SetValue("/quit")
	_, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

package game

import (
	"context"
	"errors"
	"sync"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// constRandom always draws the same value, capped to the range asked for
type constRandom int

func (c constRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return min(int(c), n-1)
}

// scriptedNarrator returns queued passages, then repeats the last one
type scriptedNarrator struct {
	mu       sync.Mutex
	passages []string
	requests []interfaces.NarrationRequest
}

func newScriptedNarrator(passages ...string) *scriptedNarrator {
	return &scriptedNarrator{passages: passages}
}

func (n *scriptedNarrator) Narrate(ctx context.Context, req interfaces.NarrationRequest) interfaces.Narration {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.requests = append(n.requests, req)
	if len(n.passages) == 0 {
		return interfaces.Narration{Text: quietPassage}
	}
	text := n.passages[0]
	if len(n.passages) > 1 {
		n.passages = n.passages[1:]
	}
	return interfaces.Narration{Text: text}
}

func (n *scriptedNarrator) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.requests)
}

// memoryArchive is an in-test archive store
type memoryArchive struct {
	mu      sync.Mutex
	entries map[string]string
	fail    bool
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{entries: make(map[string]string)}
}

func (a *memoryArchive) Put(ctx context.Context, sessionID, tag, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return errors.New("archive unavailable")
	}
	a.entries[sessionID+"/"+tag] = text
	return nil
}

func (a *memoryArchive) Get(ctx context.Context, sessionID, tag string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	text, ok := a.entries[sessionID+"/"+tag]
	if !ok {
		return "", types.ErrArchiveNotFound
	}
	return text, nil
}

const quietPassage = "Your squad holds the hedgerow while scouts report quiet roads.\n\n" +
	"1. Hold position and observe the road\n" +
	"2. Wait quietly for the patrol\n" +
	"3. Check the map and regroup"

const openingMenu = "The column halts at the edge of the village.\n\n" +
	"1. Move along the hedgerow\n" +
	"2. Hold position and observe\n" +
	"3. Make a final push to the objective"

func testMission() types.Mission {
	return types.Mission{
		ID:         "carentan",
		Name:       "Liberation of Carentan",
		Location:   "Carentan, France",
		Date:       "June 10, 1944",
		Theater:    TheaterFrance,
		Difficulty: types.DifficultyMedium,
		Objective:  "Capture the strategic crossroads town",
	}
}

func testSession() types.GameSession {
	mission := testMission()
	return types.GameSession{
		ID: "session-1",
		Player: types.Player{
			Name:      "Miller",
			Rank:      "Sergeant",
			Class:     types.ClassRifleman,
			Weapon:    "Rifle",
			Health:    100,
			MaxHealth: 100,
			Morale:    80,
		},
		Squad: []types.SquadMember{
			{ID: "squad_1", Name: "Pvt. A", Health: 90, MaxHealth: 100},
			{ID: "squad_2", Name: "Pvt. B", Health: 85, MaxHealth: 100},
		},
		Resources: DefaultResources(),
		Mission:   &mission,
		Phase:     types.PhaseStart,
		State:     types.StateAwaitingChoice,
		Narrative: types.NarrativeState{
			Text:      openingMenu,
			LastChunk: openingMenu,
		},
	}
}

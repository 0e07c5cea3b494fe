package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/user/frontline-missions/internal/types"
)

// DataLoader handles loading game data from files
type DataLoader struct {
	basePath string
}

// NewDataLoader creates a new data loader
func NewDataLoader(basePath string) *DataLoader {
	return &DataLoader{
		basePath: basePath,
	}
}

// LoadMissions loads an override mission catalog from a JSON file
func (dl *DataLoader) LoadMissions() ([]types.Mission, error) {
	data, err := os.ReadFile(dl.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read missions file: %w", err)
	}

	var missions []types.Mission
	if err := json.Unmarshal(data, &missions); err != nil {
		return nil, fmt.Errorf("failed to parse missions data: %w", err)
	}

	for i, m := range missions {
		if m.ID == "" || m.Name == "" {
			return nil, fmt.Errorf("mission %d is missing an id or name", i)
		}
		switch m.Difficulty {
		case types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard:
		default:
			return nil, fmt.Errorf("mission %s has unknown difficulty %q", m.ID, m.Difficulty)
		}
	}

	return missions, nil
}

// DiceRoller handles random draws for the game.
// A fixed seed makes every draw sequence reproducible.
type DiceRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDiceRoller creates a new dice roller seeded from the clock
func NewDiceRoller() *DiceRoller {
	return NewSeededDiceRoller(time.Now().UnixNano())
}

// NewSeededDiceRoller creates a dice roller with a fixed seed
func NewSeededDiceRoller(seed int64) *DiceRoller {
	return &DiceRoller{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Intn returns a uniform integer in [0, n)
func (dr *DiceRoller) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	dr.mu.Lock()
	defer dr.mu.Unlock()
	return dr.rng.Intn(n)
}

package narrative

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"unicode/utf8"

	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// StoryWindow is how much of the live narrative, in characters, is sent as context
const StoryWindow = 1500

var phaseGuidance = map[types.Phase]string{
	types.PhaseStart:  "Open the mission: establish the terrain, the weather and the first sign of the enemy.",
	types.PhaseMiddle: "Build tension: contact with the enemy becomes likely and every decision has a cost.",
	types.PhaseClimax: "Bring the decisive moment: the objective is close and the fighting is at its hardest.",
	types.PhaseEnd:    "Move toward resolution: the objective is taken or lost and the squad faces the outcome.",
}

type systemData struct {
	Phase    types.Phase
	Guidance string
	Date     string
	Location string
}

type turnData struct {
	Mission    string
	Location   string
	Date       string
	Objective  string
	Background string
	PlayerName string
	Rank       string
	Class      types.CharacterClass
	Weapon     string
	Health     int
	MaxHealth  int
	Morale     int
	Turn       int
	Story      string
	Choice     string
}

// BuildPrompt renders the system instructions and story context for a narration request
func BuildPrompt(req interfaces.NarrationRequest) (string, string, error) {
	var system bytes.Buffer
	err := prompts.ExecuteTemplate(&system, "system.tmpl", systemData{
		Phase:    req.Phase,
		Guidance: phaseGuidance[req.Phase],
		Date:     req.Mission.Date,
		Location: req.Mission.Location,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render system prompt: %w", err)
	}

	story := req.Story
	if len(story) > StoryWindow {
		cut := len(story) - StoryWindow
		for cut < len(story) && !utf8.RuneStart(story[cut]) {
			cut++
		}
		story = story[cut:]
	}

	var turn bytes.Buffer
	err = prompts.ExecuteTemplate(&turn, "turn.tmpl", turnData{
		Mission:    req.Mission.Name,
		Location:   req.Mission.Location,
		Date:       req.Mission.Date,
		Objective:  req.Mission.Objective,
		Background: game.HistoricalContext(req.Mission.Name),
		PlayerName: req.Player.Name,
		Rank:       req.Player.Rank,
		Class:      req.Player.Class,
		Weapon:     req.Player.Weapon,
		Health:     req.Player.Health,
		MaxHealth:  req.Player.MaxHealth,
		Morale:     req.Player.Morale,
		Turn:       req.TurnCount,
		Story:      story,
		Choice:     req.Choice,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render story context: %w", err)
	}

	return system.String(), turn.String(), nil
}

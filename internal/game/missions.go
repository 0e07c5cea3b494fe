package game

import (
	"math"
	"strings"

	"github.com/user/frontline-missions/internal/types"
)

// Theaters in campaign order
const (
	TheaterNormandy = "normandy"
	TheaterFrance   = "france"
	TheaterBelgium  = "belgium"
	TheaterGermany  = "germany"
	TheaterSpecial  = "special"
)

// DefaultMissions returns the built-in campaign catalog
func DefaultMissions() []types.Mission {
	return []types.Mission{
		{
			ID: "overlord", Name: "Operation Overlord - D-Day", Theater: TheaterNormandy,
			Location: "Omaha Beach, Normandy", Date: "June 6, 1944", Difficulty: types.DifficultyHard,
			Objective:   "Secure the beach and establish a foothold in Nazi-occupied Europe",
			Description: "Storm the beaches of Normandy with your squad. The fate of Europe hangs in the balance.",
		},
		{
			ID: "carentan", Name: "Liberation of Carentan", Theater: TheaterFrance,
			Location: "Carentan, France", Date: "June 10, 1944", Difficulty: types.DifficultyMedium,
			Objective:   "Capture the strategic crossroads town",
			Description: "Advance inland and capture this crucial transportation hub.",
		},
		{
			ID: "cobra", Name: "Breakout from Normandy", Theater: TheaterFrance,
			Location: "Saint-Lô, France", Date: "July 25, 1944", Difficulty: types.DifficultyHard,
			Objective:   "Break through German defensive lines",
			Description: "Support Operation Cobra by breaking German resistance.",
		},
		{
			ID: "brussels", Name: "Liberation of Brussels", Theater: TheaterBelgium,
			Location: "Brussels, Belgium", Date: "September 3, 1944", Difficulty: types.DifficultyMedium,
			Objective:   "Liberate the Belgian capital",
			Description: "Push into Belgium and free Brussels from German occupation.",
		},
		{
			ID: "bulge", Name: "Battle of the Bulge", Theater: TheaterBelgium,
			Location: "Ardennes, Belgium", Date: "December 16, 1944", Difficulty: types.DifficultyHard,
			Objective:   "Repel German counter-offensive",
			Description: "Hold the line against Germany's desperate winter offensive.",
		},
		{
			ID: "rhine", Name: "Crossing the Rhine", Theater: TheaterGermany,
			Location: "Rhine River, Germany", Date: "March 23, 1945", Difficulty: types.DifficultyHard,
			Objective:   "Establish bridgehead across the Rhine",
			Description: "Cross Germany's last natural barrier and advance into the heartland.",
		},
		{
			ID: "camp", Name: "Liberation of Concentration Camp", Theater: TheaterGermany,
			Location: "Bavaria, Germany", Date: "April 29, 1945", Difficulty: types.DifficultyMedium,
			Objective:   "Liberate prisoners from Nazi camp",
			Description: "Discover and liberate survivors from Nazi atrocities.",
		},
		{
			ID: "bridge-sabotage", Name: "Bridge Sabotage at Orne", Theater: TheaterSpecial,
			Location: "Orne River, Normandy", Date: "June 5, 1944", Difficulty: types.DifficultyEasy,
			Objective:   "Destroy the bridge before German armour can cross",
			Description: "Slip behind the lines at night and drop the bridge with demolition charges.",
		},
		{
			ID: "airmen-rescue", Name: "Rescue of Downed Airmen", Theater: TheaterSpecial,
			Location: "Bocage country, Normandy", Date: "June 14, 1944", Difficulty: types.DifficultyEasy,
			Objective:   "Bring the captured flight crew back to friendly lines",
			Description: "A bomber crew is held in a farmhouse outpost. Get them out alive.",
		},
		{
			ID: "forest-intel", Name: "Forest Intel Raid", Theater: TheaterSpecial,
			Location: "Hürtgen Forest, Germany", Date: "November 2, 1944", Difficulty: types.DifficultyMedium,
			Objective:   "Seize the divisional command post documents",
			Description: "Raid a forward command post hidden in the forest and recover its maps and orders.",
		},
	}
}

var historicalContexts = []struct{ key, context string }{
	{"operation overlord", "The largest amphibious invasion in history, involving over 150,000 Allied troops."},
	{"liberation of carentan", "A crucial crossroads town that controlled access to the Cotentin Peninsula."},
	{"battle of the bulge", "Germany's last major offensive on the Western Front during winter 1944-45."},
	{"crossing the rhine", "Breaking through Germany's final natural defensive barrier."},
	{"liberation of brussels", "The liberation of Belgium's capital marked the collapse of German defenses in the Low Countries."},
}

// HistoricalContext returns a line of background for a mission
func HistoricalContext(missionName string) string {
	name := strings.ToLower(missionName)
	for _, h := range historicalContexts {
		if strings.Contains(name, h.key) {
			return h.context
		}
	}
	return "Another crucial operation in the liberation of Europe from Nazi occupation."
}

// TheaterFor returns the campaign theater unlocked by a number of completed missions
func TheaterFor(completed int) string {
	switch {
	case completed <= 0:
		return TheaterNormandy
	case completed <= 3:
		return TheaterFrance
	case completed <= 6:
		return TheaterBelgium
	default:
		return TheaterGermany
	}
}

// NextMission picks the next campaign mission for a session
func NextMission(catalog []types.Mission, session *types.GameSession) (types.Mission, bool) {
	theater := TheaterFor(len(session.CompletedMissions))
	done := make(map[string]bool, len(session.CompletedMissions))
	for _, c := range session.CompletedMissions {
		if c.Outcome == types.VerdictSuccess {
			done[c.MissionID] = true
		}
	}

	var first *types.Mission
	for i := range catalog {
		m := catalog[i]
		if m.Theater != theater {
			continue
		}
		if first == nil {
			first = &catalog[i]
		}
		if !done[m.ID] {
			return m, true
		}
	}
	if first != nil {
		return *first, true
	}
	if len(catalog) > 0 {
		return catalog[0], true
	}
	return types.Mission{}, false
}

// FindMission looks a mission up by id or, failing that, by name
func FindMission(catalog []types.Mission, key string) (types.Mission, bool) {
	for _, m := range catalog {
		if m.ID == key {
			return m, true
		}
	}
	for _, m := range catalog {
		if strings.EqualFold(m.Name, key) {
			return m, true
		}
	}
	return types.Mission{}, false
}

// Mission score constants
var (
	baseMissionScores = map[types.Difficulty]int{
		types.DifficultyEasy:   50,
		types.DifficultyMedium: 100,
		types.DifficultyHard:   150,
	}
	outcomeMultipliers = map[types.Verdict]float64{
		types.VerdictSuccess: 1.0,
		types.VerdictFailure: 0.3,
	}
)

// CalculateMissionScore scores a finished mission
func CalculateMissionScore(mission types.Mission, outcome types.Verdict, turns, combatVictories int) int {
	base, ok := baseMissionScores[mission.Difficulty]
	if !ok {
		base = 100
	}
	multiplier, ok := outcomeMultipliers[outcome]
	if !ok {
		multiplier = 0.5
	}
	score := int(math.Round(float64(base) * multiplier))

	// Efficiency bonus or penalty
	if turns <= 5 && outcome == types.VerdictSuccess {
		score += 50
	} else if turns >= 10 {
		score = int(math.Round(float64(score) * 0.8))
	}

	score += combatVictories * 20
	return max(score, 0)
}

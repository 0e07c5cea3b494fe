package game

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/frontline-missions/internal/types"
)

// Random is the source of uniform draws used by the game rules
type Random interface {
	Intn(n int) int
}

// Combat model constants
const (
	BaseEffectiveness = 50
	MinVictoryChance  = 10
	MaxVictoryChance  = 90
)

// CombatResolver turns a loadout, an action and a difficulty into a combat outcome
type CombatResolver struct {
	tables *Tables
}

// NewCombatResolver creates a resolver over the given tables
func NewCombatResolver(tables *Tables) *CombatResolver {
	if tables == nil {
		tables = DefaultTables()
	}
	return &CombatResolver{tables: tables}
}

// VictoryChance computes the clamped victory probability in percent
func (cr *CombatResolver) VictoryChance(player types.Player, action string, difficulty types.Difficulty) int {
	effectiveness := float64(BaseEffectiveness +
		cr.tables.ClassBonuses[string(player.Class)] +
		cr.tables.WeaponBonuses[player.Weapon])

	// Scale by remaining health
	if player.MaxHealth > 0 {
		effectiveness *= float64(player.Health) / float64(player.MaxHealth)
	} else {
		effectiveness = 0
	}

	chance := int(math.Round(effectiveness))
	chance += cr.tables.VerbModifiers[cr.tables.Classify(action)]
	chance += cr.tables.DifficultyModifiers[string(difficulty)]

	return max(MinVictoryChance, min(MaxVictoryChance, chance))
}

// Resolve samples one combat outcome with a single victory draw
func (cr *CombatResolver) Resolve(player types.Player, action string, difficulty types.Difficulty, rng Random) types.CombatResult {
	chance := cr.VictoryChance(player, action, difficulty)
	victory := rng.Intn(100) < chance

	result := types.CombatResult{
		Victory:       victory,
		VictoryChance: chance,
	}
	if victory {
		result.Damage = rng.Intn(16)
		result.AmmoUsed = 1 + rng.Intn(3)
		result.Description = "The enemy position falls. Your tactical approach proved effective."
	} else {
		result.Damage = 10 + rng.Intn(21)
		result.AmmoUsed = 2 + rng.Intn(4)
		result.Description = "The engagement was difficult. Enemy forces inflicted casualties."
	}
	return result
}

// ResolveEncounter resolves a generated encounter and describes it
func (cr *CombatResolver) ResolveEncounter(player types.Player, encounter *types.CombatEncounter, difficulty types.Difficulty, rng Random) types.CombatResult {
	result := cr.Resolve(player, encounter.Action, difficulty, rng)
	result.EnemyCount = len(encounter.Enemies)
	if result.Victory {
		result.Description = fmt.Sprintf("The enemy position falls. Your tactical approach proved effective against %d enemies.", result.EnemyCount)
	}
	return result
}

type enemyTemplate struct {
	name     string
	health   [2]int
	accuracy float64
	damage   [2]int
	armor    int
	special  string
}

var enemyTemplates = map[string]enemyTemplate{
	"soldier":  {name: "German Soldier", health: [2]int{60, 80}, accuracy: 0.65, damage: [2]int{15, 25}},
	"rifleman": {name: "German Rifleman", health: [2]int{70, 90}, accuracy: 0.75, damage: [2]int{20, 30}, special: "aimed_shot"},
	"gunner":   {name: "Machine Gunner", health: [2]int{80, 100}, accuracy: 0.60, damage: [2]int{25, 35}, armor: 5, special: "suppressive_fire"},
	"sniper":   {name: "German Sniper", health: [2]int{50, 70}, accuracy: 0.90, damage: [2]int{35, 50}, special: "precision_shot"},
	"officer":  {name: "German Officer", health: [2]int{70, 90}, accuracy: 0.70, damage: [2]int{20, 30}, armor: 5, special: "rally_troops"},
	"heavy":    {name: "Heavy Gunner", health: [2]int{100, 120}, accuracy: 0.55, damage: [2]int{30, 45}, armor: 10, special: "heavy_suppression"},
}

type enemyMix struct {
	count [2]int
	kinds []string
}

var enemyMixes = map[types.Difficulty]enemyMix{
	types.DifficultyEasy:   {count: [2]int{2, 3}, kinds: []string{"soldier", "soldier", "rifleman"}},
	types.DifficultyMedium: {count: [2]int{3, 4}, kinds: []string{"soldier", "soldier", "gunner", "officer"}},
	types.DifficultyHard:   {count: [2]int{4, 6}, kinds: []string{"soldier", "gunner", "officer", "sniper", "heavy"}},
}

// Ordered so the first matching keyword wins
var environmentKeywords = []struct{ keyword, environment string }{
	{"village", "urban"},
	{"bridge", "open_field"},
	{"bunker", "bunker"},
	{"forest", "forest"},
	{"beach", "open_field"},
}

var enemyPositions = map[string][]string{
	"urban":      {"behind rubble", "in a doorway", "around a corner", "on a rooftop"},
	"forest":     {"behind trees", "in thick brush", "on elevated ground", "in a clearing"},
	"bunker":     {"behind concrete", "in a fortified position", "near gun ports", "in trenches"},
	"open_field": {"in a crater", "behind low cover", "in tall grass", "on a small hill"},
}

var classAdvantages = map[types.CharacterClass]map[string]string{
	types.ClassSniper: {
		"forest":     "Camouflage training gives stealth bonus",
		"open_field": "Long range training provides accuracy bonus",
	},
	types.ClassDemolitions: {
		"bunker": "Explosive expertise effective against fortifications",
		"urban":  "Urban warfare training provides tactical advantage",
	},
	types.ClassMedic: {
		"any": "Medical training allows squad healing during combat",
	},
	types.ClassGunner: {
		"open_field": "Machine gun training effective in open terrain",
		"bunker":     "Suppressive fire training effective in confined spaces",
	},
}

var environmentalEffects = map[string]map[string]string{
	"urban": {
		"cover":    "Abundant hard cover available",
		"movement": "Close quarters limit long-range engagements",
		"special":  "Grenades more effective due to confined spaces",
	},
	"forest": {
		"cover":    "Natural camouflage and tree cover",
		"movement": "Dense vegetation limits visibility",
		"special":  "Flanking maneuvers easier to execute",
	},
	"bunker": {
		"cover":    "Heavy fortified positions",
		"movement": "Restricted movement in tunnels",
		"special":  "Explosives highly effective against structures",
	},
	"open_field": {
		"cover":    "Limited natural cover available",
		"movement": "Clear fields of fire for all units",
		"special":  "Long-range weapons have maximum effectiveness",
	},
}

// EnvironmentFor picks the battlefield environment from the mission name
func EnvironmentFor(missionName string) string {
	name := strings.ToLower(missionName)
	for _, k := range environmentKeywords {
		if strings.Contains(name, k.keyword) {
			return k.environment
		}
	}
	return "forest"
}

// GenerateEncounter builds the enemy force for a fight in the given mission
func GenerateEncounter(player types.Player, mission types.Mission, action string, rng Random) *types.CombatEncounter {
	environment := EnvironmentFor(mission.Name)
	mix, ok := enemyMixes[mission.Difficulty]
	if !ok {
		mix = enemyMixes[types.DifficultyMedium]
	}

	count := between(rng, mix.count[0], mix.count[1])
	enemies := make([]types.Enemy, 0, count)
	for i := 0; i < count; i++ {
		kind := mix.kinds[rng.Intn(len(mix.kinds))]
		enemy := newEnemy(kind, environment, rng)
		enemy.ID = fmt.Sprintf("enemy_%d", i+1)
		enemies = append(enemies, enemy)
	}

	effects := make(map[string]string)
	for k, v := range environmentalEffects[environment] {
		effects[k] = v
	}

	return &types.CombatEncounter{
		Environment:          environment,
		Enemies:              enemies,
		PlayerAdvantages:     playerAdvantages(player.Class, environment),
		EnvironmentalEffects: effects,
		Action:               action,
	}
}

func newEnemy(kind, environment string, rng Random) types.Enemy {
	tmpl, ok := enemyTemplates[kind]
	if !ok {
		tmpl = enemyTemplates["soldier"]
	}
	health := between(rng, tmpl.health[0], tmpl.health[1])
	positions, ok := enemyPositions[environment]
	if !ok {
		positions = enemyPositions["open_field"]
	}
	return types.Enemy{
		Type:      tmpl.name,
		Health:    health,
		MaxHealth: health,
		Accuracy:  tmpl.accuracy,
		Damage:    between(rng, tmpl.damage[0], tmpl.damage[1]),
		Armor:     tmpl.armor,
		Special:   tmpl.special,
		InCover:   rng.Intn(2) == 1,
		Position:  positions[rng.Intn(len(positions))],
	}
}

func playerAdvantages(class types.CharacterClass, environment string) []string {
	advs, ok := classAdvantages[class]
	if !ok {
		return nil
	}
	if adv, ok := advs[environment]; ok {
		return []string{adv}
	}
	if adv, ok := advs["any"]; ok {
		return []string{adv}
	}
	return nil
}

func between(rng Random, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

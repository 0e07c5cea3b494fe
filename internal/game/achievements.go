package game

import (
	"github.com/user/frontline-missions/internal/types"
)

// Comparison operators understood by Condition
const (
	OpGTE = ">="
	OpGT  = ">"
	OpLTE = "<="
	OpLT  = "<"
	OpEQ  = "=="
	OpNEQ = "!="
)

// Condition compares one statistic with a threshold
type Condition struct {
	Field     types.StatField `json:"field" yaml:"field"`
	Op        string          `json:"op" yaml:"op"`
	Threshold int             `json:"threshold" yaml:"threshold"`
}

// Holds evaluates the condition. Unknown operators never hold.
func (c Condition) Holds(stats types.PlayerStats) bool {
	v := stats.Value(c.Field)
	switch c.Op {
	case OpGTE:
		return v >= c.Threshold
	case OpGT:
		return v > c.Threshold
	case OpLTE:
		return v <= c.Threshold
	case OpLT:
		return v < c.Threshold
	case OpEQ:
		return v == c.Threshold
	case OpNEQ:
		return v != c.Threshold
	default:
		return false
	}
}

// Trivia is the historical fact revealed by an achievement
type Trivia struct {
	Title    string `json:"title"`
	Fact     string `json:"fact"`
	Category string `json:"category"`
}

// AchievementRule is a named conjunction of conditions
type AchievementRule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Trivia      Trivia      `json:"trivia"`
	Conditions  []Condition `json:"conditions"`
}

// Matches reports whether every condition holds. A rule without conditions never matches.
func (r AchievementRule) Matches(stats types.PlayerStats) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		if !c.Holds(stats) {
			return false
		}
	}
	return true
}

// DefaultRules returns the built-in achievement set in display order
func DefaultRules() []AchievementRule {
	return []AchievementRule{
		{
			ID: "first_mission", Name: "First Deployment", Description: "Complete your first mission", Icon: "🎖️",
			Conditions: []Condition{{types.FieldMissionsCompleted, OpGTE, 1}},
			Trivia: Trivia{"Operation Overlord", "D-Day involved over 156,000 Allied troops landing on the beaches of Normandy on June 6, 1944. It was the largest seaborne invasion in history.", "Major Operations"},
		},
		{
			ID: "survivor", Name: "Battle Survivor", Description: "Survive 5 missions without dying", Icon: "⚡",
			Conditions: []Condition{{types.FieldMissionsCompleted, OpGTE, 5}, {types.FieldDeaths, OpEQ, 0}},
			Trivia: Trivia{"Winter War Resilience", "During the Winter War (1939-1940), Finnish soldiers used molotov cocktails effectively against Soviet tanks. They named them after Soviet Foreign Minister Vyacheslav Molotov.", "Tactics & Weapons"},
		},
		{
			ID: "combat_veteran", Name: "Combat Veteran", Description: "Win 10 combat encounters", Icon: "💀",
			Conditions: []Condition{{types.FieldCombatVictories, OpGTE, 10}},
			Trivia: Trivia{"Stalingrad Sniper", "Vasily Zaitsev, a Soviet sniper at Stalingrad, is credited with 225 confirmed kills. His story inspired the film 'Enemy at the Gates'.", "Heroes & Legends"},
		},
		{
			ID: "mission_master", Name: "Mission Master", Description: "Complete 15 missions successfully", Icon: "🏆",
			Conditions: []Condition{{types.FieldMissionsCompleted, OpGTE, 15}},
			Trivia: Trivia{"The Enigma Code", "Breaking the German Enigma code at Bletchley Park is estimated to have shortened WWII by 2-4 years and saved millions of lives.", "Intelligence & Espionage"},
		},
		{
			ID: "perfect_health", Name: "Field Medic", Description: "Complete a mission without taking damage", Icon: "🏥",
			Conditions: []Condition{{types.FieldPerfectMission, OpEQ, 1}},
			Trivia: Trivia{"Field Medicine", "WWII saw major advances in field medicine. The use of penicillin and blood plasma saved countless soldiers' lives on the battlefield.", "Medical Advances"},
		},
		{
			ID: "resource_manager", Name: "Supply Sergeant", Description: "Use 25 items during missions", Icon: "📦",
			Conditions: []Condition{{types.FieldItemsUsed, OpGTE, 25}},
			Trivia: Trivia{"Lend-Lease Program", "The U.S. Lend-Lease program provided over $50 billion worth of supplies to Allied nations, including 400,000 vehicles and 14,000 aircraft.", "Supply & Logistics"},
		},
		{
			ID: "squad_leader", Name: "Squad Leader", Description: "Lead your squad through 3 successful missions", Icon: "👥",
			Conditions: []Condition{{types.FieldSuccessfulSquadMissions, OpGTE, 3}},
			Trivia: Trivia{"Band of Brothers", "Easy Company, 506th PIR, 101st Airborne Division fought from D-Day to Hitler's Eagle's Nest. Their story was immortalized by Stephen Ambrose and HBO.", "Military Units"},
		},
		{
			ID: "rapid_completion", Name: "Lightning Strike", Description: "Complete a mission in under 10 choices", Icon: "⚡",
			Conditions: []Condition{{types.FieldQuickCompletion, OpEQ, 1}},
			Trivia: Trivia{"Operation Market Garden", "This ambitious Allied operation in September 1944 aimed to end the war by Christmas. Despite initial success, it ultimately failed at Arnhem.", "Major Operations"},
		},
		{
			ID: "high_scorer", Name: "War Hero", Description: "Achieve a score of 1000 points", Icon: "🌟",
			Conditions: []Condition{{types.FieldTotalScore, OpGTE, 1000}},
			Trivia: Trivia{"The Red Baron's Legacy", "While WWI, Manfred von Richthofen's tactics influenced WWII aerial combat. The highest-scoring WWII ace was Erich Hartmann with 352 victories.", "Aviation"},
		},
		{
			ID: "class_master", Name: "Master of War", Description: "Play as 4 different character classes", Icon: "🎭",
			Conditions: []Condition{{types.FieldDistinctClassesPlayed, OpGTE, 4}},
			Trivia: Trivia{"Special Forces Origins", "WWII saw the birth of modern special forces, including the British SAS, U.S. Rangers, and Soviet Spetsnaz, revolutionizing military tactics.", "Special Operations"},
		},
	}
}

// RuleEvaluator checks statistics against a fixed rule set
type RuleEvaluator struct {
	rules []AchievementRule
}

// NewRuleEvaluator creates an evaluator; nil rules selects the built-in set
func NewRuleEvaluator(rules []AchievementRule) *RuleEvaluator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RuleEvaluator{rules: rules}
}

// Rules returns the evaluated rules in order
func (re *RuleEvaluator) Rules() []AchievementRule {
	return re.rules
}

// Rule looks up a rule by id
func (re *RuleEvaluator) Rule(id string) (AchievementRule, bool) {
	for _, r := range re.rules {
		if r.ID == id {
			return r, true
		}
	}
	return AchievementRule{}, false
}

// Evaluate returns the ids of rules that now hold and are not yet unlocked
func (re *RuleEvaluator) Evaluate(stats types.PlayerStats, unlocked []string) []string {
	have := make(map[string]bool, len(unlocked))
	for _, id := range unlocked {
		have[id] = true
	}

	var fresh []string
	for _, r := range re.rules {
		if have[r.ID] {
			continue
		}
		if r.Matches(stats) {
			fresh = append(fresh, r.ID)
			have[r.ID] = true
		}
	}
	return fresh
}

// StatUpdate is one named event with its payload
type StatUpdate struct {
	Event  types.StatEvent
	Score  int
	Amount int
	Class  string
}

// ApplyStatEvent returns stats updated by a single event.
// Each event touches only the counters it owns.
func ApplyStatEvent(stats types.PlayerStats, update StatUpdate) types.PlayerStats {
	out := stats.Clone()
	switch update.Event {
	case types.EventMissionCompleted:
		out.MissionsCompleted++
		out.TotalScore += max(update.Score, 0)
		if out.MissionDamage == 0 {
			out.PerfectMission = true
		}
		if out.MissionChoices < 10 {
			out.QuickCompletion = true
		}
		out.MissionChoices = 0
		out.MissionDamage = 0
	case types.EventPlayerDeath:
		out.Deaths++
	case types.EventCombatVictory:
		out.CombatVictories++
	case types.EventItemUsed:
		out.ItemsUsed++
	case types.EventSquadMissionSuccess:
		out.SuccessfulSquadMissions++
	case types.EventClassSelected:
		if update.Class == "" {
			break
		}
		for _, c := range out.ClassesPlayed {
			if c == update.Class {
				return out
			}
		}
		out.ClassesPlayed = append(out.ClassesPlayed, update.Class)
	case types.EventChoiceMade:
		out.MissionChoices++
	case types.EventDamageTaken:
		out.MissionDamage += max(update.Amount, 0)
	}
	return out
}

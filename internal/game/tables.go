package game

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/tables.yaml
var tablesYAML []byte

// TablesVersion is the schema version of the embedded keyword tables
const TablesVersion = 1

// WeightedPhrase is a phrase that contributes a weight when present
type WeightedPhrase struct {
	Phrase string `yaml:"phrase"`
	Weight int    `yaml:"weight"`
}

// VerbCategory groups the action words that share a consequence profile
type VerbCategory struct {
	Name  string   `yaml:"name"`
	Words []string `yaml:"words"`

	patterns []*regexp.Regexp
}

// Tables holds every keyword list and lookup table used by the game rules
type Tables struct {
	Version              int                 `yaml:"version"`
	CombatKeywords       []string            `yaml:"combat_keywords"`
	SuccessPhrases       []WeightedPhrase    `yaml:"success_phrases"`
	FailurePhrases       []WeightedPhrase    `yaml:"failure_phrases"`
	ResolutionSuccess    []string            `yaml:"resolution_success"`
	ResolutionFailure    []string            `yaml:"resolution_failure"`
	CompletionPhrases    []string            `yaml:"completion_phrases"`
	VerbCategories       []VerbCategory      `yaml:"verb_categories"`
	TacticalWords        []string            `yaml:"tactical_words"`
	MissionKeyPhrases    map[string][]string `yaml:"mission_key_phrases"`
	AlwaysKeyPhrases     []string            `yaml:"always_key_phrases"`
	FallbackChoices      []string            `yaml:"fallback_choices"`
	CompletionVignettes  map[string]string   `yaml:"completion_vignettes"`
	ContinuationFallback string              `yaml:"continuation_fallback"`
	ClassBonuses         map[string]int      `yaml:"class_bonuses"`
	WeaponBonuses        map[string]int      `yaml:"weapon_bonuses"`
	VerbModifiers        map[string]int      `yaml:"verb_modifiers"`
	DifficultyModifiers  map[string]int      `yaml:"difficulty_modifiers"`
}

// Verb categories produced by Classify
const (
	CategoryRetreating = "retreating"
	CategoryCautious   = "cautious"
	CategoryMedical    = "medical"
	CategoryExplosive  = "explosive"
	CategoryRecon      = "recon"
	CategoryAggressive = "aggressive"
	CategoryNeutral    = "neutral"
)

// ParseTables decodes and validates a YAML table document
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tables: %w", err)
	}
	if t.Version != TablesVersion {
		return nil, fmt.Errorf("unsupported tables version %d", t.Version)
	}
	if len(t.FallbackChoices) < 3 {
		return nil, fmt.Errorf("tables need 3 fallback choices, got %d", len(t.FallbackChoices))
	}
	if _, ok := t.CompletionVignettes["default"]; !ok {
		return nil, fmt.Errorf("tables are missing the default completion vignette")
	}
	for i := range t.VerbCategories {
		cat := &t.VerbCategories[i]
		for _, word := range cat.Words {
			cat.patterns = append(cat.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)))
		}
	}
	return &t, nil
}

var defaultTables = mustParseTables(tablesYAML)

// DefaultTables returns the embedded tables
func DefaultTables() *Tables {
	return defaultTables
}

func mustParseTables(data []byte) *Tables {
	t, err := ParseTables(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Classify returns the verb category of an action text
func (t *Tables) Classify(action string) string {
	for _, cat := range t.VerbCategories {
		for _, p := range cat.patterns {
			if p.MatchString(action) {
				return cat.Name
			}
		}
	}
	return CategoryNeutral
}

// HasCombat reports whether text matches any combat keyword
func (t *Tables) HasCombat(text string) bool {
	return containsAny(strings.ToLower(text), t.CombatKeywords)
}

// IsCompletion reports whether a chosen action ends the mission
func (t *Tables) IsCompletion(action string) bool {
	return containsAny(strings.ToLower(action), t.CompletionPhrases)
}

// MissionKind maps a mission name to sabotage, rescue, intel or default
func (t *Tables) MissionKind(missionName string) string {
	name := strings.ToLower(missionName)
	for _, kind := range []string{"sabotage", "rescue", "intel"} {
		if strings.Contains(name, kind) {
			return kind
		}
	}
	return "default"
}

// Vignette returns the canned completion text for a mission
func (t *Tables) Vignette(missionName string) string {
	if v, ok := t.CompletionVignettes[t.MissionKind(missionName)]; ok {
		return v
	}
	return t.CompletionVignettes["default"]
}

func containsAny(lower string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

package types

import "time"

// CharacterClass is the player's specialisation
type CharacterClass string

const (
	ClassRifleman    CharacterClass = "Rifleman"
	ClassMedic       CharacterClass = "Medic"
	ClassGunner      CharacterClass = "Gunner"
	ClassSniper      CharacterClass = "Sniper"
	ClassDemolitions CharacterClass = "Demolitions"
)

// Classes lists every playable class in menu order
var Classes = []CharacterClass{ClassRifleman, ClassMedic, ClassGunner, ClassSniper, ClassDemolitions}

// Ranks lists every rank in promotion order
var Ranks = []string{"Private", "Corporal", "Sergeant", "Lieutenant", "Captain"}

// Weapons lists every weapon a player can carry
var Weapons = []string{"Rifle", "SMG", "LMG", "Sniper Rifle", "Shotgun"}

// Difficulty is a mission's difficulty tier
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Phase is the coarse narrative progress indicator of a mission
type Phase string

const (
	PhaseStart  Phase = "Start"
	PhaseMiddle Phase = "Middle"
	PhaseClimax Phase = "Climax"
	PhaseEnd    Phase = "End"
)

// PhaseFor derives the phase from the number of resolved turns
func PhaseFor(turnCount int) Phase {
	switch {
	case turnCount <= 0:
		return PhaseStart
	case turnCount <= 2:
		return PhaseMiddle
	case turnCount <= 4:
		return PhaseClimax
	default:
		return PhaseEnd
	}
}

// TurnState is a state of the turn engine
type TurnState string

const (
	StateAwaitingChoice  TurnState = "AwaitingChoice"
	StateResolving       TurnState = "Resolving"
	StateCombatPending   TurnState = "CombatPending"
	StateContinuing      TurnState = "Continuing"
	StateMissionComplete TurnState = "MissionComplete"
	StateMissionFailed   TurnState = "MissionFailed"
)

// Terminal reports whether the state ends the mission
func (s TurnState) Terminal() bool {
	return s == StateMissionComplete || s == StateMissionFailed
}

// Verdict is the outcome detector's decision
type Verdict string

const (
	VerdictNone    Verdict = ""
	VerdictSuccess Verdict = "success"
	VerdictFailure Verdict = "failure"
)

// Player represents the player's soldier
type Player struct {
	Name       string         `json:"name"`
	Rank       string         `json:"rank"`
	Class      CharacterClass `json:"class"`
	Weapon     string         `json:"weapon"`
	Health     int            `json:"health"`
	MaxHealth  int            `json:"max_health"`
	Morale     int            `json:"morale"`
	Experience int            `json:"experience"`
}

// Clamp forces health and morale back into their ranges
func (p *Player) Clamp() {
	if p.MaxHealth <= 0 {
		p.MaxHealth = 100
	}
	p.Health = clamp(p.Health, 0, p.MaxHealth)
	p.Morale = clamp(p.Morale, 0, 100)
	if p.Experience < 0 {
		p.Experience = 0
	}
}

// SquadMember represents an AI-controlled squad mate
type SquadMember struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Speciality string `json:"speciality"`
	Weapon     string `json:"weapon"`
	Health     int    `json:"health"`
	MaxHealth  int    `json:"max_health"`
	Ammo       int    `json:"ammo"`
	InCover    bool   `json:"in_cover"`
	Suppressed bool   `json:"suppressed"`
	Orders     string `json:"orders"`
	Experience int    `json:"experience"`
}

// Resources holds the squad's consumables
type Resources struct {
	Ammo       int `json:"ammo"`
	Medkits    int `json:"medkits"`
	Explosives int `json:"explosives"`
	Intel      int `json:"intel"`
}

// Clamp keeps every counter non-negative
func (r *Resources) Clamp() {
	r.Ammo = max(r.Ammo, 0)
	r.Medkits = max(r.Medkits, 0)
	r.Explosives = max(r.Explosives, 0)
	r.Intel = max(r.Intel, 0)
}

// Mission represents a playable operation
type Mission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Date        string     `json:"date"`
	Theater     string     `json:"theater"`
	Difficulty  Difficulty `json:"difficulty"`
	Description string     `json:"description"`
	Objective   string     `json:"objective"`
}

// NarrativeState holds the live story text of a mission
type NarrativeState struct {
	// Live text fed back to the generator, bounded by compaction
	Text string `json:"text"`

	// Output of the most recent compaction
	Summary string `json:"summary"`

	// Most recent generated passage; the active choice menu lives here
	LastChunk string `json:"last_chunk"`

	// Turns whose full text was archived
	ArchivedTurns []int `json:"archived_turns"`
}

// Enemy represents a hostile combatant
type Enemy struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Health     int     `json:"health"`
	MaxHealth  int     `json:"max_health"`
	Accuracy   float64 `json:"accuracy"`
	Damage     int     `json:"damage"`
	Armor      int     `json:"armor"`
	Special    string  `json:"special,omitempty"`
	InCover    bool    `json:"in_cover"`
	Suppressed bool    `json:"suppressed"`
	Position   string  `json:"position"`
}

// CombatEncounter represents a fight detected in the narrative
type CombatEncounter struct {
	Environment          string            `json:"environment"`
	Enemies              []Enemy           `json:"enemies"`
	PlayerAdvantages     []string          `json:"player_advantages"`
	EnvironmentalEffects map[string]string `json:"environmental_effects"`
	Action               string            `json:"action"`
}

// CombatResult is the outcome of resolving an encounter
type CombatResult struct {
	Victory       bool   `json:"victory"`
	Damage        int    `json:"damage"`
	AmmoUsed      int    `json:"ammo_used"`
	VictoryChance int    `json:"victory_chance"`
	Description   string `json:"description"`
	EnemyCount    int    `json:"enemy_count"`
}

// CompletedMission records a finished mission
type CompletedMission struct {
	MissionID   string    `json:"mission_id"`
	Name        string    `json:"name"`
	Outcome     Verdict   `json:"outcome"`
	Score       int       `json:"score"`
	Turns       int       `json:"turns"`
	CompletedAt time.Time `json:"completed_at"`
}

// MissionSummary is shown once a mission has ended
type MissionSummary struct {
	Mission         string  `json:"mission"`
	Outcome         Verdict `json:"outcome"`
	Score           int     `json:"score"`
	Turns           int     `json:"turns"`
	CombatVictories int     `json:"combat_victories"`
	SquadSurvivors  int     `json:"squad_survivors"`
	Reason          string  `json:"reason"`
}

// GameSession is the complete state of one player's game
type GameSession struct {
	ID                     string             `json:"id"`
	Player                 Player             `json:"player"`
	Squad                  []SquadMember      `json:"squad"`
	Resources              Resources          `json:"resources"`
	Mission                *Mission           `json:"mission,omitempty"`
	TurnCount              int                `json:"turn_count"`
	Phase                  Phase              `json:"phase"`
	State                  TurnState          `json:"state"`
	Narrative              NarrativeState     `json:"narrative"`
	Stats                  PlayerStats        `json:"stats"`
	AchievementsUnlocked   []string           `json:"achievements_unlocked"`
	CompletedMissions      []CompletedMission `json:"completed_missions"`
	Score                  int                `json:"score"`
	PendingCombat          *CombatEncounter   `json:"pending_combat,omitempty"`
	MissionCombatVictories int                `json:"mission_combat_victories"`
	LastSummary            *MissionSummary    `json:"last_summary,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// Validate checks the fields every stored session must carry
func (s *GameSession) Validate() error {
	if s.ID == "" || s.Player.Name == "" || s.Player.Rank == "" || s.Player.Class == "" || s.Player.Weapon == "" {
		return ErrSessionCorrupt
	}
	if s.Player.MaxHealth <= 0 {
		return ErrSessionCorrupt
	}
	return nil
}

// HasUnlocked reports whether an achievement is already unlocked
func (s *GameSession) HasUnlocked(id string) bool {
	for _, unlocked := range s.AchievementsUnlocked {
		if unlocked == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the session
func (s GameSession) Clone() GameSession {
	out := s
	out.Squad = append([]SquadMember(nil), s.Squad...)
	if s.Mission != nil {
		m := *s.Mission
		out.Mission = &m
	}
	out.Narrative.ArchivedTurns = append([]int(nil), s.Narrative.ArchivedTurns...)
	out.Stats = s.Stats.Clone()
	out.AchievementsUnlocked = append([]string(nil), s.AchievementsUnlocked...)
	out.CompletedMissions = append([]CompletedMission(nil), s.CompletedMissions...)
	if s.PendingCombat != nil {
		out.PendingCombat = s.PendingCombat.clone()
	}
	if s.LastSummary != nil {
		summary := *s.LastSummary
		out.LastSummary = &summary
	}
	return out
}

func (c *CombatEncounter) clone() *CombatEncounter {
	out := *c
	out.Enemies = append([]Enemy(nil), c.Enemies...)
	out.PlayerAdvantages = append([]string(nil), c.PlayerAdvantages...)
	if c.EnvironmentalEffects != nil {
		out.EnvironmentalEffects = make(map[string]string, len(c.EnvironmentalEffects))
		for k, v := range c.EnvironmentalEffects {
			out.EnvironmentalEffects[k] = v
		}
	}
	return &out
}

// ConsequenceReport describes what a chosen action cost or earned
type ConsequenceReport struct {
	Category      string   `json:"category"`
	HealthChange  int      `json:"health_change"`
	MoraleChange  int      `json:"morale_change"`
	Experience    int      `json:"experience"`
	AmmoChange    int      `json:"ammo_change"`
	MedkitsChange int      `json:"medkits_change"`
	ExplosiveUsed bool     `json:"explosive_used"`
	IntelGained   int      `json:"intel_gained"`
	SquadWounded  []string `json:"squad_wounded,omitempty"`
	SquadCasualty []string `json:"squad_casualty,omitempty"`
	SquadDamage   int      `json:"squad_damage,omitempty"`
	ItemsConsumed int      `json:"items_consumed"`
	Description   string   `json:"description"`
}

// TurnResult is everything a presentation layer needs after one turn
type TurnResult struct {
	SessionID       string             `json:"session_id"`
	Narrative       string             `json:"narrative"`
	LastChunk       string             `json:"last_chunk"`
	Choices         []string           `json:"choices"`
	Player          Player             `json:"player"`
	Resources       Resources          `json:"resources"`
	Squad           []SquadMember      `json:"squad"`
	Score           int                `json:"score"`
	TurnCount       int                `json:"turn_count"`
	Phase           Phase              `json:"phase"`
	Transition      TurnState          `json:"transition"`
	Action          string             `json:"action,omitempty"`
	Outcome         Verdict            `json:"outcome,omitempty"`
	Combat          *CombatResult      `json:"combat,omitempty"`
	PendingCombat   *CombatEncounter   `json:"pending_combat,omitempty"`
	Consequences    *ConsequenceReport `json:"consequences,omitempty"`
	NewAchievements []string           `json:"new_achievements,omitempty"`
	Summary         *MissionSummary    `json:"summary,omitempty"`
	Degraded        bool               `json:"degraded,omitempty"`
	FallbackUsed    bool               `json:"fallback_used,omitempty"`
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

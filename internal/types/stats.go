package types

// StatEvent names a discrete change to the player's statistics
type StatEvent string

const (
	EventMissionCompleted    StatEvent = "mission_completed"
	EventPlayerDeath         StatEvent = "player_death"
	EventCombatVictory       StatEvent = "combat_victory"
	EventItemUsed            StatEvent = "item_used"
	EventSquadMissionSuccess StatEvent = "squad_mission_success"
	EventClassSelected       StatEvent = "class_selected"
	EventChoiceMade          StatEvent = "choice_made"
	EventDamageTaken         StatEvent = "damage_taken"
)

// StatField names a statistic an achievement condition can read
type StatField string

const (
	FieldMissionsCompleted       StatField = "missions_completed"
	FieldDeaths                  StatField = "deaths"
	FieldCombatVictories         StatField = "combat_victories"
	FieldPerfectMission          StatField = "perfect_mission"
	FieldItemsUsed               StatField = "items_used"
	FieldSuccessfulSquadMissions StatField = "successful_squad_missions"
	FieldQuickCompletion         StatField = "quick_completion"
	FieldTotalScore              StatField = "total_score"
	FieldDistinctClassesPlayed   StatField = "distinct_classes_played"
)

// PlayerStats is the statistics vector achievements are evaluated against
type PlayerStats struct {
	MissionsCompleted       int      `json:"missions_completed"`
	Deaths                  int      `json:"deaths"`
	CombatVictories         int      `json:"combat_victories"`
	PerfectMission          bool     `json:"perfect_mission"`
	ItemsUsed               int      `json:"items_used"`
	SuccessfulSquadMissions int      `json:"successful_squad_missions"`
	QuickCompletion         bool     `json:"quick_completion"`
	TotalScore              int      `json:"total_score"`
	ClassesPlayed           []string `json:"classes_played"`

	// Per-mission counters, reset on mission completion
	MissionChoices int `json:"mission_choices"`
	MissionDamage  int `json:"mission_damage"`
}

// Value reads a statistic by name. Unknown fields read as zero.
func (s PlayerStats) Value(field StatField) int {
	switch field {
	case FieldMissionsCompleted:
		return s.MissionsCompleted
	case FieldDeaths:
		return s.Deaths
	case FieldCombatVictories:
		return s.CombatVictories
	case FieldPerfectMission:
		return boolToInt(s.PerfectMission)
	case FieldItemsUsed:
		return s.ItemsUsed
	case FieldSuccessfulSquadMissions:
		return s.SuccessfulSquadMissions
	case FieldQuickCompletion:
		return boolToInt(s.QuickCompletion)
	case FieldTotalScore:
		return s.TotalScore
	case FieldDistinctClassesPlayed:
		return len(s.ClassesPlayed)
	default:
		return 0
	}
}

// Clone returns a copy that shares no slices with the original
func (s PlayerStats) Clone() PlayerStats {
	out := s
	out.ClassesPlayed = append([]string(nil), s.ClassesPlayed...)
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package game

import (
	"fmt"
	"strings"

	"github.com/user/frontline-missions/internal/types"
)

// ConsequenceFunc decides what a chosen action costs or earns.
// It must not mutate its inputs.
type ConsequenceFunc func(session *types.GameSession, action, category string, rng Random) types.ConsequenceReport

// DefaultConsequences is the built-in consequence model keyed by verb category
func DefaultConsequences(session *types.GameSession, action, category string, rng Random) types.ConsequenceReport {
	report := types.ConsequenceReport{Category: category}

	switch category {
	case CategoryCautious:
		report.MoraleChange = 2
		report.Experience = 5
		report.Description = "You move carefully and keep the squad out of harm's way."

	case CategoryAggressive:
		report.AmmoChange = -between(rng, 1, 3)
		report.MoraleChange = 5
		report.Experience = 10
		if rng.Intn(100) < 30 {
			report.HealthChange = -between(rng, 5, 15)
		}
		if len(session.Squad) > 0 && rng.Intn(100) < 20 {
			idx := rng.Intn(len(session.Squad))
			member := session.Squad[idx]
			report.SquadDamage = between(rng, 10, 30)
			if member.Health-report.SquadDamage <= 0 {
				report.SquadCasualty = append(report.SquadCasualty, member.ID)
			} else {
				report.SquadWounded = append(report.SquadWounded, member.ID)
			}
		}
		report.Description = "You press the attack hard, trading rounds for ground."

	case CategoryRetreating:
		report.MoraleChange = -10
		report.Experience = 2
		report.Description = "You pull back to regroup. The squad is shaken but intact."

	case CategoryMedical:
		report.MoraleChange = 3
		report.Experience = 4
		if session.Resources.Medkits > 0 {
			report.MedkitsChange = -1
			report.HealthChange = 20
			report.ItemsConsumed = 1
			report.Description = "You patch up the wounded with a field kit."
		} else {
			report.Description = "You do what you can for the wounded without supplies."
		}

	case CategoryExplosive:
		report.Experience = 8
		if session.Resources.Explosives > 0 {
			report.ExplosiveUsed = true
			report.ItemsConsumed = 1
			if rng.Intn(100) < 20 {
				report.HealthChange = -between(rng, 5, 10)
			}
			report.Description = "The charges are set and the blast rocks the position."
		} else {
			report.MoraleChange = -3
			report.Description = "You reach for explosives but the satchel is empty."
		}

	case CategoryRecon:
		report.Experience = 5
		report.IntelGained = 1
		report.Description = "You gather what intelligence you can about the enemy."

	default:
		report.Category = CategoryNeutral
		report.Experience = 3
		report.Description = fmt.Sprintf("You carry out the order: %s.", strings.TrimRight(action, "."))
	}

	return report
}

// applyConsequences folds a report into the session and returns the damage actually taken
func applyConsequences(session *types.GameSession, report types.ConsequenceReport) int {
	before := session.Player.Health

	session.Player.Health += report.HealthChange
	session.Player.Morale += report.MoraleChange
	session.Player.Experience += report.Experience
	session.Player.Clamp()

	session.Resources.Ammo += report.AmmoChange
	session.Resources.Medkits += report.MedkitsChange
	session.Resources.Intel += report.IntelGained
	if report.ExplosiveUsed {
		session.Resources.Explosives--
	}
	session.Resources.Clamp()

	if len(report.SquadWounded) > 0 || len(report.SquadCasualty) > 0 {
		session.Squad = applySquadLosses(session.Squad, report.SquadWounded, report.SquadCasualty, report.SquadDamage)
	}

	return max(before-session.Player.Health, 0)
}

// applySquadLosses removes casualties and takes damage off the wounded, who are left with at least 1 health
func applySquadLosses(squad []types.SquadMember, wounded, casualties []string, damage int) []types.SquadMember {
	dead := make(map[string]bool, len(casualties))
	for _, id := range casualties {
		dead[id] = true
	}
	hurt := make(map[string]bool, len(wounded))
	for _, id := range wounded {
		hurt[id] = true
	}

	out := make([]types.SquadMember, 0, len(squad))
	for _, m := range squad {
		if dead[m.ID] {
			continue
		}
		if hurt[m.ID] {
			m.Health = max(m.Health-damage, 1)
		}
		out = append(out, m)
	}
	return out
}

package whatsapp

import (
	"fmt"
	"strings"

	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// MessageFormatter renders game state as WhatsApp text
type MessageFormatter struct{}

// NewMessageFormatter creates a new message formatter
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

// FormatTurn renders the outcome of a turn
func (mf *MessageFormatter) FormatTurn(res *types.TurnResult, medals []string) string {
	var b strings.Builder

	if res.Consequences != nil && res.Consequences.Description != "" {
		fmt.Fprintf(&b, "_%s_\n", res.Consequences.Description)
	}
	if res.Combat != nil {
		b.WriteString(mf.formatCombat(res.Combat))
		b.WriteString("\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	b.WriteString(strings.TrimSpace(res.LastChunk))
	b.WriteString("\n\n")

	// Menu recovered from defaults is not in the passage itself
	if len(res.Choices) > 0 && game.RecoveredChoiceCount(res.LastChunk) < game.ChoiceCount {
		for i, choice := range res.Choices {
			fmt.Fprintf(&b, "%d. %s\n", i+1, choice)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "❤️ %d/%d  🔫 %d  🩹 %d  💣 %d  📋 %d  ⭐ %d\n",
		res.Player.Health, res.Player.MaxHealth,
		res.Resources.Ammo, res.Resources.Medkits, res.Resources.Explosives, res.Resources.Intel,
		res.Score)

	for _, medal := range medals {
		fmt.Fprintf(&b, "🏅 Medal earned: *%s*\n", medal)
	}

	switch {
	case res.Summary != nil:
		b.WriteString("\n")
		b.WriteString(mf.FormatSummary(res.Summary))
	case res.PendingCombat != nil:
		fmt.Fprintf(&b, "\n⚔️ *CONTACT!* %d hostiles. Send */fight <action>*.", len(res.PendingCombat.Enemies))
	case res.Degraded:
		b.WriteString("\n📻 Radio trouble. Try the same order again.")
	default:
		fmt.Fprintf(&b, "\nTurn %d (%s). Reply */1*, */2* or */3*.", res.TurnCount, res.Phase)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (mf *MessageFormatter) formatCombat(c *types.CombatResult) string {
	verdict := "💀 *DEFEAT*"
	if c.Victory {
		verdict = "🎯 *VICTORY*"
	}
	line := fmt.Sprintf("%s vs %d hostiles (%d%% odds)", verdict, c.EnemyCount, c.VictoryChance)
	if c.Damage > 0 {
		line += fmt.Sprintf(", -%d health", c.Damage)
	}
	if c.AmmoUsed > 0 {
		line += fmt.Sprintf(", -%d ammo", c.AmmoUsed)
	}
	if c.Description != "" {
		line += "\n" + c.Description
	}
	return line
}

// FormatSummary renders the end of a mission
func (mf *MessageFormatter) FormatSummary(s *types.MissionSummary) string {
	title := "❌ *MISSION FAILED*"
	if s.Outcome == types.VerdictSuccess {
		title = "✅ *MISSION ACCOMPLISHED*"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", title, s.Mission)
	fmt.Fprintf(&b, "Score: %d | Turns: %d | Fights won: %d | Squad left: %d", s.Score, s.Turns, s.CombatVictories, s.SquadSurvivors)
	if s.Reason != "" {
		fmt.Fprintf(&b, "\n%s", s.Reason)
	}
	b.WriteString("\n\nSend */deploy* for the next mission.")
	return b.String()
}

// FormatItem renders the result of using a consumable
func (mf *MessageFormatter) FormatItem(res *types.TurnResult) string {
	msg := "🩹 Medkit applied."
	if res.Consequences != nil && res.Consequences.Description != "" {
		msg = "🩹 " + res.Consequences.Description
	}
	return fmt.Sprintf("%s\n❤️ %d/%d  🩹 %d left", msg, res.Player.Health, res.Player.MaxHealth, res.Resources.Medkits)
}

// FormatStatus renders a soldier, squad and supplies
func (mf *MessageFormatter) FormatStatus(s *types.GameSession) string {
	var b strings.Builder
	p := s.Player
	fmt.Fprintf(&b, "📊 *%s %s* (%s, %s)\n", p.Rank, p.Name, p.Class, p.Weapon)
	fmt.Fprintf(&b, "Health: %d/%d ❤️\n", p.Health, p.MaxHealth)
	fmt.Fprintf(&b, "Morale: %d/100 💪\n", p.Morale)
	fmt.Fprintf(&b, "Experience: %d ⭐\n", p.Experience)
	fmt.Fprintf(&b, "Score: %d 🏆\n", s.Score)
	fmt.Fprintf(&b, "Supplies: %d ammo, %d medkits, %d explosives, %d intel\n",
		s.Resources.Ammo, s.Resources.Medkits, s.Resources.Explosives, s.Resources.Intel)

	if len(s.Squad) > 0 {
		b.WriteString("\n*SQUAD*\n")
		for _, m := range s.Squad {
			fmt.Fprintf(&b, "• %s (%s) %d/%d\n", m.Name, m.Speciality, m.Health, m.MaxHealth)
		}
	}

	if s.Mission != nil && !s.State.Terminal() {
		fmt.Fprintf(&b, "\nOn mission: *%s*, turn %d (%s)", s.Mission.Name, s.TurnCount, s.Phase)
	} else {
		fmt.Fprintf(&b, "\nMissions completed: %d", len(s.CompletedMissions))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatMissions renders the mission catalog as a numbered list
func (mf *MessageFormatter) FormatMissions(missions []types.Mission) string {
	if len(missions) == 0 {
		return "No missions available."
	}
	var b strings.Builder
	b.WriteString("🗺️ *CAMPAIGN*\n\n")
	for i, m := range missions {
		fmt.Fprintf(&b, "%d. *%s* (%s, %s) [%s]\n   %s\n", i+1, m.Name, m.Location, m.Date, m.Difficulty, m.Objective)
	}
	b.WriteString("\nSend */deploy <number>* to ship out.")
	return b.String()
}

// FormatAchievements renders the medal cabinet
func (mf *MessageFormatter) FormatAchievements(cards []interfaces.AchievementCard) string {
	var b strings.Builder
	unlocked := 0
	for _, c := range cards {
		if c.Unlocked {
			unlocked++
		}
	}
	fmt.Fprintf(&b, "🏅 *MEDALS* %d/%d\n\n", unlocked, len(cards))
	for _, c := range cards {
		if !c.Unlocked {
			fmt.Fprintf(&b, "🔒 %s: %s\n", c.Name, c.Description)
			continue
		}
		fmt.Fprintf(&b, "%s *%s*: %s\n", c.Icon, c.Name, c.Description)
		if c.TriviaFact != "" {
			fmt.Fprintf(&b, "   📖 _%s_: %s\n", c.TriviaTitle, c.TriviaFact)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

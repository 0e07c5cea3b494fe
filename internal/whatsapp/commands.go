package whatsapp

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// SessionID maps a sender phone number to its game session id
func SessionID(sender string) string {
	return SessionPrefix + sender
}

// processGameCommand runs one chat command for a sender and returns the reply
func (cm *ClientManager) processGameCommand(ctx context.Context, sender, command string) string {
	command = cleanCommand(command)
	if !strings.HasPrefix(command, "/") {
		return "Commands start with '/'. Send */help* to see them."
	}

	fields := strings.Fields(strings.TrimPrefix(command, "/"))
	if len(fields) == 0 {
		return cm.handleHelpCommand()
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	sid := SessionID(sender)

	switch name {
	case "help", "start":
		return cm.handleHelpCommand()
	case "enlist":
		return cm.handleEnlistCommand(ctx, sid, args)
	case "missions":
		return cm.formatter.FormatMissions(cm.gameManager.ListMissions())
	case "deploy":
		return cm.handleDeployCommand(ctx, sid, args)
	case "1", "2", "3":
		choice, _ := strconv.Atoi(name)
		return cm.handleChoiceCommand(ctx, sid, choice)
	case "choose":
		if len(args) == 0 {
			return "Pick an option: */1*, */2* or */3*."
		}
		choice, err := strconv.Atoi(args[0])
		if err != nil {
			return "Pick an option: */1*, */2* or */3*."
		}
		return cm.handleChoiceCommand(ctx, sid, choice)
	case "fight":
		return cm.handleFightCommand(ctx, sid, strings.Join(args, " "))
	case "medkit":
		return cm.handleItemCommand(ctx, sid, "medkit")
	case "status":
		return cm.handleStatusCommand(ctx, sid)
	case "medals":
		return cm.handleMedalsCommand(ctx, sid)
	case "story":
		return cm.handleStoryCommand(ctx, sid, args)
	case "reset":
		if err := cm.gameManager.ResetSession(ctx, sid); err != nil {
			return cm.errorReply(sid, err)
		}
		return "Your service record has been cleared. Send */enlist* to start over."
	}

	return "Unknown command. Send */help* to see the available commands."
}

// handleEnlistCommand parses "<name...> <class> [rank] [weapon...]"
func (cm *ClientManager) handleEnlistCommand(ctx context.Context, sid string, args []string) string {
	req, ok := game.ParseEnlist(args)
	if !ok {
		return "Usage: */enlist <name> <class> [rank] [weapon]*\n" +
			"Classes: " + joinClasses() + "\n" +
			"Ranks: " + strings.Join(types.Ranks, ", ") + "\n" +
			"Weapons: " + strings.Join(types.Weapons, ", ")
	}

	session, err := cm.gameManager.CreateCharacter(ctx, sid, req)
	if err != nil {
		return cm.errorReply(sid, err)
	}

	return "🎖️ *ENLISTED*\n\n" + cm.formatter.FormatStatus(session) +
		"\n\nSend */missions* to see the campaign or */deploy* to ship out."
}

// handleDeployCommand starts a mission by list number, id or name; no argument picks the next one
func (cm *ClientManager) handleDeployCommand(ctx context.Context, sid string, args []string) string {
	missionID := strings.Join(args, " ")
	if n, err := strconv.Atoi(missionID); err == nil {
		missions := cm.gameManager.ListMissions()
		if n < 1 || n > len(missions) {
			return "No such mission. Send */missions* to see the list."
		}
		missionID = missions[n-1].ID
	}

	res, err := cm.gameManager.StartMission(ctx, sid, missionID)
	if err != nil {
		return cm.errorReply(sid, err)
	}
	return cm.formatter.FormatTurn(res, cm.medalNames(ctx, sid, res.NewAchievements))
}

func (cm *ClientManager) handleChoiceCommand(ctx context.Context, sid string, choice int) string {
	if choice < 1 || choice > game.ChoiceCount {
		return "Pick an option: */1*, */2* or */3*."
	}
	res, err := cm.gameManager.MakeChoice(ctx, sid, choice)
	if err != nil {
		return cm.errorReply(sid, err)
	}
	return cm.formatter.FormatTurn(res, cm.medalNames(ctx, sid, res.NewAchievements))
}

func (cm *ClientManager) handleFightCommand(ctx context.Context, sid, action string) string {
	if strings.TrimSpace(action) == "" {
		return "Tell your squad what to do, e.g. */fight flank the machine gun nest*."
	}
	res, err := cm.gameManager.ResolveCombat(ctx, sid, action)
	if err != nil {
		return cm.errorReply(sid, err)
	}
	return cm.formatter.FormatTurn(res, cm.medalNames(ctx, sid, res.NewAchievements))
}

func (cm *ClientManager) handleItemCommand(ctx context.Context, sid, item string) string {
	res, err := cm.gameManager.UseItem(ctx, sid, item)
	if err != nil {
		return cm.errorReply(sid, err)
	}
	return cm.formatter.FormatItem(res)
}

func (cm *ClientManager) handleStatusCommand(ctx context.Context, sid string) string {
	session, err := cm.gameManager.GetSession(ctx, sid)
	if err != nil {
		return cm.errorReply(sid, err)
	}
	return cm.formatter.FormatStatus(session)
}

func (cm *ClientManager) handleMedalsCommand(ctx context.Context, sid string) string {
	cards, err := cm.gameManager.Achievements(ctx, sid)
	if err != nil {
		return cm.errorReply(sid, err)
	}
	return cm.formatter.FormatAchievements(cards)
}

func (cm *ClientManager) handleStoryCommand(ctx context.Context, sid string, args []string) string {
	if len(args) == 0 {
		return "Usage: */story <turn>*"
	}
	turn, err := strconv.Atoi(args[0])
	if err != nil || turn < 1 {
		return "Usage: */story <turn>*"
	}
	text, err := cm.gameManager.RecoverNarrative(ctx, sid, turn)
	if err != nil {
		return cm.errorReply(sid, err)
	}
	return "📜 *FULL REPORT, TURN " + strconv.Itoa(turn) + "*\n\n" + text
}

// medalNames resolves unlocked achievement ids to display names
func (cm *ClientManager) medalNames(ctx context.Context, sid string, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	cards, err := cm.gameManager.Achievements(ctx, sid)
	if err != nil {
		return ids
	}
	byID := make(map[string]interfaces.AchievementCard, len(cards))
	for _, card := range cards {
		byID[card.ID] = card
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if card, ok := byID[id]; ok {
			names = append(names, card.Icon+" "+card.Name)
			continue
		}
		names = append(names, id)
	}
	return names
}

// errorReply turns game errors into chat replies
func (cm *ClientManager) errorReply(sid string, err error) string {
	switch {
	case errors.Is(err, types.ErrSessionNotFound):
		return "You haven't enlisted yet. Send */enlist <name> <class>* to begin."
	case errors.Is(err, types.ErrSessionCorrupt):
		return "Your service record was damaged and has been discarded. Send */enlist* to start again."
	case errors.Is(err, types.ErrNoActiveMission):
		return "You're not on a mission. Send */deploy* to ship out."
	case errors.Is(err, types.ErrMissionInProgress):
		return "You're already on a mission. Pick */1*, */2* or */3*."
	case errors.Is(err, types.ErrMissionNotFound):
		return "No such mission. Send */missions* to see the list."
	case errors.Is(err, types.ErrCombatPending):
		return "⚔️ You're under fire! Send */fight <action>* first."
	case errors.Is(err, types.ErrNoPendingCombat):
		return "There's nobody to fight right now."
	case errors.Is(err, types.ErrItemUnavailable):
		return "You're out of medkits."
	case errors.Is(err, types.ErrArchiveNotFound):
		return "No archived report for that turn."
	case errors.Is(err, types.ErrInvalidName), errors.Is(err, types.ErrInvalidClass),
		errors.Is(err, types.ErrInvalidRank), errors.Is(err, types.ErrInvalidWeapon):
		return "Can't enlist: " + err.Error() + ". Send */enlist* for the options."
	}

	cm.logger.Error("Command failed", zap.String("session_id", sid), zap.Error(err))
	return "Radio trouble, try again in a moment. 📻"
}

// handleHelpCommand returns help information
func (cm *ClientManager) handleHelpCommand() string {
	var b strings.Builder
	b.WriteString("🪖 *FRONTLINE MISSIONS* 🪖\n\n")
	b.WriteString("*GETTING STARTED*\n")
	b.WriteString("*/enlist <name> <class> [rank] [weapon]* - Create your soldier\n")
	b.WriteString("   Classes: " + joinClasses() + "\n")
	b.WriteString("*/missions* - The campaign\n")
	b.WriteString("*/deploy [number]* - Ship out, the next mission if none given\n\n")
	b.WriteString("*IN THE FIELD*\n")
	b.WriteString("*/1*, */2*, */3* - Choose what to do\n")
	b.WriteString("*/fight <action>* - Answer enemy contact\n")
	b.WriteString("*/medkit* - Patch yourself up\n")
	b.WriteString("*/story <turn>* - Full report of an earlier turn\n\n")
	b.WriteString("*RECORD*\n")
	b.WriteString("*/status* - Your soldier and squad\n")
	b.WriteString("*/medals* - Achievements and history\n")
	b.WriteString("*/reset* - Clear your record\n\n")
	b.WriteString("In groups, start commands with \"/ \", e.g. \"/ status\".")
	return b.String()
}

func joinClasses() string {
	names := make([]string, len(types.Classes))
	for i, c := range types.Classes {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// cleanCommand trims a command and collapses inner whitespace
func cleanCommand(command string) string {
	return strings.Join(strings.Fields(command), " ")
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

type sessionState int

const (
	stateLoading sessionState = iota
	stateEnlist
	stateBriefing
	statePlaying
	stateError
)

type model struct {
	state     sessionState
	games     interfaces.GameManager
	sessionID string
	session   *types.GameSession
	turn      *types.TurnResult
	textInput textinput.Model
	viewport  viewport.Model
	busy      bool
	err       error
	gameLog   string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#4B5320")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4AF37")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8FBC8F")).
			Bold(true).
			Underline(true)
)

// NewModel creates the terminal client for one session id
func NewModel(games interfaces.GameManager, sessionID string) model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 60

	return model{
		state:     stateLoading,
		games:     games,
		sessionID: sessionID,
		textInput: ti,
		viewport:  viewport.New(80, 20),
		width:     110,
		height:    26,
	}
}

type sessionLoadedMsg struct {
	session *types.GameSession
	err     error
}

type enlistedMsg struct {
	session *types.GameSession
	err     error
}

type turnMsg struct {
	result *types.TurnResult
	err    error
}

type noticeMsg struct {
	text string
	err  error
}

type resetMsg struct {
	err error
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadSession())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy || m.state == stateLoading || m.state == stateError {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()
			return m.submit(input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = int(float64(msg.Width) * 0.70)
		m.viewport.Height = max(msg.Height-6, 5)
		m.refresh()

	case sessionLoadedMsg:
		switch {
		case msg.err == nil:
			m.session = msg.session
			m.appendLine(noticeStyle.Render(fmt.Sprintf("Welcome back, %s %s.", msg.session.Player.Rank, msg.session.Player.Name)))
			if msg.session.Mission != nil && !msg.session.State.Terminal() {
				m.appendLine(gameStyle.Render(msg.session.Narrative.LastChunk))
				m.enterPlaying(msg.session.State == types.StateCombatPending)
			} else {
				m.enterBriefing()
			}
		case errors.Is(msg.err, types.ErrSessionNotFound), errors.Is(msg.err, types.ErrSessionCorrupt):
			m.enterEnlist()
		default:
			m.err = msg.err
			m.state = stateError
		}
		return m, nil

	case enlistedMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render(msg.err.Error()))
			return m, nil
		}
		m.session = msg.session
		m.appendLine(noticeStyle.Render(fmt.Sprintf("Enlisted: %s %s, %s with a %s.",
			msg.session.Player.Rank, msg.session.Player.Name, msg.session.Player.Class, msg.session.Player.Weapon)))
		m.enterBriefing()
		return m, nil

	case turnMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render(msg.err.Error()))
			return m, nil
		}
		m.applyTurn(msg.result)
		return m, m.loadSessionQuietly()

	case noticeMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render(msg.err.Error()))
			return m, nil
		}
		m.appendLine(gameStyle.Render(msg.text))
		return m, m.loadSessionQuietly()

	case sessionRefreshedMsg:
		m.session = msg.session
		return m, nil

	case resetMsg:
		m.busy = false
		if msg.err != nil {
			m.appendLine(errorStyle.Render(msg.err.Error()))
			return m, nil
		}
		m.session = nil
		m.turn = nil
		m.gameLog = ""
		m.enterEnlist()
		return m, nil
	}

	if m.state != stateLoading && m.state != stateError {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// submit handles a line typed in the current state
func (m model) submit(input string) (tea.Model, tea.Cmd) {
	switch input {
	case "/quit":
		return m, tea.Quit
	case "/reset":
		m.busy = true
		return m, m.reset()
	case "/medals":
		if m.session != nil {
			m.busy = true
			return m, m.medals()
		}
	}

	switch m.state {
	case stateEnlist:
		req, ok := game.ParseEnlist(strings.Fields(input))
		if !ok {
			m.appendLine(errorStyle.Render("Type: <name> <class> [rank] [weapon]"))
			return m, nil
		}
		m.echo(input)
		m.busy = true
		return m, m.enlist(req)

	case stateBriefing:
		missionID := input
		if n, err := strconv.Atoi(input); err == nil {
			missions := m.games.ListMissions()
			if n < 1 || n > len(missions) {
				m.appendLine(errorStyle.Render("No such mission."))
				return m, nil
			}
			missionID = missions[n-1].ID
		}
		m.echo("Deploy " + input)
		m.busy = true
		return m, m.startMission(missionID)

	case statePlaying:
		if input == "" {
			return m, nil
		}
		m.echo(input)
		m.busy = true
		switch {
		case input == "/medkit":
			return m, m.useItem("medkit")
		case strings.HasPrefix(input, "/story "):
			turn, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(input, "/story ")))
			if err != nil {
				m.busy = false
				m.appendLine(errorStyle.Render("Type: /story <turn>"))
				return m, nil
			}
			return m, m.story(turn)
		case m.underFire():
			return m, m.fight(strings.TrimPrefix(input, "/fight "))
		}
		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > game.ChoiceCount {
			m.busy = false
			m.appendLine(errorStyle.Render("Pick 1, 2 or 3."))
			return m, nil
		}
		return m, m.choose(choice)
	}

	return m, nil
}

// applyTurn writes a turn result to the log and moves to the next state
func (m *model) applyTurn(res *types.TurnResult) {
	m.turn = res
	if res.Consequences != nil && res.Consequences.Description != "" {
		m.appendLine(helpStyle.Render(res.Consequences.Description))
	}
	if res.Combat != nil {
		verdict := "Defeat"
		if res.Combat.Victory {
			verdict = "Victory"
		}
		m.appendLine(noticeStyle.Render(fmt.Sprintf("%s against %d hostiles (%d%% odds).", verdict, res.Combat.EnemyCount, res.Combat.VictoryChance)))
	}
	m.appendLine(gameStyle.Render(strings.TrimSpace(res.LastChunk)))
	if len(res.Choices) > 0 && game.RecoveredChoiceCount(res.LastChunk) < game.ChoiceCount {
		var b strings.Builder
		for i, choice := range res.Choices {
			fmt.Fprintf(&b, "%d. %s\n", i+1, choice)
		}
		m.appendLine(gameStyle.Render(strings.TrimRight(b.String(), "\n")))
	}
	for _, id := range res.NewAchievements {
		m.appendLine(noticeStyle.Render("Medal earned: " + id))
	}
	if res.Degraded {
		m.appendLine(errorStyle.Render("Radio trouble. Try the same order again."))
	}

	if res.Summary != nil {
		title := "MISSION FAILED"
		if res.Summary.Outcome == types.VerdictSuccess {
			title = "MISSION ACCOMPLISHED"
		}
		m.appendLine(noticeStyle.Render(fmt.Sprintf("%s: %s. Score %d in %d turns.", title, res.Summary.Mission, res.Summary.Score, res.Summary.Turns)))
		m.enterBriefing()
		return
	}
	m.enterPlaying(res.PendingCombat != nil)
}

// underFire reports whether the next input answers a pending fight
func (m model) underFire() bool {
	if m.turn != nil {
		return m.turn.PendingCombat != nil
	}
	return m.session != nil && m.session.State == types.StateCombatPending
}

func (m *model) enterEnlist() {
	m.state = stateEnlist
	m.appendLine(noticeStyle.Render("Enlist: <name> <class> [rank] [weapon]"))
	m.appendLine(helpStyle.Render("Classes: " + joinClasses()))
	m.textInput.Placeholder = "Miller Sniper Sergeant"
}

func (m *model) enterBriefing() {
	m.state = stateBriefing
	var b strings.Builder
	b.WriteString(titleStyle.Render("CAMPAIGN") + "\n")
	for i, mission := range m.games.ListMissions() {
		fmt.Fprintf(&b, "%d. %s (%s, %s) [%s]\n", i+1, mission.Name, mission.Location, mission.Date, mission.Difficulty)
	}
	m.appendLine(strings.TrimRight(b.String(), "\n"))
	m.textInput.Placeholder = "Mission number, or Enter for the next one"
}

func (m *model) enterPlaying(underFire bool) {
	m.state = statePlaying
	if underFire {
		m.appendLine(noticeStyle.Render("CONTACT! Tell your squad what to do."))
		m.textInput.Placeholder = "e.g. flank the machine gun nest"
		return
	}
	m.textInput.Placeholder = "1, 2 or 3"
}

func (m *model) echo(input string) {
	width := max(m.viewport.Width, 20)
	m.appendLine(userStyle.Width(width).Render("> " + input))
}

func (m *model) appendLine(text string) {
	if text == "" {
		return
	}
	if m.gameLog != "" {
		m.gameLog += "\n\n"
	}
	m.gameLog += text
	m.refresh()
}

func (m *model) refresh() {
	m.viewport.SetContent(lipgloss.NewStyle().Width(max(m.viewport.Width, 20)).Render(m.gameLog))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	switch m.state {
	case stateLoading:
		return "\n  Reporting for duty...\n"
	case stateError:
		return fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.\n", m.err)
	}

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState())
	status := "Commands: /medkit, /fight <action>, /story <turn>, /medals, /reset, /quit"
	if m.busy {
		status = "Awaiting orders from HQ..."
	}
	return "\n" + lipgloss.JoinVertical(lipgloss.Left,
		mainView,
		"\n"+m.textInput.View(),
		"\n"+helpStyle.Render(status),
	) + "\n"
}

// renderState draws the side panel with the soldier, supplies and squad
func (m model) renderState() string {
	if m.session == nil {
		return ""
	}
	s := m.session
	p := s.Player
	res := s.Resources

	var b strings.Builder
	b.WriteString(titleStyle.Render("SOLDIER") + "\n")
	fmt.Fprintf(&b, "%s %s\n%s, %s\n", p.Rank, p.Name, p.Class, p.Weapon)
	fmt.Fprintf(&b, "Health: %d/%d\nMorale: %d\nXP: %d\n\n", p.Health, p.MaxHealth, p.Morale, p.Experience)

	b.WriteString(titleStyle.Render("SUPPLIES") + "\n")
	fmt.Fprintf(&b, "Ammo: %d\nMedkits: %d\nExplosives: %d\nIntel: %d\n\n", res.Ammo, res.Medkits, res.Explosives, res.Intel)

	if s.Mission != nil {
		b.WriteString(titleStyle.Render("MISSION") + "\n")
		fmt.Fprintf(&b, "%s\nTurn %d, %s\n\n", s.Mission.Name, s.TurnCount, s.Phase)
	}

	b.WriteString(titleStyle.Render("SQUAD") + "\n")
	if len(s.Squad) == 0 {
		b.WriteString("(none)")
	}
	for _, member := range s.Squad {
		fmt.Fprintf(&b, "%s %d/%d\n", member.Name, member.Health, member.MaxHealth)
	}

	width := max(int(float64(m.width)*0.27), 20)
	return stateStyle.Width(width).Height(m.viewport.Height).Render(b.String())
}

func joinClasses() string {
	names := make([]string, len(types.Classes))
	for i, c := range types.Classes {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func (m model) loadSession() tea.Cmd {
	return func() tea.Msg {
		session, err := m.games.GetSession(context.Background(), m.sessionID)
		return sessionLoadedMsg{session, err}
	}
}

// loadSessionQuietly refreshes the side panel after a turn
func (m model) loadSessionQuietly() tea.Cmd {
	return func() tea.Msg {
		session, err := m.games.GetSession(context.Background(), m.sessionID)
		if err != nil {
			return nil
		}
		return sessionRefreshedMsg{session}
	}
}

type sessionRefreshedMsg struct {
	session *types.GameSession
}

func (m model) enlist(req interfaces.CharacterRequest) tea.Cmd {
	return func() tea.Msg {
		session, err := m.games.CreateCharacter(context.Background(), m.sessionID, req)
		return enlistedMsg{session, err}
	}
}

func (m model) startMission(missionID string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.games.StartMission(context.Background(), m.sessionID, missionID)
		return turnMsg{res, err}
	}
}

func (m model) choose(choice int) tea.Cmd {
	return func() tea.Msg {
		res, err := m.games.MakeChoice(context.Background(), m.sessionID, choice)
		return turnMsg{res, err}
	}
}

func (m model) fight(action string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.games.ResolveCombat(context.Background(), m.sessionID, action)
		return turnMsg{res, err}
	}
}

func (m model) useItem(item string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.games.UseItem(context.Background(), m.sessionID, item)
		if err != nil {
			return noticeMsg{err: err}
		}
		return noticeMsg{text: fmt.Sprintf("Medkit applied. Health %d/%d, %d medkits left.", res.Player.Health, res.Player.MaxHealth, res.Resources.Medkits)}
	}
}

func (m model) story(turn int) tea.Cmd {
	return func() tea.Msg {
		text, err := m.games.RecoverNarrative(context.Background(), m.sessionID, turn)
		if err != nil {
			return noticeMsg{err: err}
		}
		return noticeMsg{text: fmt.Sprintf("Full report, turn %d:\n\n%s", turn, text)}
	}
}

func (m model) medals() tea.Cmd {
	return func() tea.Msg {
		cards, err := m.games.Achievements(context.Background(), m.sessionID)
		if err != nil {
			return noticeMsg{err: err}
		}
		var b strings.Builder
		for _, c := range cards {
			mark := "[ ]"
			if c.Unlocked {
				mark = "[x]"
			}
			fmt.Fprintf(&b, "%s %s: %s\n", mark, c.Name, c.Description)
		}
		return noticeMsg{text: strings.TrimRight(b.String(), "\n")}
	}
}

func (m model) reset() tea.Cmd {
	return func() tea.Msg {
		return resetMsg{m.games.ResetSession(context.Background(), m.sessionID)}
	}
}

// Run starts the terminal client
func Run(games interfaces.GameManager, sessionID string) error {
	p := tea.NewProgram(NewModel(games, sessionID), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

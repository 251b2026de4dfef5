// Package tui is a terminal blackjack table driven by a server connection.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/stats"
)

const maxLogLines = 100

// Table is the connection the model plays through. *client.Client
// satisfies it.
type Table interface {
	Deal() error
	Hit() error
	Stand() error
	Reset() error
	ResetStats() error
	GetStats() error
	Events() <-chan *server.Message
}

type keyMap struct {
	Hit        key.Binding
	Stand      key.Binding
	NewRound   key.Binding
	ResetStats key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Hit, k.Stand, k.NewRound, k.ResetStats, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Hit:        key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hit")),
	Stand:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stand")),
	NewRound:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new round")),
	ResetStats: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset stats")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// eventMsg wraps a message from the server
type eventMsg struct{ msg *server.Message }

// disconnectedMsg is sent when the server connection ends
type disconnectedMsg struct{}

// actionErrMsg reports a failure to send an action
type actionErrMsg struct{ err error }

// Model is the Bubble Tea model for a blackjack table
type Model struct {
	table  Table
	player string
	logger *log.Logger

	// UI components
	logViewport viewport.Model
	spinner     spinner.Model
	help        help.Model

	// State
	round    *server.RoundView
	result   *server.RoundOutcome
	stats    stats.Record
	waiting  bool
	errText  string
	gameLog  []string
	quitting bool

	width  int
	height int
}

// New creates a model playing as player through table
func New(table Table, player string, logger *log.Logger) *Model {
	vp := viewport.New(60, 6)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &Model{
		table:       table,
		player:      player,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		spinner:     sp,
		help:        help.New(),
		stats:       stats.NewRecord(player),
		waiting:     true,
	}
}

// Run starts the program and blocks until the player quits
func Run(table Table, player string, logger *log.Logger) error {
	_, err := tea.NewProgram(New(table, player, logger), tea.WithAltScreen()).Run()
	return err
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.listen(),
		m.spinner.Tick,
		m.send(m.table.Deal),
	)
}

// listen returns a command that waits for the next server message
func (m *Model) listen() tea.Cmd {
	events := m.table.Events()
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return disconnectedMsg{}
		}
		return eventMsg{msg: msg}
	}
}

func (m *Model) send(action func() error) tea.Cmd {
	return func() tea.Msg {
		if err := action(); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = max(msg.Width-4, 20)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case eventMsg:
		m.handleEvent(msg.msg)
		return m, m.listen()

	case disconnectedMsg:
		m.errText = "Disconnected from server"
		m.quitting = true
		return m, tea.Quit

	case actionErrMsg:
		m.waiting = false
		m.errText = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, keys.Hit):
		if !m.inRound() {
			return nil
		}
		return m.act(m.table.Hit)

	case key.Matches(msg, keys.Stand):
		if !m.inRound() {
			return nil
		}
		return m.act(m.table.Stand)

	case key.Matches(msg, keys.NewRound):
		m.result = nil
		return m.act(m.table.Reset)

	case key.Matches(msg, keys.ResetStats):
		return m.act(m.table.ResetStats)
	}
	return nil
}

func (m *Model) act(action func() error) tea.Cmd {
	if m.waiting {
		return nil
	}
	m.waiting = true
	m.errText = ""
	return m.send(action)
}

func (m *Model) inRound() bool {
	return m.round != nil && m.round.Phase == game.PlayerTurn
}

func (m *Model) handleEvent(msg *server.Message) {
	m.logger.Debug("Server message", "type", msg.Type)
	m.waiting = false

	switch msg.Type {
	case server.MessageTypeRoundState:
		var view server.RoundView
		if err := msg.Decode(&view); err != nil {
			m.errText = err.Error()
			return
		}
		if m.round == nil || len(view.PlayerHand) <= len(m.round.PlayerHand) {
			m.addLog("New round: you have %s (%d)", strings.Join(view.PlayerHand, " "), view.PlayerScore)
		} else {
			m.addLog("Hit: %s (%d)", view.PlayerHand[len(view.PlayerHand)-1], view.PlayerScore)
		}
		m.round = &view
		m.result = nil
		m.stats = view.Stats

	case server.MessageTypeRoundResult:
		var outcome server.RoundOutcome
		if err := msg.Decode(&outcome); err != nil {
			m.errText = err.Error()
			return
		}
		m.addLog("%s %d vs %d", outcome.Message, outcome.PlayerScore, outcome.DealerScore)
		m.result = &outcome
		m.round = nil
		m.stats = outcome.Stats

	case server.MessageTypeStats:
		var r stats.Record
		if err := msg.Decode(&r); err != nil {
			m.errText = err.Error()
			return
		}
		m.stats = r
		m.addLog("Stats: %d won, %d lost, %d drawn", r.Win, r.Loss, r.Draw)

	case server.MessageTypeError:
		var e server.ErrorData
		if err := msg.Decode(&e); err != nil {
			m.errText = err.Error()
			return
		}
		m.errText = e.Message

	case server.MessageTypeAuthResponse:
		var a server.AuthResponseData
		if err := msg.Decode(&a); err == nil && a.Success {
			m.player = a.User
			m.addLog("Playing as %s", a.User)
		}
	}
}

func (m *Model) addLog(format string, args ...any) {
	m.gameLog = append(m.gameLog, fmt.Sprintf(format, args...))
	if len(m.gameLog) > maxLogLines {
		m.gameLog = m.gameLog[len(m.gameLog)-maxLogLines:]
	}
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("♠ Blackjack ♥ " + m.player))
	b.WriteString("\n\n")
	b.WriteString(TableStyle.Render(m.renderTable()))
	b.WriteString("\n")
	b.WriteString(StatsStyle.Render(fmt.Sprintf("Wins %d  Losses %d  Draws %d", m.stats.Win, m.stats.Loss, m.stats.Draw)))
	b.WriteString("\n")

	switch {
	case m.errText != "":
		b.WriteString(ErrorStyle.Render(m.errText))
	case m.waiting:
		b.WriteString(m.spinner.View() + InfoStyle.Render(" waiting for dealer"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.logViewport.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m *Model) renderTable() string {
	switch {
	case m.result != nil:
		r := m.result
		return lipgloss.JoinVertical(lipgloss.Left,
			renderRow("Dealer", r.DealerHand, fmt.Sprint(r.DealerScore)),
			renderRow("You", r.PlayerHand, fmt.Sprint(r.PlayerScore)),
			"",
			outcomeStyle(r.Outcome).Render(r.Message)+InfoStyle.Render("  press n to play again"),
		)

	case m.round != nil:
		return lipgloss.JoinVertical(lipgloss.Left,
			renderRow("Dealer", m.round.DealerHand, "?"),
			renderRow("You", m.round.PlayerHand, fmt.Sprint(m.round.PlayerScore)),
		)

	default:
		return InfoStyle.Render("Shuffling...")
	}
}

func renderRow(label string, cards []string, score string) string {
	rendered := make([]string, len(cards))
	for i, c := range cards {
		rendered[i] = renderCard(c)
	}
	return LabelStyle.Render(label) + strings.Join(rendered, " ") + InfoStyle.Render("  ("+score+")")
}

func renderCard(card string) string {
	if card == game.HiddenCard {
		return HiddenCardStyle.Render("??")
	}
	return cardStyle(card).Render(card)
}

// cardStyle colours hearts and diamonds red
func cardStyle(card string) lipgloss.Style {
	c, err := deck.ParseCard(card)
	if err == nil && c.IsRed() {
		return RedCardStyle
	}
	return BlackCardStyle
}

func outcomeStyle(o game.Outcome) lipgloss.Style {
	switch o {
	case game.Win:
		return WinStyle
	case game.Draw:
		return DrawStyle
	default:
		return LoseStyle
	}
}

package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/tablewire/holdem/internal/deck"
	"github.com/tablewire/holdem/internal/protocol"
)

// serverMsg wraps one decoded server message for the Bubble Tea loop.
type serverMsg struct {
	msg protocol.ServerMessage
}

// disconnectedMsg signals that the server connection dropped.
type disconnectedMsg struct{}

// Model is the Bubble Tea model for the table view. All game state here
// is a mirror of what the server has broadcast; the client never
// decides anything itself.
type Model struct {
	client     *Client
	logger     *log.Logger
	playerName string

	logViewport viewport.Model
	input       textinput.Model

	gameLog []string

	// Mirrored table state
	myID       int
	players    map[int]string
	ready      map[int]bool
	state      protocol.GameState
	pot        int
	currentBet int
	toCall     int
	minRaise   int
	toAct      int
	holeCards  []deck.Card
	community  []deck.Card

	width    int
	height   int
	quitting bool
}

// NewModel creates the table view over an established connection. The
// JOIN is sent from Init so the welcome arrives through the normal
// message flow.
func NewModel(c *Client, playerName string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "chat, or /ready /fold /check /call /raise <amount> /state /leave"
	ti.Focus()
	ti.CharLimit = 200
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)

	return &Model{
		client:      c,
		logger:      logger.WithPrefix("tui"),
		playerName:  playerName,
		logViewport: vp,
		input:       ti,
		myID:        -1,
		toAct:       -1,
		players:     make(map[int]string),
		ready:       make(map[int]bool),
	}
}

// Init joins the table and starts listening for server messages.
func (m *Model) Init() tea.Cmd {
	if err := m.client.Send(protocol.Join{Name: m.playerName}); err != nil {
		m.logger.Error("join failed", "error", err)
	}
	return tea.Batch(textinput.Blink, m.waitForServer())
}

// waitForServer blocks on the next server message.
func (m *Model) waitForServer() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Messages()
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles terminal and network events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case disconnectedMsg:
		m.appendLog(ErrorStyle.Render("Disconnected from server"))
		m.quitting = true
		return m, tea.Quit

	case serverMsg:
		m.apply(msg.msg)
		cmds = append(cmds, m.waitForServer())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			_ = m.client.Send(protocol.Leave{})
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line != "" {
				m.handleInput(line)
			}
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleInput translates one input line into a client message. Slash
// commands drive the game; anything else is table chat.
func (m *Model) handleInput(line string) {
	if !strings.HasPrefix(line, "/") {
		m.send(protocol.Chat{Text: line})
		return
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/ready":
		m.send(protocol.Ready{})
	case "/fold":
		m.send(protocol.Action{Action: protocol.ActionFold})
	case "/check":
		m.send(protocol.Action{Action: protocol.ActionCheck})
	case "/call":
		m.send(protocol.Action{Action: protocol.ActionCall})
	case "/raise":
		if len(fields) < 2 {
			m.appendLog(ErrorStyle.Render("Usage: /raise <total amount>"))
			return
		}
		amount, err := strconv.Atoi(fields[1])
		if err != nil || amount <= 0 {
			m.appendLog(ErrorStyle.Render("Raise amount must be a positive number"))
			return
		}
		m.send(protocol.Action{Action: protocol.ActionRaise, Amount: amount})
	case "/state":
		m.send(protocol.RequestState{})
	case "/leave":
		m.send(protocol.Leave{})
		m.quitting = true
	case "/play":
		m.send(protocol.AdminPlay{})
	default:
		m.appendLog(ErrorStyle.Render(fmt.Sprintf("Unknown command %s", fields[0])))
	}
}

func (m *Model) send(msg protocol.ClientMessage) {
	if err := m.client.Send(msg); err != nil {
		m.logger.Error("send failed", "error", err)
		m.appendLog(ErrorStyle.Render("Failed to send, connection may be down"))
	}
}

// apply folds one server message into the mirrored state and game log.
func (m *Model) apply(msg protocol.ServerMessage) {
	switch msg := msg.(type) {
	case protocol.Welcome:
		m.myID = msg.ID
		for _, p := range msg.Players {
			m.players[p.ID] = p.Name
		}
		m.appendLog(WinStyle.Render(fmt.Sprintf("Seated as %s (seat %d)", msg.Name, msg.ID)))

	case protocol.PlayerJoined:
		m.players[msg.ID] = msg.Name
		if msg.ID != m.myID {
			m.appendLog(InfoStyle.Render(fmt.Sprintf("%s joined", msg.Name)))
		}

	case protocol.PlayerLeft:
		name := m.seatName(msg.ID)
		delete(m.players, msg.ID)
		delete(m.ready, msg.ID)
		m.appendLog(InfoStyle.Render(fmt.Sprintf("%s left", name)))

	case protocol.PlayerReady:
		m.ready[msg.ID] = true
		m.appendLog(InfoStyle.Render(fmt.Sprintf("%s is ready", m.seatName(msg.ID))))

	case protocol.ChatFrom:
		m.appendLog(ChatStyle.Render(fmt.Sprintf("%s: %s", m.seatName(msg.ID), msg.Text)))

	case protocol.GameStateMsg:
		m.state = msg.State
		m.pot = msg.Pot
		m.appendLog(InfoStyle.Render(fmt.Sprintf("State: %s, pot %d", msg.State, msg.Pot)))

	case protocol.PlayerHand:
		if m.state == protocol.StateWaitingForPlayers {
			m.newHand()
		}
		m.state = protocol.StatePreFlop
		m.holeCards = append(m.holeCards, msg.Card)
		if len(m.holeCards) == 2 {
			m.appendLog(fmt.Sprintf("Your hand: %s", m.renderCards(m.holeCards)))
		}

	case protocol.CommunityCard:
		m.community = append(m.community, msg.Card)
		m.appendLog(fmt.Sprintf("Board: %s", m.renderCards(m.community)))

	case protocol.PotUpdate:
		m.pot = msg.Pot

	case protocol.ActionResult:
		m.appendLog(m.renderAction(msg))

	case protocol.BettingUpdate:
		m.pot = msg.Pot
		m.currentBet = msg.CurrentBet
		m.minRaise = msg.MinRaise
		m.toCall = msg.ToCall
		m.toAct = msg.ToAct
		if msg.ToAct == m.myID {
			m.appendLog(TurnStyle.Render(fmt.Sprintf(
				"Your turn: %d to call, min raise to %d", msg.ToCall, msg.CurrentBet+msg.MinRaise)))
		} else {
			m.appendLog(InfoStyle.Render(fmt.Sprintf("Waiting on %s", m.seatName(msg.ToAct))))
		}

	case protocol.Showdown:
		names := make([]string, len(msg.Winners))
		for i, id := range msg.Winners {
			names[i] = m.seatName(id)
		}
		if len(names) == 0 {
			m.appendLog(InfoStyle.Render("Hand over, nobody left in"))
		} else {
			m.appendLog(WinStyle.Render(fmt.Sprintf(
				"Pot of %d goes to %s", msg.Pot, strings.Join(names, ", "))))
		}
		m.newHand()
		m.state = protocol.StateWaitingForPlayers
		m.ready = make(map[int]bool)
		m.appendLog(InfoStyle.Render("Type /ready for the next hand"))
	}
}

// newHand clears the per-hand display state.
func (m *Model) newHand() {
	m.holeCards = nil
	m.community = nil
	m.pot = 0
	m.currentBet = 0
	m.toCall = 0
	m.toAct = -1
}

func (m *Model) seatName(id int) string {
	if name, ok := m.players[id]; ok {
		if id == m.myID {
			return name + " (you)"
		}
		return name
	}
	return fmt.Sprintf("seat %d", id)
}

func (m *Model) renderAction(msg protocol.ActionResult) string {
	name := m.seatName(msg.ID)
	switch msg.Action {
	case protocol.ActionFold:
		return fmt.Sprintf("%s folds", name)
	case protocol.ActionCheck:
		return fmt.Sprintf("%s checks", name)
	case protocol.ActionCall:
		return fmt.Sprintf("%s calls %d", name, msg.Amount)
	case protocol.ActionRaise:
		return fmt.Sprintf("%s raises to %d", name, msg.Amount)
	default:
		return ErrorStyle.Render(fmt.Sprintf("%s: action rejected", name))
	}
}

func (m *Model) renderCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		if c.Suit.IsRed() {
			parts[i] = RedCardStyle.Render(c.String())
		} else {
			parts[i] = BlackCardStyle.Render(c.String())
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) appendLog(line string) {
	m.gameLog = append(m.gameLog, line)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

// View renders the log pane, a one-line status bar and the input line.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Connecting..."
	}

	header := HeaderStyle.Render(fmt.Sprintf(" Holdem | %s ", m.playerName))

	status := m.renderStatus()

	inputLine := m.input.View()

	logHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status) - lipgloss.Height(inputLine) - 2
	if logHeight < 1 {
		logHeight = 1
	}
	m.logViewport.Width = m.width - 2
	m.logViewport.Height = logHeight

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.width - 2)

	return lipgloss.JoinVertical(lipgloss.Top,
		header,
		logStyle.Render(m.logViewport.View()),
		status,
		inputLine,
	)
}

func (m *Model) renderStatus() string {
	var b strings.Builder
	b.WriteString(PotStyle.Render(fmt.Sprintf("Pot: %d", m.pot)))
	if m.currentBet > 0 {
		b.WriteString(PotStyle.Render(fmt.Sprintf("  Bet: %d", m.currentBet)))
	}
	if len(m.community) > 0 {
		b.WriteString("  ")
		b.WriteString(m.renderCards(m.community))
	}
	if m.toAct == m.myID && m.toAct >= 0 {
		b.WriteString("  ")
		b.WriteString(TurnStyle.Render("YOUR TURN"))
	}
	b.WriteString("  ")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("%d seated", len(m.players))))
	return b.String()
}

// Package protocol defines the two wire message families and the
// single-line ASCII codec that carries them. Each message is one
// newline-terminated line; the field layouts are fixed and must not
// change shape.
package protocol

import "github.com/tablewire/holdem/internal/deck"

// ActionType is a player action code as carried on the wire.
type ActionType int

const (
	ActionFold ActionType = iota
	ActionCheck
	ActionCall
	ActionRaise
	ActionFailed // server-only: echoed on rejected actions
)

func (a ActionType) String() string {
	switch a {
	case ActionFold:
		return "fold"
	case ActionCheck:
		return "check"
	case ActionCall:
		return "call"
	case ActionRaise:
		return "raise"
	case ActionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GameState is the table-wide state code shared with clients.
type GameState int

const (
	StateWaitingForPlayers GameState = iota
	StatePreFlop
	StateFlop
	StateTurn
	StateRiver
	StateShowdown
)

func (g GameState) String() string {
	switch g {
	case StateWaitingForPlayers:
		return "waiting"
	case StatePreFlop:
		return "preflop"
	case StateFlop:
		return "flop"
	case StateTurn:
		return "turn"
	case StateRiver:
		return "river"
	case StateShowdown:
		return "showdown"
	default:
		return "unknown"
	}
}

// ClientMessage is the closed set of client-to-server messages.
type ClientMessage interface {
	clientMessage()
}

// Noop is the lenient decode result for empty, unknown or truncated
// input. The server ignores it.
type Noop struct{}

// Join requests a seat under the given display name.
type Join struct {
	Name string
}

// Ready marks the seat ready for the next hand.
type Ready struct{}

// Chat relays free text to the table.
type Chat struct {
	Text string
}

// Action is a betting decision for the seat's turn.
type Action struct {
	Action ActionType
	Amount int
}

// RequestState asks for the current game state and pot.
type RequestState struct{}

// Leave abandons the seat.
type Leave struct{}

// AdminPlay manually triggers a hand start.
type AdminPlay struct{}

func (Noop) clientMessage()         {}
func (Join) clientMessage()         {}
func (Ready) clientMessage()        {}
func (Chat) clientMessage()         {}
func (Action) clientMessage()       {}
func (RequestState) clientMessage() {}
func (Leave) clientMessage()        {}
func (AdminPlay) clientMessage()    {}

// ServerMessage is the closed set of server-to-client messages.
type ServerMessage interface {
	serverMessage()
}

// ServerNoop is the lenient decode result on the client side.
type ServerNoop struct{}

// PlayerInfo pairs a seat id with its display name.
type PlayerInfo struct {
	ID   int
	Name string
}

// Welcome acknowledges a join with the new id and the current roster.
type Welcome struct {
	ID      int
	Name    string
	Players []PlayerInfo
}

// PlayerJoined announces a new seat to the table.
type PlayerJoined struct {
	ID   int
	Name string
}

// PlayerLeft announces a departed seat.
type PlayerLeft struct {
	ID int
}

// PlayerReady announces a seat readying up.
type PlayerReady struct {
	ID int
}

// ChatFrom relays chat to the table.
type ChatFrom struct {
	ID   int
	Text string
}

// GameStateMsg reports the table state code and pot.
type GameStateMsg struct {
	State GameState
	Pot   int
}

// ActionResult echoes an accepted action, or ActionFailed on rejection.
type ActionResult struct {
	ID     int
	Action ActionType
	Amount int
}

// CommunityCard reveals one board card.
type CommunityCard struct {
	Card deck.Card
}

// PlayerHand deals one hole card; sent only to the owning connection.
type PlayerHand struct {
	Card deck.Card
}

// PotUpdate reports the pot after a payment.
type PotUpdate struct {
	Pot int
}

// Showdown reports the pot and the winning seat ids.
type Showdown struct {
	Pot     int
	Winners []int
}

// BettingUpdate prompts the next seat to act.
type BettingUpdate struct {
	ToAct      int
	ToCall     int
	CurrentBet int
	MinRaise   int
	Pot        int
}

func (ServerNoop) serverMessage()    {}
func (Welcome) serverMessage()       {}
func (PlayerJoined) serverMessage()  {}
func (PlayerLeft) serverMessage()    {}
func (PlayerReady) serverMessage()   {}
func (ChatFrom) serverMessage()      {}
func (GameStateMsg) serverMessage()  {}
func (ActionResult) serverMessage()  {}
func (CommunityCard) serverMessage() {}
func (PlayerHand) serverMessage()    {}
func (PotUpdate) serverMessage()     {}
func (Showdown) serverMessage()      {}
func (BettingUpdate) serverMessage() {}

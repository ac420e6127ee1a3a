package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tablewire/holdem/internal/deck"
)

// EncodeClient serializes a client message to one wire line, including
// the trailing newline.
func EncodeClient(msg ClientMessage) string {
	var b strings.Builder
	switch m := msg.(type) {
	case Join:
		fmt.Fprintf(&b, "JOIN %s", m.Name)
	case Ready:
		b.WriteString("READY")
	case Chat:
		fmt.Fprintf(&b, "CHAT %s", m.Text)
	case Action:
		fmt.Fprintf(&b, "ACTION %d %d", int(m.Action), m.Amount)
	case RequestState:
		b.WriteString("REQUEST_STATE")
	case Leave:
		b.WriteString("LEAVE")
	case AdminPlay:
		b.WriteString("ADMIN_PLAY")
	case Noop:
		// An empty line round-trips back to a Noop.
	}
	b.WriteByte('\n')
	return b.String()
}

// DecodeClient parses one line (without its newline) into a client
// message. Unknown verbs and truncated payloads decode to Noop; the
// protocol deliberately swallows malformed input instead of erroring.
func DecodeClient(line string) ClientMessage {
	line = strings.TrimSuffix(line, "\r")
	verb, rest := splitVerb(line)

	switch verb {
	case "JOIN":
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return Noop{}
		}
		// Names are one token: roster lines (WELCOME, PLAYER_JOINED)
		// separate fields with spaces, so a spaced name cannot survive
		// the round trip.
		return Join{Name: fields[0]}
	case "READY":
		return Ready{}
	case "CHAT":
		return Chat{Text: rest}
	case "ACTION":
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			return Noop{}
		}
		code, err1 := strconv.Atoi(fields[0])
		amount, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || code < int(ActionFold) || code > int(ActionFailed) {
			return Noop{}
		}
		return Action{Action: ActionType(code), Amount: amount}
	case "REQUEST_STATE":
		return RequestState{}
	case "LEAVE":
		return Leave{}
	case "ADMIN_PLAY":
		return AdminPlay{}
	default:
		return Noop{}
	}
}

// EncodeServer serializes a server message to one wire line, including
// the trailing newline.
func EncodeServer(msg ServerMessage) string {
	var b strings.Builder
	switch m := msg.(type) {
	case Welcome:
		fmt.Fprintf(&b, "WELCOME %d %s %d", m.ID, m.Name, len(m.Players))
		for _, p := range m.Players {
			fmt.Fprintf(&b, " %d %s", p.ID, p.Name)
		}
	case PlayerJoined:
		fmt.Fprintf(&b, "PLAYER_JOINED %d %s", m.ID, m.Name)
	case PlayerLeft:
		fmt.Fprintf(&b, "PLAYER_LEFT %d", m.ID)
	case PlayerReady:
		fmt.Fprintf(&b, "PLAYER_READY %d", m.ID)
	case ChatFrom:
		fmt.Fprintf(&b, "CHAT_FROM %d %s", m.ID, m.Text)
	case GameStateMsg:
		fmt.Fprintf(&b, "GAME_STATE %d %d", int(m.State), m.Pot)
	case ActionResult:
		fmt.Fprintf(&b, "ACTION_RESULT %d %d %d", m.ID, int(m.Action), m.Amount)
	case CommunityCard:
		fmt.Fprintf(&b, "COMMUNITY_CARD %s", m.Card.Wire())
	case PlayerHand:
		fmt.Fprintf(&b, "PLAYER_HAND %s", m.Card.Wire())
	case PotUpdate:
		fmt.Fprintf(&b, "POT_UPDATE %d", m.Pot)
	case Showdown:
		fmt.Fprintf(&b, "SHOWDOWN %d %d", m.Pot, len(m.Winners))
		for _, id := range m.Winners {
			fmt.Fprintf(&b, " %d", id)
		}
	case BettingUpdate:
		fmt.Fprintf(&b, "BETTING_UPDATE %d %d %d %d %d",
			m.ToAct, m.ToCall, m.CurrentBet, m.MinRaise, m.Pot)
	case ServerNoop:
	}
	b.WriteByte('\n')
	return b.String()
}

// DecodeServer parses one line (without its newline) into a server
// message, with the same leniency as DecodeClient.
func DecodeServer(line string) ServerMessage {
	line = strings.TrimSuffix(line, "\r")
	verb, rest := splitVerb(line)
	fields := strings.Fields(rest)

	switch verb {
	case "WELCOME":
		if len(fields) < 3 {
			return ServerNoop{}
		}
		id, err1 := strconv.Atoi(fields[0])
		n, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || n < 0 || len(fields) < 3+2*n {
			return ServerNoop{}
		}
		msg := Welcome{ID: id, Name: fields[1]}
		for i := 0; i < n; i++ {
			pid, err := strconv.Atoi(fields[3+2*i])
			if err != nil {
				return ServerNoop{}
			}
			msg.Players = append(msg.Players, PlayerInfo{ID: pid, Name: fields[4+2*i]})
		}
		return msg
	case "PLAYER_JOINED":
		if len(fields) < 2 {
			return ServerNoop{}
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return ServerNoop{}
		}
		return PlayerJoined{ID: id, Name: strings.Join(fields[1:], " ")}
	case "PLAYER_LEFT":
		id, ok := oneInt(fields)
		if !ok {
			return ServerNoop{}
		}
		return PlayerLeft{ID: id}
	case "PLAYER_READY":
		id, ok := oneInt(fields)
		if !ok {
			return ServerNoop{}
		}
		return PlayerReady{ID: id}
	case "CHAT_FROM":
		if len(fields) < 1 {
			return ServerNoop{}
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return ServerNoop{}
		}
		_, text := splitVerb(rest)
		return ChatFrom{ID: id, Text: text}
	case "GAME_STATE":
		nums, ok := ints(fields, 2)
		if !ok {
			return ServerNoop{}
		}
		return GameStateMsg{State: GameState(nums[0]), Pot: nums[1]}
	case "ACTION_RESULT":
		nums, ok := ints(fields, 3)
		if !ok {
			return ServerNoop{}
		}
		return ActionResult{ID: nums[0], Action: ActionType(nums[1]), Amount: nums[2]}
	case "COMMUNITY_CARD":
		c, ok := parseCard(rest)
		if !ok {
			return ServerNoop{}
		}
		return CommunityCard{Card: c}
	case "PLAYER_HAND":
		c, ok := parseCard(rest)
		if !ok {
			return ServerNoop{}
		}
		return PlayerHand{Card: c}
	case "POT_UPDATE":
		pot, ok := oneInt(fields)
		if !ok {
			return ServerNoop{}
		}
		return PotUpdate{Pot: pot}
	case "SHOWDOWN":
		if len(fields) < 2 {
			return ServerNoop{}
		}
		pot, err1 := strconv.Atoi(fields[0])
		n, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || n < 0 || len(fields) < 2+n {
			return ServerNoop{}
		}
		msg := Showdown{Pot: pot}
		for i := 0; i < n; i++ {
			id, err := strconv.Atoi(fields[2+i])
			if err != nil {
				return ServerNoop{}
			}
			msg.Winners = append(msg.Winners, id)
		}
		return msg
	case "BETTING_UPDATE":
		nums, ok := ints(fields, 5)
		if !ok {
			return ServerNoop{}
		}
		return BettingUpdate{
			ToAct:      nums[0],
			ToCall:     nums[1],
			CurrentBet: nums[2],
			MinRaise:   nums[3],
			Pot:        nums[4],
		}
	default:
		return ServerNoop{}
	}
}

// splitVerb separates the leading verb from the rest of the line.
func splitVerb(line string) (string, string) {
	line = strings.TrimLeft(line, " ")
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i], strings.TrimLeft(line[i+1:], " ")
	}
	return line, ""
}

func oneInt(fields []string) (int, bool) {
	if len(fields) < 1 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	return n, err == nil
}

func ints(fields []string, n int) ([]int, bool) {
	if len(fields) < n {
		return nil, false
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// parseCard parses the "<rank>.<suit>" wire form.
func parseCard(s string) (deck.Card, bool) {
	s = strings.TrimSpace(s)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return deck.Card{}, false
	}
	rank, err1 := strconv.Atoi(s[:dot])
	suit, err2 := strconv.Atoi(s[dot+1:])
	if err1 != nil || err2 != nil {
		return deck.Card{}, false
	}
	c := deck.NewCard(deck.Rank(rank), deck.Suit(suit))
	if !c.Valid() {
		return deck.Card{}, false
	}
	return c, true
}

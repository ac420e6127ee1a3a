package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tablewire/holdem/internal/deck"
)

func TestDecodeClientVerbs(t *testing.T) {
	tests := []struct {
		line string
		want ClientMessage
	}{
		{"JOIN alice", Join{Name: "alice"}},
		{"JOIN alice smith", Join{Name: "alice"}},
		{"JOIN   alice  ", Join{Name: "alice"}},
		{"READY", Ready{}},
		{"CHAT hello table", Chat{Text: "hello table"}},
		{"ACTION 3 40", Action{Action: ActionRaise, Amount: 40}},
		{"ACTION 0 0", Action{Action: ActionFold, Amount: 0}},
		{"REQUEST_STATE", RequestState{}},
		{"LEAVE", Leave{}},
		{"ADMIN_PLAY", AdminPlay{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeClient(tt.line), "line %q", tt.line)
	}
}

func TestDecodeClientLeniency(t *testing.T) {
	// Malformed input decodes to a no-op, never an error.
	for _, line := range []string{
		"",
		"BOGUS",
		"JOIN",
		"ACTION",
		"ACTION 3",
		"ACTION x y",
		"ACTION 9 10",
		"ACTION -1 10",
	} {
		assert.Equal(t, Noop{}, DecodeClient(line), "line %q", line)
	}
}

func TestDecodeClientStripsCarriageReturn(t *testing.T) {
	assert.Equal(t, Ready{}, DecodeClient("READY\r"))
	assert.Equal(t, Join{Name: "bob"}, DecodeClient("JOIN bob\r"))
}

func TestEncodeAppendsSingleNewline(t *testing.T) {
	client := []ClientMessage{
		Join{Name: "bob"}, Ready{}, Chat{Text: "hi"},
		Action{Action: ActionCall}, RequestState{}, Leave{}, AdminPlay{},
	}
	for _, msg := range client {
		line := EncodeClient(msg)
		assert.True(t, strings.HasSuffix(line, "\n"), "%q missing newline", line)
		assert.Equal(t, 1, strings.Count(line, "\n"), "%q has extra newlines", line)
	}

	server := []ServerMessage{
		Welcome{ID: 1, Name: "bob"},
		PlayerJoined{ID: 1, Name: "bob"},
		Showdown{Pot: 50, Winners: []int{1, 2}},
		BettingUpdate{ToAct: 2, ToCall: 10, CurrentBet: 10, MinRaise: 10, Pot: 30},
	}
	for _, msg := range server {
		line := EncodeServer(msg)
		assert.True(t, strings.HasSuffix(line, "\n"), "%q missing newline", line)
		assert.Equal(t, 1, strings.Count(line, "\n"), "%q has extra newlines", line)
	}
}

func TestServerWireFormats(t *testing.T) {
	tests := []struct {
		msg  ServerMessage
		want string
	}{
		{
			Welcome{ID: 2, Name: "carol", Players: []PlayerInfo{{0, "alice"}, {1, "bob"}, {2, "carol"}}},
			"WELCOME 2 carol 3 0 alice 1 bob 2 carol\n",
		},
		{PlayerJoined{ID: 4, Name: "dan"}, "PLAYER_JOINED 4 dan\n"},
		{PlayerLeft{ID: 4}, "PLAYER_LEFT 4\n"},
		{PlayerReady{ID: 0}, "PLAYER_READY 0\n"},
		{ChatFrom{ID: 1, Text: "good luck"}, "CHAT_FROM 1 good luck\n"},
		{GameStateMsg{State: StatePreFlop, Pot: 40}, "GAME_STATE 1 40\n"},
		{ActionResult{ID: 3, Action: ActionFailed, Amount: 0}, "ACTION_RESULT 3 4 0\n"},
		{CommunityCard{Card: deck.NewCard(deck.Ace, deck.Spades)}, "COMMUNITY_CARD 14.0\n"},
		{PlayerHand{Card: deck.NewCard(deck.Two, deck.Clubs)}, "PLAYER_HAND 2.3\n"},
		{PotUpdate{Pot: 120}, "POT_UPDATE 120\n"},
		{Showdown{Pot: 120, Winners: []int{0, 2}}, "SHOWDOWN 120 2 0 2\n"},
		{BettingUpdate{ToAct: 1, ToCall: 20, CurrentBet: 30, MinRaise: 10, Pot: 75}, "BETTING_UPDATE 1 20 30 10 75\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeServer(tt.msg))
	}
}

func TestDecodeServerRoundTrip(t *testing.T) {
	msgs := []ServerMessage{
		Welcome{ID: 0, Name: "alice", Players: []PlayerInfo{{0, "alice"}}},
		PlayerJoined{ID: 1, Name: "bob"},
		PlayerLeft{ID: 1},
		PlayerReady{ID: 0},
		ChatFrom{ID: 0, Text: "nice hand"},
		GameStateMsg{State: StateShowdown, Pot: 200},
		ActionResult{ID: 0, Action: ActionRaise, Amount: 60},
		CommunityCard{Card: deck.NewCard(deck.King, deck.Hearts)},
		PlayerHand{Card: deck.NewCard(deck.Seven, deck.Diamonds)},
		PotUpdate{Pot: 10},
		Showdown{Pot: 200, Winners: []int{3}},
		BettingUpdate{ToAct: 0, ToCall: 0, CurrentBet: 0, MinRaise: 20, Pot: 0},
	}
	for _, msg := range msgs {
		line := strings.TrimSuffix(EncodeServer(msg), "\n")
		assert.Equal(t, msg, DecodeServer(line), "line %q", line)
	}
}

func TestDecodeServerLeniency(t *testing.T) {
	for _, line := range []string{
		"",
		"NOT_A_VERB 1 2 3",
		"WELCOME",
		"WELCOME 1 bob 2 0 alice", // roster shorter than count
		"SHOWDOWN 100",
		"SHOWDOWN 100 2 1", // winner list shorter than count
		"BETTING_UPDATE 1 2 3",
		"COMMUNITY_CARD 15.0", // rank out of range
		"COMMUNITY_CARD 14.4", // suit out of range
		"COMMUNITY_CARD junk",
	} {
		assert.Equal(t, ServerNoop{}, DecodeServer(line), "line %q", line)
	}
}

func TestJoinedNameSurvivesRosterRoundTrip(t *testing.T) {
	// JOIN keeps only the first token, so any name a client can acquire
	// decodes cleanly out of the space-separated roster lines.
	join, ok := DecodeClient("JOIN alice smith").(Join)
	assert.True(t, ok)

	welcome := Welcome{ID: 0, Name: join.Name, Players: []PlayerInfo{{ID: 0, Name: join.Name}}}
	line := strings.TrimSuffix(EncodeServer(welcome), "\n")
	assert.Equal(t, welcome, DecodeServer(line))

	joined := PlayerJoined{ID: 0, Name: join.Name}
	line = strings.TrimSuffix(EncodeServer(joined), "\n")
	assert.Equal(t, joined, DecodeServer(line))
}

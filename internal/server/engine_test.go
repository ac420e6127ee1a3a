package server

import (
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewire/holdem/internal/deck"
	"github.com/tablewire/holdem/internal/protocol"
)

// captureNotifier records everything the engine emits so tests can
// assert on the message stream.
type captureNotifier struct {
	broadcasts []protocol.ServerMessage
	perSeat    map[int][]protocol.ServerMessage
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{perSeat: make(map[int][]protocol.ServerMessage)}
}

func (n *captureNotifier) Broadcast(msg protocol.ServerMessage) {
	n.broadcasts = append(n.broadcasts, msg)
}

func (n *captureNotifier) SendToSeat(seatID int, msg protocol.ServerMessage) {
	n.perSeat[seatID] = append(n.perSeat[seatID], msg)
}

func (n *captureNotifier) lastShowdown() (protocol.Showdown, bool) {
	for i := len(n.broadcasts) - 1; i >= 0; i-- {
		if sd, ok := n.broadcasts[i].(protocol.Showdown); ok {
			return sd, true
		}
	}
	return protocol.Showdown{}, false
}

func (n *captureNotifier) communityCount() int {
	count := 0
	for _, msg := range n.broadcasts {
		if _, ok := msg.(protocol.CommunityCard); ok {
			count++
		}
	}
	return count
}

func (n *captureNotifier) lastActionResult() (protocol.ActionResult, bool) {
	for i := len(n.broadcasts) - 1; i >= 0; i-- {
		if ar, ok := n.broadcasts[i].(protocol.ActionResult); ok {
			return ar, true
		}
	}
	return protocol.ActionResult{}, false
}

func newTestEngine(players, stack int) (*Engine, *Table, *captureNotifier) {
	table := NewTable()
	notifier := newCaptureNotifier()
	rng := rand.New(rand.NewSource(1))
	engine := NewEngine(table, deck.New(rng), notifier, 20, log.New(io.Discard))
	for i := 0; i < players; i++ {
		seat := table.AddSeat(fmt.Sprintf("p%d", i), stack)
		seat.Ready = true
	}
	return engine, table, notifier
}

func TestStartHandPreconditions(t *testing.T) {
	engine, table, _ := newTestEngine(1, 1000)
	assert.ErrorIs(t, engine.StartHand(), ErrNotEnoughPlayers)

	seat := table.AddSeat("p1", 1000)
	assert.ErrorIs(t, engine.StartHand(), ErrNotAllReady)

	seat.Ready = true
	require.NoError(t, engine.StartHand())
	assert.ErrorIs(t, engine.StartHand(), ErrHandInProgress)
}

func TestStartHandDealsAndOpensPreflop(t *testing.T) {
	engine, table, notifier := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	assert.Equal(t, protocol.StatePreFlop, table.State)
	for _, seat := range table.Seats() {
		assert.Len(t, seat.HoleCards, 2, "seat %d hole cards", seat.ID)
		assert.Len(t, notifier.perSeat[seat.ID], 2, "seat %d PLAYER_HAND messages", seat.ID)
	}

	// First seat in rotation acts first and both seats owe an action.
	assert.Equal(t, 0, table.ToAct)
	assert.Contains(t, table.NeedsAction, 0)
	assert.Contains(t, table.NeedsAction, 1)
}

func TestRaiseRejectedWithNoBetToRaise(t *testing.T) {
	engine, table, notifier := newTestEngine(3, 1000)
	require.NoError(t, engine.StartHand())
	require.Equal(t, 0, table.CurrentBet)

	engine.HandleAction(0, protocol.ActionRaise, 100)

	result, ok := notifier.lastActionResult()
	require.True(t, ok)
	assert.Equal(t, protocol.ActionFailed, result.Action)
	assert.Equal(t, 0, result.Amount)

	// The rejected seat keeps its stack and its turn obligation.
	seat := table.SeatByID(0)
	assert.Equal(t, 1000, seat.Money)
	assert.True(t, seat.InHand)
	assert.Equal(t, 0, table.Pot)
}

func TestRaiseReopensActionForOthers(t *testing.T) {
	engine, table, _ := newTestEngine(3, 1000)
	require.NoError(t, engine.StartHand())

	table.CurrentBet = 20
	engine.HandleAction(0, protocol.ActionRaise, 60)

	assert.Equal(t, 60, table.CurrentBet)
	assert.Equal(t, 40, table.MinRaise)
	assert.Equal(t, 60, table.Pot)
	assert.NotContains(t, table.NeedsAction, 0)
	assert.Contains(t, table.NeedsAction, 1)
	assert.Contains(t, table.NeedsAction, 2)
	assert.Equal(t, 1, table.ToAct)
}

func TestUndersizedRaiseOnlyAsAllIn(t *testing.T) {
	engine, table, notifier := newTestEngine(3, 1000)
	require.NoError(t, engine.StartHand())

	table.CurrentBet = 100
	table.MinRaise = 100

	// Undersized with chips behind: rejected.
	engine.HandleAction(0, protocol.ActionRaise, 150)
	result, ok := notifier.lastActionResult()
	require.True(t, ok)
	assert.Equal(t, protocol.ActionFailed, result.Action)
	assert.Equal(t, 1000, table.SeatByID(0).Money)

	// Shove short of the minimum target: allowed as an all-in.
	short := table.SeatByID(table.ToAct)
	short.Money = 150
	engine.HandleAction(short.ID, protocol.ActionRaise, 150)
	result, ok = notifier.lastActionResult()
	require.True(t, ok)
	assert.Equal(t, protocol.ActionRaise, result.Action)
	assert.Equal(t, 150, result.Amount)
	assert.True(t, short.AllIn)
	assert.Equal(t, 0, short.Money)
	assert.Equal(t, 150, table.CurrentBet)
}

func TestCallClampsToStack(t *testing.T) {
	engine, table, _ := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	table.CurrentBet = 5000
	seat := table.SeatByID(0)
	engine.HandleAction(0, protocol.ActionCall, 0)

	assert.Equal(t, 0, seat.Money)
	assert.True(t, seat.AllIn)
	assert.Equal(t, 1000, table.Pot)
	// A short call never moves the bet.
	assert.Equal(t, 5000, table.CurrentBet)
}

func TestFoldToOneAwardsPot(t *testing.T) {
	engine, table, notifier := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	table.Pot = 300
	engine.HandleAction(0, protocol.ActionFold, 0)

	sd, ok := notifier.lastShowdown()
	require.True(t, ok)
	assert.Equal(t, 300, sd.Pot)
	assert.Equal(t, []int{1}, sd.Winners)
	assert.Equal(t, 1300, table.SeatByID(1).Money)

	// The table is back to waiting and players must ready up again.
	assert.Equal(t, protocol.StateWaitingForPlayers, table.State)
	assert.False(t, table.HandActive())
	for _, seat := range table.Seats() {
		assert.False(t, seat.Ready)
	}
}

func TestAllInRunsOutBoard(t *testing.T) {
	engine, table, notifier := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	table.CurrentBet = 1000
	engine.HandleAction(0, protocol.ActionCall, 0)
	engine.HandleAction(1, protocol.ActionCall, 0)

	assert.Equal(t, 5, notifier.communityCount())
	sd, ok := notifier.lastShowdown()
	require.True(t, ok)
	assert.Equal(t, 2000, sd.Pot)
	require.NotEmpty(t, sd.Winners)

	// All chips end up with the winner set.
	total := 0
	for _, seat := range table.Seats() {
		total += seat.Money
	}
	assert.Equal(t, 2000, total)
	assert.False(t, table.HandActive())
}

func TestCheckRejectedFacingBet(t *testing.T) {
	engine, table, notifier := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	table.CurrentBet = 50
	engine.HandleAction(0, protocol.ActionCheck, 0)

	result, ok := notifier.lastActionResult()
	require.True(t, ok)
	assert.Equal(t, protocol.ActionFailed, result.Action)
	assert.Contains(t, table.NeedsAction, 0)
}

func TestCheckThroughDealsNextStreet(t *testing.T) {
	engine, table, notifier := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	engine.HandleAction(0, protocol.ActionCheck, 0)
	engine.HandleAction(1, protocol.ActionCheck, 0)

	assert.Equal(t, protocol.StateFlop, table.State)
	assert.Equal(t, 3, notifier.communityCount())
	// A fresh round starts with the first rotation seat.
	assert.Equal(t, 0, table.ToAct)
	assert.Equal(t, 0, table.CurrentBet)
}

func TestCheckdownReachesShowdown(t *testing.T) {
	engine, table, notifier := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	for street := 0; street < 4; street++ {
		engine.HandleAction(0, protocol.ActionCheck, 0)
		engine.HandleAction(1, protocol.ActionCheck, 0)
	}

	assert.Equal(t, 5, notifier.communityCount())
	_, ok := notifier.lastShowdown()
	assert.True(t, ok)
	assert.False(t, table.HandActive())
}

func TestOutOfTurnActionRejected(t *testing.T) {
	engine, table, notifier := newTestEngine(3, 1000)
	require.NoError(t, engine.StartHand())
	require.Equal(t, 0, table.ToAct)

	engine.HandleAction(2, protocol.ActionCheck, 0)

	result, ok := notifier.lastActionResult()
	require.True(t, ok)
	assert.Equal(t, 2, result.ID)
	assert.Equal(t, protocol.ActionFailed, result.Action)
	assert.Equal(t, 0, table.ToAct)
	assert.Contains(t, table.NeedsAction, 2)
}

func TestForceFoldRemovesSeatFromHand(t *testing.T) {
	engine, table, notifier := newTestEngine(3, 1000)
	require.NoError(t, engine.StartHand())

	engine.ForceFold(0)

	result, ok := notifier.lastActionResult()
	require.True(t, ok)
	assert.Equal(t, protocol.ActionFold, result.Action)
	assert.Equal(t, 0, result.ID)
	assert.False(t, table.SeatByID(0).InHand)
	assert.Equal(t, 1, table.ToAct)

	// Folding out of an inactive hand is a no-op.
	engine.ForceFold(1)
	engine.ForceFold(2)
	before := len(notifier.broadcasts)
	engine.ForceFold(2)
	assert.Equal(t, before, len(notifier.broadcasts))
}

func TestTurnSeqAdvancesPerTurn(t *testing.T) {
	engine, _, _ := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	seq := engine.TurnSeq()
	engine.HandleAction(0, protocol.ActionCheck, 0)
	assert.Greater(t, engine.TurnSeq(), seq)
}

func TestShowdownSplitsOddPotRemainderToFirstWinner(t *testing.T) {
	engine, table, notifier := newTestEngine(2, 1000)
	require.NoError(t, engine.StartHand())

	// Board plays for everyone: broadway straight, no flush possible.
	table.hand.community = []deck.Card{
		deck.NewCard(deck.Ace, deck.Spades),
		deck.NewCard(deck.King, deck.Hearts),
		deck.NewCard(deck.Queen, deck.Diamonds),
		deck.NewCard(deck.Jack, deck.Clubs),
		deck.NewCard(deck.Ten, deck.Spades),
	}
	table.hand.street = 3
	table.SeatByID(0).HoleCards = []deck.Card{
		deck.NewCard(deck.Two, deck.Hearts), deck.NewCard(deck.Three, deck.Diamonds)}
	table.SeatByID(1).HoleCards = []deck.Card{
		deck.NewCard(deck.Four, deck.Clubs), deck.NewCard(deck.Five, deck.Hearts)}
	table.Pot = 101

	engine.HandleAction(0, protocol.ActionCheck, 0)
	engine.HandleAction(1, protocol.ActionCheck, 0)

	sd, ok := notifier.lastShowdown()
	require.True(t, ok)
	assert.Equal(t, 101, sd.Pot)
	assert.Equal(t, []int{0, 1}, sd.Winners)

	// Even shares, with the odd chip going to the winner earliest in
	// rotation order.
	assert.Equal(t, 1051, table.SeatByID(0).Money)
	assert.Equal(t, 1050, table.SeatByID(1).Money)
	assert.Equal(t, 0, table.Pot)
}

// recordTimer counts timer operations without scheduling anything.
type recordTimer struct {
	schedules int
	cancels   int
}

func (t *recordTimer) Schedule(int, int) { t.schedules++ }
func (t *recordTimer) Cancel()           { t.cancels++ }

func TestRejectedActionDoesNotAdvanceRound(t *testing.T) {
	engine, table, notifier := newTestEngine(3, 1000)
	timer := &recordTimer{}
	engine.SetTurnTimer(timer)
	require.NoError(t, engine.StartHand())

	seq := engine.TurnSeq()
	schedules := timer.schedules
	updates := 0
	for _, msg := range notifier.broadcasts {
		if _, ok := msg.(protocol.BettingUpdate); ok {
			updates++
		}
	}

	// Spamming invalid actions must not reset the auto-fold deadline
	// or prompt the table again.
	engine.HandleAction(2, protocol.ActionCheck, 0)   // out of turn
	engine.HandleAction(-1, protocol.ActionRaise, 50) // not seated
	engine.HandleAction(0, protocol.ActionRaise, 100) // no bet to raise

	assert.Equal(t, seq, engine.TurnSeq())
	assert.Equal(t, schedules, timer.schedules)
	assert.Equal(t, 0, table.ToAct)
	after := 0
	for _, msg := range notifier.broadcasts {
		if _, ok := msg.(protocol.BettingUpdate); ok {
			after++
		}
	}
	assert.Equal(t, updates, after)

	// The seat can still act normally afterwards.
	engine.HandleAction(0, protocol.ActionCheck, 0)
	assert.Equal(t, 1, table.ToAct)
}

// showdownStateNotifier snapshots the table state at the moment each
// SHOWDOWN broadcast goes out.
type showdownStateNotifier struct {
	*captureNotifier
	table  *Table
	states []protocol.GameState
}

func (n *showdownStateNotifier) Broadcast(msg protocol.ServerMessage) {
	if _, ok := msg.(protocol.Showdown); ok {
		n.states = append(n.states, n.table.State)
	}
	n.captureNotifier.Broadcast(msg)
}

func TestFoldOutEntersShowdownState(t *testing.T) {
	table := NewTable()
	notifier := &showdownStateNotifier{captureNotifier: newCaptureNotifier(), table: table}
	engine := NewEngine(table, deck.New(rand.New(rand.NewSource(1))), notifier, 20, log.New(io.Discard))
	for i := 0; i < 2; i++ {
		seat := table.AddSeat(fmt.Sprintf("p%d", i), 1000)
		seat.Ready = true
	}
	require.NoError(t, engine.StartHand())

	engine.HandleAction(0, protocol.ActionFold, 0)

	require.Len(t, notifier.states, 1)
	assert.Equal(t, protocol.StateShowdown, notifier.states[0])
	assert.Equal(t, protocol.StateWaitingForPlayers, table.State)
}

package server

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tablewire/holdem/internal/deck"
	"github.com/tablewire/holdem/internal/evaluator"
	"github.com/tablewire/holdem/internal/protocol"
)

// Notifier delivers server messages to connected clients. The engine
// never talks to sockets directly; the orchestrator (or a test double)
// implements this.
type Notifier interface {
	Broadcast(msg protocol.ServerMessage)
	SendToSeat(seatID int, msg protocol.ServerMessage)
}

// TurnTimer schedules the auto-fold timeout for the seat to act. seq is
// a generation counter: a timer firing for a stale generation must be
// discarded by the caller.
type TurnTimer interface {
	Schedule(seatID, seq int)
	Cancel()
}

// noTimer disables turn timeouts.
type noTimer struct{}

func (noTimer) Schedule(int, int) {}
func (noTimer) Cancel()           {}

var (
	ErrHandInProgress   = errors.New("hand already in progress")
	ErrNotEnoughPlayers = errors.New("need at least two players")
	ErrNotAllReady      = errors.New("not all players are ready")
)

// Engine drives the betting state machine over a Table. All methods must
// be called from the orchestrator's run loop; the engine itself holds no
// locks.
type Engine struct {
	table    *Table
	deck     *deck.Deck
	notifier Notifier
	timer    TurnTimer
	logger   *log.Logger
	minRaise int // base minimum raise for each betting round

	turnSeq int // bumped whenever the seat to act changes
}

// NewEngine creates an engine over the given table. minRaiseBase is the
// configured base minimum raise (conventionally the big blind).
func NewEngine(table *Table, d *deck.Deck, notifier Notifier, minRaiseBase int, logger *log.Logger) *Engine {
	return &Engine{
		table:    table,
		deck:     d,
		notifier: notifier,
		timer:    noTimer{},
		logger:   logger.WithPrefix("engine"),
		minRaise: minRaiseBase,
	}
}

// SetTurnTimer installs the per-turn timeout scheduler.
func (e *Engine) SetTurnTimer(t TurnTimer) {
	e.timer = t
}

// TurnSeq returns the current turn generation, used to discard stale
// timer fires.
func (e *Engine) TurnSeq() int {
	return e.turnSeq
}

// StartHand begins a new hand: captures the rotation, deals two hole
// cards per seat round-robin and opens the preflop betting round.
func (e *Engine) StartHand() error {
	t := e.table
	if t.HandActive() {
		return ErrHandInProgress
	}
	if len(t.seats) < 2 {
		return ErrNotEnoughPlayers
	}
	if !t.AllReady() {
		return ErrNotAllReady
	}

	t.Pot = 0
	t.CurrentBet = 0
	t.MinRaise = e.minRaise
	t.NeedsAction = make(map[int]struct{})
	t.ToAct = -1

	hand := &handState{
		id:     uuid.NewString(),
		active: true,
	}
	for _, s := range t.seats {
		hand.rotation = append(hand.rotation, s.ID)
		s.InHand = true
		s.AllIn = false
		s.BetThisRound = 0
		s.HoleCards = s.HoleCards[:0]
	}
	t.hand = hand

	e.deck.Reset()
	// One card per seat per pass, two passes.
	for round := 0; round < 2; round++ {
		for _, s := range t.seats {
			card := e.deck.Draw()
			s.HoleCards = append(s.HoleCards, card)
			e.notifier.SendToSeat(s.ID, protocol.PlayerHand{Card: card})
		}
	}

	t.State = protocol.StatePreFlop
	e.logger.Info("hand started", "hand", hand.id, "players", len(t.seats))

	e.startBettingRound(hand.rotation[0])
	return nil
}

// startBettingRound opens a betting round with the given seat first to
// act: per-round bets reset, the minimum raise returns to its base, and
// every in-hand seat that still has chips owes an action.
func (e *Engine) startBettingRound(firstToAct int) {
	t := e.table
	t.CurrentBet = 0
	t.MinRaise = e.minRaise
	t.NeedsAction = make(map[int]struct{})
	for _, s := range t.InHandSeats() {
		s.BetThisRound = 0
		if !s.AllIn {
			t.NeedsAction[s.ID] = struct{}{}
		}
	}
	t.ToAct = firstToAct
	e.advanceBetting()
}

// HandleAction validates and applies one betting action. Both accepted
// and rejected actions are answered with a broadcast ACTION_RESULT, but
// only accepted actions advance the round.
func (e *Engine) HandleAction(seatID int, action protocol.ActionType, amount int) {
	t := e.table
	seat := t.SeatByID(seatID)

	ok := t.HandActive() && seat != nil && seatID == t.ToAct && seat.InHand && !seat.AllIn
	if ok {
		switch action {
		case protocol.ActionFold:
			seat.InHand = false
			delete(t.NeedsAction, seatID)
			amount = 0

		case protocol.ActionCheck:
			if t.CurrentBet-seat.BetThisRound != 0 {
				ok = false
				break
			}
			delete(t.NeedsAction, seatID)
			amount = 0

		case protocol.ActionCall:
			toCall := t.CurrentBet - seat.BetThisRound
			amount = e.pay(seat, toCall)
			delete(t.NeedsAction, seatID)

		case protocol.ActionRaise:
			ok = e.applyRaise(seat, &amount)

		default:
			ok = false
		}
	}

	if !ok {
		// A rejected action mutates nothing, so the round does not
		// advance: the turn timer keeps running and no fresh
		// BETTING_UPDATE is sent. Invalid input cannot stall the
		// auto-fold deadline.
		e.logger.Debug("action rejected", "seat", seatID, "action", action, "amount", amount)
		e.notifier.Broadcast(protocol.ActionResult{ID: seatID, Action: protocol.ActionFailed, Amount: 0})
		return
	}

	e.logger.Info("action", "seat", seatID, "action", action, "amount", amount)
	e.notifier.Broadcast(protocol.ActionResult{ID: seatID, Action: action, Amount: amount})
	e.advanceBetting()
}

// applyRaise validates a raise to the target total *amount and applies
// it. An opening bet from zero is not a raise in this protocol and is
// rejected outright. amount is rewritten to the clamped raise target.
func (e *Engine) applyRaise(seat *Seat, amount *int) bool {
	t := e.table
	if t.CurrentBet == 0 {
		return false
	}

	raiseTo := *amount
	maxTotal := seat.BetThisRound + seat.Money
	minTarget := t.CurrentBet + t.MinRaise
	if raiseTo < minTarget && raiseTo < maxTotal {
		// Undersized raise that is not an all-in declaration.
		return false
	}
	if raiseTo > maxTotal {
		raiseTo = maxTotal
	}
	increment := raiseTo - seat.BetThisRound
	if increment <= 0 {
		return false
	}

	oldBet := t.CurrentBet
	e.pay(seat, increment)
	if raiseTo > oldBet {
		t.CurrentBet = raiseTo
		t.MinRaise = raiseTo - oldBet
	}

	// Everyone else still in the hand must respond to the new bet.
	t.NeedsAction = make(map[int]struct{})
	for _, s := range t.InHandSeats() {
		if s.ID != seat.ID && !s.AllIn {
			t.NeedsAction[s.ID] = struct{}{}
		}
	}

	*amount = raiseTo
	return true
}

// pay moves up to amount chips from the seat's stack into the pot,
// clamping to what the seat has. Emptying the stack marks the seat
// all-in. Returns the amount actually paid.
func (e *Engine) pay(seat *Seat, amount int) int {
	if amount > seat.Money {
		amount = seat.Money
	}
	if amount < 0 {
		amount = 0
	}
	seat.Money -= amount
	seat.BetThisRound += amount
	e.table.Pot += amount
	if seat.Money == 0 {
		seat.AllIn = true
	}
	if amount > 0 {
		e.notifier.Broadcast(protocol.PotUpdate{Pot: e.table.Pot})
	}
	return amount
}

// advanceBetting drives the hand forward after any state change: it
// settles fold-outs, runs out the board when betting is impossible,
// deals the next street when the round is matched, and otherwise prompts
// the next seat to act.
func (e *Engine) advanceBetting() {
	t := e.table
	if !t.HandActive() {
		return
	}

	// Drop seats that can no longer act.
	for id := range t.NeedsAction {
		s := t.SeatByID(id)
		if s == nil || !s.InHand || s.AllIn {
			delete(t.NeedsAction, id)
		}
	}

	inHand := t.InHandSeats()
	if len(inHand) <= 1 {
		var winners []int
		if len(inHand) == 1 {
			winners = []int{inHand[0].ID}
			inHand[0].Money += t.Pot
		}
		t.State = protocol.StateShowdown
		e.logger.Info("hand ended by fold-out", "winners", winners, "pot", t.Pot)
		e.notifier.Broadcast(protocol.Showdown{Pot: t.Pot, Winners: winners})
		e.endHand()
		return
	}

	if len(t.actableSeats()) == 0 {
		// Everyone left is all-in: run out the board and show down.
		for t.hand.street < 3 {
			e.dealStreet()
		}
		e.showdown()
		return
	}

	if len(t.NeedsAction) == 0 {
		if t.hand.street == 3 {
			e.showdown()
			return
		}
		e.dealStreet()
		e.startBettingRound(t.hand.rotation[0])
		return
	}

	// Next to act: first seat in rotation order still owing an action.
	for _, id := range t.hand.rotation {
		if _, owes := t.NeedsAction[id]; owes {
			t.ToAct = id
			break
		}
	}
	seat := t.SeatByID(t.ToAct)
	e.turnSeq++
	e.timer.Schedule(t.ToAct, e.turnSeq)
	e.notifier.Broadcast(protocol.BettingUpdate{
		ToAct:      t.ToAct,
		ToCall:     t.CurrentBet - seat.BetThisRound,
		CurrentBet: t.CurrentBet,
		MinRaise:   t.MinRaise,
		Pot:        t.Pot,
	})
}

// dealStreet advances one street and broadcasts the new board cards.
func (e *Engine) dealStreet() {
	t := e.table
	count := 1
	if t.hand.street == 0 {
		count = 3
	}
	for i := 0; i < count; i++ {
		card := e.deck.Draw()
		t.hand.community = append(t.hand.community, card)
		e.notifier.Broadcast(protocol.CommunityCard{Card: card})
	}
	t.hand.street++
	switch t.hand.street {
	case 1:
		t.State = protocol.StateFlop
	case 2:
		t.State = protocol.StateTurn
	case 3:
		t.State = protocol.StateRiver
	}
}

// showdown evaluates the remaining hands, pays the winner set and ends
// the hand. The pot splits evenly on ties, remainder to the earliest
// winner in rotation order. Side pots are not modelled: the whole pot
// goes to the winner set even when all-in contributions differ.
func (e *Engine) showdown() {
	t := e.table
	contenders := t.InHandSeats()

	holes := make([][]deck.Card, len(contenders))
	for i, s := range contenders {
		holes[i] = s.HoleCards
	}
	winnerIdx := evaluator.DetermineWinners(holes, t.hand.community)

	winners := make([]int, len(winnerIdx))
	for i, idx := range winnerIdx {
		winners[i] = contenders[idx].ID
	}

	share := t.Pot / len(winners)
	remainder := t.Pot % len(winners)
	for i, idx := range winnerIdx {
		payout := share
		if i == 0 {
			payout += remainder
		}
		contenders[idx].Money += payout
	}

	t.State = protocol.StateShowdown
	e.logger.Info("showdown", "hand", t.hand.id, "winners", winners, "pot", t.Pot)
	e.notifier.Broadcast(protocol.Showdown{Pot: t.Pot, Winners: winners})
	e.endHand()
}

// endHand discards the hand state and returns the table to the waiting
// state. Ready flags reset; players must ready up again.
func (e *Engine) endHand() {
	t := e.table
	if t.hand != nil {
		t.hand.active = false
	}
	t.hand = nil
	t.Pot = 0
	t.CurrentBet = 0
	t.MinRaise = e.minRaise
	t.NeedsAction = make(map[int]struct{})
	t.ToAct = -1
	t.State = protocol.StateWaitingForPlayers
	for _, s := range t.seats {
		s.Ready = false
		s.InHand = false
		s.AllIn = false
		s.BetThisRound = 0
	}
	e.turnSeq++
	e.timer.Cancel()
}

// ForceFold folds a seat out of turn. Used for turn timeouts and for
// disconnects; never called for a seat's own FOLD action.
func (e *Engine) ForceFold(seatID int) {
	t := e.table
	seat := t.SeatByID(seatID)
	if !t.HandActive() || seat == nil || !seat.InHand {
		return
	}
	e.logger.Info("force fold", "seat", seatID)
	seat.InHand = false
	delete(t.NeedsAction, seatID)
	e.notifier.Broadcast(protocol.ActionResult{ID: seatID, Action: protocol.ActionFold, Amount: 0})
	e.advanceBetting()
}

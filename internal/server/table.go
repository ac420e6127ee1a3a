package server

import (
	"github.com/tablewire/holdem/internal/deck"
	"github.com/tablewire/holdem/internal/protocol"
)

// Seat is a joined player. Seats persist across hands; the stack carries
// over until the player leaves or disconnects.
type Seat struct {
	ID           int
	Name         string
	Money        int
	Ready        bool
	InHand       bool
	AllIn        bool
	BetThisRound int
	HoleCards    []deck.Card
}

// handState is the per-hand ephemeral state, created at hand start and
// discarded when the hand resolves.
type handState struct {
	id        string
	rotation  []int // seat ids in fixed order, captured at hand start
	community []deck.Card
	street    int // 0=preflop 1=flop 2=turn 3=river
	active    bool
}

// Table holds the authoritative table state. Ids are monotonic and never
// reused for the lifetime of the process.
type Table struct {
	seats  []*Seat
	nextID int

	Pot         int
	CurrentBet  int
	MinRaise    int
	NeedsAction map[int]struct{}
	ToAct       int
	State       protocol.GameState

	hand *handState
}

// NewTable creates an empty table in the waiting state.
func NewTable() *Table {
	return &Table{
		NeedsAction: make(map[int]struct{}),
		ToAct:       -1,
		State:       protocol.StateWaitingForPlayers,
	}
}

// AddSeat joins a player with the given name and starting stack.
func (t *Table) AddSeat(name string, stack int) *Seat {
	seat := &Seat{
		ID:    t.nextID,
		Name:  name,
		Money: stack,
	}
	t.nextID++
	t.seats = append(t.seats, seat)
	return seat
}

// RemoveSeat drops a seat from the table. The id stays burned.
func (t *Table) RemoveSeat(id int) {
	for i, s := range t.seats {
		if s.ID == id {
			t.seats = append(t.seats[:i], t.seats[i+1:]...)
			break
		}
	}
	delete(t.NeedsAction, id)
}

// SeatByID returns the seat with the given id, or nil.
func (t *Table) SeatByID(id int) *Seat {
	for _, s := range t.seats {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Seats returns all seats in join order.
func (t *Table) Seats() []*Seat {
	return t.seats
}

// Roster returns seat ids and names for the WELCOME message.
func (t *Table) Roster() []protocol.PlayerInfo {
	roster := make([]protocol.PlayerInfo, 0, len(t.seats))
	for _, s := range t.seats {
		roster = append(roster, protocol.PlayerInfo{ID: s.ID, Name: s.Name})
	}
	return roster
}

// AllReady reports whether every seat has readied up.
func (t *Table) AllReady() bool {
	for _, s := range t.seats {
		if !s.Ready {
			return false
		}
	}
	return true
}

// InHandSeats returns the seats still in the current hand, in rotation
// order. Seats removed mid-hand are skipped.
func (t *Table) InHandSeats() []*Seat {
	if t.hand == nil {
		return nil
	}
	var in []*Seat
	for _, id := range t.hand.rotation {
		if s := t.SeatByID(id); s != nil && s.InHand {
			in = append(in, s)
		}
	}
	return in
}

// actableSeats returns in-hand seats that are not all-in.
func (t *Table) actableSeats() []*Seat {
	var out []*Seat
	for _, s := range t.InHandSeats() {
		if !s.AllIn {
			out = append(out, s)
		}
	}
	return out
}

// HandActive reports whether a hand is currently being played.
func (t *Table) HandActive() bool {
	return t.hand != nil && t.hand.active
}

// Community returns the board cards dealt so far.
func (t *Table) Community() []deck.Card {
	if t.hand == nil {
		return nil
	}
	return t.hand.community
}

package deck

import "math/rand"

// Deck holds a shuffled permutation of the 52 distinct cards.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a freshly shuffled 52-card deck using the given RNG.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	d.refill()
	return d
}

func (d *Deck) refill() {
	d.cards = d.cards[:0]
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	d.shuffle()
}

func (d *Deck) shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card. If the deck is exhausted it is
// regenerated and reshuffled first; a single hand draws at most 52 cards
// so this is only a safety net.
func (d *Deck) Draw() Card {
	if len(d.cards) == 0 {
		d.refill()
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card
}

// Remaining returns the number of cards left before the next reshuffle.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Reset restores the deck to a full shuffled 52 cards.
func (d *Deck) Reset() {
	d.refill()
}

// Package evaluator scores texas hold'em hands. Scoring is pure: a Score
// is an ordered tuple compared lexicographically, so any two 5-card hands
// order correctly across and within categories.
package evaluator

import (
	"sort"

	"github.com/tablewire/holdem/internal/deck"
)

// Hand categories, strongest last.
const (
	HighCard      = 1
	OnePair       = 2
	TwoPair       = 3
	ThreeOfAKind  = 4
	Straight      = 5
	Flush         = 6
	FullHouse     = 7
	FourOfAKind   = 8
	StraightFlush = 9
	RoyalFlush    = 10
)

// CategoryName returns a display name for a hand category.
func CategoryName(cat int) string {
	switch cat {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush:
		return "Straight Flush"
	case FourOfAKind:
		return "Four of a Kind"
	case FullHouse:
		return "Full House"
	case Flush:
		return "Flush"
	case Straight:
		return "Straight"
	case ThreeOfAKind:
		return "Three of a Kind"
	case TwoPair:
		return "Two Pair"
	case OnePair:
		return "One Pair"
	default:
		return "High Card"
	}
}

// Score is a hand strength tuple: category first, then up to five
// tiebreak ranks high to low. Unused positions stay zero. Lexicographic
// comparison gives a total order over all 5-card hands modulo true ties.
type Score [6]int

// Category returns the hand category of the score.
func (s Score) Category() int {
	return s[0]
}

// Compare returns -1, 0 or 1 as s orders below, equal to or above other.
func (s Score) Compare(other Score) int {
	for i := range s {
		if s[i] < other[i] {
			return -1
		}
		if s[i] > other[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether s is a strictly weaker hand than other.
func (s Score) Less(other Score) bool {
	return s.Compare(other) < 0
}

// Score5 scores exactly five cards.
func Score5(cards []deck.Card) Score {
	ranks := make([]int, len(cards))
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straight, straightHigh := straightHigh(ranks)

	// Group ranks by count, ordered count-descending then rank-descending.
	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	type group struct{ rank, count int }
	groups := make([]group, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, group{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	var s Score
	switch {
	case flush && straight && straightHigh == int(deck.Ace):
		s[0] = RoyalFlush
		s[1] = straightHigh
	case flush && straight:
		s[0] = StraightFlush
		s[1] = straightHigh
	case groups[0].count == 4:
		s[0] = FourOfAKind
		s[1] = groups[0].rank
		s[2] = groups[1].rank
	case groups[0].count == 3 && groups[1].count == 2:
		s[0] = FullHouse
		s[1] = groups[0].rank
		s[2] = groups[1].rank
	case flush:
		s[0] = Flush
		copy(s[1:], ranks)
	case straight:
		s[0] = Straight
		s[1] = straightHigh
	case groups[0].count == 3:
		s[0] = ThreeOfAKind
		s[1] = groups[0].rank
		s[2] = groups[1].rank
		s[3] = groups[2].rank
	case groups[0].count == 2 && groups[1].count == 2:
		s[0] = TwoPair
		s[1] = groups[0].rank
		s[2] = groups[1].rank
		s[3] = groups[2].rank
	case groups[0].count == 2:
		s[0] = OnePair
		s[1] = groups[0].rank
		s[2] = groups[1].rank
		s[3] = groups[2].rank
		s[4] = groups[3].rank
	default:
		s[0] = HighCard
		copy(s[1:], ranks)
	}
	return s
}

// straightHigh reports whether the five sorted-descending ranks form a
// run, and the high card of that run. The wheel (A-2-3-4-5) counts as a
// 5-high straight, not ace-high.
func straightHigh(sorted []int) (bool, int) {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return false, 0
		}
	}
	if sorted[0]-sorted[len(sorted)-1] == len(sorted)-1 {
		return true, sorted[0]
	}
	// Wheel: ace plays low under 5-4-3-2.
	if sorted[0] == int(deck.Ace) && sorted[1] == 5 && sorted[1]-sorted[len(sorted)-1] == len(sorted)-2 {
		return true, 5
	}
	return false, 0
}

// BestOf7 scores the best five-card hand out of seven cards by
// enumerating all 21 subsets.
func BestOf7(cards []deck.Card) Score {
	var best Score
	five := make([]deck.Card, 0, 5)
	for skipA := 0; skipA < len(cards); skipA++ {
		for skipB := skipA + 1; skipB < len(cards); skipB++ {
			five = five[:0]
			for i, c := range cards {
				if i == skipA || i == skipB {
					continue
				}
				five = append(five, c)
			}
			if s := Score5(five); best.Less(s) {
				best = s
			}
		}
	}
	return best
}

// DetermineWinners scores every hole-card pair against the community
// cards and returns the indices of all hands tied at the maximum.
func DetermineWinners(holes [][]deck.Card, community []deck.Card) []int {
	var (
		best    Score
		winners []int
	)
	seven := make([]deck.Card, 0, 7)
	for i, hole := range holes {
		seven = seven[:0]
		seven = append(seven, hole...)
		seven = append(seven, community...)
		s := BestOf7(seven)
		switch s.Compare(best) {
		case 1:
			best = s
			winners = winners[:0]
			winners = append(winners, i)
		case 0:
			winners = append(winners, i)
		}
	}
	return winners
}

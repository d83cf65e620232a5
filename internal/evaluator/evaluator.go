// Package evaluator ranks Texas Hold'em hands. Given five to seven cards it
// enumerates every 5-card combination, classifies each into one of the ten
// hand categories, and keeps the best. Results carry the ordered tiebreak
// ranks needed to detect exact ties for split pots.
package evaluator

import (
	"fmt"
	"sort"
	"strings"

	"holdem-server/internal/deck"
)

// Category is the hand class, ordered from weakest to strongest.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable category name
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandResult is the evaluated strength of a best 5-card hand. Two results
// compare equal only when the category and every tiebreak rank match.
type HandResult struct {
	Category  Category
	Tiebreaks []deck.Rank
	Cards     []deck.Card
}

// Compare returns 1 if hr beats other, -1 if other wins, 0 for an exact tie.
func (hr HandResult) Compare(other HandResult) int {
	if hr.Category != other.Category {
		if hr.Category > other.Category {
			return 1
		}
		return -1
	}
	for i := 0; i < len(hr.Tiebreaks) && i < len(other.Tiebreaks); i++ {
		if hr.Tiebreaks[i] != other.Tiebreaks[i] {
			if hr.Tiebreaks[i] > other.Tiebreaks[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Description returns a display string like "Full House, Kings over Twos"
func (hr HandResult) Description() string {
	tb := hr.Tiebreaks
	switch hr.Category {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush, Straight:
		return fmt.Sprintf("%s, %s high", hr.Category, tb[0].Name())
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", tb[0].Plural())
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", tb[0].Plural(), tb[1].Plural())
	case Flush, HighCard:
		return fmt.Sprintf("%s, %s high", hr.Category, tb[0].Name())
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", tb[0].Plural())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", tb[0].Plural(), tb[1].Plural())
	case Pair:
		return fmt.Sprintf("Pair of %s", tb[0].Plural())
	default:
		return hr.Category.String()
	}
}

// String returns the description plus the cards, e.g. for logging
func (hr HandResult) String() string {
	cards := make([]string, len(hr.Cards))
	for i, c := range hr.Cards {
		cards[i] = c.String()
	}
	return hr.Description() + " (" + strings.Join(cards, " ") + ")"
}

// Evaluate returns the best 5-card hand achievable from the given cards.
// It accepts between 5 and 7 cards (2 hole + up to 5 community).
func Evaluate(cards []deck.Card) (HandResult, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandResult{}, fmt.Errorf("evaluate: need 5-7 cards, got %d", len(cards))
	}

	var best HandResult
	combo := make([]deck.Card, 5)
	forEachCombination(cards, combo, 0, 0, func() {
		hr := evaluate5(combo)
		if best.Category == 0 || hr.Compare(best) > 0 {
			best = hr
		}
	})
	return best, nil
}

// forEachCombination visits every 5-card subset of cards
func forEachCombination(cards, combo []deck.Card, start, depth int, visit func()) {
	if depth == len(combo) {
		visit()
		return
	}
	for i := start; i <= len(cards)-(len(combo)-depth); i++ {
		combo[depth] = cards[i]
		forEachCombination(cards, combo, i+1, depth+1, visit)
	}
}

// evaluate5 classifies exactly five cards
func evaluate5(combo []deck.Card) HandResult {
	cards := make([]deck.Card, 5)
	copy(cards, combo)
	sort.Slice(cards, func(i, j int) bool { return cards[i].Rank > cards[j].Rank })

	flush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	straight, straightHigh := checkStraight(cards)

	counts := make(map[deck.Rank]int, 5)
	for _, c := range cards {
		counts[c.Rank]++
	}

	// Group ranks by multiplicity, each group sorted descending
	var quads, trips, pairs, singles []deck.Rank
	for rank, n := range counts {
		switch n {
		case 4:
			quads = append(quads, rank)
		case 3:
			trips = append(trips, rank)
		case 2:
			pairs = append(pairs, rank)
		default:
			singles = append(singles, rank)
		}
	}
	sortRanksDesc(quads)
	sortRanksDesc(trips)
	sortRanksDesc(pairs)
	sortRanksDesc(singles)

	hr := HandResult{Cards: cards}
	switch {
	case flush && straight && straightHigh == deck.Ace:
		hr.Category = RoyalFlush
		hr.Tiebreaks = []deck.Rank{deck.Ace}
	case flush && straight:
		hr.Category = StraightFlush
		hr.Tiebreaks = []deck.Rank{straightHigh}
	case len(quads) == 1:
		hr.Category = FourOfAKind
		hr.Tiebreaks = append([]deck.Rank{quads[0]}, singles...)
	case len(trips) == 1 && len(pairs) == 1:
		hr.Category = FullHouse
		hr.Tiebreaks = []deck.Rank{trips[0], pairs[0]}
	case flush:
		hr.Category = Flush
		hr.Tiebreaks = ranksOf(cards)
	case straight:
		hr.Category = Straight
		hr.Tiebreaks = []deck.Rank{straightHigh}
	case len(trips) == 1:
		hr.Category = ThreeOfAKind
		hr.Tiebreaks = append([]deck.Rank{trips[0]}, singles...)
	case len(pairs) == 2:
		hr.Category = TwoPair
		hr.Tiebreaks = append([]deck.Rank{pairs[0], pairs[1]}, singles...)
	case len(pairs) == 1:
		hr.Category = Pair
		hr.Tiebreaks = append([]deck.Rank{pairs[0]}, singles...)
	default:
		hr.Category = HighCard
		hr.Tiebreaks = ranksOf(cards)
	}
	return hr
}

// checkStraight reports whether the rank-descending cards form a straight and
// its high card. The wheel (A-5-4-3-2) is a straight whose high card is Five.
func checkStraight(sorted []deck.Card) (bool, deck.Rank) {
	if sorted[0].Rank == deck.Ace &&
		sorted[1].Rank == deck.Five && sorted[2].Rank == deck.Four &&
		sorted[3].Rank == deck.Three && sorted[4].Rank == deck.Two {
		return true, deck.Five
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Rank != sorted[i].Rank+1 {
			return false, 0
		}
	}
	return true, sorted[0].Rank
}

func ranksOf(cards []deck.Card) []deck.Rank {
	ranks := make([]deck.Rank, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	return ranks
}

func sortRanksDesc(ranks []deck.Rank) {
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })
}

package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrInsufficientCards is returned when a draw exceeds the cards remaining.
// With a 52-card deck and at most 10 players this should never fire; callers
// treat it as a signal to end the hand with the cards dealt so far.
var ErrInsufficientCards = errors.New("deck: insufficient cards")

// Deck is an ordered sequence of the 52 unique cards. A fresh deck is built
// and shuffled at the start of every hand and discarded at hand end.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck shuffled with the provided RNG.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Hearts; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	d.shuffle(rng)
	return d
}

// shuffle applies a Fisher-Yates permutation
func (d *Deck) shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns n cards from the top of the deck.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrInsufficientCards
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, nil
}

// DrawOne removes and returns the top card.
func (d *Deck) DrawOne() (Card, error) {
	cards, err := d.Draw(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

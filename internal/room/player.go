package room

import "holdem-server/internal/deck"

// Player is one seat at the table. Owned exclusively by its Room; all access
// goes through the room's mutex.
type Player struct {
	ID        string
	Name      string
	Chips     int
	HoleCards []deck.Card
	Bet       int // chips committed this betting round
	TotalBet  int // chips committed over the whole hand, drives side-pot tiers
	Folded    bool
	AllIn     bool
	Spectator bool
	Ready     bool
	Connected bool
	HandDesc  string // showdown hand description, cleared between hands
}

// InHand reports whether the player is still contesting the current hand
func (p *Player) InHand() bool {
	return !p.Folded && !p.Spectator
}

// CanAct reports whether the player may take a betting action
func (p *Player) CanAct() bool {
	return p.InHand() && !p.AllIn
}

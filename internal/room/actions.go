package room

import "slices"

// Action is a betting-round move submitted by the player whose turn it is
type Action string

const (
	ActionFold  Action = "fold"
	ActionCheck Action = "check"
	ActionCall  Action = "call"
	ActionBet   Action = "bet"
	ActionRaise Action = "raise"
	ActionAllIn Action = "all-in"
)

// Apply validates and executes one action for the acting player, then
// advances the turn and, when the betting round is settled, the phase.
// The amount argument is the total bet level for bet and raise and is
// ignored for every other action.
func (r *Room) Apply(playerID string, action Action, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.phase.Betting() || r.currentID != playerID {
		return ErrNotYourTurn
	}
	p, ok := r.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if !p.CanAct() {
		return ErrIllegalAction
	}

	switch action {
	case ActionFold:
		p.Folded = true

	case ActionCheck:
		if p.Bet != r.currentBet {
			return ErrIllegalAction
		}

	case ActionCall:
		if r.currentBet <= p.Bet {
			return ErrIllegalAction
		}
		r.commit(p, min(r.currentBet-p.Bet, p.Chips))

	case ActionBet:
		if r.currentBet > 0 || amount <= 0 {
			return ErrIllegalAction
		}
		r.commit(p, min(amount, p.Chips))
		r.currentBet = p.Bet
		r.reopenBetting(playerID)

	case ActionRaise:
		if amount < r.currentBet*2 || amount > p.Chips+p.Bet {
			return ErrIllegalAction
		}
		r.commit(p, amount-p.Bet)
		r.currentBet = amount
		r.reopenBetting(playerID)

	case ActionAllIn:
		if p.Chips == 0 {
			return ErrIllegalAction
		}
		r.commit(p, p.Chips)
		if p.Bet > r.currentBet {
			r.currentBet = p.Bet
			r.reopenBetting(playerID)
		}

	default:
		return ErrIllegalAction
	}

	if p.Chips == 0 {
		p.AllIn = true
	}
	r.acted[playerID] = struct{}{}

	r.logger.Debug("action applied",
		"player", p.Name, "action", action, "bet", p.Bet, "pot", r.pot)

	r.advanceTurn()
	if r.phase.Betting() && r.bettingComplete() {
		r.advancePhase()
	}
	return nil
}

// commit moves chips from the player's stack into the pot
func (r *Room) commit(p *Player, amount int) {
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	r.pot += amount
}

// reopenBetting restarts the acted set after an aggressive action so every
// other live player gets a chance to respond
func (r *Room) reopenBetting(playerID string) {
	r.acted = map[string]struct{}{playerID: {}}
	r.lastRaiserID = playerID
}

// activeIDs returns the order-frozen ids that are still contesting the pot
func (r *Room) activeIDs() []string {
	var ids []string
	for _, id := range r.playerOrder {
		if p := r.players[id]; p != nil && p.InHand() {
			ids = append(ids, id)
		}
	}
	return ids
}

// advanceTurn moves currentID to the next player who can act. With one
// contender left the hand ends immediately, and with everyone committed
// all-in the remaining board runs out into a showdown.
func (r *Room) advanceTurn() {
	active := r.activeIDs()
	if len(active) <= 1 {
		r.enterShowdown()
		return
	}

	cur := slices.Index(r.playerOrder, r.currentID)
	if cur < 0 {
		cur = 0
	}
	n := len(r.playerOrder)
	for step := 1; step <= n; step++ {
		id := r.playerOrder[(cur+step)%n]
		if p := r.players[id]; p != nil && p.CanAct() {
			r.currentID = id
			return
		}
	}

	// Nobody can act: every contender is all-in, run the board out
	r.enterShowdown()
}

// bettingComplete reports whether every player still able to act has both
// acted this round and matched the current bet
func (r *Room) bettingComplete() bool {
	active := r.activeIDs()
	if len(active) <= 1 {
		return true
	}
	for _, id := range active {
		p := r.players[id]
		if p.AllIn {
			continue
		}
		if _, ok := r.acted[id]; !ok || p.Bet != r.currentBet {
			return false
		}
	}
	return true
}

// advancePhase deals the next street, or resolves the hand after the river.
// Bets are swept into the pot total already, so each street starts clean.
func (r *Room) advancePhase() {
	active := r.activeIDs()
	if len(active) <= 1 {
		r.enterShowdown()
		return
	}

	allIn := true
	for _, id := range active {
		if !r.players[id].AllIn {
			allIn = false
			break
		}
	}
	if allIn {
		r.enterShowdown()
		return
	}

	r.acted = make(map[string]struct{})
	r.currentBet = 0
	for _, p := range r.players {
		p.Bet = 0
	}

	var draw int
	switch r.phase {
	case PhasePreFlop:
		draw, r.phase = 3, PhaseFlop
	case PhaseFlop:
		draw, r.phase = 1, PhaseTurn
	case PhaseTurn:
		draw, r.phase = 1, PhaseRiver
	case PhaseRiver:
		r.enterShowdown()
		return
	default:
		return
	}

	cards, err := r.dck.Draw(draw)
	if err != nil {
		r.logger.Error("deck exhausted dealing community cards", "err", err)
		r.enterShowdown()
		return
	}
	r.community = append(r.community, cards...)

	// First to act post-flop is the first live player past the button
	dealerIdx := slices.Index(r.playerOrder, r.dealerID)
	n := len(r.playerOrder)
	for step := 1; step <= n; step++ {
		id := r.playerOrder[(dealerIdx+step)%n]
		if p := r.players[id]; p != nil && p.CanAct() {
			r.currentID = id
			break
		}
	}

	r.logger.Debug("street dealt", "phase", r.phase, "community", len(r.community))
}

// runOutBoard deals any community cards still owed before a forced showdown
func (r *Room) runOutBoard() {
	for len(r.community) < 5 {
		card, err := r.dck.DrawOne()
		if err != nil {
			r.logger.Error("deck exhausted running out board", "err", err)
			return
		}
		r.community = append(r.community, card)
	}
}

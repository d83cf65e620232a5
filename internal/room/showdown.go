package room

import (
	"slices"
	"sort"

	"holdem-server/internal/deck"
	"holdem-server/internal/evaluator"
)

// Winner records one player's share of the pot for the finished hand
type Winner struct {
	PlayerID    string      `json:"id"`
	Name        string      `json:"name"`
	Amount      int         `json:"amount"`
	Hand        []deck.Card `json:"hand"`
	Description string      `json:"handDescription"`
}

// enterShowdown resolves the hand: evaluates every live hand, pays out the
// pot (split into side pots when stacks went all-in for different amounts),
// snapshots the hand into history and schedules the return to waiting.
// Caller holds the lock. Safe to call from paths that may race into it.
func (r *Room) enterShowdown() {
	if r.phase == PhaseShowdown || r.phase == PhaseWaiting {
		return
	}
	r.phase = PhaseShowdown
	r.currentID = ""

	// A contested showdown always compares full boards, even when the hand
	// was cut short mid-street
	if len(r.activeIDs()) > 1 && len(r.community) < 5 {
		r.runOutBoard()
	}

	totalPot := r.pot
	r.determineWinners(totalPot)
	r.captureHistory(totalPot)
	r.pot = 0
	r.currentBet = 0

	for _, p := range r.players {
		p.AllIn = false
		if p.Chips <= 0 && !p.Spectator {
			p.Spectator = true
			r.logger.Info("player busted", "player", p.Name)
		}
	}

	r.logger.Info("hand resolved", "pot", totalPot, "winners", len(r.winners))

	if r.resetTimer != nil {
		r.resetTimer.Stop()
	}
	r.resetTimer = r.clock.AfterFunc(r.cfg.ShowdownDelay, func() {
		r.mu.Lock()
		fired := r.phase == PhaseShowdown
		if fired {
			r.resetRound()
		}
		notify := r.notify
		r.mu.Unlock()

		if fired && notify != nil {
			notify()
		}
	})
}

func (r *Room) determineWinners(totalPot int) {
	active := r.activeIDs()
	r.winners = nil

	switch len(active) {
	case 0:
		return
	case 1:
		p := r.players[active[0]]
		p.Chips += totalPot
		p.HandDesc = "Uncontested"
		r.winners = []Winner{{
			PlayerID:    p.ID,
			Name:        p.Name,
			Amount:      totalPot,
			Hand:        p.HoleCards,
			Description: p.HandDesc,
		}}
		return
	}

	results := make(map[string]evaluator.HandResult, len(active))
	for _, id := range active {
		p := r.players[id]
		res, err := evaluator.Evaluate(append(slices.Clone(p.HoleCards), r.community...))
		if err != nil {
			r.logger.Error("hand evaluation failed", "player", p.Name, "err", err)
			continue
		}
		results[id] = res
		p.HandDesc = res.Description()
	}

	payouts := make(map[string]int)
	for _, tier := range r.potTiers(active, totalPot) {
		// A tier only one player can claim holds that player's uncalled
		// chips, which go back to the stack without scoring as a win.
		// Folded money at the same level is still won.
		if len(tier.eligible) == 1 {
			id := tier.eligible[0]
			refund := tier.level - tier.prev
			r.players[id].Chips += refund
			if rest := tier.amount - refund; rest > 0 {
				payouts[id] += rest
			}
			continue
		}
		best := bestOf(tier.eligible, results)
		if len(best) == 0 {
			continue
		}
		share := tier.amount / len(best)
		for _, id := range best {
			payouts[id] += share
		}
	}

	// Report winners in order-frozen seating order for stable output
	for _, id := range r.playerOrder {
		amount, ok := payouts[id]
		if !ok {
			continue
		}
		p := r.players[id]
		p.Chips += amount
		r.winners = append(r.winners, Winner{
			PlayerID:    id,
			Name:        p.Name,
			Amount:      amount,
			Hand:        p.HoleCards,
			Description: p.HandDesc,
		})
	}
}

type potTier struct {
	amount   int
	level    int // contribution ceiling of this tier
	prev     int // ceiling of the tier below
	eligible []string
}

// potTiers partitions the pot by contribution level. Each all-in stack caps
// how much of every opponent's money that player can win, so the pot splits
// into one tier per distinct live contribution, with folded money folded
// into the tiers it reaches. Any contribution above the largest live stack's
// level lands in the top tier.
func (r *Room) potTiers(active []string, totalPot int) []potTier {
	levels := make([]int, 0, len(active))
	for _, id := range active {
		if tb := r.players[id].TotalBet; tb > 0 && !slices.Contains(levels, tb) {
			levels = append(levels, tb)
		}
	}
	sort.Ints(levels)
	if len(levels) == 0 {
		return nil
	}

	var contributors []*Player
	for _, p := range r.players {
		if p.TotalBet > 0 {
			contributors = append(contributors, p)
		}
	}

	tiers := make([]potTier, 0, len(levels))
	prev := 0
	distributed := 0
	for _, level := range levels {
		tier := potTier{level: level, prev: prev}
		for _, p := range contributors {
			tier.amount += min(p.TotalBet, level) - min(p.TotalBet, prev)
		}
		for _, id := range active {
			if r.players[id].TotalBet >= level {
				tier.eligible = append(tier.eligible, id)
			}
		}
		distributed += tier.amount
		tiers = append(tiers, tier)
		prev = level
	}

	// Money past every live contribution level cannot be contested by
	// anyone else, so it rides with the top tier
	if leftover := totalPot - distributed; leftover > 0 {
		tiers[len(tiers)-1].amount += leftover
	}
	return tiers
}

// bestOf returns every eligible id holding the strongest hand
func bestOf(eligible []string, results map[string]evaluator.HandResult) []string {
	var best []string
	for _, id := range eligible {
		res, ok := results[id]
		if !ok {
			continue
		}
		if len(best) == 0 {
			best = []string{id}
			continue
		}
		switch res.Compare(results[best[0]]) {
		case 1:
			best = []string{id}
		case 0:
			best = append(best, id)
		}
	}
	return best
}

// resetRound returns the table to waiting after a showdown. Ready flags
// clear so the next hand needs fresh consent, and spectators who were only
// sitting out the finished hand get their seat back. Caller holds the lock.
func (r *Room) resetRound() {
	r.phase = PhaseWaiting
	r.currentID = ""
	r.resetTimer = nil
	for _, p := range r.players {
		p.Ready = false
		if p.Spectator && p.Chips > 0 {
			p.Spectator = false
		}
	}
	r.logger.Debug("table back to waiting")
}

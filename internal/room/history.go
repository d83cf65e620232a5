package room

import (
	"time"

	"holdem-server/internal/deck"
)

// HistorySnapshot is the full record of the most recently completed hand,
// captured at showdown before the pot resets. Only the latest hand is kept.
type HistorySnapshot struct {
	Timestamp      time.Time             `json:"timestamp"`
	CommunityCards []deck.Card           `json:"communityCards"`
	PlayerHands    map[string]PlayerHand `json:"playerHands"`
	Winners        []Winner              `json:"winners"`
	Pot            int                   `json:"pot"`
	DealerID       string                `json:"dealerId"`
	SmallBlindID   string                `json:"smallBlindId"`
	BigBlindID     string                `json:"bigBlindId"`
}

// PlayerHand is one player's cards and outcome inside a history snapshot
type PlayerHand struct {
	PlayerID    string      `json:"id"`
	Name        string      `json:"name"`
	Hand        []deck.Card `json:"hand"`
	Folded      bool        `json:"folded"`
	Description string      `json:"handDescription"`
	Spectator   bool        `json:"isSpectator"`
}

// captureHistory snapshots the finished hand. Caller holds the lock and has
// not yet zeroed the pot.
func (r *Room) captureHistory(totalPot int) {
	hands := make(map[string]PlayerHand, len(r.players))
	for id, p := range r.players {
		hands[id] = PlayerHand{
			PlayerID:    id,
			Name:        p.Name,
			Hand:        p.HoleCards,
			Folded:      p.Folded,
			Description: p.HandDesc,
			Spectator:   p.Spectator,
		}
	}

	r.history = &HistorySnapshot{
		Timestamp:      r.clock.Now(),
		CommunityCards: append([]deck.Card(nil), r.community...),
		PlayerHands:    hands,
		Winners:        append([]Winner(nil), r.winners...),
		Pot:            totalPot,
		DealerID:       r.dealerID,
		SmallBlindID:   r.smallBlindID,
		BigBlindID:     r.bigBlindID,
	}
}

// History returns the latest hand snapshot, or nil before the first showdown
func (r *Room) History() *HistorySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history
}

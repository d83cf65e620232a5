package room

import "holdem-server/internal/deck"

// State is the view of the room sent to one player. Hole cards are masked
// per viewer: you always see your own, and everyone still in the hand is
// revealed at showdown.
type State struct {
	RoomID          string                `json:"roomId"`
	Phase           Phase                 `json:"phase"`
	Players         map[string]PlayerView `json:"players"`
	DealerID        string                `json:"dealerId"`
	SmallBlindID    string                `json:"smallBlindId"`
	BigBlindID      string                `json:"bigBlindId"`
	CurrentPlayerID string                `json:"currentPlayerId"`
	CommunityCards  []deck.Card           `json:"communityCards"`
	Pot             int                   `json:"pot"`
	CurrentBet      int                   `json:"currentBet"`
	Winners         []Winner              `json:"winners"`
	OwnerID         string                `json:"ownerId"`
}

// PlayerView is the per-player slice of a State
type PlayerView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Chips     int         `json:"chips"`
	Bet       int         `json:"bet"`
	Folded    bool        `json:"folded"`
	Connected bool        `json:"connected"`
	Ready     bool        `json:"isReady"`
	Spectator bool        `json:"isSpectator"`
	AllIn     bool        `json:"isAllIn"`
	HandDesc  string      `json:"handDescription"`
	Hand      []deck.Card `json:"hand,omitempty"`
}

// StateFor builds the room state as seen by viewerID
func (r *Room) StateFor(viewerID string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateFor(viewerID)
}

// StatesForAll builds one masked state per seated player, keyed by player id
func (r *Room) StatesForAll() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]State, len(r.players))
	for id := range r.players {
		states[id] = r.stateFor(id)
	}
	return states
}

func (r *Room) stateFor(viewerID string) State {
	players := make(map[string]PlayerView, len(r.players))
	for id, p := range r.players {
		pv := PlayerView{
			ID:        id,
			Name:      p.Name,
			Chips:     p.Chips,
			Bet:       p.Bet,
			Folded:    p.Folded,
			Connected: p.Connected,
			Ready:     p.Ready,
			Spectator: p.Spectator,
			AllIn:     p.AllIn,
			HandDesc:  p.HandDesc,
		}
		if r.holeCardsVisible(viewerID, id, p) {
			pv.Hand = p.HoleCards
		}
		players[id] = pv
	}

	return State{
		RoomID:          r.ID,
		Phase:           r.phase,
		Players:         players,
		DealerID:        r.dealerID,
		SmallBlindID:    r.smallBlindID,
		BigBlindID:      r.bigBlindID,
		CurrentPlayerID: r.currentID,
		CommunityCards:  r.community,
		Pot:             r.pot,
		CurrentBet:      r.currentBet,
		Winners:         r.winners,
		OwnerID:         r.ownerID,
	}
}

func (r *Room) holeCardsVisible(viewerID, targetID string, target *Player) bool {
	if len(target.HoleCards) == 0 {
		return false
	}
	if viewerID == targetID && !target.Spectator {
		return true
	}
	return r.phase == PhaseShowdown && !target.Folded && !target.Spectator
}

// Summary is the lobby-listing view of a room
type Summary struct {
	RoomID      string `json:"roomId"`
	PlayerCount int    `json:"playerCount"`
	Phase       Phase  `json:"phase"`
	OwnerName   string `json:"ownerName"`
}

// Summarize returns the room's lobby listing
func (r *Room) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	var owner string
	if p, ok := r.players[r.ownerID]; ok {
		owner = p.Name
	}
	return Summary{
		RoomID:      r.ID,
		PlayerCount: len(r.players),
		Phase:       r.phase,
		OwnerName:   owner,
	}
}

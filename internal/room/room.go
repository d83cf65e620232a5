// Package room implements the per-table Texas Hold'em state machine: seating,
// readiness, blinds, betting rounds, turn order, showdown resolution and the
// post-hand history snapshot. Each Room is a single-writer critical section
// guarded by its own mutex; rooms never reference each other, so independent
// rooms process actions fully in parallel.
package room

import (
	rand "math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"holdem-server/internal/deck"
)

// MaxPlayers bounds seats per room so a 52-card deck can always cover
// 2 hole cards per player plus the board.
const MaxPlayers = 10

// Phase is the hand lifecycle state
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreFlop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
)

// String returns the wire name of the phase
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePreFlop:
		return "pre-flop"
	case PhaseFlop:
		return "flop"
	case PhaseTurn:
		return "turn"
	case PhaseRiver:
		return "river"
	case PhaseShowdown:
		return "showdown"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the phase as its wire name
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Betting reports whether the phase accepts player actions
func (p Phase) Betting() bool {
	return p != PhaseWaiting && p != PhaseShowdown
}

// Config carries the table rules every room in a registry shares
type Config struct {
	SmallBlind    int
	BigBlind      int
	StartingChips int
	ShowdownDelay time.Duration
}

// DefaultConfig returns the stock 2/4 table with 1000 starting chips.
func DefaultConfig() Config {
	return Config{
		SmallBlind:    2,
		BigBlind:      4,
		StartingChips: 1000,
		ShowdownDelay: 5 * time.Second,
	}
}

// Room owns all mutable state for one game instance
type Room struct {
	ID string

	mu     sync.Mutex
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	phase        Phase
	players      map[string]*Player
	seating      []string // insertion order of every seated player
	playerOrder  []string // eligible set frozen at hand start
	dealerID     string
	smallBlindID string
	bigBlindID   string
	currentID    string
	dck          *deck.Deck
	community    []deck.Card
	pot          int
	currentBet   int
	acted        map[string]struct{}
	lastRaiserID string
	ownerID      string
	winners      []Winner
	history      *HistorySnapshot
	resetTimer   *quartz.Timer
	notify       func()
}

// SetNotify registers a callback invoked when the room changes state on its
// own, outside any player request. Used to push the post-showdown reset.
func (r *Room) SetNotify(notify func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
}

// New creates an empty room in the waiting phase
func New(id string, cfg Config, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *Room {
	return &Room{
		ID:      id,
		cfg:     cfg,
		logger:  logger.WithPrefix("room").With("room", id),
		clock:   clock,
		rng:     rng,
		phase:   PhaseWaiting,
		players: make(map[string]*Player),
		acted:   make(map[string]struct{}),
	}
}

// AddPlayer seats a player or, when a hand is running, admits them as a
// spectator for the remainder of that hand. A known player id reconnects
// instead of re-seating. Returns whether the player is a spectator.
func (r *Room) AddPlayer(playerID, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[playerID]; ok {
		p.Connected = true
		r.logger.Info("player reconnected", "player", name)
		return p.Spectator, nil
	}
	if len(r.players) >= MaxPlayers {
		return false, ErrRoomFull
	}

	p := &Player{
		ID:        playerID,
		Name:      name,
		Chips:     r.cfg.StartingChips,
		Connected: true,
		Spectator: r.phase != PhaseWaiting,
	}
	r.players[playerID] = p
	r.seating = append(r.seating, playerID)
	if r.ownerID == "" {
		r.ownerID = playerID
	}
	r.logger.Info("player joined", "player", name, "spectator", p.Spectator)
	return p.Spectator, nil
}

// Reconnect re-attaches a previously seated player. Unlike AddPlayer it
// never creates a seat. Returns whether the player is a spectator.
func (r *Room) Reconnect(playerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return false, ErrPlayerNotFound
	}
	p.Connected = true
	r.logger.Info("player reconnected", "player", p.Name)
	return p.Spectator, nil
}

// RemovePlayer takes a player out of the room entirely. If it was their turn
// mid-hand they are folded first so the turn can advance past them.
func (r *Room) RemovePlayer(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}

	wasTurn := r.phase.Betting() && r.currentID == playerID
	if r.phase.Betting() && p.InHand() {
		p.Folded = true
	}

	delete(r.players, playerID)
	if i := slices.Index(r.seating, playerID); i >= 0 {
		r.seating = slices.Delete(r.seating, i, i+1)
	}
	r.transferOwnership(playerID)

	if wasTurn {
		r.advanceTurn()
	}
	if r.phase.Betting() && r.bettingComplete() {
		r.advancePhase()
	}
	r.guardPlayerCount()

	r.logger.Info("player left", "player", p.Name)
	return nil
}

// Disconnect marks a player as gone without unseating them, so they can
// reconnect into the same stack. Ignorable if the player is unknown.
func (r *Room) Disconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return
	}

	p.Connected = false
	p.Ready = false

	if r.phase.Betting() && r.currentID == playerID && p.InHand() {
		p.Folded = true
		r.advanceTurn()
		if r.phase.Betting() && r.bettingComplete() {
			r.advancePhase()
		}
	}
	r.transferOwnership(playerID)
	r.guardPlayerCount()

	r.logger.Info("player disconnected", "player", p.Name)
}

// ToggleReady flips a player's ready flag while waiting. When every eligible
// player is ready the next hand starts immediately.
func (r *Room) ToggleReady(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}
	if r.phase != PhaseWaiting {
		return ErrIllegalAction
	}
	if p.Spectator || p.Chips <= 0 {
		return ErrIllegalAction
	}
	// Readying up needs an opponent who could play the hand
	if !p.Ready && len(r.eligiblePlayers()) < 2 {
		return ErrInsufficientPlayers
	}

	p.Ready = !p.Ready

	if ids := r.eligiblePlayers(); len(ids) >= 2 && r.allReady(ids) {
		r.startHand(ids)
	}
	return nil
}

// Empty reports whether the room has no seated players left
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// Close cancels any pending showdown reset timer
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resetTimer != nil {
		r.resetTimer.Stop()
		r.resetTimer = nil
	}
}

// eligiblePlayers returns, in seating order, the ids that may play a hand
func (r *Room) eligiblePlayers() []string {
	var ids []string
	for _, id := range r.seating {
		p := r.players[id]
		if p != nil && p.Connected && p.Chips > 0 && !p.Spectator {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Room) allReady(ids []string) bool {
	for _, id := range ids {
		if !r.players[id].Ready {
			return false
		}
	}
	return true
}

// startHand transitions waiting -> pre-flop. Caller holds the lock and has
// verified there are at least two ready eligible players.
func (r *Room) startHand(order []string) {
	if r.resetTimer != nil {
		r.resetTimer.Stop()
		r.resetTimer = nil
	}

	for _, p := range r.players {
		p.HoleCards = nil
		p.Bet = 0
		p.TotalBet = 0
		p.Folded = false
		p.AllIn = false
		p.HandDesc = ""
	}
	r.winners = nil
	r.community = nil
	r.pot = 0
	r.currentBet = 0
	r.acted = make(map[string]struct{})
	r.lastRaiserID = ""

	r.playerOrder = order
	n := len(order)

	// Rotate the button; random seat on the very first hand
	dealerIdx := slices.Index(order, r.dealerID)
	if dealerIdx < 0 {
		dealerIdx = r.rng.IntN(n)
	} else {
		dealerIdx = (dealerIdx + 1) % n
	}
	r.dealerID = order[dealerIdx]
	r.smallBlindID = order[(dealerIdx+1)%n]
	r.bigBlindID = order[(dealerIdx+2)%n]

	r.dck = deck.New(r.rng)
	r.phase = PhasePreFlop

	// Two passes of one card each, in seating order
	for pass := 0; pass < 2; pass++ {
		for _, id := range order {
			card, err := r.dck.DrawOne()
			if err != nil {
				r.logger.Error("deck exhausted while dealing", "err", err)
				r.enterShowdown()
				return
			}
			r.players[id].HoleCards = append(r.players[id].HoleCards, card)
		}
	}

	r.postBlind(r.smallBlindID, r.cfg.SmallBlind)
	r.postBlind(r.bigBlindID, r.cfg.BigBlind)
	r.currentBet = r.cfg.BigBlind

	bbIdx := slices.Index(order, r.bigBlindID)
	r.currentID = order[(bbIdx+1)%n]

	r.logger.Info("hand started",
		"players", n,
		"dealer", r.players[r.dealerID].Name,
		"blinds", []int{r.cfg.SmallBlind, r.cfg.BigBlind})

	// A blind can consume a whole stack; the first turn must land on a
	// seat that can still act, or the hand resolves immediately
	if !r.players[r.currentID].CanAct() {
		r.advanceTurn()
	}
}

// postBlind moves up to amount from the player's stack into the pot,
// treating a short stack as an implicit all-in
func (r *Room) postBlind(playerID string, amount int) {
	p := r.players[playerID]
	paid := min(amount, p.Chips)
	p.Chips -= paid
	p.Bet += paid
	p.TotalBet += paid
	r.pot += paid
	if p.Chips == 0 {
		p.AllIn = true
	}
}

// transferOwnership hands the room to the next connected player when the
// current owner is the one going away
func (r *Room) transferOwnership(leavingID string) {
	if r.ownerID != leavingID {
		return
	}
	r.ownerID = ""
	for _, id := range r.seating {
		if p := r.players[id]; p != nil && p.Connected && id != leavingID {
			r.ownerID = id
			return
		}
	}
}

// guardPlayerCount ends a running hand when the connected player count drops
// below a playable size. Going through the showdown path keeps the pot
// accounted: a lone survivor collects it uncontested.
func (r *Room) guardPlayerCount() {
	if !r.phase.Betting() {
		return
	}
	connected := 0
	for _, p := range r.players {
		if p.Connected {
			connected++
		}
	}
	if connected >= 2 {
		return
	}
	r.logger.Warn("not enough connected players to continue, ending hand")
	r.enterShowdown()
}

// Package registry tracks every live room and routes player operations to
// the right one. The registry lock only guards the room map itself; all game
// state is owned by the individual rooms, so traffic for one table never
// blocks another.
package registry

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"holdem-server/internal/randutil"
	"holdem-server/internal/room"
	"holdem-server/internal/roomid"
)

// ErrRoomNotFound is returned for operations against an unknown room code
var ErrRoomNotFound = errors.New("registry: room not found")

// Registry owns the id -> room map
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	cfg       room.Config
	logger    *log.Logger
	clock     quartz.Clock
	ids       *roomid.Generator
	broadcast func(roomID string)
}

// SetBroadcast registers the fan-out used when a room changes state without
// a triggering player request, such as the timed return to waiting after a
// showdown. Must be called before rooms are created.
func (g *Registry) SetBroadcast(broadcast func(roomID string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcast = broadcast
}

// New creates an empty registry
func New(cfg room.Config, logger *log.Logger, clock quartz.Clock) *Registry {
	return &Registry{
		rooms:  make(map[string]*room.Room),
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		ids:    roomid.NewGenerator(nil),
	}
}

// WithIDGenerator swaps the room code generator, for deterministic tests
func (g *Registry) WithIDGenerator(ids *roomid.Generator) *Registry {
	g.ids = ids
	return g
}

// CreateRoom makes a new room and seats the creator in it, returning the
// room code
func (g *Registry) CreateRoom(playerID, name string) (string, error) {
	g.mu.Lock()
	id := g.ids.Generate()
	for _, taken := g.rooms[id]; taken; _, taken = g.rooms[id] {
		id = g.ids.Generate()
	}
	rm := room.New(id, g.cfg, g.logger, g.clock, randutil.NewSource())
	if g.broadcast != nil {
		broadcast := g.broadcast
		rm.SetNotify(func() { broadcast(id) })
	}
	g.rooms[id] = rm
	g.mu.Unlock()

	if _, err := rm.AddPlayer(playerID, name); err != nil {
		g.destroyIfEmpty(id)
		return "", err
	}
	g.logger.Info("room created", "room", id, "owner", name)
	return id, nil
}

// Join seats a player in an existing room. During a hand they are admitted
// as a spectator; the returned flag reports which happened.
func (g *Registry) Join(roomID, playerID, name string) (bool, error) {
	rm, ok := g.lookup(roomID)
	if !ok {
		return false, ErrRoomNotFound
	}
	return rm.AddPlayer(playerID, name)
}

// Reconnect re-attaches a previously seated player to their room
func (g *Registry) Reconnect(roomID, playerID string) (bool, error) {
	rm, ok := g.lookup(roomID)
	if !ok {
		return false, ErrRoomNotFound
	}
	return rm.Reconnect(playerID)
}

// Leave removes a player from a room, tearing the room down once empty
func (g *Registry) Leave(roomID, playerID string) error {
	rm, ok := g.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if err := rm.RemovePlayer(playerID); err != nil {
		return err
	}
	g.destroyIfEmpty(roomID)
	return nil
}

// Disconnect marks the player as gone in every room that knows them. The
// seat is kept so a reconnect resumes the same stack.
func (g *Registry) Disconnect(playerID string) {
	for _, rm := range g.snapshot() {
		rm.Disconnect(playerID)
	}
}

// ToggleReady flips the player's ready flag in the given room
func (g *Registry) ToggleReady(roomID, playerID string) error {
	rm, ok := g.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return rm.ToggleReady(playerID)
}

// Apply routes a betting action to the room
func (g *Registry) Apply(roomID, playerID string, action room.Action, amount int) error {
	rm, ok := g.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return rm.Apply(playerID, action, amount)
}

// StateFor returns the room state masked for one viewer
func (g *Registry) StateFor(roomID, viewerID string) (room.State, error) {
	rm, ok := g.lookup(roomID)
	if !ok {
		return room.State{}, ErrRoomNotFound
	}
	return rm.StateFor(viewerID), nil
}

// States returns one masked state per seated player, for fan-out
func (g *Registry) States(roomID string) (map[string]room.State, error) {
	rm, ok := g.lookup(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm.StatesForAll(), nil
}

// History returns the room's latest completed hand, nil if none yet
func (g *Registry) History(roomID string) (*room.HistorySnapshot, error) {
	rm, ok := g.lookup(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm.History(), nil
}

// ListRooms returns a lobby summary of every live room
func (g *Registry) ListRooms() []room.Summary {
	rooms := g.snapshot()
	summaries := make([]room.Summary, 0, len(rooms))
	for _, rm := range rooms {
		summaries = append(summaries, rm.Summarize())
	}
	return summaries
}

func (g *Registry) lookup(roomID string) (*room.Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rm, ok := g.rooms[roomID]
	return rm, ok
}

func (g *Registry) snapshot() []*room.Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rooms := make([]*room.Room, 0, len(g.rooms))
	for _, rm := range g.rooms {
		rooms = append(rooms, rm)
	}
	return rooms
}

// destroyIfEmpty drops the room once its last player has left
func (g *Registry) destroyIfEmpty(roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rm, ok := g.rooms[roomID]
	if !ok || !rm.Empty() {
		return
	}
	rm.Close()
	delete(g.rooms, roomID)
	g.logger.Info("room destroyed", "room", roomID)
}

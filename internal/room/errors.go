package room

import "errors"

// Engine error taxonomy. All of these are non-fatal: they are reported to the
// caller and never crash the room. Rejects are pure - a rejected action leaves
// the room state untouched.
var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrIllegalAction       = errors.New("illegal action")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrRoomFull            = errors.New("room is full")
)

package server

import (
	"encoding/json"
	"time"

	"holdem-server/internal/room"
)

// MessageType identifies a WebSocket message
type MessageType string

// Client → Server
const (
	MessageTypeCreateRoom   MessageType = "create_room"
	MessageTypeJoinRoom     MessageType = "join_room"
	MessageTypeLeaveRoom    MessageType = "leave_room"
	MessageTypeReconnect    MessageType = "reconnect"
	MessageTypeToggleReady  MessageType = "toggle_ready"
	MessageTypePlayerAction MessageType = "player_action"
	MessageTypeGetRooms     MessageType = "get_rooms"
	MessageTypeGetHistory   MessageType = "get_history"
	MessageTypePing         MessageType = "ping"
)

// Server → Client
const (
	MessageTypeWelcome     MessageType = "welcome"
	MessageTypeRoomCreated MessageType = "room_created"
	MessageTypeRoomJoined  MessageType = "room_joined"
	MessageTypeGameState   MessageType = "game_state"
	MessageTypeRoomList    MessageType = "room_list"
	MessageTypeGameHistory MessageType = "game_history"
	MessageTypeError       MessageType = "error"
	MessageTypePong        MessageType = "pong"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type CreateRoomData struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type LeaveRoomData struct {
	RoomID string `json:"roomId"`
}

type ReconnectData struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
}

type ToggleReadyData struct {
	RoomID string `json:"roomId"`
}

type PlayerActionData struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type GetHistoryData struct {
	RoomID string `json:"roomId"`
}

// Server → Client Messages

type WelcomeData struct {
	PlayerID string `json:"playerId"`
	Version  string `json:"version"`
}

type RoomCreatedData struct {
	RoomID    string     `json:"roomId"`
	State     room.State `json:"state"`
	Spectator bool       `json:"isSpectator"`
}

type RoomJoinedData struct {
	RoomID    string     `json:"roomId"`
	State     room.State `json:"state"`
	Spectator bool       `json:"isSpectator"`
}

type RoomListData struct {
	Rooms []room.Summary `json:"rooms"`
}

type GameHistoryData struct {
	RoomID  string                `json:"roomId"`
	History *room.HistorySnapshot `json:"history"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"holdem-server/internal/registry"
	"holdem-server/internal/room"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	roomID    string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	server    *Server
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, playerID string, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		playerID: playerID,
		logger:   logger.WithPrefix("conn").With("player", playerID),
		ctx:      ctx,
		cancel:   cancel,
		server:   server,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// PlayerID returns the player id bound to this connection
func (c *Connection) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) setPlayerID(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// RoomID returns the room this connection is seated in, empty if none
func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Connection) setRoomID(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse create room data")
			return
		}
		c.handleCreateRoom(data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave room data")
			return
		}
		c.handleLeaveRoom(data)

	case MessageTypeReconnect:
		var data ReconnectData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse reconnect data")
			return
		}
		c.handleReconnect(data)

	case MessageTypeToggleReady:
		var data ToggleReadyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse toggle ready data")
			return
		}
		c.handleToggleReady(data)

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse player action data")
			return
		}
		c.handlePlayerAction(data)

	case MessageTypeGetRooms:
		c.handleGetRooms()

	case MessageTypeGetHistory:
		var data GetHistoryData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse get history data")
			return
		}
		c.handleGetHistory(data)

	case MessageTypePing:
		c.sendMessage(MessageTypePong, nil)

	default:
		c.sendError("unknown_message", "Unknown message type: "+string(msg.Type))
	}
}

func (c *Connection) handleCreateRoom(data CreateRoomData) {
	if data.PlayerName == "" {
		c.sendError("invalid_name", "Player name is required")
		return
	}

	roomID, err := c.server.registry.CreateRoom(c.PlayerID(), data.PlayerName)
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.setRoomID(roomID)

	state, err := c.server.registry.StateFor(roomID, c.PlayerID())
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.sendMessage(MessageTypeRoomCreated, RoomCreatedData{RoomID: roomID, State: state})
}

func (c *Connection) handleJoinRoom(data JoinRoomData) {
	if data.PlayerName == "" {
		c.sendError("invalid_name", "Player name is required")
		return
	}

	spectator, err := c.server.registry.Join(data.RoomID, c.PlayerID(), data.PlayerName)
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.setRoomID(data.RoomID)

	state, err := c.server.registry.StateFor(data.RoomID, c.PlayerID())
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.sendMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID:    data.RoomID,
		State:     state,
		Spectator: spectator,
	})
	c.server.broadcastRoom(data.RoomID)
}

func (c *Connection) handleLeaveRoom(data LeaveRoomData) {
	if err := c.server.registry.Leave(data.RoomID, c.PlayerID()); err != nil {
		c.sendRegistryError(err)
		return
	}
	c.setRoomID("")
	c.server.broadcastRoom(data.RoomID)
}

// handleReconnect rebinds this connection to a previously assigned player id
// so a dropped client resumes its seat and stack
func (c *Connection) handleReconnect(data ReconnectData) {
	if data.PlayerID == "" || data.RoomID == "" {
		c.sendError("invalid_message", "Player id and room id are required")
		return
	}

	spectator, err := c.server.registry.Reconnect(data.RoomID, data.PlayerID)
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.server.rebind(c, data.PlayerID)
	c.setPlayerID(data.PlayerID)
	c.setRoomID(data.RoomID)

	state, err := c.server.registry.StateFor(data.RoomID, data.PlayerID)
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.sendMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID:    data.RoomID,
		State:     state,
		Spectator: spectator,
	})
	c.server.broadcastRoom(data.RoomID)
}

func (c *Connection) handleToggleReady(data ToggleReadyData) {
	if err := c.server.registry.ToggleReady(data.RoomID, c.PlayerID()); err != nil {
		c.sendRegistryError(err)
		return
	}
	c.server.broadcastRoom(data.RoomID)
}

func (c *Connection) handlePlayerAction(data PlayerActionData) {
	err := c.server.registry.Apply(data.RoomID, c.PlayerID(), room.Action(data.Action), data.Amount)
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.server.broadcastRoom(data.RoomID)
}

func (c *Connection) handleGetRooms() {
	c.sendMessage(MessageTypeRoomList, RoomListData{Rooms: c.server.registry.ListRooms()})
}

func (c *Connection) handleGetHistory(data GetHistoryData) {
	history, err := c.server.registry.History(data.RoomID)
	if err != nil {
		c.sendRegistryError(err)
		return
	}
	c.sendMessage(MessageTypeGameHistory, GameHistoryData{RoomID: data.RoomID, History: history})
}

func (c *Connection) sendMessage(messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to build message", "type", messageType, "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(code, message string) {
	c.sendMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}

// sendRegistryError maps game errors to stable wire codes
func (c *Connection) sendRegistryError(err error) {
	switch {
	case errors.Is(err, registry.ErrRoomNotFound):
		c.sendError("room_not_found", err.Error())
	case errors.Is(err, room.ErrRoomFull):
		c.sendError("room_full", err.Error())
	case errors.Is(err, room.ErrPlayerNotFound):
		c.sendError("player_not_found", err.Error())
	case errors.Is(err, room.ErrNotYourTurn):
		c.sendError("not_your_turn", err.Error())
	case errors.Is(err, room.ErrIllegalAction):
		c.sendError("illegal_action", err.Error())
	case errors.Is(err, room.ErrInsufficientPlayers):
		c.sendError("insufficient_players", err.Error())
	default:
		c.sendError("internal_error", err.Error())
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"holdem-server/internal/registry"
)

// Version is reported in the welcome message and on /api/version
const Version = "1.2.0"

// Server represents the WebSocket server
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	byPlayer    map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	registry    *registry.Registry
}

// NewServer creates a new WebSocket server
func NewServer(addr string, reg *registry.Registry, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		byPlayer:    make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		registry:    reg,
	}
	reg.SetBroadcast(s.broadcastRoom)
	return s
}

// Start runs the WebSocket server until Stop is called or the listener
// fails
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	httpServer := &http.Server{Addr: s.addr, Handler: mux}

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		s.run()
		return nil
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpServer.Shutdown(context.Background())
	})
	return g.Wait()
}

// Stop stops the WebSocket server
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			s.byPlayer[conn.PlayerID()] = conn
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "player", conn.PlayerID(), "total", total)

		case conn := <-s.unregister:
			playerID := conn.PlayerID()
			roomID := conn.RoomID()

			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				if s.byPlayer[playerID] == conn {
					delete(s.byPlayer, playerID)
				}
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()

			// The seat is held for a possible reconnect; the room folds
			// the player out of a running hand if it was their turn
			s.registry.Disconnect(playerID)
			if roomID != "" {
				s.broadcastRoom(roomID)
			}
			s.logger.Info("Client disconnected", "player", playerID, "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	playerID := uuid.NewString()
	client := NewConnection(conn, playerID, s.logger, s)
	s.register <- client
	client.Start()

	client.sendMessage(MessageTypeWelcome, WelcomeData{PlayerID: playerID, Version: Version})

	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleVersion reports the server version as JSON
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// broadcastRoom sends each seated player their own masked view of the room.
// Safe to call for rooms that no longer exist.
func (s *Server) broadcastRoom(roomID string) {
	states, err := s.registry.States(roomID)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for playerID, state := range states {
		conn, ok := s.byPlayer[playerID]
		if !ok {
			continue
		}
		msg, err := NewMessage(MessageTypeGameState, state)
		if err != nil {
			s.logger.Error("Failed to build game state message", "error", err)
			continue
		}
		_ = conn.SendMessage(msg)
	}
}

// rebind points the player id routing table at a new connection, replacing
// whatever connection held the id before
func (s *Server) rebind(conn *Connection, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old := conn.PlayerID(); s.byPlayer[old] == conn {
		delete(s.byPlayer, old)
	}
	s.byPlayer[playerID] = conn
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/Babyy-dev/blackjack/internal/game"
	"github.com/Babyy-dev/blackjack/internal/store"
	"github.com/Babyy-dev/blackjack/internal/table"
	"github.com/Babyy-dev/blackjack/internal/tableid"
	"github.com/Babyy-dev/blackjack/internal/wallet"
)

// Server owns the WebSocket endpoint, the lobby and every table session. One
// Server is one casino process.
type Server struct {
	cfg         *ServerConfig
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc

	clock  quartz.Clock
	seed   int64
	tables *table.Registry
	lobby  *Lobby
	ledger *wallet.Ledger
	db     *store.DB // nil when no database is configured

	httpServer *http.Server
}

// NewServer creates the casino server. db may be nil.
func NewServer(cfg *ServerConfig, logger *log.Logger, clock quartz.Clock, seed int64, db *store.DB) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		clock:       clock,
		seed:        seed,
		tables:      table.NewRegistry(logger),
		lobby:       NewLobby(logger),
		ledger:      wallet.NewLedger(),
		db:          db,
	}
	return s
}

// Start creates the configured tables and serves until the context is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.run()

	for i, tc := range s.cfg.Tables {
		if _, err := s.createTable(tc, s.seed+int64(i)); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/admin/", s.adminRouter())

	s.httpServer = &http.Server{
		Addr:    s.cfg.GetServerAddress(),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	s.logger.Info("starting casino server", "addr", s.httpServer.Addr, "tables", len(s.cfg.Tables))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts everything down: HTTP listener, table sessions, connections.
func (s *Server) Stop() error {
	s.cancel()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}

	s.tables.Close()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return nil
}

// createTable builds a session from a table preset and registers it with the
// lobby. The returned session is already running.
func (s *Server) createTable(tc TableConfig, seed int64) (*table.Session, error) {
	tableID := tableid.New()
	session, err := s.tables.Create(s.ctx, table.Config{
		TableID:       tableID,
		Name:          tc.Name,
		Rules:         tc.Rules(),
		Seed:          seed,
		TurnTimeout:   tc.TurnTimeoutDuration(),
		RoundInterval: tc.RoundIntervalDuration(),
		AutoRestart:   tc.AutoRestart,
		Clock:         s.clock,
		Wallet:        s.ledger,
		Accounts:      s.ledger,
		Logger:        s.logger,
		EventSink:     s.sinkEvents(tableID),
		OnUpdate:      s.broadcastState(tableID),
	})
	if err != nil {
		return nil, err
	}
	code := s.lobby.AddTable(tableID, tc.Private, tc.MaxPlayers)
	if code != "" {
		s.logger.Info("private table ready", "table", tableID, "name", tc.Name)
	}
	return session, nil
}

// sinkEvents forwards drained audit events to connected clients and, when a
// database is configured, persists them off the session loop.
func (s *Server) sinkEvents(tableID string) func([]game.Event) {
	return func(events []game.Event) {
		if msg, err := NewMessage(MessageTypeGameEvent, GameEventData{Events: events}); err == nil {
			s.BroadcastToTable(tableID, msg)
		}
		if s.db == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.db.InsertEvents(ctx, events); err != nil {
				s.logger.Error("failed to persist audit events", "table", tableID, "error", err)
			}
		}()
	}
}

func (s *Server) broadcastState(tableID string) func(game.Snapshot) {
	return func(snap game.Snapshot) {
		msg, err := NewMessage(MessageTypeTableState, TableStateData{State: snap})
		if err != nil {
			s.logger.Error("failed to create state message", "error", err)
			return
		}
		s.BroadcastToTable(tableID, msg)
	}
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, known := s.connections[conn]
			if known {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()
			if !known {
				continue
			}

			// Unseat the player from whatever table they were at. This
			// runs outside the lock: leaveTable announces the departure,
			// which broadcasts to the remaining connections.
			playerID := conn.GetPlayer()
			tableID := conn.GetTable()
			if playerID != "" && tableID != "" {
				s.logger.Info("cleaning up disconnected player", "player", playerID, "table", tableID)
				_ = s.leaveTable(tableID, playerID)
			}
			_ = conn.Close()
			s.logger.Info("client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// leaveTable removes a player from both the lobby roster and the engine.
func (s *Server) leaveTable(tableID, playerID string) error {
	name := s.lobby.DisplayName(tableID, playerID)
	_ = s.lobby.Leave(tableID, playerID)
	session, ok := s.tables.Get(tableID)
	if !ok {
		return ErrTableNotFound
	}
	if err := session.Leave(playerID); err != nil {
		return err
	}
	if name != "" {
		s.announce(tableID, name+" left the table")
	}
	return nil
}

// announce stores a system chat line on a table and broadcasts it.
func (s *Server) announce(tableID, text string) {
	entry, err := s.lobby.SystemMessage(tableID, text)
	if err != nil {
		return
	}
	msg, err := NewMessage(MessageTypeChatMessage, ChatMessageData{
		TableID: tableID,
		Text:    entry.Text,
		System:  true,
		SentAt:  entry.SentAt,
	})
	if err != nil {
		return
	}
	s.BroadcastToTable(tableID, msg)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.register <- client
	client.Start()

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

// BroadcastToTable sends a message to all connections at a specific table
func (s *Server) BroadcastToTable(tableID string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.GetTable() == tableID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("failed to send message to client", "error", err, "player", conn.GetPlayer())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("broadcast to table", "tableId", tableID, "type", msg.Type, "recipients", count)
}

// SendToPlayer sends a message to a specific player
func (s *Server) SendToPlayer(playerID string, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetPlayer() == playerID {
			return conn.SendMessage(msg)
		}
	}
	return fmt.Errorf("player not found: %s", playerID)
}

// tableInfos snapshots every public table for a lobby listing.
func (s *Server) tableInfos() []TableInfo {
	infos := make([]TableInfo, 0)
	for _, session := range s.tables.List() {
		if s.lobby.InviteCode(session.ID()) != "" {
			continue // private tables are join-by-code only
		}
		snap := session.Snapshot()
		infos = append(infos, TableInfo{
			TableID:    session.ID(),
			Name:       session.Name(),
			Status:     snap.Status,
			Seats:      len(snap.Seats),
			MaxPlayers: s.lobby.MaxPlayers(session.ID()),
			MinBet:     snap.Rules.MinBet,
			MaxBet:     snap.Rules.MaxBet,
		})
	}
	return infos
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Babyy-dev/blackjack/internal/game"
	"github.com/Babyy-dev/blackjack/internal/table"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	tableID   string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	server    *Server
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		server: server,
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
			// Channel was closed, expected during shutdown.
			c.logger.Debug("attempted to send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// GetTable returns the associated table ID
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
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

var ErrConnectionClosed = websocket.ErrCloseSent

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
				c.logger.Error("websocket error", "error", err)
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
				c.logger.Error("failed to write message", "error", err)
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
	c.logger.Debug("received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeListTables:
		c.handleListTables()

	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case MessageTypeReady:
		var data ReadyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse ready data")
			return
		}
		c.handleReady(data)

	case MessageTypeStartRound:
		var data StartRoundData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start round data")
			return
		}
		c.handleStartRound(data)

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse player action data")
			return
		}
		c.handlePlayerAction(data)

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chat data")
			return
		}
		c.handleChat(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(errorMsg)
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("auth request", "playerName", data.PlayerName)

	// Simple authentication: accept any non-empty player name.
	if data.PlayerName == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	c.SetPlayer(data.PlayerName)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: data.PlayerName,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListTables() {
	response, _ := NewMessage(MessageTypeTableList, TableListData{
		Tables: c.server.tableInfos(),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	tableID := data.TableID
	if tableID == "" && data.InviteCode != "" {
		resolved, err := c.server.lobby.ResolveInviteCode(data.InviteCode)
		if err != nil {
			c.sendError("invalid_invite", err.Error())
			return
		}
		tableID = resolved
	}

	session, ok := c.server.tables.Get(tableID)
	if !ok {
		c.sendError("table_not_found", "Table not found")
		return
	}

	// Joining while seated elsewhere moves the player: leave the old table
	// first so the roster check does not reject the join.
	if prev, seated := c.server.lobby.TableFor(playerID); seated && prev != tableID {
		if err := c.server.leaveTable(prev, playerID); err != nil {
			c.sendError("leave_failed", err.Error())
			return
		}
		left, _ := NewMessage(MessageTypeTableLeft, TableLeftData{TableID: prev})
		_ = c.SendMessage(left)
	}

	if err := c.server.lobby.Join(tableID, playerID, playerID, data.InviteCode); err != nil {
		switch {
		case errors.Is(err, ErrTableFull):
			c.sendError("table_full", "Table is full")
		case errors.Is(err, ErrBadInviteCode):
			c.sendError("invalid_invite", err.Error())
		default:
			c.sendError("join_failed", err.Error())
		}
		return
	}
	if err := session.Join(playerID, playerID); err != nil {
		_ = c.server.lobby.Leave(tableID, playerID)
		c.sendError("join_failed", err.Error())
		return
	}

	c.SetTable(tableID)
	c.server.announce(tableID, playerID+" joined the table")

	response, _ := NewMessage(MessageTypeTableJoined, TableJoinedData{
		TableID:    tableID,
		InviteCode: c.server.lobby.InviteCode(tableID),
		State:      session.Snapshot(),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveTable(data LeaveTableData) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	if err := c.server.leaveTable(data.TableID, playerID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}
	c.SetTable("")

	response, _ := NewMessage(MessageTypeTableLeft, TableLeftData{TableID: data.TableID})
	_ = c.SendMessage(response)
}

// handleReady flips the ready flag; when the whole roster is ready the next
// round starts without waiting for an explicit start.
func (c *Connection) handleReady(data ReadyData) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	allReady, err := c.server.lobby.SetReady(data.TableID, playerID, data.Ready)
	if err != nil {
		c.sendError("ready_failed", err.Error())
		return
	}
	if allReady {
		c.startRound(data.TableID)
	}
}

func (c *Connection) handleStartRound(data StartRoundData) {
	if c.GetPlayer() == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	c.startRound(data.TableID)
}

func (c *Connection) startRound(tableID string) {
	session, ok := c.server.tables.Get(tableID)
	if !ok {
		c.sendError("table_not_found", "Table not found")
		return
	}
	if err := session.StartRound(); err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.server.lobby.ClearReady(tableID)
}

func (c *Connection) handlePlayerAction(data PlayerActionData) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	session, ok := c.server.tables.Get(data.TableID)
	if !ok {
		c.sendError("table_not_found", "Table not found")
		return
	}

	var err error
	switch data.Action {
	case "hit":
		err = session.Hit(playerID)
	case "stand":
		err = session.Stand(playerID)
	case "double":
		err = session.DoubleDown(playerID)
	case "split":
		err = session.Split(playerID)
	default:
		c.sendError("invalid_action", "Unknown action: "+data.Action)
		return
	}
	if err != nil {
		c.sendError(errorCode(err), err.Error())
	}
}

func (c *Connection) handleChat(data ChatData) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	entry, err := c.server.lobby.Chat(data.TableID, playerID, data.Text)
	if err != nil {
		c.sendError("chat_failed", err.Error())
		return
	}
	msg, err := NewMessage(MessageTypeChatMessage, ChatMessageData{
		TableID:  data.TableID,
		UserID:   entry.UserID,
		UserName: entry.UserName,
		Text:     entry.Text,
		System:   entry.System,
		SentAt:   entry.SentAt,
	})
	if err != nil {
		return
	}
	c.server.BroadcastToTable(data.TableID, msg)
}

// errorCode maps engine and session errors to wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, game.ErrNoActiveHand):
		return "no_active_hand"
	case errors.Is(err, game.ErrStaleTurn):
		return "stale_turn"
	case errors.Is(err, game.ErrInsufficientBank):
		return "insufficient_bank"
	case errors.Is(err, game.ErrRoundInProgress):
		return "round_in_progress"
	case errors.Is(err, game.ErrNoSeatsReady):
		return "no_seats_ready"
	case errors.Is(err, table.ErrPaused):
		return "table_paused"
	case errors.Is(err, table.ErrBettingLocked):
		return "betting_locked"
	case errors.Is(err, table.ErrSessionClosed):
		return "table_closed"
	default:
		return "action_failed"
	}
}

package server

import (
	"encoding/json"
	"time"

	"github.com/Babyy-dev/blackjack/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
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

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type JoinTableData struct {
	TableID    string `json:"tableId"`
	InviteCode string `json:"inviteCode,omitempty"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type ReadyData struct {
	TableID string `json:"tableId"`
	Ready   bool   `json:"ready"`
}

type StartRoundData struct {
	TableID string `json:"tableId"`
}

// PlayerActionData carries a blackjack action: hit, stand, double or split.
type PlayerActionData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
}

type ChatData struct {
	TableID string `json:"tableId"`
	Text    string `json:"text"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	TableID    string `json:"tableId"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Seats      int    `json:"seats"`
	MaxPlayers int    `json:"maxPlayers"`
	MinBet     int    `json:"minBet"`
	MaxBet     int    `json:"maxBet"`
	Private    bool   `json:"private"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type TableJoinedData struct {
	TableID    string        `json:"tableId"`
	InviteCode string        `json:"inviteCode,omitempty"`
	State      game.Snapshot `json:"state"`
}

type TableLeftData struct {
	TableID string `json:"tableId"`
}

// TableStateData is broadcast after every committed table command.
type TableStateData struct {
	State game.Snapshot `json:"state"`
}

type GameEventData struct {
	Events []game.Event `json:"events"`
}

type ChatMessageData struct {
	TableID  string    `json:"tableId"`
	UserID   string    `json:"userId,omitempty"`
	UserName string    `json:"userName,omitempty"`
	Text     string    `json:"text"`
	System   bool      `json:"system,omitempty"`
	SentAt   time.Time `json:"sentAt"`
}

type TablePausedData struct {
	TableID string `json:"tableId"`
	Paused  bool   `json:"paused"`
}

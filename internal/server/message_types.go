package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeAuth         MessageType = "auth"
	MessageTypeListTables   MessageType = "list_tables"
	MessageTypeJoinTable    MessageType = "join_table"
	MessageTypeLeaveTable   MessageType = "leave_table"
	MessageTypeReady        MessageType = "ready"
	MessageTypeStartRound   MessageType = "start_round"
	MessageTypePlayerAction MessageType = "player_action"
	MessageTypeChat         MessageType = "chat"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeTableJoined  MessageType = "table_joined"
	MessageTypeTableLeft    MessageType = "table_left"
	MessageTypeTableState   MessageType = "table_state"
	MessageTypeGameEvent    MessageType = "game_event"
	MessageTypeChatMessage  MessageType = "chat_message"
	MessageTypeTablePaused  MessageType = "table_paused"
	MessageTypeError        MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

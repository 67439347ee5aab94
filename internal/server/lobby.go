package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Babyy-dev/blackjack/internal/tableid"
)

const (
	// ChatHistoryLimit caps the retained chat backlog per table.
	ChatHistoryLimit = 150

	MinTablePlayers = 2
	MaxTablePlayers = 8
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableFull     = errors.New("table is full")
	ErrBadInviteCode = errors.New("invite code not recognised")
	ErrPlayerMuted   = errors.New("player is muted")
	ErrNotAtTable    = errors.New("player is not at this table")
	ErrAlreadySeated = errors.New("player already seated at another table")
	ErrEmptyChatText = errors.New("chat text is empty")
)

// LobbyPlayer is a player's roster entry at one table.
type LobbyPlayer struct {
	UserID      string
	DisplayName string
	Ready       bool
	JoinedAt    time.Time
	MutedUntil  time.Time
}

// ChatEntry is one retained chat line. System lines carry table announcements
// (joins, leaves, admin notices) and have no sending player.
type ChatEntry struct {
	UserID   string    `json:"userId,omitempty"`
	UserName string    `json:"userName,omitempty"`
	Text     string    `json:"text"`
	System   bool      `json:"system,omitempty"`
	SentAt   time.Time `json:"sentAt"`
}

type lobbyTable struct {
	tableID    string
	inviteCode string // empty for public tables
	maxPlayers int
	players    map[string]*LobbyPlayer
	chat       []ChatEntry
}

// Lobby tracks which players sit at which tables, private-table invite codes
// and the per-table chat backlog. It is the roster the engine's seat list is
// reconciled against; the engine itself never sees chat or readiness.
type Lobby struct {
	mu          sync.Mutex
	tables      map[string]*lobbyTable
	inviteCodes map[string]string // code -> tableID
	seatedAt    map[string]string // userID -> tableID
	logger      *log.Logger
}

// NewLobby creates an empty lobby.
func NewLobby(logger *log.Logger) *Lobby {
	return &Lobby{
		tables:      make(map[string]*lobbyTable),
		inviteCodes: make(map[string]string),
		seatedAt:    make(map[string]string),
		logger:      logger.WithPrefix("lobby"),
	}
}

// AddTable registers a table. The roster cap is clamped to the supported
// range. Private tables get a unique invite code, which is returned; public
// tables return "".
func (l *Lobby) AddTable(tableID string, private bool, maxPlayers int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := &lobbyTable{
		tableID:    tableID,
		maxPlayers: clampMaxPlayers(maxPlayers),
		players:    make(map[string]*LobbyPlayer),
	}
	if private {
		for {
			code := tableid.NewInviteCode()
			if _, taken := l.inviteCodes[code]; !taken {
				l.inviteCodes[code] = tableID
				t.inviteCode = code
				break
			}
		}
	}
	l.tables[tableID] = t
	return t.inviteCode
}

func clampMaxPlayers(n int) int {
	if n == 0 {
		return MaxTablePlayers
	}
	if n < MinTablePlayers {
		return MinTablePlayers
	}
	if n > MaxTablePlayers {
		return MaxTablePlayers
	}
	return n
}

// RemoveTable drops a table, its invite code and its roster.
func (l *Lobby) RemoveTable(tableID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return
	}
	if t.inviteCode != "" {
		delete(l.inviteCodes, t.inviteCode)
	}
	for userID := range t.players {
		delete(l.seatedAt, userID)
	}
	delete(l.tables, tableID)
}

// ResolveInviteCode maps an invite code to its table ID.
func (l *Lobby) ResolveInviteCode(code string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tableID, ok := l.inviteCodes[tableid.NormalizeInviteCode(code)]
	if !ok {
		return "", ErrBadInviteCode
	}
	return tableID, nil
}

// Join adds a player to a table's roster. A private table requires its invite
// code; a player seated elsewhere must leave first.
func (l *Lobby) Join(tableID, userID, displayName, inviteCode string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return ErrTableNotFound
	}
	if prev, seated := l.seatedAt[userID]; seated && prev != tableID {
		return fmt.Errorf("%w: %s", ErrAlreadySeated, prev)
	}
	if t.inviteCode != "" && tableid.NormalizeInviteCode(inviteCode) != t.inviteCode {
		return ErrBadInviteCode
	}
	if _, rejoined := t.players[userID]; !rejoined {
		if len(t.players) >= t.maxPlayers {
			return ErrTableFull
		}
		t.players[userID] = &LobbyPlayer{
			UserID:      userID,
			DisplayName: displayName,
			JoinedAt:    time.Now(),
		}
	}
	l.seatedAt[userID] = tableID
	l.logger.Debug("player joined lobby table", "table", tableID, "user", userID)
	return nil
}

// Leave removes a player from a table's roster.
func (l *Lobby) Leave(tableID, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return ErrTableNotFound
	}
	if _, present := t.players[userID]; !present {
		return ErrNotAtTable
	}
	delete(t.players, userID)
	delete(l.seatedAt, userID)
	return nil
}

// SetReady flips a player's ready flag and reports whether every rostered
// player is now ready.
func (l *Lobby) SetReady(tableID, userID string, ready bool) (allReady bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return false, ErrTableNotFound
	}
	p, present := t.players[userID]
	if !present {
		return false, ErrNotAtTable
	}
	p.Ready = ready
	for _, other := range t.players {
		if !other.Ready {
			return false, nil
		}
	}
	return len(t.players) > 0, nil
}

// ClearReady resets every ready flag, called when a round starts.
func (l *Lobby) ClearReady(tableID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tables[tableID]; ok {
		for _, p := range t.players {
			p.Ready = false
		}
	}
}

// Mute silences a player at a table until the given time.
func (l *Lobby) Mute(tableID, userID string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return ErrTableNotFound
	}
	p, present := t.players[userID]
	if !present {
		return ErrNotAtTable
	}
	p.MutedUntil = until
	return nil
}

// Chat appends a line to the table's backlog, trimming it to the retention
// limit, and returns the stored entry for broadcast.
func (l *Lobby) Chat(tableID, userID, text string) (ChatEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return ChatEntry{}, ErrTableNotFound
	}
	p, present := t.players[userID]
	if !present {
		return ChatEntry{}, ErrNotAtTable
	}
	if text == "" {
		return ChatEntry{}, ErrEmptyChatText
	}
	if time.Now().Before(p.MutedUntil) {
		return ChatEntry{}, ErrPlayerMuted
	}
	entry := ChatEntry{
		UserID:   userID,
		UserName: p.DisplayName,
		Text:     text,
		SentAt:   time.Now(),
	}
	t.chat = append(t.chat, entry)
	if len(t.chat) > ChatHistoryLimit {
		t.chat = t.chat[len(t.chat)-ChatHistoryLimit:]
	}
	return entry, nil
}

// SystemMessage appends a table announcement to the chat backlog and returns
// the stored entry for broadcast.
func (l *Lobby) SystemMessage(tableID, text string) (ChatEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return ChatEntry{}, ErrTableNotFound
	}
	entry := ChatEntry{
		Text:   text,
		System: true,
		SentAt: time.Now(),
	}
	t.chat = append(t.chat, entry)
	if len(t.chat) > ChatHistoryLimit {
		t.chat = t.chat[len(t.chat)-ChatHistoryLimit:]
	}
	return entry, nil
}

// ChatHistory returns a copy of the table's retained chat.
func (l *Lobby) ChatHistory(tableID string) []ChatEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return nil
	}
	return append([]ChatEntry(nil), t.chat...)
}

// Players returns the roster user IDs for a table.
func (l *Lobby) Players(tableID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[tableID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(t.players))
	for id := range t.players {
		ids = append(ids, id)
	}
	return ids
}

// TableFor returns the table a player is currently seated at.
func (l *Lobby) TableFor(userID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tableID, ok := l.seatedAt[userID]
	return tableID, ok
}

// DisplayName returns a rostered player's display name.
func (l *Lobby) DisplayName(tableID, userID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tables[tableID]; ok {
		if p, present := t.players[userID]; present {
			return p.DisplayName
		}
	}
	return ""
}

// MaxPlayers returns a table's roster cap, zero for unknown tables.
func (l *Lobby) MaxPlayers(tableID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tables[tableID]; ok {
		return t.maxPlayers
	}
	return 0
}

// InviteCode returns a private table's invite code, empty for public tables.
func (l *Lobby) InviteCode(tableID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.tables[tableID]; ok {
		return t.inviteCode
	}
	return ""
}

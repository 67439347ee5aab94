package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Babyy-dev/blackjack/internal/game"
)

// adminRouter exposes the pit-boss surface: pause/resume, betting locks,
// stuck-turn overrides, forced results and rules changes. Everything requires
// the configured bearer token; with no token configured the surface is off.
func (s *Server) adminRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdminToken)

		r.Get("/tables", s.adminListTables)
		r.Post("/tables", s.adminCreateTable)

		r.Route("/tables/{tableID}", func(r chi.Router) {
			r.Get("/", s.adminGetTable)
			r.Delete("/", s.adminRemoveTable)
			r.Get("/chat", s.adminGetChat)
			r.Get("/events", s.adminGetEvents)
			r.Post("/pause", s.adminTableOp(func(sess tableSession) error { return sess.Pause() }))
			r.Post("/resume", s.adminTableOp(func(sess tableSession) error { return sess.Resume() }))
			r.Post("/lock", s.adminTableOp(func(sess tableSession) error { return sess.LockBetting() }))
			r.Post("/unlock", s.adminTableOp(func(sess tableSession) error { return sess.UnlockBetting() }))
			r.Post("/end-round", s.adminTableOp(func(sess tableSession) error { return sess.ForceEndRound() }))
			r.Post("/force-stand", s.adminForceStand)
			r.Post("/force-result", s.adminForceResult)
			r.Put("/rules", s.adminUpdateRules)
			r.Post("/mute", s.adminMute)
		})
	})
	return r
}

// tableSession is the slice of the session API the generic admin ops need.
type tableSession interface {
	Pause() error
	Resume() error
	LockBetting() error
	UnlockBetting() error
	ForceEndRound() error
}

func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Server.AdminToken
		if token == "" {
			http.Error(w, "admin interface disabled", http.StatusForbidden)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) adminListTables(w http.ResponseWriter, r *http.Request) {
	type adminTable struct {
		TableInfo
		InviteCode string `json:"inviteCode,omitempty"`
	}
	tables := make([]adminTable, 0)
	for _, session := range s.tables.List() {
		snap := session.Snapshot()
		tables = append(tables, adminTable{
			TableInfo: TableInfo{
				TableID: session.ID(),
				Name:    session.Name(),
				Status:  snap.Status,
				Seats:   len(snap.Seats),
				MinBet:  snap.Rules.MinBet,
				MaxBet:  snap.Rules.MaxBet,
				Private: s.lobby.InviteCode(session.ID()) != "",
			},
			InviteCode: s.lobby.InviteCode(session.ID()),
		})
	}
	writeJSON(w, map[string]any{"tables": tables})
}

func (s *Server) adminCreateTable(w http.ResponseWriter, r *http.Request) {
	var tc TableConfig
	if err := json.NewDecoder(r.Body).Decode(&tc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defaults := game.DefaultRules()
	if tc.MinBet == 0 {
		tc.MinBet = defaults.MinBet
	}
	if tc.MaxBet == 0 {
		tc.MaxBet = defaults.MaxBet
	}
	if tc.Decks == 0 {
		tc.Decks = defaults.Decks
	}
	if tc.StartingBank == 0 {
		tc.StartingBank = defaults.StartingBank
	}
	if tc.TurnTimeout == 0 {
		tc.TurnTimeout = 30
	}
	if tc.RoundInterval == 0 {
		tc.RoundInterval = 5
	}
	if tc.MaxPlayers == 0 {
		tc.MaxPlayers = MaxTablePlayers
	}
	if err := tc.Rules().Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	session, err := s.createTable(tc, time.Now().UnixNano())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"tableId":    session.ID(),
		"inviteCode": s.lobby.InviteCode(session.ID()),
	})
}

func (s *Server) adminGetTable(w http.ResponseWriter, r *http.Request) {
	session, ok := s.tables.Get(chi.URLParam(r, "tableID"))
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	writeJSON(w, session.Snapshot())
}

func (s *Server) adminRemoveTable(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	if _, ok := s.tables.Get(tableID); !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	s.tables.Remove(tableID)
	s.lobby.RemoveTable(tableID)
	writeJSON(w, map[string]any{"removed": tableID})
}

func (s *Server) adminGetChat(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	if _, ok := s.tables.Get(tableID); !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"chat": s.lobby.ChatHistory(tableID)})
}

func (s *Server) adminGetEvents(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	tableID := chi.URLParam(r, "tableID")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	events, err := s.db.RecentEvents(r.Context(), tableID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"events": events})
}

// adminTableOp wraps the session ops that need no request body.
func (s *Server) adminTableOp(op func(tableSession) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.tables.Get(chi.URLParam(r, "tableID"))
		if !ok {
			http.Error(w, "table not found", http.StatusNotFound)
			return
		}
		if err := op(session); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func (s *Server) adminForceStand(w http.ResponseWriter, r *http.Request) {
	session, ok := s.tables.Get(chi.URLParam(r, "tableID"))
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	var body struct {
		SeatID string `json:"seatId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body) // empty body targets the active seat
	if err := session.ForceStand(body.SeatID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) adminForceResult(w http.ResponseWriter, r *http.Request) {
	session, ok := s.tables.Get(chi.URLParam(r, "tableID"))
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	var body struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := session.ForceResult(game.ForcedOutcome(body.Result)); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) adminUpdateRules(w http.ResponseWriter, r *http.Request) {
	session, ok := s.tables.Get(chi.URLParam(r, "tableID"))
	if !ok {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}
	var rules game.Rules
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := session.UpdateRules(rules); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, rules)
}

func (s *Server) adminMute(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "tableID")
	var body struct {
		UserID  string `json:"userId"`
		Minutes int    `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Minutes <= 0 {
		body.Minutes = 10
	}
	until := time.Now().Add(time.Duration(body.Minutes) * time.Minute)
	if err := s.lobby.Mute(tableID, body.UserID, until); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"mutedUntil": until})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

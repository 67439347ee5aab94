// Package table runs one session per blackjack table. A session owns its
// round engine outright: every mutation is a closure executed on the
// session's single command loop, so the engine itself never needs a lock.
package table

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/Babyy-dev/blackjack/internal/deck"
	"github.com/Babyy-dev/blackjack/internal/game"
	"github.com/Babyy-dev/blackjack/internal/randutil"
)

var (
	// ErrSessionClosed is returned for commands sent after shutdown.
	ErrSessionClosed = errors.New("table session closed")

	// ErrBettingLocked is returned when a round start is attempted while an
	// admin has locked betting.
	ErrBettingLocked = errors.New("betting is locked")

	// ErrPaused is returned for player actions while the table is paused.
	ErrPaused = errors.New("table is paused")
)

const (
	DefaultTurnTimeout   = 30 * time.Second
	DefaultRoundInterval = 5 * time.Second
)

// Accounts registers seats with an external chip ledger. Optional.
type Accounts interface {
	Register(userID string, balance int)
}

// Config carries everything a session needs. Zero durations fall back to the
// defaults; a nil clock gets the real one.
type Config struct {
	TableID       string
	Name          string
	Rules         game.Rules
	Seed          int64
	TurnTimeout   time.Duration
	RoundInterval time.Duration
	AutoRestart   bool
	Clock         quartz.Clock
	Wallet        game.Wallet
	Accounts      Accounts
	Logger        *log.Logger

	// Shoe overrides the seeded shoe built from Rules. Test use only.
	Shoe *deck.Shoe

	// EventSink receives the audit events drained after each committed
	// command. Called from the session loop; implementations that block
	// should hand off internally.
	EventSink func(events []game.Event)

	// OnUpdate receives the fresh snapshot after each committed command,
	// for broadcast to connected clients.
	OnUpdate func(snap game.Snapshot)
}

type command struct {
	fn    func() error
	reply chan error
}

// Session serializes all access to one table's round engine. Player actions,
// admin overrides and timer expiries all arrive as commands; snapshots are
// served from a cache refreshed after every committed command, so reads never
// wait on the loop.
type Session struct {
	cfg    Config
	round  *game.Round
	clock  quartz.Clock
	logger *log.Logger

	cmds chan command
	done chan struct{}
	once sync.Once

	paused        bool
	bettingLocked bool
	armedToken    uint64
	turnDeadline  time.Time
	turnTimer     *quartz.Timer
	restartTimer  *quartz.Timer

	snapMu sync.RWMutex
	snap   game.Snapshot
}

// NewSession builds a session and its engine. Run must be called before any
// command is issued.
func NewSession(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.RoundInterval <= 0 {
		cfg.RoundInterval = DefaultRoundInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	logger := cfg.Logger.WithPrefix("table").With("table", cfg.TableID)

	shoe := cfg.Shoe
	if shoe == nil {
		shoe = deck.NewShoe(cfg.Rules.Decks, randutil.New(cfg.Seed))
	}
	round := game.NewRound(cfg.TableID, cfg.Rules, shoe, cfg.Wallet, cfg.Logger)

	s := &Session{
		cfg:    cfg,
		round:  round,
		clock:  cfg.Clock,
		logger: logger,
		cmds:   make(chan command, 64),
		done:   make(chan struct{}),
	}
	s.snap = round.Snapshot()
	return s
}

// ID returns the table identifier.
func (s *Session) ID() string { return s.cfg.TableID }

// Name returns the table's display name.
func (s *Session) Name() string { return s.cfg.Name }

// Run processes commands until the context is cancelled or Stop is called.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("table session started", "name", s.cfg.Name)
	defer s.stopTimers()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("table session stopped", "reason", ctx.Err())
			s.Stop()
			return
		case <-s.done:
			s.logger.Info("table session stopped")
			return
		case cmd := <-s.cmds:
			err := cmd.fn()
			s.afterCommand()
			if cmd.reply != nil {
				cmd.reply <- err
			}
		}
	}
}

// Stop shuts the session down. Safe to call more than once.
func (s *Session) Stop() {
	s.once.Do(func() { close(s.done) })
}

// Snapshot returns the last committed view of the table. Never blocks on the
// command loop.
func (s *Session) Snapshot() game.Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// do runs fn on the session loop and waits for its result.
func (s *Session) do(fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrSessionClosed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// enqueue submits a command without waiting; used by timer callbacks.
func (s *Session) enqueue(fn func() error) {
	select {
	case s.cmds <- command{fn: fn}:
	case <-s.done:
	}
}

// Join seats a player, registering them with the chip ledger on first entry.
func (s *Session) Join(userID, displayName string) error {
	return s.do(func() error {
		if s.cfg.Accounts != nil {
			s.cfg.Accounts.Register(userID, s.round.Rules().StartingBank)
		}
		s.round.AddSeat(userID, displayName)
		s.logger.Info("player joined", "user", userID, "name", displayName)
		return nil
	})
}

// Leave unseats a player; a departing active turn advances immediately.
func (s *Session) Leave(userID string) error {
	return s.do(func() error {
		s.round.RemoveSeat(userID)
		s.logger.Info("player left", "user", userID)
		return nil
	})
}

// StartRound begins a round if the table is idle, unlocked and not paused.
func (s *Session) StartRound() error {
	return s.do(s.startRoundLocked)
}

func (s *Session) startRoundLocked() error {
	if s.paused {
		return ErrPaused
	}
	if s.bettingLocked {
		return ErrBettingLocked
	}
	if s.round.Status() == game.StatusRoundEnd {
		s.round.Reset()
	}
	return s.round.StartRound()
}

// Hit draws a card for the player's active hand.
func (s *Session) Hit(userID string) error {
	return s.do(func() error {
		if s.paused {
			return ErrPaused
		}
		return s.round.Hit(userID)
	})
}

// Stand ends the player's active hand.
func (s *Session) Stand(userID string) error {
	return s.do(func() error {
		if s.paused {
			return ErrPaused
		}
		return s.round.Stand(userID, false)
	})
}

// DoubleDown doubles the bet for one final card.
func (s *Session) DoubleDown(userID string) error {
	return s.do(func() error {
		if s.paused {
			return ErrPaused
		}
		return s.round.DoubleDown(userID)
	})
}

// Split divides a pair into two hands.
func (s *Session) Split(userID string) error {
	return s.do(func() error {
		if s.paused {
			return ErrPaused
		}
		return s.round.Split(userID)
	})
}

// Pause freezes the table: turn timers stop, actions are rejected and no new
// round starts until Resume.
func (s *Session) Pause() error {
	return s.do(func() error {
		s.paused = true
		s.stopTimers()
		s.logger.Warn("table paused")
		return nil
	})
}

// Resume lifts a pause. A pending turn gets a fresh full timeout.
func (s *Session) Resume() error {
	return s.do(func() error {
		s.paused = false
		s.armedToken = 0 // force a re-arm in afterCommand
		s.logger.Warn("table resumed")
		return nil
	})
}

// LockBetting stops new rounds from starting; the round in flight finishes.
func (s *Session) LockBetting() error {
	return s.do(func() error {
		s.bettingLocked = true
		s.logger.Warn("betting locked")
		return nil
	})
}

// UnlockBetting re-enables round starts.
func (s *Session) UnlockBetting() error {
	return s.do(func() error {
		s.bettingLocked = false
		s.logger.Warn("betting unlocked")
		return nil
	})
}

// ForceStand is the admin override for a stuck turn. An empty seat ID targets
// the active seat.
func (s *Session) ForceStand(seatID string) error {
	return s.do(func() error {
		s.logger.Warn("admin force stand", "seat", seatID)
		return s.round.ForceStand(seatID)
	})
}

// ForceEndRound settles the round immediately against the dealer's current
// total.
func (s *Session) ForceEndRound() error {
	return s.do(func() error {
		s.logger.Warn("admin force end round")
		return s.round.ForceEndRound()
	})
}

// ForceResult imposes an outcome on every unresolved hand.
func (s *Session) ForceResult(outcome game.ForcedOutcome) error {
	return s.do(func() error {
		s.logger.Warn("admin force result", "outcome", outcome)
		return s.round.ForceResult(outcome)
	})
}

// UpdateRules swaps the table rules between rounds, rebuilding the shoe when
// the deck count changes.
func (s *Session) UpdateRules(rules game.Rules) error {
	return s.do(func() error {
		if s.round.Status() == game.StatusRoundEnd {
			s.round.Reset()
		}
		var shoe *deck.Shoe
		if rules.Decks != s.round.Rules().Decks {
			shoe = deck.NewShoe(rules.Decks, randutil.New(s.cfg.Seed))
		}
		if err := s.round.UpdateRules(rules, shoe); err != nil {
			return err
		}
		s.logger.Warn("rules updated", "minBet", rules.MinBet, "maxBet", rules.MaxBet, "decks", rules.Decks)
		return nil
	})
}

// afterCommand keeps the timers consistent with the new state, then refreshes
// the snapshot cache and flushes audit events. Timers are settled first so a
// freshly opened turn's deadline rides in the same snapshot. Runs on the
// session loop.
func (s *Session) afterCommand() {
	if !s.paused {
		switch s.round.Status() {
		case game.StatusPlayerTurn:
			if token := s.round.TurnToken(); token != s.armedToken {
				s.armTurnTimer(token)
			}
		case game.StatusRoundEnd:
			s.stopTurnTimer()
			if s.cfg.AutoRestart && s.restartTimer == nil {
				s.scheduleRestart()
			}
		default:
			s.stopTurnTimer()
		}
	}

	snap := s.round.Snapshot()
	snap.IsPaused = s.paused
	snap.BettingLocked = s.bettingLocked
	if !s.turnDeadline.IsZero() {
		deadline := s.turnDeadline
		snap.TurnDeadline = &deadline
	}
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	if events := s.round.DrainEvents(); len(events) > 0 && s.cfg.EventSink != nil {
		s.cfg.EventSink(events)
	}
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(snap)
	}
}

// armTurnTimer starts the action clock for the turn identified by token. The
// expiry lands on the command loop carrying that token; if the turn advanced
// in the meantime the expiry is stale and dropped.
func (s *Session) armTurnTimer(token uint64) {
	s.stopTurnTimer()
	s.armedToken = token
	s.turnDeadline = s.clock.Now().Add(s.cfg.TurnTimeout)
	s.turnTimer = s.clock.AfterFunc(s.cfg.TurnTimeout, func() {
		s.enqueue(func() error {
			return s.expireTurn(token)
		})
	})
}

func (s *Session) expireTurn(token uint64) error {
	if s.round.Status() != game.StatusPlayerTurn || s.round.TurnToken() != token {
		s.logger.Debug("stale turn timer dropped", "token", token)
		return game.ErrStaleTurn
	}
	seat := s.round.ActiveSeat()
	if seat == nil {
		return game.ErrNoActiveHand
	}
	s.logger.Info("turn timed out, standing", "user", seat.UserID)
	return s.round.Stand(seat.UserID, true)
}

func (s *Session) scheduleRestart() {
	s.restartTimer = s.clock.AfterFunc(s.cfg.RoundInterval, func() {
		s.enqueue(func() error {
			s.restartTimer = nil
			err := s.startRoundLocked()
			switch {
			case err == nil:
			case errors.Is(err, game.ErrNoSeatsReady),
				errors.Is(err, ErrBettingLocked),
				errors.Is(err, ErrPaused):
				s.logger.Debug("auto restart skipped", "reason", err)
			default:
				s.logger.Error("auto restart failed", "error", err)
			}
			return nil
		})
	})
}

func (s *Session) stopTurnTimer() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	s.armedToken = 0
	s.turnDeadline = time.Time{}
}

func (s *Session) stopTimers() {
	s.stopTurnTimer()
	if s.restartTimer != nil {
		s.restartTimer.Stop()
		s.restartTimer = nil
	}
}

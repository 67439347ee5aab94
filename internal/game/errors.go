package game

import "errors"

// Every engine failure is a local, recoverable rejection returned to the
// caller. Nothing here crashes a table session.
var (
	// ErrIllegalAction is returned when a split or double-down is attempted
	// while its preconditions are unmet. The attempt leaves state unchanged.
	ErrIllegalAction = errors.New("action is not legal for the current hand")

	// ErrNoActiveHand is returned when a command needs a hand awaiting an
	// action and none exists.
	ErrNoActiveHand = errors.New("no hand is awaiting an action")

	// ErrStaleTurn is returned when a command targets a turn that has already
	// advanced, e.g. a player action racing a timer expiry and losing.
	ErrStaleTurn = errors.New("turn has already advanced")

	// ErrInsufficientBank is returned when a bet would exceed a seat's bank.
	ErrInsufficientBank = errors.New("bank cannot cover the bet")

	// ErrRoundInProgress rejects operations that are only legal between
	// rounds, such as a rules update.
	ErrRoundInProgress = errors.New("round already in progress")

	// ErrNoSeatsReady is returned when a round start is requested with no
	// eligible seat. The machine stays in WAITING.
	ErrNoSeatsReady = errors.New("no seats ready to bet")

	// ErrHandSettled is returned when a result would be assigned to a hand
	// that already has one. Results are immutable once set.
	ErrHandSettled = errors.New("hand result already set")
)

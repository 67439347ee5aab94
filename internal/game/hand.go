package game

import (
	"github.com/Babyy-dev/blackjack/internal/deck"
	"github.com/Babyy-dev/blackjack/internal/tableid"
)

// HandStatus tracks where a hand is in the turn sequence.
type HandStatus int

const (
	// HandWaiting means the hand sat the round out (no bet escrowed).
	HandWaiting HandStatus = iota
	// HandPlaying means the hand can still receive actions.
	HandPlaying
	// HandStood means the player stood; the hand awaits settlement.
	HandStood
	// HandBust means the hand exceeded 21 and forfeited its bet.
	HandBust
	// HandBlackjack means a natural two-card 21.
	HandBlackjack
)

// String returns the string representation of a hand status
func (hs HandStatus) String() string {
	switch hs {
	case HandWaiting:
		return "waiting"
	case HandPlaying:
		return "playing"
	case HandStood:
		return "stand"
	case HandBust:
		return "bust"
	case HandBlackjack:
		return "blackjack"
	default:
		return "unknown"
	}
}

// HandResult is the settled outcome of a hand. The zero value means the hand
// has not been settled yet.
type HandResult string

const (
	ResultNone      HandResult = ""
	ResultWin       HandResult = "win"
	ResultLose      HandResult = "lose"
	ResultPush      HandResult = "push"
	ResultBlackjack HandResult = "blackjack"
	ResultBust      HandResult = "bust"
)

// Hand is a player's or dealer's set of cards plus the bet escrowed on it.
type Hand struct {
	ID      string
	Cards   []deck.Card
	Bet     int
	Status  HandStatus
	Result  HandResult
	IsSplit bool
	Doubled bool
}

// NewHand creates an empty hand with a fresh identifier.
func NewHand() *Hand {
	return &Hand{ID: tableid.New()}
}

// AddCard appends a drawn card. Pure data mutation; any sound or animation
// side effects belong to the presentation layer.
func (h *Hand) AddCard(c deck.Card) {
	h.Cards = append(h.Cards, c)
}

// Total computes the hand's blackjack total. One Ace counts as 11 as long as
// that keeps the total at or under 21; each further Ace, or an Ace that would
// bust the hand, counts as 1.
func (h *Hand) Total() int {
	total := 0
	aces := 0
	for _, c := range h.Cards {
		total += c.Rank.BlackjackValue()
		if c.IsAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsSoft reports whether the total currently counts an Ace as 11.
func (h *Hand) IsSoft() bool {
	total := 0
	hasAce := false
	for _, c := range h.Cards {
		total += c.Rank.BlackjackValue()
		if c.IsAce() {
			hasAce = true
		}
	}
	return hasAce && total <= 21
}

// IsBust reports whether the total exceeds 21.
func (h *Hand) IsBust() bool {
	return h.Total() > 21
}

// IsBlackjack reports a natural: exactly two cards totalling 21 on an
// undivided hand. A post-split 21 is an ordinary win, never a blackjack.
func (h *Hand) IsBlackjack() bool {
	return len(h.Cards) == 2 && !h.IsSplit && h.Total() == 21
}

// Settle assigns the hand's result exactly once.
func (h *Hand) Settle(result HandResult) error {
	if h.Result != ResultNone {
		return ErrHandSettled
	}
	h.Result = result
	return nil
}

// Reset clears cards, bet and result between rounds, returning the played
// cards so the caller can put them back in the shoe.
func (h *Hand) Reset() []deck.Card {
	played := h.Cards
	h.ID = tableid.New()
	h.Cards = nil
	h.Bet = 0
	h.Status = HandWaiting
	h.Result = ResultNone
	h.IsSplit = false
	h.Doubled = false
	return played
}

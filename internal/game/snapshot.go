package game

import "time"

// CardView is the wire form of a card. A hidden card carries no rank or suit.
type CardView struct {
	Rank   string `json:"rank,omitempty"`
	Suit   string `json:"suit,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// HandView is the wire form of a hand. Total is omitted while the hand holds
// a hidden card so clients cannot infer the hole card.
type HandView struct {
	ID      string     `json:"id"`
	Cards   []CardView `json:"cards"`
	Total   int        `json:"total,omitempty"`
	Bet     int        `json:"bet"`
	Status  string     `json:"status"`
	Result  string     `json:"result,omitempty"`
	IsSplit bool       `json:"isSplit,omitempty"`
	Doubled bool       `json:"doubled,omitempty"`
}

// SeatView is the wire form of a seat.
type SeatView struct {
	UserID      string     `json:"userId"`
	DisplayName string     `json:"displayName"`
	Bank        int        `json:"bank"`
	Hands       []HandView `json:"hands"`
	ActiveHand  int        `json:"activeHand"`
}

// Snapshot is a self-contained projection of the round for broadcast. It is
// built fresh inside the table's command loop, so it never observes a
// half-applied action.
type Snapshot struct {
	TableID       string     `json:"tableId"`
	RoundID       string     `json:"roundId,omitempty"`
	Status        string     `json:"status"`
	Rules         Rules      `json:"rules"`
	Seats         []SeatView `json:"seats"`
	Dealer        SeatView   `json:"dealer"`
	ActiveSeatID  string     `json:"activeSeatId,omitempty"`
	ActiveHandID  string     `json:"activeHandId,omitempty"`
	ShowHoleCard  bool       `json:"showHoleCard"`
	ShoeRemaining int        `json:"shoeRemaining"`

	// Session-level state, overlaid by the table session after each command.
	// The engine itself knows nothing about pausing or timers.
	IsPaused      bool       `json:"isPaused"`
	BettingLocked bool       `json:"bettingLocked"`
	TurnDeadline  *time.Time `json:"turnDeadline,omitempty"`
}

// Snapshot projects the current state. While the round is in flight the
// dealer's second card is replaced by a hidden placeholder until the hole
// card reveal.
func (r *Round) Snapshot() Snapshot {
	snap := Snapshot{
		TableID:       r.tableID,
		RoundID:       r.roundID,
		Status:        r.status.String(),
		Rules:         r.rules,
		Seats:         make([]SeatView, 0, len(r.seats)),
		Dealer:        r.seatView(r.dealer, !r.showHoleCard),
		ShowHoleCard:  r.showHoleCard,
		ShoeRemaining: r.shoe.Remaining(),
	}
	for _, seat := range r.seats {
		snap.Seats = append(snap.Seats, r.seatView(seat, false))
	}
	if active := r.ActiveSeat(); active != nil {
		snap.ActiveSeatID = active.UserID
		if hand := active.CurrentHand(); hand != nil {
			snap.ActiveHandID = hand.ID
		}
	}
	return snap
}

func (r *Round) seatView(seat *Seat, hideHole bool) SeatView {
	view := SeatView{
		UserID:      seat.UserID,
		DisplayName: seat.DisplayName,
		Bank:        seat.Bank,
		Hands:       make([]HandView, 0, len(seat.Hands)),
		ActiveHand:  seat.ActiveHand,
	}
	for _, hand := range seat.Hands {
		view.Hands = append(view.Hands, r.handView(hand, hideHole))
	}
	return view
}

func (r *Round) handView(hand *Hand, hideHole bool) HandView {
	hv := HandView{
		ID:      hand.ID,
		Bet:     hand.Bet,
		Status:  hand.Status.String(),
		Result:  string(hand.Result),
		IsSplit: hand.IsSplit,
		Doubled: hand.Doubled,
	}
	hidden := false
	for i, card := range hand.Cards {
		if hideHole && i == 1 {
			hv.Cards = append(hv.Cards, CardView{Hidden: true})
			hidden = true
			continue
		}
		hv.Cards = append(hv.Cards, CardView{Rank: card.Rank.String(), Suit: card.Suit.Name()})
	}
	if !hidden {
		hv.Total = hand.Total()
	}
	return hv
}

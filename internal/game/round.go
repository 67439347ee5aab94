package game

import (
	"github.com/charmbracelet/log"

	"github.com/Babyy-dev/blackjack/internal/deck"
	"github.com/Babyy-dev/blackjack/internal/tableid"
)

// Status is the round state machine's position in the lifecycle. The betting,
// dealing and settling states are passed through synchronously inside a
// single command; snapshots taken between commands only ever observe the
// resting states.
type Status int

const (
	StatusWaiting Status = iota
	StatusBetting
	StatusDealing
	StatusPlayerTurn
	StatusDealerTurn
	StatusSettling
	StatusRoundEnd
)

// String returns the wire representation of a status
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusBetting:
		return "betting"
	case StatusDealing:
		return "dealing"
	case StatusPlayerTurn:
		return "player"
	case StatusDealerTurn:
		return "dealer"
	case StatusSettling:
		return "settle"
	case StatusRoundEnd:
		return "round_end"
	default:
		return "unknown"
	}
}

// Round is the authoritative state machine for one table: it owns the shoe,
// the seats and the dealer, and sequences bets, deals, turns and settlement.
// It is not safe for concurrent use; the table session serializes every
// command onto it.
type Round struct {
	tableID string
	rules   Rules
	shoe    *deck.Shoe
	seats   []*Seat
	dealer  *Seat
	wallet  Wallet
	logger  *log.Logger

	status       Status
	showHoleCard bool
	activeSeat   int
	roundID      string
	turnToken    uint64
	events       []Event
}

// NewRound creates the round engine for a table. Rules must already be
// validated; the shoe must match rules.Decks.
func NewRound(tableID string, rules Rules, shoe *deck.Shoe, wallet Wallet, logger *log.Logger) *Round {
	if wallet == nil {
		wallet = NopWallet{}
	}
	return &Round{
		tableID:    tableID,
		rules:      rules,
		shoe:       shoe,
		dealer:     NewDealerSeat(),
		wallet:     wallet,
		logger:     logger.WithPrefix("engine").With("table", tableID),
		status:     StatusWaiting,
		activeSeat: -1,
	}
}

// Status returns the machine's current state.
func (r *Round) Status() Status { return r.status }

// Rules returns the table rules in force.
func (r *Round) Rules() Rules { return r.rules }

// RoundID returns the current round's identifier, empty between rounds.
func (r *Round) RoundID() string { return r.roundID }

// TurnToken increases every time the active turn changes. Commands armed for
// an older token (a timer racing a player action) are stale.
func (r *Round) TurnToken() uint64 { return r.turnToken }

// ShowHoleCard reports whether the dealer's hole card has been revealed.
func (r *Round) ShowHoleCard() bool { return r.showHoleCard }

// IsRoundActive reports whether a round is in flight.
func (r *Round) IsRoundActive() bool {
	switch r.status {
	case StatusBetting, StatusDealing, StatusPlayerTurn, StatusDealerTurn, StatusSettling:
		return true
	default:
		return false
	}
}

// ActiveSeat returns the seat whose hand is awaiting an action, or nil.
func (r *Round) ActiveSeat() *Seat {
	if r.status != StatusPlayerTurn || r.activeSeat < 0 || r.activeSeat >= len(r.seats) {
		return nil
	}
	return r.seats[r.activeSeat]
}

// Seats returns the player seats in seat order. Callers must not mutate.
func (r *Round) Seats() []*Seat { return r.seats }

// Dealer returns the synthetic dealer seat.
func (r *Round) Dealer() *Seat { return r.dealer }

// SeatByUser finds a player seat by user ID.
func (r *Round) SeatByUser(userID string) *Seat {
	for _, s := range r.seats {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// AddSeat seats a new player with the configured starting bank. A seat added
// mid-round joins at the next round.
func (r *Round) AddSeat(userID, displayName string) *Seat {
	if seat := r.SeatByUser(userID); seat != nil {
		seat.DisplayName = displayName
		return seat
	}
	seat := NewSeat(userID, displayName, r.rules.StartingBank)
	r.seats = append(r.seats, seat)
	return seat
}

// RemoveSeat unseats a player. If the departing seat held the active turn the
// machine advances rather than stalling; escrowed bets are forfeit.
func (r *Round) RemoveSeat(userID string) {
	idx := -1
	for i, s := range r.seats {
		if s.UserID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	wasActive := r.status == StatusPlayerTurn && idx == r.activeSeat
	r.seats = append(r.seats[:idx], r.seats[idx+1:]...)
	if idx < r.activeSeat {
		r.activeSeat--
	}
	if wasActive {
		r.activeSeat = -1
		if !r.nextActiveSeat() {
			r.dealerTurn()
		}
	}
}

// UpdateRules replaces the table rules between rounds. The shoe is rebuilt
// when the deck count changes.
func (r *Round) UpdateRules(rules Rules, shoe *deck.Shoe) error {
	if r.status != StatusWaiting {
		return ErrRoundInProgress
	}
	if err := rules.Validate(); err != nil {
		return err
	}
	r.rules = rules
	if shoe != nil {
		r.shoe = shoe
	}
	return nil
}

// StartRound runs WAITING → BETTING → DEALING. Each seat that can cover the
// table minimum has it escrowed; seats that cannot sit the round out. On a
// dealer natural the round settles immediately without player turns.
func (r *Round) StartRound() error {
	if r.IsRoundActive() {
		return ErrRoundInProgress
	}
	if len(r.seats) == 0 {
		return ErrNoSeatsReady
	}

	r.roundID = tableid.New()
	r.status = StatusBetting
	r.showHoleCard = false
	r.activeSeat = -1
	r.turnToken++

	escrowed := 0
	for _, seat := range r.seats {
		seat.Hands = []*Hand{NewHand()}
		seat.ActiveHand = 0
		hand := seat.Hands[0]
		if seat.Bank < r.rules.MinBet {
			continue // sits out, not removed
		}
		bet := r.rules.MinBet
		if err := r.wallet.Escrow(seat.UserID, bet); err != nil {
			r.logger.Warn("escrow rejected, seat sits out", "seat", seat.UserID, "error", err)
			continue
		}
		seat.Bank -= bet
		hand.Bet = bet
		hand.Status = HandPlaying
		escrowed++
	}
	r.dealer.Hands = []*Hand{NewHand()}
	r.dealer.Hands[0].Status = HandPlaying
	r.dealer.ActiveHand = 0

	if escrowed == 0 {
		r.status = StatusWaiting
		r.roundID = ""
		return ErrNoSeatsReady
	}

	r.logEvent(EventRoundStart, "", map[string]any{"minBet": r.rules.MinBet, "seats": escrowed})
	r.dealInitial()
	r.markNaturals()

	if r.dealerHasBlackjack() {
		r.showHoleCard = true
		r.settle()
		return nil
	}
	if !r.nextActiveSeat() {
		r.dealerTurn()
	}
	return nil
}

// Hit draws one card into the caller's active hand. 21 auto-stands, a bust
// ends the hand immediately and forfeits the bet.
func (r *Round) Hit(userID string) error {
	seat, hand, err := r.actingHand(userID)
	if err != nil {
		return err
	}
	r.dealTo(hand, seat.UserID)
	r.logEvent(EventHit, seat.UserID, map[string]any{"handId": hand.ID, "total": hand.Total()})

	switch {
	case hand.IsBust():
		hand.Status = HandBust
		_ = hand.Settle(ResultBust)
		r.logEvent(EventBust, seat.UserID, map[string]any{"handId": hand.ID})
		r.advanceTurn()
	case hand.Total() == 21:
		hand.Status = HandStood
		r.advanceTurn()
	}
	return nil
}

// Stand ends the caller's active hand. auto marks stands injected by the
// turn timer for the audit trail.
func (r *Round) Stand(userID string, auto bool) error {
	seat, hand, err := r.actingHand(userID)
	if err != nil {
		return err
	}
	hand.Status = HandStood
	eventType := EventStand
	if auto {
		eventType = EventAutoStand
	}
	r.logEvent(eventType, seat.UserID, map[string]any{"handId": hand.ID})
	r.advanceTurn()
	return nil
}

// DoubleDown escrows a second bet equal to the first, draws exactly one card
// and stands. Legal only on a two-card, single-hand seat with the bank to
// cover it.
func (r *Round) DoubleDown(userID string) error {
	seat, hand, err := r.actingHand(userID)
	if err != nil {
		return err
	}
	if len(hand.Cards) != 2 || len(seat.Hands) != 1 || seat.Bank < hand.Bet {
		return ErrIllegalAction
	}
	if err := r.wallet.Escrow(seat.UserID, hand.Bet); err != nil {
		return ErrIllegalAction
	}
	seat.Bank -= hand.Bet
	hand.Bet *= 2
	hand.Doubled = true
	r.logEvent(EventDouble, seat.UserID, map[string]any{"handId": hand.ID, "bet": hand.Bet})

	r.dealTo(hand, seat.UserID)
	if hand.IsBust() {
		hand.Status = HandBust
		_ = hand.Settle(ResultBust)
		r.logEvent(EventBust, seat.UserID, map[string]any{"handId": hand.ID})
	} else {
		hand.Status = HandStood
	}
	r.advanceTurn()
	return nil
}

// Split separates a two-card pair into two one-card hands, the second funded
// by a fresh escrow equal to the first. The turn continues on the first split
// hand, which is dealt its second card immediately; an Ace-first split hand
// auto-stands after that card. Split hands cannot be re-split and never count
// as blackjack.
func (r *Round) Split(userID string) error {
	seat, hand, err := r.actingHand(userID)
	if err != nil {
		return err
	}
	if len(seat.Hands) != 1 || len(hand.Cards) != 2 || hand.Cards[0].Rank != hand.Cards[1].Rank || seat.Bank < hand.Bet {
		return ErrIllegalAction
	}
	if err := r.wallet.Escrow(seat.UserID, hand.Bet); err != nil {
		return ErrIllegalAction
	}
	seat.Bank -= hand.Bet

	right := hand.Cards[1]
	hand.Cards = hand.Cards[:1]
	hand.IsSplit = true
	second := NewHand()
	second.Bet = hand.Bet
	second.Status = HandPlaying
	second.IsSplit = true
	second.AddCard(right)
	seat.Hands = append(seat.Hands, second)

	r.logEvent(EventSplit, seat.UserID, map[string]any{"handId": hand.ID, "splitId": second.ID})
	r.activateHand(r.activeSeat, 0)
	return nil
}

// ForceStand is the admin override equivalent of Stand. With an empty seat ID
// it targets the active seat; otherwise it stands the named seat's playing
// hand wherever it is in the rotation.
func (r *Round) ForceStand(seatID string) error {
	if r.status != StatusPlayerTurn {
		return ErrNoActiveHand
	}
	active := r.ActiveSeat()
	if seatID == "" || (active != nil && active.UserID == seatID) {
		if active == nil {
			return ErrNoActiveHand
		}
		hand := active.CurrentHand()
		if hand == nil || hand.Status != HandPlaying {
			return ErrNoActiveHand
		}
		hand.Status = HandStood
		r.logEvent(EventForceStand, active.UserID, map[string]any{"handId": hand.ID})
		r.advanceTurn()
		return nil
	}
	seat := r.SeatByUser(seatID)
	if seat == nil || !seat.HasPlayingHand() {
		return ErrNoActiveHand
	}
	for _, hand := range seat.Hands {
		if hand.Status == HandPlaying {
			hand.Status = HandStood
			r.logEvent(EventForceStand, seat.UserID, map[string]any{"handId": hand.ID})
			return nil
		}
	}
	return ErrNoActiveHand
}

// ForceEndRound reveals the hole card if needed and settles immediately
// against the dealer's current total; the dealer draws no further cards.
func (r *Round) ForceEndRound() error {
	if !r.IsRoundActive() {
		return ErrNoActiveHand
	}
	r.showHoleCard = true
	r.settle()
	return nil
}

// ForcedOutcome names an admin-imposed round result.
type ForcedOutcome string

const (
	OutcomeDealerWin       ForcedOutcome = "dealer_win"
	OutcomePlayerWin       ForcedOutcome = "player_win"
	OutcomePush            ForcedOutcome = "push"
	OutcomeDealerBlackjack ForcedOutcome = "dealer_blackjack"
	OutcomeDealerBust      ForcedOutcome = "dealer_bust"
)

// Valid reports whether the outcome is one of the recognised values.
func (o ForcedOutcome) Valid() bool {
	switch o {
	case OutcomeDealerWin, OutcomePlayerWin, OutcomePush, OutcomeDealerBlackjack, OutcomeDealerBust:
		return true
	}
	return false
}

// ForceResult bypasses comparison and assigns the given outcome to every
// unresolved hand, then pays out with the normal win/lose/push mapping.
func (r *Round) ForceResult(outcome ForcedOutcome) error {
	if !r.IsRoundActive() {
		return ErrNoActiveHand
	}
	if !outcome.Valid() {
		return ErrIllegalAction
	}
	r.showHoleCard = true

	var forced HandResult
	switch outcome {
	case OutcomeDealerWin, OutcomeDealerBlackjack:
		forced = ResultLose
	case OutcomePlayerWin, OutcomeDealerBust:
		forced = ResultWin
	default:
		forced = ResultPush
	}

	summary := map[string]any{}
	for _, seat := range r.seats {
		delta := 0
		for _, hand := range seat.Hands {
			if hand.Bet == 0 {
				continue
			}
			if hand.Result == ResultNone {
				_ = hand.Settle(forced)
				hand.Status = HandStood
			}
			payout := r.payout(hand)
			if payout > 0 {
				seat.Bank += payout
				r.wallet.Credit(seat.UserID, payout)
			}
			delta += payout - hand.Bet
		}
		if len(seat.Hands) > 0 {
			summary[seat.UserID] = delta
		}
	}

	r.logEvent(EventForceResult, "", map[string]any{"result": string(outcome), "summary": summary})
	r.finishRound(summary)
	return nil
}

// Reset runs ROUND_END → WAITING: played cards return to the shoe body and
// every hand is cleared. The session decides when the next round starts.
func (r *Round) Reset() {
	if r.IsRoundActive() {
		return
	}
	for _, seat := range append(append([]*Seat(nil), r.seats...), r.dealer) {
		for _, hand := range seat.Hands {
			r.shoe.ReturnCards(hand.Reset())
		}
		seat.Hands = nil
		seat.ActiveHand = 0
	}
	r.status = StatusWaiting
	r.showHoleCard = false
	r.roundID = ""
	r.activeSeat = -1
}

func (r *Round) actingHand(userID string) (*Seat, *Hand, error) {
	if r.status != StatusPlayerTurn || r.activeSeat < 0 {
		return nil, nil, ErrNoActiveHand
	}
	seat := r.seats[r.activeSeat]
	if seat.UserID != userID {
		return nil, nil, ErrStaleTurn
	}
	hand := seat.CurrentHand()
	if hand == nil || hand.Status != HandPlaying {
		return nil, nil, ErrNoActiveHand
	}
	return seat, hand, nil
}

func (r *Round) dealTo(hand *Hand, seatID string) {
	card, reshuffled := r.shoe.Draw()
	if reshuffled {
		r.logEvent(EventShuffle, "", map[string]any{"remaining": r.shoe.Remaining()})
	}
	hand.AddCard(card)
	r.logEvent(EventDeal, seatID, map[string]any{"handId": hand.ID})
}

// dealInitial deals two passes of one card per betting seat, dealer last in
// each pass. The interleaving matters only for the audit trail; the shoe is
// already randomized.
func (r *Round) dealInitial() {
	r.status = StatusDealing
	for pass := 0; pass < 2; pass++ {
		for _, seat := range r.seats {
			if len(seat.Hands) == 0 || seat.Hands[0].Bet == 0 {
				continue
			}
			r.dealTo(seat.Hands[0], seat.UserID)
		}
		r.dealTo(r.dealer.Hands[0], "dealer")
	}
}

// markNaturals flags two-card 21s so they leave the turn rotation. Their
// result is assigned at settlement, where a dealer natural turns them into a
// push instead of a 3x payout.
func (r *Round) markNaturals() {
	for _, seat := range r.seats {
		for _, hand := range seat.Hands {
			if hand.Bet == 0 || len(hand.Cards) != 2 {
				continue
			}
			if hand.Total() == 21 {
				hand.Status = HandBlackjack
				r.logEvent(EventBlackjack, seat.UserID, map[string]any{"handId": hand.ID})
			}
		}
	}
}

func (r *Round) dealerHasBlackjack() bool {
	hand := r.dealer.Hands[0]
	return len(hand.Cards) == 2 && hand.Total() == 21
}

// nextActiveSeat finds the first seat with a playing hand and activates it.
// Returns false when no player hand remains to act.
func (r *Round) nextActiveSeat() bool {
	for i, seat := range r.seats {
		for j, hand := range seat.Hands {
			if hand.Status == HandPlaying {
				r.activateHand(i, j)
				return true
			}
		}
	}
	r.activeSeat = -1
	return false
}

// activateHand hands the turn to a specific hand. A one-card split hand is
// dealt its second card here, mirroring the initial deal; if its first card
// was an Ace, or the hand reaches 21, it auto-stands.
func (r *Round) activateHand(seatIdx, handIdx int) {
	seat := r.seats[seatIdx]
	seat.ActiveHand = handIdx
	r.activeSeat = seatIdx
	r.status = StatusPlayerTurn
	r.turnToken++

	hand := seat.Hands[handIdx]
	if hand.IsSplit && len(hand.Cards) == 1 {
		first := hand.Cards[0]
		r.dealTo(hand, seat.UserID)
		if first.IsAce() || hand.Total() == 21 {
			hand.Status = HandStood
			r.logEvent(EventAutoStand, seat.UserID, map[string]any{"handId": hand.ID})
			r.advanceTurn()
		}
	}
}

// advanceTurn moves to the seat's next playing hand, then to the next seat
// with one, and finally to the dealer.
func (r *Round) advanceTurn() {
	if r.activeSeat < 0 || r.activeSeat >= len(r.seats) {
		return
	}
	seat := r.seats[r.activeSeat]
	for j := seat.ActiveHand + 1; j < len(seat.Hands); j++ {
		if seat.Hands[j].Status == HandPlaying {
			r.activateHand(r.activeSeat, j)
			return
		}
	}
	r.activeSeat = -1
	if !r.nextActiveSeat() {
		r.dealerTurn()
	}
}

// dealerTurn reveals the hole card and draws to 17, standing on soft and
// hard 17 alike. If no player hand needs the comparison, drawing is skipped.
func (r *Round) dealerTurn() {
	r.status = StatusDealerTurn
	r.showHoleCard = true

	if r.anyHandNeedsComparison() {
		hand := r.dealer.Hands[0]
		for hand.Total() < 17 {
			r.dealTo(hand, "dealer")
			r.logEvent(EventDealerHit, "dealer", map[string]any{"handId": hand.ID, "total": hand.Total()})
		}
	}
	r.settle()
}

func (r *Round) anyHandNeedsComparison() bool {
	for _, seat := range r.seats {
		for _, hand := range seat.Hands {
			if hand.Bet == 0 {
				continue
			}
			if hand.Result == ResultNone && hand.Status != HandBlackjack {
				return true
			}
		}
	}
	return false
}

// settle assigns every outstanding result and pays out. Naturals pay 3x the
// original bet unless the dealer also has one, which pushes; wins pay 2x and
// pushes return the stake. Busted and losing hands forfeit.
func (r *Round) settle() {
	r.status = StatusSettling
	dealerHand := r.dealer.Hands[0]
	dealerTotal := dealerHand.Total()
	dealerBust := dealerTotal > 21
	dealerBlackjack := len(dealerHand.Cards) == 2 && dealerTotal == 21

	summary := map[string]any{}
	for _, seat := range r.seats {
		delta := 0
		settled := false
		for _, hand := range seat.Hands {
			if hand.Bet == 0 {
				continue
			}
			settled = true
			if hand.Result == ResultNone {
				switch {
				case hand.Status == HandBlackjack && dealerBlackjack:
					_ = hand.Settle(ResultPush)
				case hand.Status == HandBlackjack:
					_ = hand.Settle(ResultBlackjack)
				case dealerBlackjack:
					_ = hand.Settle(ResultLose)
				case dealerBust:
					_ = hand.Settle(ResultWin)
				case hand.Total() > dealerTotal:
					_ = hand.Settle(ResultWin)
				case hand.Total() == dealerTotal:
					_ = hand.Settle(ResultPush)
				default:
					_ = hand.Settle(ResultLose)
				}
			}
			payout := r.payout(hand)
			if payout > 0 {
				seat.Bank += payout
				r.wallet.Credit(seat.UserID, payout)
			}
			delta += payout - hand.Bet
		}
		if settled {
			summary[seat.UserID] = delta
		}
	}

	r.logEvent(EventRoundEnd, "", map[string]any{"summary": summary, "dealerTotal": dealerTotal})
	r.finishRound(summary)
}

// payout maps a settled result to the chips returned to the bank. Blackjack
// and win are the only value-creating rules, applied exactly once per hand.
func (r *Round) payout(hand *Hand) int {
	switch hand.Result {
	case ResultBlackjack:
		return hand.Bet * 3
	case ResultWin:
		return hand.Bet * 2
	case ResultPush:
		return hand.Bet
	default:
		return 0
	}
}

func (r *Round) finishRound(summary map[string]any) {
	r.status = StatusRoundEnd
	r.activeSeat = -1
	r.turnToken++
	r.logger.Debug("round finished", "round", r.roundID, "summary", summary)
}

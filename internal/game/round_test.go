package game

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Babyy-dev/blackjack/internal/deck"
)

func card(rank deck.Rank) deck.Card {
	return deck.NewCard(deck.Spades, rank)
}

// newTestRound builds a round over a rigged shoe that deals the given cards
// in order. With one player the deal order is p, d, p, d; with two players
// p1, p2, d, p1, p2, d, and so on.
func newTestRound(players int, cards ...deck.Card) *Round {
	r := NewRound("tbl-test", DefaultRules(), deck.NewRiggedShoe(cards...), nil, log.New(io.Discard))
	for i := 0; i < players; i++ {
		r.AddSeat(fmt.Sprintf("p%d", i+1), fmt.Sprintf("Player %d", i+1))
	}
	return r
}

// recordingWallet tallies escrows and credits so tests can check that chips
// moved through the ledger match the bank deltas.
type recordingWallet struct {
	escrowed  int
	credited  int
	rejectAll bool
}

func (w *recordingWallet) Escrow(seatID string, amount int) error {
	if w.rejectAll {
		return fmt.Errorf("ledger unavailable")
	}
	w.escrowed += amount
	return nil
}

func (w *recordingWallet) Credit(seatID string, amount int) {
	w.credited += amount
}

func TestStartRoundDealsTwoCardsEach(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Ten),
	)
	require.NoError(t, r.StartRound())

	assert.Equal(t, StatusPlayerTurn, r.Status())
	seat := r.SeatByUser("p1")
	require.Len(t, seat.Hands, 1)
	assert.Len(t, seat.Hands[0].Cards, 2)
	assert.Len(t, r.Dealer().Hands[0].Cards, 2)
	assert.Equal(t, 10, seat.Hands[0].Bet)
	assert.Equal(t, 2490, seat.Bank)
	assert.NotEmpty(t, r.RoundID())
}

func TestStartRoundRejectsWhileActive(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Ten),
	)
	require.NoError(t, r.StartRound())
	assert.ErrorIs(t, r.StartRound(), ErrRoundInProgress)
}

func TestStartRoundNoSeats(t *testing.T) {
	r := newTestRound(0)
	assert.ErrorIs(t, r.StartRound(), ErrNoSeatsReady)
	assert.Equal(t, StatusWaiting, r.Status())
}

func TestStandThenDealerStaysOn17(t *testing.T) {
	// Player 19 vs dealer 10+7: the dealer already has 17 and draws nothing.
	r := newTestRound(1,
		card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Ten),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Stand("p1", false))

	assert.Equal(t, StatusRoundEnd, r.Status())
	assert.Len(t, r.Dealer().Hands[0].Cards, 2)
	seat := r.SeatByUser("p1")
	assert.Equal(t, ResultWin, seat.Hands[0].Result)
	assert.Equal(t, 2510, seat.Bank)
	assert.True(t, r.ShowHoleCard())
}

func TestDealerStandsOnSoft17(t *testing.T) {
	// Dealer holds A+6, a soft 17, and must not draw.
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ace),
		card(deck.Eight), card(deck.Six),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Stand("p1", false))

	dealer := r.Dealer().Hands[0]
	assert.Len(t, dealer.Cards, 2)
	assert.Equal(t, 17, dealer.Total())
	assert.Equal(t, ResultWin, r.SeatByUser("p1").Hands[0].Result)
}

func TestDealerDrawsTo17(t *testing.T) {
	// Dealer 10+6 must draw; the 5 takes it to 21 and beats the player's 19.
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Nine), card(deck.Six),
		card(deck.Five),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Stand("p1", false))

	assert.Equal(t, 21, r.Dealer().Hands[0].Total())
	seat := r.SeatByUser("p1")
	assert.Equal(t, ResultLose, seat.Hands[0].Result)
	assert.Equal(t, 2490, seat.Bank)
}

func TestHitBustForfeitsImmediately(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Six), card(deck.Seven),
		card(deck.King),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Hit("p1"))

	seat := r.SeatByUser("p1")
	assert.Equal(t, HandBust, seat.Hands[0].Status)
	assert.Equal(t, ResultBust, seat.Hands[0].Result)
	assert.Equal(t, StatusRoundEnd, r.Status())
	assert.Equal(t, 2490, seat.Bank)
	// Every hand resolved before the dealer's turn: no dealer draw.
	assert.Len(t, r.Dealer().Hands[0].Cards, 2)
}

func TestHitTo21AutoStands(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ace), card(deck.Ten),
		card(deck.Five), card(deck.Nine),
		card(deck.Five),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Hit("p1"))

	seat := r.SeatByUser("p1")
	assert.Equal(t, 21, seat.Hands[0].Total())
	assert.Equal(t, ResultWin, seat.Hands[0].Result)
	assert.Equal(t, StatusRoundEnd, r.Status())
}

func TestPlayerBlackjackPaysTriple(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ace), card(deck.Five),
		card(deck.King), card(deck.Nine),
	)
	require.NoError(t, r.StartRound())

	// A natural skips the player turn entirely.
	assert.Equal(t, StatusRoundEnd, r.Status())
	seat := r.SeatByUser("p1")
	assert.Equal(t, ResultBlackjack, seat.Hands[0].Result)
	assert.Equal(t, 2520, seat.Bank)
	// Nobody needed a comparison, so the dealer never drew out its hand.
	assert.Len(t, r.Dealer().Hands[0].Cards, 2)
}

func TestDealerBlackjackEndsRoundImmediately(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ace),
		card(deck.Nine), card(deck.King),
	)
	require.NoError(t, r.StartRound())

	assert.Equal(t, StatusRoundEnd, r.Status())
	assert.True(t, r.ShowHoleCard())
	seat := r.SeatByUser("p1")
	assert.Equal(t, ResultLose, seat.Hands[0].Result)
	assert.Equal(t, 2490, seat.Bank)
}

func TestBlackjackVersusDealerBlackjackPushes(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ace), card(deck.Ace),
		card(deck.Queen), card(deck.King),
	)
	require.NoError(t, r.StartRound())

	seat := r.SeatByUser("p1")
	assert.Equal(t, ResultPush, seat.Hands[0].Result)
	assert.Equal(t, 2500, seat.Bank)
}

func TestPushReturnsStake(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Eight), card(deck.Eight),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Stand("p1", false))

	seat := r.SeatByUser("p1")
	assert.Equal(t, ResultPush, seat.Hands[0].Result)
	assert.Equal(t, 2500, seat.Bank)
}

func TestDoubleDown(t *testing.T) {
	r := newTestRound(1,
		card(deck.Five), card(deck.Ten),
		card(deck.Six), card(deck.Seven),
		card(deck.Ten),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.DoubleDown("p1"))

	seat := r.SeatByUser("p1")
	hand := seat.Hands[0]
	assert.True(t, hand.Doubled)
	assert.Equal(t, 20, hand.Bet)
	assert.Len(t, hand.Cards, 3)
	assert.Equal(t, ResultWin, hand.Result)
	assert.Equal(t, 2520, seat.Bank)
	assert.Equal(t, StatusRoundEnd, r.Status())
}

func TestDoubleDownIllegalAfterHit(t *testing.T) {
	r := newTestRound(1,
		card(deck.Two), card(deck.Ten),
		card(deck.Three), card(deck.Seven),
		card(deck.Four),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Hit("p1"))
	assert.ErrorIs(t, r.DoubleDown("p1"), ErrIllegalAction)
	// Rejection leaves the turn where it was.
	assert.Equal(t, StatusPlayerTurn, r.Status())
}

func TestDoubleDownIllegalWithoutBank(t *testing.T) {
	r := newTestRound(1,
		card(deck.Five), card(deck.Ten),
		card(deck.Six), card(deck.Seven),
	)
	require.NoError(t, r.StartRound())
	r.SeatByUser("p1").Bank = 5
	assert.ErrorIs(t, r.DoubleDown("p1"), ErrIllegalAction)
}

func TestSplitPlaysBothHands(t *testing.T) {
	r := newTestRound(1,
		card(deck.Eight), card(deck.Ten),
		card(deck.Eight), card(deck.Seven),
		card(deck.Three), // second card of the first split hand
		card(deck.Ten),   // hit on the first split hand: 21, auto-stands
		card(deck.Ten),   // second card of the second split hand
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Split("p1"))

	seat := r.SeatByUser("p1")
	require.Len(t, seat.Hands, 2)
	assert.True(t, seat.Hands[0].IsSplit)
	assert.True(t, seat.Hands[1].IsSplit)
	assert.Len(t, seat.Hands[0].Cards, 2)

	require.NoError(t, r.Hit("p1"))
	// 21 on a split hand is a plain win, and the turn has moved to hand two.
	assert.Equal(t, 1, seat.ActiveHand)
	assert.Len(t, seat.Hands[1].Cards, 2)

	require.NoError(t, r.Stand("p1", false))
	assert.Equal(t, StatusRoundEnd, r.Status())
	assert.Equal(t, ResultWin, seat.Hands[0].Result)
	assert.Equal(t, ResultWin, seat.Hands[1].Result)
	assert.Equal(t, 2520, seat.Bank)
}

func TestSplitAcesAutoStandBothHands(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ace), card(deck.Nine),
		card(deck.Ace), card(deck.Nine),
		card(deck.King), // first split hand: A+K, auto-stands, no blackjack
		card(deck.Five), // second split hand: A+5, auto-stands
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Split("p1"))

	seat := r.SeatByUser("p1")
	assert.Equal(t, StatusRoundEnd, r.Status())
	assert.Equal(t, ResultWin, seat.Hands[0].Result)
	assert.Equal(t, ResultLose, seat.Hands[1].Result)
	// A split 21 pays 2x, never the blackjack premium.
	assert.Equal(t, 2500, seat.Bank)
}

func TestSplitIllegalOnMixedRanks(t *testing.T) {
	r := newTestRound(1,
		card(deck.Eight), card(deck.Ten),
		card(deck.Nine), card(deck.Seven),
	)
	require.NoError(t, r.StartRound())
	assert.ErrorIs(t, r.Split("p1"), ErrIllegalAction)
}

func TestSplitIllegalTwice(t *testing.T) {
	r := newTestRound(1,
		card(deck.Eight), card(deck.Ten),
		card(deck.Eight), card(deck.Seven),
		card(deck.Eight),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Split("p1"))
	assert.ErrorIs(t, r.Split("p1"), ErrIllegalAction)
}

func TestChipConservationAcrossActions(t *testing.T) {
	// Bank plus escrowed bets is constant through every player action;
	// only settlement moves value, and then only by the payout rules.
	r := newTestRound(1,
		card(deck.Eight), card(deck.Ten),
		card(deck.Eight), card(deck.Seven),
		card(deck.Three), // second card of the first split hand
		card(deck.Two),   // hit on the first split hand
		card(deck.Ten),   // second card of the second split hand
	)
	total := func() int {
		sum := 0
		for _, seat := range r.Seats() {
			sum += seat.Bank
			for _, h := range seat.Hands {
				sum += h.Bet
			}
		}
		return sum
	}

	require.NoError(t, r.StartRound())
	assert.Equal(t, 2500, total())
	require.NoError(t, r.Split("p1"))
	assert.Equal(t, 2500, total())
	require.NoError(t, r.Hit("p1"))
	assert.Equal(t, 2500, total())
	require.NoError(t, r.Stand("p1", false))
	assert.Equal(t, 2500, total())

	// Final stand settles: hand one loses 13 vs 17, hand two wins 18 vs 17.
	require.NoError(t, r.Stand("p1", false))
	assert.Equal(t, 2500, r.SeatByUser("p1").Bank)
}

func TestWrongSeatActionIsStale(t *testing.T) {
	r := newTestRound(2,
		card(deck.Ten), card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Nine), card(deck.Ten),
	)
	require.NoError(t, r.StartRound())
	assert.Equal(t, "p1", r.ActiveSeat().UserID)
	assert.ErrorIs(t, r.Hit("p2"), ErrStaleTurn)
	assert.ErrorIs(t, r.Stand("nobody", false), ErrStaleTurn)
}

func TestTurnTokenAdvancesPerTurn(t *testing.T) {
	r := newTestRound(2,
		card(deck.Ten), card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Nine), card(deck.Ten),
	)
	require.NoError(t, r.StartRound())
	before := r.TurnToken()
	require.NoError(t, r.Stand("p1", false))
	assert.Greater(t, r.TurnToken(), before)
	assert.Equal(t, "p2", r.ActiveSeat().UserID)
}

func TestActionsRejectedBetweenRounds(t *testing.T) {
	r := newTestRound(1)
	assert.ErrorIs(t, r.Hit("p1"), ErrNoActiveHand)
	assert.ErrorIs(t, r.Stand("p1", false), ErrNoActiveHand)
	assert.ErrorIs(t, r.DoubleDown("p1"), ErrNoActiveHand)
	assert.ErrorIs(t, r.Split("p1"), ErrNoActiveHand)
}

func TestShortBankSitsOut(t *testing.T) {
	r := newTestRound(2,
		card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Ten),
	)
	r.SeatByUser("p1").Bank = 5
	require.NoError(t, r.StartRound())

	poor := r.SeatByUser("p1")
	assert.Equal(t, 0, poor.Hands[0].Bet)
	assert.Equal(t, HandWaiting, poor.Hands[0].Status)
	assert.Equal(t, 5, poor.Bank)
	assert.Equal(t, "p2", r.ActiveSeat().UserID)
}

func TestAllSeatsShortStaysWaiting(t *testing.T) {
	r := newTestRound(2)
	r.SeatByUser("p1").Bank = 5
	r.SeatByUser("p2").Bank = 0
	assert.ErrorIs(t, r.StartRound(), ErrNoSeatsReady)
	assert.Equal(t, StatusWaiting, r.Status())
}

func TestEscrowRejectionSitsSeatOut(t *testing.T) {
	wallet := &recordingWallet{rejectAll: true}
	r := NewRound("tbl-test", DefaultRules(), deck.NewRiggedShoe(), wallet, log.New(io.Discard))
	r.AddSeat("p1", "Player 1")
	assert.ErrorIs(t, r.StartRound(), ErrNoSeatsReady)
	assert.Equal(t, 2500, r.SeatByUser("p1").Bank)
}

func TestWalletMirrorsBankMovements(t *testing.T) {
	wallet := &recordingWallet{}
	r := NewRound("tbl-test", DefaultRules(), deck.NewRiggedShoe(
		card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Ten),
	), wallet, log.New(io.Discard))
	r.AddSeat("p1", "Player 1")
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Stand("p1", false))

	seat := r.SeatByUser("p1")
	assert.Equal(t, 10, wallet.escrowed)
	assert.Equal(t, 20, wallet.credited)
	assert.Equal(t, 2500+wallet.credited-wallet.escrowed, seat.Bank)
}

func TestForceStandActiveSeat(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Nine), card(deck.Eight),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.ForceStand(""))

	assert.Equal(t, StatusRoundEnd, r.Status())
	assert.Equal(t, ResultWin, r.SeatByUser("p1").Hands[0].Result)
}

func TestForceStandNoActiveHand(t *testing.T) {
	r := newTestRound(1)
	assert.ErrorIs(t, r.ForceStand(""), ErrNoActiveHand)
}

func TestForceEndRoundSettlesAgainstCurrentDealerTotal(t *testing.T) {
	// Dealer sits on 16; an admin end-round compares against it as-is.
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Eight), card(deck.Six),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.ForceEndRound())

	assert.Equal(t, StatusRoundEnd, r.Status())
	assert.True(t, r.ShowHoleCard())
	assert.Len(t, r.Dealer().Hands[0].Cards, 2)
	seat := r.SeatByUser("p1")
	assert.Equal(t, ResultWin, seat.Hands[0].Result)
	assert.Equal(t, 2510, seat.Bank)
}

func TestForceResult(t *testing.T) {
	tests := []struct {
		outcome ForcedOutcome
		result  HandResult
		bank    int
	}{
		{OutcomePlayerWin, ResultWin, 2510},
		{OutcomeDealerBust, ResultWin, 2510},
		{OutcomePush, ResultPush, 2500},
		{OutcomeDealerWin, ResultLose, 2490},
		{OutcomeDealerBlackjack, ResultLose, 2490},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			r := newTestRound(1,
				card(deck.Ten), card(deck.Ten),
				card(deck.Six), card(deck.Nine),
			)
			require.NoError(t, r.StartRound())
			require.NoError(t, r.ForceResult(tt.outcome))

			assert.Equal(t, StatusRoundEnd, r.Status())
			seat := r.SeatByUser("p1")
			assert.Equal(t, tt.result, seat.Hands[0].Result)
			assert.Equal(t, tt.bank, seat.Bank)
		})
	}
}

func TestForceResultSkipsSettledHands(t *testing.T) {
	// A busted hand keeps its forfeit even when the table is forced to win.
	r := newTestRound(2,
		card(deck.Ten), card(deck.Ten), card(deck.Ten),
		card(deck.Six), card(deck.Six), card(deck.Nine),
		card(deck.King), // p1 hits and busts
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Hit("p1"))
	require.NoError(t, r.ForceResult(OutcomePlayerWin))

	assert.Equal(t, ResultBust, r.SeatByUser("p1").Hands[0].Result)
	assert.Equal(t, 2490, r.SeatByUser("p1").Bank)
	assert.Equal(t, ResultWin, r.SeatByUser("p2").Hands[0].Result)
	assert.Equal(t, 2510, r.SeatByUser("p2").Bank)
}

func TestForceResultRejectsUnknownOutcome(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Six), card(deck.Nine),
	)
	require.NoError(t, r.StartRound())
	assert.ErrorIs(t, r.ForceResult("coin_flip"), ErrIllegalAction)
}

func TestUpdateRulesOnlyBetweenRounds(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Six), card(deck.Nine),
	)
	require.NoError(t, r.StartRound())

	rules := DefaultRules()
	rules.MinBet = 25
	assert.ErrorIs(t, r.UpdateRules(rules, nil), ErrRoundInProgress)

	require.NoError(t, r.ForceEndRound())
	r.Reset()
	require.NoError(t, r.UpdateRules(rules, nil))
	assert.Equal(t, 25, r.Rules().MinBet)

	rules.Decks = 0
	assert.Error(t, r.UpdateRules(rules, nil))
}

func TestResetReturnsCardsToShoe(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Nine), card(deck.Seven),
	)
	require.NoError(t, r.StartRound())
	require.NoError(t, r.Stand("p1", false))

	r.Reset()
	assert.Equal(t, StatusWaiting, r.Status())
	assert.Empty(t, r.RoundID())
	assert.Empty(t, r.SeatByUser("p1").Hands)
	assert.Empty(t, r.Dealer().Hands)
	assert.Equal(t, 4, r.Snapshot().ShoeRemaining)
}

func TestRemoveActiveSeatAdvancesTurn(t *testing.T) {
	r := newTestRound(2,
		card(deck.Ten), card(deck.Ten), card(deck.Seven),
		card(deck.Nine), card(deck.Nine), card(deck.Ten),
	)
	require.NoError(t, r.StartRound())
	require.Equal(t, "p1", r.ActiveSeat().UserID)

	r.RemoveSeat("p1")
	assert.Equal(t, "p2", r.ActiveSeat().UserID)
	assert.Nil(t, r.SeatByUser("p1"))

	r.RemoveSeat("p2")
	assert.Equal(t, StatusRoundEnd, r.Status())
}

func TestEventsDrain(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Nine), card(deck.Seven),
	)
	require.NoError(t, r.StartRound())

	events := r.DrainEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, EventRoundStart, events[0].Type)
	for _, ev := range events {
		assert.Equal(t, "tbl-test", ev.TableID)
		assert.Equal(t, r.RoundID(), ev.RoundID)
	}
	assert.Empty(t, r.DrainEvents())
}

func TestSnapshotHidesHoleCard(t *testing.T) {
	r := newTestRound(1,
		card(deck.Ten), card(deck.Ten),
		card(deck.Nine), card(deck.Seven),
	)
	require.NoError(t, r.StartRound())

	snap := r.Snapshot()
	assert.Equal(t, "player", snap.Status)
	assert.Equal(t, "p1", snap.ActiveSeatID)
	assert.False(t, snap.ShowHoleCard)
	require.Len(t, snap.Dealer.Hands, 1)
	dealer := snap.Dealer.Hands[0]
	require.Len(t, dealer.Cards, 2)
	assert.False(t, dealer.Cards[0].Hidden)
	assert.True(t, dealer.Cards[1].Hidden)
	assert.Empty(t, dealer.Cards[1].Rank)
	assert.Zero(t, dealer.Total)

	require.NoError(t, r.Stand("p1", false))
	snap = r.Snapshot()
	dealer = snap.Dealer.Hands[0]
	assert.True(t, snap.ShowHoleCard)
	assert.False(t, dealer.Cards[1].Hidden)
	assert.Equal(t, 17, dealer.Total)
	assert.Empty(t, snap.ActiveSeatID)
}

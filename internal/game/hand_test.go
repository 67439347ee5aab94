package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Babyy-dev/blackjack/internal/deck"
)

func handOf(ranks ...deck.Rank) *Hand {
	h := NewHand()
	for _, r := range ranks {
		h.AddCard(deck.NewCard(deck.Hearts, r))
	}
	return h
}

func TestHandTotal(t *testing.T) {
	tests := []struct {
		name  string
		ranks []deck.Rank
		total int
		soft  bool
	}{
		{"hard total", []deck.Rank{deck.Ten, deck.Seven}, 17, false},
		{"ace counts eleven", []deck.Rank{deck.Ace, deck.Six}, 17, true},
		{"ace demoted", []deck.Rank{deck.Ace, deck.Six, deck.Nine}, 16, false},
		{"two aces", []deck.Rank{deck.Ace, deck.Ace}, 12, true},
		{"two aces plus nine", []deck.Rank{deck.Ace, deck.Ace, deck.Nine}, 21, false},
		{"face cards count ten", []deck.Rank{deck.Jack, deck.Queen}, 20, false},
		{"bust", []deck.Rank{deck.King, deck.Queen, deck.Five}, 25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handOf(tt.ranks...)
			assert.Equal(t, tt.total, h.Total())
			assert.Equal(t, tt.soft, h.IsSoft())
		})
	}
}

func TestHandBlackjack(t *testing.T) {
	assert.True(t, handOf(deck.Ace, deck.King).IsBlackjack())
	assert.False(t, handOf(deck.Ace, deck.King, deck.Ten).IsBlackjack())
	assert.False(t, handOf(deck.Seven, deck.Seven, deck.Seven).IsBlackjack())

	split := handOf(deck.Ace, deck.King)
	split.IsSplit = true
	assert.False(t, split.IsBlackjack())
	assert.Equal(t, 21, split.Total())
}

func TestHandSettleOnce(t *testing.T) {
	h := handOf(deck.Ten, deck.Nine)
	require.NoError(t, h.Settle(ResultWin))
	assert.ErrorIs(t, h.Settle(ResultLose), ErrHandSettled)
	assert.Equal(t, ResultWin, h.Result)
}

func TestHandReset(t *testing.T) {
	h := handOf(deck.Ten, deck.Nine)
	h.Bet = 50
	h.Status = HandStood
	require.NoError(t, h.Settle(ResultWin))
	oldID := h.ID

	played := h.Reset()
	assert.Len(t, played, 2)
	assert.Empty(t, h.Cards)
	assert.Zero(t, h.Bet)
	assert.Equal(t, HandWaiting, h.Status)
	assert.Equal(t, ResultNone, h.Result)
	assert.NotEqual(t, oldID, h.ID)
}

package wallet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEscrowAndCredit(t *testing.T) {
	l := NewLedger()
	l.Register("alice", 100)

	require.NoError(t, l.Escrow("alice", 40))
	assert.Equal(t, 60, l.Balance("alice"))

	l.Credit("alice", 80)
	assert.Equal(t, 140, l.Balance("alice"))
}

func TestLedgerEscrowFailures(t *testing.T) {
	l := NewLedger()
	l.Register("alice", 10)

	assert.ErrorIs(t, l.Escrow("alice", 20), ErrInsufficientFunds)
	assert.Equal(t, 10, l.Balance("alice"))
	assert.ErrorIs(t, l.Escrow("bob", 5), ErrUnknownAccount)
}

func TestLedgerRegisterIdempotent(t *testing.T) {
	l := NewLedger()
	l.Register("alice", 100)
	l.Register("alice", 9999)
	assert.Equal(t, 100, l.Balance("alice"))
}

func TestLedgerConcurrentAccess(t *testing.T) {
	l := NewLedger()
	l.Register("alice", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Escrow("alice", 10); err == nil {
				l.Credit("alice", 10)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, l.Balance("alice"))
}

// Package wallet keeps the process-wide chip ledger. The round engine owns
// the authoritative per-seat banks during play; the ledger mirrors every
// escrow and credit so balances survive a player hopping between tables.
package wallet

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownAccount is returned for operations on an unregistered user.
	ErrUnknownAccount = errors.New("account not registered")

	// ErrInsufficientFunds is returned when an escrow exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger is an in-memory chip ledger safe for concurrent use by every table
// session in the process.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int)}
}

// Register opens an account with the given balance. Registering an existing
// account is a no-op so a reconnecting player keeps their chips.
func (l *Ledger) Register(userID string, balance int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[userID]; !ok {
		l.balances[userID] = balance
	}
}

// Balance returns the account balance, zero for unknown accounts.
func (l *Ledger) Balance(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

// Escrow moves chips out of the account into a round. The round engine calls
// this once per bet; a failure makes the seat sit the round out.
func (l *Ledger) Escrow(userID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[userID]
	if !ok {
		return fmt.Errorf("escrow %s: %w", userID, ErrUnknownAccount)
	}
	if balance < amount {
		return fmt.Errorf("escrow %d from %s holding %d: %w", amount, userID, balance, ErrInsufficientFunds)
	}
	l.balances[userID] = balance - amount
	return nil
}

// Credit returns winnings or a pushed stake to the account. Crediting an
// unknown account opens it, so a payout is never dropped.
func (l *Ledger) Credit(userID string, amount int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
}

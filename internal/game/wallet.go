package game

// Wallet is the chip-ledger collaborator. The engine owns the authoritative
// seat banks; the wallet mirrors every escrow and credit so the casino ledger
// stays in sync. It is invoked only at BETTING and SETTLING. Retrying a
// transient escrow failure is the wallet implementation's concern, never the
// engine's.
type Wallet interface {
	// Escrow moves chips out of a seat's ledger balance into the round.
	// A non-nil error means the seat sits the round out.
	Escrow(seatID string, amount int) error

	// Credit returns winnings (or a pushed bet) to a seat's ledger balance.
	Credit(seatID string, amount int)
}

// NopWallet satisfies Wallet for tables with no external ledger attached.
type NopWallet struct{}

func (NopWallet) Escrow(string, int) error { return nil }
func (NopWallet) Credit(string, int)       {}

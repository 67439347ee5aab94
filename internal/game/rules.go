package game

import "fmt"

// Rules is the table configuration, set at table creation and immutable
// thereafter except by an explicit admin update between rounds.
type Rules struct {
	MinBet       int `json:"minBet"`
	MaxBet       int `json:"maxBet"`
	Decks        int `json:"decks"`
	StartingBank int `json:"startingBank"`
}

// DefaultRules mirrors the house defaults: 10/500 stakes, six decks, 2500
// starting bank.
func DefaultRules() Rules {
	return Rules{
		MinBet:       10,
		MaxBet:       500,
		Decks:        6,
		StartingBank: 2500,
	}
}

// Validate rejects configurations the engine cannot run. A zero-deck shoe is
// a table-creation error, never a runtime one.
func (r Rules) Validate() error {
	if r.Decks < 1 || r.Decks > 8 {
		return fmt.Errorf("decks must be between 1 and 8, got %d", r.Decks)
	}
	if r.MinBet < 1 {
		return fmt.Errorf("min bet must be positive, got %d", r.MinBet)
	}
	if r.MaxBet < r.MinBet {
		return fmt.Errorf("max bet %d below min bet %d", r.MaxBet, r.MinBet)
	}
	if r.StartingBank < r.MinBet {
		return fmt.Errorf("starting bank %d below min bet %d", r.StartingBank, r.MinBet)
	}
	return nil
}

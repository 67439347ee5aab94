package game

// Role distinguishes the synthetic dealer seat from player seats. The dealer
// is identified structurally, never by position in the seat order.
type Role int

const (
	RolePlayer Role = iota
	RoleDealer
)

// String returns the string representation of a role
func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleDealer:
		return "dealer"
	default:
		return "unknown"
	}
}

// Seat is one participant at the table: a bank of chips and one or two hands
// (two only after a legal split). The dealer seat has no user and no bank.
type Seat struct {
	UserID      string // empty only for the dealer seat
	DisplayName string
	Bank        int
	Hands       []*Hand
	Role        Role
	ActiveHand  int
}

// NewSeat creates a player seat with the given starting bank.
func NewSeat(userID, displayName string, bank int) *Seat {
	return &Seat{
		UserID:      userID,
		DisplayName: displayName,
		Bank:        bank,
		Role:        RolePlayer,
	}
}

// NewDealerSeat creates the synthetic dealer seat.
func NewDealerSeat() *Seat {
	return &Seat{
		DisplayName: "Dealer",
		Role:        RoleDealer,
	}
}

// IsDealer reports whether this is the dealer seat.
func (s *Seat) IsDealer() bool {
	return s.Role == RoleDealer
}

// HasPlayingHand reports whether any of the seat's hands can still act.
func (s *Seat) HasPlayingHand() bool {
	for _, h := range s.Hands {
		if h.Status == HandPlaying {
			return true
		}
	}
	return false
}

// CurrentHand returns the seat's active hand, or nil if out of range.
func (s *Seat) CurrentHand() *Hand {
	if s.ActiveHand < 0 || s.ActiveHand >= len(s.Hands) {
		return nil
	}
	return s.Hands[s.ActiveHand]
}

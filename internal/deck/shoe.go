package deck

import (
	rand "math/rand/v2"
)

// DefaultReshuffleThreshold is the fraction of the shoe that must remain
// before the next draw forces a rebuild and reshuffle.
const DefaultReshuffleThreshold = 0.25

// Shoe holds one or more 52-card decks drawn from during play. Played cards
// are counted so the shoe can rebuild itself once it runs low; the check
// happens lazily on the next draw, not when cards are returned.
type Shoe struct {
	cards       []Card
	decks       int
	cardsPlayed int
	threshold   float64
	rng         *rand.Rand
	rigged      bool
}

// NewShoe creates a shuffled shoe of the given number of decks. The caller
// owns the RNG so deals can be made deterministic in tests.
func NewShoe(decks int, rng *rand.Rand) *Shoe {
	s := &Shoe{
		decks:     decks,
		threshold: DefaultReshuffleThreshold,
		rng:       rng,
	}
	s.rebuild()
	return s
}

// NewRiggedShoe creates a shoe that deals the given cards in order and never
// reshuffles. Test use only.
func NewRiggedShoe(cards ...Card) *Shoe {
	return &Shoe{
		cards:  append([]Card(nil), cards...),
		decks:  1,
		rigged: true,
	}
}

// Draw removes and returns the front card. If the depletion threshold has
// been crossed the shoe is rebuilt and shuffled first; the returned bool
// reports whether that happened. A shoe with at least one deck never runs
// dry: a freshly rebuilt shoe always has cards.
func (s *Shoe) Draw() (Card, bool) {
	reshuffled := false
	if s.needsReshuffle() {
		s.rebuild()
		reshuffled = true
	}
	card := s.cards[0]
	s.cards = s.cards[1:]
	s.cardsPlayed++
	return card, reshuffled
}

// ReturnCards puts played cards back into the body of the shoe at round
// reset. They are not reshuffled immediately.
func (s *Shoe) ReturnCards(cards []Card) {
	s.cards = append(s.cards, cards...)
}

// Remaining returns the number of cards currently in the shoe body.
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// CardsPlayed returns the number of draws since the last rebuild.
func (s *Shoe) CardsPlayed() int {
	return s.cardsPlayed
}

// Decks returns the configured deck count.
func (s *Shoe) Decks() int {
	return s.decks
}

func (s *Shoe) needsReshuffle() bool {
	if s.rigged {
		return false
	}
	total := s.decks * 52
	return float64(total-s.cardsPlayed)/float64(total) <= s.threshold
}

func (s *Shoe) rebuild() {
	s.cards = s.cards[:0]
	for d := 0; d < s.decks; d++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				s.cards = append(s.cards, NewCard(suit, rank))
			}
		}
	}
	s.cardsPlayed = 0
	s.shuffle()
}

func (s *Shoe) shuffle() {
	s.rng.Shuffle(len(s.cards), func(i, j int) {
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	})
}

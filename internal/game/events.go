package game

import "time"

// EventType identifies a committed engine transition in the audit feed.
type EventType string

const (
	EventRoundStart  EventType = "round_start"
	EventDeal        EventType = "deal"
	EventShuffle     EventType = "shuffle"
	EventHit         EventType = "hit"
	EventStand       EventType = "stand"
	EventAutoStand   EventType = "auto_stand"
	EventDouble      EventType = "double"
	EventSplit       EventType = "split"
	EventBust        EventType = "bust"
	EventBlackjack   EventType = "blackjack"
	EventDealerHit   EventType = "dealer_hit"
	EventForceStand  EventType = "force_stand"
	EventForceResult EventType = "force_result"
	EventRoundEnd    EventType = "round_end"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Event is one entry in the append-only audit feed, generated once per
// committed transition. SeatID is empty for table-level events and "dealer"
// for dealer actions.
type Event struct {
	Type      EventType      `json:"action"`
	TableID   string         `json:"tableId"`
	RoundID   string         `json:"roundId,omitempty"`
	SeatID    string         `json:"seatId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (r *Round) logEvent(eventType EventType, seatID string, payload map[string]any) {
	r.events = append(r.events, Event{
		Type:      eventType,
		TableID:   r.tableID,
		RoundID:   r.roundID,
		SeatID:    seatID,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// DrainEvents returns the events accumulated since the last drain and clears
// the feed. Called by the table session after each committed command.
func (r *Round) DrainEvents() []Event {
	events := r.events
	r.events = nil
	return events
}

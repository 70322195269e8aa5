// README: Domain events emitted by the dispatch engine and the Sink they are published to.
package events

import (
	"context"
	"time"

	"farmhaul/internal/types"
)

type Type string

const (
	BookingCreated        Type = "booking.created"
	BookingAccepted       Type = "booking.accepted"
	BookingRejected       Type = "booking.rejected"
	BookingStatusUpdated  Type = "booking.status_updated"
	BookingCancelled      Type = "booking.cancelled"
	BookingRated          Type = "booking.rated"
	BookingChargesUpdated Type = "booking.charges_updated"
)

type Event struct {
	Type       Type           `json:"type"`
	BookingRef string         `json:"booking_ref"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	ActorID    types.ID       `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Sink delivers events somewhere outside the engine. Publish failures are
// reported to the caller but never undo the state change that produced the event.
type Sink interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

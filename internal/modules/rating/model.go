// README: Rating records and the running per-identity summary.
package rating

import (
	"errors"
	"time"

	"farmhaul/internal/types"
)

var (
	ErrOutOfRange = errors.New("rating score must be between 1 and 5")
	ErrDuplicate  = errors.New("rating already submitted")
)

const (
	MinScore = 1
	MaxScore = 5
)

// Direction says who rated whom on a booking.
type Direction string

const (
	RequesterToCarrier Direction = "requester_to_carrier"
	CarrierToRequester Direction = "carrier_to_requester"
)

type Rating struct {
	Direction Direction `json:"direction"`
	RaterID   types.ID  `json:"rater_id"`
	RateeID   types.ID  `json:"ratee_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the aggregate shown on an identity. It is only ever changed
// through Record.
type Summary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// README: Repository contract for bookings, vehicles and identities.
package booking

import (
	"context"
	"time"

	"farmhaul/internal/types"
)

// Repository persists the engine's aggregates. Every method that takes a
// Commit applies all of its effects atomically or none of them.
type Repository interface {
	Insert(ctx context.Context, b *Booking) error
	Load(ctx context.Context, ref string) (*Booking, error)

	// CompareAndSwapStatus stores c.Booking only if the stored booking still
	// has c.ExpectedStatus and c.ExpectedVersion. A mismatch returns
	// ErrStaleVersion; an unavailable c.ClaimVehicle returns ErrVehicleUnavailable.
	CompareAndSwapStatus(ctx context.Context, c Commit) error
	// Save is CompareAndSwapStatus without the status check, for updates
	// that do not change status (charges, ratings).
	Save(ctx context.Context, c Commit) error

	InsertVehicle(ctx context.Context, v *Vehicle) error
	LoadVehicle(ctx context.Context, id types.ID) (*Vehicle, error)
	SetVehicleLocation(ctx context.Context, id types.ID, p types.Point, at time.Time) error

	LoadIdentity(ctx context.Context, id types.ID) (*Identity, error)
	// EnsureIdentity inserts the identity if it does not exist yet.
	EnsureIdentity(ctx context.Context, id types.ID, role types.Role, currency string) error

	CountStalePending(ctx context.Context, before time.Time) (int, error)

	// ListPending and ListAvailableVehicles feed the geo index rebuild.
	ListPending(ctx context.Context) ([]*Booking, error)
	ListAvailableVehicles(ctx context.Context) ([]*Vehicle, error)
	// ListForActor returns the bookings the actor requested (requester) or
	// is bound to (carrier), newest first. An empty status matches all.
	ListForActor(ctx context.Context, actor types.Actor, status Status) ([]*Booking, error)
}

// Commit is one atomic state change: the new booking plus its side effects
// on vehicles and identities.
type Commit struct {
	Booking         *Booking
	ExpectedStatus  Status
	ExpectedVersion int

	ClaimVehicle   types.ID
	ReleaseVehicle types.ID
	Credit         *Credit
	Rating         *RatingUpdate
}

// Credit pays a carrier for one completed trip.
type Credit struct {
	CarrierID types.ID
	Amount    types.Money
}

// RatingUpdate folds one score into an identity's rating summary.
type RatingUpdate struct {
	IdentityID types.ID
	Score      int
}

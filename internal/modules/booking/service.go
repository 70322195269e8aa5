// README: Dispatch engine: create, respond, advance, cancel, rate and charge updates over the repository.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"farmhaul/internal/events"
	"farmhaul/internal/metrics"
	"farmhaul/internal/modules/geo"
	"farmhaul/internal/modules/pricing"
	"farmhaul/internal/modules/rating"
	"farmhaul/internal/types"
)

// Geocoder resolves a free-text address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type Options struct {
	Currency        string
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	MaxResults      int
	StaleAfter      time.Duration
	MonitorInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Currency == "" {
		o.Currency = types.DefaultCurrency
	}
	if o.DefaultRadiusKm <= 0 {
		o.DefaultRadiusKm = 50
	}
	if o.MaxRadiusKm <= 0 {
		o.MaxRadiusKm = 500
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 20
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 2 * time.Hour
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = time.Minute
	}
	return o
}

type Service struct {
	repo     Repository
	claims   *ClaimManager
	index    geo.Index
	pricing  *pricing.Service
	sink     events.Sink
	geocoder Geocoder
	validate *validator.Validate
	opts     Options
	now      func() time.Time
}

func NewService(repo Repository, index geo.Index, sink events.Sink, opts Options) *Service {
	opts = opts.withDefaults()
	p := pricing.NewService(opts.Currency)
	return &Service{
		repo:     repo,
		claims:   NewClaimManager(repo, p),
		index:    index,
		pricing:  p,
		sink:     sink,
		validate: validator.New(),
		opts:     opts,
		now:      time.Now,
	}
}

// WithGeocoder lets CreateBooking accept addresses without coordinates.
func (s *Service) WithGeocoder(g Geocoder) *Service {
	s.geocoder = g
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

type CreateCommand struct {
	Requester types.Actor
	Cargo     Cargo
	Pickup    Location
	Dropoff   Location
	VehicleID types.ID `validate:"required"`
	Window    Window
	Urgency   Urgency `validate:"omitempty,oneof=standard express urgent"`
}

type RespondCommand struct {
	Ref       string `validate:"required"`
	Carrier   types.Actor
	Decision  Decision `validate:"required,oneof=accept reject"`
	VehicleID types.ID
	Note      string `validate:"max=500"`
}

type AdvanceCommand struct {
	Ref      string `validate:"required"`
	Actor    types.Actor
	Target   Status `validate:"required"`
	Note     string `validate:"max=500"`
	Location *types.Point
}

type CancelCommand struct {
	Ref    string `validate:"required"`
	Actor  types.Actor
	Reason string `validate:"required,max=500"`
}

type RateCommand struct {
	Ref     string `validate:"required"`
	Actor   types.Actor
	Score   int
	Comment string `validate:"max=1000"`
}

type UpdateChargesCommand struct {
	Ref     string `validate:"required"`
	Carrier types.Actor
	Charges pricing.Charges
}

func (s *Service) check(cmd any) error {
	if err := s.validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func (s *Service) CreateBooking(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if cmd.Requester.Role != types.RoleRequester || cmd.Requester.ID == "" {
		return nil, unauthorized("only requesters may create bookings")
	}

	pickup, err := s.resolve(ctx, "pickup", cmd.Pickup)
	if err != nil {
		return nil, err
	}
	dropoff, err := s.resolve(ctx, "dropoff", cmd.Dropoff)
	if err != nil {
		return nil, err
	}
	distance, err := geo.Distance(*pickup.Point, *dropoff.Point)
	if err != nil {
		return nil, invalid("%v", err)
	}

	v, err := s.repo.LoadVehicle(ctx, cmd.VehicleID)
	if errors.Is(err, ErrNotFound) {
		return nil, invalid("vehicle %s does not exist", cmd.VehicleID)
	}
	if err != nil {
		return nil, err
	}
	if !v.Available {
		return nil, invalid("vehicle %s is not available", v.ID)
	}
	if v.CapacityKg < cmd.Cargo.WeightKg {
		return nil, invalid("cargo weight %.0fkg exceeds vehicle capacity %.0fkg", cmd.Cargo.WeightKg, v.CapacityKg)
	}

	quote, err := s.pricing.Estimate(pricing.PricingRequest{DistanceKm: distance, RatePerKm: v.RatePerKm})
	if err != nil {
		return nil, invalid("%v", err)
	}

	if err := s.repo.EnsureIdentity(ctx, cmd.Requester.ID, types.RoleRequester, s.opts.Currency); err != nil {
		return nil, err
	}

	urgency := cmd.Urgency
	if urgency == "" {
		urgency = UrgencyStandard
	}
	now := s.now()
	b := &Booking{
		Ref:                newRef(),
		RequesterID:        cmd.Requester.ID,
		RequestedVehicleID: v.ID,
		Cargo:              cmd.Cargo,
		Pickup:             pickup,
		Dropoff:            dropoff,
		Window:             cmd.Window,
		Urgency:            urgency,
		Pricing:            quote,
		PaymentStatus:      PaymentPending,
		Status:             StatusPending,
		Timeline: []TimelineEntry{{
			Status:  StatusPending,
			At:      now,
			ActorID: cmd.Requester.ID,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, b); err != nil {
		return nil, err
	}

	s.indexUpsert(ctx, geo.KindRequest, types.ID(b.Ref), *pickup.Point)
	metrics.IncBookingCreated(string(urgency))
	metrics.IncTransition(string(StatusNone), string(StatusPending))
	s.publish(ctx, events.Event{
		Type:       events.BookingCreated,
		BookingRef: b.Ref,
		To:         string(StatusPending),
		ActorID:    cmd.Requester.ID,
		OccurredAt: now,
		Data: map[string]any{
			"requested_vehicle_id": string(v.ID),
			"distance_km":          geo.RoundKm(distance),
			"total_amount":         quote.TotalAmount.Amount,
			"currency":             quote.TotalAmount.Currency,
		},
	})
	return b.Clone(), nil
}

// resolve fills in a missing coordinate from the address.
func (s *Service) resolve(ctx context.Context, which string, loc Location) (Location, error) {
	out := Location{Address: strings.TrimSpace(loc.Address), Point: clonePoint(loc.Point)}
	if out.Point == nil {
		if s.geocoder == nil || out.Address == "" {
			return out, invalid("%s coordinates are required", which)
		}
		p, err := s.geocoder.Geocode(ctx, out.Address)
		if err != nil {
			return out, invalid("geocode %s address: %v", which, err)
		}
		out.Point = &p
	}
	if err := geo.ValidatePoint(*out.Point); err != nil {
		return out, invalid("%s: %v", which, err)
	}
	return out, nil
}

func (s *Service) RespondToBooking(ctx context.Context, cmd RespondCommand) (*Booking, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if cmd.Carrier.Role != types.RoleCarrier || cmd.Carrier.ID == "" {
		return nil, unauthorized("only carriers may respond to bookings")
	}
	if cmd.Decision == DecisionReject {
		return s.reject(ctx, cmd)
	}

	vehicleID := cmd.VehicleID
	if vehicleID == "" {
		b, err := s.repo.Load(ctx, cmd.Ref)
		if err != nil {
			return nil, err
		}
		vehicleID = b.RequestedVehicleID
	}
	if err := s.repo.EnsureIdentity(ctx, cmd.Carrier.ID, types.RoleCarrier, s.opts.Currency); err != nil {
		return nil, err
	}

	res, err := s.claims.TryClaim(ctx, ClaimRequest{
		Ref:       cmd.Ref,
		CarrierID: cmd.Carrier.ID,
		VehicleID: vehicleID,
		Note:      cmd.Note,
		At:        s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !res.Won {
		metrics.IncClaim(string(res.Reason))
		log.Printf("booking: claim on %s by %s lost: %s", cmd.Ref, cmd.Carrier.ID, res.Reason)
		reason := ErrAlreadyAccepted
		if res.Reason == LostVehicleUnavailable {
			reason = ErrVehicleUnavailable
		}
		return nil, conflict(reason, res.Booking, StatusAccepted)
	}

	b := res.Booking
	metrics.IncClaim("won")
	metrics.IncTransition(string(StatusPending), string(StatusAccepted))
	s.indexRemove(ctx, geo.KindRequest, types.ID(b.Ref))
	s.indexRemove(ctx, geo.KindVehicle, b.VehicleID)
	s.publish(ctx, events.Event{
		Type:       events.BookingAccepted,
		BookingRef: b.Ref,
		From:       string(StatusPending),
		To:         string(StatusAccepted),
		ActorID:    cmd.Carrier.ID,
		OccurredAt: b.UpdatedAt,
		Data: map[string]any{
			"vehicle_id":   string(b.VehicleID),
			"total_amount": b.Pricing.TotalAmount.Amount,
		},
	})
	return b.Clone(), nil
}

// reject is reserved to the owner of the vehicle the requester picked.
func (s *Service) reject(ctx context.Context, cmd RespondCommand) (*Booking, error) {
	b, err := s.repo.Load(ctx, cmd.Ref)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.LoadVehicle(ctx, b.RequestedVehicleID)
	if err != nil {
		return nil, err
	}
	if v.OwnerID != cmd.Carrier.ID {
		return nil, unauthorized("only the owner of the requested vehicle may reject")
	}
	if b.Status != StatusPending {
		if b.Assigned() {
			return nil, conflict(ErrAlreadyAccepted, b, StatusRejected)
		}
		return nil, conflict(ErrInvalidTransition, b, StatusRejected)
	}

	next, err := s.transition(ctx, b, cmd.Carrier.ID, StatusRejected, cmd.Note, nil, nil)
	if err != nil {
		return nil, err
	}
	s.indexRemove(ctx, geo.KindRequest, types.ID(next.Ref))
	s.publish(ctx, events.Event{
		Type:       events.BookingRejected,
		BookingRef: next.Ref,
		From:       string(StatusPending),
		To:         string(StatusRejected),
		ActorID:    cmd.Carrier.ID,
		OccurredAt: next.UpdatedAt,
		Data:       map[string]any{"note": cmd.Note},
	})
	return next, nil
}

func (s *Service) AdvanceStatus(ctx context.Context, cmd AdvanceCommand) (*Booking, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if !cmd.Target.Valid() {
		return nil, invalid("unknown status %q", cmd.Target)
	}
	if cmd.Target == StatusCancelled {
		return s.CancelBooking(ctx, CancelCommand{Ref: cmd.Ref, Actor: cmd.Actor, Reason: cmd.Note})
	}
	if cmd.Location != nil {
		if err := geo.ValidatePoint(*cmd.Location); err != nil {
			return nil, invalid("%v", err)
		}
	}

	b, err := s.repo.Load(ctx, cmd.Ref)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, cmd.Target) {
		return nil, conflict(ErrInvalidTransition, b, cmd.Target)
	}
	// pending -> accepted/rejected only happens through RespondToBooking
	if cmd.Target == StatusAccepted || cmd.Target == StatusRejected {
		return nil, unauthorized("status %s is set by responding to the booking", cmd.Target)
	}
	if err := authorizeAdvance(b, cmd.Actor, cmd.Target); err != nil {
		return nil, err
	}

	next, err := s.transition(ctx, b, cmd.Actor.ID, cmd.Target, cmd.Note, cmd.Location, func(next *Booking, c *Commit) {
		if cmd.Target == StatusCompleted {
			c.ReleaseVehicle = b.VehicleID
			c.Credit = &Credit{CarrierID: b.CarrierID, Amount: b.Pricing.TotalAmount}
		}
	})
	if err != nil {
		return nil, err
	}

	if cmd.Location != nil && next.VehicleID != "" {
		if err := s.repo.SetVehicleLocation(ctx, next.VehicleID, *cmd.Location, next.UpdatedAt); err != nil {
			log.Printf("booking: update vehicle %s location: %v", next.VehicleID, err)
		}
	}
	if cmd.Target == StatusCompleted {
		s.reindexVehicle(ctx, next.VehicleID)
	}
	s.publish(ctx, events.Event{
		Type:       events.BookingStatusUpdated,
		BookingRef: next.Ref,
		From:       string(b.Status),
		To:         string(next.Status),
		ActorID:    cmd.Actor.ID,
		OccurredAt: next.UpdatedAt,
		Data:       map[string]any{"note": cmd.Note},
	})
	return next, nil
}

func (s *Service) CancelBooking(ctx context.Context, cmd CancelCommand) (*Booking, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	b, err := s.repo.Load(ctx, cmd.Ref)
	if err != nil {
		return nil, err
	}
	if err := authorizeCancel(b, cmd.Actor); err != nil {
		return nil, err
	}
	if IsTerminal(b.Status) {
		return nil, conflict(ErrAlreadyTerminal, b, StatusCancelled)
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return nil, conflict(ErrInvalidTransition, b, StatusCancelled)
	}

	next, err := s.transition(ctx, b, cmd.Actor.ID, StatusCancelled, cmd.Reason, nil, func(next *Booking, c *Commit) {
		if b.Assigned() {
			c.ReleaseVehicle = b.VehicleID
		}
	})
	if errors.Is(err, ErrStaleVersion) {
		var ce *ConflictError
		if errors.As(err, &ce) && ce.Booking != nil && IsTerminal(ce.Booking.Status) {
			return nil, conflict(ErrAlreadyTerminal, ce.Booking, StatusCancelled)
		}
	}
	if err != nil {
		return nil, err
	}

	if b.Status == StatusPending {
		s.indexRemove(ctx, geo.KindRequest, types.ID(next.Ref))
	}
	if b.Assigned() {
		s.reindexVehicle(ctx, b.VehicleID)
	}
	s.publish(ctx, events.Event{
		Type:       events.BookingCancelled,
		BookingRef: next.Ref,
		From:       string(b.Status),
		To:         string(StatusCancelled),
		ActorID:    cmd.Actor.ID,
		OccurredAt: next.UpdatedAt,
		Data:       map[string]any{"reason": cmd.Reason},
	})
	return next, nil
}

func (s *Service) RateBooking(ctx context.Context, cmd RateCommand) (*rating.Rating, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if err := rating.ValidateScore(cmd.Score); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b, err := s.repo.Load(ctx, cmd.Ref)
	if err != nil {
		return nil, err
	}

	var dir rating.Direction
	var ratee types.ID
	switch {
	case cmd.Actor.ID == b.RequesterID && b.Assigned():
		dir, ratee = rating.RequesterToCarrier, b.CarrierID
	case b.Assigned() && cmd.Actor.ID == b.CarrierID:
		dir, ratee = rating.CarrierToRequester, b.RequesterID
	default:
		return nil, unauthorized("only the parties of a booking may rate it")
	}
	if !ratable(b.Status) {
		return nil, conflict(ErrInvalidTransition, b, "")
	}
	if b.Ratings.Get(dir) != nil {
		return nil, conflict(ErrDuplicateRating, b, "")
	}

	now := s.now()
	r := rating.Rating{
		Direction: dir,
		RaterID:   cmd.Actor.ID,
		RateeID:   ratee,
		Score:     cmd.Score,
		Comment:   strings.TrimSpace(cmd.Comment),
		CreatedAt: now,
	}
	next := b.Clone()
	if err := next.Ratings.Set(r); err != nil {
		return nil, conflict(ErrDuplicateRating, b, "")
	}
	next.Version = b.Version + 1
	next.UpdatedAt = now

	err = s.repo.Save(ctx, Commit{
		Booking:         next,
		ExpectedVersion: b.Version,
		Rating:          &RatingUpdate{IdentityID: ratee, Score: cmd.Score},
	})
	if errors.Is(err, ErrStaleVersion) {
		cur, lerr := s.repo.Load(ctx, cmd.Ref)
		if lerr != nil {
			return nil, lerr
		}
		if cur.Ratings.Get(dir) != nil {
			return nil, conflict(ErrDuplicateRating, cur, "")
		}
		return nil, conflict(ErrStaleVersion, cur, "")
	}
	if err != nil {
		return nil, err
	}

	metrics.IncRating(string(dir))
	s.publish(ctx, events.Event{
		Type:       events.BookingRated,
		BookingRef: b.Ref,
		From:       string(b.Status),
		To:         string(b.Status),
		ActorID:    cmd.Actor.ID,
		OccurredAt: now,
		Data: map[string]any{
			"direction": string(dir),
			"ratee_id":  string(ratee),
			"score":     cmd.Score,
		},
	})
	return &r, nil
}

func (s *Service) UpdateCharges(ctx context.Context, cmd UpdateChargesCommand) (*Booking, error) {
	if err := s.check(cmd); err != nil {
		return nil, err
	}
	if err := cmd.Charges.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	b, err := s.repo.Load(ctx, cmd.Ref)
	if err != nil {
		return nil, err
	}
	if !b.Assigned() || cmd.Carrier.ID != b.CarrierID {
		return nil, unauthorized("only the assigned carrier may change charges")
	}
	if !chargeable(b.Status) {
		return nil, conflict(ErrInvalidTransition, b, "")
	}

	quote, err := s.pricing.Reprice(b.Pricing, cmd.Charges)
	if err != nil {
		return nil, invalid("%v", err)
	}
	next := b.Clone()
	next.Pricing = quote
	next.Version = b.Version + 1
	next.UpdatedAt = s.now()

	err = s.repo.Save(ctx, Commit{Booking: next, ExpectedVersion: b.Version})
	if errors.Is(err, ErrStaleVersion) {
		return nil, s.staleConflict(ctx, cmd.Ref, "")
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:       events.BookingChargesUpdated,
		BookingRef: next.Ref,
		From:       string(next.Status),
		To:         string(next.Status),
		ActorID:    cmd.Carrier.ID,
		OccurredAt: next.UpdatedAt,
		Data: map[string]any{
			"charges":      quote.Charges,
			"total_amount": quote.TotalAmount.Amount,
		},
	})
	return next, nil
}

// ListBookings returns the caller's own bookings: those they requested, or
// for a carrier those bound to them. status may be empty.
func (s *Service) ListBookings(ctx context.Context, actor types.Actor, status Status) ([]*Booking, error) {
	if actor.ID == "" || (actor.Role != types.RoleRequester && actor.Role != types.RoleCarrier) {
		return nil, unauthorized("only requesters and carriers have their own bookings")
	}
	if status != "" && !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	bs, err := s.repo.ListForActor(ctx, actor, status)
	if err != nil {
		return nil, err
	}
	if bs == nil {
		bs = []*Booking{}
	}
	return bs, nil
}

func (s *Service) GetBooking(ctx context.Context, ref string, actor types.Actor) (*Booking, error) {
	b, err := s.repo.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !canRead(b, actor) {
		return nil, unauthorized("booking %s is not visible to %s", ref, actor.ID)
	}
	return b, nil
}

// transition commits b -> to with one new timeline entry. mutate may attach
// side effects to the commit.
func (s *Service) transition(ctx context.Context, b *Booking, actorID types.ID, to Status, note string, loc *types.Point, mutate func(next *Booking, c *Commit)) (*Booking, error) {
	now := s.now()
	next := b.Clone()
	next.Status = to
	next.Version = b.Version + 1
	next.UpdatedAt = now
	next.Timeline = append(next.Timeline, TimelineEntry{
		Status:   to,
		At:       now,
		ActorID:  actorID,
		Note:     note,
		Location: clonePoint(loc),
	})

	c := Commit{Booking: next, ExpectedStatus: b.Status, ExpectedVersion: b.Version}
	if mutate != nil {
		mutate(next, &c)
	}
	err := s.repo.CompareAndSwapStatus(ctx, c)
	if errors.Is(err, ErrStaleVersion) {
		return nil, s.staleConflict(ctx, b.Ref, to)
	}
	if err != nil {
		return nil, err
	}
	metrics.IncTransition(string(b.Status), string(to))
	return next.Clone(), nil
}

func (s *Service) staleConflict(ctx context.Context, ref string, requested Status) error {
	cur, err := s.repo.Load(ctx, ref)
	if err != nil {
		return err
	}
	return conflict(ErrStaleVersion, cur, requested)
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, e); err != nil {
		metrics.IncEventFailure()
		log.Printf("booking: publish %s for %s: %v", e.Type, e.BookingRef, err)
	}
}

func newRef() string {
	return "BKG-" + strings.ToUpper(uuid.NewString())
}

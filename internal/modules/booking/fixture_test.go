package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farmhaul/internal/events"
	"farmhaul/internal/modules/geo"
	"farmhaul/internal/types"
)

var (
	lucknow = types.Point{Lat: 26.8467, Lng: 80.9462}
	delhi   = types.Point{Lat: 28.6139, Lng: 77.2090}

	requester = types.Actor{ID: "req-1", Role: types.RoleRequester}
	carrierA  = types.Actor{ID: "car-a", Role: types.RoleCarrier}
	carrierB  = types.Actor{ID: "car-b", Role: types.RoleCarrier}
	admin     = types.Actor{ID: "admin-1", Role: types.RoleAdmin}
)

// testClock advances one second per call so timeline entries are ordered.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	svc   *Service
	store *MemoryStore
	index *geo.MemoryIndex
	sink  *events.MemorySink
	clock *testClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: NewMemoryStore(),
		index: geo.NewMemoryIndex(),
		sink:  events.NewMemorySink(),
		clock: &testClock{t: time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(f.store, f.index, f.sink, Options{Currency: "INR"}).WithClock(f.clock.Now)
	return f
}

func (f *fixture) vehicle(t *testing.T, owner types.Actor, id types.ID, ratePerKm int64, at types.Point) *Vehicle {
	t.Helper()
	v, err := f.svc.RegisterVehicle(context.Background(), RegisterVehicleCommand{
		Carrier:    owner,
		ID:         id,
		Type:       VehicleTruck,
		Number:     "up32 ab 1234",
		CapacityKg: 5000,
		RatePerKm:  types.NewMoney(ratePerKm, "INR"),
		Location:   &at,
	})
	if err != nil {
		t.Fatalf("RegisterVehicle(%s): %v", id, err)
	}
	return v
}

func createCmd(vehicleID types.ID) CreateCommand {
	p, d := lucknow, delhi
	return CreateCommand{
		Requester: requester,
		Cargo: Cargo{
			Category:   CargoGrains,
			Items:      []Item{{Name: "wheat", Quantity: 20, Unit: UnitQuintal}},
			WeightKg:   2000,
			Perishable: false,
		},
		Pickup:    Location{Address: "Naveen Galla Mandi, Lucknow", Point: &p},
		Dropoff:   Location{Address: "Azadpur Mandi, Delhi", Point: &d},
		VehicleID: vehicleID,
		Window:    Window{Date: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), Slot: SlotMorning},
		Urgency:   UrgencyExpress,
	}
}

func (f *fixture) create(t *testing.T, vehicleID types.ID) *Booking {
	t.Helper()
	b, err := f.svc.CreateBooking(context.Background(), createCmd(vehicleID))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

func (f *fixture) accept(t *testing.T, ref string, carrier types.Actor, vehicleID types.ID) *Booking {
	t.Helper()
	b, err := f.svc.RespondToBooking(context.Background(), RespondCommand{
		Ref: ref, Carrier: carrier, Decision: DecisionAccept, VehicleID: vehicleID,
	})
	if err != nil {
		t.Fatalf("accept %s by %s: %v", ref, carrier.ID, err)
	}
	return b
}

func (f *fixture) advance(t *testing.T, ref string, actor types.Actor, target Status) *Booking {
	t.Helper()
	b, err := f.svc.AdvanceStatus(context.Background(), AdvanceCommand{Ref: ref, Actor: actor, Target: target})
	if err != nil {
		t.Fatalf("advance %s to %s: %v", ref, target, err)
	}
	return b
}

// deliver walks an accepted booking through to delivered.
func (f *fixture) deliver(t *testing.T, ref string, carrier types.Actor) *Booking {
	t.Helper()
	var b *Booking
	for _, s := range []Status{StatusEnRoutePickup, StatusPickedUp, StatusEnRouteDelivery, StatusDelivered} {
		b = f.advance(t, ref, carrier, s)
	}
	return b
}

func (f *fixture) stored(t *testing.T, ref string) *Booking {
	t.Helper()
	b, err := f.store.Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("Load(%s): %v", ref, err)
	}
	return b
}

func assertTimeline(t *testing.T, b *Booking) {
	t.Helper()
	if got := b.lastStatus(); got != b.Status {
		t.Fatalf("timeline ends at %s but status is %s", got, b.Status)
	}
	for i := 1; i < len(b.Timeline); i++ {
		if b.Timeline[i].At.Before(b.Timeline[i-1].At) {
			t.Fatalf("timeline entry %d is earlier than %d", i, i-1)
		}
	}
}

func assertConflict(t *testing.T, err error, reason error, current Status) *ConflictError {
	t.Helper()
	if !errors.Is(err, reason) {
		t.Fatalf("err = %v, want %v", err, reason)
	}
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("err %v is not a *ConflictError", err)
	}
	if ce.Current != current {
		t.Errorf("conflict current = %s, want %s", ce.Current, current)
	}
	return ce
}

type stubGeocoder map[string]types.Point

func (g stubGeocoder) Geocode(_ context.Context, address string) (types.Point, error) {
	p, ok := g[address]
	if !ok {
		return types.Point{}, errors.New("ZERO_RESULTS")
	}
	return p, nil
}

// README: In-memory repository with per-entity locks; used in tests and when no database is configured.
package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"farmhaul/internal/modules/rating"
	"farmhaul/internal/types"
)

// MemoryStore takes per-entity locks in the fixed order
// booking -> vehicle -> identity, so two commits never deadlock.
type MemoryStore struct {
	// mu guards the maps only. commit holds it across check-and-apply, so
	// commits are serialized store-wide; the entity locks add no parallelism.
	mu         sync.RWMutex
	bookings   map[string]*Booking
	vehicles   map[types.ID]*Vehicle
	identities map[types.ID]*Identity

	locks sync.Map // entity key -> *sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings:   make(map[string]*Booking),
		vehicles:   make(map[types.ID]*Vehicle),
		identities: make(map[types.ID]*Identity),
	}
}

func (s *MemoryStore) lock(key string) func() {
	m, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *MemoryStore) Insert(_ context.Context, b *Booking) error {
	unlock := s.lock("booking:" + b.Ref)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.Ref]; ok {
		return fmt.Errorf("%w: booking %s already exists", ErrConflict, b.Ref)
	}
	s.bookings[b.Ref] = b.Clone()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, ref string) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[ref]
	if !ok {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, ref)
	}
	return b.Clone(), nil
}

func (s *MemoryStore) CompareAndSwapStatus(_ context.Context, c Commit) error {
	return s.commit(c, true)
}

func (s *MemoryStore) Save(_ context.Context, c Commit) error {
	return s.commit(c, false)
}

func (s *MemoryStore) commit(c Commit, checkStatus bool) error {
	ref := c.Booking.Ref
	defer s.lock("booking:" + ref)()

	for _, id := range sortedIDs(c.ClaimVehicle, c.ReleaseVehicle) {
		defer s.lock("vehicle:" + string(id))()
	}
	var idents []types.ID
	if c.Credit != nil {
		idents = append(idents, c.Credit.CarrierID)
	}
	if c.Rating != nil {
		idents = append(idents, c.Rating.IdentityID)
	}
	for _, id := range sortedIDs(idents...) {
		defer s.lock("identity:" + string(id))()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.bookings[ref]
	if !ok {
		return fmt.Errorf("%w: booking %s", ErrNotFound, ref)
	}
	if cur.Version != c.ExpectedVersion || (checkStatus && cur.Status != c.ExpectedStatus) {
		return ErrStaleVersion
	}

	// validate every side effect before applying any of them
	var claim, release *Vehicle
	if c.ClaimVehicle != "" {
		claim, ok = s.vehicles[c.ClaimVehicle]
		if !ok {
			return fmt.Errorf("%w: vehicle %s", ErrNotFound, c.ClaimVehicle)
		}
		if !claim.Available {
			return ErrVehicleUnavailable
		}
	}
	if c.ReleaseVehicle != "" {
		if release, ok = s.vehicles[c.ReleaseVehicle]; !ok {
			return fmt.Errorf("%w: vehicle %s", ErrNotFound, c.ReleaseVehicle)
		}
	}
	var credited, rated *Identity
	if c.Credit != nil {
		if credited, ok = s.identities[c.Credit.CarrierID]; !ok {
			return fmt.Errorf("%w: identity %s", ErrNotFound, c.Credit.CarrierID)
		}
	}
	var summary rating.Summary
	if c.Rating != nil {
		if rated, ok = s.identities[c.Rating.IdentityID]; !ok {
			return fmt.Errorf("%w: identity %s", ErrNotFound, c.Rating.IdentityID)
		}
		var err error
		if summary, err = rating.Record(rated.Rating, c.Rating.Score); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	next := c.Booking.Clone()
	next.Version = c.ExpectedVersion + 1
	s.bookings[ref] = next
	if claim != nil {
		claim.Available = false
	}
	if release != nil {
		release.Available = true
	}
	if credited != nil {
		credited.CompletedTrips++
		credited.Earnings = credited.Earnings.Add(c.Credit.Amount)
	}
	if rated != nil {
		rated.Rating = summary
	}
	return nil
}

func (s *MemoryStore) InsertVehicle(_ context.Context, v *Vehicle) error {
	defer s.lock("vehicle:" + string(v.ID))()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[v.ID]; ok {
		return fmt.Errorf("%w: vehicle %s already exists", ErrConflict, v.ID)
	}
	s.vehicles[v.ID] = v.Clone()
	return nil
}

func (s *MemoryStore) LoadVehicle(_ context.Context, id types.ID) (*Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	return v.Clone(), nil
}

func (s *MemoryStore) SetVehicleLocation(_ context.Context, id types.ID, p types.Point, at time.Time) error {
	defer s.lock("vehicle:" + string(id))()

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	v.Location = &p
	v.UpdatedAt = at
	return nil
}

func (s *MemoryStore) LoadIdentity(_ context.Context, id types.ID) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.identities[id]
	if !ok {
		return nil, fmt.Errorf("%w: identity %s", ErrNotFound, id)
	}
	cp := *i
	return &cp, nil
}

func (s *MemoryStore) EnsureIdentity(_ context.Context, id types.ID, role types.Role, currency string) error {
	defer s.lock("identity:" + string(id))()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[id]; ok {
		return nil
	}
	s.identities[id] = &Identity{ID: id, Role: role, Earnings: types.NewMoney(0, currency)}
	return nil
}

func (s *MemoryStore) CountStalePending(_ context.Context, before time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.bookings {
		if b.Status == StatusPending && b.CreatedAt.Before(before) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Booking
	for _, b := range s.bookings {
		if b.Status == StatusPending {
			out = append(out, b.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ListAvailableVehicles(_ context.Context) ([]*Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Vehicle
	for _, v := range s.vehicles {
		if v.Available && v.Location != nil {
			out = append(out, v.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListForActor(_ context.Context, actor types.Actor, status Status) ([]*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Booking
	for _, b := range s.bookings {
		if status != "" && b.Status != status {
			continue
		}
		if isParty(b, actor) {
			out = append(out, b.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func isParty(b *Booking, actor types.Actor) bool {
	switch actor.Role {
	case types.RoleRequester:
		return b.RequesterID == actor.ID
	case types.RoleCarrier:
		return b.CarrierID != "" && b.CarrierID == actor.ID
	}
	return false
}

func sortNewestFirst(bs []*Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].CreatedAt.After(bs[j].CreatedAt)
		}
		return bs[i].Ref > bs[j].Ref
	})
}

// sortedIDs drops empty and duplicate ids and sorts the rest, giving a
// stable lock order.
func sortedIDs(ids ...types.ID) []types.ID {
	seen := make(map[types.ID]bool, len(ids))
	out := make([]types.ID, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

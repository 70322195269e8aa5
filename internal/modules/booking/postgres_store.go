// README: Booking repository backed by PostgreSQL; each commit is one transaction.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"farmhaul/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// bookingDoc holds the JSONB columns of one row.
type bookingDoc struct {
	cargo, pickup, dropoff, window, pricing, timeline, ratings []byte
}

func encodeBooking(b *Booking) (bookingDoc, error) {
	var d bookingDoc
	var err error
	for _, f := range []struct {
		dst *[]byte
		v   any
	}{
		{&d.cargo, b.Cargo},
		{&d.pickup, b.Pickup},
		{&d.dropoff, b.Dropoff},
		{&d.window, b.Window},
		{&d.pricing, b.Pricing},
		{&d.timeline, b.Timeline},
		{&d.ratings, b.Ratings},
	} {
		if *f.dst, err = json.Marshal(f.v); err != nil {
			return d, fmt.Errorf("encode booking %s: %w", b.Ref, err)
		}
	}
	return d, nil
}

func (s *PostgresStore) Insert(ctx context.Context, b *Booking) error {
	d, err := encodeBooking(b)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO bookings (
			ref, requester_id, carrier_id, vehicle_id, requested_vehicle_id,
			status, version, cargo, pickup, dropoff, time_window, urgency,
			pricing, payment_status, timeline, ratings, created_at, updated_at
		) VALUES (
			$1, $2, NULLIF($3, ''), NULLIF($4, ''), $5,
			$6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18
		)`,
		b.Ref, string(b.RequesterID), string(b.CarrierID), string(b.VehicleID), string(b.RequestedVehicleID),
		string(b.Status), b.Version, d.cargo, d.pickup, d.dropoff, d.window, string(b.Urgency),
		d.pricing, string(b.PaymentStatus), d.timeline, d.ratings, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

const bookingColumns = `
	ref, requester_id, COALESCE(carrier_id, ''), COALESCE(vehicle_id, ''), requested_vehicle_id,
	status, version, cargo, pickup, dropoff, time_window, urgency,
	pricing, payment_status, timeline, ratings, created_at, updated_at`

func (s *PostgresStore) Load(ctx context.Context, ref string) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ref = $1`, ref)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, ref)
	}
	return b, err
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var d bookingDoc
	err := row.Scan(
		&b.Ref, &b.RequesterID, &b.CarrierID, &b.VehicleID, &b.RequestedVehicleID,
		&b.Status, &b.Version, &d.cargo, &d.pickup, &d.dropoff, &d.window, &b.Urgency,
		&d.pricing, &b.PaymentStatus, &d.timeline, &d.ratings, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		src []byte
		dst any
	}{
		{d.cargo, &b.Cargo},
		{d.pickup, &b.Pickup},
		{d.dropoff, &b.Dropoff},
		{d.window, &b.Window},
		{d.pricing, &b.Pricing},
		{d.timeline, &b.Timeline},
		{d.ratings, &b.Ratings},
	} {
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, fmt.Errorf("decode booking %s: %w", b.Ref, err)
		}
	}
	return &b, nil
}

func (s *PostgresStore) queryBookings(ctx context.Context, query string, args ...any) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CompareAndSwapStatus(ctx context.Context, c Commit) error {
	return s.commit(ctx, c, true)
}

func (s *PostgresStore) Save(ctx context.Context, c Commit) error {
	return s.commit(ctx, c, false)
}

func (s *PostgresStore) commit(ctx context.Context, c Commit, checkStatus bool) error {
	b := c.Booking
	d, err := encodeBooking(b)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE bookings
		SET carrier_id = NULLIF($2, ''),
		    vehicle_id = NULLIF($3, ''),
		    status = $4,
		    version = version + 1,
		    pricing = $5,
		    payment_status = $6,
		    timeline = $7,
		    ratings = $8,
		    updated_at = $9
		WHERE ref = $1 AND version = $10`
	args := []any{
		b.Ref, string(b.CarrierID), string(b.VehicleID), string(b.Status),
		d.pricing, string(b.PaymentStatus), d.timeline, d.ratings, b.UpdatedAt,
		c.ExpectedVersion,
	}
	if checkStatus {
		query += ` AND status = $11`
		args = append(args, string(c.ExpectedStatus))
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrStaleVersion
	}

	if c.ClaimVehicle != "" {
		tag, err := tx.Exec(ctx, `
			UPDATE vehicles SET available = FALSE, updated_at = NOW()
			WHERE id = $1 AND available`, string(c.ClaimVehicle))
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return ErrVehicleUnavailable
		}
	}
	if c.ReleaseVehicle != "" {
		if err := execOne(ctx, tx, "vehicle "+string(c.ReleaseVehicle), `
			UPDATE vehicles SET available = TRUE, updated_at = NOW()
			WHERE id = $1`, string(c.ReleaseVehicle)); err != nil {
			return err
		}
	}
	if c.Credit != nil {
		if err := execOne(ctx, tx, "identity "+string(c.Credit.CarrierID), `
			UPDATE identities
			SET completed_trips = completed_trips + 1,
			    earnings = earnings + $2
			WHERE id = $1`, string(c.Credit.CarrierID), c.Credit.Amount.Amount); err != nil {
			return err
		}
	}
	if c.Rating != nil {
		if err := execOne(ctx, tx, "identity "+string(c.Rating.IdentityID), `
			UPDATE identities
			SET rating_avg = (rating_avg * rating_count + $2) / (rating_count + 1),
			    rating_count = rating_count + 1
			WHERE id = $1`, string(c.Rating.IdentityID), float64(c.Rating.Score)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func execOne(ctx context.Context, tx pgx.Tx, what, query string, args ...any) error {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}

func (s *PostgresStore) InsertVehicle(ctx context.Context, v *Vehicle) error {
	var lat, lng *float64
	if v.Location != nil {
		lat, lng = &v.Location.Lat, &v.Location.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicles (
			id, owner_id, vehicle_type, number, capacity_kg,
			rate_per_km, currency, available, lat, lng, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(v.ID), string(v.OwnerID), string(v.Type), v.Number, v.CapacityKg,
		v.RatePerKm.Amount, v.RatePerKm.Currency, v.Available, lat, lng, v.UpdatedAt,
	)
	return err
}

const vehicleColumns = `
	id, owner_id, vehicle_type, number, capacity_kg,
	rate_per_km, currency, available, lat, lng, updated_at`

func (s *PostgresStore) LoadVehicle(ctx context.Context, id types.ID) (*Vehicle, error) {
	row := s.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, string(id))
	v, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	return v, err
}

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	var v Vehicle
	var lat, lng *float64
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Type, &v.Number, &v.CapacityKg,
		&v.RatePerKm.Amount, &v.RatePerKm.Currency, &v.Available, &lat, &lng, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		v.Location = &types.Point{Lat: *lat, Lng: *lng}
	}
	return &v, nil
}

func (s *PostgresStore) SetVehicleLocation(ctx context.Context, id types.ID, p types.Point, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE vehicles SET lat = $2, lng = $3, updated_at = $4
		WHERE id = $1`, string(id), p.Lat, p.Lng, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) LoadIdentity(ctx context.Context, id types.ID) (*Identity, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, role, rating_avg, rating_count, completed_trips, earnings, currency
		FROM identities
		WHERE id = $1`, string(id),
	)
	var i Identity
	err := row.Scan(&i.ID, &i.Role, &i.Rating.Average, &i.Rating.Count, &i.CompletedTrips, &i.Earnings.Amount, &i.Earnings.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: identity %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *PostgresStore) EnsureIdentity(ctx context.Context, id types.ID, role types.Role, currency string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO identities (id, role, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`, string(id), string(role), currency)
	return err
}

func (s *PostgresStore) CountStalePending(ctx context.Context, before time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE status = 'pending' AND created_at < $1`, before,
	).Scan(&n)
	return n, err
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*Booking, error) {
	return s.queryBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = 'pending'
		ORDER BY created_at DESC, ref DESC`)
}

func (s *PostgresStore) ListAvailableVehicles(ctx context.Context) ([]*Vehicle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+vehicleColumns+` FROM vehicles
		WHERE available AND lat IS NOT NULL AND lng IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListForActor(ctx context.Context, actor types.Actor, status Status) ([]*Booking, error) {
	var column string
	switch actor.Role {
	case types.RoleRequester:
		column = "requester_id"
	case types.RoleCarrier:
		column = "carrier_id"
	default:
		return nil, nil
	}
	return s.queryBookings(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE `+column+` = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at DESC, ref DESC`, string(actor.ID), string(status))
}

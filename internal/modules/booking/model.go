// README: Booking aggregate, vehicle and identity records, and their closed enumerations.
package booking

import (
	"time"

	"farmhaul/internal/modules/pricing"
	"farmhaul/internal/modules/rating"
	"farmhaul/internal/types"
)

type Status string

const (
	StatusNone            Status = "none"
	StatusPending         Status = "pending"
	StatusAccepted        Status = "accepted"
	StatusEnRoutePickup   Status = "en_route_pickup"
	StatusPickedUp        Status = "picked_up"
	StatusEnRouteDelivery Status = "en_route_delivery"
	StatusDelivered       Status = "delivered"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusEnRoutePickup, StatusPickedUp, StatusEnRouteDelivery,
		StatusDelivered, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

type CargoCategory string

const (
	CargoGrains     CargoCategory = "grains"
	CargoVegetables CargoCategory = "vegetables"
	CargoFruits     CargoCategory = "fruits"
	CargoDairy      CargoCategory = "dairy"
	CargoLivestock  CargoCategory = "livestock"
	CargoEquipment  CargoCategory = "equipment"
	CargoSeeds      CargoCategory = "seeds"
	CargoFertilizer CargoCategory = "fertilizer"
	CargoOther      CargoCategory = "other"
)

type Unit string

const (
	UnitKg      Unit = "kg"
	UnitTons    Unit = "tons"
	UnitQuintal Unit = "quintal"
	UnitBags    Unit = "bags"
	UnitBoxes   Unit = "boxes"
	UnitLiters  Unit = "liters"
)

type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
	SlotFlexible  TimeSlot = "flexible"
)

type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyExpress  Urgency = "express"
	UrgencyUrgent   Urgency = "urgent"
)

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentAdvancePaid PaymentStatus = "advance_paid"
	PaymentPartialPaid PaymentStatus = "partial_paid"
	PaymentCompleted   PaymentStatus = "completed"
)

type VehicleType string

const (
	VehicleTruck     VehicleType = "truck"
	VehicleMiniTruck VehicleType = "mini_truck"
	VehiclePickup    VehicleType = "pickup"
	VehicleTractor   VehicleType = "tractor"
	VehicleTempo     VehicleType = "tempo"
	VehicleVan       VehicleType = "van"
)

func (t VehicleType) Valid() bool {
	switch t {
	case VehicleTruck, VehicleMiniTruck, VehiclePickup, VehicleTractor, VehicleTempo, VehicleVan:
		return true
	}
	return false
}

type Item struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Unit     Unit    `json:"unit" validate:"required,oneof=kg tons quintal bags boxes liters"`
}

type Cargo struct {
	Category      CargoCategory `json:"category" validate:"required,oneof=grains vegetables fruits dairy livestock equipment seeds fertilizer other"`
	Items         []Item        `json:"items" validate:"required,min=1,dive"`
	WeightKg      float64       `json:"weight_kg" validate:"gt=0"`
	Perishable    bool          `json:"perishable"`
	HandlingNotes string        `json:"handling_notes,omitempty" validate:"max=500"`
}

// Location is a route endpoint. Point may be omitted when Address can be geocoded.
type Location struct {
	Address string       `json:"address" validate:"required_without=Point,max=300"`
	Point   *types.Point `json:"point,omitempty"`
}

type Window struct {
	Date time.Time `json:"date" validate:"required"`
	Slot TimeSlot  `json:"slot" validate:"required,oneof=morning afternoon evening flexible"`
}

type TimelineEntry struct {
	Status   Status       `json:"status"`
	At       time.Time    `json:"at"`
	ActorID  types.ID     `json:"actor_id"`
	Note     string       `json:"note,omitempty"`
	Location *types.Point `json:"location,omitempty"`
}

type Booking struct {
	Ref                string                `json:"ref"`
	RequesterID        types.ID              `json:"requester_id"`
	CarrierID          types.ID              `json:"carrier_id,omitempty"`
	VehicleID          types.ID              `json:"vehicle_id,omitempty"`
	RequestedVehicleID types.ID              `json:"requested_vehicle_id"`
	Cargo              Cargo                 `json:"cargo"`
	Pickup             Location              `json:"pickup"`
	Dropoff            Location              `json:"dropoff"`
	Window             Window                `json:"window"`
	Urgency            Urgency               `json:"urgency"`
	Pricing            pricing.PricingResult `json:"pricing"`
	PaymentStatus      PaymentStatus         `json:"payment_status"`
	Status             Status                `json:"status"`
	Timeline           []TimelineEntry       `json:"timeline"`
	Ratings            rating.Slots          `json:"ratings"`
	Version            int                   `json:"version"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// Assigned reports whether a carrier and vehicle are bound. Both are set
// together or not at all.
func (b *Booking) Assigned() bool {
	return b.CarrierID != "" && b.VehicleID != ""
}

// PickupPoint returns the resolved pickup coordinate.
func (b *Booking) PickupPoint() types.Point {
	if b.Pickup.Point == nil {
		return types.Point{}
	}
	return *b.Pickup.Point
}

// Clone returns a deep copy so callers can never mutate stored state.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Cargo.Items = append([]Item(nil), b.Cargo.Items...)
	c.Pickup.Point = clonePoint(b.Pickup.Point)
	c.Dropoff.Point = clonePoint(b.Dropoff.Point)
	c.Timeline = make([]TimelineEntry, len(b.Timeline))
	for i, e := range b.Timeline {
		e.Location = clonePoint(e.Location)
		c.Timeline[i] = e
	}
	if b.Pricing.Breakdown != nil {
		c.Pricing.Breakdown = make(map[string]int64, len(b.Pricing.Breakdown))
		for k, v := range b.Pricing.Breakdown {
			c.Pricing.Breakdown[k] = v
		}
	}
	if r := b.Ratings.ByRequester; r != nil {
		cp := *r
		c.Ratings.ByRequester = &cp
	}
	if r := b.Ratings.ByCarrier; r != nil {
		cp := *r
		c.Ratings.ByCarrier = &cp
	}
	return &c
}

func (b *Booking) lastStatus() Status {
	if len(b.Timeline) == 0 {
		return StatusNone
	}
	return b.Timeline[len(b.Timeline)-1].Status
}

type Vehicle struct {
	ID         types.ID     `json:"id"`
	OwnerID    types.ID     `json:"owner_id"`
	Type       VehicleType  `json:"type"`
	Number     string       `json:"number,omitempty"`
	CapacityKg float64      `json:"capacity_kg"`
	RatePerKm  types.Money  `json:"rate_per_km"`
	Available  bool         `json:"available"`
	Location   *types.Point `json:"location,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (v *Vehicle) Clone() *Vehicle {
	if v == nil {
		return nil
	}
	c := *v
	c.Location = clonePoint(v.Location)
	return &c
}

// Identity is the engine's view of a party. Rating, trips and earnings are
// derived from bookings and never set directly.
type Identity struct {
	ID             types.ID       `json:"id"`
	Role           types.Role     `json:"role"`
	Rating         rating.Summary `json:"rating"`
	CompletedTrips int            `json:"completed_trips"`
	Earnings       types.Money    `json:"earnings"`
}

func clonePoint(p *types.Point) *types.Point {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// README: Booking lifecycle as code: the transition table and who may drive each edge.
package booking

import (
	"farmhaul/internal/types"
)

// AllowedTransitions represents the booking state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:         {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:        {StatusEnRoutePickup, StatusCancelled},
	StatusEnRoutePickup:   {StatusPickedUp, StatusCancelled},
	StatusPickedUp:        {StatusEnRouteDelivery},
	StatusEnRouteDelivery: {StatusDelivered},
	StatusDelivered:       {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// ratable statuses accept ratings from either party.
func ratable(s Status) bool {
	return s == StatusDelivered || s == StatusCompleted
}

// chargeable statuses let the bound carrier adjust additional charges.
func chargeable(s Status) bool {
	switch s {
	case StatusAccepted, StatusEnRoutePickup, StatusPickedUp, StatusEnRouteDelivery:
		return true
	}
	return false
}

// authorizeAdvance checks the actor rules for moving b to target along the
// progress path (accepted through completed). Claim and cancel have their
// own rules.
func authorizeAdvance(b *Booking, actor types.Actor, target Status) error {
	switch target {
	case StatusEnRoutePickup, StatusPickedUp, StatusEnRouteDelivery, StatusDelivered:
		if !b.Assigned() || actor.ID != b.CarrierID {
			return unauthorized("only the assigned carrier may move a booking to %s", target)
		}
	case StatusCompleted:
		if actor.ID != b.RequesterID && (!b.Assigned() || actor.ID != b.CarrierID) {
			return unauthorized("only the requester or assigned carrier may complete a booking")
		}
	default:
		return unauthorized("status %s cannot be set directly", target)
	}
	return nil
}

// authorizeCancel allows the requester, or the bound carrier once assigned.
func authorizeCancel(b *Booking, actor types.Actor) error {
	if actor.ID == b.RequesterID {
		return nil
	}
	if b.Assigned() && actor.ID == b.CarrierID {
		return nil
	}
	return unauthorized("only the requester or assigned carrier may cancel")
}

// canRead allows the parties and admins. Any carrier may read an open request.
func canRead(b *Booking, actor types.Actor) bool {
	switch {
	case actor.Role == types.RoleAdmin, actor.ID == b.RequesterID:
		return true
	case b.CarrierID != "" && actor.ID == b.CarrierID:
		return true
	case actor.Role == types.RoleCarrier && b.Status == StatusPending:
		return true
	}
	return false
}

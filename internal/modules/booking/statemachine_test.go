package booking

import (
	"errors"
	"testing"

	"farmhaul/internal/types"
)

var allStatuses = []Status{
	StatusPending, StatusAccepted, StatusEnRoutePickup, StatusPickedUp, StatusEnRouteDelivery,
	StatusDelivered, StatusCompleted, StatusCancelled, StatusRejected,
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusEnRoutePickup, false},
		{StatusAccepted, StatusEnRoutePickup, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusPickedUp, false},
		{StatusEnRoutePickup, StatusPickedUp, true},
		{StatusEnRoutePickup, StatusCancelled, true},
		{StatusPickedUp, StatusEnRouteDelivery, true},
		{StatusPickedUp, StatusCancelled, false},
		{StatusEnRouteDelivery, StatusDelivered, true},
		{StatusEnRouteDelivery, StatusCancelled, false},
		{StatusDelivered, StatusCompleted, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusRejected, StatusAccepted, false},
		{StatusAccepted, StatusPending, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		if got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	for _, from := range allStatuses {
		if !IsTerminal(from) {
			continue
		}
		for _, to := range allStatuses {
			if CanTransition(from, to) {
				t.Errorf("terminal %s should not move to %s", from, to)
			}
		}
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusRejected} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestAuthorizeAdvance(t *testing.T) {
	b := &Booking{RequesterID: "req", CarrierID: "car", VehicleID: "veh"}
	carrier := types.Actor{ID: "car", Role: types.RoleCarrier}
	requester := types.Actor{ID: "req", Role: types.RoleRequester}
	stranger := types.Actor{ID: "other", Role: types.RoleCarrier}

	tests := []struct {
		name   string
		actor  types.Actor
		target Status
		ok     bool
	}{
		{"carrier drives en route", carrier, StatusEnRoutePickup, true},
		{"carrier delivers", carrier, StatusDelivered, true},
		{"requester cannot deliver", requester, StatusDelivered, false},
		{"stranger cannot pick up", stranger, StatusPickedUp, false},
		{"requester completes", requester, StatusCompleted, true},
		{"carrier completes", carrier, StatusCompleted, true},
		{"stranger cannot complete", stranger, StatusCompleted, false},
		{"accepted is not an advance", carrier, StatusAccepted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizeAdvance(b, tt.actor, tt.target)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrUnauthorized) {
				t.Errorf("err = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestConflictErrorsShareClass(t *testing.T) {
	for _, err := range []error{
		ErrInvalidTransition, ErrAlreadyAccepted, ErrVehicleUnavailable,
		ErrDuplicateRating, ErrAlreadyTerminal, ErrStaleVersion,
	} {
		if !errors.Is(err, ErrConflict) {
			t.Errorf("%v does not match ErrConflict", err)
		}
		ce := conflict(err, &Booking{Status: StatusAccepted}, StatusPending)
		if !errors.Is(ce, err) || !errors.Is(ce, ErrConflict) {
			t.Errorf("ConflictError does not unwrap to %v", err)
		}
		if ce.Current != StatusAccepted || ce.Requested != StatusPending {
			t.Errorf("ConflictError statuses = %s/%s", ce.Current, ce.Requested)
		}
	}
}

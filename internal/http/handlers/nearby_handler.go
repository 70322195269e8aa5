// README: Radius search endpoints for vehicles and open requests.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpmiddleware "farmhaul/internal/http/middleware"
	"farmhaul/internal/modules/booking"
)

type NearbyHandler struct {
	svc *booking.Service
}

func NewNearbyHandler(svc *booking.Service) *NearbyHandler {
	return &NearbyHandler{svc: svc}
}

type vehicleMatch struct {
	VehicleID  string              `json:"vehicle_id"`
	Type       booking.VehicleType `json:"type"`
	CapacityKg float64             `json:"capacity_kg"`
	RatePerKm  int64               `json:"rate_per_km"`
	Lat        float64             `json:"lat"`
	Lng        float64             `json:"lng"`
	DistanceKm float64             `json:"distance_km"`
}

// Vehicles takes optional vehicle_type and min_capacity_kg filters.
func (h *NearbyHandler) Vehicles(c *gin.Context) {
	center, ok := queryPoint(c)
	if !ok {
		return
	}
	radius, limit, ok := queryRadiusLimit(c)
	if !ok {
		return
	}
	filter := booking.VehicleFilter{Type: booking.VehicleType(c.Query("vehicle_type"))}
	if v := c.Query("min_capacity_kg"); v != "" {
		capacity, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "min_capacity_kg must be a number")
			return
		}
		filter.MinCapacityKg = capacity
	}

	found, err := h.svc.NearbyVehicles(c.Request.Context(), center, radius, limit, filter)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	out := make([]vehicleMatch, 0, len(found))
	for _, nv := range found {
		v := nv.Vehicle
		m := vehicleMatch{
			VehicleID:  string(v.ID),
			Type:       v.Type,
			CapacityKg: v.CapacityKg,
			RatePerKm:  v.RatePerKm.Amount,
			DistanceKm: nv.DistanceKm,
		}
		if v.Location != nil {
			m.Lat, m.Lng = v.Location.Lat, v.Location.Lng
		}
		out = append(out, m)
	}
	writeJSON(c, http.StatusOK, gin.H{"vehicles": out})
}

func (h *NearbyHandler) Requests(c *gin.Context) {
	center, ok := queryPoint(c)
	if !ok {
		return
	}
	radius, limit, ok := queryRadiusLimit(c)
	if !ok {
		return
	}
	out, err := h.svc.NearbyRequests(c.Request.Context(), httpmiddleware.Caller(c), center, radius, limit)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": out})
}

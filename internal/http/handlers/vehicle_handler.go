// README: Vehicle registration and location updates for carriers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpmiddleware "farmhaul/internal/http/middleware"
	"farmhaul/internal/modules/booking"
	"farmhaul/internal/types"
)

type VehicleHandler struct {
	svc *booking.Service
}

func NewVehicleHandler(svc *booking.Service) *VehicleHandler {
	return &VehicleHandler{svc: svc}
}

type registerVehicleReq struct {
	ID         string              `json:"id"`
	Type       booking.VehicleType `json:"type"`
	Number     string              `json:"number"`
	CapacityKg float64             `json:"capacity_kg"`
	// RatePerKm is in currency minor units.
	RatePerKm int64        `json:"rate_per_km"`
	Location  *types.Point `json:"location"`
}

func (h *VehicleHandler) Register(c *gin.Context) {
	var req registerVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ID != "" && !isValidRef(req.ID) {
		writeError(c, http.StatusBadRequest, "invalid vehicle id")
		return
	}
	v, err := h.svc.RegisterVehicle(c.Request.Context(), booking.RegisterVehicleCommand{
		Carrier:    httpmiddleware.Caller(c),
		ID:         types.ID(req.ID),
		Type:       req.Type,
		Number:     req.Number,
		CapacityKg: req.CapacityKg,
		RatePerKm:  types.Money{Amount: req.RatePerKm},
		Location:   req.Location,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, v)
}

func (h *VehicleHandler) UpdateLocation(c *gin.Context) {
	id, ok := pathRef(c, "id")
	if !ok {
		return
	}
	var p types.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	v, err := h.svc.UpdateVehicleLocation(c.Request.Context(), booking.UpdateLocationCommand{
		Carrier:   httpmiddleware.Caller(c),
		VehicleID: types.ID(id),
		Point:     p,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

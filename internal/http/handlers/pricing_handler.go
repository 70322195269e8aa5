// README: Fare estimate endpoint.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"farmhaul/internal/modules/geo"
	"farmhaul/internal/modules/pricing"
	"farmhaul/internal/types"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

// estimateReq takes either distance_km or both points.
type estimateReq struct {
	DistanceKm *float64        `json:"distance_km"`
	Pickup     *types.Point    `json:"pickup"`
	Dropoff    *types.Point    `json:"dropoff"`
	RatePerKm  int64           `json:"rate_per_km"`
	Charges    pricing.Charges `json:"charges"`
}

func (h *PricingHandler) Estimate(c *gin.Context) {
	var req estimateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	var distance float64
	switch {
	case req.DistanceKm != nil:
		distance = *req.DistanceKm
	case req.Pickup != nil && req.Dropoff != nil:
		d, err := geo.Distance(*req.Pickup, *req.Dropoff)
		if err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		distance = d
	default:
		writeError(c, http.StatusBadRequest, "distance_km or pickup and dropoff are required")
		return
	}
	quote, err := h.pricing.Estimate(pricing.PricingRequest{
		DistanceKm: distance,
		RatePerKm:  types.Money{Amount: req.RatePerKm},
		Charges:    req.Charges,
	})
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(c, http.StatusOK, quote)
}

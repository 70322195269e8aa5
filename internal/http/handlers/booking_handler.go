// README: Booking handlers for create, read, respond, status, cancel, rating and charges.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httpmiddleware "farmhaul/internal/http/middleware"
	"farmhaul/internal/modules/booking"
	"farmhaul/internal/modules/pricing"
	"farmhaul/internal/types"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	svc *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type windowReq struct {
	Date string           `json:"date"`
	Slot booking.TimeSlot `json:"slot"`
}

type createBookingReq struct {
	Cargo     booking.Cargo    `json:"cargo"`
	Pickup    booking.Location `json:"pickup"`
	Dropoff   booking.Location `json:"dropoff"`
	VehicleID string           `json:"vehicle_id"`
	Window    windowReq        `json:"window"`
	Urgency   booking.Urgency  `json:"urgency"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	date, err := time.Parse(dateLayout, req.Window.Date)
	if err != nil {
		writeError(c, http.StatusBadRequest, "window.date must be YYYY-MM-DD")
		return
	}
	b, err := h.svc.CreateBooking(c.Request.Context(), booking.CreateCommand{
		Requester: httpmiddleware.Caller(c),
		Cargo:     req.Cargo,
		Pickup:    req.Pickup,
		Dropoff:   req.Dropoff,
		VehicleID: types.ID(req.VehicleID),
		Window:    booking.Window{Date: date, Slot: req.Window.Slot},
		Urgency:   req.Urgency,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

// List returns the caller's own bookings, optionally filtered by ?status=.
func (h *BookingHandler) List(c *gin.Context) {
	status := booking.Status(c.Query("status"))
	bs, err := h.svc.ListBookings(c.Request.Context(), httpmiddleware.Caller(c), status)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": bs})
}

func (h *BookingHandler) Get(c *gin.Context) {
	ref, ok := pathRef(c, "ref")
	if !ok {
		return
	}
	b, err := h.svc.GetBooking(c.Request.Context(), ref, httpmiddleware.Caller(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

type respondReq struct {
	Decision  booking.Decision `json:"decision"`
	VehicleID string           `json:"vehicle_id"`
	Note      string           `json:"note"`
}

func (h *BookingHandler) Respond(c *gin.Context) {
	ref, ok := pathRef(c, "ref")
	if !ok {
		return
	}
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.svc.RespondToBooking(c.Request.Context(), booking.RespondCommand{
		Ref:       ref,
		Carrier:   httpmiddleware.Caller(c),
		Decision:  req.Decision,
		VehicleID: types.ID(req.VehicleID),
		Note:      req.Note,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

type advanceReq struct {
	Status   booking.Status `json:"status"`
	Note     string         `json:"note"`
	Location *types.Point   `json:"location"`
}

func (h *BookingHandler) Advance(c *gin.Context) {
	ref, ok := pathRef(c, "ref")
	if !ok {
		return
	}
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.svc.AdvanceStatus(c.Request.Context(), booking.AdvanceCommand{
		Ref:      ref,
		Actor:    httpmiddleware.Caller(c),
		Target:   req.Status,
		Note:     req.Note,
		Location: req.Location,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	ref, ok := pathRef(c, "ref")
	if !ok {
		return
	}
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.svc.CancelBooking(c.Request.Context(), booking.CancelCommand{
		Ref:    ref,
		Actor:  httpmiddleware.Caller(c),
		Reason: req.Reason,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

type rateReq struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

func (h *BookingHandler) Rate(c *gin.Context) {
	ref, ok := pathRef(c, "ref")
	if !ok {
		return
	}
	var req rateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.svc.RateBooking(c.Request.Context(), booking.RateCommand{
		Ref:     ref,
		Actor:   httpmiddleware.Caller(c),
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *BookingHandler) UpdateCharges(c *gin.Context) {
	ref, ok := pathRef(c, "ref")
	if !ok {
		return
	}
	var charges pricing.Charges
	if err := c.ShouldBindJSON(&charges); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.svc.UpdateCharges(c.Request.Context(), booking.UpdateChargesCommand{
		Ref:     ref,
		Carrier: httpmiddleware.Caller(c),
		Charges: charges,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farmhaul/internal/modules/booking"
	"farmhaul/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

type conflictResponse struct {
	Error         string           `json:"error"`
	CurrentStatus booking.Status   `json:"current_status,omitempty"`
	Booking       *booking.Booking `json:"booking,omitempty"`
}

// isValidRef accepts generated booking refs and vehicle ids: letters, digits
// and dashes, at most 64 characters.
func isValidRef(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeBookingError(c *gin.Context, err error) {
	var ce *booking.ConflictError
	switch {
	case errors.As(err, &ce):
		writeJSON(c, http.StatusConflict, conflictResponse{Error: err.Error(), CurrentStatus: ce.Current, Booking: ce.Booking})
	case errors.Is(err, booking.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("http: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// pathRef reads and checks a path parameter, writing a 400 when it is malformed.
func pathRef(c *gin.Context, name string) (string, bool) {
	v := c.Param(name)
	if !isValidRef(v) {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return v, true
}

// queryPoint reads lat and lng query parameters.
func queryPoint(c *gin.Context) (types.Point, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required numbers")
		return types.Point{}, false
	}
	return types.Point{Lat: lat, Lng: lng}, true
}

// queryRadiusLimit reads optional radius_km and limit; zero means default.
func queryRadiusLimit(c *gin.Context) (float64, int, bool) {
	var radius float64
	var limit int
	var err error
	if v := c.Query("radius_km"); v != "" {
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(c, http.StatusBadRequest, "radius_km must be a number")
			return 0, 0, false
		}
	}
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			writeError(c, http.StatusBadRequest, "limit must be an integer")
			return 0, 0, false
		}
	}
	return radius, limit, true
}

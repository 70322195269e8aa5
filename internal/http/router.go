// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farmhaul/internal/http/handlers"
	"farmhaul/internal/http/middleware"
	"farmhaul/internal/infra"
	"farmhaul/internal/modules/booking"
	"farmhaul/internal/modules/pricing"
)

type RouterDeps struct {
	Booking  *booking.Service
	Pricing  *pricing.Service
	Verifier infra.TokenVerifier
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready func(*gin.Context) error
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/ready", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
		}
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	bookingHandler := handlers.NewBookingHandler(deps.Booking)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings", bookingHandler.List)
	api.GET("/bookings/:ref", bookingHandler.Get)
	api.POST("/bookings/:ref/respond", bookingHandler.Respond)
	api.POST("/bookings/:ref/status", bookingHandler.Advance)
	api.POST("/bookings/:ref/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:ref/rating", bookingHandler.Rate)
	api.PUT("/bookings/:ref/charges", bookingHandler.UpdateCharges)

	vehicleHandler := handlers.NewVehicleHandler(deps.Booking)
	api.POST("/vehicles", vehicleHandler.Register)
	api.PUT("/vehicles/:id/location", vehicleHandler.UpdateLocation)

	nearbyHandler := handlers.NewNearbyHandler(deps.Booking)
	api.GET("/nearby/vehicles", nearbyHandler.Vehicles)
	api.GET("/nearby/requests", nearbyHandler.Requests)

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.POST("/pricing/estimate", pricingHandler.Estimate)

	return r
}

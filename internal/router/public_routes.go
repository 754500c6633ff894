package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/detailing-booking/internal/handler"
	"github.com/iliyamo/detailing-booking/internal/middleware"
)

// PublicHandlers groups the customer-facing handlers.
type PublicHandlers struct {
	Bookings *handler.BookingHandler
	Schedule *handler.ScheduleHandler
	Pricing  *handler.PricingHandler
}

// RegisterPublic mounts the customer routes.  limit guards every route
// in the group; cache wraps only the price list.  Booking creation
// reads an optional bearer token so signed-in customers are linked
// to their booking.
func RegisterPublic(e *echo.Echo, h PublicHandlers, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/api", limit)
	g.GET("/pricing", h.Pricing.List, cache)
	g.GET("/slots", h.Schedule.PublicSlots)
	g.POST("/bookings/enhanced/create", h.Bookings.Create, middleware.OptionalJWT(jwtSecret))
	g.GET("/bookings/:reference", h.Bookings.Get)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/detailing-booking/internal/handler"
	"github.com/iliyamo/detailing-booking/internal/middleware"
	"github.com/iliyamo/detailing-booking/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /api/admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, s *handler.ScheduleHandler, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Schedule ----
	g.GET("/schedule", s.Get)
	g.POST("/schedule", s.Post)
	g.POST("/schedule/check-updates", s.CheckUpdates)

	// ---- Bookings ----
	g.PATCH("/bookings/:id/status", b.UpdateStatus)
}

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/detailing-booking/internal/config"
	"github.com/iliyamo/detailing-booking/internal/handler"
	"github.com/iliyamo/detailing-booking/internal/observability/metrics"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/internal/service"
	"github.com/iliyamo/detailing-booking/internal/utils"
)

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := prometheus.NewRegistry()
	slots := repository.NewSlotRepo(db)
	pricing := service.NewPricingResolver(repository.NewPricingRepo(db), 0, nil)
	bookings := service.NewBookingService(service.BookingDeps{
		DB: db, Slots: slots, Vehicles: repository.NewVehicleRepo(db), Bookings: repository.NewBookingRepo(db),
		Pricing: pricing, Metrics: metrics.NewBookingMetrics(reg),
	})
	sh := handler.NewScheduleHandler(slots, metrics.NewScheduleMetrics(reg), nil)
	bh := handler.NewBookingHandler(bookings, nil)

	e := echo.New()
	RegisterRoutes(e, reg)
	RegisterAuth(e, handler.NewAuthHandler(config.Config{JWTSecret: "s"}, repository.NewUserRepo(db), repository.NewTokenRepo(db)), "s")
	RegisterPublic(e, PublicHandlers{Bookings: bh, Schedule: sh, Pricing: handler.NewPricingHandler(pricing, "full-valet")}, "s", passthrough, passthrough)
	RegisterAdmin(e, sh, bh, "s")
	return e
}

func get(e *echo.Echo, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	e := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, get(e, "/api/admin/schedule?action=nope", ""))

	customer, err := utils.NewAccessToken("s", 2, "CUSTOMER", "c@example.com", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(e, "/api/admin/schedule?action=nope", customer.Token))

	admin, err := utils.NewAccessToken("s", 1, "ADMIN", "a@example.com", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, get(e, "/api/admin/schedule?action=nope", admin.Token))
}

func TestOperationalRoutes(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusOK, get(e, "/healthz", ""))
	assert.Equal(t, http.StatusOK, get(e, "/metrics", ""))
	assert.Equal(t, http.StatusBadRequest, get(e, "/api/slots?date=soon", ""))
}

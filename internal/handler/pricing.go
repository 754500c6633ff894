package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/detailing-booking/internal/service"
)

// PricingHandler serves the public price list.
type PricingHandler struct {
	Resolver         *service.PricingResolver
	DefaultServiceID string
}

func NewPricingHandler(r *service.PricingResolver, defaultServiceID string) *PricingHandler {
	return &PricingHandler{Resolver: r, DefaultServiceID: defaultServiceID}
}

// List handles GET /api/pricing?service_id=.  Every vehicle size is
// always present; sizes without a configured price show the fallback.
func (h *PricingHandler) List(c echo.Context) error {
	serviceID := strings.TrimSpace(c.QueryParam("service_id"))
	if serviceID == "" {
		serviceID = h.DefaultServiceID
	}
	if serviceID == "" {
		return fail(c, http.StatusBadRequest, "service_id required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	return success(c, http.StatusOK, h.Resolver.PriceTable(ctx, serviceID))
}

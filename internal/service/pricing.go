package service

import (
	"context"
	"errors"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// FallbackPricePence is charged when neither the requested size nor
// medium has a price for the service.
const FallbackPricePence = 5000

// PriceLookup reads one cell of the pricing matrix.
type PriceLookup interface {
	Lookup(ctx context.Context, serviceID string, size model.VehicleSize) (int, error)
}

// PricingResolver turns (service, size) into a price.  It never fails:
// missing rows fall back to medium, then to a fixed price.
type PricingResolver struct {
	prices   PriceLookup
	fallback int
	logger   *logging.Logger
}

func NewPricingResolver(prices PriceLookup, fallbackPence int, logger *logging.Logger) *PricingResolver {
	if fallbackPence <= 0 {
		fallbackPence = FallbackPricePence
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PricingResolver{prices: prices, fallback: fallbackPence, logger: logger}
}

// Resolve returns the price in pence.
func (r *PricingResolver) Resolve(ctx context.Context, serviceID string, size model.VehicleSize) int {
	p, err := r.prices.Lookup(ctx, serviceID, size)
	if err == nil {
		return p
	}
	r.logMiss(serviceID, size, err)
	if size != model.SizeMedium {
		p, err := r.prices.Lookup(ctx, serviceID, model.SizeMedium)
		if err == nil {
			return p
		}
		r.logMiss(serviceID, model.SizeMedium, err)
	}
	return r.fallback
}

// PriceTable resolves every vehicle size for a service.
func (r *PricingResolver) PriceTable(ctx context.Context, serviceID string) []model.ServicePrice {
	out := make([]model.ServicePrice, 0, len(model.VehicleSizes))
	for _, size := range model.VehicleSizes {
		out = append(out, model.ServicePrice{
			ServiceID:   serviceID,
			VehicleSize: size,
			PricePence:  r.Resolve(ctx, serviceID, size),
		})
	}
	return out
}

func (r *PricingResolver) logMiss(serviceID string, size model.VehicleSize, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		r.logger.Debug("no price configured", "service_id", serviceID, "vehicle_size", size)
		return
	}
	r.logger.Warn("price lookup failed", "service_id", serviceID, "vehicle_size", size, "error", err)
}

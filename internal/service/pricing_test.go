package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/detailing-booking/internal/model"
)

type brokenPrices struct{}

func (brokenPrices) Lookup(context.Context, string, model.VehicleSize) (int, error) {
	return 0, errors.New("connection reset")
}

func TestPricingResolverFallbacks(t *testing.T) {
	prices := fakePrices{
		"full-valet/small":  4500,
		"full-valet/medium": 5500,
		"mini-valet/large":  3900,
	}
	r := NewPricingResolver(prices, 0, nil)

	tests := []struct {
		name    string
		service string
		size    model.VehicleSize
		want    int
	}{
		{"exact row", "full-valet", model.SizeSmall, 4500},
		{"missing size uses medium", "full-valet", model.SizeExtraLarge, 5500},
		{"medium itself", "full-valet", model.SizeMedium, 5500},
		{"no medium uses constant", "mini-valet", model.SizeSmall, FallbackPricePence},
		{"unknown service", "ceramic", model.SizeLarge, FallbackPricePence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(context.Background(), tt.service, tt.size))
		})
	}
}

func TestPricingResolverNeverFails(t *testing.T) {
	r := NewPricingResolver(brokenPrices{}, 6200, nil)
	assert.Equal(t, 6200, r.Resolve(context.Background(), "full-valet", model.SizeLarge))
}

func TestPriceTableCoversEverySize(t *testing.T) {
	r := NewPricingResolver(fakePrices{"full-valet/medium": 5500, "full-valet/large": 7000}, 0, nil)
	table := r.PriceTable(context.Background(), "full-valet")
	assert.Len(t, table, len(model.VehicleSizes))
	got := map[model.VehicleSize]int{}
	for _, p := range table {
		got[p.VehicleSize] = p.PricePence
	}
	assert.Equal(t, 5500, got[model.SizeSmall])
	assert.Equal(t, 7000, got[model.SizeLarge])
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// PricingRepo reads the service_pricing matrix.
type PricingRepo struct {
	db *sql.DB
}

func NewPricingRepo(db *sql.DB) *PricingRepo { return &PricingRepo{db: db} }

// Lookup returns the price in pence for a service and vehicle size, or
// ErrNotFound when the matrix has no entry.
func (r *PricingRepo) Lookup(ctx context.Context, serviceID string, size model.VehicleSize) (int, error) {
	var pence int
	err := r.db.QueryRowContext(ctx,
		`SELECT price_pence FROM service_pricing WHERE service_id = ? AND vehicle_size = ? LIMIT 1`,
		serviceID, string(size)).Scan(&pence)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return pence, err
}

// ListByService returns every configured size price for a service.
func (r *PricingRepo) ListByService(ctx context.Context, serviceID string) ([]model.ServicePrice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT service_id, vehicle_size, price_pence FROM service_pricing WHERE service_id = ?`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ServicePrice, 0, len(model.VehicleSizes))
	for rows.Next() {
		var (
			p    model.ServicePrice
			size string
		)
		if err := rows.Scan(&p.ServiceID, &size, &p.PricePence); err != nil {
			return nil, err
		}
		p.VehicleSize = model.VehicleSize(size)
		out = append(out, p)
	}
	return out, rows.Err()
}

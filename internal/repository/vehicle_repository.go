package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// VehicleRepo stores customer vehicles.  Registrations are stored
// normalized so lookups match regardless of spacing or case.
type VehicleRepo struct {
	db *sql.DB
}

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// FindByRegistrationTx returns the newest vehicle with the given
// registration, or ErrNotFound.  An empty registration never matches.
func (r *VehicleRepo) FindByRegistrationTx(ctx context.Context, tx *sql.Tx, registration string) (*model.Vehicle, error) {
	reg := model.NormalizeRegistration(registration)
	if reg == "" {
		return nil, ErrNotFound
	}
	var (
		v      model.Vehicle
		userID sql.NullInt64
		year   sql.NullInt64
		size   string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, registration, make, model, year, color, size, created_at
		 FROM vehicles WHERE registration = ? ORDER BY id DESC LIMIT 1`, reg).
		Scan(&v.ID, &userID, &v.Registration, &v.Make, &v.Model, &year, &v.Color, &size, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		v.UserID = &uid
	}
	if year.Valid {
		y := int(year.Int64)
		v.Year = &y
	}
	v.Size = model.VehicleSize(size)
	return &v, nil
}

// CreateTx inserts v and fills in its ID.
func (r *VehicleRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *model.Vehicle) error {
	v.Registration = model.NormalizeRegistration(v.Registration)
	var year any
	if v.Year != nil {
		year = *v.Year
	}
	var userID any
	if v.UserID != nil {
		userID = *v.UserID
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO vehicles (user_id, registration, make, model, year, color, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, v.Registration, v.Make, v.Model, year, v.Color, string(v.Size))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// AssignOwner links an unowned vehicle to a user.  Vehicles that
// already belong to someone are left alone.
func (r *VehicleRepo) AssignOwner(ctx context.Context, vehicleID, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET user_id = ? WHERE id = ? AND user_id IS NULL`, userID, vehicleID)
	return err
}

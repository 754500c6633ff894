package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/detailing-booking/internal/model"
)

// RewardsRepo maintains customer point ledgers.
type RewardsRepo struct {
	db *sql.DB
}

func NewRewardsRepo(db *sql.DB) *RewardsRepo { return &RewardsRepo{db: db} }

// Award credits points to a user, recomputes the tier from the new
// total and appends a transaction row.  The ledger row is created on
// first use.
func (r *RewardsRepo) Award(ctx context.Context, t model.RewardTransaction) (model.CustomerRewards, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CustomerRewards{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cr := model.CustomerRewards{UserID: t.UserID}
	var tier string
	err = tx.QueryRowContext(ctx,
		`SELECT total_points, points_lifetime, current_tier FROM customer_rewards WHERE user_id = ? FOR UPDATE`,
		t.UserID).Scan(&cr.TotalPoints, &cr.PointsLifetime, &tier)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return model.CustomerRewards{}, err
	}

	cr.TotalPoints += t.Points
	if t.Points > 0 {
		cr.PointsLifetime += t.Points
	}
	cr.CurrentTier = model.TierFor(cr.TotalPoints)

	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE customer_rewards SET total_points = ?, points_lifetime = ?, current_tier = ? WHERE user_id = ?`,
			cr.TotalPoints, cr.PointsLifetime, string(cr.CurrentTier), t.UserID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO customer_rewards (user_id, total_points, points_lifetime, current_tier) VALUES (?, ?, ?, ?)`,
			t.UserID, cr.TotalPoints, cr.PointsLifetime, string(cr.CurrentTier))
	}
	if err != nil {
		return model.CustomerRewards{}, err
	}

	var bookingID any
	if t.BookingID != nil {
		bookingID = *t.BookingID
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reward_transactions (user_id, booking_id, points, transaction_type, description) VALUES (?, ?, ?, ?, ?)`,
		t.UserID, bookingID, t.Points, t.Type, t.Description); err != nil {
		return model.CustomerRewards{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.CustomerRewards{}, err
	}
	committed = true
	return cr, nil
}

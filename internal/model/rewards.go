package model

// Tier is a reward band derived from total points.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Thresholds for each tier, in points.
const (
	SilverThreshold   = 500
	GoldThreshold     = 1000
	PlatinumThreshold = 2000
)

// TierFor derives the tier from total points.  Tiers are never stored
// independently of points.
func TierFor(points int) Tier {
	switch {
	case points >= PlatinumThreshold:
		return TierPlatinum
	case points >= GoldThreshold:
		return TierGold
	case points >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// PointsForBooking awards one point per whole pound plus a flat bonus.
func PointsForBooking(totalPence, bonus int) int {
	if totalPence < 0 {
		totalPence = 0
	}
	return totalPence/100 + bonus
}

// CustomerRewards is the points ledger row for one user.
type CustomerRewards struct {
	UserID         uint64 // customer_rewards.user_id
	TotalPoints    int    // customer_rewards.total_points
	PointsLifetime int    // customer_rewards.points_lifetime
	CurrentTier    Tier   // customer_rewards.current_tier
}

// RewardTransaction records one change to a ledger.
type RewardTransaction struct {
	UserID      uint64
	BookingID   *uint64
	Points      int
	Type        string
	Description string
}

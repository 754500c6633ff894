package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/repository"
)

// RewardsService credits booking points.
type RewardsService struct {
	repo  *repository.RewardsRepo
	bonus int
}

func NewRewardsService(repo *repository.RewardsRepo, bonus int) *RewardsService {
	return &RewardsService{repo: repo, bonus: bonus}
}

// AwardBooking credits one point per whole pound plus the bonus and
// returns the points given and the resulting tier.
func (s *RewardsService) AwardBooking(ctx context.Context, userID, bookingID uint64, reference string, totalPence int) (int, model.Tier, error) {
	points := model.PointsForBooking(totalPence, s.bonus)
	bid := bookingID
	cr, err := s.repo.Award(ctx, model.RewardTransaction{
		UserID:      userID,
		BookingID:   &bid,
		Points:      points,
		Type:        "earned",
		Description: fmt.Sprintf("Booking %s", reference),
	})
	if err != nil {
		return 0, "", err
	}
	return points, cr.CurrentTier, nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/internal/utils"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// ErrNoAccount is returned when no account exists for an email and
// automatic account creation is switched off.
var ErrNoAccount = errors.New("no account for email")

// AccountRequest identifies the customer behind a booking.
type AccountRequest struct {
	Email    string
	FullName string
	Phone    string
}

// AccountResult says which account a booking belongs to and whether it
// was opened just now.
type AccountResult struct {
	UserID  uint64
	Created bool
}

// AccountService finds or opens customer accounts for guest bookings.
type AccountService struct {
	users      *repository.UserRepo
	bcryptCost int
	autoCreate bool
	logger     *logging.Logger
}

func NewAccountService(users *repository.UserRepo, bcryptCost int, autoCreate bool, logger *logging.Logger) *AccountService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AccountService{users: users, bcryptCost: bcryptCost, autoCreate: autoCreate, logger: logger}
}

// EnsureAccount returns the account for req.Email, creating a verified
// customer account with a random password when none exists.
func (s *AccountService) EnsureAccount(ctx context.Context, req AccountRequest) (AccountResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return AccountResult{UserID: u.ID}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return AccountResult{}, err
	}
	if !s.autoCreate {
		return AccountResult{}, ErrNoAccount
	}

	pw, err := utils.RandomPassword()
	if err != nil {
		return AccountResult{}, err
	}
	hash, err := utils.HashPassword(pw, s.bcryptCost)
	if err != nil {
		return AccountResult{}, err
	}
	id, err := s.users.Create(ctx, repository.NewAccount{
		Email:         email,
		PasswordHash:  hash,
		Role:          model.RoleCustomer,
		FullName:      req.FullName,
		Phone:         req.Phone,
		EmailVerified: true,
	})
	if errors.Is(err, repository.ErrEmailExists) {
		// opened concurrently by another booking
		u, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return AccountResult{}, err
		}
		return AccountResult{UserID: u.ID}, nil
	}
	if err != nil {
		return AccountResult{}, err
	}
	s.logger.Info("customer account created", "user_id", id)
	return AccountResult{UserID: id, Created: true}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/repositories"
)

// ErrLoyaltyUserNotFound indicates the user does not exist.
var ErrLoyaltyUserNotFound = errors.New("loyalty: user not found")

// LoyaltyServiceDeps bundles the collaborators required to construct a loyalty service.
type LoyaltyServiceDeps struct {
	Users repositories.UserRepository
}

type loyaltyService struct {
	users repositories.UserRepository
}

// NewLoyaltyService wires dependencies into a concrete LoyaltyService.
func NewLoyaltyService(deps LoyaltyServiceDeps) (LoyaltyService, error) {
	if deps.Users == nil {
		return nil, errors.New("loyalty service: user repository is required")
	}
	return &loyaltyService{users: deps.Users}, nil
}

func (s *loyaltyService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) && storeErr.Code == repositories.StoreErrorNotFound {
			return 0, fmt.Errorf("%w: %s", ErrLoyaltyUserNotFound, userID)
		}
		return 0, err
	}
	return user.LoyaltyPoints, nil
}

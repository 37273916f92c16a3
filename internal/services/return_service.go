package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

var (
	// ErrReturnInvalidInput signals the caller provided invalid arguments.
	ErrReturnInvalidInput = errors.New("return: invalid input")
	// ErrReturnNotFound indicates the return or its order does not exist.
	ErrReturnNotFound = errors.New("return: not found")
	// ErrReturnOrderNotEligible indicates the order cannot be returned yet.
	ErrReturnOrderNotEligible = errors.New("return: order not eligible")
	// ErrReturnInvalidTransition indicates a status move the progression
	// rules forbid.
	ErrReturnInvalidTransition = errors.New("return: invalid status transition")
)

// ReturnServiceDeps bundles the collaborators required to construct a return service.
type ReturnServiceDeps struct {
	Returns repositories.ReturnRepository
	Orders  repositories.OrderRepository
	Clock   func() time.Time
	Logger  Logger
}

type returnService struct {
	returns repositories.ReturnRepository
	orders  repositories.OrderRepository
	clock   func() time.Time
	logger  Logger
}

// NewReturnService wires dependencies into a concrete ReturnService.
func NewReturnService(deps ReturnServiceDeps) (ReturnService, error) {
	if deps.Returns == nil {
		return nil, errors.New("return service: return repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("return service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &returnService{
		returns: deps.Returns,
		orders:  deps.Orders,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Create opens a return request for a delivered order owned by the user.
func (s *returnService) Create(ctx context.Context, userID, orderID uuid.UUID, reason string) (domain.Return, error) {
	order, err := s.orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) && storeErr.Code == repositories.StoreErrorNotFound {
			return domain.Return{}, fmt.Errorf("%w: order %s", ErrReturnNotFound, orderID)
		}
		return domain.Return{}, err
	}
	if order.Status != domain.OrderStatusDelivered {
		return domain.Return{}, fmt.Errorf("%w: order is %s, returns require delivery", ErrReturnOrderNotEligible, order.Status)
	}

	ret := domain.Return{
		OrderID: orderID,
		UserID:  userID,
		Reason:  strings.TrimSpace(reason),
		Status:  domain.ReturnStatusPending,
	}
	if err := s.returns.Create(ctx, &ret); err != nil {
		return domain.Return{}, err
	}

	s.logger(ctx, "return.created", map[string]any{"returnId": ret.ID.String(), "orderId": orderID.String()})
	return ret, nil
}

func (s *returnService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Return, error) {
	return s.returns.ListForUser(ctx, userID)
}

// Transition advances a return along pending -> approved/rejected ->
// completed. The repository re-checks the rule under a row lock; the check
// here exists only to reject unknown statuses before touching storage.
func (s *returnService) Transition(ctx context.Context, id uuid.UUID, status domain.ReturnStatus) (domain.Return, error) {
	switch status {
	case domain.ReturnStatusApproved, domain.ReturnStatusRejected, domain.ReturnStatusCompleted:
	default:
		return domain.Return{}, fmt.Errorf("%w: %q is not a reachable status", ErrReturnInvalidTransition, status)
	}

	ret, err := s.returns.UpdateStatus(ctx, id, status, s.clock())
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) {
			switch storeErr.Code {
			case repositories.StoreErrorNotFound:
				return domain.Return{}, fmt.Errorf("%w: %s", ErrReturnNotFound, id)
			case repositories.StoreErrorInvalidState:
				return domain.Return{}, fmt.Errorf("%w: %s", ErrReturnInvalidTransition, storeErr.Message)
			}
		}
		return domain.Return{}, err
	}
	return *ret, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"stride/internal/domain"
	"stride/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidStatus = errors.New("invalid order status")

// OrderService serves order history to shoppers and order management to admins
type OrderService interface {
	History(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	DeleteFromHistory(ctx context.Context, orderID, userID uuid.UUID) error
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*domain.Order, error)
	ToggleDelivery(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	Stats(ctx context.Context) (repository.OrderStats, error)
}

type orderService struct {
	orders repository.OrderRepository
	logger *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{orders: orders, logger: logger}
}

// History lists the orders of a user, newest first
func (s *orderService) History(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return orders, nil
}

// DeleteFromHistory removes one of the user's own orders. Orders of other
// users yield repository.ErrOrderNotFound.
func (s *orderService) DeleteFromHistory(ctx context.Context, orderID, userID uuid.UUID) error {
	if err := s.orders.DeleteForUser(ctx, orderID, userID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.logger.Info("Order removed from history",
		zap.String("order_id", orderID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

func (s *orderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*domain.Order, error) {
	parsed, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.setStatus(ctx, orderID, parsed)
}

// ToggleDelivery flips an order between delivered and pending. Any status
// other than delivered becomes delivered.
func (s *orderService) ToggleDelivery(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	next := domain.StatusDelivered
	if order.Status == domain.StatusDelivered {
		next = domain.StatusPending
	}
	return s.setStatus(ctx, orderID, next)
}

func (s *orderService) setStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("status", string(status)),
	)
	return order, nil
}

// Stats aggregates sales for the admin dashboard
func (s *orderService) Stats(ctx context.Context) (repository.OrderStats, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return repository.OrderStats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

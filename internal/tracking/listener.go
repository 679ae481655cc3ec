package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stride/internal/domain"
	"stride/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Channel is the PostgreSQL notification channel fed by the orders trigger
const Channel = "order_status_updates"

const defaultRetryDelay = 5 * time.Second

// Publisher receives decoded order change events
type Publisher interface {
	Publish(order domain.Order)
}

// Listener forwards PostgreSQL order notifications to a publisher. It holds
// one dedicated connection and reconnects after failures.
type Listener struct {
	connString string
	publisher  Publisher
	retryDelay time.Duration
	metrics    *metrics.TrackingMetrics
	logger     *zap.Logger
}

// NewListener creates a listener for the orders channel
func NewListener(connString string, publisher Publisher, m *metrics.TrackingMetrics, logger *zap.Logger) *Listener {
	return &Listener{
		connString: connString,
		publisher:  publisher,
		retryDelay: defaultRetryDelay,
		metrics:    m,
		logger:     logger,
	}
}

// Run listens until ctx is cancelled
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}

		l.logger.Error("Order notification listener disconnected",
			zap.Error(err),
			zap.Duration("retry_in", l.retryDelay),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	l.logger.Info("Listening for order status changes", zap.String("channel", Channel))

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed to wait for notification: %w", err)
		}

		order, err := DecodeEvent([]byte(notification.Payload))
		if err != nil {
			l.logger.Warn("Dropping malformed order notification",
				zap.String("payload", notification.Payload),
				zap.Error(err),
			)
			continue
		}

		l.metrics.IncEvents()
		l.publisher.Publish(order)
	}
}

// DecodeEvent parses a notification payload into the changed order
func DecodeEvent(payload []byte) (domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return domain.Order{}, fmt.Errorf("failed to decode order event: %w", err)
	}
	if order.ID == uuid.Nil {
		return domain.Order{}, errors.New("order event without id")
	}
	if order.Status == "" {
		return domain.Order{}, errors.New("order event without status")
	}
	return order, nil
}

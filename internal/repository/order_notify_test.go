package repository

import (
	"context"
	"testing"
	"time"

	"stride/internal/domain"
	"stride/internal/tracking"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusUpdatesReachListener(t *testing.T) {
	repo := NewOrderRepository(testDB)
	user := createTestUser(t)
	order := newTestOrder(user.ID, "STR-NOTIFY-"+uuid.NewString()[:8], "42.00")
	require.NoError(t, repo.Create(context.Background(), order))

	hub := tracking.NewHub()
	received := make(chan domain.Order, 16)
	unsubscribe := hub.Subscribe(func(o domain.Order) { received <- o })
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener := tracking.NewListener(testConnStr, hub, nil, zap.NewNop())
	go func() { _ = listener.Run(ctx) }()

	// the listener connects asynchronously, so keep updating until an event arrives
	var event domain.Order
	require.Eventually(t, func() bool {
		if _, err := repo.UpdateStatus(context.Background(), order.ID, domain.StatusShipped); err != nil {
			return false
		}
		select {
		case event = <-received:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, order.ID, event.ID)
	assert.Equal(t, user.ID, event.UserID)
	assert.Equal(t, order.OrderNumber, event.OrderNumber)
	assert.Equal(t, domain.StatusShipped, event.Status)
}

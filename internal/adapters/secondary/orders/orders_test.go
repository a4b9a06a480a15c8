package orders_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/support-agents-backend/internal/adapters/secondary/orders"
)

func TestGateway_GetOrder(t *testing.T) {
	ctx := context.Background()
	gw := orders.NewGateway()

	t.Run("known order", func(t *testing.T) {
		order, err := gw.GetOrder(ctx, "ORD-001")

		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "ORD-001", order.ID)
		assert.InDelta(t, 149.99, order.Total, 0.001)
		assert.Equal(t, "delivered", order.Status)
	})

	t.Run("unknown order returns nil without error", func(t *testing.T) {
		order, err := gw.GetOrder(ctx, "ORD-404")

		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("cancelled context is respected", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := gw.GetOrder(cancelled, "ORD-001")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGateway_CheckRefundEligibility(t *testing.T) {
	ctx := context.Background()
	gw := orders.NewGateway()

	t.Run("recent delivered order is eligible", func(t *testing.T) {
		eligibility, err := gw.CheckRefundEligibility(ctx, "ORD-001")

		require.NoError(t, err)
		assert.True(t, eligibility.Eligible)
		assert.True(t, eligibility.OrderExists)
		assert.InDelta(t, 149.99, eligibility.Amount, 0.001)
	})

	t.Run("order outside the window is ineligible", func(t *testing.T) {
		eligibility, err := gw.CheckRefundEligibility(ctx, "ORD-002")

		require.NoError(t, err)
		assert.False(t, eligibility.Eligible)
		assert.True(t, eligibility.OrderExists)
		assert.Contains(t, eligibility.Reason, "refund window")
	})

	t.Run("shipped order is eligible", func(t *testing.T) {
		eligibility, err := gw.CheckRefundEligibility(ctx, "ORD-003")

		require.NoError(t, err)
		assert.True(t, eligibility.Eligible)
		assert.InDelta(t, 79.99, eligibility.Amount, 0.001)
	})

	t.Run("unknown order is reported as missing", func(t *testing.T) {
		eligibility, err := gw.CheckRefundEligibility(ctx, "ORD-404")

		require.NoError(t, err)
		assert.False(t, eligibility.Eligible)
		assert.False(t, eligibility.OrderExists)
		assert.Equal(t, "order not found", eligibility.Reason)
	})
}

// Package orders is a stand-in for the external order system. It serves a
// small fixed catalog so refund flows are exercisable end to end without a
// live integration.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

const defaultRefundWindowDays = 30

// Gateway implements ports.OrderGateway over an in-memory catalog.
type Gateway struct {
	orders map[string]domain.Order
	now    func() time.Time
}

var _ ports.OrderGateway = (*Gateway)(nil)

// NewGateway seeds the demo catalog: one order inside the refund window, one
// outside it and one still in transit.
func NewGateway() *Gateway {
	now := time.Now().UTC()
	return &Gateway{
		now: time.Now,
		orders: map[string]domain.Order{
			"ORD-001": {
				ID:               "ORD-001",
				CustomerEmail:    "john@example.com",
				PlacedAt:         now.AddDate(0, 0, -5),
				Total:            149.99,
				Status:           "delivered",
				RefundWindowDays: defaultRefundWindowDays,
			},
			"ORD-002": {
				ID:               "ORD-002",
				CustomerEmail:    "jane@example.com",
				PlacedAt:         now.AddDate(0, 0, -45),
				Total:            299.99,
				Status:           "delivered",
				RefundWindowDays: defaultRefundWindowDays,
			},
			"ORD-003": {
				ID:               "ORD-003",
				CustomerEmail:    "bob@example.com",
				PlacedAt:         now.AddDate(0, 0, -2),
				Total:            79.99,
				Status:           "shipped",
				RefundWindowDays: defaultRefundWindowDays,
			},
		},
	}
}

func (g *Gateway) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order, ok := g.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

// CheckRefundEligibility applies the refund window and status rules. Only
// delivered or shipped orders qualify.
func (g *Gateway) CheckRefundEligibility(ctx context.Context, orderID string) (*domain.RefundEligibility, error) {
	order, err := g.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return &domain.RefundEligibility{
			Eligible:    false,
			OrderExists: false,
			Reason:      "order not found",
		}, nil
	}

	age := int(g.now().UTC().Sub(order.PlacedAt).Hours() / 24)
	if age > order.RefundWindowDays {
		return &domain.RefundEligibility{
			Eligible:    false,
			OrderExists: true,
			Reason:      fmt.Sprintf("order is %d days old, outside the %d-day refund window", age, order.RefundWindowDays),
		}, nil
	}
	if order.Status != "delivered" && order.Status != "shipped" {
		return &domain.RefundEligibility{
			Eligible:    false,
			OrderExists: true,
			Reason:      fmt.Sprintf("order status %q is not eligible for refund", order.Status),
		}, nil
	}
	return &domain.RefundEligibility{
		Eligible:    true,
		OrderExists: true,
		Reason:      "order is within the refund window and eligible",
		Amount:      order.Total,
	}, nil
}

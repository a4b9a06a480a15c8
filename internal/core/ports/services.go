package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
)

// SubmitTicketParams defines the required input for submitting a ticket.
type SubmitTicketParams struct {
	CustomerName  string
	CustomerEmail string
	Subject       string
	Message       string
	OrderID       *string
}

// ListTicketsParams defines the input for listing tickets.
type ListTicketsParams struct {
	Status *domain.TicketStatus
	Limit  int
	Offset int
}

// TicketService defines the core business operations for managing tickets.
type TicketService interface {
	// Submit validates the request, creates the ticket and synchronously
	// runs the full pipeline, returning the ticket in its final status.
	Submit(ctx context.Context, params SubmitTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, []*domain.AgentTrace, error)
	GetTicketByNumber(ctx context.Context, number string) (*domain.Ticket, []*domain.AgentTrace, error)
	ListTickets(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, error)
	// ApproveResponse is the sole supported human mutation: it moves a
	// waiting_human ticket with a drafted response to resolved.
	ApproveResponse(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	CloseTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, id uuid.UUID) error
}

// PipelineRunner drives the five agent stages for one ticket and persists
// the outcome. The run completes even if the caller goes away.
type PipelineRunner interface {
	Process(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
}

// StatsService derives dashboard metrics from the ticket store.
type StatsService interface {
	Overview(ctx context.Context) (*domain.Stats, error)
}

// KnowledgeBase is the opaque queryable policy/article service consulted by
// the research stage.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Snippet, error)
}

// OrderGateway is the external order system consulted by the policy stage.
type OrderGateway interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	CheckRefundEligibility(ctx context.Context, orderID string) (*domain.RefundEligibility, error)
}

// EventBroadcaster pushes real-time events to connected dashboard clients.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientEmail string
	Subject        string
	Message        string
	TicketNumber   string
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

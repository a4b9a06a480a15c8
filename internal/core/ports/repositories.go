package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
)

// ListTicketsRepoParams narrows a ticket listing at the store level.
type ListTicketsRepoParams struct {
	Status *domain.TicketStatus
	Limit  int32
	Offset int32
}

// TicketRepository is the secondary port for durable ticket state. Create
// assigns the human-readable ticket number from a monotonic sequence.
// Implementations must serialize writes per ticket and return consistent
// per-ticket snapshots to concurrent readers.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	List(ctx context.Context, params ListTicketsRepoParams) ([]*domain.Ticket, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TraceLedger is the append-only record of stage executions. Append fails
// for an unknown ticket or when the step number does not extend the ledger
// by exactly one; entries are immutable once written.
type TraceLedger interface {
	Append(ctx context.Context, trace *domain.AgentTrace) (*domain.AgentTrace, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*domain.AgentTrace, error)
}

// StatsRepository exposes the aggregate scans behind the stats service.
// Every method tolerates an empty store.
type StatsRepository interface {
	CountTickets(ctx context.Context) (int64, error)
	CountEscalated(ctx context.Context) (int64, error)
	AverageConfidence(ctx context.Context) (float64, error)
	StatusCounts(ctx context.Context) (map[domain.TicketStatus]int64, error)
	PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int64, error)
	TopIntents(ctx context.Context, limit int) (map[string]int64, error)
	AgentPerformance(ctx context.Context) (map[domain.AgentName]domain.AgentPerformance, error)
}

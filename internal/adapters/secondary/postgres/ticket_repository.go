package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

const ticketColumns = `id, number, customer_name, customer_email, subject, message,
order_id, intent, priority, confidence, status, ai_response,
response_approved, escalated, created_at, updated_at`

// TicketRepository is the secondary adapter for durable ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketRepository = (*TicketRepository)(nil)

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// Create persists a new ticket, assigning its number from the dedicated
// sequence in the same statement.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
INSERT INTO tickets (id, number, customer_name, customer_email, subject, message,
                     order_id, status, created_at)
VALUES ($1, 'TKT-' || lpad(nextval('ticket_number_seq')::text, 6, '0'),
        $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + ticketColumns

	row := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.Subject,
		ticket.Message,
		ticket.OrderID,
		string(ticket.Status),
		ticket.CreatedAt,
	)
	return scanTicket(row)
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return notFoundWrapped(scanTicket(r.pool.QueryRow(ctx, query, id)))
}

func (r *TicketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE number = $1`
	return notFoundWrapped(scanTicket(r.pool.QueryRow(ctx, query, number)))
}

// Update persists the mutable ticket fields. The number and creation
// metadata are immutable.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	const query = `
UPDATE tickets
SET intent = $2, priority = $3, confidence = $4, status = $5,
    ai_response = $6, response_approved = $7, escalated = $8, updated_at = $9
WHERE id = $1
RETURNING ` + ticketColumns

	var priority *string
	if ticket.Priority != nil {
		p := string(*ticket.Priority)
		priority = &p
	}
	row := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Intent,
		priority,
		ticket.Confidence,
		string(ticket.Status),
		ticket.AIResponse,
		ticket.ResponseApproved,
		ticket.Escalated,
		ticket.UpdatedAt,
	)
	return notFoundWrapped(scanTicket(row))
}

func (r *TicketRepository) List(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, error) {
	const query = `
SELECT ` + ticketColumns + `
FROM tickets
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC, number DESC
LIMIT $2 OFFSET $3`

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}
	rows, err := r.pool.Query(ctx, query, status, limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// Delete removes the ticket; its traces go with it via ON DELETE CASCADE.
func (r *TicketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		t        domain.Ticket
		status   string
		priority *string
	)
	err := row.Scan(
		&t.ID,
		&t.Number,
		&t.CustomerName,
		&t.CustomerEmail,
		&t.Subject,
		&t.Message,
		&t.OrderID,
		&t.Intent,
		&priority,
		&t.Confidence,
		&status,
		&t.AIResponse,
		&t.ResponseApproved,
		&t.Escalated,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TicketStatus(status)
	if priority != nil {
		p := domain.TicketPriority(*priority)
		t.Priority = &p
	}
	return &t, nil
}

func notFoundWrapped(ticket *domain.Ticket, err error) (*domain.Ticket, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, err
}

// isUniqueViolation reports a 23505 unique_violation error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// TicketServiceImpl implements the ticket lifecycle operations around the
// repository and the pipeline runner. All status changes flow through the
// domain entity's transition methods; the service never mutates Status
// directly.
type TicketServiceImpl struct {
	tickets     ports.TicketRepository
	ledger      ports.TraceLedger
	runner      ports.PipelineRunner
	broadcaster ports.EventBroadcaster
	notifier    ports.Notifier
	locks       *TicketLocks
	logger      *slog.Logger
}

var _ ports.TicketService = (*TicketServiceImpl)(nil)

func NewTicketService(
	tickets ports.TicketRepository,
	ledger ports.TraceLedger,
	runner ports.PipelineRunner,
	broadcaster ports.EventBroadcaster,
	notifier ports.Notifier,
	locks *TicketLocks,
	logger *slog.Logger,
) *TicketServiceImpl {
	return &TicketServiceImpl{
		tickets:     tickets,
		ledger:      ledger,
		runner:      runner,
		broadcaster: broadcaster,
		notifier:    notifier,
		locks:       locks,
		logger:      logger.With("component", "ticket_service"),
	}
}

// Submit creates the ticket and synchronously runs the agent pipeline. The
// returned ticket carries the pipeline outcome (resolved or waiting_human).
func (s *TicketServiceImpl) Submit(ctx context.Context, params ports.SubmitTicketParams) (*domain.Ticket, error) {
	ticket, err := domain.NewTicket(domain.TicketParams{
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		Subject:       params.Subject,
		Message:       params.Message,
		OrderID:       params.OrderID,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("create ticket: %w", err))
	}
	s.logger.Info("ticket submitted",
		"ticket_id", created.ID,
		"ticket_number", created.Number,
		"customer_email", created.CustomerEmail,
	)
	s.broadcast(domain.Event{
		Type:     domain.EventTicketCreated,
		TicketID: created.ID,
		Payload:  map[string]any{"ticket_number": created.Number},
	})

	processed, err := s.runner.Process(ctx, created)
	if err != nil {
		return nil, err
	}

	if processed.Status == domain.StatusResolved {
		s.notifyResolved(ctx, processed)
	}
	return processed, nil
}

func (s *TicketServiceImpl) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, []*domain.AgentTrace, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	traces, err := s.ledger.ListByTicket(ctx, id)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(fmt.Errorf("list traces: %w", err))
	}
	return ticket, traces, nil
}

func (s *TicketServiceImpl) GetTicketByNumber(ctx context.Context, number string) (*domain.Ticket, []*domain.AgentTrace, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	traces, err := s.ledger.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(fmt.Errorf("list traces: %w", err))
	}
	return ticket, traces, nil
}

func (s *TicketServiceImpl) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	if params.Status != nil && !domain.ValidStatus(*params.Status) {
		return nil, apperrors.ErrInvalidStatus
	}
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	return s.tickets.List(ctx, ports.ListTicketsRepoParams{
		Status: params.Status,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
}

// ApproveResponse moves a waiting_human ticket with a drafted response to
// resolved. Any other update is rejected upstream by the handler.
func (s *TicketServiceImpl) ApproveResponse(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ticket.ApproveResponse(); err != nil {
		return nil, err
	}
	updated, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("update ticket: %w", err))
	}

	s.logger.Info("response approved", "ticket_id", updated.ID, "ticket_number", updated.Number)
	s.broadcast(domain.Event{
		Type:     domain.EventStatusUpdated,
		TicketID: updated.ID,
		Payload:  map[string]any{"status": updated.Status},
	})
	s.notifyResolved(ctx, updated)
	return updated, nil
}

func (s *TicketServiceImpl) CloseTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasClosed := ticket.Status == domain.StatusClosed
	if err := ticket.Close(); err != nil {
		return nil, err
	}
	if wasClosed {
		return ticket, nil
	}
	updated, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("update ticket: %w", err))
	}
	s.broadcast(domain.Event{
		Type:     domain.EventStatusUpdated,
		TicketID: updated.ID,
		Payload:  map[string]any{"status": updated.Status},
	})
	return updated, nil
}

func (s *TicketServiceImpl) DeleteTicket(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.tickets.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("ticket deleted", "ticket_id", id)
	return nil
}

func (s *TicketServiceImpl) notifyResolved(ctx context.Context, ticket *domain.Ticket) {
	if s.notifier == nil || ticket.AIResponse == nil {
		return
	}
	s.notifier.Notify(ctx, ports.NotificationParams{
		RecipientEmail: ticket.CustomerEmail,
		Subject:        fmt.Sprintf("Re: %s [%s]", ticket.Subject, ticket.Number),
		Message:        *ticket.AIResponse,
		TicketNumber:   ticket.Number,
	})
}

func (s *TicketServiceImpl) broadcast(event domain.Event) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(event)
}

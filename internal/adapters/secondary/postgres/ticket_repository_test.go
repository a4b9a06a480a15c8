package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

func newTestTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Subject:       "Refund for order ORD-001",
		Message:       "The blender arrived broken, I would like a refund.",
		OrderID:       strPtr("ORD-001"),
	})
	require.NoError(t, err)
	return ticket
}

func strPtr(s string) *string { return &s }

func TestTicketRepository_CreateAssignsSequentialNumbers(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	first, err := repo.Create(ctx, newTestTicket(t))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newTestTicket(t))
	require.NoError(t, err)

	assert.Equal(t, "TKT-000001", first.Number)
	assert.Equal(t, "TKT-000002", second.Number)
}

func TestTicketRepository_CreateGet(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	created, err := repo.Create(ctx, newTestTicket(t))
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Jane Doe", found.CustomerName)
	assert.Equal(t, "Refund for order ORD-001", found.Subject)
	require.NotNil(t, found.OrderID)
	assert.Equal(t, "ORD-001", *found.OrderID)
	assert.Equal(t, domain.StatusNew, found.Status)
	assert.Nil(t, found.Intent)
	assert.Nil(t, found.Priority)
	assert.Nil(t, found.Confidence)
	assert.Nil(t, found.AIResponse)
	assert.False(t, found.Escalated)
	assert.Nil(t, found.UpdatedAt)

	byNumber, err := repo.GetByNumber(ctx, created.Number)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byNumber.ID)
}

func TestTicketRepository_GetNotFound(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	_, err := repo.GetByID(ctx, newTestTicket(t).ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

	_, err = repo.GetByNumber(ctx, "TKT-000042")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_UpdatePersistsPipelineResults(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	created, err := repo.Create(ctx, newTestTicket(t))
	require.NoError(t, err)

	intent := "refund_request"
	priority := domain.PriorityHigh
	confidence := 0.82
	draft := "Hi Jane, your refund has been approved."
	now := time.Now().UTC()

	created.Intent = &intent
	created.Priority = &priority
	created.Confidence = &confidence
	created.AIResponse = &draft
	created.Status = domain.StatusResolved
	created.ResponseApproved = true
	created.Escalated = false
	created.UpdatedAt = &now
	created.Number = "TKT-999999" // must not stick

	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)

	assert.Equal(t, "TKT-000001", updated.Number)
	assert.Equal(t, domain.StatusResolved, updated.Status)
	require.NotNil(t, updated.Intent)
	assert.Equal(t, "refund_request", *updated.Intent)
	require.NotNil(t, updated.Priority)
	assert.Equal(t, domain.PriorityHigh, *updated.Priority)
	require.NotNil(t, updated.Confidence)
	assert.InDelta(t, 0.82, *updated.Confidence, 0.001)
	require.NotNil(t, updated.AIResponse)
	assert.Equal(t, draft, *updated.AIResponse)
	assert.True(t, updated.ResponseApproved)
	require.NotNil(t, updated.UpdatedAt)
	assert.WithinDuration(t, now, *updated.UpdatedAt, time.Second)
}

func TestTicketRepository_UpdateNotFound(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	_, err := repo.Update(ctx, newTestTicket(t))
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestTicketRepository_List(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	repo := NewTicketRepository(testPool)

	for i := 0; i < 5; i++ {
		ticket := newTestTicket(t)
		ticket.CreatedAt = time.Date(2026, 8, 1, 12, i, 0, 0, time.UTC)
		created, err := repo.Create(ctx, ticket)
		require.NoError(t, err)
		if i%2 == 0 {
			created.Status = domain.StatusResolved
			_, err = repo.Update(ctx, created)
			require.NoError(t, err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		all, err := repo.List(ctx, ports.ListTicketsRepoParams{Limit: 50})
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
		}
	})

	t.Run("status filter", func(t *testing.T) {
		status := domain.StatusResolved
		resolved, err := repo.List(ctx, ports.ListTicketsRepoParams{Status: &status, Limit: 50})
		require.NoError(t, err)
		assert.Len(t, resolved, 3)
		for _, ticket := range resolved {
			assert.Equal(t, domain.StatusResolved, ticket.Status)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		page, err := repo.List(ctx, ports.ListTicketsRepoParams{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, page, 2)

		empty, err := repo.List(ctx, ports.ListTicketsRepoParams{Limit: 2, Offset: 99})
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestTicketRepository_DeleteCascadesTraces(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	ticketRepo := NewTicketRepository(testPool)
	traceRepo := NewTraceRepository(testPool)

	created, err := ticketRepo.Create(ctx, newTestTicket(t))
	require.NoError(t, err)
	_, err = traceRepo.Append(ctx, newTestTrace(created.ID, 1, domain.AgentTriage))
	require.NoError(t, err)

	require.NoError(t, ticketRepo.Delete(ctx, created.ID))

	_, err = ticketRepo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

	traces, err := traceRepo.ListByTicket(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, traces)

	assert.ErrorIs(t, ticketRepo.Delete(ctx, created.ID), apperrors.ErrTicketNotFound)
}

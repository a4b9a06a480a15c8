// Package memory provides an in-process store implementing the ticket
// repository, trace ledger and stats ports. It backs local development and
// the default configuration; the postgres adapter is the durable variant.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// Store keeps all state behind one RWMutex. Values are deep-copied on the
// way in and out so callers can never alias internal state.
type Store struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]*domain.Ticket
	byNum   map[string]uuid.UUID
	traces  map[uuid.UUID][]*domain.AgentTrace
	seq     int64
}

var (
	_ ports.TicketRepository = (*Store)(nil)
	_ ports.TraceLedger      = (*Store)(nil)
	_ ports.StatsRepository  = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		tickets: make(map[uuid.UUID]*domain.Ticket),
		byNum:   make(map[string]uuid.UUID),
		traces:  make(map[uuid.UUID][]*domain.AgentTrace),
	}
}

func (s *Store) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[ticket.ID]; exists {
		return nil, apperrors.ErrConflict
	}
	s.seq++
	stored := copyTicket(ticket)
	stored.Number = fmt.Sprintf("TKT-%06d", s.seq)
	s.tickets[stored.ID] = stored
	s.byNum[stored.Number] = stored.ID
	return copyTicket(stored), nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return copyTicket(ticket), nil
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNum[number]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return copyTicket(s.tickets[id]), nil
}

func (s *Store) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tickets[ticket.ID]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	stored := copyTicket(ticket)
	stored.Number = current.Number // the number is immutable once assigned
	s.tickets[stored.ID] = stored
	return copyTicket(stored), nil
}

func (s *Store) List(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		all = append(all, t)
	}
	// Newest first, ticket number as a deterministic tie-break.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Number > all[j].Number
	})

	offset := int(params.Offset)
	if offset >= len(all) {
		return []*domain.Ticket{}, nil
	}
	end := len(all)
	if params.Limit > 0 && offset+int(params.Limit) < end {
		end = offset + int(params.Limit)
	}

	out := make([]*domain.Ticket, 0, end-offset)
	for _, t := range all[offset:end] {
		out = append(out, copyTicket(t))
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return apperrors.ErrTicketNotFound
	}
	delete(s.byNum, ticket.Number)
	delete(s.tickets, id)
	delete(s.traces, id)
	return nil
}

// Append adds one trace entry. The entry must extend the ticket's ledger by
// exactly one step; anything else is rejected so the ledger stays gapless.
func (s *Store) Append(ctx context.Context, trace *domain.AgentTrace) (*domain.AgentTrace, error) {
	if err := trace.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[trace.TicketID]; !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	existing := s.traces[trace.TicketID]
	if trace.StepNumber != len(existing)+1 {
		return nil, fmt.Errorf("%w: step %d after %d entries", apperrors.ErrTraceOutOfOrder, trace.StepNumber, len(existing))
	}
	stored := copyTrace(trace)
	s.traces[trace.TicketID] = append(existing, stored)
	return copyTrace(stored), nil
}

func (s *Store) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*domain.AgentTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.traces[ticketID]
	out := make([]*domain.AgentTrace, 0, len(entries))
	for _, tr := range entries {
		out = append(out, copyTrace(tr))
	}
	return out, nil
}

func (s *Store) CountTickets(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tickets)), nil
}

func (s *Store) CountEscalated(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.tickets {
		if t.Escalated {
			n++
		}
	}
	return n, nil
}

func (s *Store) AverageConfidence(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	var n int
	for _, t := range s.tickets {
		if t.Confidence != nil {
			sum += *t.Confidence
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (s *Store) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.TicketStatus]int64)
	for _, t := range s.tickets {
		counts[t.Status]++
	}
	return counts, nil
}

func (s *Store) PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.TicketPriority]int64)
	for _, t := range s.tickets {
		if t.Priority != nil {
			counts[*t.Priority]++
		}
	}
	return counts, nil
}

func (s *Store) TopIntents(ctx context.Context, limit int) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, t := range s.tickets {
		if t.Intent != nil {
			counts[*t.Intent]++
		}
	}
	if limit <= 0 || len(counts) <= limit {
		return counts, nil
	}

	type kv struct {
		intent string
		n      int64
	}
	ranked := make([]kv, 0, len(counts))
	for intent, n := range counts {
		ranked = append(ranked, kv{intent, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].intent < ranked[j].intent
	})

	top := make(map[string]int64, limit)
	for _, e := range ranked[:limit] {
		top[e.intent] = e.n
	}
	return top, nil
}

func (s *Store) AgentPerformance(ctx context.Context) (map[domain.AgentName]domain.AgentPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[domain.AgentName]int64)
	counts := make(map[domain.AgentName]int64)
	for _, entries := range s.traces {
		for _, tr := range entries {
			sums[tr.AgentName] += tr.ExecutionTimeMs
			counts[tr.AgentName]++
		}
	}
	perf := make(map[domain.AgentName]domain.AgentPerformance, len(counts))
	for name, n := range counts {
		perf[name] = domain.AgentPerformance{
			AvgExecutionMs:  float64(sums[name]) / float64(n),
			TotalExecutions: n,
		}
	}
	return perf, nil
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.OrderID = copyPtr(t.OrderID)
	c.Intent = copyPtr(t.Intent)
	c.Priority = copyPtr(t.Priority)
	c.Confidence = copyPtr(t.Confidence)
	c.AIResponse = copyPtr(t.AIResponse)
	c.UpdatedAt = copyPtr(t.UpdatedAt)
	return &c
}

func copyTrace(tr *domain.AgentTrace) *domain.AgentTrace {
	c := *tr
	c.Confidence = copyPtr(tr.Confidence)
	if tr.ToolsUsed != nil {
		c.ToolsUsed = append([]string(nil), tr.ToolsUsed...)
	}
	if tr.Output != nil {
		c.Output = make(map[string]any, len(tr.Output))
		for k, v := range tr.Output {
			c.Output[k] = v
		}
	}
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTraceLedger is a mock implementation of ports.TraceLedger
type MockTraceLedger struct {
	mock.Mock
}

func NewMockTraceLedger() *MockTraceLedger {
	return &MockTraceLedger{}
}

func (m *MockTraceLedger) Append(ctx context.Context, trace *domain.AgentTrace) (*domain.AgentTrace, error) {
	args := m.Called(ctx, trace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentTrace), args.Error(1)
}

func (m *MockTraceLedger) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*domain.AgentTrace, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AgentTrace), args.Error(1)
}

// MockStatsRepository is a mock implementation of ports.StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func NewMockStatsRepository() *MockStatsRepository {
	return &MockStatsRepository{}
}

func (m *MockStatsRepository) CountTickets(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountEscalated(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) AverageConfidence(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockStatsRepository) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.TicketStatus]int64), args.Error(1)
}

func (m *MockStatsRepository) PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.TicketPriority]int64), args.Error(1)
}

func (m *MockStatsRepository) TopIntents(ctx context.Context, limit int) (map[string]int64, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockStatsRepository) AgentPerformance(ctx context.Context) (map[domain.AgentName]domain.AgentPerformance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.AgentName]domain.AgentPerformance), args.Error(1)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) Submit(ctx context.Context, params ports.SubmitTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, []*domain.AgentTrace, error) {
	args := m.Called(ctx, id)
	var ticket *domain.Ticket
	if args.Get(0) != nil {
		ticket = args.Get(0).(*domain.Ticket)
	}
	var traces []*domain.AgentTrace
	if args.Get(1) != nil {
		traces = args.Get(1).([]*domain.AgentTrace)
	}
	return ticket, traces, args.Error(2)
}

func (m *MockTicketService) GetTicketByNumber(ctx context.Context, number string) (*domain.Ticket, []*domain.AgentTrace, error) {
	args := m.Called(ctx, number)
	var ticket *domain.Ticket
	if args.Get(0) != nil {
		ticket = args.Get(0).(*domain.Ticket)
	}
	var traces []*domain.AgentTrace
	if args.Get(1) != nil {
		traces = args.Get(1).([]*domain.AgentTrace)
	}
	return ticket, traces, args.Error(2)
}

func (m *MockTicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ApproveResponse(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) CloseTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) DeleteTicket(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStatsService is a mock implementation of ports.StatsService
type MockStatsService struct {
	mock.Mock
}

func NewMockStatsService() *MockStatsService {
	return &MockStatsService{}
}

func (m *MockStatsService) Overview(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

// MockPipelineRunner is a mock implementation of ports.PipelineRunner
type MockPipelineRunner struct {
	mock.Mock
}

func NewMockPipelineRunner() *MockPipelineRunner {
	return &MockPipelineRunner{}
}

func (m *MockPipelineRunner) Process(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// MockKnowledgeBase is a mock implementation of ports.KnowledgeBase
type MockKnowledgeBase struct {
	mock.Mock
}

func NewMockKnowledgeBase() *MockKnowledgeBase {
	return &MockKnowledgeBase{}
}

func (m *MockKnowledgeBase) Search(ctx context.Context, query string, limit int) ([]domain.Snippet, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Snippet), args.Error(1)
}

// MockOrderGateway is a mock implementation of ports.OrderGateway
type MockOrderGateway struct {
	mock.Mock
}

func NewMockOrderGateway() *MockOrderGateway {
	return &MockOrderGateway{}
}

func (m *MockOrderGateway) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderGateway) CheckRefundEligibility(ctx context.Context, orderID string) (*domain.RefundEligibility, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefundEligibility), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

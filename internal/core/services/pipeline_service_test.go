package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/support-agents-backend/internal/adapters/secondary/memory"
	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/mocks"
	"github.com/lorrc/support-agents-backend/internal/core/pipeline"
	"github.com/lorrc/support-agents-backend/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubStage lets tests exercise orchestrator behavior that the real stages
// never exhibit on purpose (hangs, panics).
type stubStage struct {
	name domain.AgentName
	run  func(ctx context.Context, state *pipeline.State) (*pipeline.Result, error)
}

func (s *stubStage) Name() domain.AgentName { return s.name }
func (s *stubStage) Run(ctx context.Context, state *pipeline.State) (*pipeline.Result, error) {
	return s.run(ctx, state)
}

func defaultStages(t *testing.T) []pipeline.Stage {
	t.Helper()

	kb := mocks.NewMockKnowledgeBase()
	kb.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Snippet{
			{Source: "shipping-faq.md", Content: "Standard shipping takes 5-7 business days.", Score: 0.8},
			{Source: "refund-policy.md", Content: "Refunds are issued within 30 days of delivery.", Score: 0.7},
		}, nil).Maybe()

	gateway := mocks.NewMockOrderGateway()
	gateway.On("GetOrder", mock.Anything, "ORD-001").
		Return(&domain.Order{ID: "ORD-001", Total: 149.99, Status: "delivered"}, nil).Maybe()
	gateway.On("CheckRefundEligibility", mock.Anything, "ORD-001").
		Return(&domain.RefundEligibility{Eligible: true, OrderExists: true, Amount: 149.99, Reason: "within the refund window"}, nil).Maybe()

	policy, err := pipeline.PolicyByName("minimum")
	require.NoError(t, err)

	return []pipeline.Stage{
		pipeline.NewTriageStage(0),
		pipeline.NewResearchStage(kb, 3),
		pipeline.NewPolicyStage(gateway),
		pipeline.NewResponseStage(true),
		pipeline.NewEscalationStage(policy, 0.7),
	}
}

func submitTicket(t *testing.T, store *memory.Store, subject, message string, orderID *string) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Subject:       subject,
		Message:       message,
		OrderID:       orderID,
	})
	require.NoError(t, err)
	created, err := store.Create(context.Background(), ticket)
	require.NoError(t, err)
	return created
}

func TestPipelineService_ConfidentRunResolves(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	orderID := "ORD-001"
	ticket := submitTicket(t, store,
		"Refund for my order",
		"I want my money back for ORD-001, please reimburse the full amount.",
		&orderID)

	svc := services.NewPipelineService(store, store, defaultStages(t), nil, services.NewTicketLocks(), time.Second, testLogger())

	processed, err := svc.Process(ctx, ticket)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, processed.Status)
	assert.True(t, processed.ResponseApproved)
	assert.False(t, processed.Escalated)
	require.NotNil(t, processed.Intent)
	assert.Equal(t, "refund_request", *processed.Intent)
	require.NotNil(t, processed.AIResponse)
	assert.Contains(t, *processed.AIResponse, "$149.99")
	require.NotNil(t, processed.Confidence)
	assert.GreaterOrEqual(t, *processed.Confidence, 0.7)

	traces, err := store.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, traces, 5)
	for i, trace := range traces {
		assert.Equal(t, i+1, trace.StepNumber)
		assert.Equal(t, domain.AgentNames[i], trace.AgentName)
		assert.NotNil(t, trace.Confidence)
	}
}

func TestPipelineService_LowConfidenceEscalates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	// Refund without an order reference: policy says needs_review.
	ticket := submitTicket(t, store, "Please refund me", "I want a refund.", nil)

	svc := services.NewPipelineService(store, store, defaultStages(t), nil, services.NewTicketLocks(), time.Second, testLogger())

	processed, err := svc.Process(ctx, ticket)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingHuman, processed.Status)
	assert.True(t, processed.Escalated)
	assert.False(t, processed.ResponseApproved)
	// A draft exists for the reviewer even though the ticket escalated.
	require.NotNil(t, processed.AIResponse)

	traces, err := store.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, traces, 5)
}

func TestPipelineService_TriageFailureAborts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ticket := submitTicket(t, store, "Hello", "No keywords at all.", nil)

	stages := defaultStages(t)
	stages[0] = pipeline.NewTriageStage(0.99) // everything is below this floor

	svc := services.NewPipelineService(store, store, stages, nil, services.NewTicketLocks(), time.Second, testLogger())

	processed, err := svc.Process(ctx, ticket)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingHuman, processed.Status)
	assert.True(t, processed.Escalated)
	assert.Nil(t, processed.Intent)
	assert.Nil(t, processed.AIResponse)

	// Only the failed stage left a trace; the run stopped there.
	traces, err := store.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, domain.AgentTriage, traces[0].AgentName)
	assert.Nil(t, traces[0].Confidence)
	assert.NotEmpty(t, traces[0].Reasoning)
}

func TestPipelineService_ResearchFailureDegradesAndContinues(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ticket := submitTicket(t, store, "Where is my package", "Tracking shows nothing.", nil)

	stages := defaultStages(t)
	stages[1] = &stubStage{
		name: domain.AgentResearch,
		run: func(ctx context.Context, state *pipeline.State) (*pipeline.Result, error) {
			return nil, &pipeline.StageError{Stage: domain.AgentResearch, Reason: "index offline"}
		},
	}

	svc := services.NewPipelineService(store, store, stages, nil, services.NewTicketLocks(), time.Second, testLogger())

	processed, err := svc.Process(ctx, ticket)

	require.NoError(t, err)
	// Degraded research forces escalation, but the run completed.
	assert.Equal(t, domain.StatusWaitingHuman, processed.Status)
	require.NotNil(t, processed.AIResponse)

	traces, err := store.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, traces, 5)
	assert.Nil(t, traces[1].Confidence)
	assert.Contains(t, traces[1].Reasoning, "index offline")
}

func TestPipelineService_StageTimeoutCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ticket := submitTicket(t, store, "Where is my package", "Tracking shows nothing.", nil)

	stages := defaultStages(t)
	stages[3] = &stubStage{
		name: domain.AgentResponse,
		run: func(ctx context.Context, state *pipeline.State) (*pipeline.Result, error) {
			time.Sleep(500 * time.Millisecond)
			return nil, ctx.Err()
		},
	}

	svc := services.NewPipelineService(store, store, stages, nil, services.NewTicketLocks(), 20*time.Millisecond, testLogger())

	processed, err := svc.Process(ctx, ticket)

	require.NoError(t, err)
	// A failed response stage aborts: there is nothing to send.
	assert.Equal(t, domain.StatusWaitingHuman, processed.Status)
	assert.Nil(t, processed.AIResponse)

	traces, err := store.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, traces, 4)
	assert.Contains(t, traces[3].Reasoning, "timed out")
}

func TestPipelineService_PanicIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ticket := submitTicket(t, store, "Where is my package", "Tracking shows nothing.", nil)

	stages := defaultStages(t)
	stages[0] = &stubStage{
		name: domain.AgentTriage,
		run: func(ctx context.Context, state *pipeline.State) (*pipeline.Result, error) {
			panic("boom")
		},
	}

	svc := services.NewPipelineService(store, store, stages, nil, services.NewTicketLocks(), time.Second, testLogger())

	processed, err := svc.Process(ctx, ticket)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingHuman, processed.Status)

	traces, err := store.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Contains(t, traces[0].Reasoning, "panic")
}

func TestPipelineService_BroadcastsStageAndStatusEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ticket := submitTicket(t, store, "Where is my package", "Tracking shows nothing.", nil)

	broadcaster := mocks.NewMockEventBroadcaster()
	broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventStageCompleted && e.TicketID == ticket.ID
	})).Return(nil).Times(5)
	broadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventStatusUpdated && e.TicketID == ticket.ID
	})).Return(nil).Once()

	svc := services.NewPipelineService(store, store, defaultStages(t), broadcaster, services.NewTicketLocks(), time.Second, testLogger())

	_, err := svc.Process(ctx, ticket)

	require.NoError(t, err)
	broadcaster.AssertExpectations(t)
}

func TestPipelineService_RejectsAlreadyProcessedTicket(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ticket := submitTicket(t, store, "Where is my package", "Tracking shows nothing.", nil)

	svc := services.NewPipelineService(store, store, defaultStages(t), nil, services.NewTicketLocks(), time.Second, testLogger())

	processed, err := svc.Process(ctx, ticket)
	require.NoError(t, err)

	_, err = svc.Process(ctx, processed)
	assert.Error(t, err)
}

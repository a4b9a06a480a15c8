package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/pipeline"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// PipelineService orchestrates the fixed five-stage agent sequence for a
// ticket: it runs the stages strictly in order, appends one trace ledger
// entry per stage execution (success or failure) and applies the lifecycle
// transition the escalation verdict dictates. A run always terminates and
// always persists a result.
type PipelineService struct {
	tickets      ports.TicketRepository
	ledger       ports.TraceLedger
	stages       []pipeline.Stage
	broadcaster  ports.EventBroadcaster
	locks        *TicketLocks
	stageTimeout time.Duration
	logger       *slog.Logger
}

var _ ports.PipelineRunner = (*PipelineService)(nil)

func NewPipelineService(
	tickets ports.TicketRepository,
	ledger ports.TraceLedger,
	stages []pipeline.Stage,
	broadcaster ports.EventBroadcaster,
	locks *TicketLocks,
	stageTimeout time.Duration,
	logger *slog.Logger,
) *PipelineService {
	if stageTimeout <= 0 {
		stageTimeout = 10 * time.Second
	}
	return &PipelineService{
		tickets:      tickets,
		ledger:       ledger,
		stages:       stages,
		broadcaster:  broadcaster,
		locks:        locks,
		stageTimeout: stageTimeout,
		logger:       logger.With("component", "pipeline"),
	}
}

// Process runs the full pipeline for a freshly created ticket. The run is
// detached from the caller's cancellation so an abandoned request still
// completes and persists (fire-and-forget correctness); per-ticket locking
// guarantees a single writer per ticket.
func (s *PipelineService) Process(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	ctx = context.WithoutCancel(ctx)

	unlock := s.locks.Lock(ticket.ID)
	defer unlock()

	if err := ticket.BeginProcessing(); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	state := &pipeline.State{Ticket: *ticket}
	aborted := false

	for i, stage := range s.stages {
		res, elapsed, stageErr := s.invoke(ctx, stage, state)

		trace := &domain.AgentTrace{
			ID:              uuid.New(),
			TicketID:        ticket.ID,
			StepNumber:      i + 1,
			AgentName:       stage.Name(),
			ExecutionTimeMs: elapsed.Milliseconds(),
			CreatedAt:       time.Now().UTC(),
		}
		if stageErr != nil {
			trace.Reasoning = stageErr.Error()
		} else {
			confidence := res.Confidence
			trace.Confidence = &confidence
			trace.Reasoning = res.Reasoning
			trace.ToolsUsed = res.ToolsUsed
			trace.Output = res.Output
		}
		if _, err := s.ledger.Append(ctx, trace); err != nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("append trace for step %d: %w", i+1, err))
		}
		s.broadcast(domain.Event{
			Type:     domain.EventStageCompleted,
			TicketID: ticket.ID,
			Payload: map[string]any{
				"step":    i + 1,
				"agent":   stage.Name(),
				"success": stageErr == nil,
			},
		})

		if stageErr == nil {
			continue
		}
		s.logger.Warn("stage failed",
			"ticket_id", ticket.ID,
			"agent", stage.Name(),
			"error", stageErr,
		)
		switch stage.Name() {
		case domain.AgentResearch:
			// Degraded but non-fatal: continue with an empty result.
			state.Research = &pipeline.ResearchOutput{Summary: "research unavailable"}
			state.Degraded = append(state.Degraded, stage.Name())
		case domain.AgentPolicy:
			// Without a policy verdict the safe neutral is needs_review.
			state.Policy = &pipeline.PolicyOutput{
				Verdict: domain.VerdictNeedsReview,
				Reason:  "policy check unavailable",
			}
			state.Degraded = append(state.Degraded, stage.Name())
		default:
			// Triage, response (and a failed escalation decision itself)
			// leave nothing trustworthy to act on.
			aborted = true
		}
		if aborted {
			break
		}
	}

	return s.finalize(ctx, ticket, state, aborted)
}

// invoke runs one stage against a private copy of the state with the
// configured timeout, recovering panics into failures. The copy is merged
// back only on success, so a timed-out stage that finishes late cannot race
// the rest of the run.
func (s *PipelineService) invoke(parent context.Context, stage pipeline.Stage, state *pipeline.State) (*pipeline.Result, time.Duration, error) {
	ctx, cancel := context.WithTimeout(parent, s.stageTimeout)
	defer cancel()

	type outcome struct {
		res *pipeline.Result
		st  *pipeline.State
		err error
	}
	ch := make(chan outcome, 1)
	scratch := state.Clone()
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: &pipeline.StageError{Stage: stage.Name(), Reason: fmt.Sprintf("panic: %v", r)}}
			}
		}()
		res, err := stage.Run(ctx, scratch)
		ch <- outcome{res: res, st: scratch, err: err}
	}()

	select {
	case out := <-ch:
		elapsed := time.Since(start)
		if out.err != nil {
			return nil, elapsed, out.err
		}
		*state = *out.st
		return out.res, elapsed, nil
	case <-ctx.Done():
		elapsed := time.Since(start)
		return nil, elapsed, &pipeline.StageError{
			Stage:  stage.Name(),
			Reason: fmt.Sprintf("timed out after %s", s.stageTimeout),
		}
	}
}

// finalize applies the pipeline outcome to the ticket and persists it.
func (s *PipelineService) finalize(ctx context.Context, ticket *domain.Ticket, state *pipeline.State, aborted bool) (*domain.Ticket, error) {
	if state.Triage != nil {
		intent := state.Triage.Intent
		priority := state.Triage.Priority
		ticket.Intent = &intent
		ticket.Priority = &priority
	}
	if state.Response != nil {
		text := state.Response.Text
		ticket.AIResponse = &text
	}
	if state.Escalation != nil {
		confidence := state.Escalation.CombinedConfidence
		ticket.Confidence = &confidence
	}

	requiresHuman := aborted || state.Escalation == nil || state.Escalation.RequiresHuman
	if err := ticket.CompleteProcessing(requiresHuman); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	updated, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("pipeline completed",
		"ticket_id", updated.ID,
		"ticket_number", updated.Number,
		"status", updated.Status,
		"aborted", aborted,
	)
	s.broadcast(domain.Event{
		Type:     domain.EventStatusUpdated,
		TicketID: updated.ID,
		Payload:  map[string]any{"status": updated.Status},
	})

	return updated, nil
}

func (s *PipelineService) broadcast(event domain.Event) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(event)
}

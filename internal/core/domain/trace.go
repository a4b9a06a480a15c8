package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
)

// AgentName identifies one of the five pipeline stages.
type AgentName string

const (
	AgentTriage     AgentName = "triage"
	AgentResearch   AgentName = "research"
	AgentPolicy     AgentName = "policy"
	AgentResponse   AgentName = "response"
	AgentEscalation AgentName = "escalation"
)

// AgentNames lists the stages in their fixed execution order.
var AgentNames = []AgentName{
	AgentTriage,
	AgentResearch,
	AgentPolicy,
	AgentResponse,
	AgentEscalation,
}

// AgentTrace is the immutable record of one stage execution for one ticket.
// Traces are appended by the orchestrator and never mutated afterwards.
type AgentTrace struct {
	ID              uuid.UUID
	TicketID        uuid.UUID
	StepNumber      int // 1-based, gapless per ticket
	AgentName       AgentName
	ExecutionTimeMs int64
	Confidence      *float64 // nil when the stage failed before scoring
	Reasoning       string
	ToolsUsed       []string
	Output          map[string]any // opaque structured payload
	CreatedAt       time.Time
}

// Validate checks the trace invariants before it enters the ledger.
func (tr *AgentTrace) Validate() error {
	if tr.TicketID == uuid.Nil {
		return apperrors.ErrTicketNotFound
	}
	if tr.StepNumber < 1 {
		return apperrors.ErrTraceOutOfOrder
	}
	valid := false
	for _, name := range AgentNames {
		if tr.AgentName == name {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.ErrBadRequest
	}
	if tr.ExecutionTimeMs < 0 {
		return apperrors.ErrBadRequest
	}
	if tr.Confidence != nil && (*tr.Confidence < 0 || *tr.Confidence > 1) {
		return apperrors.ErrBadRequest
	}
	return nil
}

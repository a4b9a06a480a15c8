// Package pipeline implements the five agent stages that process a support
// ticket: triage, research, policy, response and escalation. Stages are a
// closed set behind a uniform contract; the orchestrator in core/services
// drives them in fixed order and records one trace per execution.
package pipeline

import (
	"context"
	"fmt"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
)

// TriageOutput is the classification produced by the triage stage.
type TriageOutput struct {
	Intent     string
	Priority   domain.TicketPriority
	Confidence float64
	Reasoning  string
}

// ResearchOutput carries the knowledge-base findings. An empty snippet list
// is a valid result.
type ResearchOutput struct {
	Snippets   []domain.Snippet
	Queries    []string
	Confidence float64
	Summary    string
}

// PolicyOutput is the eligibility verdict for the request.
type PolicyOutput struct {
	Verdict      domain.PolicyVerdict
	Confidence   float64
	Reason       string
	RefundAmount *float64
}

// ResponseOutput is the drafted customer reply.
type ResponseOutput struct {
	Text       string
	Confidence float64
}

// EscalationOutput is the authoritative human-review decision.
type EscalationOutput struct {
	RequiresHuman      bool
	CombinedConfidence float64
	Reasons            []string
}

// State accumulates stage outputs for one pipeline run. Each stage reads the
// ticket snapshot and the outputs of earlier stages and sets its own field;
// outputs are treated as immutable once set.
type State struct {
	Ticket     domain.Ticket
	Triage     *TriageOutput
	Research   *ResearchOutput
	Policy     *PolicyOutput
	Response   *ResponseOutput
	Escalation *EscalationOutput
	// Degraded lists stages that failed non-fatally and were replaced with a
	// neutral output. Any entry forces escalation.
	Degraded []domain.AgentName
}

// Clone returns a shallow copy. Stage outputs are never mutated after being
// set, so sharing them between copies is safe.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// Confidences returns the self-reported confidences of the stages that have
// produced output so far, in stage order.
func (s *State) Confidences() []float64 {
	var scores []float64
	if s.Triage != nil {
		scores = append(scores, s.Triage.Confidence)
	}
	if s.Research != nil {
		scores = append(scores, s.Research.Confidence)
	}
	if s.Policy != nil {
		scores = append(scores, s.Policy.Confidence)
	}
	if s.Response != nil {
		scores = append(scores, s.Response.Confidence)
	}
	return scores
}

// Result is what a stage reports for the trace ledger.
type Result struct {
	Confidence float64
	Reasoning  string
	ToolsUsed  []string
	Output     map[string]any
}

// Stage is the uniform contract for all five agents. Run reads the state,
// sets the stage's typed output on it and returns the trace record. A
// returned error is a stage failure, handled by the orchestrator's
// degrade/abort policy; stages never mutate the ticket store.
type Stage interface {
	Name() domain.AgentName
	Run(ctx context.Context, state *State) (*Result, error)
}

// StageError signals that a stage could not produce output. It is absorbed
// by the orchestrator and never surfaced raw to callers.
type StageError struct {
	Stage  domain.AgentName
	Reason string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %s", e.Stage, e.Reason)
}

func failf(stage domain.AgentName, format string, args ...any) error {
	return &StageError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
)

// EscalationStage decides whether the ticket requires human review. The
// decision is monotonic in the stage confidences: lowering any confidence
// can only make escalation more likely, never less.
type EscalationStage struct {
	policy    EscalationPolicy
	threshold float64
}

func NewEscalationStage(policy EscalationPolicy, threshold float64) *EscalationStage {
	return &EscalationStage{policy: policy, threshold: threshold}
}

func (s *EscalationStage) Name() domain.AgentName { return domain.AgentEscalation }

func (s *EscalationStage) Run(ctx context.Context, state *State) (*Result, error) {
	combined := s.policy.Combine(state.Confidences())

	var reasons []string
	if combined < s.threshold {
		reasons = append(reasons, fmt.Sprintf("combined confidence %.2f below threshold %.2f", combined, s.threshold))
	}
	if state.Policy != nil && state.Policy.Verdict == domain.VerdictNeedsReview {
		reasons = append(reasons, "policy verdict requires review")
	}
	if len(state.Degraded) > 0 {
		names := make([]string, len(state.Degraded))
		for i, n := range state.Degraded {
			names[i] = string(n)
		}
		reasons = append(reasons, "degraded stage(s): "+strings.Join(names, ", "))
	}
	if state.Triage != nil && state.Triage.Priority == domain.PriorityUrgent {
		reasons = append(reasons, "urgent priority always gets a human check")
	}

	requiresHuman := len(reasons) > 0
	reasoning := "all stages confident, auto-resolving"
	if requiresHuman {
		reasoning = strings.Join(reasons, "; ")
	}

	state.Escalation = &EscalationOutput{
		RequiresHuman:      requiresHuman,
		CombinedConfidence: combined,
		Reasons:            reasons,
	}

	return &Result{
		Confidence: combined,
		Reasoning:  reasoning,
		Output: map[string]any{
			"requires_human":      requiresHuman,
			"combined_confidence": combined,
			"policy":              s.policy.Name(),
			"threshold":           s.threshold,
		},
	}, nil
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// PolicyStage checks the request against business policy, consulting the
// order gateway for refund intents. needs_review is a strong signal toward
// human escalation and is used whenever the facts cannot be established.
type PolicyStage struct {
	orders ports.OrderGateway
}

func NewPolicyStage(orders ports.OrderGateway) *PolicyStage {
	return &PolicyStage{orders: orders}
}

func (s *PolicyStage) Name() domain.AgentName { return domain.AgentPolicy }

func (s *PolicyStage) Run(ctx context.Context, state *State) (*Result, error) {
	intent := IntentGeneralInquiry
	if state.Triage != nil {
		intent = state.Triage.Intent
	}

	if intent != IntentRefundRequest {
		out := &PolicyOutput{
			Verdict:    domain.VerdictAllowed,
			Confidence: 0.8,
			Reason:     fmt.Sprintf("intent %q carries no policy restriction", intent),
		}
		state.Policy = out
		return s.result(out, nil), nil
	}

	if state.Ticket.OrderID == nil {
		out := &PolicyOutput{
			Verdict:    domain.VerdictNeedsReview,
			Confidence: 0.5,
			Reason:     "refund requested without an order reference",
		}
		state.Policy = out
		return s.result(out, nil), nil
	}

	orderID := *state.Ticket.OrderID
	tools := []string{"get_order_details"}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil || order == nil {
		out := &PolicyOutput{
			Verdict:    domain.VerdictNeedsReview,
			Confidence: 0.55,
			Reason:     fmt.Sprintf("order %s could not be resolved", orderID),
		}
		state.Policy = out
		return s.result(out, tools), nil
	}

	tools = append(tools, "check_refund_eligibility")
	eligibility, err := s.orders.CheckRefundEligibility(ctx, orderID)
	if err != nil {
		return nil, failf(s.Name(), "refund eligibility check for %s: %v", orderID, err)
	}

	out := &PolicyOutput{Reason: eligibility.Reason}
	if eligibility.Eligible {
		out.Verdict = domain.VerdictAllowed
		out.Confidence = 0.9
		amount := eligibility.Amount
		out.RefundAmount = &amount
	} else {
		out.Verdict = domain.VerdictDenied
		out.Confidence = 0.85
	}
	state.Policy = out
	return s.result(out, tools), nil
}

func (s *PolicyStage) result(out *PolicyOutput, tools []string) *Result {
	payload := map[string]any{
		"verdict": string(out.Verdict),
		"reason":  out.Reason,
	}
	if out.RefundAmount != nil {
		payload["refund_amount"] = *out.RefundAmount
	}
	return &Result{
		Confidence: out.Confidence,
		Reasoning:  out.Reason,
		ToolsUsed:  tools,
		Output:     payload,
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
)

// Intent labels produced by the triage stage.
const (
	IntentRefundRequest   = "refund_request"
	IntentShippingInquiry = "shipping_inquiry"
	IntentProductQuestion = "product_question"
	IntentAccountIssue    = "account_issue"
	IntentGeneralInquiry  = "general_inquiry"
)

// intentKeywords drive the deterministic classification. Order matters: the
// first intent whose keywords score highest wins ties.
var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{IntentRefundRequest, []string{"refund", "money back", "chargeback", "reimburse", "return my order"}},
	{IntentShippingInquiry, []string{"shipping", "delivery", "tracking", "shipped", "package", "arrive"}},
	{IntentAccountIssue, []string{"account", "password", "login", "log in", "locked out", "sign in"}},
	{IntentProductQuestion, []string{"how do i", "how to", "compatible", "warranty", "feature", "manual", "work with"}},
}

var urgentKeywords = []string{"urgent", "asap", "immediately", "right away", "emergency"}

// TriageStage classifies intent and priority from the submission text.
type TriageStage struct {
	// ConfidenceFloor is the minimum confidence below which triage hard-fails.
	// The default of 0 means triage never fails; confidence is recorded
	// regardless.
	ConfidenceFloor float64
}

func NewTriageStage(confidenceFloor float64) *TriageStage {
	return &TriageStage{ConfidenceFloor: confidenceFloor}
}

func (s *TriageStage) Name() domain.AgentName { return domain.AgentTriage }

func (s *TriageStage) Run(ctx context.Context, state *State) (*Result, error) {
	text := strings.ToLower(state.Ticket.Subject + " " + state.Ticket.Message)

	intent := IntentGeneralInquiry
	bestHits := 0
	for _, candidate := range intentKeywords {
		hits := 0
		for _, kw := range candidate.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			intent = candidate.intent
		}
	}

	confidence := 0.35 // no keyword evidence at all
	if bestHits > 0 {
		confidence = 0.6 + 0.1*float64(bestHits)
		if confidence > 0.95 {
			confidence = 0.95
		}
	}

	if confidence < s.ConfidenceFloor {
		return nil, failf(s.Name(), "no intent above confidence floor %.2f (best %.2f)", s.ConfidenceFloor, confidence)
	}

	priority := s.classifyPriority(text, intent, state.Ticket.OrderID)
	reasoning := fmt.Sprintf("matched %d keyword(s) for intent %q; assigned priority %s", bestHits, intent, priority)

	state.Triage = &TriageOutput{
		Intent:     intent,
		Priority:   priority,
		Confidence: confidence,
		Reasoning:  reasoning,
	}

	return &Result{
		Confidence: confidence,
		Reasoning:  reasoning,
		Output: map[string]any{
			"intent":        intent,
			"priority":      string(priority),
			"keyword_hits":  bestHits,
			"has_order_ref": state.Ticket.OrderID != nil,
		},
	}, nil
}

func (s *TriageStage) classifyPriority(text, intent string, orderID *string) domain.TicketPriority {
	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			return domain.PriorityUrgent
		}
	}
	if intent == IntentRefundRequest && orderID != nil {
		return domain.PriorityHigh
	}
	if intent == IntentAccountIssue {
		return domain.PriorityHigh
	}
	if intent == IntentProductQuestion || intent == IntentGeneralInquiry {
		return domain.PriorityLow
	}
	return domain.PriorityMedium
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
)

// ResponseStage drafts the customer reply from the triage intent, research
// snippets and policy verdict. A draft is produced even for escalated
// tickets so a human reviewer has a starting point. The stage hard-fails
// when policy denied the request and the fallback template is disabled.
type ResponseStage struct {
	fallbackEnabled bool
}

func NewResponseStage(fallbackEnabled bool) *ResponseStage {
	return &ResponseStage{fallbackEnabled: fallbackEnabled}
}

func (s *ResponseStage) Name() domain.AgentName { return domain.AgentResponse }

func (s *ResponseStage) Run(ctx context.Context, state *State) (*Result, error) {
	verdict := domain.VerdictNeedsReview
	if state.Policy != nil {
		verdict = state.Policy.Verdict
	}
	if verdict == domain.VerdictDenied && !s.fallbackEnabled {
		return nil, failf(s.Name(), "policy denied the request and no fallback template is configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", state.Ticket.CustomerName)

	confidence := 0.85
	switch verdict {
	case domain.VerdictAllowed:
		b.WriteString(s.allowedBody(state))
	case domain.VerdictDenied:
		confidence = 0.75
		b.WriteString("Thank you for reaching out. After reviewing your request against our policy, ")
		b.WriteString("we are unfortunately unable to approve it")
		if state.Policy != nil && state.Policy.Reason != "" {
			fmt.Fprintf(&b, ": %s", state.Policy.Reason)
		}
		b.WriteString(".\nIf you believe this is a mistake, reply to this message and a member of our team will take another look.\n")
	case domain.VerdictNeedsReview:
		confidence = 0.6
		b.WriteString("Thank you for contacting us. Your request needs a closer look from our support team, ")
		b.WriteString("and we wanted to share what we found so far while a specialist reviews it.\n")
	}

	if state.Research != nil && len(state.Research.Snippets) > 0 {
		b.WriteString("\nThis may help in the meantime:\n")
		for _, sn := range state.Research.Snippets {
			fmt.Fprintf(&b, "- %s\n", firstSentence(sn.Content))
		}
	}

	b.WriteString("\nBest regards,\nCustomer Support\n")

	text := b.String()
	state.Response = &ResponseOutput{Text: text, Confidence: confidence}

	return &Result{
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("drafted %s reply for verdict %s", intentOrDefault(state), verdict),
		Output: map[string]any{
			"verdict":      string(verdict),
			"length_chars": len(text),
		},
	}, nil
}

func (s *ResponseStage) allowedBody(state *State) string {
	intent := intentOrDefault(state)
	switch intent {
	case IntentRefundRequest:
		if state.Policy != nil && state.Policy.RefundAmount != nil {
			return fmt.Sprintf("Good news: your refund request has been approved. A refund of $%.2f will be issued to your original payment method within 5-10 business days.\n", *state.Policy.RefundAmount)
		}
		return "Good news: your refund request has been approved and will be processed shortly.\n"
	case IntentShippingInquiry:
		return "Thanks for your patience. We looked into your delivery and everything is on track; you can follow the latest status with the tracking link from your order confirmation.\n"
	case IntentAccountIssue:
		return "We are sorry for the trouble with your account. Please use the password reset link on the sign-in page; if that does not resolve it, reply here and we will restore access manually.\n"
	default:
		return "Thanks for your question. We've gathered the most relevant information from our help center below.\n"
	}
}

func intentOrDefault(state *State) string {
	if state.Triage != nil {
		return state.Triage.Intent
	}
	return IntentGeneralInquiry
}

// firstSentence quotes a snippet up to its first sentence terminator.
// Unpunctuated content is cut at 200 runes, never mid-rune.
func firstSentence(s string) string {
	if idx := strings.IndexAny(s, ".!?"); idx > 0 && idx < len(s)-1 {
		return s[:idx+1]
	}
	if runes := []rune(s); len(runes) > 200 {
		return string(runes[:200])
	}
	return s
}

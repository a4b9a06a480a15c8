package domain

import "time"

// PolicyVerdict is the eligibility decision of the policy stage.
type PolicyVerdict string

const (
	VerdictAllowed     PolicyVerdict = "allowed"
	VerdictDenied      PolicyVerdict = "denied"
	VerdictNeedsReview PolicyVerdict = "needs_review"
)

// Snippet is one knowledge-base hit returned by the research stage. The
// content is opaque to the core; only the response stage reads it.
type Snippet struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Order is the external order record consulted by the policy stage.
type Order struct {
	ID               string
	CustomerEmail    string
	PlacedAt         time.Time
	Total            float64
	Status           string
	RefundWindowDays int
}

// RefundEligibility is the order gateway's verdict on a refund request.
type RefundEligibility struct {
	Eligible    bool
	Reason      string
	OrderExists bool
	Amount      float64
}

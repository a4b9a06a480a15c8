package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
)

const (
	MaxSubjectLength = 255
	MaxMessageLength = 10000
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusNew          TicketStatus = "new"
	StatusInProgress   TicketStatus = "in_progress"
	StatusWaitingHuman TicketStatus = "waiting_human"
	StatusResolved     TicketStatus = "resolved"
	StatusClosed       TicketStatus = "closed"
)

// ValidStatus reports whether s is one of the five ticket statuses.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusWaitingHuman, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// TicketPriority represents the urgency assigned by the triage stage.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Ticket is the core domain entity. Intent, Priority, Confidence and
// AIResponse stay nil until the pipeline has populated them.
type Ticket struct {
	ID               uuid.UUID
	Number           string // human-readable, assigned by the store on create
	CustomerName     string
	CustomerEmail    string
	Subject          string
	Message          string
	OrderID          *string
	Intent           *string
	Priority         *TicketPriority
	Confidence       *float64
	Status           TicketStatus
	AIResponse       *string
	ResponseApproved bool
	// Escalated records that the ticket entered waiting_human at least once,
	// so the escalation rate survives later approval or closing.
	Escalated bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// TicketParams holds the customer-provided input for a new ticket.
type TicketParams struct {
	CustomerName  string
	CustomerEmail string
	Subject       string
	Message       string
	OrderID       *string
}

// NewTicket is a factory function to create a valid new ticket in the
// initial "new" status. No pipeline fields are set yet.
func NewTicket(params TicketParams) (*Ticket, error) {
	if strings.TrimSpace(params.CustomerName) == "" {
		return nil, apperrors.ErrCustomerNameRequired
	}
	if strings.TrimSpace(params.CustomerEmail) == "" {
		return nil, apperrors.ErrCustomerEmailRequired
	}
	if !emailRegex.MatchString(params.CustomerEmail) {
		return nil, apperrors.ErrEmailInvalid
	}
	if strings.TrimSpace(params.Subject) == "" {
		return nil, apperrors.ErrSubjectRequired
	}
	if len(params.Subject) > MaxSubjectLength {
		return nil, apperrors.ErrSubjectTooLong
	}
	if strings.TrimSpace(params.Message) == "" {
		return nil, apperrors.ErrMessageRequired
	}
	if len(params.Message) > MaxMessageLength {
		return nil, apperrors.ErrMessageTooLong
	}

	return &Ticket{
		ID:            uuid.New(),
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		Subject:       params.Subject,
		Message:       params.Message,
		OrderID:       params.OrderID,
		Status:        StatusNew,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// validTransitions defines the lifecycle state machine. A ticket can never
// jump from "new" straight to a terminal state.
var validTransitions = map[TicketStatus][]TicketStatus{
	StatusNew:          {StatusInProgress},
	StatusInProgress:   {StatusWaitingHuman, StatusResolved},
	StatusWaitingHuman: {StatusResolved},
	StatusResolved:     {StatusClosed},
	StatusClosed:       {},
}

func (t *Ticket) canTransition(to TicketStatus) bool {
	for _, s := range validTransitions[t.Status] {
		if s == to {
			return true
		}
	}
	return false
}

func (t *Ticket) transition(to TicketStatus) error {
	if !t.canTransition(to) {
		return apperrors.ErrInvalidStatusTransition
	}
	t.Status = to
	t.touch()
	return nil
}

func (t *Ticket) touch() {
	now := time.Now().UTC()
	t.UpdatedAt = &now
}

// BeginProcessing marks the ticket as picked up by the pipeline.
func (t *Ticket) BeginProcessing() error {
	return t.transition(StatusInProgress)
}

// CompleteProcessing applies the pipeline's terminal automated decision.
// When no human review is required, the drafted response is auto-approved;
// completing without a draft in that case is a bug and rejected.
func (t *Ticket) CompleteProcessing(requiresHuman bool) error {
	if requiresHuman {
		if err := t.transition(StatusWaitingHuman); err != nil {
			return err
		}
		t.Escalated = true
		return nil
	}
	if t.AIResponse == nil {
		return apperrors.ErrNoDraftedResponse
	}
	if err := t.transition(StatusResolved); err != nil {
		return err
	}
	t.ResponseApproved = true
	return nil
}

// ApproveResponse is the human-approval gate: a reviewer accepts the drafted
// response of a ticket waiting for review. Approval without a draft is a
// signalled error, never a silent no-op.
func (t *Ticket) ApproveResponse() error {
	if t.Status != StatusWaitingHuman {
		return apperrors.ErrInvalidStatusTransition
	}
	if t.AIResponse == nil {
		return apperrors.ErrNoDraftedResponse
	}
	if err := t.transition(StatusResolved); err != nil {
		return err
	}
	t.ResponseApproved = true
	return nil
}

// Close is the explicit administrative close action. Closing an already
// closed ticket is a no-op.
func (t *Ticket) Close() error {
	if t.Status == StatusClosed {
		return nil
	}
	if t.Status != StatusResolved {
		return apperrors.ErrInvalidStatusTransition
	}
	return t.transition(StatusClosed)
}

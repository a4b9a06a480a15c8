package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lorrc/support-agents-backend/internal/adapters/primary/validation"
	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

const maxTicketsPerPage = 100

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	ticketService ports.TicketService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	ticketService ports.TicketService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints. submitMiddleware
// wraps only the submission route, which is the expensive one: every accepted
// submission runs the full agent pipeline.
func (h *TicketHandler) RegisterRoutes(r chi.Router, submitMiddleware ...func(http.Handler) http.Handler) {
	r.Get("/", h.HandleListTickets)
	r.With(submitMiddleware...).Post("/", h.HandleSubmitTicket)

	r.Get("/number/{ticketNumber}", h.HandleGetTicketByNumber)

	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Patch("/", h.HandleUpdateTicket)
		r.Post("/close", h.HandleCloseTicket)
		r.Delete("/", h.HandleDeleteTicket)
	})
}

// --- Request/Response DTOs ---

// SubmitTicketRequest defines the expected JSON body for submitting a ticket
type SubmitTicketRequest struct {
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	Subject       string  `json:"subject"`
	Message       string  `json:"message"`
	OrderID       *string `json:"order_id,omitempty"`
}

// Validate validates the submit ticket request
func (r *SubmitTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("customer_name", r.CustomerName).
		MaxLength("customer_name", r.CustomerName, 255)

	v.Required("customer_email", r.CustomerEmail).
		Email("customer_email", r.CustomerEmail)

	v.Required("subject", r.Subject).
		MaxLength("subject", r.Subject, domain.MaxSubjectLength)

	v.Required("message", r.Message).
		MaxLength("message", r.Message, domain.MaxMessageLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateTicketRequest defines the JSON body for PATCH /tickets/{ticketID}.
// The only supported mutation is approving the drafted response; status may
// accompany it but only as "resolved", the status approval produces anyway.
type UpdateTicketRequest struct {
	ResponseApproved *bool   `json:"response_approved"`
	Status           *string `json:"status"`
}

// Validate rejects everything except the approval mutation.
func (r *UpdateTicketRequest) Validate() error {
	if r.ResponseApproved == nil || !*r.ResponseApproved {
		return apperrors.ErrUnsupportedUpdate
	}
	if r.Status != nil && *r.Status != string(domain.StatusResolved) {
		return apperrors.ErrUnsupportedUpdate
	}
	return nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID               string   `json:"id"`
	Number           string   `json:"ticket_number"`
	CustomerName     string   `json:"customer_name"`
	CustomerEmail    string   `json:"customer_email"`
	Subject          string   `json:"subject"`
	Message          string   `json:"message"`
	OrderID          *string  `json:"order_id"`
	Intent           *string  `json:"intent"`
	Priority         *string  `json:"priority"`
	Confidence       *float64 `json:"confidence"`
	Status           string   `json:"status"`
	AIResponse       *string  `json:"ai_response"`
	ResponseApproved bool     `json:"response_approved"`
	Escalated        bool     `json:"escalated"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        *string  `json:"updated_at"`
}

// TraceDTO defines the JSON response for one trace ledger entry.
type TraceDTO struct {
	ID              string         `json:"id"`
	StepNumber      int            `json:"step_number"`
	AgentName       string         `json:"agent_name"`
	ExecutionTimeMs int64          `json:"execution_time_ms"`
	Confidence      *float64       `json:"confidence"`
	Reasoning       string         `json:"reasoning"`
	ToolsUsed       []string       `json:"tools_used"`
	Output          map[string]any `json:"output"`
	CreatedAt       string         `json:"created_at"`
}

// TicketDetailResponse pairs a ticket with its full trace ledger.
type TicketDetailResponse struct {
	Ticket TicketDTO  `json:"ticket"`
	Traces []TraceDTO `json:"agent_traces"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	var priority *string
	if ticket.Priority != nil {
		value := string(*ticket.Priority)
		priority = &value
	}
	var updatedAt *string
	if ticket.UpdatedAt != nil {
		value := ticket.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	return TicketDTO{
		ID:               ticket.ID.String(),
		Number:           ticket.Number,
		CustomerName:     ticket.CustomerName,
		CustomerEmail:    ticket.CustomerEmail,
		Subject:          ticket.Subject,
		Message:          ticket.Message,
		OrderID:          ticket.OrderID,
		Intent:           ticket.Intent,
		Priority:         priority,
		Confidence:       ticket.Confidence,
		Status:           string(ticket.Status),
		AIResponse:       ticket.AIResponse,
		ResponseApproved: ticket.ResponseApproved,
		Escalated:        ticket.Escalated,
		CreatedAt:        ticket.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        updatedAt,
	}
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, toTicketDTO(ticket))
	}
	return response
}

func toTraceDTOs(traces []*domain.AgentTrace) []TraceDTO {
	response := make([]TraceDTO, 0, len(traces))
	for _, tr := range traces {
		tools := tr.ToolsUsed
		if tools == nil {
			tools = []string{}
		}
		response = append(response, TraceDTO{
			ID:              tr.ID.String(),
			StepNumber:      tr.StepNumber,
			AgentName:       string(tr.AgentName),
			ExecutionTimeMs: tr.ExecutionTimeMs,
			Confidence:      tr.Confidence,
			Reasoning:       tr.Reasoning,
			ToolsUsed:       tools,
			Output:          tr.Output,
			CreatedAt:       tr.CreatedAt.Format(time.RFC3339),
		})
	}
	return response
}

// --- Handlers ---

// HandleSubmitTicket handles POST /tickets. The agent pipeline runs
// synchronously; the response carries the ticket in its final status.
func (h *TicketHandler) HandleSubmitTicket(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[SubmitTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.Submit(r.Context(), ports.SubmitTicketParams{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Subject:       req.Subject,
		Message:       req.Message,
		OrderID:       req.OrderID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket processed",
		"ticket_id", ticket.ID,
		"ticket_number", ticket.Number,
		"status", ticket.Status,
	)

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	pagination := validation.ParsePagination(r, maxTicketsPerPage)

	var status *domain.TicketStatus
	if raw := validation.ParseStringQueryParam(r, "status"); raw != nil {
		s := domain.TicketStatus(*raw)
		if !domain.ValidStatus(s) {
			v := validation.NewValidator()
			v.Custom("status", false, "Must be one of: new, in_progress, waiting_human, resolved, closed")
			h.errorHandler.Handle(w, r, v.Errors())
			return
		}
		status = &s
	}

	tickets, err := h.ticketService.ListTickets(r.Context(), ports.ListTicketsParams{
		Status: status,
		Limit:  pagination.Limit,
		Offset: pagination.Offset,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toTicketDTOs(tickets))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, traces, err := h.ticketService.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, TicketDetailResponse{
		Ticket: toTicketDTO(ticket),
		Traces: toTraceDTOs(traces),
	})
}

// HandleGetTicketByNumber handles GET /tickets/number/{ticketNumber}
func (h *TicketHandler) HandleGetTicketByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "ticketNumber")
	if number == "" {
		v := validation.NewValidator()
		v.Custom("ticketNumber", false, "Ticket number is required")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	ticket, traces, err := h.ticketService.GetTicketByNumber(r.Context(), number)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, TicketDetailResponse{
		Ticket: toTicketDTO(ticket),
		Traces: toTraceDTOs(traces),
	})
}

// HandleUpdateTicket handles PATCH /tickets/{ticketID}. Approving the
// drafted response is the only mutation a human reviewer can make.
func (h *TicketHandler) HandleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.ApproveResponse(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("response approved",
		"ticket_id", ticketID,
		"ticket_number", ticket.Number,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleCloseTicket handles POST /tickets/{ticketID}/close
func (h *TicketHandler) HandleCloseTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.CloseTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleDeleteTicket handles DELETE /tickets/{ticketID}
func (h *TicketHandler) HandleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.ticketService.DeleteTicket(r.Context(), ticketID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket deleted", "ticket_id", ticketID)
	WriteNoContent(w)
}

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (uuid.UUID, error) {
	ticketIDStr := chi.URLParam(r, "ticketID")
	ticketID, err := uuid.Parse(ticketIDStr)
	if err != nil {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Must be a valid UUID")
		return uuid.Nil, v.Errors()
	}
	return ticketID, nil
}

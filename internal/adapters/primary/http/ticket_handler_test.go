package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/mocks"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTicketRouter(svc ports.TicketService) chi.Router {
	errorHandler := NewErrorHandler(testLogger())
	handler := NewTicketHandler(svc, errorHandler, testLogger())

	r := chi.NewRouter()
	r.Route("/tickets", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return r
}

func resolvedTicket() *domain.Ticket {
	intent := "shipping_inquiry"
	priority := domain.PriorityMedium
	confidence := 0.82
	response := "Hi Jane, your package is on the way."
	return &domain.Ticket{
		ID:               uuid.New(),
		Number:           "TKT-000001",
		CustomerName:     "Jane Doe",
		CustomerEmail:    "jane@example.com",
		Subject:          "Where is my package?",
		Message:          "No tracking update for a week.",
		Intent:           &intent,
		Priority:         &priority,
		Confidence:       &confidence,
		Status:           domain.StatusResolved,
		AIResponse:       &response,
		ResponseApproved: true,
	}
}

func TestHandleSubmitTicket(t *testing.T) {
	t.Run("valid submission returns the processed ticket", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		ticket := resolvedTicket()
		svc.On("Submit", mock.Anything, mock.MatchedBy(func(p ports.SubmitTicketParams) bool {
			return p.CustomerEmail == "jane@example.com" && p.Subject == "Where is my package?"
		})).Return(ticket, nil)

		body := []byte(`{
			"customer_name": "Jane Doe",
			"customer_email": "jane@example.com",
			"subject": "Where is my package?",
			"message": "No tracking update for a week."
		}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/tickets", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusCreated, recorder.Code)

		var dto TicketDTO
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dto))
		assert.Equal(t, "TKT-000001", dto.Number)
		assert.Equal(t, "resolved", dto.Status)
		require.NotNil(t, dto.AIResponse)
		svc.AssertExpectations(t)
	})

	t.Run("missing fields fail validation before the service", func(t *testing.T) {
		svc := mocks.NewMockTicketService()

		body := []byte(`{"customer_name": "Jane Doe"}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/tickets", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

		var response ValidationErrorResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Contains(t, response.Fields, "customer_email")
		assert.Contains(t, response.Fields, "subject")
		assert.Contains(t, response.Fields, "message")
		svc.AssertNotCalled(t, "Submit")
	})

	t.Run("bad email fails validation", func(t *testing.T) {
		svc := mocks.NewMockTicketService()

		body := []byte(`{
			"customer_name": "Jane Doe",
			"customer_email": "not-an-email",
			"subject": "Help",
			"message": "Help me."
		}`)
		req := httptest.NewRequest(stdhttp.MethodPost, "/tickets", bytes.NewReader(body))
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		svc.AssertNotCalled(t, "Submit")
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		svc := mocks.NewMockTicketService()

		req := httptest.NewRequest(stdhttp.MethodPost, "/tickets", strings.NewReader("{not json"))
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
	})
}

func TestHandleListTickets(t *testing.T) {
	t.Run("returns the ticket list", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		svc.On("ListTickets", mock.Anything, ports.ListTicketsParams{Limit: 25}).
			Return([]*domain.Ticket{resolvedTicket()}, nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/tickets", nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var response struct {
			Data  []TicketDTO `json:"data"`
			Count int         `json:"count"`
		}
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Equal(t, 1, response.Count)
		require.Len(t, response.Data, 1)
		assert.Equal(t, "TKT-000001", response.Data[0].Number)
	})

	t.Run("passes the status filter through", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		waiting := domain.StatusWaitingHuman
		svc.On("ListTickets", mock.Anything, ports.ListTicketsParams{Status: &waiting, Limit: 10, Offset: 5}).
			Return([]*domain.Ticket{}, nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/tickets?status=waiting_human&limit=10&offset=5", nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		svc := mocks.NewMockTicketService()

		req := httptest.NewRequest(stdhttp.MethodGet, "/tickets?status=bogus", nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		svc.AssertNotCalled(t, "ListTickets")
	})
}

func TestHandleGetTicket(t *testing.T) {
	t.Run("returns ticket with its trace ledger", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		ticket := resolvedTicket()
		confidence := 0.9
		traces := []*domain.AgentTrace{
			{ID: uuid.New(), TicketID: ticket.ID, StepNumber: 1, AgentName: domain.AgentTriage, Confidence: &confidence, Reasoning: "classified"},
			{ID: uuid.New(), TicketID: ticket.ID, StepNumber: 2, AgentName: domain.AgentResearch, Confidence: &confidence, ToolsUsed: []string{"search_knowledge_base"}},
		}
		svc.On("GetTicket", mock.Anything, ticket.ID).Return(ticket, traces, nil)

		req := httptest.NewRequest(stdhttp.MethodGet, "/tickets/"+ticket.ID.String(), nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var response TicketDetailResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Equal(t, ticket.ID.String(), response.Ticket.ID)
		require.Len(t, response.Traces, 2)
		assert.Equal(t, 1, response.Traces[0].StepNumber)
		assert.Equal(t, "triage", response.Traces[0].AgentName)
		assert.Contains(t, response.Traces[1].ToolsUsed, "search_knowledge_base")
	})

	t.Run("unknown ticket is 404", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		ticketID := uuid.New()
		svc.On("GetTicket", mock.Anything, ticketID).Return(nil, nil, apperrors.ErrTicketNotFound)

		req := httptest.NewRequest(stdhttp.MethodGet, "/tickets/"+ticketID.String(), nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusNotFound, recorder.Code)

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Equal(t, "TICKET_NOT_FOUND", response.Code)
	})

	t.Run("malformed id is rejected", func(t *testing.T) {
		svc := mocks.NewMockTicketService()

		req := httptest.NewRequest(stdhttp.MethodGet, "/tickets/not-a-uuid", nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		svc.AssertNotCalled(t, "GetTicket")
	})
}

func TestHandleGetTicketByNumber(t *testing.T) {
	svc := mocks.NewMockTicketService()
	ticket := resolvedTicket()
	svc.On("GetTicketByNumber", mock.Anything, "TKT-000001").Return(ticket, []*domain.AgentTrace{}, nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/tickets/number/TKT-000001", nil)
	recorder := httptest.NewRecorder()

	newTicketRouter(svc).ServeHTTP(recorder, req)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response TicketDetailResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "TKT-000001", response.Ticket.Number)
	assert.NotNil(t, response.Traces)
}

func TestHandleUpdateTicket(t *testing.T) {
	ticketID := uuid.New()

	t.Run("approves the drafted response", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		ticket := resolvedTicket()
		ticket.ID = ticketID
		svc.On("ApproveResponse", mock.Anything, ticketID).Return(ticket, nil)

		body := []byte(`{"response_approved": true}`)
		req := httptest.NewRequest(stdhttp.MethodPatch, "/tickets/"+ticketID.String(), bytes.NewReader(body))
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var dto TicketDTO
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dto))
		assert.True(t, dto.ResponseApproved)
		svc.AssertExpectations(t)
	})

	t.Run("approval may name the resolved status it produces", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		ticket := resolvedTicket()
		ticket.ID = ticketID
		svc.On("ApproveResponse", mock.Anything, ticketID).Return(ticket, nil)

		body := []byte(`{"response_approved": true, "status": "resolved"}`)
		req := httptest.NewRequest(stdhttp.MethodPatch, "/tickets/"+ticketID.String(), bytes.NewReader(body))
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects any other mutation", func(t *testing.T) {
		bodies := []string{
			`{}`,
			`{"response_approved": false}`,
			`{"status": "closed"}`,
			`{"response_approved": true, "status": "closed"}`,
			`{"response_approved": false, "status": "resolved"}`,
		}
		for _, body := range bodies {
			svc := mocks.NewMockTicketService()

			req := httptest.NewRequest(stdhttp.MethodPatch, "/tickets/"+ticketID.String(), strings.NewReader(body))
			recorder := httptest.NewRecorder()

			newTicketRouter(svc).ServeHTTP(recorder, req)

			require.Equal(t, stdhttp.StatusBadRequest, recorder.Code, "body %s", body)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
			assert.Equal(t, "UNSUPPORTED_UPDATE", response.Code)
			svc.AssertNotCalled(t, "ApproveResponse")
		}
	})

	t.Run("rejects bodies smuggling other fields alongside the approval", func(t *testing.T) {
		bodies := []string{
			`{"response_approved": true, "customer_name": "evil"}`,
			`{"response_approved": true, "status": "resolved", "escalated": false}`,
			`{"response_approved": true, "ai_response": "replaced"}`,
		}
		for _, body := range bodies {
			svc := mocks.NewMockTicketService()

			req := httptest.NewRequest(stdhttp.MethodPatch, "/tickets/"+ticketID.String(), strings.NewReader(body))
			recorder := httptest.NewRecorder()

			newTicketRouter(svc).ServeHTTP(recorder, req)

			require.Equal(t, stdhttp.StatusBadRequest, recorder.Code, "body %s", body)
			svc.AssertNotCalled(t, "ApproveResponse")
		}
	})

	t.Run("approval without a draft conflicts", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		svc.On("ApproveResponse", mock.Anything, ticketID).Return(nil, apperrors.ErrNoDraftedResponse)

		body := []byte(`{"response_approved": true}`)
		req := httptest.NewRequest(stdhttp.MethodPatch, "/tickets/"+ticketID.String(), bytes.NewReader(body))
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusConflict, recorder.Code)

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Equal(t, "NO_DRAFTED_RESPONSE", response.Code)
	})
}

func TestHandleCloseTicket(t *testing.T) {
	ticketID := uuid.New()

	t.Run("closes", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		ticket := resolvedTicket()
		ticket.ID = ticketID
		ticket.Status = domain.StatusClosed
		svc.On("CloseTicket", mock.Anything, ticketID).Return(ticket, nil)

		req := httptest.NewRequest(stdhttp.MethodPost, "/tickets/"+ticketID.String()+"/close", nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		var dto TicketDTO
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&dto))
		assert.Equal(t, "closed", dto.Status)
	})

	t.Run("invalid transition conflicts", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		svc.On("CloseTicket", mock.Anything, ticketID).Return(nil, apperrors.ErrInvalidStatusTransition)

		req := httptest.NewRequest(stdhttp.MethodPost, "/tickets/"+ticketID.String()+"/close", nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusConflict, recorder.Code)
	})
}

func TestHandleDeleteTicket(t *testing.T) {
	ticketID := uuid.New()

	t.Run("deletes", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		svc.On("DeleteTicket", mock.Anything, ticketID).Return(nil)

		req := httptest.NewRequest(stdhttp.MethodDelete, "/tickets/"+ticketID.String(), nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusNoContent, recorder.Code)
		assert.Empty(t, recorder.Body.Bytes())
	})

	t.Run("unknown ticket is 404", func(t *testing.T) {
		svc := mocks.NewMockTicketService()
		svc.On("DeleteTicket", mock.Anything, ticketID).Return(apperrors.ErrTicketNotFound)

		req := httptest.NewRequest(stdhttp.MethodDelete, "/tickets/"+ticketID.String(), nil)
		recorder := httptest.NewRecorder()

		newTicketRouter(svc).ServeHTTP(recorder, req)

		require.Equal(t, stdhttp.StatusNotFound, recorder.Code)
	})
}

package domain

import "github.com/google/uuid"

// EventType defines the type of real-time event.
type EventType string

const (
	EventTicketCreated  EventType = "TICKET_CREATED"
	EventStageCompleted EventType = "STAGE_COMPLETED"
	EventStatusUpdated  EventType = "STATUS_UPDATED"
)

// Event is the payload pushed to dashboard clients over WebSocket.
type Event struct {
	Type     EventType   `json:"type"`
	TicketID uuid.UUID   `json:"ticketId"`
	Payload  interface{} `json:"payload"`
}

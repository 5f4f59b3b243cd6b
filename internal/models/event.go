package models

import "time"

// EventType names a domain event published to the broker. It doubles as the queue name.
type EventType string

const (
	EventRequestAssigned  EventType = "repair.request.assigned"
	EventRequestCompleted EventType = "repair.request.completed"
)

// AssignmentEvent announces a change in who holds a repair request.
type AssignmentEvent struct {
	EventID            string    `json:"event_id"`
	Type               EventType `json:"type"`
	RequestID          int64     `json:"request_id"`
	TechnicianID       string    `json:"technician_id"`
	ActiveRequestCount int       `json:"active_request_count"`
	OccurredAt         time.Time `json:"occurred_at"`
}

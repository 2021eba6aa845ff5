package events

import (
	"time"

	"github.com/hallgren-labs/content-governance/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventContentCreated EventType = "content_created"
	EventContentUpdated EventType = "content_updated"
	EventContentDeleted EventType = "content_deleted"
	EventRequestDenied  EventType = "request_denied"
)

// Actor encapsulates actor metadata for an event. SubjectID is empty for
// anonymous callers; Fingerprint may stand in.
type Actor struct {
	SubjectID   string      `json:"subject_id,omitempty"`
	Role        domain.Role `json:"role,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
}

// Event represents a governance or content event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ResourceID string      `json:"resource_id,omitempty"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// ContentCreatedPayload payload.
type ContentCreatedPayload struct {
	Kind  domain.ContentKind `json:"kind"`
	Title string             `json:"title"`
}

// RequestDeniedPayload payload.
type RequestDeniedPayload struct {
	Reason domain.Reason `json:"reason"`
	Path   string        `json:"path"`
	Method string        `json:"method"`
}

package models

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventStatusChange       EventType = "status_change"
	EventConfirmation       EventType = "confirmation"
	EventInterviewScheduled EventType = "interview_scheduled"
	EventInterviewCompleted EventType = "interview_completed"
	EventAssessment         EventType = "assessment"
	EventOffer              EventType = "offer"
	EventRejection          EventType = "rejection"
	EventRequest            EventType = "request"
	EventFollowUp           EventType = "follow_up"
	EventOther              EventType = "other"
)

var validEventTypes = map[EventType]bool{
	EventStatusChange:       true,
	EventConfirmation:       true,
	EventInterviewScheduled: true,
	EventInterviewCompleted: true,
	EventAssessment:         true,
	EventOffer:              true,
	EventRejection:          true,
	EventRequest:            true,
	EventFollowUp:           true,
	EventOther:              true,
}

func IsValidEventType(t EventType) bool {
	return validEventTypes[t]
}

type EventSource string

const (
	SourceEmail  EventSource = "email"
	SourceManual EventSource = "manual"
	SourceSystem EventSource = "system"
)

// ApplicationEvent is an append-only timeline row. The application's current
// status always equals the new_status of its latest status_change event; both
// are written in the same transaction.
type ApplicationEvent struct {
	ID            string      `json:"id" db:"id"`
	ApplicationID string      `json:"application_id" db:"application_id"`
	UserID        string      `json:"user_id" db:"user_id"`
	EventType     EventType   `json:"event_type" db:"event_type"`
	Source        EventSource `json:"source" db:"source"`

	OldStatus *ApplicationStatus `json:"old_status,omitempty" db:"old_status"`
	NewStatus *ApplicationStatus `json:"new_status,omitempty" db:"new_status"`

	Summary    *string `json:"summary,omitempty" db:"summary"`
	RawContent *string `json:"raw_content,omitempty" db:"raw_content"`

	ActionRequired    bool       `json:"action_required" db:"action_required"`
	ActionDescription *string    `json:"action_description,omitempty" db:"action_description"`
	ActionDeadline    *time.Time `json:"action_deadline,omitempty" db:"action_deadline"`
	ActionCompleted   bool       `json:"action_completed" db:"action_completed"`

	AISuggestions json.RawMessage `json:"ai_suggestions,omitempty" db:"ai_suggestions"`

	EventDate *time.Time `json:"event_date,omitempty" db:"event_date"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

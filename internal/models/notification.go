package models

import (
	"time"
)

type NotificationCategory string

const (
	CategoryGeneral   NotificationCategory = "general"
	CategoryFollowUp  NotificationCategory = "follow_up"
	CategoryInterview NotificationCategory = "interview"
)

type Notification struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	Title    string               `json:"title" db:"title"`
	Message  string               `json:"message" db:"message"`
	Category NotificationCategory `json:"category" db:"category"`

	// ApplicationID is the structured dedup key for reminders; ActionURL is
	// the display link the frontend navigates to.
	ApplicationID *string `json:"application_id,omitempty" db:"application_id"`
	ActionURL     *string `json:"action_url,omitempty" db:"action_url"`

	IsRead    bool       `json:"is_read" db:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

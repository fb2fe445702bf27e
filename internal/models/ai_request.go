package models

import (
	"time"
)

type AITool string

const (
	ToolTailorResume AITool = "tailor_resume"
	ToolCoverLetter  AITool = "cover_letter"
	ToolATSChecklist AITool = "ats_checklist"
	ToolParseEmail   AITool = "parse_email"
)

type AIRequestStatus string

const (
	AIRequestProcessing AIRequestStatus = "processing"
	AIRequestSuccess    AIRequestStatus = "success"
	AIRequestError      AIRequestStatus = "error"
)

// AIRequest is the audit row written for every AI call. The quota tracker
// counts these rows inside the trailing 24h window.
type AIRequest struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	Tool         AITool          `json:"tool" db:"tool"`
	Status       AIRequestStatus `json:"status" db:"status"`
	Prompt       string          `json:"prompt" db:"prompt"`
	ResponseText *string         `json:"response_text,omitempty" db:"response_text"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	TokensUsed   *int            `json:"tokens_used,omitempty" db:"tokens_used"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

package ai

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

// ExtractedDate is one date the model pulled out of an email. Date is always
// a valid YYYY-MM-DD string; entries with malformed dates are dropped during
// decoding.
type ExtractedDate struct {
	Date        string  `json:"date"`
	Time        *string `json:"time,omitempty"`
	Description string  `json:"description,omitempty"`
	IsDeadline  bool    `json:"is_deadline"`
}

// Suggestions is the typed email-parse answer. Fields are normalized during
// decoding: unknown event types collapse to "other", unknown statuses to nil,
// confidence is clamped to [0, 1], malformed dates are silently removed.
type Suggestions struct {
	EventType         models.EventType          `json:"event_type"`
	Summary           string                    `json:"summary,omitempty"`
	SuggestedStatus   *models.ApplicationStatus `json:"suggested_status,omitempty"`
	Confidence        float64                   `json:"confidence"`
	ExtractedDates    []ExtractedDate           `json:"extracted_dates,omitempty"`
	KeyDetails        []string                  `json:"key_details,omitempty"`
	NextSteps         []string                  `json:"next_steps,omitempty"`
	ActionRequired    bool                      `json:"action_required"`
	ActionDescription *string                   `json:"action_description,omitempty"`
	ActionDeadline    *string                   `json:"action_deadline,omitempty"`
}

// DeadlineTime returns the action deadline as midnight UTC, or nil.
func (s *Suggestions) DeadlineTime() *time.Time {
	if s.ActionDeadline == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s.ActionDeadline)
	if err != nil {
		return nil
	}
	return &t
}

var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// DecodeSuggestions parses a chat-completion answer into Suggestions. Models
// occasionally wrap the JSON in prose or a markdown fence, so a failed
// top-level decode retries on the first braced block in the content.
func DecodeSuggestions(content string) (Suggestions, error) {
	var s Suggestions
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		block := jsonBlockPattern.FindString(content)
		if block == "" {
			return Suggestions{}, apperr.Upstream("AI returned non-JSON response", err)
		}
		if err := json.Unmarshal([]byte(block), &s); err != nil {
			return Suggestions{}, apperr.Upstream("AI returned invalid JSON structure", err)
		}
	}
	s.normalize()
	return s, nil
}

func (s *Suggestions) normalize() {
	if !models.IsValidEventType(s.EventType) {
		s.EventType = models.EventOther
	}
	if s.SuggestedStatus != nil && !models.IsValidStatus(*s.SuggestedStatus) {
		s.SuggestedStatus = nil
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	} else if s.Confidence > 1 {
		s.Confidence = 1
	}

	valid := s.ExtractedDates[:0]
	for _, d := range s.ExtractedDates {
		if _, err := time.Parse("2006-01-02", d.Date); err != nil {
			continue
		}
		valid = append(valid, d)
	}
	s.ExtractedDates = valid

	if s.ActionDeadline != nil {
		if _, err := time.Parse("2006-01-02", *s.ActionDeadline); err != nil {
			s.ActionDeadline = nil
		}
	}
}

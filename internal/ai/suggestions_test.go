package ai

import (
	"errors"
	"testing"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

func TestDecodeSuggestions(t *testing.T) {
	content := `{
		"event_type": "interview_scheduled",
		"summary": "Onsite interview confirmed for next Tuesday.",
		"suggested_status": "interview",
		"confidence": 0.92,
		"extracted_dates": [
			{"date": "2026-03-10", "time": "14:00", "description": "onsite interview", "is_deadline": false}
		],
		"action_required": true,
		"action_description": "Confirm attendance",
		"action_deadline": "2026-03-08"
	}`

	s, err := DecodeSuggestions(content)
	if err != nil {
		t.Fatalf("DecodeSuggestions: %v", err)
	}
	if s.EventType != models.EventInterviewScheduled {
		t.Errorf("event_type = %s, want interview_scheduled", s.EventType)
	}
	if s.SuggestedStatus == nil || *s.SuggestedStatus != models.StatusInterview {
		t.Errorf("suggested_status = %v, want interview", s.SuggestedStatus)
	}
	if len(s.ExtractedDates) != 1 || s.ExtractedDates[0].Date != "2026-03-10" {
		t.Errorf("extracted_dates = %v", s.ExtractedDates)
	}
	if s.DeadlineTime() == nil {
		t.Error("deadline not parsed")
	}
}

func TestDecodeSuggestionsWrappedInProse(t *testing.T) {
	content := "Here is the analysis you asked for:\n```json\n" +
		`{"event_type": "rejection", "suggested_status": "rejected", "confidence": 0.8}` +
		"\n```\nLet me know if you need more."

	s, err := DecodeSuggestions(content)
	if err != nil {
		t.Fatalf("DecodeSuggestions: %v", err)
	}
	if s.EventType != models.EventRejection {
		t.Errorf("event_type = %s, want rejection", s.EventType)
	}
}

func TestDecodeSuggestionsNonJSON(t *testing.T) {
	_, err := DecodeSuggestions("I could not classify this email.")
	var uerr *apperr.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want upstream error", err)
	}
	if uerr.Unavailable {
		t.Error("bad payload must map to 502, not 503")
	}
}

func TestDecodeSuggestionsDropsMalformedDates(t *testing.T) {
	content := `{
		"event_type": "assessment",
		"confidence": 0.7,
		"extracted_dates": [
			{"date": "2026-03-10", "description": "deadline", "is_deadline": true},
			{"date": "next Friday", "description": "vague", "is_deadline": false},
			{"date": "03/10/2026", "description": "us format", "is_deadline": false}
		],
		"action_deadline": "tomorrow"
	}`

	s, err := DecodeSuggestions(content)
	if err != nil {
		t.Fatalf("DecodeSuggestions: %v", err)
	}
	if len(s.ExtractedDates) != 1 {
		t.Fatalf("extracted_dates kept = %d, want 1", len(s.ExtractedDates))
	}
	if s.ExtractedDates[0].Date != "2026-03-10" {
		t.Errorf("kept date = %s, want 2026-03-10", s.ExtractedDates[0].Date)
	}
	if s.ActionDeadline != nil {
		t.Errorf("malformed action_deadline kept: %v", *s.ActionDeadline)
	}
}

func TestDecodeSuggestionsNormalizesUnknowns(t *testing.T) {
	content := `{"event_type": "spam", "suggested_status": "archived", "confidence": 1.4}`

	s, err := DecodeSuggestions(content)
	if err != nil {
		t.Fatalf("DecodeSuggestions: %v", err)
	}
	if s.EventType != models.EventOther {
		t.Errorf("event_type = %s, want other", s.EventType)
	}
	if s.SuggestedStatus != nil {
		t.Errorf("suggested_status = %v, want nil", s.SuggestedStatus)
	}
	if s.Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", s.Confidence)
	}
}

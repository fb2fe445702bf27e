package models

import (
	"time"
)

type ApplicationStatus string

const (
	StatusSaved     ApplicationStatus = "saved"
	StatusApplied   ApplicationStatus = "applied"
	StatusInterview ApplicationStatus = "interview"
	StatusOffer     ApplicationStatus = "offer"
	StatusRejected  ApplicationStatus = "rejected"
)

var validStatuses = map[ApplicationStatus]bool{
	StatusSaved:     true,
	StatusApplied:   true,
	StatusInterview: true,
	StatusOffer:     true,
	StatusRejected:  true,
}

func IsValidStatus(s ApplicationStatus) bool {
	return validStatuses[s]
}

type Application struct {
	ID     string            `json:"id" db:"id"`
	UserID string            `json:"user_id" db:"user_id"`
	Status ApplicationStatus `json:"status" db:"status"`

	Company  string `json:"company" db:"company"`
	JobTitle string `json:"job_title" db:"job_title"`

	Location       *string `json:"location,omitempty" db:"location"`
	JobURL         *string `json:"job_url,omitempty" db:"job_url"`
	JobDescription *string `json:"job_description,omitempty" db:"job_description"`
	SalaryRange    *string `json:"salary_range,omitempty" db:"salary_range"`
	Notes          *string `json:"notes,omitempty" db:"notes"`

	RecruiterName  *string `json:"recruiter_name,omitempty" db:"recruiter_name"`
	RecruiterEmail *string `json:"recruiter_email,omitempty" db:"recruiter_email"`
	RecruiterPhone *string `json:"recruiter_phone,omitempty" db:"recruiter_phone"`

	AppliedAt     *time.Time `json:"applied_at,omitempty" db:"applied_at"`
	InterviewDate *time.Time `json:"interview_date,omitempty" db:"interview_date"`
	FollowUpDate  *time.Time `json:"follow_up_date,omitempty" db:"follow_up_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

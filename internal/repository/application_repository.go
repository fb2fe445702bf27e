package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

type CreateApplicationParams struct {
	Company        string
	JobTitle       string
	Status         models.ApplicationStatus
	Location       *string
	JobURL         *string
	JobDescription *string
	SalaryRange    *string
	Notes          *string
	RecruiterName  *string
	RecruiterEmail *string
	RecruiterPhone *string
	AppliedAt      *time.Time
	InterviewDate  *time.Time
	FollowUpDate   *time.Time
}

type ApplicationRepository interface {
	// Create inserts the application and its initial status event in one
	// transaction.
	Create(ctx context.Context, userID string, params CreateApplicationParams) (models.Application, models.ApplicationEvent, error)
	Get(ctx context.Context, userID, id string) (models.Application, error)
	List(ctx context.Context, userID string, status *models.ApplicationStatus, limit, offset int) ([]models.Application, error)
	// Update persists the mutable non-status columns of app.
	Update(ctx context.Context, app models.Application) (models.Application, error)
	// TransitionStatus updates the status column and appends the matching
	// status_change event atomically. A no-op transition (new == current)
	// returns the unchanged application and a nil event.
	TransitionStatus(ctx context.Context, userID, id string, newStatus models.ApplicationStatus, source models.EventSource) (models.Application, *models.ApplicationEvent, error)
	Delete(ctx context.Context, userID, id string) error

	// Sweep queries scan across all users.
	DueFollowUps(ctx context.Context, from, to time.Time) ([]models.Application, error)
	UpcomingInterviews(ctx context.Context, from, to time.Time) ([]models.Application, error)
	StaleApplications(ctx context.Context, updatedBefore time.Time) ([]models.Application, error)

	// Dashboard queries.
	CountByStatus(ctx context.Context, userID string) (map[models.ApplicationStatus]int, error)
	CountCreatedSince(ctx context.Context, userID string, since time.Time, status models.ApplicationStatus) (int, error)
	UpcomingFollowUps(ctx context.Context, userID string, from, to time.Time, limit int) ([]models.Application, error)
}

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

const applicationColumns = `
	id, user_id, company, job_title, status,
	location, job_url, job_description, salary_range, notes,
	recruiter_name, recruiter_email, recruiter_phone,
	applied_at, interview_date, follow_up_date,
	created_at, updated_at`

func (r *applicationRepository) Create(ctx context.Context, userID string, params CreateApplicationParams) (models.Application, models.ApplicationEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Application{}, models.ApplicationEvent{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const insertApp = `
		INSERT INTO applications (
			user_id, company, job_title, status,
			location, job_url, job_description, salary_range, notes,
			recruiter_name, recruiter_email, recruiter_phone,
			applied_at, interview_date, follow_up_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING` + applicationColumns

	app, err := scanApplication(tx.QueryRowContext(ctx, insertApp,
		userID, params.Company, params.JobTitle, params.Status,
		params.Location, params.JobURL, params.JobDescription, params.SalaryRange, params.Notes,
		params.RecruiterName, params.RecruiterEmail, params.RecruiterPhone,
		params.AppliedAt, params.InterviewDate, params.FollowUpDate,
	))
	if err != nil {
		return models.Application{}, models.ApplicationEvent{}, err
	}

	event, err := insertStatusEvent(ctx, tx, app, nil, app.Status, models.SourceManual)
	if err != nil {
		return models.Application{}, models.ApplicationEvent{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Application{}, models.ApplicationEvent{}, fmt.Errorf("commit transaction: %w", err)
	}
	return app, event, nil
}

func (r *applicationRepository) Get(ctx context.Context, userID, id string) (models.Application, error) {
	const query = `
		SELECT` + applicationColumns + `
		FROM applications
		WHERE id = $1 AND user_id = $2`

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Application{}, apperr.ErrNotFound
		}
		return models.Application{}, err
	}
	return app, nil
}

func (r *applicationRepository) List(ctx context.Context, userID string, status *models.ApplicationStatus, limit, offset int) ([]models.Application, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT` + applicationColumns + `
		FROM applications
		WHERE user_id = $1`
	args := []interface{}{userID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	return r.queryApplications(ctx, query, args...)
}

func (r *applicationRepository) Update(ctx context.Context, app models.Application) (models.Application, error) {
	const query = `
		UPDATE applications
		SET company = $3, job_title = $4,
		    location = $5, job_url = $6, job_description = $7, salary_range = $8, notes = $9,
		    recruiter_name = $10, recruiter_email = $11, recruiter_phone = $12,
		    applied_at = $13, interview_date = $14, follow_up_date = $15,
		    updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING` + applicationColumns

	updated, err := scanApplication(r.db.QueryRowContext(ctx, query,
		app.ID, app.UserID, app.Company, app.JobTitle,
		app.Location, app.JobURL, app.JobDescription, app.SalaryRange, app.Notes,
		app.RecruiterName, app.RecruiterEmail, app.RecruiterPhone,
		app.AppliedAt, app.InterviewDate, app.FollowUpDate,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Application{}, apperr.ErrNotFound
		}
		return models.Application{}, err
	}
	return updated, nil
}

func (r *applicationRepository) TransitionStatus(ctx context.Context, userID, id string, newStatus models.ApplicationStatus, source models.EventSource) (models.Application, *models.ApplicationEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Application{}, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const lockQuery = `
		SELECT` + applicationColumns + `
		FROM applications
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`

	app, err := scanApplication(tx.QueryRowContext(ctx, lockQuery, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Application{}, nil, apperr.ErrNotFound
		}
		return models.Application{}, nil, err
	}

	if app.Status == newStatus {
		return app, nil, nil
	}

	oldStatus := app.Status

	const updateQuery = `
		UPDATE applications
		SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING` + applicationColumns

	app, err = scanApplication(tx.QueryRowContext(ctx, updateQuery, id, userID, newStatus))
	if err != nil {
		return models.Application{}, nil, err
	}

	event, err := insertStatusEvent(ctx, tx, app, &oldStatus, newStatus, source)
	if err != nil {
		return models.Application{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return models.Application{}, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return app, &event, nil
}

func (r *applicationRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM applications WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *applicationRepository) DueFollowUps(ctx context.Context, from, to time.Time) ([]models.Application, error) {
	const query = `
		SELECT` + applicationColumns + `
		FROM applications
		WHERE follow_up_date IS NOT NULL
		  AND follow_up_date >= $1
		  AND follow_up_date < $2
		  AND status NOT IN ('rejected', 'offer')
		ORDER BY follow_up_date ASC`
	return r.queryApplications(ctx, query, from, to)
}

func (r *applicationRepository) UpcomingInterviews(ctx context.Context, from, to time.Time) ([]models.Application, error) {
	const query = `
		SELECT` + applicationColumns + `
		FROM applications
		WHERE interview_date IS NOT NULL
		  AND interview_date >= $1
		  AND interview_date <= $2
		  AND status = 'interview'
		ORDER BY interview_date ASC`
	return r.queryApplications(ctx, query, from, to)
}

func (r *applicationRepository) StaleApplications(ctx context.Context, updatedBefore time.Time) ([]models.Application, error) {
	const query = `
		SELECT` + applicationColumns + `
		FROM applications
		WHERE status = 'applied'
		  AND updated_at < $1
		ORDER BY updated_at ASC`
	return r.queryApplications(ctx, query, updatedBefore)
}

func (r *applicationRepository) CountByStatus(ctx context.Context, userID string) (map[models.ApplicationStatus]int, error) {
	const query = `
		SELECT status, COUNT(*)
		FROM applications
		WHERE user_id = $1
		GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.ApplicationStatus]int{
		models.StatusSaved:     0,
		models.StatusApplied:   0,
		models.StatusInterview: 0,
		models.StatusOffer:     0,
		models.StatusRejected:  0,
	}
	for rows.Next() {
		var status models.ApplicationStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *applicationRepository) CountCreatedSince(ctx context.Context, userID string, since time.Time, status models.ApplicationStatus) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM applications
		WHERE user_id = $1 AND created_at >= $2 AND status = $3`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, since, status).Scan(&count)
	return count, err
}

func (r *applicationRepository) UpcomingFollowUps(ctx context.Context, userID string, from, to time.Time, limit int) ([]models.Application, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`
		SELECT`+applicationColumns+`
		FROM applications
		WHERE user_id = $1
		  AND follow_up_date IS NOT NULL
		  AND follow_up_date >= $2
		  AND follow_up_date <= $3
		  AND status NOT IN ('rejected', 'offer')
		ORDER BY follow_up_date ASC
		LIMIT %d`, limit)
	return r.queryApplications(ctx, query, userID, from, to)
}

func (r *applicationRepository) queryApplications(ctx context.Context, query string, args ...interface{}) ([]models.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func insertStatusEvent(ctx context.Context, tx *sql.Tx, app models.Application, oldStatus *models.ApplicationStatus, newStatus models.ApplicationStatus, source models.EventSource) (models.ApplicationEvent, error) {
	const query = `
		INSERT INTO application_events (application_id, user_id, event_type, source, old_status, new_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	event := models.ApplicationEvent{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		EventType:     models.EventStatusChange,
		Source:        source,
		OldStatus:     oldStatus,
		NewStatus:     &newStatus,
	}
	err := tx.QueryRowContext(ctx, query,
		app.ID, app.UserID, event.EventType, event.Source, oldStatus, newStatus,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return models.ApplicationEvent{}, err
	}
	return event, nil
}

func scanApplication(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Application, error) {
	var (
		app                                         models.Application
		location, jobURL, jobDescription            sql.NullString
		salaryRange, notes                          sql.NullString
		recruiterName, recruiterEmail, recruiterTel sql.NullString
		appliedAt, interviewDate, followUpDate      sql.NullTime
	)
	if err := scanner.Scan(
		&app.ID,
		&app.UserID,
		&app.Company,
		&app.JobTitle,
		&app.Status,
		&location,
		&jobURL,
		&jobDescription,
		&salaryRange,
		&notes,
		&recruiterName,
		&recruiterEmail,
		&recruiterTel,
		&appliedAt,
		&interviewDate,
		&followUpDate,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return models.Application{}, err
	}

	app.Location = nullString(location)
	app.JobURL = nullString(jobURL)
	app.JobDescription = nullString(jobDescription)
	app.SalaryRange = nullString(salaryRange)
	app.Notes = nullString(notes)
	app.RecruiterName = nullString(recruiterName)
	app.RecruiterEmail = nullString(recruiterEmail)
	app.RecruiterPhone = nullString(recruiterTel)
	app.AppliedAt = nullTime(appliedAt)
	app.InterviewDate = nullTime(interviewDate)
	app.FollowUpDate = nullTime(followUpDate)
	return app, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

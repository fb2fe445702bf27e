package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

type CreateEventParams struct {
	ApplicationID     string
	UserID            string
	EventType         models.EventType
	Source            models.EventSource
	OldStatus         *models.ApplicationStatus
	NewStatus         *models.ApplicationStatus
	Summary           *string
	RawContent        *string
	ActionRequired    bool
	ActionDescription *string
	ActionDeadline    *time.Time
	AISuggestions     json.RawMessage
	EventDate         *time.Time

	// UpdateApplicationStatus, when non-nil, cascades a status change onto
	// the owning application inside the same transaction as the event
	// insert. OldStatus/NewStatus on the event are filled by the caller.
	UpdateApplicationStatus *models.ApplicationStatus
}

type UpdateEventParams struct {
	Summary           *string
	ActionRequired    *bool
	ActionDescription *string
	ActionDeadline    *time.Time
	ActionCompleted   *bool
	EventDate         *time.Time
}

type EventRepository interface {
	Create(ctx context.Context, params CreateEventParams) (models.ApplicationEvent, error)
	Get(ctx context.Context, userID, applicationID, eventID string) (models.ApplicationEvent, error)
	ListByApplication(ctx context.Context, userID, applicationID string) ([]models.ApplicationEvent, error)
	Update(ctx context.Context, userID, applicationID, eventID string, params UpdateEventParams) (models.ApplicationEvent, error)
	Delete(ctx context.Context, userID, applicationID, eventID string) error
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `
	id, application_id, user_id, event_type, source,
	old_status, new_status, summary, raw_content,
	action_required, action_description, action_deadline, action_completed,
	ai_suggestions, event_date, created_at`

func (r *eventRepository) Create(ctx context.Context, params CreateEventParams) (models.ApplicationEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ApplicationEvent{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if params.UpdateApplicationStatus != nil {
		const updateQuery = `
			UPDATE applications
			SET status = $3, updated_at = now()
			WHERE id = $1 AND user_id = $2`
		result, err := tx.ExecContext(ctx, updateQuery, params.ApplicationID, params.UserID, *params.UpdateApplicationStatus)
		if err != nil {
			return models.ApplicationEvent{}, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return models.ApplicationEvent{}, err
		}
		if rows == 0 {
			return models.ApplicationEvent{}, apperr.ErrNotFound
		}
	}

	var suggestions interface{}
	if len(params.AISuggestions) > 0 {
		suggestions = []byte(params.AISuggestions)
	}

	const insertQuery = `
		INSERT INTO application_events (
			application_id, user_id, event_type, source,
			old_status, new_status, summary, raw_content,
			action_required, action_description, action_deadline,
			ai_suggestions, event_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING` + eventColumns

	event, err := scanEvent(tx.QueryRowContext(ctx, insertQuery,
		params.ApplicationID, params.UserID, params.EventType, params.Source,
		params.OldStatus, params.NewStatus, params.Summary, params.RawContent,
		params.ActionRequired, params.ActionDescription, params.ActionDeadline,
		suggestions, params.EventDate,
	))
	if err != nil {
		return models.ApplicationEvent{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ApplicationEvent{}, fmt.Errorf("commit transaction: %w", err)
	}
	return event, nil
}

func (r *eventRepository) Get(ctx context.Context, userID, applicationID, eventID string) (models.ApplicationEvent, error) {
	const query = `
		SELECT` + eventColumns + `
		FROM application_events
		WHERE id = $1 AND application_id = $2 AND user_id = $3`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, eventID, applicationID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ApplicationEvent{}, apperr.ErrNotFound
		}
		return models.ApplicationEvent{}, err
	}
	return event, nil
}

func (r *eventRepository) ListByApplication(ctx context.Context, userID, applicationID string) ([]models.ApplicationEvent, error) {
	const query = `
		SELECT` + eventColumns + `
		FROM application_events
		WHERE application_id = $1 AND user_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, applicationID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ApplicationEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, userID, applicationID, eventID string, params UpdateEventParams) (models.ApplicationEvent, error) {
	const query = `
		UPDATE application_events
		SET summary = COALESCE($4, summary),
		    action_required = COALESCE($5, action_required),
		    action_description = COALESCE($6, action_description),
		    action_deadline = COALESCE($7, action_deadline),
		    action_completed = COALESCE($8, action_completed),
		    event_date = COALESCE($9, event_date)
		WHERE id = $1 AND application_id = $2 AND user_id = $3
		RETURNING` + eventColumns

	event, err := scanEvent(r.db.QueryRowContext(ctx, query,
		eventID, applicationID, userID,
		params.Summary, params.ActionRequired, params.ActionDescription,
		params.ActionDeadline, params.ActionCompleted, params.EventDate,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ApplicationEvent{}, apperr.ErrNotFound
		}
		return models.ApplicationEvent{}, err
	}
	return event, nil
}

func (r *eventRepository) Delete(ctx context.Context, userID, applicationID, eventID string) error {
	const query = `
		DELETE FROM application_events
		WHERE id = $1 AND application_id = $2 AND user_id = $3`

	result, err := r.db.ExecContext(ctx, query, eventID, applicationID, userID)
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

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (models.ApplicationEvent, error) {
	var (
		event                     models.ApplicationEvent
		oldStatus, newStatus      sql.NullString
		summary, rawContent       sql.NullString
		actionDescription         sql.NullString
		actionDeadline, eventDate sql.NullTime
		suggestionsRaw            []byte
	)
	if err := scanner.Scan(
		&event.ID,
		&event.ApplicationID,
		&event.UserID,
		&event.EventType,
		&event.Source,
		&oldStatus,
		&newStatus,
		&summary,
		&rawContent,
		&event.ActionRequired,
		&actionDescription,
		&actionDeadline,
		&event.ActionCompleted,
		&suggestionsRaw,
		&eventDate,
		&event.CreatedAt,
	); err != nil {
		return models.ApplicationEvent{}, err
	}

	if oldStatus.Valid {
		s := models.ApplicationStatus(oldStatus.String)
		event.OldStatus = &s
	}
	if newStatus.Valid {
		s := models.ApplicationStatus(newStatus.String)
		event.NewStatus = &s
	}
	event.Summary = nullString(summary)
	event.RawContent = nullString(rawContent)
	event.ActionDescription = nullString(actionDescription)
	event.ActionDeadline = nullTime(actionDeadline)
	event.EventDate = nullTime(eventDate)
	if len(suggestionsRaw) > 0 {
		event.AISuggestions = suggestionsRaw
	}
	return event, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

type AIRequestRepository interface {
	// CreateProcessing inserts the audit row before the provider call so the
	// attempt is counted against the quota even if the call fails.
	CreateProcessing(ctx context.Context, userID string, tool models.AITool, prompt string) (models.AIRequest, error)
	MarkSuccess(ctx context.Context, id, responseText string, tokensUsed *int) error
	MarkError(ctx context.Context, id, errorMessage string) error
	Get(ctx context.Context, userID, id string) (models.AIRequest, error)
	// CountSince counts a user's requests created at or after since.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type aiRequestRepository struct {
	db *sql.DB
}

func NewAIRequestRepository(db *sql.DB) AIRequestRepository {
	return &aiRequestRepository{db: db}
}

func (r *aiRequestRepository) CreateProcessing(ctx context.Context, userID string, tool models.AITool, prompt string) (models.AIRequest, error) {
	const query = `
		INSERT INTO ai_requests (user_id, tool, status, prompt)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	req := models.AIRequest{
		UserID: userID,
		Tool:   tool,
		Status: models.AIRequestProcessing,
		Prompt: prompt,
	}
	err := r.db.QueryRowContext(ctx, query, userID, tool, req.Status, prompt).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return models.AIRequest{}, err
	}
	return req, nil
}

func (r *aiRequestRepository) MarkSuccess(ctx context.Context, id, responseText string, tokensUsed *int) error {
	const query = `
		UPDATE ai_requests
		SET status = 'success', response_text = $2, tokens_used = $3
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, responseText, tokensUsed)
	return err
}

func (r *aiRequestRepository) MarkError(ctx context.Context, id, errorMessage string) error {
	const query = `
		UPDATE ai_requests
		SET status = 'error', error_message = $2
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, errorMessage)
	return err
}

func (r *aiRequestRepository) Get(ctx context.Context, userID, id string) (models.AIRequest, error) {
	const query = `
		SELECT id, user_id, tool, status, prompt, response_text, error_message, tokens_used, created_at
		FROM ai_requests
		WHERE id = $1 AND user_id = $2`

	var (
		req          models.AIRequest
		responseText sql.NullString
		errorMessage sql.NullString
		tokensUsed   sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&req.ID,
		&req.UserID,
		&req.Tool,
		&req.Status,
		&req.Prompt,
		&responseText,
		&errorMessage,
		&tokensUsed,
		&req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AIRequest{}, apperr.ErrNotFound
		}
		return models.AIRequest{}, err
	}

	req.ResponseText = nullString(responseText)
	req.ErrorMessage = nullString(errorMessage)
	if tokensUsed.Valid {
		n := int(tokensUsed.Int64)
		req.TokensUsed = &n
	}
	return req, nil
}

func (r *aiRequestRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM ai_requests
		WHERE user_id = $1 AND created_at >= $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&count)
	return count, err
}

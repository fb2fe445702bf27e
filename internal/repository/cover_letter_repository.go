package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

type CoverLetterRepository interface {
	Create(ctx context.Context, userID, title, content string, tone, applicationID *string) (models.CoverLetter, error)
	Get(ctx context.Context, userID, id string) (models.CoverLetter, error)
	List(ctx context.Context, userID string) ([]models.CoverLetter, error)
	Update(ctx context.Context, letter models.CoverLetter) (models.CoverLetter, error)
	Delete(ctx context.Context, userID, id string) error
}

type coverLetterRepository struct {
	db *sql.DB
}

func NewCoverLetterRepository(db *sql.DB) CoverLetterRepository {
	return &coverLetterRepository{db: db}
}

const coverLetterColumns = `
	id, user_id, application_id, title, content, tone, created_at, updated_at`

func (r *coverLetterRepository) Create(ctx context.Context, userID, title, content string, tone, applicationID *string) (models.CoverLetter, error) {
	const query = `
		INSERT INTO cover_letters (user_id, application_id, title, content, tone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING` + coverLetterColumns

	return scanCoverLetter(r.db.QueryRowContext(ctx, query, userID, applicationID, title, content, tone))
}

func (r *coverLetterRepository) Get(ctx context.Context, userID, id string) (models.CoverLetter, error) {
	const query = `
		SELECT` + coverLetterColumns + `
		FROM cover_letters
		WHERE id = $1 AND user_id = $2`

	letter, err := scanCoverLetter(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CoverLetter{}, apperr.ErrNotFound
		}
		return models.CoverLetter{}, err
	}
	return letter, nil
}

func (r *coverLetterRepository) List(ctx context.Context, userID string) ([]models.CoverLetter, error) {
	const query = `
		SELECT` + coverLetterColumns + `
		FROM cover_letters
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []models.CoverLetter
	for rows.Next() {
		letter, err := scanCoverLetter(rows)
		if err != nil {
			return nil, err
		}
		letters = append(letters, letter)
	}
	return letters, rows.Err()
}

func (r *coverLetterRepository) Update(ctx context.Context, letter models.CoverLetter) (models.CoverLetter, error) {
	const query = `
		UPDATE cover_letters
		SET title = $3, content = $4, tone = $5, application_id = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING` + coverLetterColumns

	updated, err := scanCoverLetter(r.db.QueryRowContext(ctx, query,
		letter.ID, letter.UserID, letter.Title, letter.Content, letter.Tone, letter.ApplicationID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CoverLetter{}, apperr.ErrNotFound
		}
		return models.CoverLetter{}, err
	}
	return updated, nil
}

func (r *coverLetterRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM cover_letters WHERE id = $1 AND user_id = $2`

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

func scanCoverLetter(scanner interface {
	Scan(dest ...interface{}) error
}) (models.CoverLetter, error) {
	var (
		letter        models.CoverLetter
		applicationID sql.NullString
		tone          sql.NullString
	)
	if err := scanner.Scan(
		&letter.ID,
		&letter.UserID,
		&applicationID,
		&letter.Title,
		&letter.Content,
		&tone,
		&letter.CreatedAt,
		&letter.UpdatedAt,
	); err != nil {
		return models.CoverLetter{}, err
	}
	letter.ApplicationID = nullString(applicationID)
	letter.Tone = nullString(tone)
	return letter, nil
}

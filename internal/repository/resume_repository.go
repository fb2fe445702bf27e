package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

type ResumeRepository interface {
	Create(ctx context.Context, userID, title, content string, skills []string, isPrimary bool) (models.Resume, error)
	Get(ctx context.Context, userID, id string) (models.Resume, error)
	List(ctx context.Context, userID string) ([]models.Resume, error)
	Update(ctx context.Context, resume models.Resume) (models.Resume, error)
	SetPrimary(ctx context.Context, userID, id string) (models.Resume, error)
	Delete(ctx context.Context, userID, id string) error
	// GetPreferred resolves the resume the AI tools should read: the primary
	// resume if one exists, otherwise the most recently created.
	GetPreferred(ctx context.Context, userID string) (models.Resume, error)
}

type resumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

const resumeColumns = `
	id, user_id, title, content, skills, is_primary, created_at, updated_at`

func (r *resumeRepository) Create(ctx context.Context, userID, title, content string, skills []string, isPrimary bool) (models.Resume, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Resume{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if isPrimary {
		if err := clearPrimaryResume(ctx, tx, userID); err != nil {
			return models.Resume{}, err
		}
	}

	const query = `
		INSERT INTO resumes (user_id, title, content, skills, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING` + resumeColumns

	resume, err := scanResume(tx.QueryRowContext(ctx, query, userID, title, content, pq.Array(skills), isPrimary))
	if err != nil {
		return models.Resume{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Resume{}, fmt.Errorf("commit transaction: %w", err)
	}
	return resume, nil
}

func (r *resumeRepository) Get(ctx context.Context, userID, id string) (models.Resume, error) {
	const query = `
		SELECT` + resumeColumns + `
		FROM resumes
		WHERE id = $1 AND user_id = $2`

	resume, err := scanResume(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Resume{}, apperr.ErrNotFound
		}
		return models.Resume{}, err
	}
	return resume, nil
}

func (r *resumeRepository) List(ctx context.Context, userID string) ([]models.Resume, error) {
	const query = `
		SELECT` + resumeColumns + `
		FROM resumes
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resumes []models.Resume
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	return resumes, rows.Err()
}

func (r *resumeRepository) Update(ctx context.Context, resume models.Resume) (models.Resume, error) {
	const query = `
		UPDATE resumes
		SET title = $3, content = $4, skills = $5, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING` + resumeColumns

	updated, err := scanResume(r.db.QueryRowContext(ctx, query,
		resume.ID, resume.UserID, resume.Title, resume.Content, pq.Array(resume.Skills),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Resume{}, apperr.ErrNotFound
		}
		return models.Resume{}, err
	}
	return updated, nil
}

func (r *resumeRepository) SetPrimary(ctx context.Context, userID, id string) (models.Resume, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Resume{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearPrimaryResume(ctx, tx, userID); err != nil {
		return models.Resume{}, err
	}

	const query = `
		UPDATE resumes
		SET is_primary = TRUE, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING` + resumeColumns

	resume, err := scanResume(tx.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Resume{}, apperr.ErrNotFound
		}
		return models.Resume{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Resume{}, fmt.Errorf("commit transaction: %w", err)
	}
	return resume, nil
}

func (r *resumeRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM resumes WHERE id = $1 AND user_id = $2`

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

func (r *resumeRepository) GetPreferred(ctx context.Context, userID string) (models.Resume, error) {
	const query = `
		SELECT` + resumeColumns + `
		FROM resumes
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at DESC
		LIMIT 1`

	resume, err := scanResume(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Resume{}, apperr.ErrNotFound
		}
		return models.Resume{}, err
	}
	return resume, nil
}

func clearPrimaryResume(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE resumes SET is_primary = FALSE WHERE user_id = $1 AND is_primary = TRUE`, userID)
	return err
}

func scanResume(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Resume, error) {
	var (
		resume models.Resume
		skills pq.StringArray
	)
	if err := scanner.Scan(
		&resume.ID,
		&resume.UserID,
		&resume.Title,
		&resume.Content,
		&skills,
		&resume.IsPrimary,
		&resume.CreatedAt,
		&resume.UpdatedAt,
	); err != nil {
		return models.Resume{}, err
	}
	resume.Skills = skills
	return resume, nil
}

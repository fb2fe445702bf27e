package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	TouchLastLogin(ctx context.Context, userID string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) CreateUser(ctx context.Context, email, password, firstName, lastName string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	const query = `
		INSERT INTO users (email, first_name, last_name, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err = u.db.QueryRowContext(ctx, query, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.IsActive).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (u *userRepository) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	const query = `
		SELECT id, email, first_name, last_name, password_hash, is_active, created_at, last_login_at
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`

	user, err := scanUser(u.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, errors.New("invalid credentials")
		}
		return models.User{}, err
	}

	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, errors.New("invalid credentials")
	}

	return user, nil
}

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT id, email, first_name, last_name, password_hash, is_active, created_at, last_login_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(u.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (u *userRepository) TouchLastLogin(ctx context.Context, userID string) error {
	const query = `
		UPDATE users
		SET last_login_at = now()
		WHERE id = $1 AND deleted_at IS NULL`
	_, err := u.db.ExecContext(ctx, query, userID)
	return err
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (models.User, error) {
	var (
		user        models.User
		lastLoginAt sql.NullTime
	)
	if err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&lastLoginAt,
	); err != nil {
		return models.User{}, err
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		user.LastLoginAt = &t
	}
	return user, nil
}

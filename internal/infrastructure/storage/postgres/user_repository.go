package postgres

import (
	"context"
	"errors"
	"fmt"

	"gophistory/internal/domain/user"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"
)

func NewUserRepository(db *Storage, log *slog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log.With(slog.String("component", "user_repository")),
	}
}

type UserRepository struct {
	db  *Storage
	log *slog.Logger
}

func (r *UserRepository) Create(ctx context.Context, login, passwordHash string) (int64, error) {
	var userID int64
	err := r.db.Pool().QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, user.ErrLoginTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return userID, nil
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (user.User, error) {
	var u user.User
	err := r.db.Pool().QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`, login).
		Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return u, user.ErrNotFound
		}
		return u, fmt.Errorf("select user: %w", err)
	}

	return u, nil
}

package session

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidSession = errors.New("invalid session")

// Repository хранит только хэши токенов
type Repository interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	// Validate возвращает ErrInvalidSession для неизвестного или истёкшего токена
	Validate(ctx context.Context, tokenHash string) (int64, error)
	Delete(ctx context.Context, tokenHash string) error
}

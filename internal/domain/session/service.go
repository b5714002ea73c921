package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

const DefaultTTL = 30 * 24 * time.Hour

type Servicer interface {
	Create(ctx context.Context, userID int64) (string, error)
	Validate(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

type Service struct {
	repo Repository
	log  *slog.Logger
	ttl  time.Duration
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "session_service")),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *Service) Create(ctx context.Context, userID int64) (string, error) {
	// Генерация токена
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(tokenBytes)

	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.Create(ctx, userID, hashToken(token), expiresAt); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	return token, nil
}

func (s *Service) Validate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidSession
	}

	return s.repo.Validate(ctx, hashToken(token))
}

// Revoke завершает сессию, неизвестный токен не считается ошибкой
func (s *Service) Revoke(ctx context.Context, token string) error {
	if err := s.repo.Delete(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Register(ctx context.Context, login, password string) (int64, error)
	Authenticate(ctx context.Context, login, password string) (User, error)
}

type Service struct {
	repo      Repository
	validator Validator
	log       *slog.Logger
	open      bool
}

// NewService создаёт сервис учётных записей. open=false запрещает регистрацию.
func NewService(repo Repository, validator Validator, log *slog.Logger, open bool) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		log:       log.With(slog.String("component", "user_service")),
		open:      open,
	}
}

func (s *Service) Register(ctx context.Context, login, password string) (int64, error) {
	if !s.open {
		return 0, ErrClosed
	}

	if err := s.validator.ValidateRegister(login, password); err != nil {
		s.log.Debug("validation failed", slog.String("login", login), slog.Any("error", err))
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.Create(ctx, login, string(hash))
	if err != nil {
		if errors.Is(err, ErrLoginTaken) {
			return 0, ErrLoginTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", slog.Int64("user_id", id))

	return id, nil
}

func (s *Service) Authenticate(ctx context.Context, login, password string) (User, error) {
	if err := s.validator.ValidateLogin(login); err != nil {
		return User{}, ErrInvalidAuth
	}

	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidAuth
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidAuth
	}

	return user, nil
}

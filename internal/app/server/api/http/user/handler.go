package user

import (
	"context"
	"errors"
	"net/http"

	"gophistory/internal/app/server/api/http/middleware/auth"
	"gophistory/internal/domain/session"
	"gophistory/internal/domain/user"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    user.Servicer
	session    session.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
	authed     huma.Middlewares
}

func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, middleware, authed huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		session:    session,
		log:        log,
		middleware: middleware,
		authed:     authed,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.logoutOp(), h.logout)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	userID, err := h.service.Register(ctx, input.Body.Login, input.Body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, user.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, user.ErrLoginTaken):
			status = http.StatusConflict
		case errors.Is(err, user.ErrClosed):
			status = http.StatusForbidden
		default:
			h.log.Error("register failed", slog.Any("error", err))
			err = errors.New("internal error")
		}

		return &registerOutput{
			Status: status,
			Body:   RegisterResponse{Status: "Error", Error: err.Error()},
		}, nil
	}

	return &registerOutput{
		Status: http.StatusOK,
		Body:   RegisterResponse{ID: userID, Status: "Ok"},
	}, nil
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body.Login, input.Body.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, user.ErrInvalidAuth) {
			h.log.Error("authenticate failed", slog.Any("error", err))
			status = http.StatusInternalServerError
		}

		return &loginOutput{
			Status: status,
			Body:   LoginResponse{Status: "Error", Error: "Invalid credentials"},
		}, nil
	}

	token, err := h.session.Create(ctx, u.ID)
	if err != nil {
		h.log.Error("create session failed", slog.Any("error", err))
		return &loginOutput{
			Status: http.StatusInternalServerError,
			Body:   LoginResponse{Status: "Error", Error: "internal error"},
		}, nil
	}

	return &loginOutput{
		Status: http.StatusOK,
		Body:   LoginResponse{Token: token, Status: "Ok"},
	}, nil
}

func (h *Handler) logout(ctx context.Context, input *logoutInput) (*logoutOutput, error) {
	token, ok := auth.BearerToken(input.Authorization)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if err := h.session.Revoke(ctx, token); err != nil {
		return nil, huma.Error500InternalServerError("revoke session", err)
	}

	return &logoutOutput{Body: LogoutResponse{Status: "Ok"}}, nil
}

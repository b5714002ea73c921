package sync

import (
	"context"

	"gophistory/internal/app/server/api/http/middleware/auth"
	"gophistory/internal/domain/record"
	domainsync "gophistory/internal/domain/sync"
	"gophistory/internal/version"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    domainsync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service domainsync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.statusOp(), h.status)
}

func (h *Handler) status(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	snapshot, err := h.service.Status(ctx, userID)
	if err != nil {
		h.log.Error("status failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, huma.Error500InternalServerError("status failed")
	}

	hosts := snapshot.Hosts
	if hosts == nil {
		hosts = record.NewStatus()
	}

	return &statusOutput{
		Body: StatusResponse{
			Status:   "Ok",
			Version:  version.Protocol,
			PageSize: snapshot.PageSize,
			Hosts:    hosts,
		},
	}, nil
}

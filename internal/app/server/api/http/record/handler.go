package record

import (
	"context"
	"errors"
	"net/http"

	"gophistory/internal/app/server/api/http/middleware/auth"
	"gophistory/internal/app/server/metrics"
	"gophistory/internal/domain/record"
	domainsync "gophistory/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const codeUnexpectedIdx = "unexpected_idx"

type Handler struct {
	service    domainsync.Servicer
	metrics    *metrics.Metrics
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service domainsync.Servicer, m *metrics.Metrics, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		metrics:    m,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.nextOp(), h.next)
	huma.Register(api, h.uploadOp(), h.upload)
}

func (h *Handler) next(ctx context.Context, input *nextInput) (*nextOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	records, err := h.service.Next(ctx, userID, record.HostID(input.Host), record.Tag(input.Tag), input.Start, input.Count)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, record.ErrOutOfRange), errors.Is(err, record.ErrInvalidRecord):
			status = http.StatusBadRequest
		default:
			h.log.Error("next failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		return &nextOutput{
			Status: status,
			Body:   ErrorResponse{Status: "Error", Error: err.Error()},
		}, nil
	}

	if h.metrics != nil {
		h.metrics.RecordsServed(len(records))
	}

	return &nextOutput{Status: http.StatusOK, Body: records}, nil
}

func (h *Handler) upload(ctx context.Context, input *uploadInput) (*uploadOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	res, err := h.service.Upload(ctx, userID, input.Body)
	if err != nil {
		return h.rejected(userID, err), nil
	}

	if h.metrics != nil {
		h.metrics.RecordsUploaded(res.Accepted)
	}

	return &uploadOutput{
		Status: http.StatusOK,
		Body:   UploadResponse{Status: "Ok", Accepted: res.Accepted},
	}, nil
}

func (h *Handler) rejected(userID int64, err error) *uploadOutput {
	out := &uploadOutput{
		Status: http.StatusBadRequest,
		Body:   UploadResponse{Status: "Error", Error: err.Error()},
	}
	reason := "invalid"

	var idxErr *record.UnexpectedIdxError
	switch {
	case errors.As(err, &idxErr):
		reason = codeUnexpectedIdx
		out.Status = http.StatusConflict
		out.Body.Code = codeUnexpectedIdx
		out.Body.Host = string(idxErr.Host)
		out.Body.Tag = string(idxErr.Tag)
		out.Body.Expected = idxErr.Expected
		out.Body.Got = idxErr.Got
	case errors.Is(err, domainsync.ErrBatchTooLarge):
		reason = "too_large"
		out.Status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domainsync.ErrEmptyBatch),
		errors.Is(err, record.ErrNotContiguous),
		errors.Is(err, record.ErrInvalidRecord):
	default:
		reason = "internal"
		out.Status = http.StatusInternalServerError
		out.Body.Error = "internal error"
		h.log.Error("upload failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	if h.metrics != nil {
		h.metrics.UploadRejected(reason)
	}

	return out
}

package client

import (
	"context"
	"fmt"

	"gophistory/internal/domain/record"
)

// RemoteStatus состояние relay с его точки зрения
type RemoteStatus struct {
	Version  string        `json:"version"`
	PageSize int           `json:"page_size"`
	Hosts    record.Status `json:"hosts"`
}

// Transport доступ движка синхронизации к relay
type Transport interface {
	Status(ctx context.Context) (*RemoteStatus, error)
	// Next возвращает записи потока начиная с start, не больше count
	Next(ctx context.Context, host record.HostID, tag record.Tag, start record.Idx, count int) ([]record.Record, error)
	// Upload отправляет пакет; UnexpectedIdxError если relay ждал другой idx
	Upload(ctx context.Context, records []record.Record) error
}

// APIError ответ relay с кодом 4xx, который не сводится к другим ошибкам
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay: status %d", e.Status)
	}
	return fmt.Sprintf("relay: %d %s", e.Status, e.Message)
}

package sync

import (
	"time"

	"gophistory/internal/domain/record"
)

// ServiceConfig ограничения relay на размер страниц и пакетов
type ServiceConfig struct {
	// PageSize максимум записей в ответе next
	PageSize int `json:"page_size"`
	// MaxBatchSize максимум записей в одном upload
	MaxBatchSize int `json:"max_batch_size"`
}

// StatusSnapshot состояние всех потоков пользователя на relay
type StatusSnapshot struct {
	Hosts    record.Status
	PageSize int
}

// UploadResult итог приёма пакета
type UploadResult struct {
	Accepted int
	Streams  []record.Stream
	Took     time.Duration
}

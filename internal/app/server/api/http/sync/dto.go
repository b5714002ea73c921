package sync

import "gophistory/internal/domain/record"

type statusOutput struct {
	Body StatusResponse
}

// StatusResponse последние idx всех потоков пользователя на relay
type StatusResponse struct {
	Status   string        `json:"status"`
	Version  string        `json:"version" doc:"Версия протокола синхронизации"`
	PageSize int           `json:"page_size" doc:"Максимум записей в ответе next"`
	Hosts    record.Status `json:"hosts" doc:"host -> tag -> last idx"`
}

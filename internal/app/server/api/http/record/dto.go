package record

import "gophistory/internal/domain/record"

type nextInput struct {
	Host  string `query:"host" required:"true" doc:"HostId потока"`
	Tag   string `query:"tag" required:"true" doc:"Tag потока"`
	Start uint64 `query:"start" doc:"Первый idx"`
	Count int    `query:"count" minimum:"0" doc:"Сколько записей вернуть, не больше page_size"`
}

type nextOutput struct {
	Status int
	Body   any
}

type uploadInput struct {
	Body []record.Record
}

type uploadOutput struct {
	Status int
	Body   UploadResponse
}

// UploadResponse ответ на загрузку. При code=unexpected_idx заполнены host, tag, expected и got.
type UploadResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted,omitempty"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
	Host     string `json:"host,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Expected uint64 `json:"expected,omitempty"`
	Got      uint64 `json:"got,omitempty"`
}

// ErrorResponse общий формат ошибки
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

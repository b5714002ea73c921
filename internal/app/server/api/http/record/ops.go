package record

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

var bearer = []map[string][]string{{"bearer": {}}}

func (h *Handler) nextOp() huma.Operation {
	return huma.Operation{
		OperationID: "record-next",
		Method:      http.MethodGet,
		Path:        "/api/v0/record/next",
		Summary:     "Следующие записи потока",
		Description: "Возвращает упорядоченные записи потока с idx >= start, не больше page_size",
		Tags:        []string{"records"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

func (h *Handler) uploadOp() huma.Operation {
	return huma.Operation{
		OperationID: "record-upload",
		Method:      http.MethodPost,
		Path:        "/api/v0/record",
		Summary:     "Загрузка записей",
		Description: "Принимает пакет целиком, если каждый поток продолжается с ожидаемого idx",
		Tags:        []string{"records"},
		Security:    bearer,
		Middlewares: h.middleware,
	}
}

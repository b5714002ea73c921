package middleware

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
)

// WriteError отвечает телом {status:"Error", error} до вызова обработчика
func WriteError(ctx huma.Context, status int, msg string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(status)

	return json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"status": "Error",
		"error":  msg,
	})
}

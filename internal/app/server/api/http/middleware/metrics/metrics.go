package metrics

import (
	"time"

	"gophistory/internal/app/server/metrics"

	"github.com/danielgtaylor/huma/v2"
)

// Middleware учитывает каждый запрос в метриках
func Middleware(m *metrics.Metrics) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		next(ctx)

		operation := "unknown"
		if op := ctx.Operation(); op != nil {
			operation = op.OperationID
		}
		m.ObserveRequest(operation, ctx.Status(), time.Since(start))
	}
}

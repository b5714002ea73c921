package version

import (
	"net/http"

	"gophistory/internal/app/server/api/http/middleware"
	ver "gophistory/internal/version"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Middleware ставит заголовок версии протокола и отклоняет несовместимых клиентов.
// Запросы без заголовка пропускаются (health, браузер).
func Middleware(log *slog.Logger) func(huma.Context, func(huma.Context)) {
	log = log.With(slog.String("component", "version_middleware"))

	return func(ctx huma.Context, next func(huma.Context)) {
		ctx.SetHeader(ver.Header, ver.Protocol)

		client := ctx.Header(ver.Header)
		if client == "" {
			next(ctx)
			return
		}

		ok, err := ver.Compatible(ver.Protocol, client)
		if err != nil || !ok {
			log.Debug("incompatible client", slog.String("client_version", client))
			if err := middleware.WriteError(ctx, http.StatusUpgradeRequired, "incompatible protocol version, server "+ver.Protocol); err != nil {
				log.Error("write response", slog.Any("error", err))
			}
			return
		}

		next(ctx)
	}
}

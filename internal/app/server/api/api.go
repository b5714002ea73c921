// Package api собирает HTTP API relay.
//
//	POST /user/register          # Регистрация (публичный)
//	POST /user/login             # Логин (публичный)
//	POST /user/logout            # Выход (auth)
//	GET  /sync/status            # Последние idx всех потоков (auth)
//	GET  /api/v0/record/next     # Страница записей потока (auth)
//	POST /api/v0/record          # Загрузка пакета записей (auth)
//	GET  /api/v1/health          # Проверка состояния (публичный)
//	GET  /metrics                # Prometheus, если включены метрики
package api

import (
	"time"

	healthAPI "gophistory/internal/app/server/api/http/health"
	"gophistory/internal/app/server/api/http/middleware"
	"gophistory/internal/app/server/api/http/middleware/auth"
	"gophistory/internal/app/server/api/http/middleware/logger"
	metricsMW "gophistory/internal/app/server/api/http/middleware/metrics"
	versionMW "gophistory/internal/app/server/api/http/middleware/version"
	recordAPI "gophistory/internal/app/server/api/http/record"
	syncAPI "gophistory/internal/app/server/api/http/sync"
	userAPI "gophistory/internal/app/server/api/http/user"
	"gophistory/internal/app/server/metrics"
	"gophistory/internal/domain/session"
	"gophistory/internal/domain/sync"
	"gophistory/internal/domain/user"
	"gophistory/internal/infrastructure/storage"
	"gophistory/internal/version"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

// Options зависимости и настройки API
type Options struct {
	Repositories     *storage.Repositories
	Sync             sync.ServiceConfig
	SessionTTL       time.Duration
	OpenRegistration bool
	StrictPasswords  bool
	// Metrics nil отключает сбор метрик и /metrics
	Metrics *metrics.Metrics
}

type Handlers struct {
	Health *healthAPI.Handler
	User   *userAPI.Handler
	Record *recordAPI.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux со всеми операциями relay
func New(opts Options, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Gophistory Relay API", version.Protocol)
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)
	API.UseMiddleware(versionMW.Middleware(log))
	if opts.Metrics != nil {
		API.UseMiddleware(metricsMW.Middleware(opts.Metrics))
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	h := handlers(opts, log)
	h.Health.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.Record.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(opts Options, log *slog.Logger) *Handlers {
	repos := opts.Repositories

	sessionService := session.NewService(repos.Sessions, log, opts.SessionTTL)
	authMW := auth.New(sessionService, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	var validatorOpts []user.ValidatorOption
	if opts.StrictPasswords {
		validatorOpts = append(validatorOpts, user.WithStrictPasswords())
	}
	userService := user.NewService(repos.Users, user.NewPasswordValidator(validatorOpts...), log, opts.OpenRegistration)
	middlewares.Add(loggerMW.Middleware())
	public := middlewares.GetAllAndClear()
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	userHandler := userAPI.NewHandler(userService, sessionService, log, public, middlewares.GetAllAndClear())

	syncService := sync.NewService(repos.Records, log, &opts.Sync)
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	recordHandler := recordAPI.NewHandler(syncService, opts.Metrics, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		User:   userHandler,
		Record: recordHandler,
		Sync:   syncHandler,
	}
}

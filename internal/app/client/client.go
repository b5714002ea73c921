package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"sync"
	"time"

	"gophistory/internal/app/client/config"
	"gophistory/internal/app/client/crypto"
	"gophistory/internal/app/client/storage"
	"gophistory/internal/domain/history"
	"gophistory/internal/domain/record"
	"gophistory/internal/version"

	"golang.org/x/exp/slog"
)

// SessionEnv переменная окружения с идентификатором сессии оболочки
const SessionEnv = "ATUIN_SESSION"

// App связывает хранилища, шифрование и синхронизацию клиента
type App struct {
	config *config.Config
	log    *slog.Logger
	host   record.HostID

	records *storage.RecordStore
	repo    *storage.HistoryRepository
	keys    *crypto.KeyManager
	store   *history.Store
	filter  *history.Filter
	session *Session

	relay      *HTTPClient
	syncer     Syncer
	background *BackgroundSync

	stateMu sync.Mutex
	state   *State

	now func() time.Time
}

// New открывает локальные хранилища. Ключ шифрования загружается при первой
// операции, которой он нужен.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("создание каталога данных: %w", err)
	}

	host, err := LoadHostID(cfg.HostIDPath())
	if err != nil {
		return nil, err
	}

	filter, err := history.NewFilter(cfg.HistoryFilter, cfg.CwdFilter, cfg.SecretsFilter)
	if err != nil {
		return nil, err
	}

	keys, err := crypto.NewKeyManager(cfg.KeyPath)
	if err != nil {
		return nil, err
	}

	state, err := LoadState(cfg.StatePath())
	if err != nil {
		log.Warn("состояние клиента повреждено, начинаем с пустого", slog.Any("error", err))
		state = &State{}
	}

	records, err := storage.OpenRecordStore(cfg.RecordStorePath, log)
	if err != nil {
		return nil, err
	}

	repo, err := storage.OpenHistoryRepository(cfg.DBPath, log)
	if err != nil {
		records.Close()
		return nil, err
	}

	app := &App{
		config:  cfg,
		log:     log.With(slog.String("component", "client")),
		host:    host,
		records: records,
		repo:    repo,
		keys:    keys,
		filter:  filter,
		session: NewSession(cfg.SessionPath),
		state:   state,
		now:     time.Now,
	}
	app.store = history.NewStore(records, repo, crypto.NewRecordEncryptor(keys), host, log)

	if err := app.setupSync(log); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (a *App) setupSync(log *slog.Logger) error {
	if !a.config.SyncEnabled {
		a.syncer = NoopSyncer{}
		a.background = NewBackgroundSync(a.syncer, a.config.NetworkTimeout, log, nil)
		return nil
	}

	relay, err := NewHTTPClient(a.config.SyncAddress, a.session, a.config.NetworkTimeout, a.config.NetworkConnectTimeout, log)
	if err != nil {
		return err
	}

	a.relay = relay
	a.syncer = NewSyncEngine(a.records, a.records, relay,
		map[record.Tag]Materializer{history.Tag: a.store},
		SyncConfig{BatchSize: a.config.SyncBatchSize},
		log)
	a.background = NewBackgroundSync(&keyedSyncer{app: a}, a.config.NetworkTimeout, log, a.syncDone)

	return nil
}

// Close дожидается фоновой синхронизации и закрывает хранилища
func (a *App) Close() error {
	if a.background != nil {
		a.background.Wait()
	}
	a.keys.Lock()

	return errors.Join(a.repo.Close(), a.records.Close())
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Host() record.HostID {
	return a.host
}

// Wait ждёт завершения фоновой синхронизации
func (a *App) Wait() {
	a.background.Wait()
}

// ensureKey загружает ключ, создавая его при первом использовании
func (a *App) ensureKey() error {
	if a.keys.IsLoaded() {
		return nil
	}

	created := !a.keys.Exists()
	if err := a.keys.LoadOrGenerate(a.config.KeyPassphrase); err != nil {
		return fmt.Errorf("загрузка ключа: %w", err)
	}
	if created {
		a.log.Warn("создан новый ключ шифрования, перенесите его на другие устройства командой key export",
			slog.String("path", a.keys.Path()))
	}

	return nil
}

// keyedSyncer загружает ключ перед циклом фоновой синхронизации
type keyedSyncer struct {
	app *App
}

func (s *keyedSyncer) Sync(ctx context.Context) (*SyncResult, error) {
	if err := s.app.ensureKey(); err != nil {
		return nil, err
	}
	return s.app.syncer.Sync(ctx)
}

func (a *App) syncDone(res *SyncResult, err error) {
	if err != nil {
		return
	}

	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	a.state.LastSync = a.now().UTC()
	if res != nil && res.ServerVersion != "" {
		if a.state.LastVersion != "" && version.Newer(a.state.LastVersion, res.ServerVersion) {
			a.log.Info("relay обновлён",
				slog.String("from", a.state.LastVersion),
				slog.String("to", res.ServerVersion))
		}
		a.state.LastVersion = res.ServerVersion
	}
	if err := a.state.Save(a.config.StatePath()); err != nil {
		a.log.Warn("не удалось сохранить состояние", slog.Any("error", err))
	}
}

// currentHostname имя в формате "host:user"
func currentHostname() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		name = u.Username
	}

	return host + ":" + name
}

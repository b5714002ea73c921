package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env     string
	DB      db
	Server  server
	Logger  logger
	Sync    syncLimits
	Auth    auth
	Metrics metrics
}

type db struct {
	// DatabaseURI пустая строка включает хранилище в памяти
	DatabaseURI string
}

type server struct {
	RunAddress      string
	ShutdownTimeout time.Duration
}

type logger struct {
	LogLevel string
}

type syncLimits struct {
	PageSize     int
	MaxBatchSize int
}

type auth struct {
	SessionTTL       time.Duration
	OpenRegistration bool
	StrictPasswords  bool
}

type metrics struct {
	Enabled bool
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", EnvProd)
	v.SetDefault("run_address", ":8888")
	v.SetDefault("page_size", 100)
	v.SetDefault("max_batch_size", 1000)
	v.SetDefault("session_ttl", 720*time.Hour)
	v.SetDefault("open_registration", true)
	v.SetDefault("strict_passwords", false)
	v.SetDefault("metrics_enabled", false)
	v.SetDefault("shutdown_timeout", 10*time.Second)

	config := Config{
		Env: v.GetString("app_env"),
		DB: db{
			DatabaseURI: v.GetString("database_uri"),
		},
		Server: server{
			RunAddress:      v.GetString("run_address"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Logger: logger{LogLevel: v.GetString("log_level")},
		Sync: syncLimits{
			PageSize:     v.GetInt("page_size"),
			MaxBatchSize: v.GetInt("max_batch_size"),
		},
		Auth: auth{
			SessionTTL:       v.GetDuration("session_ttl"),
			OpenRegistration: v.GetBool("open_registration"),
			StrictPasswords:  v.GetBool("strict_passwords"),
		},
		Metrics: metrics{Enabled: v.GetBool("metrics_enabled")},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// MustLoad как Load, но паникует при ошибке
func MustLoad() *Config {
	config, err := Load()
	if err != nil {
		panic(err)
	}
	return config
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Env)
	}

	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.Sync.PageSize)
	}
	if c.Sync.MaxBatchSize <= 0 {
		return fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", c.Sync.MaxBatchSize)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Auth.SessionTTL)
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName   = "gophistory"
	envPrefix = "GOPHISTORY"

	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	FilterModeGlobal    = "global"
	FilterModeHost      = "host"
	FilterModeSession   = "session"
	FilterModeDirectory = "directory"

	DefaultHistoryFormat = "{time}\t{command}\t{duration}"
)

type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	DataDir         string `mapstructure:"data_dir"`
	DBPath          string `mapstructure:"db_path"`
	RecordStorePath string `mapstructure:"record_store_path"`
	KeyPath         string `mapstructure:"key_path"`
	SessionPath     string `mapstructure:"session_path"`
	KeyPassphrase   string `mapstructure:"key_passphrase"`

	SyncAddress           string        `mapstructure:"sync_address"`
	SyncEnabled           bool          `mapstructure:"sync_enabled"`
	AutoSync              bool          `mapstructure:"auto_sync"`
	SyncFrequency         time.Duration `mapstructure:"-"`
	SyncBatchSize         int           `mapstructure:"sync_batch_size"`
	NetworkTimeout        time.Duration `mapstructure:"network_timeout"`
	NetworkConnectTimeout time.Duration `mapstructure:"network_connect_timeout"`

	StoreFailed   bool     `mapstructure:"store_failed"`
	HistoryFilter []string `mapstructure:"history_filter"`
	CwdFilter     []string `mapstructure:"cwd_filter"`
	SecretsFilter bool     `mapstructure:"secrets_filter"`

	HistoryFormat string `mapstructure:"history_format"`
	FilterMode    string `mapstructure:"filter_mode"`
	// Timezone "local", "utc" или имя из базы IANA
	Timezone string `mapstructure:"timezone"`
}

// Load читает config.yaml, переменные GOPHISTORY_* и значения по умолчанию.
// Пустой path означает $XDG_CONFIG_HOME/gophistory/config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("чтение конфигурации: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}

	frequency, err := parseFrequency(v.GetString("sync_frequency"))
	if err != nil {
		return nil, err
	}
	config.SyncFrequency = frequency
	config.resolvePaths()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvProd)
	v.SetDefault("log_level", "")
	v.SetDefault("data_dir", DataDir())
	v.SetDefault("db_path", "")
	v.SetDefault("record_store_path", "")
	v.SetDefault("key_path", "")
	v.SetDefault("session_path", "")
	v.SetDefault("key_passphrase", "")
	v.SetDefault("sync_address", "http://127.0.0.1:8888")
	v.SetDefault("sync_enabled", true)
	v.SetDefault("auto_sync", true)
	v.SetDefault("sync_frequency", "10m")
	v.SetDefault("sync_batch_size", 100)
	v.SetDefault("network_timeout", 30*time.Second)
	v.SetDefault("network_connect_timeout", 5*time.Second)
	v.SetDefault("store_failed", true)
	v.SetDefault("history_filter", []string{})
	v.SetDefault("cwd_filter", []string{})
	v.SetDefault("secrets_filter", true)
	v.SetDefault("history_format", DefaultHistoryFormat)
	v.SetDefault("filter_mode", FilterModeGlobal)
	v.SetDefault("timezone", "local")
}

// parseFrequency понимает "0" (после каждой команды) и длительности Go: "10m", "1h"
func parseFrequency(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("sync_frequency %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("sync_frequency не может быть отрицательным: %s", s)
	}
	return d, nil
}

func (c *Config) resolvePaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "history.db")
	}
	if c.RecordStorePath == "" {
		c.RecordStorePath = filepath.Join(c.DataDir, "records.db")
	}
	if c.KeyPath == "" {
		c.KeyPath = filepath.Join(c.DataDir, "key")
	}
	if c.SessionPath == "" {
		c.SessionPath = filepath.Join(c.DataDir, "session")
	}
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("неизвестное окружение %q", c.Env)
	}

	switch c.FilterMode {
	case FilterModeGlobal, FilterModeHost, FilterModeSession, FilterModeDirectory:
	default:
		return fmt.Errorf("неизвестный filter_mode %q", c.FilterMode)
	}

	if c.SyncEnabled && c.SyncAddress == "" {
		return fmt.Errorf("sync_address не может быть пустым")
	}
	if c.SyncBatchSize <= 0 {
		return fmt.Errorf("sync_batch_size должен быть положительным")
	}
	if c.NetworkTimeout <= 0 {
		return fmt.Errorf("network_timeout должен быть положительным")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location часовой пояс для вывода времени
func (c *Config) Location() (*time.Location, error) {
	switch strings.ToLower(c.Timezone) {
	case "", "local":
		return time.Local, nil
	case "utc":
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StatePath файл с временем последней синхронизации
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state.json")
}

// HostIDPath файл с идентификатором устройства
func (c *Config) HostIDPath() string {
	return filepath.Join(c.DataDir, "host_id")
}

// ConfigDir каталог config.yaml
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(), ".config", appName)
}

// DataDir каталог данных по умолчанию
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(), ".local", "share", appName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Package config loads padchat settings from defaults, an optional YAML file
// and PADCHAT_ environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/models"
)

const envPrefix = "PADCHAT"

const (
	ProviderProxy  = "proxy"
	ProviderOpenAI = "openai"
)

type Config struct {
	Remote  RemoteConfig  `mapstructure:"remote"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Storage StorageConfig `mapstructure:"storage"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
}

// RemoteConfig selects and configures the reasoning service.
type RemoteConfig struct {
	Provider  string        `mapstructure:"provider"`
	Endpoint  string        `mapstructure:"endpoint"`
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Model     string        `mapstructure:"model"`
	DeepModel string        `mapstructure:"deep_model"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	DefaultMode      string `mapstructure:"default_mode"`
	RestoreSelection bool   `mapstructure:"restore_selection"`
}

type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type HTTPConfig struct {
	Addr      string  `mapstructure:"addr"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// New returns a viper instance with every key defaulted and environment
// lookups enabled. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("remote.provider", ProviderProxy)
	v.SetDefault("remote.endpoint", "http://localhost:8000/v1/chat/completions")
	v.SetDefault("remote.base_url", "http://localhost:11434/v1/")
	v.SetDefault("remote.token", "demo")
	v.SetDefault("remote.model", "bandit-v1.0")
	v.SetDefault("remote.deep_model", "")
	v.SetDefault("remote.timeout", 120*time.Second)
	v.SetDefault("chat.default_mode", string(models.ModeInstant))
	v.SetDefault("chat.restore_selection", false)
	v.SetDefault("storage.driver", "sqlite3")
	v.SetDefault("storage.path", "padchat.db")
	v.SetDefault("storage.namespace", "")
	v.SetDefault("http.addr", ":8100")
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.rate_burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Remote.Provider {
	case ProviderProxy:
		if strings.TrimSpace(c.Remote.Endpoint) == "" {
			return fmt.Errorf("remote.endpoint must be set for the %s provider", ProviderProxy)
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.Remote.BaseURL) == "" {
			return fmt.Errorf("remote.base_url must be set for the %s provider", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown remote.provider %q", c.Remote.Provider)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %s", c.Remote.Timeout)
	}
	if _, err := models.ParseThinkingMode(c.Chat.DefaultMode); err != nil {
		return fmt.Errorf("chat.default_mode: %w", err)
	}
	switch c.Storage.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.HTTP.RateLimit <= 0 || c.HTTP.RateBurst <= 0 {
		return fmt.Errorf("http.rate_limit and http.rate_burst must be positive")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// DefaultMode is the parsed chat.default_mode. Validate has already checked it.
func (c *Config) DefaultMode() models.ThinkingMode {
	mode, _ := models.ParseThinkingMode(c.Chat.DefaultMode)
	return mode
}

// Logger builds the process logger: production JSON by default, development
// console output when log.development is set.
func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	zc.Level = level
	return zc.Build()
}

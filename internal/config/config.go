// Package config loads service configuration from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultServerPort      = 8055
	defaultServerTimeout   = 30
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5
	defaultRedisAddress    = "localhost:6379"

	defaultAnalyzerTimeout = 30 * time.Second

	defaultAIBaseURL       = "http://localhost:11434"
	defaultAIModel         = "llama3.1:8b"
	defaultAITemperature   = 0.2
	defaultAITopP          = 0.9
	defaultAIRepeatPenalty = 1.1
	defaultAIMaxTokens     = 1024
	defaultAIContextWindow = 4096
	defaultAITimeout       = 60 * time.Second

	defaultBatchWorkers = 4
)

// Config is the root service configuration.
type Config struct {
	Debug    bool           `env:"APP_DEBUG" yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	AI       AIConfig       `yaml:"ai"`
	Batch    BatchConfig    `yaml:"batch"`
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection configuration for event publishing.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB       int    `env:"REDIS_DB"             yaml:"db"`
	Enabled  bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
}

// AnalyzerConfig configures the structural page analyzer.
type AnalyzerConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// AIConfig configures the generative fallback collaborator. Sampling
// parameters are fixed here rather than per call.
type AIConfig struct {
	BaseURL       string        `env:"AI_BASE_URL" yaml:"base_url"`
	Token         string        `env:"AI_TOKEN"    yaml:"token"`
	Model         string        `env:"AI_MODEL"    yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	TopP          float64       `yaml:"top_p"`
	RepeatPenalty float64       `yaml:"repeat_penalty"`
	MaxTokens     int           `yaml:"max_tokens"`
	ContextWindow int           `yaml:"context_window"`
	Timeout       time.Duration `yaml:"timeout"`
}

// BatchConfig bounds concurrency for bulk synthesis.
type BatchConfig struct {
	Workers int `env:"BATCH_WORKERS" yaml:"workers"`
}

func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port <= 0 {
		return errors.New("database.port is required and must be positive")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.AI.Model == "" {
		return errors.New("ai.model is required")
	}
	if c.Batch.Workers <= 0 {
		return errors.New("batch.workers must be positive")
	}
	return nil
}

// Load reads the config file, applies defaults and env overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := loadWithDefaults(path, setDefaults)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout * time.Second
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime * time.Minute
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Analyzer.Timeout == 0 {
		cfg.Analyzer.Timeout = defaultAnalyzerTimeout
	}
	if cfg.Analyzer.UserAgent == "" {
		cfg.Analyzer.UserAgent = "Mozilla/5.0 (compatible; Newsloom-SourceManager/1.0)"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultAIBaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultAIModel
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = defaultAITemperature
	}
	if cfg.AI.TopP == 0 {
		cfg.AI.TopP = defaultAITopP
	}
	if cfg.AI.RepeatPenalty == 0 {
		cfg.AI.RepeatPenalty = defaultAIRepeatPenalty
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = defaultAIMaxTokens
	}
	if cfg.AI.ContextWindow == 0 {
		cfg.AI.ContextWindow = defaultAIContextWindow
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = defaultAITimeout
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = defaultBatchWorkers
	}
}

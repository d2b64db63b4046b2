package bootstrap

import (
	"flag"
	"fmt"
	"os"

	"github.com/newsloom/source-manager/internal/config"
	"github.com/newsloom/source-manager/internal/logger"
)

// LoadConfig loads configuration from the -config flag, CONFIG_PATH, or the
// default config.yml.
func LoadConfig() (*config.Config, error) {
	configPath := flag.String("config", defaultConfigPath(), "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func defaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config.yml"
}

// CreateLogger creates the service logger with identity fields attached.
func CreateLogger(cfg *config.Config, version string) (logger.Logger, error) {
	log, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "source-manager"),
		logger.String("version", version),
	), nil
}

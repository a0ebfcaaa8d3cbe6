package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Apps struct {
		LogLevel string `yaml:"log_level"`
		Rest     struct {
			Port           int      `yaml:"port"`
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"rest"`
		Relay struct {
			// StateRequestTimeoutSeconds bounds how long a snapshot
			// donor may take before the next member is asked.
			StateRequestTimeoutSeconds int `yaml:"state_request_timeout_seconds"`
		} `yaml:"relay"`
	} `yaml:"apps"`
}

// DefaultConfig is the fixed local setup used when no config file exists.
func DefaultConfig() *Config {
	var config Config
	config.Apps.LogLevel = "info"
	config.Apps.Rest.Port = 8080
	config.Apps.Relay.StateRequestTimeoutSeconds = 5
	return &config
}

func ParseConfig(path string, logger *zap.Logger) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		logger.Error("Failed to open config file", zap.Error(err))
		return nil, fmt.Errorf("error opening file %w", err)
	}
	defer file.Close()

	config := DefaultConfig()
	err = yaml.NewDecoder(file).Decode(config)
	if err != nil {
		logger.Error("Failed to decode config file", zap.Error(err))
		return nil, fmt.Errorf("error decoding file %w", err)
	}

	return config, nil
}

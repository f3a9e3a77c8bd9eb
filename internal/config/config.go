package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port   string `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`
	Gemini struct {
		APIKey            string `yaml:"api_key"`
		ModelName         string `yaml:"model_name"`
		MaxRetries        int    `yaml:"max_retries"`
		RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	} `yaml:"gemini"`
	Sink struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxAttempts    int    `yaml:"max_attempts"`
		BackoffSeconds int    `yaml:"backoff_seconds"`
	} `yaml:"sink"`
	Session struct {
		IdleTimeoutSeconds   int64 `yaml:"idle_timeout_seconds"`
		SweepIntervalSeconds int64 `yaml:"sweep_interval_seconds"`
	} `yaml:"session"`
	Archive struct {
		Path string `yaml:"path"`
	} `yaml:"archive"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Gemini.ModelName == "" {
		config.Gemini.ModelName = "gemini-2.0-flash"
	}
	if config.Gemini.MaxRetries == 0 {
		config.Gemini.MaxRetries = 3
	}
	if config.Gemini.RetryDelaySeconds == 0 {
		config.Gemini.RetryDelaySeconds = 2
	}
	if config.Sink.TimeoutSeconds == 0 {
		config.Sink.TimeoutSeconds = 10
	}
	if config.Sink.MaxAttempts == 0 {
		config.Sink.MaxAttempts = 3
	}
	if config.Sink.BackoffSeconds == 0 {
		config.Sink.BackoffSeconds = 2
	}
	if config.Session.SweepIntervalSeconds == 0 {
		config.Session.SweepIntervalSeconds = 60
	}
	if config.Archive.Path == "" {
		config.Archive.Path = "./data/reports.db"
	}

	// Expand environment variables in secrets
	config.Server.APIKey = os.ExpandEnv(config.Server.APIKey)
	config.Gemini.APIKey = os.ExpandEnv(config.Gemini.APIKey)
	config.Sink.URL = os.ExpandEnv(config.Sink.URL)

	return config, nil
}

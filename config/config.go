// Package config reads runtime configuration from the environment.
package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the server.
type Config struct {
	Addr   string `envconfig:"TRADEBOOK_ADDR" default:":8080"`
	DBPath string `envconfig:"TRADEBOOK_DB" default:"./data/tradebook.db"`

	// ArrearsThresholdDays is how many days a seller may go without a
	// payment before the arrears report flags them.
	ArrearsThresholdDays int `envconfig:"TRADEBOOK_ARREARS_DAYS" default:"10"`

	LogLevel  string `envconfig:"TRADEBOOK_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"TRADEBOOK_LOG_FORMAT" default:"console"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

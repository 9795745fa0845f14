// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Config is the process configuration shared by the Lambda and the local
// server entrypoints. Defaults are provided via struct tags.
type Config struct {
	Addr          string `env:"ADDR,default=:8080"`
	EndpointPath  string `env:"MCP_ENDPOINT_PATH,default=/mcp"`
	ServerName    string `env:"MCP_SERVER_NAME,default=aws-lambda-mcp-server"`
	ServerVersion string `env:"MCP_SERVER_VERSION,default=0.1.0"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
}

// Load populates a Config from the environment using envdecode.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps the configured level string to a slog.Level. Unknown values
// fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

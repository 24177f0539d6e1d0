// Package config reads settings from the environment with typed defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables understood by the tool.
const (
	EnvColumns     = "STICKERS_COLUMNS"
	EnvRows        = "STICKERS_ROWS"
	EnvDPI         = "STICKERS_DPI"
	EnvSettleDelay = "STICKERS_SETTLE_DELAY"
	EnvHeaders     = "STICKERS_HEADERS"
	EnvLogLevel    = "STICKERS_LOG_LEVEL"
	EnvLogFormat   = "STICKERS_LOG_FORMAT"
	EnvAddr        = "STICKERS_ADDR"
	EnvMaxUpload   = "STICKERS_MAX_UPLOAD"
)

type Config struct {
	values map[string]string
}

// Load reads the known variables from the process environment.
func Load() *Config {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a config from any lookup function, e.g. a map in tests.
func FromLookup(lookup func(string) (string, bool)) *Config {
	cfg := &Config{values: make(map[string]string)}
	for _, key := range []string{
		EnvColumns,
		EnvRows,
		EnvDPI,
		EnvSettleDelay,
		EnvHeaders,
		EnvLogLevel,
		EnvLogFormat,
		EnvAddr,
		EnvMaxUpload,
	} {
		if value, ok := lookup(key); ok && value != "" {
			cfg.values[key] = value
		}
	}
	return cfg
}

func (c *Config) GetString(key, defaultValue string) string {
	if value, exists := c.values[key]; exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetInt(key string, defaultValue int) int {
	if value, exists := c.values[key]; exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) GetFloat(key string, defaultValue float64) float64 {
	if value, exists := c.values[key]; exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (c *Config) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := c.values[key]; exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetStrings splits a comma separated value, trimming entries and dropping
// empty ones.
func (c *Config) GetStrings(key string, defaultValue []string) []string {
	value, exists := c.values[key]
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

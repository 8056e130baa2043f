// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// GetEnv reads an environment variable or returns def.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as an integer, else returns def.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration accepts either a Go duration ("30m") or a bare number of
// milliseconds. Missing or malformed values return def.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// NewLogger builds the process logger. LOG_LEVEL picks the level (default info).
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		logger.Warnf("invalid LOG_LEVEL, using info: %v", err)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

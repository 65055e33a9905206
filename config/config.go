// Package config provides configuration for driftscope.
package config

import (
	"os"
	"strconv"
)

// Config holds the driftscope configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Metric thresholds
	LatencyGapThreshold float64
	DivergenceThreshold int
	RelapseWindow       int

	// Ingest
	MaxSessions int
	StrictInput bool

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:         getEnv("DATABASE_URL", "file:driftscope.db?cache=shared&mode=rwc"),
		LatencyGapThreshold: getEnvFloat("LATENCY_GAP_THRESHOLD", 0.5),
		DivergenceThreshold: getEnvInt("DIVERGENCE_THRESHOLD", 1),
		RelapseWindow:       getEnvInt("RELAPSE_WINDOW", 0),
		MaxSessions:         getEnvInt("MAX_SESSIONS", 0),
		StrictInput:         getEnvBool("STRICT_INPUT", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

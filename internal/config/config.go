// Package config loads daemon settings from environment variables, with sane
// defaults so amqpmockd runs out of the box with no configuration at all.
package config

import "os"

// Config holds every setting the daemon needs to start its listeners.
type Config struct {
	// AMQP listener
	AMQPHost string
	AMQPPort string

	// HTTP control API listener
	HTTPHost string
	HTTPPort string

	// log/slog level: DEBUG, INFO, WARN or ERROR
	LogLevel string

	// HeartbeatInterval is read by the bootstrap layer only; the connection
	// state machine itself never enforces it (see Non-goals).
	HeartbeatInterval string

	// StatsLogSchedule is a cron expression for the optional periodic storage
	// stats logger. Empty disables it.
	StatsLogSchedule string
}

// Load reads environment variables and returns a populated Config.
func Load() *Config {
	return &Config{
		AMQPHost:          getEnv("AMQP_HOST", "0.0.0.0"),
		AMQPPort:          getEnv("AMQP_PORT", "5672"),
		HTTPHost:          getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort:          getEnv("HTTP_PORT", "80"),
		LogLevel:          getEnv("LOG_LEVEL", "ERROR"),
		HeartbeatInterval: getEnv("HEARTBEAT_INTERVAL", "0"),
		StatsLogSchedule:  getEnv("STATS_LOG_SCHEDULE", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

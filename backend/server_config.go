package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type serverConfig struct {
	Addr             string
	TokenSecret      string
	TokenTTL         time.Duration
	SnapshotPath     string
	LogLevel         string
	EngineConfigPath string

	// EngineTimeBudgetMs applies only when the engine config has no budget.
	EngineTimeBudgetMs int
	TickInterval       time.Duration
}

func loadServerConfig() serverConfig {
	return serverConfig{
		Addr:               getenv("BACKEND_ADDR", ":8080"),
		TokenSecret:        os.Getenv("SEAT_TOKEN_SECRET"),
		TokenTTL:           time.Duration(getenvInt("SEAT_TOKEN_TTL_MIN", 24*60)) * time.Minute,
		SnapshotPath:       os.Getenv("ROOM_SNAPSHOT_PATH"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		EngineConfigPath:   os.Getenv("ENGINE_CONFIG_PATH"),
		EngineTimeBudgetMs: getenvInt("ENGINE_TIME_BUDGET_MS", 500),
		TickInterval:       time.Duration(getenvInt("BACKEND_TICK_MS", 50)) * time.Millisecond,
	}
}

// seatSecret falls back to a per-process random secret, which invalidates
// issued tokens on restart.
func (c serverConfig) seatSecret(logger zerolog.Logger) string {
	if c.TokenSecret != "" {
		return c.TokenSecret
	}
	logger.Warn().Msg("SEAT_TOKEN_SECRET not set, using a random secret")
	return uuid.NewString()
}

func buildLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(parsed).
		With().
		Timestamp().
		Str("service", "backend").
		Logger()
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

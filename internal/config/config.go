package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/google/uuid"
)

type Config struct {
	Env      string
	LogLevel string

	InstanceID string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RoomDirectoryTTL  time.Duration
	CountdownFrom     int
	CountdownInterval time.Duration
	MinPlayers        int

	MessageRate    float64
	MessageBurst   int
	AllowedOrigins []string
}

// Load reads the configuration from the environment (and .env through envy).
func Load() (Config, error) {
	cfg := Config{
		Env:           envy.Get("GO_ENV", "development"),
		LogLevel:      envy.Get("LOG_LEVEL", "info"),
		InstanceID:    envy.Get("INSTANCE_ID", ""),
		RedisAddr:     envy.Get("REDIS_ADDR", ""),
		RedisPassword: envy.Get("REDIS_PASSWORD", ""),
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var err error
	if cfg.RedisDB, err = intVar("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.RoomDirectoryTTL, err = durationVar("ROOM_DIRECTORY_TTL", 6*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CountdownFrom, err = intVar("COUNTDOWN_FROM", 3); err != nil {
		return Config{}, err
	}
	if cfg.CountdownFrom < 0 {
		return Config{}, fmt.Errorf("COUNTDOWN_FROM must not be negative, got %d", cfg.CountdownFrom)
	}
	if cfg.CountdownInterval, err = durationVar("COUNTDOWN_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MinPlayers, err = intVar("MIN_PLAYERS", 2); err != nil {
		return Config{}, err
	}
	if cfg.MinPlayers < 1 {
		return Config{}, fmt.Errorf("MIN_PLAYERS must be at least 1, got %d", cfg.MinPlayers)
	}
	if cfg.MessageRate, err = floatVar("WS_MESSAGE_RATE", 20); err != nil {
		return Config{}, err
	}
	if cfg.MessageBurst, err = intVar("WS_MESSAGE_BURST", 40); err != nil {
		return Config{}, err
	}
	if cfg.MessageBurst < 1 {
		return Config{}, fmt.Errorf("WS_MESSAGE_BURST must be at least 1, got %d", cfg.MessageBurst)
	}

	origins := envy.Get("WS_ALLOWED_ORIGINS", "")
	if origins == "" {
		origins = "*"
	}
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func intVar(key string, fallback int) (int, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func floatVar(key string, fallback float64) (float64, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationVar(key string, fallback time.Duration) (time.Duration, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Inputs
	DataDir           string
	SeasonsConfigPath string // optional; empty keeps the built-in priors

	// Snapshot store (cross-event priors)
	SnapshotDBPath string

	// Ranking simulation
	SimReplays int
	SimSeed    uint64
	SimWorkers int

	// Recompute loop
	PredictWorkers    int
	RecomputeInterval time.Duration
	RecomputeRate     float64 // events per second

	// Fanout
	FanoutPort int

	// Notifications (optional)
	DiscordWebhookURL string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DataDir:           envStr("DATA_DIR", "data/events"),
		SeasonsConfigPath: envStr("SEASONS_CONFIG_PATH", ""),

		SnapshotDBPath: envStr("SNAPSHOT_DB_PATH", "data/snapshots.db"),

		SimReplays: envInt("SIM_REPLAYS", 1000),
		SimSeed:    uint64(envInt("SIM_SEED", 0)),
		SimWorkers: envInt("SIM_WORKERS", 0),

		PredictWorkers:    envInt("PREDICT_WORKERS", 4),
		RecomputeInterval: envDur("RECOMPUTE_INTERVAL", 30*time.Second),
		RecomputeRate:     envFloat("RECOMPUTE_RATE", 2),

		FanoutPort: envInt("FANOUT_PORT", 8766),

		DiscordWebhookURL: envStr("DISCORD_WEBHOOK_URL", ""),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDur accepts Go durations ("45s") or a bare number of seconds.
func envDur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

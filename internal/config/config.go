// Package config loads runtime configuration from the environment, with a
// .env file honored when present.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the host process configuration.
type Config struct {
	// Economy pool seeding; clamped per the invariants below.
	InitReserve int64
	InitArena   int64
	FeeBps      int

	// APIKey enables the model gateway; empty runs deterministic-only.
	APIKey string

	DBPath         string
	TickIntervalMs int
	WorldSeed      int64
}

// Defaults and clamps for the economy pool row. Only the arena leg carries
// the solvency floor; the reserve leg just has to be positive for the swap
// math.
const (
	defaultInitReserve = 10000
	defaultInitArena   = 10000
	defaultFeeBps      = 100

	minInitArena   = 1000
	minInitReserve = 1
	maxFeeBps      = 1000
)

// Load reads configuration from the environment. A missing .env file is fine.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env", "err", err)
	}

	cfg := Config{
		InitReserve:    envInt64("ECONOMY_INIT_RESERVE", defaultInitReserve),
		InitArena:      envInt64("ECONOMY_INIT_ARENA", defaultInitArena),
		FeeBps:         int(envInt64("ECONOMY_FEE_BPS", defaultFeeBps)),
		APIKey:         os.Getenv("ANTHROPIC_API_KEY"),
		DBPath:         envStr("ARENA_DB_PATH", "arena.db"),
		TickIntervalMs: int(envInt64("TICK_INTERVAL_MS", 30000)),
		WorldSeed:      envInt64("WORLD_SEED", 1337),
	}

	if cfg.InitReserve < minInitReserve {
		cfg.InitReserve = minInitReserve
	}
	if cfg.InitArena < minInitArena {
		cfg.InitArena = minInitArena
	}
	if cfg.FeeBps < 0 {
		cfg.FeeBps = 0
	}
	if cfg.FeeBps > maxFeeBps {
		cfg.FeeBps = maxFeeBps
	}
	if cfg.TickIntervalMs < 1000 {
		cfg.TickIntervalMs = 1000
	}
	return cfg
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("bad numeric env var, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

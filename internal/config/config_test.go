package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ECONOMY_INIT_RESERVE", "")
	t.Setenv("ECONOMY_INIT_ARENA", "")
	t.Setenv("ECONOMY_FEE_BPS", "")

	cfg := Load()
	assert.Equal(t, int64(10000), cfg.InitReserve)
	assert.Equal(t, int64(10000), cfg.InitArena)
	assert.Equal(t, 100, cfg.FeeBps)
}

func TestLoad_ArenaLegClampedToFloor(t *testing.T) {
	t.Setenv("ECONOMY_INIT_ARENA", "50")
	t.Setenv("ECONOMY_INIT_RESERVE", "")

	cfg := Load()
	assert.Equal(t, int64(1000), cfg.InitArena)
}

func TestLoad_ReserveLegMaySitBelowArenaFloor(t *testing.T) {
	t.Setenv("ECONOMY_INIT_RESERVE", "250")
	t.Setenv("ECONOMY_INIT_ARENA", "")

	cfg := Load()
	assert.Equal(t, int64(250), cfg.InitReserve, "a thin reserve leg is a valid pool shape")

	t.Setenv("ECONOMY_INIT_RESERVE", "-5")
	cfg = Load()
	assert.Equal(t, int64(1), cfg.InitReserve)
}

func TestLoad_FeeBpsClamped(t *testing.T) {
	t.Setenv("ECONOMY_FEE_BPS", "5000")
	cfg := Load()
	assert.Equal(t, 1000, cfg.FeeBps)

	t.Setenv("ECONOMY_FEE_BPS", "-10")
	cfg = Load()
	assert.Zero(t, cfg.FeeBps)
}

func TestLoad_BadNumericFallsBack(t *testing.T) {
	t.Setenv("ECONOMY_INIT_ARENA", "plenty")
	cfg := Load()
	assert.Equal(t, int64(10000), cfg.InitArena)
}

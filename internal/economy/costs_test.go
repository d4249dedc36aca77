package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateClaimCost_BootstrapDiscount(t *testing.T) {
	full := EstimateClaimCost(1, 0, 12, false, 1.0)
	discounted := EstimateClaimCost(1, 0, 12, true, 1.0)
	assert.Less(t, discounted, full)
	assert.GreaterOrEqual(t, discounted, int64(1), "cost never rounds to zero")
}

func TestEstimateClaimCost_ScalesWithScarcityAndLevel(t *testing.T) {
	empty := EstimateClaimCost(1, 0, 12, false, 1.0)
	crowded := EstimateClaimCost(1, 10, 12, false, 1.0)
	assert.Greater(t, crowded, empty)

	lvl1 := EstimateClaimCost(1, 0, 12, false, 1.0)
	lvl5 := EstimateClaimCost(5, 0, 12, false, 1.0)
	assert.Greater(t, lvl5, lvl1)
}

func TestBuildCost_ZoneSpread(t *testing.T) {
	res := BuildCost("RESIDENTIAL", 1, 1.0, false)
	civic := BuildCost("CIVIC", 1, 1.0, false)
	assert.Equal(t, int64(8), res)
	assert.Equal(t, int64(16), civic)

	// Unknown zones fall back to the commercial rate.
	assert.Equal(t, BuildCost("COMMERCIAL", 1, 1.0, false), BuildCost("SWAMP", 1, 1.0, false))
}

func TestWorkWage_Clamped(t *testing.T) {
	assert.Equal(t, int64(3), WorkWage(8, 5), "cheap builds hit the wage floor")
	assert.Equal(t, int64(6), WorkWage(100, 3), "expensive builds hit the wage cap")

	// Mid-range: ceil(16 / 6) = 3.
	assert.Equal(t, int64(3), WorkWage(16, 3))
}

func TestWorkWage_DegenerateInputs(t *testing.T) {
	// Tiny or zero costs price off the floor base, zero calls off one call.
	assert.Equal(t, int64(4), WorkWage(0, 1))
	assert.Equal(t, int64(6), WorkWage(50, 0))
}

func TestCompletionBonus_Clamped(t *testing.T) {
	assert.Equal(t, int64(6), CompletionBonus(0), "floor applies below 10 cost")
	assert.Equal(t, int64(24), CompletionBonus(500), "cap applies for palaces")
	assert.Equal(t, int64(9), CompletionBonus(20), "round(0.45 x 20)")
}

func TestUpkeep_NeverBelowOne(t *testing.T) {
	assert.Equal(t, int64(1), Upkeep(0.1))
	assert.Equal(t, int64(1), Upkeep(1.0))
	assert.Equal(t, int64(2), Upkeep(1.6))
}

func TestStreakReward_MilestonesPayOnce(t *testing.T) {
	assert.Equal(t, int64(6), StreakReward(3, 0))
	assert.Zero(t, StreakReward(3, 3), "already paid this streak")
	assert.Zero(t, StreakReward(4, 3), "between milestones pays nothing")
	assert.Equal(t, int64(10), StreakReward(5, 3))
	assert.Equal(t, int64(14), StreakReward(8, 5))
	assert.Equal(t, int64(20), StreakReward(13, 8))
	assert.Zero(t, StreakReward(14, 13))
}

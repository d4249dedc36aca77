package economy

import "math"

// EstimateClaimCost prices a plot claim. Cost scales with town level and with
// scarcity (the fraction of plots already claimed); bootstrap agents with no
// owned plots get the discount multiplier.
func EstimateClaimCost(townLevel, claimedPlots, totalPlots int, bootstrap bool, costMul float64) int64 {
	levelMul := 1.0 + ClaimLevelStep*float64(townLevel-1)
	scarcity := 1.0
	if totalPlots > 0 {
		scarcity = 1.0 + float64(claimedPlots)/float64(totalPlots)
	}
	cost := float64(ClaimBaseCost) * levelMul * scarcity * costMul
	if bootstrap {
		cost *= BootstrapDiscountMul
	}
	c := int64(math.Round(cost))
	if c < 1 {
		c = 1
	}
	return c
}

// BuildCost prices starting a build on a zoned plot.
func BuildCost(zone string, townLevel int, costMul float64, bootstrap bool) int64 {
	levelMul := 1.0 + ClaimLevelStep*float64(townLevel-1)
	cost := float64(ZoneBaseCost(zone)) * levelMul * costMul
	if bootstrap {
		cost *= BootstrapDiscountMul
	}
	c := int64(math.Round(cost))
	if c < 1 {
		c = 1
	}
	return c
}

// WorkWage returns the per-step wage target for a build:
// clamp(3..6, ceil(max(8, buildCost) / (minCalls × 2))).
func WorkWage(buildCost int64, minCalls int) int64 {
	base := buildCost
	if base < 8 {
		base = 8
	}
	if minCalls < 1 {
		minCalls = 1
	}
	wage := int64(math.Ceil(float64(base) / float64(minCalls*2)))
	if wage < 3 {
		wage = 3
	}
	if wage > 6 {
		wage = 6
	}
	return wage
}

// CompletionBonus returns the bonus paid on complete_build:
// clamp(6..24, round(0.45 × max(10, buildCost))).
func CompletionBonus(buildCost int64) int64 {
	base := buildCost
	if base < 10 {
		base = 10
	}
	bonus := int64(math.Round(0.45 * float64(base)))
	if bonus < 6 {
		bonus = 6
	}
	if bonus > 24 {
		bonus = 24
	}
	return bonus
}

// Upkeep returns the per-tick upkeep: max(1, round(base × multiplier)).
func Upkeep(worldUpkeepMultiplier float64) int64 {
	u := int64(math.Round(float64(BaseUpkeepArena) * worldUpkeepMultiplier))
	if u < 1 {
		u = 1
	}
	return u
}

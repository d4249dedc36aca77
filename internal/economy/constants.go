// Package economy implements the money rules the core enforces: upkeep,
// solvency rescue and repayment, work wages, completion bonuses, streak
// rewards, the fumble tax, and the pool-floor invariant.
package economy

// Solvency rescue parameters.
const (
	SolvencyRescueTriggerBankroll = 35
	SolvencyRescueTriggerReserve  = 5
	SolvencyRescueArena           = 30
	SolvencyRescueCooldownTicks   = 3
	SolvencyRescueHealthBump      = 3
	SolvencyRescueWindowTicks     = 16
	SolvencyRescueMaxPerWindow    = 2
	SolvencyRescueRepaymentBps    = 2500
	SolvencyRescueRepaymentFloor  = 90
	SolvencyPoolFloor             = 1000
)

// Cost model. These are the single tunable block for claim and build pricing;
// every bound the dispatcher enforces derives from them.
const (
	ClaimBaseCost          = 6
	ClaimLevelStep         = 0.25 // per town level above 1
	BootstrapDiscountMul   = 0.45 // ~55% off for agents with no plots
	BaseUpkeepArena        = 1
	FumbleTaxArena         = 1
	FumbleTaxBankrollFloor = 4
)

// ZoneBaseCost returns the base build cost per zone in $ARENA.
func ZoneBaseCost(zone string) int64 {
	switch zone {
	case "RESIDENTIAL":
		return 8
	case "COMMERCIAL":
		return 12
	case "CIVIC":
		return 16
	case "INDUSTRIAL":
		return 12
	case "ENTERTAINMENT":
		return 14
	default:
		return 12
	}
}

// Streak milestones: consecutive non-rest actions → one-time reward.
var streakMilestones = []struct {
	Streak int
	Reward int64
}{
	{3, 6},
	{5, 10},
	{8, 14},
	{13, 20},
}

// StreakReward returns the reward due when a streak reaches exactly the given
// length and that milestone has not been paid this streak. Zero means none.
func StreakReward(current, lastRewarded int) int64 {
	for _, m := range streakMilestones {
		if current == m.Streak && lastRewarded < m.Streak {
			return m.Reward
		}
	}
	return 0
}

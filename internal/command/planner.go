package command

import (
	"fmt"

	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// PlanKind is the operator-facing action family.
type PlanKind string

const (
	PlanBuild PlanKind = "build"
	PlanWork  PlanKind = "work"
	PlanFight PlanKind = "fight"
	PlanTrade PlanKind = "trade"
	PlanRest  PlanKind = "rest"
)

// Plan is the planner result: either an intent with params, or a refusal.
type Plan struct {
	OK         bool
	Intent     string
	Params     map[string]any
	Note       string
	ReasonCode string
	Reason     string
}

// Trade planner thresholds.
const (
	tradeBuyMinReserve   = 12
	tradeBuyMaxBankroll  = 130
	tradeSellMinBankroll = 40
	tradeSellMaxAmount   = 80
	tradeSellMinAmount   = 10
)

// PlanDeterministicAction maps an operator's coarse intent onto a concrete
// command intent using only the observation. It is pure: no side effects, and
// the same observation always yields the same plan.
func PlanDeterministicAction(obs *observe.Observation, kind PlanKind) Plan {
	switch kind {
	case PlanRest:
		return Plan{OK: true, Intent: "rest", Params: map[string]any{}, Note: "Resting on request"}

	case PlanFight:
		gameType := "POKER"
		wager := int64(25)
		if obs.Wheel.Phase != world.WheelIdle && obs.Wheel.GameType != "" {
			gameType = obs.Wheel.GameType
			wager = obs.Wheel.Wager
		}
		return Plan{
			OK:     true,
			Intent: "play_arena",
			Params: map[string]any{"gameType": gameType, "wager": wager},
			Note:   fmt.Sprintf("Queueing a %s match for %d $ARENA", gameType, wager),
		}

	case PlanWork:
		target := mostWorkedPlot(obs)
		if target == nil {
			return Plan{
				OK:         false,
				ReasonCode: ReasonConstraintViolation,
				Reason:     "No active construction to work on",
			}
		}
		return Plan{
			OK:     true,
			Intent: "do_work",
			Params: map[string]any{"plotId": target.ID, "plotIndex": target.Index},
			Note:   fmt.Sprintf("Continuing %s (%d steps logged)", plotLabel(*target), target.APICallsUsed),
		}

	case PlanBuild:
		return planBuild(obs)

	case PlanTrade:
		return planTrade(obs)

	default:
		return Plan{OK: false, ReasonCode: ReasonInvalidIntent, Reason: fmt.Sprintf("Unknown plan kind %q", kind)}
	}
}

// planBuild prefers continuing an active build, then starting on a claimed
// plot, then bootstrapping a claim.
func planBuild(obs *observe.Observation) Plan {
	if target := mostWorkedPlot(obs); target != nil {
		return Plan{
			OK:     true,
			Intent: "do_work",
			Params: map[string]any{"plotId": target.ID, "plotIndex": target.Index, "continue": true},
			Note:   fmt.Sprintf("Continuing construction on %s", plotLabel(*target)),
		}
	}

	if claimed := obs.Claimed(); len(claimed) > 0 {
		p := claimed[0]
		return Plan{
			OK:     true,
			Intent: "start_build",
			Params: map[string]any{"plotId": p.ID, "plotIndex": p.Index, "buildingType": defaultBuildingType(p.Zone)},
			Note:   fmt.Sprintf("Starting a build on claimed plot %d", p.Index),
		}
	}

	// Bootstrap: claim a plot.
	if obs.Town == nil || len(obs.AvailablePlots) == 0 {
		return Plan{OK: false, ReasonCode: ReasonTargetUnavailable, Reason: "No claimable plot available"}
	}
	cost := estimateClaimCost(obs)
	if obs.Agent.Bankroll < cost {
		return Plan{
			OK:         false,
			ReasonCode: ReasonInsufficientArena,
			Reason:     fmt.Sprintf("Need about %d $ARENA to claim a plot, have %d", cost, obs.Agent.Bankroll),
		}
	}
	p := obs.AvailablePlots[0]
	return Plan{
		OK:     true,
		Intent: "claim_plot",
		Params: map[string]any{"plotIndex": p.Index},
		Note:   fmt.Sprintf("Claiming plot %d (~%d $ARENA)", p.Index, cost),
	}
}

// planTrade rebalances toward a playable bankroll.
func planTrade(obs *observe.Observation) Plan {
	a := obs.Agent
	if a.ReserveBalance >= tradeBuyMinReserve && a.Bankroll <= tradeBuyMaxBankroll {
		return Plan{
			OK:     true,
			Intent: "buy_arena",
			Params: map[string]any{"amountIn": a.ReserveBalance, "nextAction": "play_arena"},
			Note:   fmt.Sprintf("Converting %d reserve into $ARENA", a.ReserveBalance),
		}
	}
	if a.Bankroll >= tradeSellMinBankroll {
		amount := a.Bankroll - tradeBuyMaxBankroll
		if amount < tradeSellMinAmount {
			amount = tradeSellMinAmount
		}
		if amount > tradeSellMaxAmount {
			amount = tradeSellMaxAmount
		}
		return Plan{
			OK:     true,
			Intent: "sell_arena",
			Params: map[string]any{"amountIn": amount, "nextAction": "start_build"},
			Note:   fmt.Sprintf("Selling %d $ARENA into reserve", amount),
		}
	}
	return Plan{
		OK:         false,
		ReasonCode: ReasonConstraintViolation,
		Reason:     "Balances too thin to trade either direction",
	}
}

// mostWorkedPlot returns the owned under-construction plot with the most
// logged steps, or nil.
func mostWorkedPlot(obs *observe.Observation) *world.Plot {
	var best *world.Plot
	for i := range obs.OwnedPlots {
		p := &obs.OwnedPlots[i]
		if p.Status != world.PlotUnderConstruction {
			continue
		}
		if best == nil || p.APICallsUsed > best.APICallsUsed {
			best = p
		}
	}
	return best
}

func estimateClaimCost(obs *observe.Observation) int64 {
	// Scarcity as visible to this agent: owned plots count as claimed supply.
	claimed := len(obs.OwnedPlots)
	total := len(obs.AvailablePlots) + len(obs.OwnedPlots)
	level := 1
	if obs.Town != nil {
		level = obs.Town.Level
	}
	costMul := obs.WorldStats.CostMultiplier
	if costMul == 0 {
		costMul = 1
	}
	bootstrap := len(obs.OwnedPlots) == 0
	return economy.EstimateClaimCost(level, claimed, total, bootstrap, costMul)
}

func defaultBuildingType(z world.Zone) string {
	switch z {
	case world.ZoneResidential:
		return "house"
	case world.ZoneCommercial:
		return "shop"
	case world.ZoneCivic:
		return "hall"
	case world.ZoneIndustrial:
		return "workshop"
	case world.ZoneEntertainment:
		return "tavern"
	default:
		return "house"
	}
}

func plotLabel(p world.Plot) string {
	if p.BuildingName != "" {
		return p.BuildingName
	}
	if p.BuildingType != "" {
		return fmt.Sprintf("the %s on plot %d", p.BuildingType, p.Index)
	}
	return fmt.Sprintf("plot %d", p.Index)
}

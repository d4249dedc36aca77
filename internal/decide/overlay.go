package decide

import (
	"fmt"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// Overlay codes.
const (
	CodeIncapacitated      = "INCAPACITATED"
	CodeTradeCooldown      = "TRADE_COOLDOWN"
	CodeTradeWithoutPlan   = "TRADE_WITHOUT_PLAN"
	CodeInitialFoothold    = "INITIAL_FOOTHOLD"
	CodeCompleteReadyBuild = "COMPLETE_READY_BUILD"
	CodeKeepBuildMomentum  = "KEEP_BUILD_MOMENTUM"
	CodeStartClaimedBuild  = "START_CLAIMED_BUILD"
	CodeLiveObjectiveClaim = "LIVE_OBJECTIVE_CLAIM"
	CodeUnderfundedAction  = "UNDERFUNDED_ACTION"
)

const (
	// tradeCooldownTicks is the minimum gap between AMM trades.
	tradeCooldownTicks = 3

	// softPolicyBudget closes rewrites once the recent override rate hits it.
	softPolicyBudget = 0.4
)

// ApplyOverlays runs the soft-policy chain over a model-sourced action.
// Rewrites other than the hard-safety tier are gated on the agent's recent
// override rate staying under the budget; over budget the chain still emits
// notes but leaves the action alone. The chain stops at the first rewrite.
func ApplyOverlays(obs *observe.Observation, rt *agent.Runtime, act action.Action) (action.Action, []PolicyNote) {
	a := obs.Agent
	var notes []PolicyNote

	// Hard safety ignores the budget: incapacitated agents only rest.
	if a.Incapacitated() && act.Type != action.TypeRest {
		notes = append(notes, PolicyNote{
			Tier:    TierHardSafety,
			Code:    CodeIncapacitated,
			Message: "agent has no health; forcing rest",
			Applied: true,
		})
		return action.Redirect(action.TypeRest, "incapacitated, resting to recover", action.Params{}), notes
	}

	budgetOpen := rt.OverrideRate(a.ID) < softPolicyBudget

	rewrite := func(n PolicyNote, replacement action.Action) (action.Action, bool) {
		n.Applied = budgetOpen
		notes = append(notes, n)
		if !budgetOpen {
			return act, false
		}
		return replacement, true
	}

	switch act.Type {
	case action.TypeBuyArena, action.TypeSellArena:
		if last, ok := rt.LastTradeTick(a.ID); ok && obs.Tick-last < tradeCooldownTicks {
			out, done := rewrite(PolicyNote{
				Tier:    TierEconomicWarning,
				Code:    CodeTradeCooldown,
				Message: fmt.Sprintf("traded on tick %d, cooldown is %d ticks", last, tradeCooldownTicks),
			}, action.Redirect(action.TypeRest, "trade cooldown active, holding position", action.Params{}))
			if done {
				return out, notes
			}
		} else if act.Params.Why == "" || act.Params.NextAction == "" {
			out, done := rewrite(PolicyNote{
				Tier:    TierEconomicWarning,
				Code:    CodeTradeWithoutPlan,
				Message: "trade has no stated why/nextAction",
			}, action.Redirect(action.TypeRest, "trade lacked a plan, holding instead", action.Params{}))
			if done {
				return out, notes
			}
		}

	case action.TypeRest:
		if !a.Incapacitated() {
			if out, done := restNudge(obs, rewrite); done {
				return out, notes
			}
		}
	}

	// Ready builds should ship even when the model chose something else,
	// unless it is spending on blueprint intel first.
	if act.Type != action.TypeCompleteBuild && !skippingForBlueprint(act) {
		if ready := obs.ReadyToComplete(); len(ready) > 0 {
			p := ready[0]
			out, done := rewrite(PolicyNote{
				Tier:    TierStrategyNudge,
				Code:    CodeCompleteReadyBuild,
				Message: fmt.Sprintf("plot %d has met its minimum work steps", p.Index),
			}, action.Redirect(action.TypeCompleteBuild,
				fmt.Sprintf("plot %d is ready, completing before anything else", p.Index),
				action.Params{PlotID: p.ID}))
			if done {
				return out, notes
			}
		}
	}

	// Affordability check never rewrites; it only annotates, and only when
	// rotating the whole reserve could not cover the shortfall either.
	if spend := plannedSpend(obs, act); spend > 0 && spend > a.Bankroll+a.ReserveBalance {
		notes = append(notes, PolicyNote{
			Tier: TierEconomicWarning,
			Code: CodeUnderfundedAction,
			Message: fmt.Sprintf("action wants %d $ARENA, bankroll %d plus reserve %d cannot cover it",
				spend, a.Bankroll, a.ReserveBalance),
		})
	}

	return act, notes
}

// restNudge redirects an idle rest toward the most valuable pending move.
func restNudge(obs *observe.Observation, rewrite func(PolicyNote, action.Action) (action.Action, bool)) (action.Action, bool) {
	// 1. No land at all: grab a foothold while plots remain.
	if len(obs.OwnedPlots) == 0 && len(obs.AvailablePlots) > 0 {
		idx := obs.AvailablePlots[0].Index
		out, done := rewrite(PolicyNote{
			Tier:    TierStrategyNudge,
			Code:    CodeInitialFoothold,
			Message: "agent owns nothing while plots are open",
		}, action.Redirect(action.TypeClaimPlot, "resting with no land, claiming a foothold instead",
			action.Params{PlotIndex: &idx}))
		return out, done
	}

	// 2. Active construction should not sit idle.
	if uc := obs.UnderConstruction(); len(uc) > 0 {
		p := uc[0]
		out, done := rewrite(PolicyNote{
			Tier:    TierStrategyNudge,
			Code:    CodeKeepBuildMomentum,
			Message: fmt.Sprintf("plot %d is mid-construction", p.Index),
		}, action.Redirect(action.TypeDoWork, "keeping the active build moving instead of resting",
			action.Params{PlotID: p.ID}))
		return out, done
	}

	// 3. Claimed-but-empty land should break ground.
	if claimed := obs.Claimed(); len(claimed) > 0 {
		p := claimed[0]
		out, done := rewrite(PolicyNote{
			Tier:    TierStrategyNudge,
			Code:    CodeStartClaimedBuild,
			Message: fmt.Sprintf("plot %d is claimed with no build", p.Index),
		}, action.Redirect(action.TypeStartBuild, "claimed land is idle, breaking ground instead of resting",
			action.Params{PlotID: p.ID, BuildingType: "house"}))
		return out, done
	}

	// 4. A live objective plot that is still open.
	for _, o := range obs.Objectives {
		for _, p := range obs.AvailablePlots {
			if p.Index == o.PlotIndex {
				idx := p.Index
				out, done := rewrite(PolicyNote{
					Tier:    TierStrategyNudge,
					Code:    CodeLiveObjectiveClaim,
					Message: fmt.Sprintf("objective plot %d is still claimable", p.Index),
				}, action.Redirect(action.TypeClaimPlot,
					fmt.Sprintf("objective targets plot %d, claiming it instead of resting", p.Index),
					action.Params{PlotIndex: &idx}))
				return out, done
			}
		}
	}

	return action.Action{}, false
}

// skippingForBlueprint reports whether the action is a blueprint-intel
// purchase, which is allowed to defer a ready completion by one tick.
func skippingForBlueprint(act action.Action) bool {
	return act.Type == action.TypeBuySkill &&
		world.SkillKind(act.Params.Skill) == world.SkillBlueprintIndex
}

// plannedSpend is the $ARENA the action commits up front, 0 when unknown.
// Claim and build spend is estimated from the observation.
func plannedSpend(obs *observe.Observation, act action.Action) int64 {
	switch act.Type {
	case action.TypeSellArena:
		return act.Params.AmountIn
	case action.TypePlayArena:
		return act.Params.Wager
	case action.TypeTransferArena:
		return act.Params.Amount
	case action.TypeClaimPlot:
		if obs.Town == nil {
			return 0
		}
		claimed := len(obs.OwnedPlots)
		total := len(obs.AvailablePlots) + claimed
		return economy.EstimateClaimCost(obs.Town.Level, claimed, total, claimed == 0, costMultiplier(obs))
	case action.TypeStartBuild:
		if obs.Town == nil {
			return 0
		}
		target := buildTarget(obs, act)
		if target == nil {
			return 0
		}
		return economy.BuildCost(string(target.Zone), obs.Town.Level, costMultiplier(obs), len(obs.OwnedPlots) == 0)
	}
	return 0
}

// buildTarget resolves the claimed plot a start_build aims at, falling back
// to the first claimed plot when the params name none.
func buildTarget(obs *observe.Observation, act action.Action) *world.Plot {
	claimed := obs.Claimed()
	for i := range claimed {
		p := &claimed[i]
		if act.Params.PlotID != "" && p.ID == act.Params.PlotID {
			return p
		}
		if act.Params.PlotIndex != nil && p.Index == *act.Params.PlotIndex {
			return p
		}
	}
	if len(claimed) > 0 {
		return &claimed[0]
	}
	return nil
}

func costMultiplier(obs *observe.Observation) float64 {
	if obs.WorldStats.CostMultiplier > 0 {
		return obs.WorldStats.CostMultiplier
	}
	return 1
}

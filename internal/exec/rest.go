package exec

import (
	"context"
	"fmt"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// execRest executes rest, but an agent with obvious work in front of it gets
// redirected rather than left idle. Strict rest (a forced command) and
// incapacitated rest are honored as-is.
func (d *Dispatcher) execRest(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	if !strict && !a.Incapacitated() && obs.Town != nil {
		if obs.Wheel.Phase == world.WheelAnnouncing || obs.Wheel.Phase == world.WheelFighting {
			if !a.IsInMatch && a.Bankroll >= minFightBankroll {
				return d.run(ctx, obs, action.Redirect(action.TypePlayArena, "the wheel demands a fight",
					action.Params{GameType: obs.Wheel.GameType, Wager: obs.Wheel.Wager}), strict, depth+1)
			}
		}
		if uc := obs.UnderConstruction(); len(uc) > 0 {
			return d.run(ctx, obs, action.Redirect(action.TypeDoWork, "a build is waiting",
				action.Params{PlotID: uc[0].ID}), strict, depth+1)
		}
		if claimed := obs.Claimed(); len(claimed) > 0 {
			cost := economy.BuildCost(string(claimed[0].Zone), obs.Town.Level, d.costMultiplier(obs), false)
			if a.Bankroll >= cost {
				return d.run(ctx, obs, action.Redirect(action.TypeStartBuild, "claimed land is idle",
					action.Params{PlotID: claimed[0].ID, BuildingType: "house"}), strict, depth+1)
			}
		}
	}

	narrative := fmt.Sprintf("%s rests and takes stock.", a.Name)
	if act.Reasoning != "" {
		narrative = fmt.Sprintf("%s rests: %s", a.Name, act.Reasoning)
	}
	return &Result{Action: act, Success: true, Narrative: narrative}
}

// execMine is the legacy mining verb: it always redirects.
func (d *Dispatcher) execMine(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	if uc := obs.UnderConstruction(); len(uc) > 0 {
		return d.run(ctx, obs, action.Redirect(action.TypeDoWork, "mining maps to build work now",
			action.Params{PlotID: uc[0].ID}), strict, depth+1)
	}
	return d.run(ctx, obs, action.Redirect(action.TypeRest, "nothing to mine", action.Params{}), strict, depth+1)
}

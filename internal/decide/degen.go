package decide

import (
	"fmt"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// Degen-loop trading thresholds for the profit-rotation leg.
const (
	degenBuyMinReserve  = 10
	degenBuyMaxBankroll = 60
	degenSellBankroll   = 160
	degenSellAmount     = 50
)

// DegenAction is the closed-form policy for DEGEN_LOOP agents: no model call,
// ever. nudge is an optional instruction hint in {build, work, fight, trade}.
func DegenAction(obs *observe.Observation, nudge string) action.Action {
	a := obs.Agent

	// Incapacitated agents can only rest, regardless of nudges.
	if a.Incapacitated() {
		return action.Rest("out cold; sleeping it off")
	}

	// 1. An active wheel fight beats everything.
	if obs.Wheel.Phase == world.WheelAnnouncing || obs.Wheel.Phase == world.WheelFighting {
		if !a.IsInMatch && a.Bankroll >= 10 {
			return action.Action{
				Type:      action.TypePlayArena,
				Reasoning: "wheel says fight, so we fight",
				Params:    action.Params{GameType: obs.Wheel.GameType, Wager: obs.Wheel.Wager},
			}
		}
	}

	// 2. Explicit nudges.
	switch nudge {
	case "fight":
		if !a.IsInMatch && a.Bankroll >= 10 {
			return action.Action{
				Type:      action.TypePlayArena,
				Reasoning: "told to fight; happy to oblige",
				Params:    action.Params{GameType: "POKER", Wager: 25},
			}
		}
	case "trade":
		if swap := profitRotation(obs); swap != nil {
			return *swap
		}
	case "work":
		if uc := obs.UnderConstruction(); len(uc) > 0 {
			return workOn(uc[0])
		}
	}

	// 3. Complete a build that has met its minimum steps.
	if ready := obs.ReadyToComplete(); len(ready) > 0 {
		p := ready[0]
		return action.Action{
			Type:      action.TypeCompleteBuild,
			Reasoning: fmt.Sprintf("plot %d is done cooking; ship it", p.Index),
			Params:    action.Params{PlotID: p.ID},
		}
	}

	// 4. Continue an active build.
	if uc := obs.UnderConstruction(); len(uc) > 0 {
		return workOn(uc[0])
	}

	// 5. Start building on a claimed plot.
	if claimed := obs.Claimed(); len(claimed) > 0 {
		p := claimed[0]
		return action.Action{
			Type:      action.TypeStartBuild,
			Reasoning: fmt.Sprintf("claimed plot %d is just sitting there", p.Index),
			Params:    action.Params{PlotID: p.ID, BuildingType: "tavern"},
		}
	}

	// 6. Bootstrap claim, but only when explicitly nudged to build.
	if nudge == "build" && len(obs.AvailablePlots) > 0 {
		idx := obs.AvailablePlots[0].Index
		return action.Action{
			Type:      action.TypeClaimPlot,
			Reasoning: "told to build with no land; grabbing a plot",
			Params:    action.Params{PlotIndex: &idx},
		}
	}

	// 7. Profit rotation.
	if swap := profitRotation(obs); swap != nil {
		return *swap
	}

	// 8. Idle hold.
	return action.Rest("nothing worth doing; holding")
}

func workOn(p world.Plot) action.Action {
	return action.Action{
		Type:      action.TypeDoWork,
		Reasoning: fmt.Sprintf("grinding plot %d (%d steps in)", p.Index, p.APICallsUsed),
		Params:    action.Params{PlotID: p.ID},
	}
}

// profitRotation swaps toward whichever balance is lopsided, or nil when
// balances are fine.
func profitRotation(obs *observe.Observation) *action.Action {
	a := obs.Agent
	if a.ReserveBalance >= degenBuyMinReserve && a.Bankroll <= degenBuyMaxBankroll {
		return &action.Action{
			Type:      action.TypeBuyArena,
			Reasoning: "bankroll thin, reserve idle; rotating in",
			Params: action.Params{
				AmountIn:   a.ReserveBalance,
				Why:        "bankroll below playable threshold",
				NextAction: "claim_plot",
			},
		}
	}
	if a.Bankroll >= degenSellBankroll {
		return &action.Action{
			Type:      action.TypeSellArena,
			Reasoning: "bankroll fat; taking profits",
			Params: action.Params{
				AmountIn:   degenSellAmount,
				Why:        "locking in winnings above the working float",
				NextAction: "do_work",
			},
		}
	}
	return nil
}

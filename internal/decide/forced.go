package decide

import (
	"fmt"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/command"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// TranslateCommand deterministically converts a forcing command's intent and
// params into a concrete Action. On failure it returns a rejection reason
// code from {INVALID_INTENT, TARGET_UNAVAILABLE, CONSTRAINT_VIOLATION} and
// the engine falls through to the normal decision path.
func TranslateCommand(cmd *command.Command, obs *observe.Observation) (action.Action, string, error) {
	reasoning := fmt.Sprintf("Owner command %s: %s", cmd.Mode, cmd.Intent)
	act := action.FromDetails(cmd.Intent, reasoning, cmd.Params)
	if act.Type == action.TypeRest && cmd.Intent != string(action.TypeRest) {
		return action.Action{}, command.ReasonInvalidIntent,
			fmt.Errorf("unknown command intent %q", cmd.Intent)
	}

	// Resolve and validate targets the command names.
	switch act.Type {
	case action.TypeClaimPlot:
		if act.Params.PlotIndex == nil {
			// Pick the first available plot for an indexless claim.
			if len(obs.AvailablePlots) == 0 {
				return action.Action{}, command.ReasonTargetUnavailable,
					fmt.Errorf("no claimable plot in town")
			}
			idx := obs.AvailablePlots[0].Index
			act.Params.PlotIndex = &idx
			return act, "", nil
		}
		for _, p := range obs.AvailablePlots {
			if p.Index == *act.Params.PlotIndex {
				return act, "", nil
			}
		}
		return action.Action{}, command.ReasonTargetUnavailable,
			fmt.Errorf("plot %d is not available", *act.Params.PlotIndex)

	case action.TypeStartBuild:
		if act.Params.BuildingType == "" {
			return action.Action{}, command.ReasonInvalidIntent,
				fmt.Errorf("start_build requires buildingType")
		}

	case action.TypeDoWork:
		if act.Params.PlotID == "" && act.Params.PlotIndex == nil {
			if len(obs.UnderConstruction()) == 0 {
				return action.Action{}, command.ReasonConstraintViolation,
					fmt.Errorf("no active construction to work on")
			}
		}

	case action.TypeCompleteBuild:
		if len(obs.ReadyToComplete()) == 0 && act.Params.PlotID == "" {
			return action.Action{}, command.ReasonConstraintViolation,
				fmt.Errorf("no build has met its minimum work steps")
		}

	case action.TypeTransferArena:
		if act.Params.TargetName == "" || act.Params.Amount <= 0 {
			return action.Action{}, command.ReasonInvalidIntent,
				fmt.Errorf("transfer_arena requires targetName and a positive amount")
		}

	case action.TypeBuySkill:
		if !world.ValidSkill(world.SkillKind(act.Params.Skill)) {
			return action.Action{}, command.ReasonInvalidIntent,
				fmt.Errorf("unknown skill %q", act.Params.Skill)
		}
	}

	// Enforce explicit constraints the owner attached.
	if cmd.Constraints != nil {
		if maxSpend, ok := numConstraint(cmd.Constraints, "maxSpend"); ok {
			spend := act.Params.AmountIn + act.Params.Amount + act.Params.Wager
			if spend > maxSpend {
				return action.Action{}, command.ReasonConstraintViolation,
					fmt.Errorf("action spends %d, constraint caps at %d", spend, maxSpend)
			}
		}
	}

	return act, "", nil
}

func numConstraint(m map[string]any, key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

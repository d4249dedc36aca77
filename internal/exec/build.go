package exec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/llm"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// minRedirectReserve is the reserve below which a broke agent cannot usefully
// rotate into $ARENA.
const minRedirectReserve = 10

func (d *Dispatcher) execClaim(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	idx := act.Params.PlotIndex
	if idx == nil {
		if strict {
			return fail(act, ErrInvalidPlotIndex, "claim_plot requires plotIndex")
		}
		if len(obs.AvailablePlots) == 0 {
			return d.run(ctx, obs, action.Redirect(action.TypeRest, "no plot to claim", action.Params{}), strict, depth+1)
		}
		i := obs.AvailablePlots[0].Index
		idx = &i
	}

	var target *world.Plot
	for i := range obs.AvailablePlots {
		if obs.AvailablePlots[i].Index == *idx {
			target = &obs.AvailablePlots[i]
			break
		}
	}
	if target == nil {
		if strict {
			return fail(act, ErrTargetUnavailable, fmt.Sprintf("plot %d is not claimable", *idx))
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "plot already taken", action.Params{}), strict, depth+1)
	}

	cost := d.claimCost(obs)
	if a.Bankroll < cost {
		if strict {
			return fail(act, ErrInsufficientArena, fmt.Sprintf("claim costs ~%d, bankroll %d", cost, a.Bankroll))
		}
		if a.ReserveBalance >= minRedirectReserve {
			return d.run(ctx, obs, action.Redirect(action.TypeBuyArena, "funding a plot claim",
				action.Params{AmountIn: a.ReserveBalance, Why: "need $ARENA for a claim", NextAction: "claim_plot"}), strict, depth+1)
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "cannot afford a claim", action.Params{}), strict, depth+1)
	}

	plot, err := d.Town.ClaimPlot(ctx, a.ID, obs.Town.ID, *idx)
	if err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("claim plot: %v", err))
	}
	if err := d.Agents.CreditBankroll(ctx, a.ID, -cost); err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("debit claim cost: %v", err))
	}
	a.Bankroll -= cost
	if err := d.Pool.CreditArena(ctx, cost); err != nil {
		slog.Warn("claim cost pool credit failed", "err", err)
	}

	narrative := fmt.Sprintf("%s stakes out plot %d (%s) for %d $ARENA.", a.Name, plot.Index, plot.Zone, cost)
	d.logEvent(ctx, obs, world.EventBuild, "Plot claimed", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative, TargetPlot: plot.ID}
}

func (d *Dispatcher) execStartBuild(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	if act.Params.BuildingType == "" {
		if strict {
			return fail(act, ErrNoClaimedPlot, "start_build requires buildingType")
		}
		act.Params.BuildingType = "house"
	}

	target := resolveOwnedPlot(obs, act.Params.PlotID, act.Params.PlotIndex, world.PlotClaimed)

	// Already-building targets continue instead of restarting.
	if target == nil {
		if uc := resolveOwnedPlot(obs, act.Params.PlotID, act.Params.PlotIndex, world.PlotUnderConstruction); uc != nil {
			if strict {
				return fail(act, ErrTargetUnavailable, fmt.Sprintf("plot %d is already under construction", uc.Index))
			}
			return d.run(ctx, obs, action.Redirect(action.TypeDoWork, "build already underway, continuing it",
				action.Params{PlotID: uc.ID}), strict, depth+1)
		}
	}
	if target == nil {
		if claimed := obs.Claimed(); len(claimed) > 0 {
			target = &claimed[0]
		}
	}
	if target == nil {
		// Auto-claim an empty plot when nothing is owned.
		if strict {
			return fail(act, ErrNoClaimedPlot, "no claimed plot to build on")
		}
		if len(obs.AvailablePlots) > 0 {
			idx := obs.AvailablePlots[0].Index
			return d.run(ctx, obs, action.Redirect(action.TypeClaimPlot, "claiming land before building",
				action.Params{PlotIndex: &idx}), strict, depth+1)
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "nowhere to build", action.Params{}), strict, depth+1)
	}

	cost := economy.BuildCost(string(target.Zone), obs.Town.Level, d.costMultiplier(obs), len(obs.OwnedPlots) == 0)
	if a.Bankroll < cost {
		if strict {
			return fail(act, ErrInsufficientArena, fmt.Sprintf("build costs %d, bankroll %d", cost, a.Bankroll))
		}
		if a.ReserveBalance >= minRedirectReserve {
			return d.run(ctx, obs, action.Redirect(action.TypeBuyArena, "funding a build",
				action.Params{AmountIn: a.ReserveBalance, Why: "need $ARENA to break ground", NextAction: "start_build"}), strict, depth+1)
		}
		if len(obs.UnderConstruction()) > 0 {
			return d.run(ctx, obs, action.Redirect(action.TypeDoWork, "earning wages before a new build", action.Params{}), strict, depth+1)
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "cannot afford to build", action.Params{}), strict, depth+1)
	}

	if err := d.Town.StartBuild(ctx, a.ID, target.ID, act.Params.BuildingType, cost); err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("start build: %v", err))
	}
	if err := d.Agents.CreditBankroll(ctx, a.ID, -cost); err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("debit build cost: %v", err))
	}
	a.Bankroll -= cost
	if err := d.Pool.CreditArena(ctx, cost); err != nil {
		slog.Warn("build cost pool credit failed", "err", err)
	}

	narrative := fmt.Sprintf("%s breaks ground on a %s at plot %d for %d $ARENA.",
		a.Name, act.Params.BuildingType, target.Index, cost)
	d.logEvent(ctx, obs, world.EventBuild, "Construction started", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative, TargetPlot: target.ID}
}

func (d *Dispatcher) execDoWork(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	target := resolveOwnedPlot(obs, act.Params.PlotID, act.Params.PlotIndex, world.PlotUnderConstruction)
	if target == nil {
		if uc := obs.UnderConstruction(); len(uc) > 0 {
			best := uc[0]
			for _, p := range uc[1:] {
				if p.APICallsUsed > best.APICallsUsed {
					best = p
				}
			}
			target = &best
		}
	}
	if target == nil {
		if strict {
			return fail(act, ErrNoActiveBuild, "no active construction to work on")
		}
		if claimed := obs.Claimed(); len(claimed) > 0 {
			return d.run(ctx, obs, action.Redirect(action.TypeStartBuild, "no build yet, breaking ground first",
				action.Params{PlotID: claimed[0].ID, BuildingType: "house"}), strict, depth+1)
		}
		if len(obs.AvailablePlots) > 0 {
			idx := obs.AvailablePlots[0].Index
			return d.run(ctx, obs, action.Redirect(action.TypeClaimPlot, "no land yet, claiming first",
				action.Params{PlotIndex: &idx}), strict, depth+1)
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "nothing to work on", action.Params{}), strict, depth+1)
	}

	step := target.APICallsUsed + 1
	content := d.workProse(ctx, a.ModelID, target, step)
	if err := d.Town.SubmitWork(ctx, a.ID, target.ID, content); err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("submit work: %v", err))
	}

	if step == 1 {
		if name := extractBuildingName(content, target.BuildingType, target.Index); name != "" {
			if err := d.Town.SetBuildingName(ctx, target.ID, name); err != nil {
				slog.Warn("set building name failed", "plot", target.ID, "err", err)
			}
		}
	}

	wage := economy.WorkWage(target.BuildCost, world.MinWorkCalls(target.Zone))
	granted, err := economy.DebitUnderFloor(ctx, d.Pool, wage)
	if err != nil {
		slog.Warn("wage pool debit failed", "err", err)
	} else if granted > 0 {
		if err := d.Agents.CreditBankroll(ctx, a.ID, granted); err != nil {
			slog.Warn("wage credit failed", "agent", a.Name, "err", err)
		} else {
			a.Bankroll += granted
		}
	}

	min := world.MinWorkCalls(target.Zone)
	narrative := fmt.Sprintf("%s logs design step %d/%d on plot %d and earns %d $ARENA.",
		a.Name, step, min, target.Index, granted)
	d.logEvent(ctx, obs, world.EventBuild, "Work logged", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative, TargetPlot: target.ID}
}

func (d *Dispatcher) execCompleteBuild(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	target := resolveOwnedPlot(obs, act.Params.PlotID, act.Params.PlotIndex, world.PlotUnderConstruction)
	if target == nil {
		if ready := obs.ReadyToComplete(); len(ready) > 0 {
			target = &ready[0]
		}
	}
	if target == nil {
		if strict {
			return fail(act, ErrNoActiveBuild, "no build to complete")
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "nothing to complete", action.Params{}), strict, depth+1)
	}
	if target.APICallsUsed < world.MinWorkCalls(target.Zone) {
		if strict {
			return fail(act, ErrNotReady, fmt.Sprintf("plot %d has %d/%d work steps",
				target.Index, target.APICallsUsed, world.MinWorkCalls(target.Zone)))
		}
		return d.run(ctx, obs, action.Redirect(action.TypeDoWork, "build needs more work first",
			action.Params{PlotID: target.ID}), strict, depth+1)
	}

	if err := d.Town.CompleteBuild(ctx, a.ID, target.ID); err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("complete build: %v", err))
	}

	bonus := economy.CompletionBonus(target.BuildCost)
	granted, err := economy.DebitUnderFloor(ctx, d.Pool, bonus)
	if err != nil {
		slog.Warn("bonus pool debit failed", "err", err)
	} else if granted > 0 {
		if err := d.Agents.CreditBankroll(ctx, a.ID, granted); err != nil {
			slog.Warn("bonus credit failed", "agent", a.Name, "err", err)
		} else {
			a.Bankroll += granted
		}
	}

	bounty := d.claimBounty(ctx, obs, target.ID)

	// Visual selection is best-effort and off the tick's critical path.
	if d.Visual != nil {
		bg := context.WithoutCancel(ctx)
		plotID, bType, bName := target.ID, target.BuildingType, target.BuildingName
		go func() {
			if err := d.Visual.SelectVisual(bg, plotID, bType, bName); err != nil {
				slog.Debug("visual selection failed", "plot", plotID, "err", err)
			}
		}()
	}

	d.judgeQuality(ctx, obs, target)

	label := target.BuildingName
	if label == "" {
		label = target.BuildingType
	}
	narrative := fmt.Sprintf("%s completes %s on plot %d and pockets a %d $ARENA bonus.",
		a.Name, label, target.Index, granted)
	if bounty > 0 {
		narrative = fmt.Sprintf("%s A %d $ARENA bounty sweetens the finish.", narrative, bounty)
	}
	d.logEvent(ctx, obs, world.EventBuild, "Building complete", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative, TargetPlot: target.ID}
}

// claimBounty collects any construction bounty open on the finished plot.
// Returns the amount paid, 0 when none applies.
func (d *Dispatcher) claimBounty(ctx context.Context, obs *observe.Observation, plotID string) int64 {
	if d.Bounty == nil {
		return 0
	}
	b, err := d.Bounty.ActiveBounty(ctx, obs.Town.ID, plotID)
	if err != nil {
		slog.Warn("bounty lookup failed", "plot", plotID, "err", err)
		return 0
	}
	if b == nil {
		return 0
	}
	paid, err := d.Bounty.ClaimBounty(ctx, b.ID, obs.Agent.ID)
	if err != nil {
		slog.Warn("bounty claim failed", "bounty", b.ID, "err", err)
		return 0
	}
	if paid > 0 {
		obs.Agent.Bankroll += paid
	}
	return paid
}

// judgeQuality scores the finished build 1-10 and nudges town yield. Failures
// are logged, never surfaced.
func (d *Dispatcher) judgeQuality(ctx context.Context, obs *observe.Observation, plot *world.Plot) {
	if d.Gateway == nil {
		return
	}
	prompt := fmt.Sprintf(
		"Rate the quality of a completed %q building (%d design steps, zone %s) in a growing town. Reply with a single integer 1-10.",
		plot.BuildingType, plot.APICallsUsed, plot.Zone)
	spec := llm.GetModelSpec("haiku")
	completion, err := d.Gateway.CallModel(ctx, spec, []llm.Message{{Role: "user", Content: prompt}}, 0.2, true)
	if err != nil {
		slog.Debug("quality judge failed", "plot", plot.ID, "err", err)
		return
	}
	score := parseScore(completion.Content)
	if score == 0 {
		return
	}
	delta := yieldDelta(score)
	if delta == 0 {
		return
	}
	if err := d.Town.AdjustYield(ctx, obs.Town.ID, delta); err != nil {
		slog.Debug("yield adjust failed", "err", err)
	}
}

// yieldDelta maps a 1-10 quality score onto a ±1..±3 yield move.
func yieldDelta(score int) int {
	switch {
	case score >= 9:
		return 3
	case score >= 7:
		return 2
	case score == 6:
		return 1
	case score == 5:
		return 0
	case score == 4:
		return -1
	case score == 3:
		return -2
	default:
		return -3
	}
}

func parseScore(content string) int {
	for _, f := range strings.Fields(content) {
		f = strings.Trim(f, ".,!/")
		n := 0
		if _, err := fmt.Sscanf(f, "%d", &n); err == nil && n >= 1 && n <= 10 {
			return n
		}
	}
	return 0
}

// workProse produces one 100-300 word design step, via the model when
// available, deterministic filler otherwise.
func (d *Dispatcher) workProse(ctx context.Context, modelID string, plot *world.Plot, step int) string {
	if d.Gateway != nil {
		prompt := fmt.Sprintf(
			"You are designing a %s on plot %d (zone %s). Write design step %d as 100-300 words of concrete construction detail. If this is step 1, open with a line \"Name: <building name>\".",
			plot.BuildingType, plot.Index, plot.Zone, step)
		spec := llm.GetModelSpec(modelID)
		completion, err := d.Gateway.CallModel(ctx, spec, []llm.Message{{Role: "user", Content: prompt}}, 0.7, true)
		if err == nil && completion.Content != "" {
			return completion.Content
		}
		slog.Debug("work prose model call failed, using fallback", "err", err)
	}
	return fmt.Sprintf("Step %d: structural pass on the %s frame at plot %d. Footings checked, load paths verified, materials staged for the next phase.",
		step, plot.BuildingType, plot.Index)
}

// extractBuildingName pulls a name from step-one prose: an explicit
// "Name: ..." line first, then the first quoted phrase, then a default.
func extractBuildingName(content, buildingType string, plotIndex int) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Name:"); ok {
			name := strings.Trim(strings.TrimSpace(rest), `"'*`)
			if name != "" && len(name) <= 60 {
				return name
			}
		}
	}
	if start := strings.Index(content, `"`); start >= 0 {
		if end := strings.Index(content[start+1:], `"`); end > 0 && end <= 60 {
			return content[start+1 : start+1+end]
		}
	}
	return fmt.Sprintf("The %s at %d", buildingType, plotIndex)
}

// resolveOwnedPlot finds an owned plot in the wanted status by id, then by
// index. Nil when neither matches.
func resolveOwnedPlot(obs *observe.Observation, plotID string, plotIndex *int, want world.PlotStatus) *world.Plot {
	for i := range obs.OwnedPlots {
		p := &obs.OwnedPlots[i]
		if p.Status != want {
			continue
		}
		if plotID != "" && p.ID == plotID {
			return p
		}
		if plotIndex != nil && p.Index == *plotIndex {
			return p
		}
	}
	return nil
}

func (d *Dispatcher) claimCost(obs *observe.Observation) int64 {
	claimed := len(obs.OwnedPlots)
	total := len(obs.AvailablePlots) + len(obs.OwnedPlots)
	return economy.EstimateClaimCost(obs.Town.Level, claimed, total, len(obs.OwnedPlots) == 0, d.costMultiplier(obs))
}

func (d *Dispatcher) costMultiplier(obs *observe.Observation) float64 {
	if obs.WorldStats.CostMultiplier > 0 {
		return obs.WorldStats.CostMultiplier
	}
	return 1
}

func (d *Dispatcher) logEvent(ctx context.Context, obs *observe.Observation, kind world.EventKind, title, description string) {
	if obs.Town == nil {
		return
	}
	if err := d.Town.LogEvent(ctx, obs.Town.ID, kind, title, description, obs.Agent.ID, nil); err != nil {
		slog.Warn("log event failed", "kind", kind, "err", err)
	}
}

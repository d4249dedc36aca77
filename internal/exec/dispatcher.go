// Package exec executes validated actions against the world services. Lenient
// execution prefers redirects over failures; strict execution (forcing owner
// commands) surfaces explicit error codes instead.
package exec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/llm"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// Strict-mode error codes.
const (
	ErrInvalidAmount      = "INVALID_AMOUNT"
	ErrInvalidPlotIndex   = "INVALID_PLOT_INDEX"
	ErrNoClaimedPlot      = "NO_CLAIMED_PLOT"
	ErrNoActiveBuild      = "NO_ACTIVE_BUILD"
	ErrNotReady           = "NOT_READY"
	ErrNoOpponents        = "NO_OPPONENTS"
	ErrTargetUnavailable  = "TARGET_UNAVAILABLE"
	ErrInsufficientArena  = "INSUFFICIENT_ARENA"
	ErrMatchCreateFailed  = "MATCH_CREATE_FAILED"
	ErrMatchTimeout       = "MATCH_TIMEOUT"
	ErrNoTown             = "NO_TOWN"
	ErrAgentIncapacitated = "AGENT_INCAPACITATED"
	ErrExecutionError     = "EXECUTION_ERROR"
)

// Result is the outcome of executing one action. Action carries the actually
// executed action, which differs from the input after a lenient redirect.
type Result struct {
	Action     action.Action
	Success    bool
	Narrative  string
	ErrCode    string
	ErrMsg     string
	TargetPlot string
}

// ModelGateway is the slice of the language-model client the dispatcher uses
// for work-step prose and the build-quality judge. May be nil.
type ModelGateway interface {
	CallModel(ctx context.Context, spec llm.ModelSpec, messages []llm.Message, temperature float64, forceNoJSONMode bool) (*llm.Completion, error)
}

// Dispatcher executes actions against the collaborators. Optional services
// (Visual, Wheel, Bounty, Gateway) may be nil.
type Dispatcher struct {
	Town    world.TownService
	AMM     world.AMMService
	Match   world.MatchService
	Skill   world.SkillService
	Visual  world.VisualService
	Wheel   world.WheelService
	Bounty  world.BountyService
	Agents  world.AgentStore
	Pool    economy.PoolStore
	Runtime *agent.Runtime
	Gateway ModelGateway
}

// maxRedirectDepth bounds redirect chains; each hop replaces the action with
// a strictly simpler one, so three is already generous.
const maxRedirectDepth = 3

// Execute runs one action. A panic or unhandled execution error is reified
// into a failed Result and the fumble tax is applied; nothing escapes to the
// scheduler.
func (d *Dispatcher) Execute(ctx context.Context, obs *observe.Observation, act action.Action, strict bool) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("execution panic", "agent", obs.Agent.Name, "action", act.Type, "panic", r)
			d.applyFumbleTax(ctx, obs.Agent)
			res = &Result{
				Action:  action.Rest("recovering from a fumbled action"),
				ErrCode: ErrExecutionError,
				ErrMsg:  fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	res = d.run(ctx, obs, act, strict, 0)
	if !res.Success && res.ErrCode == ErrExecutionError {
		d.applyFumbleTax(ctx, obs.Agent)
	}
	return res
}

func (d *Dispatcher) run(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	if depth > maxRedirectDepth {
		return &Result{Action: action.Rest("redirect chain exhausted"), Success: true,
			Narrative: fmt.Sprintf("%s rests after a tangle of half-starts.", a.Name)}
	}

	if a.Incapacitated() && act.Type != action.TypeRest {
		if strict {
			return fail(act, ErrAgentIncapacitated, "agent has no health")
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "too weak to act", action.Params{}), strict, depth+1)
	}

	if obs.Town == nil && act.Type != action.TypeRest {
		if strict {
			return fail(act, ErrNoTown, "no active town")
		}
		return &Result{Action: action.Rest("no active town"), Success: true,
			Narrative: fmt.Sprintf("%s waits for a town to rise.", a.Name)}
	}

	switch act.Type {
	case action.TypeClaimPlot:
		return d.execClaim(ctx, obs, act, strict, depth)
	case action.TypeStartBuild:
		return d.execStartBuild(ctx, obs, act, strict, depth)
	case action.TypeDoWork:
		return d.execDoWork(ctx, obs, act, strict, depth)
	case action.TypeCompleteBuild:
		return d.execCompleteBuild(ctx, obs, act, strict, depth)
	case action.TypeBuyArena, action.TypeSellArena:
		return d.execSwap(ctx, obs, act, strict, depth)
	case action.TypeTransferArena:
		return d.execTransfer(ctx, obs, act, strict, depth)
	case action.TypeBuySkill:
		return d.execBuySkill(ctx, obs, act, strict)
	case action.TypePlayArena:
		return d.execPlayArena(ctx, obs, act, strict, depth)
	case action.TypeMine:
		return d.execMine(ctx, obs, act, strict, depth)
	case action.TypeRest:
		return d.execRest(ctx, obs, act, strict, depth)
	default:
		return &Result{Action: action.Rest("unknown action"), Success: true,
			Narrative: fmt.Sprintf("%s shrugs off an impossible idea.", a.Name)}
	}
}

// applyFumbleTax docks 1 $ARENA for a fumbled execution, but never below the
// floor, and credits it back to the pool.
func (d *Dispatcher) applyFumbleTax(ctx context.Context, a *agent.Agent) {
	if a.Bankroll-economy.FumbleTaxArena < economy.FumbleTaxBankrollFloor {
		return
	}
	if err := d.Agents.CreditBankroll(ctx, a.ID, -economy.FumbleTaxArena); err != nil {
		slog.Warn("fumble tax debit failed", "agent", a.Name, "err", err)
		return
	}
	a.Bankroll -= economy.FumbleTaxArena
	if err := d.Pool.CreditArena(ctx, economy.FumbleTaxArena); err != nil {
		slog.Warn("fumble tax pool credit failed", "err", err)
	}
}

func fail(act action.Action, code, msg string) *Result {
	return &Result{Action: act, ErrCode: code, ErrMsg: msg}
}

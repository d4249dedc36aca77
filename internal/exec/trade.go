package exec

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

func (d *Dispatcher) execSwap(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	side := world.SwapBuyArena
	balance := a.ReserveBalance
	if act.Type == action.TypeSellArena {
		side = world.SwapSellArena
		balance = a.Bankroll
	}

	amountIn := act.Params.AmountIn
	if amountIn > balance {
		amountIn = balance
	}
	if amountIn <= 0 {
		if strict {
			return fail(act, ErrInvalidAmount, fmt.Sprintf("nothing to swap (balance %d)", balance))
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "no balance to trade", action.Params{}), strict, depth+1)
	}

	res, err := d.AMM.Swap(ctx, a.ID, side, amountIn, world.SwapOpts{MinAmountOut: act.Params.MinAmountOut})
	if err != nil {
		code := swapErrCode(err)
		if strict {
			return fail(act, code, err.Error())
		}
		skipped := d.run(ctx, obs, action.Redirect(action.TypeRest, "trade skipped: "+code, action.Params{}), strict, depth+1)
		skipped.Narrative = fmt.Sprintf("%s walks away from a bad trade (%s).", a.Name, code)
		return skipped
	}

	d.Runtime.RecordTrade(a.ID, obs.Tick)

	// The AMM persisted the new balances; mirror them onto the in-memory
	// agent so the end-of-tick save writes the same values.
	if side == world.SwapBuyArena {
		a.ReserveBalance -= res.Swap.AmountIn
		a.Bankroll += res.Swap.AmountOut
	} else {
		a.Bankroll -= res.Swap.AmountIn
		a.ReserveBalance += res.Swap.AmountOut
	}

	var narrative string
	if side == world.SwapBuyArena {
		narrative = fmt.Sprintf("%s swaps %s reserve for %s $ARENA.",
			a.Name, humanize.Comma(res.Swap.AmountIn), humanize.Comma(res.Swap.AmountOut))
	} else {
		narrative = fmt.Sprintf("%s cashes out %s $ARENA for %s reserve.",
			a.Name, humanize.Comma(res.Swap.AmountIn), humanize.Comma(res.Swap.AmountOut))
	}
	d.logEvent(ctx, obs, world.EventTrade, "Swap executed", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative}
}

// swapErrCode maps AMM error prefixes onto dispatcher codes.
func swapErrCode(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "AMM_SLIPPAGE"):
		return "AMM_SLIPPAGE"
	case strings.HasPrefix(msg, "INSUFFICIENT_ARENA"):
		return ErrInsufficientArena
	case strings.HasPrefix(msg, "INVALID_AMOUNT"):
		return ErrInvalidAmount
	default:
		return ErrExecutionError
	}
}

func (d *Dispatcher) execTransfer(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	if act.Params.Amount <= 0 {
		if strict {
			return fail(act, ErrInvalidAmount, "transfer amount must be positive")
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "no amount to send", action.Params{}), strict, depth+1)
	}
	if act.Params.Amount > a.Bankroll {
		if strict {
			return fail(act, ErrInsufficientArena, fmt.Sprintf("bankroll %d < transfer %d", a.Bankroll, act.Params.Amount))
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "cannot cover the transfer", action.Params{}), strict, depth+1)
	}

	var target *observe.AgentPublic
	for i := range obs.OtherAgents {
		if strings.EqualFold(obs.OtherAgents[i].Name, act.Params.TargetName) {
			target = &obs.OtherAgents[i]
			break
		}
	}
	if target == nil {
		if strict {
			return fail(act, ErrTargetUnavailable, fmt.Sprintf("no agent named %q", act.Params.TargetName))
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "recipient not found", action.Params{}), strict, depth+1)
	}

	if err := d.Town.TransferArena(ctx, a.ID, target.ID, act.Params.Amount); err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("transfer: %v", err))
	}
	a.Bankroll -= act.Params.Amount

	narrative := fmt.Sprintf("%s sends %s $ARENA to %s.", a.Name, humanize.Comma(act.Params.Amount), target.Name)
	d.logEvent(ctx, obs, world.EventAgentTrade, "Transfer", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative}
}

func (d *Dispatcher) execBuySkill(ctx context.Context, obs *observe.Observation, act action.Action, strict bool) *Result {
	a := obs.Agent

	skill := world.SkillKind(act.Params.Skill)
	if !world.ValidSkill(skill) {
		return fail(act, ErrTargetUnavailable, fmt.Sprintf("unknown skill %q", act.Params.Skill))
	}
	if d.Skill == nil {
		return fail(act, ErrTargetUnavailable, "skill oracle not available")
	}

	res, err := d.Skill.BuySkill(ctx, world.BuySkillRequest{
		AgentID:            a.ID,
		Skill:              skill,
		Question:           act.Params.Question,
		WhyNow:             act.Params.WhyNow,
		ExpectedNextAction: act.Params.ExpectedNextAction,
		IfThen:             act.Params.IfThen,
	})
	if err != nil {
		return fail(act, ErrExecutionError, fmt.Sprintf("buy skill: %v", err))
	}
	a.Bankroll -= res.PriceArena
	if a.Bankroll < 0 {
		a.Bankroll = 0
	}

	narrative := fmt.Sprintf("%s buys %s intel for %d $ARENA: %s", a.Name, skill, res.PriceArena, res.PublicSummary)
	d.logEvent(ctx, obs, world.EventX402Skill, "Skill purchased", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative}
}

package exec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

const (
	// minFightBankroll is the floor for entering any match.
	minFightBankroll = 10

	// turboMaxActions caps the poker fight loop.
	turboMaxActions = 14

	// turboTimeout bounds the whole fight, cancel-with-refund after.
	turboTimeout = 90 * time.Second

	turboPollInterval = 500 * time.Millisecond

	// rivalBonus dominates opponent ranking so grudges get settled.
	rivalBonus = 120.0
)

func (d *Dispatcher) execPlayArena(ctx context.Context, obs *observe.Observation, act action.Action, strict bool, depth int) *Result {
	a := obs.Agent

	if d.Match == nil {
		if strict {
			return fail(act, ErrTargetUnavailable, "no match engine available")
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "no match engine available", action.Params{}), strict, depth+1)
	}
	if a.IsInMatch {
		if strict {
			return fail(act, ErrTargetUnavailable, "already in a match")
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "already mid-match", action.Params{}), strict, depth+1)
	}
	if d.Wheel != nil {
		queued, err := d.Wheel.IsQueued(ctx, a.ID)
		if err == nil && queued {
			if strict {
				return fail(act, ErrTargetUnavailable, "queued for a wheel duel")
			}
			return d.run(ctx, obs, action.Redirect(action.TypeRest, "holding for the wheel duel", action.Params{}), strict, depth+1)
		}
	}
	if a.Bankroll < minFightBankroll {
		if strict {
			return fail(act, ErrInsufficientArena, fmt.Sprintf("bankroll %d below fight minimum %d", a.Bankroll, minFightBankroll))
		}
		if a.ReserveBalance >= minRedirectReserve {
			return d.run(ctx, obs, action.Redirect(action.TypeBuyArena, "funding a fight",
				action.Params{AmountIn: a.ReserveBalance, Why: "need a fight bankroll", NextAction: "play_arena"}), strict, depth+1)
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "too broke to fight", action.Params{}), strict, depth+1)
	}

	opponent := pickOpponent(obs)
	if opponent == nil {
		if strict {
			return fail(act, ErrNoOpponents, "no eligible opponents")
		}
		return d.run(ctx, obs, action.Redirect(action.TypeRest, "no one worth fighting", action.Params{}), strict, depth+1)
	}

	gameType := act.Params.GameType
	if gameType == "" {
		gameType = "POKER"
	}
	wager := act.Params.Wager
	if wager <= 0 {
		wager = 25
	}
	if wager > a.Bankroll {
		wager = a.Bankroll
	}
	if wager > opponent.Bankroll {
		wager = opponent.Bankroll
	}

	match, err := d.Match.CreateMatch(ctx, world.CreateMatchRequest{
		AgentID:              a.ID,
		OpponentID:           opponent.ID,
		GameType:             gameType,
		WagerAmount:          wager,
		SkipPredictionMarket: true,
	})
	if err != nil {
		return fail(act, ErrMatchCreateFailed, fmt.Sprintf("create match: %v", err))
	}

	final, err := d.turboFight(ctx, match.ID, a.ID)
	if err != nil {
		if cancelErr := d.Match.CancelMatch(ctx, match.ID, a.ID); cancelErr != nil {
			slog.Warn("match cancel failed", "match", match.ID, "err", cancelErr)
		}
		return fail(act, ErrMatchTimeout, err.Error())
	}

	// The match engine settled the wager and elo on the agent rows; refresh
	// the in-memory agent so the end-of-tick save does not undo it.
	if fresh, err := d.Agents.Get(ctx, a.ID); err != nil {
		slog.Warn("post-match refresh failed", "agent", a.Name, "err", err)
	} else {
		a.Bankroll = fresh.Bankroll
		a.ReserveBalance = fresh.ReserveBalance
		a.Elo = fresh.Elo
		a.IsInMatch = fresh.IsInMatch
		a.CurrentMatchID = fresh.CurrentMatchID
	}

	var narrative string
	switch final.WinnerID {
	case a.ID:
		narrative = fmt.Sprintf("%s beats %s at %s and takes the %d $ARENA pot.", a.Name, opponent.Name, gameType, wager)
	case opponent.ID:
		narrative = fmt.Sprintf("%s loses %d $ARENA to %s at the %s table.", a.Name, wager, opponent.Name, gameType)
	default:
		narrative = fmt.Sprintf("%s and %s split a %s match with nothing settled.", a.Name, opponent.Name, gameType)
	}
	d.logEvent(ctx, obs, world.EventMatch, "Match resolved", narrative)
	return &Result{Action: act, Success: true, Narrative: narrative}
}

// turboFight drives the agent's side of a match to completion: up to
// turboMaxActions moves, aggressive move priority, cancel on timeout.
func (d *Dispatcher) turboFight(ctx context.Context, matchID, agentID string) (*world.MatchState, error) {
	deadline := time.Now().Add(turboTimeout)
	moves := 0
	first := true

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("match %s timed out after %d moves", matchID, moves)
		}

		state, err := d.Match.GetMatchState(ctx, matchID)
		if err != nil {
			return nil, fmt.Errorf("match state: %w", err)
		}
		if state.Status != "ACTIVE" {
			return state, nil
		}
		if moves >= turboMaxActions {
			return nil, fmt.Errorf("match %s exceeded %d actions", matchID, turboMaxActions)
		}

		if state.TurnAgentID != agentID {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(turboPollInterval):
			}
			continue
		}

		move := pickMove(state.ValidActions, first)
		_, err = d.Match.SubmitMove(ctx, world.MoveRequest{MatchID: matchID, AgentID: agentID, Action: move})
		if err != nil {
			// Engine rejected the ranked move; fall back to whatever it allows.
			if len(state.ValidActions) == 0 {
				return nil, fmt.Errorf("submit move: %w", err)
			}
			if _, err2 := d.Match.SubmitMove(ctx, world.MoveRequest{
				MatchID: matchID, AgentID: agentID, Action: state.ValidActions[0],
			}); err2 != nil {
				return nil, fmt.Errorf("submit fallback move: %w", err2)
			}
		}
		moves++
		first = false
	}
}

// pickMove ranks valid poker actions aggressively: shove immediately, then
// call/check, then shove or raise later streets, fold last.
func pickMove(valid []string, first bool) string {
	has := func(want string) bool {
		for _, v := range valid {
			if v == want {
				return true
			}
		}
		return false
	}

	if first && has("all-in") {
		return "all-in"
	}
	for _, pref := range []string{"call", "check", "all-in", "raise", "fold"} {
		if has(pref) {
			return pref
		}
	}
	if len(valid) > 0 {
		return valid[0]
	}
	return "fold"
}

// pickOpponent ranks eligible agents by rivalry, elo proximity and bankroll.
func pickOpponent(obs *observe.Observation) *observe.AgentPublic {
	rivals := make(map[string]bool)
	for _, r := range obs.Relationships {
		if r.Kind == "rival" {
			rivals[r.AgentID] = true
		}
	}

	var best *observe.AgentPublic
	bestScore := -1.0
	for i := range obs.OtherAgents {
		o := &obs.OtherAgents[i]
		if o.IsInMatch || o.Health <= 0 || o.Bankroll < minFightBankroll {
			continue
		}
		score := eloProximity(obs.Agent.Elo, o.Elo) + bankrollScore(o.Bankroll)
		if rivals[o.ID] {
			score += rivalBonus
		}
		if score > bestScore {
			best = o
			bestScore = score
		}
	}
	return best
}

// eloProximity favors close matchups, 100 at equal elo down to 0 at a 400 gap.
func eloProximity(a, b int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	score := 100.0 - float64(diff)/4.0
	if score < 0 {
		return 0
	}
	return score
}

// bankrollScore mildly favors richer opponents, capped so it never outranks a
// close elo matchup.
func bankrollScore(bankroll int64) float64 {
	score := float64(bankroll) / 10.0
	if score > 50 {
		return 50
	}
	return score
}

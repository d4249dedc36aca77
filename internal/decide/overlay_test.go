package decide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

func overlayObs(a *agent.Agent) *observe.Observation {
	return &observe.Observation{
		Tick:  20,
		Agent: a,
		Town:  &world.Town{ID: "t1", Level: 1, Status: world.TownBuilding},
	}
}

func noteCodes(notes []PolicyNote) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Code)
	}
	return out
}

func TestOverlay_HardSafetyForcesRest(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 0, Bankroll: 100})

	// Saturate the budget; hard safety must fire anyway.
	for i := 0; i < 24; i++ {
		rt.RecordOverride("a1", true)
	}

	out, notes := ApplyOverlays(obs, rt, action.Action{Type: action.TypePlayArena})
	assert.Equal(t, action.TypeRest, out.Type)
	require.Len(t, notes, 1)
	assert.Equal(t, TierHardSafety, notes[0].Tier)
	assert.Equal(t, CodeIncapacitated, notes[0].Code)
	assert.True(t, notes[0].Applied)
}

func TestOverlay_TradeCooldownRedirectsToRest(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})
	rt.RecordTrade("a1", 18) // two ticks ago, cooldown is three

	out, notes := ApplyOverlays(obs, rt, action.Action{
		Type:   action.TypeBuyArena,
		Params: action.Params{AmountIn: 20, Why: "x", NextAction: "rest"},
	})
	assert.Equal(t, action.TypeRest, out.Type)
	assert.Contains(t, noteCodes(notes), CodeTradeCooldown)
}

func TestOverlay_TradeWithoutPlanRedirects(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})

	out, notes := ApplyOverlays(obs, rt, action.Action{
		Type:   action.TypeSellArena,
		Params: action.Params{AmountIn: 20},
	})
	assert.Equal(t, action.TypeRest, out.Type)
	assert.Contains(t, noteCodes(notes), CodeTradeWithoutPlan)
}

func TestOverlay_PlannedTradePassesThrough(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})
	rt.RecordTrade("a1", 10) // ten ticks ago, well past cooldown

	act := action.Action{
		Type:   action.TypeBuyArena,
		Params: action.Params{AmountIn: 20, Why: "need float", NextAction: "play_arena"},
	}
	out, notes := ApplyOverlays(obs, rt, act)
	assert.Equal(t, act, out)
	assert.Empty(t, notes)
}

func TestOverlay_BudgetClosedNotesWithoutRewriting(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})
	rt.RecordTrade("a1", 19)

	// 10 of 24 rewritten puts the rate at ~0.42, over the 0.4 budget.
	for i := 0; i < 24; i++ {
		rt.RecordOverride("a1", i < 10)
	}

	act := action.Action{
		Type:   action.TypeBuyArena,
		Params: action.Params{AmountIn: 20, Why: "x", NextAction: "rest"},
	}
	out, notes := ApplyOverlays(obs, rt, act)
	assert.Equal(t, act, out, "over budget the action must pass through")
	require.NotEmpty(t, notes)
	assert.Equal(t, CodeTradeCooldown, notes[0].Code)
	assert.False(t, notes[0].Applied)
}

func TestOverlay_RestNudgesToFoothold(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 50})
	obs.AvailablePlots = []world.Plot{{ID: "p4", Index: 4, Status: world.PlotEmpty, Zone: world.ZoneResidential}}

	out, notes := ApplyOverlays(obs, rt, action.Rest("nothing to do"))
	assert.Equal(t, action.TypeClaimPlot, out.Type)
	require.NotNil(t, out.Params.PlotIndex)
	assert.Equal(t, 4, *out.Params.PlotIndex)
	assert.Contains(t, noteCodes(notes), CodeInitialFoothold)
}

func TestOverlay_RestNudgesToActiveBuild(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 50})
	obs.OwnedPlots = []world.Plot{
		{ID: "p1", Index: 1, Status: world.PlotUnderConstruction, Zone: world.ZoneCommercial, APICallsUsed: 1},
	}

	out, notes := ApplyOverlays(obs, rt, action.Rest("bored"))
	assert.Equal(t, action.TypeDoWork, out.Type)
	assert.Equal(t, "p1", out.Params.PlotID)
	assert.Contains(t, noteCodes(notes), CodeKeepBuildMomentum)
}

func TestOverlay_RestNudgesToStartBuild(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 50})
	obs.OwnedPlots = []world.Plot{
		{ID: "p2", Index: 2, Status: world.PlotClaimed, Zone: world.ZoneResidential},
	}

	out, notes := ApplyOverlays(obs, rt, action.Rest("bored"))
	assert.Equal(t, action.TypeStartBuild, out.Type)
	assert.Contains(t, noteCodes(notes), CodeStartClaimedBuild)
}

func TestOverlay_RestNudgesToObjectivePlot(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 50})
	obs.OwnedPlots = []world.Plot{
		{ID: "p9", Index: 9, Status: world.PlotComplete, Zone: world.ZoneResidential},
	}
	obs.AvailablePlots = []world.Plot{{ID: "p6", Index: 6, Status: world.PlotEmpty, Zone: world.ZoneCivic}}
	obs.Objectives = []world.Objective{{Kind: "CLAIM_PLOT", AgentID: "a1", PlotIndex: 6, DeadlineTick: 30}}

	out, notes := ApplyOverlays(obs, rt, action.Rest("waiting"))
	assert.Equal(t, action.TypeClaimPlot, out.Type)
	require.NotNil(t, out.Params.PlotIndex)
	assert.Equal(t, 6, *out.Params.PlotIndex)
	assert.Contains(t, noteCodes(notes), CodeLiveObjectiveClaim)
}

func TestOverlay_ReadyBuildPreempts(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 50})
	obs.OwnedPlots = []world.Plot{
		// RES needs three steps; this one has them.
		{ID: "p3", Index: 3, Status: world.PlotUnderConstruction, Zone: world.ZoneResidential, APICallsUsed: 3},
	}

	out, notes := ApplyOverlays(obs, rt, action.Action{
		Type:   action.TypePlayArena,
		Params: action.Params{GameType: "POKER", Wager: 25},
	})
	assert.Equal(t, action.TypeCompleteBuild, out.Type)
	assert.Equal(t, "p3", out.Params.PlotID)
	assert.Contains(t, noteCodes(notes), CodeCompleteReadyBuild)
}

func TestOverlay_BlueprintPurchaseDefersCompletion(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 50})
	obs.OwnedPlots = []world.Plot{
		{ID: "p3", Index: 3, Status: world.PlotUnderConstruction, Zone: world.ZoneResidential, APICallsUsed: 3},
	}

	act := action.Action{
		Type:   action.TypeBuySkill,
		Params: action.Params{Skill: string(world.SkillBlueprintIndex)},
	}
	out, notes := ApplyOverlays(obs, rt, act)
	assert.Equal(t, act, out)
	assert.NotContains(t, noteCodes(notes), CodeCompleteReadyBuild)
}

func TestOverlay_UnderfundedOnlyAnnotates(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 30})

	act := action.Action{
		Type:   action.TypePlayArena,
		Params: action.Params{GameType: "POKER", Wager: 200},
	}
	out, notes := ApplyOverlays(obs, rt, act)
	assert.Equal(t, act, out, "affordability never rewrites")
	require.Len(t, notes, 1)
	assert.Equal(t, CodeUnderfundedAction, notes[0].Code)
}

func TestOverlay_UnderfundedCoveredByReserveStaysQuiet(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 30, ReserveBalance: 300})

	out, notes := ApplyOverlays(obs, rt, action.Action{
		Type:   action.TypePlayArena,
		Params: action.Params{GameType: "POKER", Wager: 200},
	})
	assert.Equal(t, action.TypePlayArena, out.Type)
	assert.Empty(t, notes, "a reserve that covers the shortfall silences the warning")
}

func TestOverlay_UnderfundedClaimAnnotates(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 0, ReserveBalance: 0})
	obs.AvailablePlots = []world.Plot{{ID: "p0", Index: 0, Status: world.PlotEmpty, Zone: world.ZoneResidential}}

	out, notes := ApplyOverlays(obs, rt, action.Action{Type: action.TypeClaimPlot})
	assert.Equal(t, action.TypeClaimPlot, out.Type)
	require.Len(t, notes, 1)
	assert.Equal(t, CodeUnderfundedAction, notes[0].Code)
}

func TestOverlay_UnderfundedStartBuildAnnotates(t *testing.T) {
	rt := agent.NewRuntime()
	obs := overlayObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 2, ReserveBalance: 0})
	obs.OwnedPlots = []world.Plot{
		{ID: "p2", Index: 2, Status: world.PlotClaimed, Zone: world.ZoneResidential},
	}

	// RES at level 1 costs 8; bankroll 2 with no reserve cannot cover it.
	out, notes := ApplyOverlays(obs, rt, action.Action{
		Type:   action.TypeStartBuild,
		Params: action.Params{PlotID: "p2", BuildingType: "house"},
	})
	assert.Equal(t, action.TypeStartBuild, out.Type)
	require.Len(t, notes, 1)
	assert.Equal(t, CodeUnderfundedAction, notes[0].Code)
}

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

func TestCreateTownSeedsPlots(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	town, err := db.CreateTown(ctx, "Town 1", 1)
	require.NoError(t, err)
	assert.Equal(t, world.TownBuilding, town.Status)
	assert.Equal(t, 1, town.Yield)

	active, err := db.GetActiveTown(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, town.ID, active.ID)

	plots, err := db.GetAvailablePlots(ctx, town.ID)
	require.NoError(t, err)
	require.Len(t, plots, plotsPerTown)
	for i, p := range plots {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, world.PlotEmpty, p.Status)
		assert.NotEmpty(t, p.Zone)
	}
}

func TestGetActiveTownNilWhenNoneBuilding(t *testing.T) {
	db := openTestDB(t)
	town, err := db.GetActiveTown(context.Background())
	require.NoError(t, err)
	assert.Nil(t, town)
}

func TestClaimPlotTransfersOwnershipOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	town, err := db.CreateTown(ctx, "Town 1", 1)
	require.NoError(t, err)

	p, err := db.ClaimPlot(ctx, "a1", town.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "a1", p.OwnerID)
	assert.Equal(t, world.PlotClaimed, p.Status)

	_, err = db.ClaimPlot(ctx, "a2", town.ID, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not claimable")

	avail, err := db.GetAvailablePlots(ctx, town.ID)
	require.NoError(t, err)
	assert.Len(t, avail, plotsPerTown-1)

	mine, err := db.GetAgentPlots(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 3, mine[0].Index)
}

func TestStartBuildRequiresClaimedOwnedPlot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	town, err := db.CreateTown(ctx, "Town 1", 1)
	require.NoError(t, err)
	p, err := db.ClaimPlot(ctx, "a1", town.ID, 0)
	require.NoError(t, err)

	err = db.StartBuild(ctx, "thief", p.ID, "house", 12)
	require.Error(t, err)

	require.NoError(t, db.StartBuild(ctx, "a1", p.ID, "house", 12))

	// Already under construction, a second start is rejected.
	err = db.StartBuild(ctx, "a1", p.ID, "house", 12)
	require.Error(t, err)

	mine, err := db.GetAgentPlots(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, world.PlotUnderConstruction, mine[0].Status)
	assert.Equal(t, "house", mine[0].BuildingType)
	assert.Equal(t, int64(12), mine[0].BuildCost)
	assert.Zero(t, mine[0].APICallsUsed)
}

func TestSubmitWorkBumpsStepCounter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	town, err := db.CreateTown(ctx, "Town 1", 1)
	require.NoError(t, err)
	p, err := db.ClaimPlot(ctx, "a1", town.ID, 0)
	require.NoError(t, err)
	require.NoError(t, db.StartBuild(ctx, "a1", p.ID, "house", 12))

	require.NoError(t, db.SubmitWork(ctx, "a1", p.ID, "laid the foundation"))
	require.NoError(t, db.SubmitWork(ctx, "a1", p.ID, "framed the walls"))

	mine, err := db.GetAgentPlots(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, mine[0].APICallsUsed)

	// Work on a plot that is not under construction is refused.
	q, err := db.ClaimPlot(ctx, "a1", town.ID, 1)
	require.NoError(t, err)
	require.Error(t, db.SubmitWork(ctx, "a1", q.ID, "premature"))
}

func TestCompleteBuildFlipsPlotAndTown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	town, err := db.CreateTown(ctx, "Town 1", 1)
	require.NoError(t, err)

	for i := 0; i < plotsPerTown; i++ {
		p, err := db.ClaimPlot(ctx, "a1", town.ID, i)
		require.NoError(t, err)
		require.NoError(t, db.StartBuild(ctx, "a1", p.ID, "house", 10))

		if i == 0 {
			// Wrong owner and wrong status both refuse completion.
			require.Error(t, db.CompleteBuild(ctx, "thief", p.ID))
		}
		require.NoError(t, db.CompleteBuild(ctx, "a1", p.ID))

		active, err := db.GetActiveTown(ctx)
		require.NoError(t, err)
		if i < plotsPerTown-1 {
			require.NotNil(t, active, "town stays open with plots remaining")
		} else {
			assert.Nil(t, active, "last completed plot closes the town")
		}
	}

	stats, err := db.GetWorldStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedTowns)
}

func TestSetBuildingName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	town, err := db.CreateTown(ctx, "Town 1", 1)
	require.NoError(t, err)
	p, err := db.ClaimPlot(ctx, "a1", town.ID, 0)
	require.NoError(t, err)

	require.NoError(t, db.SetBuildingName(ctx, p.ID, "The Driftwood"))
	mine, err := db.GetAgentPlots(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "The Driftwood", mine[0].BuildingName)
}

func TestAdjustYieldFloorsAtZero(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	town, err := db.CreateTown(ctx, "Town 3", 3)
	require.NoError(t, err)

	require.NoError(t, db.AdjustYield(ctx, town.ID, -10))
	towns, err := db.ListTowns(ctx)
	require.NoError(t, err)
	require.Len(t, towns, 1)
	assert.Zero(t, towns[0].Yield)
}

func TestTransferArena(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky", Bankroll: 50})
	seedAgent(t, db, &agent.Agent{ID: "a2", Name: "Mole", Bankroll: 5})

	require.Error(t, db.TransferArena(ctx, "a1", "a2", 0))

	err := db.TransferArena(ctx, "a1", "a2", 60)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot cover")

	require.NoError(t, db.TransferArena(ctx, "a1", "a2", 20))
	from, _ := db.Get(ctx, "a1")
	to, _ := db.Get(ctx, "a2")
	assert.Equal(t, int64(30), from.Bankroll)
	assert.Equal(t, int64(25), to.Bankroll)
}

func TestDistributeYieldPaysCompletedOwnersFromPool(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.EnsurePool(ctx, 10000, 5000, 100))
	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky", Bankroll: 10})
	seedAgent(t, db, &agent.Agent{ID: "a2", Name: "Mole", Bankroll: 10})

	town, err := db.CreateTown(ctx, "Town 2", 2)
	require.NoError(t, err)
	for i, owner := range []string{"a1", "a2"} {
		p, err := db.ClaimPlot(ctx, owner, town.ID, i)
		require.NoError(t, err)
		require.NoError(t, db.StartBuild(ctx, owner, p.ID, "house", 10))
		require.NoError(t, db.CompleteBuild(ctx, owner, p.ID))
	}

	require.NoError(t, db.DistributeYield(ctx, town.ID))

	a1, _ := db.Get(ctx, "a1")
	a2, _ := db.Get(ctx, "a2")
	assert.Equal(t, int64(12), a1.Bankroll)
	assert.Equal(t, int64(12), a2.Bankroll)

	pool, err := db.Pool(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4996), pool.ArenaBalance)
}

func TestEventsRoundTripNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	db.TickFn = func() uint64 { return 9 }
	town, err := db.CreateTown(ctx, "Town 1", 1)
	require.NoError(t, err)

	require.NoError(t, db.LogEvent(ctx, town.ID, world.EventBuild,
		"Foundation laid", "Rocky broke ground", "a1", nil))
	require.NoError(t, db.LogEvent(ctx, town.ID, world.EventTrade,
		"Big buy", "Mole bought in", "a2", map[string]any{"amountIn": float64(50)}))

	events, err := db.GetRecentEvents(ctx, town.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, world.EventTrade, events[0].Kind)
	assert.Equal(t, uint64(9), events[0].Tick)
	assert.Equal(t, float64(50), events[0].Metadata["amountIn"])
	assert.Equal(t, world.EventBuild, events[1].Kind)
	assert.Nil(t, events[1].Metadata)
}

func TestGetWorldStatsDefaults(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky"})

	stats, err := db.GetWorldStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.CompletedTowns)
	assert.Equal(t, 1, stats.ActiveAgents)
	assert.InDelta(t, 1.0, stats.UpkeepMultiplier, 1e-9)
	assert.InDelta(t, 1.0, stats.CostMultiplier, 1e-9)
}

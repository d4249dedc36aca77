package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
)

func TestAgentSaveGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	in := &agent.Agent{
		ID:             "a1",
		Name:           "Rocky",
		Archetype:      agent.ArchetypeShark,
		ModelID:        "sonnet",
		Bankroll:       120,
		ReserveBalance: 40,
		Health:         85,
		Elo:            1250,
		IsActive:       true,
		Scratchpad:     []string{"claimed plot 3", "started the tavern"},
		LastActionType: "start_build",
		LastReasoning:  "foothold first",
		LastTargetPlot: "p3",
		LastTickAt:     17,
		LastActiveAt:   time.Now().UTC().Truncate(time.Second),
		SystemPrompt:   "you are Rocky",
	}
	require.NoError(t, db.Save(ctx, in))

	out, err := db.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Rocky", out.Name)
	assert.Equal(t, agent.ArchetypeShark, out.Archetype)
	assert.Equal(t, int64(120), out.Bankroll)
	assert.Equal(t, int64(40), out.ReserveBalance)
	assert.Equal(t, []string{"claimed plot 3", "started the tavern"}, out.Scratchpad)
	assert.Equal(t, "start_build", out.LastActionType)
	assert.Equal(t, uint64(17), out.LastTickAt)
	assert.WithinDuration(t, in.LastActiveAt, out.LastActiveAt, time.Second)
}

func TestAgentSaveIsUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky", Bankroll: 50})
	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky", Bankroll: 75, Health: 60})

	out, err := db.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(75), out.Bankroll)
	assert.Equal(t, 60, out.Health)
}

func TestListActiveFiltersInactive(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky"})
	seedAgent(t, db, &agent.Agent{ID: "a2", Name: "Mole"})
	retired := &agent.Agent{ID: "a3", Name: "Gone", ModelID: "haiku", Archetype: agent.ArchetypeRock}
	require.NoError(t, db.Save(ctx, retired))

	agents, err := db.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)
}

func TestCreditBankrollClampsAtZero(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky", Bankroll: 10})

	require.NoError(t, db.CreditBankroll(ctx, "a1", -25))
	out, err := db.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, out.Bankroll)

	require.NoError(t, db.CreditBankroll(ctx, "a1", 7))
	out, err = db.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.Bankroll)
}

func TestCreditBankrollUnknownAgentErrors(t *testing.T) {
	db := openTestDB(t)
	err := db.CreditBankroll(context.Background(), "ghost", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetByName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedAgent(t, db, &agent.Agent{ID: "a1", Name: "Rocky"})

	out, err := db.GetByName(ctx, "Rocky")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "a1", out.ID)

	out, err = db.GetByName(ctx, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, out)
}

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alttabdlt/ai-arena-sub000/internal/command"
)

func TestCommandLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	db.TickFn = func() uint64 { return 4 }

	id, err := db.Enqueue(ctx, &command.Command{
		AgentID:            "a1",
		Mode:               command.ModeOverride,
		Intent:             "claim_plot",
		Params:             map[string]any{"plotIndex": float64(3)},
		ExpectedActionType: "claim_plot",
		Constraints:        map[string]any{"maxSpend": float64(20)},
		AuditMeta:          map[string]any{"chatId": "tg-77"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := db.NextQueued(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, command.ModeOverride, got.Mode)
	assert.Equal(t, "claim_plot", got.Intent)
	assert.Equal(t, float64(3), got.Params["plotIndex"])
	assert.Equal(t, float64(20), got.Constraints["maxSpend"])
	assert.Equal(t, "tg-77", got.NotifyChatID())
	assert.Equal(t, uint64(4), got.IssuedTick)

	require.NoError(t, db.MarkAccepted(ctx, id))
	require.Error(t, db.MarkAccepted(ctx, id), "accept is queued-only")

	next, err := db.NextQueued(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, next, "accepted commands leave the queue")

	require.NoError(t, db.Resolve(ctx, id, command.Receipt{
		CommandID:          id,
		Status:             command.StatusExecuted,
		Compliance:         command.ComplianceFull,
		ExecutedActionType: "claim_plot",
	}))
	require.Error(t, db.Resolve(ctx, id, command.Receipt{Status: command.StatusRejected}),
		"resolve is accepted-only")
}

func TestNextQueuedReturnsOldestPerAgent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tick := uint64(1)
	db.TickFn = func() uint64 { return tick }

	first, err := db.Enqueue(ctx, &command.Command{AgentID: "a1", Mode: command.ModeSuggest, Intent: "rest"})
	require.NoError(t, err)
	tick = 2
	_, err = db.Enqueue(ctx, &command.Command{AgentID: "a1", Mode: command.ModeSuggest, Intent: "do_work"})
	require.NoError(t, err)
	_, err = db.Enqueue(ctx, &command.Command{AgentID: "a2", Mode: command.ModeSuggest, Intent: "mine"})
	require.NoError(t, err)

	got, err := db.NextQueued(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first, got.ID)
	assert.Equal(t, "rest", got.Intent)

	other, err := db.NextQueued(ctx, "a2")
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, "mine", other.Intent)
}

func TestNextQueuedNilWhenEmpty(t *testing.T) {
	db := openTestDB(t)
	got, err := db.NextQueued(context.Background(), "a1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEnqueueKeepsCallerID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.Enqueue(ctx, &command.Command{ID: "cmd-7", AgentID: "a1", Mode: command.ModeStrong, Intent: "rest"})
	require.NoError(t, err)
	assert.Equal(t, "cmd-7", id)

	got, err := db.NextQueued(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Params, "empty params stay nil after the round trip")
	assert.Empty(t, got.ExpectedActionType)
}

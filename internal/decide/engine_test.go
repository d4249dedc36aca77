package decide

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/command"
	"github.com/alttabdlt/ai-arena-sub000/internal/llm"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// scriptedGateway replies with a canned completion or error.
type scriptedGateway struct {
	content string
	err     error
	calls   int
}

func (g *scriptedGateway) CallModel(ctx context.Context, spec llm.ModelSpec, messages []llm.Message, temperature float64, forceNoJSONMode bool) (*llm.Completion, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Completion{Content: g.content, InputTokens: 100, OutputTokens: 50}, nil
}

func TestDecide_ForcingCommandBypassesModel(t *testing.T) {
	gw := &scriptedGateway{content: `{"type":"rest","reasoning":"nap"}`}
	e := &Engine{Gateway: gw, Runtime: agent.NewRuntime()}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})
	obs.AvailablePlots = []world.Plot{{ID: "p0", Index: 0, Status: world.PlotEmpty, Zone: world.ZoneResidential}}

	cmd := &command.Command{ID: "c1", Mode: command.ModeOverride, Intent: "claim_plot"}
	out := e.Decide(context.Background(), obs, cmd, nil)

	assert.Equal(t, SourceForced, out.Source)
	assert.Equal(t, action.TypeClaimPlot, out.Action.Type)
	assert.Nil(t, out.RejectedCommand)
	assert.Zero(t, gw.calls, "a forcing command must not burn a model call")
	assert.Empty(t, out.Notes, "forced actions skip the overlay")
}

func TestDecide_ForcingCommandOnIncapacitatedAgent(t *testing.T) {
	e := &Engine{Runtime: agent.NewRuntime()}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 0, Bankroll: 100})

	cmd := &command.Command{ID: "c1", Mode: command.ModeStrong, Intent: "do_work"}
	out := e.Decide(context.Background(), obs, cmd, nil)

	require.NotNil(t, out.RejectedCommand)
	assert.Equal(t, command.ReasonAgentIncapacitated, out.RejectedCommand.ReasonCode)
	assert.Equal(t, action.TypeRest, out.Action.Type, "fallback path still yields an action")
}

func TestDecide_UntranslatableCommandFallsThrough(t *testing.T) {
	e := &Engine{Runtime: agent.NewRuntime()}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})

	cmd := &command.Command{ID: "c1", Mode: command.ModeOverride, Intent: "do_work"}
	out := e.Decide(context.Background(), obs, cmd, nil)

	require.NotNil(t, out.RejectedCommand)
	assert.Equal(t, "c1", out.RejectedCommand.CommandID)
	assert.Equal(t, command.ReasonConstraintViolation, out.RejectedCommand.ReasonCode)
	assert.NotEmpty(t, out.Action.Type)
}

func TestDecide_DegenLoopSkipsModel(t *testing.T) {
	gw := &scriptedGateway{content: `{"type":"rest","reasoning":"nap"}`}
	rt := agent.NewRuntime()
	rt.SetLoopMode("a1", agent.LoopDegen)
	e := &Engine{Gateway: gw, Runtime: rt}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})

	out := e.Decide(context.Background(), obs, nil, nil)
	assert.Equal(t, SourceDegen, out.Source)
	assert.Zero(t, gw.calls)
}

func TestDecide_ModelDecisionParsedAndExecutedThroughOverlay(t *testing.T) {
	gw := &scriptedGateway{content: "Here is my plan:\n```json\n" +
		`{"type":"buy_arena","reasoning":"going shopping","calculations":"50 in, ~49 out","details":{"amountIn":50,"why":"thin bankroll","nextAction":"play_arena"},"humanReply":"On it."}` +
		"\n```"}
	e := &Engine{Gateway: gw, Runtime: agent.NewRuntime()}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100, ReserveBalance: 60})

	out := e.Decide(context.Background(), obs, nil, nil)
	assert.Equal(t, SourceModel, out.Source)
	assert.Equal(t, action.TypeBuyArena, out.Action.Type)
	assert.Equal(t, int64(50), out.Action.Params.AmountIn)
	assert.Equal(t, "50 in, ~49 out", out.Calculations)
	assert.Equal(t, "On it.", out.HumanReply)
	require.NotNil(t, out.Cost)
	assert.Equal(t, 100, out.Cost.InputTokens)
}

func TestDecide_ModelErrorRests(t *testing.T) {
	gw := &scriptedGateway{err: fmt.Errorf("rate limited")}
	e := &Engine{Gateway: gw, Runtime: agent.NewRuntime()}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})

	out := e.Decide(context.Background(), obs, nil, nil)
	assert.Equal(t, SourceModel, out.Source)
	assert.Equal(t, action.TypeRest, out.Action.Type)
	assert.Contains(t, out.Action.Reasoning, "model unavailable")
}

func TestDecide_GarbageReplyRests(t *testing.T) {
	gw := &scriptedGateway{content: "I think I will simply vibe today."}
	e := &Engine{Gateway: gw, Runtime: agent.NewRuntime()}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})

	out := e.Decide(context.Background(), obs, nil, nil)
	assert.Equal(t, action.TypeRest, out.Action.Type)
	assert.Contains(t, out.Action.Reasoning, "could not parse decision")
}

func TestDecide_OverlayRewriteRecordsChosenAction(t *testing.T) {
	// Model rests while a foothold is open; the overlay claims instead and the
	// outcome keeps the model's original pick for the audit trail.
	gw := &scriptedGateway{content: `{"type":"rest","reasoning":"feeling lazy"}`}
	rt := agent.NewRuntime()
	e := &Engine{Gateway: gw, Runtime: rt}
	obs := degenObs(&agent.Agent{ID: "a1", Health: 80, Bankroll: 100})
	obs.AvailablePlots = []world.Plot{{ID: "p0", Index: 0, Status: world.PlotEmpty, Zone: world.ZoneResidential}}

	out := e.Decide(context.Background(), obs, nil, nil)
	assert.Equal(t, action.TypeClaimPlot, out.Action.Type)
	require.NotNil(t, out.Chosen)
	assert.Equal(t, action.TypeRest, out.Chosen.Type)
	assert.Greater(t, out.AutonomyAfter, out.AutonomyBefore)
	assert.InDelta(t, 1.0, rt.OverrideRate("a1"), 1e-9)
}

func TestParseDecision_FirstObjectWins(t *testing.T) {
	dec, err := parseDecision(`noise {"type":"rest","reasoning":"ok"} trailing`)
	require.NoError(t, err)
	assert.Equal(t, "rest", dec.Type)

	_, err = parseDecision("no json here")
	assert.Error(t, err)

	_, err = parseDecision(`{"reasoning":"missing type"}`)
	assert.Error(t, err)
}

func TestNudgeFrom_NewestInstructionWins(t *testing.T) {
	got := nudgeFrom([]agent.Instruction{
		{Sender: "ana", Text: "please go WORK on the house"},
		{Sender: "bo", Text: "actually, Fight someone"},
	})
	assert.Equal(t, "fight", got)

	assert.Empty(t, nudgeFrom([]agent.Instruction{{Sender: "ana", Text: "hello there"}}))
	assert.Empty(t, nudgeFrom(nil))
}

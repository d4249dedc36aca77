package decide

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/command"
	"github.com/alttabdlt/ai-arena-sub000/internal/llm"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
)

// Engine routes each tick's decision through one of three paths: a forcing
// owner command, the degen-loop policy, or a model call with the soft-policy
// overlay applied on top.
type Engine struct {
	Gateway Gateway
	Runtime *agent.Runtime
}

// modelDecision mirrors the JSON object the prompt asks for.
type modelDecision struct {
	Type         string         `json:"type"`
	Reasoning    string         `json:"reasoning"`
	Calculations string         `json:"calculations"`
	Details      map[string]any `json:"details"`
	HumanReply   string         `json:"humanReply"`
}

// Decide produces the tick's Outcome. cmd may be nil; when a forcing command
// fails to translate the rejection is recorded and the engine falls through
// to the normal path for the agent's mode.
func (e *Engine) Decide(ctx context.Context, obs *observe.Observation, cmd *command.Command, instructions []agent.Instruction) *Outcome {
	a := obs.Agent

	if cmd != nil && cmd.Mode.Forcing() {
		if a.Incapacitated() {
			out := e.decideNormal(ctx, obs, nil, instructions)
			out.RejectedCommand = &RejectedCommand{
				CommandID:  cmd.ID,
				ReasonCode: command.ReasonAgentIncapacitated,
				Reason:     "agent is incapacitated",
			}
			return out
		}
		act, reasonCode, err := TranslateCommand(cmd, obs)
		if err != nil {
			slog.Warn("forced command rejected",
				"agent", a.Name, "command", cmd.ID, "reason", reasonCode, "err", err)
			out := e.decideNormal(ctx, obs, nil, instructions)
			out.RejectedCommand = &RejectedCommand{
				CommandID:  cmd.ID,
				ReasonCode: reasonCode,
				Reason:     err.Error(),
			}
			return out
		}
		return &Outcome{Action: act, Source: SourceForced}
	}

	return e.decideNormal(ctx, obs, cmd, instructions)
}

// decideNormal is the non-forced path: degen loop or model. A SUGGEST command
// (if any) rides along into the prompt.
func (e *Engine) decideNormal(ctx context.Context, obs *observe.Observation, cmd *command.Command, instructions []agent.Instruction) *Outcome {
	a := obs.Agent

	if e.Runtime.LoopMode(a.ID) == agent.LoopDegen {
		act := DegenAction(obs, nudgeFrom(instructions))
		return &Outcome{Action: act, Source: SourceDegen}
	}

	return e.decideModel(ctx, obs, cmd, instructions)
}

func (e *Engine) decideModel(ctx context.Context, obs *observe.Observation, cmd *command.Command, instructions []agent.Instruction) *Outcome {
	a := obs.Agent

	if e.Gateway == nil {
		// No gateway configured: run the deterministic policy instead.
		act := DegenAction(obs, nudgeFrom(instructions))
		return &Outcome{Action: act, Source: SourceDegen}
	}

	messages := []llm.Message{
		{Role: "system", Content: BuildSystemPrompt(obs)},
		{Role: "user", Content: BuildUserPrompt(obs, cmd, instructions)},
	}
	spec := llm.GetModelSpec(a.ModelID)
	temp := agent.Temperature(a.Archetype)

	start := time.Now()
	completion, err := e.Gateway.CallModel(ctx, spec, messages, temp, false)
	if err != nil {
		slog.Warn("model call failed, resting", "agent", a.Name, "err", err)
		out := e.withOverlay(obs, action.Rest("model unavailable: "+err.Error()), nil)
		out.Source = SourceModel
		return out
	}
	cost := llm.CalculateCost(spec, completion.InputTokens, completion.OutputTokens, time.Since(start))

	dec, err := parseDecision(completion.Content)
	if err != nil {
		slog.Warn("unparseable decision, resting", "agent", a.Name, "err", err)
		out := e.withOverlay(obs, action.Rest(rawPrefix(completion.Content)), &cost)
		out.Source = SourceModel
		return out
	}

	act := action.FromDetails(dec.Type, dec.Reasoning, dec.Details)
	out := e.withOverlay(obs, act, &cost)
	out.Source = SourceModel
	out.Calculations = dec.Calculations
	out.HumanReply = dec.HumanReply
	return out
}

// withOverlay runs the soft-policy chain over a model-sourced action and
// records the override in the autonomy window.
func (e *Engine) withOverlay(obs *observe.Observation, act action.Action, cost *llm.Cost) *Outcome {
	before := e.Runtime.OverrideRate(obs.Agent.ID)
	final, notes := ApplyOverlays(obs, e.Runtime, act)

	overridden := final.Type != act.Type
	e.Runtime.RecordOverride(obs.Agent.ID, overridden)

	out := &Outcome{
		Action:         final,
		Notes:          notes,
		Cost:           cost,
		AutonomyBefore: before,
		AutonomyAfter:  e.Runtime.OverrideRate(obs.Agent.ID),
	}
	if overridden {
		chosen := act
		out.Chosen = &chosen
	}
	return out
}

// parseDecision extracts the first JSON object from the model's reply,
// tolerating code fences and surrounding prose.
func parseDecision(content string) (*modelDecision, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var dec modelDecision
	if err := json.Unmarshal([]byte(content[start:end+1]), &dec); err != nil {
		return nil, fmt.Errorf("parse decision: %w", err)
	}
	if dec.Type == "" {
		return nil, fmt.Errorf("decision missing type")
	}
	return &dec, nil
}

// rawPrefix turns an unparseable reply into a rest reasoning line.
func rawPrefix(content string) string {
	content = strings.TrimSpace(content)
	if len(content) > 120 {
		content = content[:120]
	}
	return "could not parse decision: " + content
}

// nudgeFrom scans queued human instructions for a degen-loop hint.
func nudgeFrom(instructions []agent.Instruction) string {
	for i := len(instructions) - 1; i >= 0; i-- {
		text := strings.ToLower(instructions[i].Text)
		for _, kw := range []string{"fight", "trade", "work", "build"} {
			if strings.Contains(text, kw) {
				return kw
			}
		}
	}
	return ""
}

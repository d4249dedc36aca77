package decide

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/command"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

const economyRules = `## Economy Rules
- $ARENA is your fuel: claiming, building, wagering and skills all spend it.
- Reserve is stable currency; swap it to $ARENA via buy_arena (and back with sell_arena).
- Every tick costs upkeep. If you cannot pay, your health suffers.
- Working an active build pays a small wage; completing one pays a bonus.
- Zones differ: RESIDENTIAL is cheap and quick, CIVIC is expensive and slow, the rest sit between.`

const survivalRules = `## Survival Rules
- Health 0 means you are incapacitated and can only rest.
- Keep enough bankroll for upkeep. Going broke drains health fast.
- If both bankroll and reserve run dry you may receive a solvency rescue. It is a loan, repaid automatically once you recover.`

const priorityRules = `## Priorities
1. Finish builds that have met their minimum work steps.
2. Keep active builds moving; abandoned construction earns nothing.
3. Claim land early; plots get pricier as the town fills.
4. Fight only from strength; wagers come out of your bankroll.
5. Trade with a plan: know why, and what you will do with the proceeds.`

const responseSchema = `## Response Format
Respond with ONLY a JSON object (no markdown fences, no prose outside it):
{
  "type": "<one of: buy_arena, sell_arena, claim_plot, start_build, do_work, complete_build, play_arena, transfer_arena, buy_skill, rest>",
  "reasoning": "one or two sentences in your own voice",
  "calculations": "any arithmetic you did, or empty string",
  "details": { ...parameters for the chosen action... },
  "humanReply": "reply to your owner's message, or empty string"
}

Parameter hints:
- buy_arena/sell_arena: {"amountIn": n, "why": "...", "nextAction": "..."}
- claim_plot: {"plotIndex": n}
- start_build: {"plotIndex": n, "buildingType": "..."}
- do_work/complete_build: {"plotId": "..."}
- play_arena: {"gameType": "POKER", "wager": n}
- transfer_arena: {"targetName": "...", "amount": n}
- buy_skill: {"skill": "MARKET_DEPTH|BLUEPRINT_INDEX|SCOUT_REPORT", "question": "...", "whyNow": "...", "expectedNextAction": "...", "ifThen": "..."}`

// BuildSystemPrompt assembles the full system prompt for a model decision.
func BuildSystemPrompt(obs *observe.Observation) string {
	a := obs.Agent
	var b strings.Builder

	if a.SystemPrompt != "" {
		b.WriteString(a.SystemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString(agent.PersonalityTemplate(a.Archetype))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "You are %s, a participant in a shared town-building economy.\n", a.Name)
	fmt.Fprintf(&b, "Bankroll: %s $ARENA | Reserve: %s | Health: %d/100 | Elo: %d\n\n",
		humanize.Comma(a.Bankroll), humanize.Comma(a.ReserveBalance), a.Health, a.Elo)

	b.WriteString(economyRules)
	b.WriteString("\n\n")
	b.WriteString(survivalRules)
	b.WriteString("\n\n")
	b.WriteString(priorityRules)
	b.WriteString("\n\n")

	writeTownBlock(&b, obs)
	writeGoalBlock(&b, obs)
	writeWorldEventBlock(&b, obs)
	writeWheelBlock(&b, obs)
	writeOtherAgentsBlock(&b, obs)

	b.WriteString(responseSchema)
	return b.String()
}

func writeTownBlock(b *strings.Builder, obs *observe.Observation) {
	if obs.Town == nil {
		b.WriteString("## Town\nNo active town right now.\n\n")
		return
	}
	fmt.Fprintf(b, "## Town\n%s (level %d, %s). Available plots: %d.\n",
		obs.Town.Name, obs.Town.Level, obs.Town.Status, len(obs.AvailablePlots))
	if len(obs.OwnedPlots) > 0 {
		b.WriteString("Your plots:\n")
		for _, p := range obs.OwnedPlots {
			fmt.Fprintf(b, "- plot %d (%s, %s)", p.Index, p.Zone, p.Status)
			if p.Status == world.PlotUnderConstruction {
				fmt.Fprintf(b, ": %s, %d/%d work steps", p.BuildingType, p.APICallsUsed, world.MinWorkCalls(p.Zone))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("You own no plots yet.\n")
	}
	fmt.Fprintf(b, "Pool: spot %.3f, fee %d bps.\n\n", obs.Pool.SpotPrice, obs.Pool.FeeBps)
}

func writeGoalBlock(b *strings.Builder, obs *observe.Observation) {
	if len(obs.GoalStack) == 0 && len(obs.Objectives) == 0 {
		return
	}
	b.WriteString("## Goals\n")
	for _, g := range obs.GoalStack {
		fmt.Fprintf(b, "- %s\n", g)
	}
	for _, o := range obs.Objectives {
		fmt.Fprintf(b, "- [%s] claim plot %d before tick %d\n", o.Kind, o.PlotIndex, o.DeadlineTick)
	}
	b.WriteString("\n")
}

func writeWorldEventBlock(b *strings.Builder, obs *observe.Observation) {
	if len(obs.WorldEvents) == 0 {
		return
	}
	b.WriteString("## World Events\n")
	for _, ev := range obs.WorldEvents {
		fmt.Fprintf(b, "- %s: %s\n", ev.Title, ev.Description)
	}
	b.WriteString("\n")
}

func writeWheelBlock(b *strings.Builder, obs *observe.Observation) {
	if obs.Wheel.Phase == world.WheelIdle || obs.Wheel.Phase == "" {
		return
	}
	fmt.Fprintf(b, "## Wheel of Fate\nPhase %s: %s for %d $ARENA.\n",
		obs.Wheel.Phase, obs.Wheel.GameType, obs.Wheel.Wager)
	if len(obs.Wheel.Buffs) > 0 {
		fmt.Fprintf(b, "Active buffs: %s\n", strings.Join(obs.Wheel.Buffs, ", "))
	}
	b.WriteString("\n")
}

func writeOtherAgentsBlock(b *strings.Builder, obs *observe.Observation) {
	if len(obs.OtherAgents) == 0 {
		return
	}
	b.WriteString("## Other Agents\n")
	for _, o := range obs.OtherAgents {
		status := ""
		if o.IsInMatch {
			status = ", in a match"
		}
		fmt.Fprintf(b, "- %s (%s): %s $ARENA, health %d, elo %d%s\n",
			o.Name, o.Archetype, humanize.Comma(o.Bankroll), o.Health, o.Elo, status)
	}
	for _, r := range obs.Relationships {
		fmt.Fprintf(b, "- relationship: %s is a %s (score %d)\n", r.Name, r.Kind, r.Score)
	}
	b.WriteString("\n")
}

// BuildUserPrompt assembles the per-tick user turn: journal, any SUGGEST
// command, and queued human instructions.
func BuildUserPrompt(obs *observe.Observation, cmd *command.Command, instructions []agent.Instruction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tick %d. Decide your next action.\n\n", obs.Tick)

	if len(obs.Agent.Scratchpad) > 0 {
		b.WriteString("## Your Journal (newest last)\n")
		for _, line := range obs.Agent.Scratchpad {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if cmd != nil && cmd.Mode == command.ModeSuggest {
		fmt.Fprintf(&b, "## Owner Suggestion\nYour owner suggests: %s", cmd.Intent)
		if len(cmd.Params) > 0 {
			fmt.Fprintf(&b, " %v", cmd.Params)
		}
		b.WriteString("\nYou may follow it or not; explain either way in humanReply.\n\n")
	}

	if len(instructions) > 0 {
		b.WriteString("## Messages From Humans\n")
		for _, in := range instructions {
			fmt.Fprintf(&b, "- %s: %s\n", in.Sender, in.Text)
		}
		b.WriteString("\n")
	}

	if len(obs.SkillOutputs) > 0 {
		b.WriteString("## Recent Skill Intel\n")
		for _, s := range obs.SkillOutputs {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond with the JSON object only.")
	return b.String()
}

// Package scheduler drives the tick loop: world pulse, upkeep and solvency
// hooks, then a parallel fan-out of per-agent decide-execute pipelines.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/command"
	"github.com/alttabdlt/ai-arena-sub000/internal/decide"
	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/exec"
	"github.com/alttabdlt/ai-arena-sub000/internal/llm"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// yieldInterval is how often COMPLETE towns distribute yield, in ticks.
const yieldInterval = 5

// TickResult is the per-agent outcome delivered to the host each tick.
type TickResult struct {
	Tick               uint64           `json:"tick"`
	AgentID            string           `json:"agentId"`
	Action             action.Action    `json:"action"`
	Success            bool             `json:"success"`
	Narrative          string           `json:"narrative"`
	Cost               *llm.Cost        `json:"cost,omitempty"`
	Error              string           `json:"error,omitempty"`
	InstructionSenders []string         `json:"instructionSenders,omitempty"`
	HumanReply         string           `json:"humanReply,omitempty"`
	CommandReceipt     *command.Receipt `json:"commandReceipt,omitempty"`
}

// Scheduler owns the tick loop. All collaborators except Commands, Events and
// OnTickResult are required.
type Scheduler struct {
	Town       world.TownService
	Agents     world.AgentStore
	Pool       economy.PoolStore
	Ledger     *economy.Ledger
	Runtime    *agent.Runtime
	Observer   *observe.Builder
	Engine     *decide.Engine
	Dispatcher *exec.Dispatcher
	Commands   command.Queue
	Events     world.WorldEventService

	// OnTickResult is invoked once per agent per tick. Panics are swallowed.
	OnTickResult func(TickResult)

	currentTick  atomic.Uint64
	tickInFlight atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Start installs the periodic tick timer. It returns immediately; Stop shuts
// the loop down and waits for an in-flight tick to finish.
func (s *Scheduler) Start(intervalMs int) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	interval := time.Duration(intervalMs) * time.Millisecond
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Tick(context.Background())
			}
		}
	}()
	slog.Info("scheduler started", "interval_ms", intervalMs)
}

// Stop cancels the timer and waits for the loop to exit.
func (s *Scheduler) Stop() {
	if s.stopCh == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	slog.Info("scheduler stopped", "ticks", s.currentTick.Load())
}

// CurrentTick returns the last completed-or-running tick number.
func (s *Scheduler) CurrentTick() uint64 {
	return s.currentTick.Load()
}

// Tick runs one full tick. A call arriving while a tick is in flight is
// silently dropped; the scheduler never queues backlogged ticks.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.tickInFlight.CompareAndSwap(false, true) {
		return
	}
	defer s.tickInFlight.Store(false)

	tick := s.currentTick.Add(1)

	s.pulseWorldEvent(ctx, tick)

	town, err := s.ensureActiveTown(ctx)
	if err != nil {
		slog.Error("ensure active town failed", "tick", tick, "err", err)
	}

	stats, err := s.Town.GetWorldStats(ctx)
	if err != nil {
		slog.Error("world stats failed", "tick", tick, "err", err)
		stats = world.WorldStats{UpkeepMultiplier: 1, CostMultiplier: 1}
	}

	agents, err := s.Agents.ListActive(ctx)
	if err != nil {
		slog.Error("list agents failed", "tick", tick, "err", err)
		return
	}
	// Oldest lastActiveAt first: round-robin fairness for the economy hooks.
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].LastActiveAt.Before(agents[j].LastActiveAt)
	})

	for _, a := range agents {
		s.applyEconomyHooks(ctx, tick, a, stats, town)
	}

	if tick%yieldInterval == 0 {
		s.distributeYields(ctx)
	}

	var wg sync.WaitGroup
	results := make([]TickResult, len(agents))
	for i, a := range agents {
		wg.Add(1)
		go func(i int, a *agent.Agent) {
			defer wg.Done()
			results[i] = s.ProcessAgent(ctx, tick, a)
		}(i, a)
	}
	wg.Wait()

	for _, tr := range results {
		s.emitResult(tr)
	}
}

func (s *Scheduler) emitResult(tr TickResult) {
	if s.OnTickResult == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("tick result callback panicked", "agent", tr.AgentID, "panic", r)
		}
	}()
	s.OnTickResult(tr)
}

// pulseWorldEvent asks the event collaborator for a new pulse and, if one
// fires, logs it to every living town.
func (s *Scheduler) pulseWorldEvent(ctx context.Context, tick uint64) {
	if s.Events == nil {
		return
	}
	ev, err := s.Events.Pulse(ctx, tick)
	if err != nil {
		slog.Warn("world event pulse failed", "tick", tick, "err", err)
		return
	}
	if ev == nil {
		return
	}
	towns, err := s.Town.ListTowns(ctx)
	if err != nil {
		slog.Warn("list towns failed", "err", err)
		return
	}
	for _, t := range towns {
		if t.Status != world.TownBuilding && t.Status != world.TownComplete {
			continue
		}
		if err := s.Town.LogEvent(ctx, t.ID, world.EventWorld, ev.Title, ev.Description, "", nil); err != nil {
			slog.Warn("log world event failed", "town", t.ID, "err", err)
		}
	}
	slog.Info("world event", "tick", tick, "title", ev.Title)
}

// ensureActiveTown creates "Town N" at level N = completedTowns+1 when no
// town is currently building.
func (s *Scheduler) ensureActiveTown(ctx context.Context) (*world.Town, error) {
	town, err := s.Town.GetActiveTown(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active town: %w", err)
	}
	if town != nil {
		return town, nil
	}
	stats, err := s.Town.GetWorldStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("world stats: %w", err)
	}
	level := stats.CompletedTowns + 1
	town, err = s.Town.CreateTown(ctx, fmt.Sprintf("Town %d", level), level)
	if err != nil {
		return nil, fmt.Errorf("create town: %w", err)
	}
	slog.Info("new town founded", "name", town.Name, "level", town.Level)
	return town, nil
}

// applyEconomyHooks runs the serial per-agent money pass: rescue, upkeep,
// debt repayment.
func (s *Scheduler) applyEconomyHooks(ctx context.Context, tick uint64, a *agent.Agent, stats world.WorldStats, town *world.Town) {
	dirty := false

	// Solvency rescue.
	if s.Ledger.EligibleForRescue(a.ID, tick, a.Health, a.Bankroll, a.ReserveBalance) {
		granted, err := economy.DebitUnderFloor(ctx, s.Pool, economy.SolvencyRescueArena)
		if err != nil {
			slog.Warn("rescue pool debit failed", "agent", a.Name, "err", err)
		} else if granted > 0 {
			if err := s.Agents.CreditBankroll(ctx, a.ID, granted); err != nil {
				slog.Warn("rescue credit failed", "agent", a.Name, "err", err)
			} else {
				a.Bankroll += granted
				a.Health += economy.SolvencyRescueHealthBump
				a.ClampHealth()
				dirty = true
				s.Ledger.RecordRescue(a.ID, tick, granted)
				if town != nil {
					narrative := fmt.Sprintf("%s receives a %d $ARENA solvency rescue.", a.Name, granted)
					if err := s.Town.LogEvent(ctx, town.ID, world.EventRescue, "Solvency rescue", narrative, a.ID, nil); err != nil {
						slog.Warn("rescue event failed", "err", err)
					}
				}
			}
		}
	}

	// Upkeep.
	upkeep := economy.Upkeep(stats.UpkeepMultiplier)
	switch {
	case a.Bankroll >= upkeep:
		if err := s.Agents.CreditBankroll(ctx, a.ID, -upkeep); err != nil {
			slog.Warn("upkeep debit failed", "agent", a.Name, "err", err)
		} else {
			a.Bankroll -= upkeep
			if err := s.Pool.CreditArena(ctx, upkeep); err != nil {
				slog.Warn("upkeep pool credit failed", "err", err)
			}
		}
	case a.ReserveBalance > 0:
		// One grace tick: the agent still holds reserve it can rotate.
		slog.Info("upkeep grace", "agent", a.Name, "tick", tick, "reserve", a.ReserveBalance)
	default:
		if a.Bankroll == 0 {
			a.Health -= 2
		} else {
			a.Health -= 4
		}
		a.ClampHealth()
		dirty = true
	}

	// Rescue-debt repayment.
	if due := s.Ledger.RepaymentDue(a.ID, a.Bankroll); due > 0 {
		if err := s.Agents.CreditBankroll(ctx, a.ID, -due); err != nil {
			slog.Warn("repayment debit failed", "agent", a.Name, "err", err)
		} else {
			a.Bankroll -= due
			if err := s.Pool.CreditArena(ctx, due); err != nil {
				slog.Warn("repayment pool credit failed", "err", err)
			}
			s.Ledger.RecordRepayment(a.ID, due)
			dirty = true
		}
	}

	if dirty {
		if err := s.Agents.Save(ctx, a); err != nil {
			slog.Warn("save after economy hooks failed", "agent", a.Name, "err", err)
		}
	}
}

func (s *Scheduler) distributeYields(ctx context.Context) {
	towns, err := s.Town.ListTowns(ctx)
	if err != nil {
		slog.Warn("list towns for yield failed", "err", err)
		return
	}
	for _, t := range towns {
		if t.Status != world.TownComplete {
			continue
		}
		if err := s.Town.DistributeYield(ctx, t.ID); err != nil {
			slog.Warn("yield distribution failed", "town", t.Name, "err", err)
		}
	}
}

// ProcessAgent runs the full per-agent pipeline for one tick: observe, accept
// command, decide, execute, retention hooks, memory, receipt. Any panic is
// reified into a failed rest result; nothing escapes to the tick loop.
func (s *Scheduler) ProcessAgent(ctx context.Context, tick uint64, a *agent.Agent) (tr TickResult) {
	tr = TickResult{Tick: tick, AgentID: a.ID}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("agent pipeline panic", "agent", a.Name, "panic", r)
			tr.Action = action.Rest("pipeline failure")
			tr.Success = false
			tr.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	obs, err := s.Observer.Observe(ctx, a, tick)
	if err != nil {
		tr.Action = action.Rest("observation failed")
		tr.Error = fmt.Sprintf("observe: %v", err)
		return tr
	}

	cmd := s.acceptCommand(ctx, a)

	instructions := s.Runtime.DrainInstructions(a.ID)
	for _, in := range instructions {
		tr.InstructionSenders = append(tr.InstructionSenders, in.Sender)
	}

	outcome := s.Engine.Decide(ctx, obs, cmd, instructions)
	tr.HumanReply = outcome.HumanReply
	tr.Cost = outcome.Cost

	// A forcing command that failed to translate is terminalized before
	// execution; the pipeline continues on the fallback decision.
	if outcome.RejectedCommand != nil && cmd != nil {
		receipt := command.Receipt{
			CommandID:    cmd.ID,
			Status:       command.StatusRejected,
			ReasonCode:   outcome.RejectedCommand.ReasonCode,
			Reason:       outcome.RejectedCommand.Reason,
			NotifyChatID: cmd.NotifyChatID(),
		}
		s.resolveCommand(ctx, cmd.ID, receipt)
		tr.CommandReceipt = &receipt
		cmd = nil
	}

	strict := cmd != nil && cmd.Mode.Forcing() && outcome.Source == decide.SourceForced
	res := s.Dispatcher.Execute(ctx, obs, outcome.Action, strict)

	if cmd != nil {
		receipt := command.BuildReceipt(cmd, string(res.Action.Type), res.Success, res.ErrCode, res.ErrMsg)
		s.resolveCommand(ctx, cmd.ID, receipt)
		tr.CommandReceipt = &receipt
	}

	s.applyRetentionHooks(ctx, a, res.Action)

	s.updateMemory(ctx, tick, a, res)
	s.emitDecisionEvent(ctx, obs, outcome, res)

	tr.Action = res.Action
	tr.Success = res.Success
	tr.Narrative = res.Narrative
	tr.Error = res.ErrMsg
	return tr
}

// acceptCommand pulls the agent's next queued command and transitions it to
// ACCEPTED. At most one command is accepted per agent per tick.
func (s *Scheduler) acceptCommand(ctx context.Context, a *agent.Agent) *command.Command {
	if s.Commands == nil {
		return nil
	}
	cmd, err := s.Commands.NextQueued(ctx, a.ID)
	if err != nil {
		slog.Warn("command fetch failed", "agent", a.Name, "err", err)
		return nil
	}
	if cmd == nil {
		return nil
	}
	if err := s.Commands.MarkAccepted(ctx, cmd.ID); err != nil {
		slog.Warn("command accept failed", "command", cmd.ID, "err", err)
		return nil
	}
	cmd.Status = command.StatusAccepted
	return cmd
}

func (s *Scheduler) resolveCommand(ctx context.Context, commandID string, r command.Receipt) {
	if err := s.Commands.Resolve(ctx, commandID, r); err != nil {
		slog.Warn("command resolve failed", "command", commandID, "err", err)
	}
}

// applyRetentionHooks advances the non-rest streak and pays milestone rewards
// from the pool, each milestone at most once per streak.
func (s *Scheduler) applyRetentionHooks(ctx context.Context, a *agent.Agent, executed action.Action) {
	rested := executed.Type == action.TypeRest
	current := s.Runtime.AdvanceStreak(a.ID, rested)
	if rested {
		return
	}
	reward := economy.StreakReward(current, s.Runtime.LastRewardedMilestone(a.ID))
	if reward == 0 {
		return
	}
	granted, err := economy.DebitUnderFloor(ctx, s.Pool, reward)
	if err != nil || granted <= 0 {
		return
	}
	if err := s.Agents.CreditBankroll(ctx, a.ID, granted); err != nil {
		slog.Warn("streak reward credit failed", "agent", a.Name, "err", err)
		return
	}
	a.Bankroll += granted
	s.Runtime.MarkMilestoneRewarded(a.ID, current)
	slog.Info("streak milestone", "agent", a.Name, "streak", current, "reward", granted)
}

// updateMemory persists the agent's post-tick fields and journal entry.
// Balances are re-read first: every pipeline money move is already persisted
// at its point of action, and another agent's pipeline may have credited this
// row (a transfer, a match payout) after the tick-start snapshot.
func (s *Scheduler) updateMemory(ctx context.Context, tick uint64, a *agent.Agent, res *exec.Result) {
	if fresh, err := s.Agents.Get(ctx, a.ID); err == nil {
		a.Bankroll = fresh.Bankroll
		a.ReserveBalance = fresh.ReserveBalance
	}

	a.LastActionType = string(res.Action.Type)
	a.LastReasoning = res.Action.Reasoning
	a.LastNarrative = res.Narrative
	a.LastTargetPlot = res.TargetPlot
	a.LastTickAt = tick
	a.LastActiveAt = time.Now()
	a.ClampHealth()

	entry := fmt.Sprintf("T%d %s: %s", tick, res.Action.Type, res.Narrative)
	if !res.Success {
		entry = fmt.Sprintf("T%d %s failed: %s", tick, res.Action.Type, res.ErrMsg)
	}
	a.AppendJournal(entry)

	if err := s.Agents.Save(ctx, a); err != nil {
		slog.Warn("save agent failed", "agent", a.Name, "err", err)
	}
}

// emitDecisionEvent logs the full decision trail: chosen vs executed action,
// policy notes, autonomy rate movement.
func (s *Scheduler) emitDecisionEvent(ctx context.Context, obs *observe.Observation, outcome *decide.Outcome, res *exec.Result) {
	if obs.Town == nil {
		return
	}
	meta := map[string]any{
		"source":         string(outcome.Source),
		"executedAction": string(res.Action.Type),
		"success":        res.Success,
		"autonomyBefore": outcome.AutonomyBefore,
		"autonomyAfter":  outcome.AutonomyAfter,
	}
	if outcome.Chosen != nil {
		meta["chosenAction"] = string(outcome.Chosen.Type)
		meta["chosenReasoning"] = outcome.Chosen.Reasoning
	}
	if outcome.Calculations != "" {
		meta["calculations"] = outcome.Calculations
	}
	if len(outcome.Notes) > 0 {
		meta["policyNotes"] = outcome.Notes
	}
	if res.ErrCode != "" {
		meta["errorCode"] = res.ErrCode
	}
	title := fmt.Sprintf("%s: %s", obs.Agent.Name, res.Action.Type)
	if err := s.Town.LogEvent(ctx, obs.Town.ID, world.EventDecision, title, res.Action.Reasoning, obs.Agent.ID, meta); err != nil {
		slog.Warn("decision event failed", "agent", obs.Agent.Name, "err", err)
	}
}

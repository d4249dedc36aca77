// Package observe builds the immutable per-tick world snapshot each agent
// decides from.
package observe

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// AgentPublic is the externally visible slice of another agent.
type AgentPublic struct {
	ID        string
	Name      string
	Archetype agent.Archetype
	Bankroll  int64
	Health    int
	Elo       int
	IsInMatch bool
}

// Contribution summarizes an agent's work on one plot.
type Contribution struct {
	PlotID string
	Calls  int
}

// Observation is the snapshot for one agent for one tick. It is a pure data
// gather: nothing here mutates world state.
type Observation struct {
	Tick  uint64
	Agent *agent.Agent

	Town           *world.Town // nil when no active town
	OwnedPlots     []world.Plot
	AvailablePlots []world.Plot
	Contributions  []Contribution

	Pool         world.PoolSummary
	RecentEvents []world.Event
	SkillOutputs []string

	OtherAgents   []AgentPublic
	Relationships []world.Relationship

	WorldStats  world.WorldStats
	Wheel       world.WheelState
	WorldEvents []world.WorldEvent
	Objectives  []world.Objective
	GoalStack   []string
}

// recentEventCount is how many town events an observation carries.
const recentEventCount = 15

// Builder gathers observations from the collaborators. Optional services may
// be nil; their sections stay empty.
type Builder struct {
	Town   world.TownService
	AMM    world.AMMService
	Agents world.AgentStore
	Social world.SocialService
	Goals  world.GoalService
	Wheel  world.WheelService
	Events world.WorldEventService
	Skill  world.SkillService
}

// Observe assembles the snapshot for one agent. If no town is active it
// returns a degenerate observation (no town, empty lists) so the pipeline
// still runs; execution then reports "no active town" per branch.
func (b *Builder) Observe(ctx context.Context, a *agent.Agent, tick uint64) (*Observation, error) {
	obs := &Observation{Tick: tick, Agent: a}

	town, err := b.Town.GetActiveTown(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active town: %w", err)
	}

	stats, err := b.Town.GetWorldStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get world stats: %w", err)
	}
	obs.WorldStats = stats

	if town == nil {
		return obs, nil
	}
	obs.Town = town

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		plots, err := b.Town.GetAgentPlots(gctx, a.ID)
		if err != nil {
			return fmt.Errorf("agent plots: %w", err)
		}
		obs.OwnedPlots = plots
		for _, p := range plots {
			if p.Status == world.PlotUnderConstruction {
				obs.Contributions = append(obs.Contributions, Contribution{PlotID: p.ID, Calls: p.APICallsUsed})
			}
		}
		return nil
	})

	g.Go(func() error {
		plots, err := b.Town.GetAvailablePlots(gctx, town.ID)
		if err != nil {
			return fmt.Errorf("available plots: %w", err)
		}
		obs.AvailablePlots = plots
		return nil
	})

	g.Go(func() error {
		events, err := b.Town.GetRecentEvents(gctx, town.ID, recentEventCount)
		if err != nil {
			return fmt.Errorf("recent events: %w", err)
		}
		// Strip private-kind events from what agents can see.
		filtered := events[:0]
		for _, ev := range events {
			if !world.PrivateKind(ev.Kind) {
				filtered = append(filtered, ev)
			}
		}
		obs.RecentEvents = filtered
		return nil
	})

	if b.AMM != nil {
		g.Go(func() error {
			pool, err := b.AMM.GetPoolSummary(gctx)
			if err != nil {
				return fmt.Errorf("pool summary: %w", err)
			}
			obs.Pool = pool
			return nil
		})
	}

	g.Go(func() error {
		others, err := b.Agents.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("list agents: %w", err)
		}
		for _, other := range others {
			if other.ID == a.ID {
				continue
			}
			obs.OtherAgents = append(obs.OtherAgents, AgentPublic{
				ID:        other.ID,
				Name:      other.Name,
				Archetype: other.Archetype,
				Bankroll:  other.Bankroll,
				Health:    other.Health,
				Elo:       other.Elo,
				IsInMatch: other.IsInMatch,
			})
		}
		return nil
	})

	if b.Social != nil {
		g.Go(func() error {
			rels, err := b.Social.Relationships(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("relationships: %w", err)
			}
			obs.Relationships = rels
			return nil
		})
	}

	if b.Goals != nil {
		g.Go(func() error {
			objs, err := b.Goals.ActiveObjectives(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("objectives: %w", err)
			}
			obs.Objectives = objs
			stack, err := b.Goals.GoalStack(gctx, a.ID)
			if err != nil {
				return fmt.Errorf("goal stack: %w", err)
			}
			obs.GoalStack = stack
			return nil
		})
	}

	if b.Wheel != nil {
		g.Go(func() error {
			st, err := b.Wheel.State(gctx)
			if err != nil {
				return fmt.Errorf("wheel state: %w", err)
			}
			obs.Wheel = st
			return nil
		})
	}

	if b.Events != nil {
		g.Go(func() error {
			evs, err := b.Events.ActiveEvents(gctx)
			if err != nil {
				return fmt.Errorf("world events: %w", err)
			}
			obs.WorldEvents = evs
			return nil
		})
	}

	if b.Skill != nil {
		g.Go(func() error {
			outs, err := b.Skill.RecentOutputs(gctx, a.ID, 3)
			if err != nil {
				return fmt.Errorf("skill outputs: %w", err)
			}
			obs.SkillOutputs = outs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return obs, nil
}

// UnderConstruction returns the agent's owned under-construction plots.
func (o *Observation) UnderConstruction() []world.Plot {
	var out []world.Plot
	for _, p := range o.OwnedPlots {
		if p.Status == world.PlotUnderConstruction {
			out = append(out, p)
		}
	}
	return out
}

// Claimed returns the agent's owned plots still waiting for a build.
func (o *Observation) Claimed() []world.Plot {
	var out []world.Plot
	for _, p := range o.OwnedPlots {
		if p.Status == world.PlotClaimed {
			out = append(out, p)
		}
	}
	return out
}

// ReadyToComplete returns owned UC plots that have met their zone's minimum
// work steps.
func (o *Observation) ReadyToComplete() []world.Plot {
	var out []world.Plot
	for _, p := range o.OwnedPlots {
		if p.Status == world.PlotUnderConstruction && p.APICallsUsed >= world.MinWorkCalls(p.Zone) {
			out = append(out, p)
		}
	}
	return out
}

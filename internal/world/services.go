package world

import (
	"context"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
)

// TownService owns town/plot CRUD and its invariants. The core validates and
// sequences; the town service is the source of truth.
type TownService interface {
	GetActiveTown(ctx context.Context) (*Town, error)
	ListTowns(ctx context.Context) ([]Town, error)
	CreateTown(ctx context.Context, name string, level int) (*Town, error)
	GetAgentPlots(ctx context.Context, agentID string) ([]Plot, error)
	GetAvailablePlots(ctx context.Context, townID string) ([]Plot, error)
	GetRecentEvents(ctx context.Context, townID string, n int) ([]Event, error)
	GetWorldStats(ctx context.Context) (WorldStats, error)
	ClaimPlot(ctx context.Context, agentID, townID string, idx int) (*Plot, error)
	StartBuild(ctx context.Context, agentID, plotID, buildingType string, buildCost int64) error
	SubmitWork(ctx context.Context, agentID, plotID, content string) error
	SetBuildingName(ctx context.Context, plotID, name string) error
	CompleteBuild(ctx context.Context, agentID, plotID string) error
	AdjustYield(ctx context.Context, townID string, delta int) error
	TransferArena(ctx context.Context, fromID, toID string, amount int64) error
	DistributeYield(ctx context.Context, townID string) error
	LogEvent(ctx context.Context, townID string, kind EventKind, title, description, agentID string, meta map[string]any) error
}

// AMMService is the swap engine over the shared pool.
type AMMService interface {
	GetPoolSummary(ctx context.Context) (PoolSummary, error)
	Swap(ctx context.Context, agentID, side string, amountIn int64, opts SwapOpts) (*SwapResult, error)
}

// MatchService is the PvP match engine.
type MatchService interface {
	CreateMatch(ctx context.Context, req CreateMatchRequest) (*Match, error)
	GetMatchState(ctx context.Context, matchID string) (*MatchState, error)
	SubmitMove(ctx context.Context, req MoveRequest) (*MatchState, error)
	CancelMatch(ctx context.Context, matchID, agentID string) error
}

// SkillService is the paid-skill oracle.
type SkillService interface {
	BuySkill(ctx context.Context, req BuySkillRequest) (*SkillResult, error)
	EstimateSkillPriceArena(skill SkillKind, spotPrice float64) int64
	RecentOutputs(ctx context.Context, agentID string, n int) ([]string, error)
}

// SocialService exposes the relationship graph.
type SocialService interface {
	Relationships(ctx context.Context, agentID string) ([]Relationship, error)
}

// GoalService exposes live objectives and the persistent goal stack.
type GoalService interface {
	ActiveObjectives(ctx context.Context, agentID string) ([]Objective, error)
	GoalStack(ctx context.Context, agentID string) ([]string, error)
}

// WorldEventService produces global narrative pulses.
type WorldEventService interface {
	// Pulse is called once per tick; it returns a new event or nil.
	Pulse(ctx context.Context, tick uint64) (*WorldEvent, error)
	ActiveEvents(ctx context.Context) ([]WorldEvent, error)
}

// WheelService exposes the wheel-of-fate duel window.
type WheelService interface {
	State(ctx context.Context) (WheelState, error)
	IsQueued(ctx context.Context, agentID string) (bool, error)
}

// BountyService exposes construction bounties posted on town plots.
// ClaimBounty settles the reward onto the agent's row and returns the amount
// actually paid.
type BountyService interface {
	ActiveBounty(ctx context.Context, townID, plotID string) (*Bounty, error)
	ClaimBounty(ctx context.Context, bountyID, agentID string) (int64, error)
}

// VisualService selects a sprite/emoji for a completed building. Best-effort.
type VisualService interface {
	SelectVisual(ctx context.Context, plotID, buildingType, buildingName string) error
}

// AgentStore is the persistence boundary for agent rows.
type AgentStore interface {
	Get(ctx context.Context, id string) (*agent.Agent, error)
	ListActive(ctx context.Context) ([]*agent.Agent, error)
	Save(ctx context.Context, a *agent.Agent) error
	// CreditBankroll atomically adjusts a bankroll, clamping at zero.
	CreditBankroll(ctx context.Context, id string, delta int64) error
}

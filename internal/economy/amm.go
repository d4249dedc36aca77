package economy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// OffchainAMM is a constant-product swap engine over the shared pool row.
// The production deployment swaps this for the external AMM collaborator;
// the interface is identical.
type OffchainAMM struct {
	pool   PoolStore
	agents world.AgentStore
}

// NewOffchainAMM wires the default AMM over the given stores.
func NewOffchainAMM(pool PoolStore, agents world.AgentStore) *OffchainAMM {
	return &OffchainAMM{pool: pool, agents: agents}
}

// GetPoolSummary returns spot price and reserves.
func (m *OffchainAMM) GetPoolSummary(ctx context.Context) (world.PoolSummary, error) {
	p, err := m.pool.Pool(ctx)
	if err != nil {
		return world.PoolSummary{}, fmt.Errorf("load pool: %w", err)
	}
	spot := 0.0
	if p.ArenaBalance > 0 {
		spot = float64(p.ReserveBalance) / float64(p.ArenaBalance)
	}
	return world.PoolSummary{
		SpotPrice:      spot,
		FeeBps:         p.FeeBps,
		ReserveBalance: p.ReserveBalance,
		ArenaBalance:   p.ArenaBalance,
	}, nil
}

// Swap executes a constant-product trade, fee taken on the input side.
func (m *OffchainAMM) Swap(ctx context.Context, agentID, side string, amountIn int64, opts world.SwapOpts) (*world.SwapResult, error) {
	if amountIn <= 0 {
		return nil, fmt.Errorf("INVALID_AMOUNT: amountIn must be positive")
	}

	a, err := m.agents.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}
	p, err := m.pool.Pool(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}

	fee := amountIn * int64(p.FeeBps) / 10000
	effectiveIn := amountIn - fee

	var out int64
	switch side {
	case world.SwapBuyArena:
		if a.ReserveBalance < amountIn {
			return nil, fmt.Errorf("INSUFFICIENT_ARENA: reserve %d < %d", a.ReserveBalance, amountIn)
		}
		// reserve in, arena out: out = arena·Δ/(reserve+Δ).
		out = p.ArenaBalance * effectiveIn / (p.ReserveBalance + effectiveIn)
		if p.ArenaBalance-out < SolvencyPoolFloor {
			out = p.ArenaBalance - SolvencyPoolFloor
		}
		if out <= 0 {
			return nil, fmt.Errorf("AMM_SLIPPAGE: output rounds to zero")
		}
		if opts.MinAmountOut > 0 && out < opts.MinAmountOut {
			return nil, fmt.Errorf("AMM_SLIPPAGE: out %d < min %d", out, opts.MinAmountOut)
		}
		if err := m.pool.ApplySwap(ctx, amountIn, -out); err != nil {
			return nil, fmt.Errorf("apply swap: %w", err)
		}
		a.ReserveBalance -= amountIn
		a.Bankroll += out

	case world.SwapSellArena:
		if a.Bankroll < amountIn {
			return nil, fmt.Errorf("INSUFFICIENT_ARENA: bankroll %d < %d", a.Bankroll, amountIn)
		}
		out = p.ReserveBalance * effectiveIn / (p.ArenaBalance + effectiveIn)
		if out <= 0 {
			return nil, fmt.Errorf("AMM_SLIPPAGE: output rounds to zero")
		}
		if opts.MinAmountOut > 0 && out < opts.MinAmountOut {
			return nil, fmt.Errorf("AMM_SLIPPAGE: out %d < min %d", out, opts.MinAmountOut)
		}
		if err := m.pool.ApplySwap(ctx, -out, amountIn); err != nil {
			return nil, fmt.Errorf("apply swap: %w", err)
		}
		a.Bankroll -= amountIn
		a.ReserveBalance += out

	default:
		return nil, fmt.Errorf("INVALID_INTENT: unknown swap side %q", side)
	}

	if err := m.agents.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save agent: %w", err)
	}

	return &world.SwapResult{Swap: world.Swap{
		ID:        uuid.NewString(),
		Side:      side,
		AmountIn:  amountIn,
		AmountOut: out,
		FeeAmount: fee,
	}}, nil
}

var _ world.AMMService = (*OffchainAMM)(nil)

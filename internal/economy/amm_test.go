package economy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// memPool is an in-memory PoolStore for AMM tests.
type memPool struct {
	p Pool
}

func (m *memPool) Pool(ctx context.Context) (Pool, error) { return m.p, nil }

func (m *memPool) DebitArena(ctx context.Context, amount, floor int64) (int64, error) {
	grant := amount
	if m.p.ArenaBalance-grant < floor {
		grant = m.p.ArenaBalance - floor
	}
	if grant <= 0 {
		return 0, nil
	}
	m.p.ArenaBalance -= grant
	return grant, nil
}

func (m *memPool) CreditArena(ctx context.Context, amount int64) error {
	m.p.ArenaBalance += amount
	return nil
}

func (m *memPool) ApplySwap(ctx context.Context, reserveDelta, arenaDelta int64) error {
	if m.p.ReserveBalance+reserveDelta < 0 || m.p.ArenaBalance+arenaDelta < 0 {
		return fmt.Errorf("swap would drain the pool")
	}
	m.p.ReserveBalance += reserveDelta
	m.p.ArenaBalance += arenaDelta
	return nil
}

// memAgents is an in-memory AgentStore for AMM tests.
type memAgents struct {
	rows map[string]*agent.Agent
}

func (m *memAgents) Get(ctx context.Context, id string) (*agent.Agent, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("agent %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (m *memAgents) ListActive(ctx context.Context) ([]*agent.Agent, error) {
	out := make([]*agent.Agent, 0, len(m.rows))
	for _, a := range m.rows {
		out = append(out, a)
	}
	return out, nil
}

func (m *memAgents) Save(ctx context.Context, a *agent.Agent) error {
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memAgents) CreditBankroll(ctx context.Context, id string, delta int64) error {
	a, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("agent %s not found", id)
	}
	a.Bankroll += delta
	if a.Bankroll < 0 {
		a.Bankroll = 0
	}
	return nil
}

func newSwapFixture(reserve, arena int64, feeBps int, a *agent.Agent) (*OffchainAMM, *memPool, *memAgents) {
	pool := &memPool{p: Pool{ID: "main", ReserveBalance: reserve, ArenaBalance: arena, FeeBps: feeBps}}
	agents := &memAgents{rows: map[string]*agent.Agent{a.ID: a}}
	return NewOffchainAMM(pool, agents), pool, agents
}

func TestSwap_BuyArenaMovesBothBalances(t *testing.T) {
	amm, pool, agents := newSwapFixture(10000, 10000, 100, &agent.Agent{ID: "a1", Bankroll: 20, ReserveBalance: 200})
	ctx := context.Background()

	res, err := amm.Swap(ctx, "a1", world.SwapBuyArena, 100, world.SwapOpts{})
	require.NoError(t, err)

	// fee 1%, effective 99 in: out = 10000*99/10099 = 98.
	assert.Equal(t, int64(98), res.Swap.AmountOut)
	assert.Equal(t, int64(1), res.Swap.FeeAmount)

	a, _ := agents.Get(ctx, "a1")
	assert.Equal(t, int64(100), a.ReserveBalance)
	assert.Equal(t, int64(118), a.Bankroll)

	assert.Equal(t, int64(10100), pool.p.ReserveBalance)
	assert.Equal(t, int64(9902), pool.p.ArenaBalance)
}

func TestSwap_SellArenaMovesBothBalances(t *testing.T) {
	amm, pool, agents := newSwapFixture(10000, 10000, 100, &agent.Agent{ID: "a1", Bankroll: 200, ReserveBalance: 5})
	ctx := context.Background()

	res, err := amm.Swap(ctx, "a1", world.SwapSellArena, 100, world.SwapOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(98), res.Swap.AmountOut)

	a, _ := agents.Get(ctx, "a1")
	assert.Equal(t, int64(100), a.Bankroll)
	assert.Equal(t, int64(103), a.ReserveBalance)
	assert.Equal(t, int64(10100), pool.p.ArenaBalance)
}

func TestSwap_RejectsNonPositiveInput(t *testing.T) {
	amm, _, _ := newSwapFixture(10000, 10000, 100, &agent.Agent{ID: "a1"})

	_, err := amm.Swap(context.Background(), "a1", world.SwapBuyArena, 0, world.SwapOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_AMOUNT")
}

func TestSwap_RejectsOverdraw(t *testing.T) {
	amm, _, _ := newSwapFixture(10000, 10000, 100, &agent.Agent{ID: "a1", Bankroll: 10, ReserveBalance: 10})

	_, err := amm.Swap(context.Background(), "a1", world.SwapSellArena, 50, world.SwapOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSUFFICIENT_ARENA")
}

func TestSwap_SlippageGuard(t *testing.T) {
	amm, _, _ := newSwapFixture(10000, 10000, 100, &agent.Agent{ID: "a1", ReserveBalance: 100})

	_, err := amm.Swap(context.Background(), "a1", world.SwapBuyArena, 100,
		world.SwapOpts{MinAmountOut: 500})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMM_SLIPPAGE")
}

func TestSwap_BuyNeverBreachesPoolFloor(t *testing.T) {
	// Pool barely above floor: a big buy clamps to the floor remainder.
	amm, pool, agents := newSwapFixture(100, 1050, 0, &agent.Agent{ID: "a1", ReserveBalance: 5000})
	ctx := context.Background()

	res, err := amm.Swap(ctx, "a1", world.SwapBuyArena, 4000, world.SwapOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Swap.AmountOut)
	assert.Equal(t, int64(SolvencyPoolFloor), pool.p.ArenaBalance)

	a, _ := agents.Get(ctx, "a1")
	assert.Equal(t, int64(50), a.Bankroll)
}

func TestDebitUnderFloor_StopsAtFloor(t *testing.T) {
	pool := &memPool{p: Pool{ID: "main", ArenaBalance: 1010}}
	ctx := context.Background()

	granted, err := DebitUnderFloor(ctx, pool, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(10), granted)
	assert.Equal(t, int64(SolvencyPoolFloor), pool.p.ArenaBalance)

	granted, err = DebitUnderFloor(ctx, pool, 50)
	require.NoError(t, err)
	assert.Zero(t, granted)
}

func TestGetPoolSummary_SpotPrice(t *testing.T) {
	amm, _, _ := newSwapFixture(20000, 10000, 100, &agent.Agent{ID: "a1"})

	s, err := amm.GetPoolSummary(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.SpotPrice, 1e-9)
	assert.Equal(t, 100, s.FeeBps)
}

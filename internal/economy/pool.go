package economy

import "context"

// Pool is the persistent shared-pool row.
type Pool struct {
	ID             string `db:"id"`
	ReserveBalance int64  `db:"reserve_balance"`
	ArenaBalance   int64  `db:"arena_balance"`
	FeeBps         int    `db:"fee_bps"`
}

// PoolStore is the transactional boundary around the pool row. Debits must
// re-check the floor inside the transaction because two agent pipelines may
// debit concurrently within one tick.
type PoolStore interface {
	Pool(ctx context.Context) (Pool, error)
	// DebitArena withdraws up to amount while keeping arena_balance ≥ floor,
	// returning the amount actually granted (possibly 0).
	DebitArena(ctx context.Context, amount, floor int64) (int64, error)
	CreditArena(ctx context.Context, amount int64) error
	// ApplySwap adjusts both legs atomically (deltas may be negative).
	ApplySwap(ctx context.Context, reserveDelta, arenaDelta int64) error
}

// DebitUnderFloor withdraws min(amount, balance - SolvencyPoolFloor) from the
// pool. Every funded hook (rescue, wage, bonus, streak reward) goes through
// this helper so the floor invariant has one owner.
func DebitUnderFloor(ctx context.Context, store PoolStore, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}
	return store.DebitArena(ctx, amount, SolvencyPoolFloor)
}

package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
)

// poolID is the singleton pool row key.
const poolID = "main"

// EnsurePool creates the pool row with the given defaults if it is missing.
func (db *DB) EnsurePool(ctx context.Context, reserve, arena int64, feeBps int) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO pool (id, reserve_balance, arena_balance, fee_bps)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		poolID, reserve, arena, feeBps)
	if err != nil {
		return fmt.Errorf("ensure pool: %w", err)
	}
	return nil
}

// Pool loads the singleton pool row.
func (db *DB) Pool(ctx context.Context) (economy.Pool, error) {
	var p economy.Pool
	err := db.conn.GetContext(ctx, &p, `SELECT * FROM pool WHERE id = ?`, poolID)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.Pool{}, fmt.Errorf("pool row missing; EnsurePool not called")
	}
	if err != nil {
		return economy.Pool{}, fmt.Errorf("load pool: %w", err)
	}
	return p, nil
}

// DebitArena withdraws up to amount while keeping arena_balance at or above
// floor. The floor is re-read inside the transaction because two agent
// pipelines may debit concurrently within one tick.
func (db *DB) DebitArena(ctx context.Context, amount, floor int64) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int64
	if err := tx.GetContext(ctx, &balance,
		`SELECT arena_balance FROM pool WHERE id = ?`, poolID); err != nil {
		return 0, fmt.Errorf("read pool balance: %w", err)
	}

	grant := amount
	if balance-grant < floor {
		grant = balance - floor
	}
	if grant <= 0 {
		return 0, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE pool SET arena_balance = arena_balance - ? WHERE id = ?`, grant, poolID); err != nil {
		return 0, fmt.Errorf("debit pool: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return grant, nil
}

// CreditArena returns $ARENA to the pool.
func (db *DB) CreditArena(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return nil
	}
	_, err := db.conn.ExecContext(ctx,
		`UPDATE pool SET arena_balance = arena_balance + ? WHERE id = ?`, amount, poolID)
	if err != nil {
		return fmt.Errorf("credit pool: %w", err)
	}
	return nil
}

// ApplySwap adjusts both pool legs atomically, refusing to drive either
// negative.
func (db *DB) ApplySwap(ctx context.Context, reserveDelta, arenaDelta int64) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var p economy.Pool
	if err := tx.GetContext(ctx, &p, `SELECT * FROM pool WHERE id = ?`, poolID); err != nil {
		return fmt.Errorf("read pool: %w", err)
	}
	if p.ReserveBalance+reserveDelta < 0 || p.ArenaBalance+arenaDelta < 0 {
		return fmt.Errorf("swap would drain the pool (reserve %d%+d, arena %d%+d)",
			p.ReserveBalance, reserveDelta, p.ArenaBalance, arenaDelta)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pool SET reserve_balance = reserve_balance + ?, arena_balance = arena_balance + ?
		WHERE id = ?`, reserveDelta, arenaDelta, poolID); err != nil {
		return fmt.Errorf("apply swap: %w", err)
	}
	return tx.Commit()
}

var _ economy.PoolStore = (*DB)(nil)

package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

type agentRow struct {
	agent.Agent
	ScratchpadJSON string `db:"scratchpad_json"`
}

func (r *agentRow) toAgent() (*agent.Agent, error) {
	a := r.Agent
	if r.ScratchpadJSON != "" {
		if err := json.Unmarshal([]byte(r.ScratchpadJSON), &a.Scratchpad); err != nil {
			return nil, fmt.Errorf("decode scratchpad: %w", err)
		}
	}
	return &a, nil
}

// Get loads one agent by id.
func (db *DB) Get(ctx context.Context, id string) (*agent.Agent, error) {
	var row agentRow
	err := db.conn.GetContext(ctx, &row, `SELECT * FROM agents WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return row.toAgent()
}

// ListActive returns all active agents.
func (db *DB) ListActive(ctx context.Context) ([]*agent.Agent, error) {
	var rows []agentRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT * FROM agents WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	out := make([]*agent.Agent, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toAgent()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Save upserts the agent's full row.
func (db *DB) Save(ctx context.Context, a *agent.Agent) error {
	pad, err := json.Marshal(a.Scratchpad)
	if err != nil {
		return fmt.Errorf("encode scratchpad: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO agents (id, name, archetype, model_id, bankroll, reserve_balance,
			health, elo, is_active, is_in_match, current_match_id, scratchpad_json,
			last_action_type, last_reasoning, last_narrative, last_target_plot,
			last_tick_at, last_active_at, system_prompt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			archetype = excluded.archetype,
			model_id = excluded.model_id,
			bankroll = excluded.bankroll,
			reserve_balance = excluded.reserve_balance,
			health = excluded.health,
			elo = excluded.elo,
			is_active = excluded.is_active,
			is_in_match = excluded.is_in_match,
			current_match_id = excluded.current_match_id,
			scratchpad_json = excluded.scratchpad_json,
			last_action_type = excluded.last_action_type,
			last_reasoning = excluded.last_reasoning,
			last_narrative = excluded.last_narrative,
			last_target_plot = excluded.last_target_plot,
			last_tick_at = excluded.last_tick_at,
			last_active_at = excluded.last_active_at,
			system_prompt = excluded.system_prompt`,
		a.ID, a.Name, a.Archetype, a.ModelID, a.Bankroll, a.ReserveBalance,
		a.Health, a.Elo, a.IsActive, a.IsInMatch, a.CurrentMatchID, string(pad),
		a.LastActionType, a.LastReasoning, a.LastNarrative, a.LastTargetPlot,
		a.LastTickAt, a.LastActiveAt, a.SystemPrompt)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.ID, err)
	}
	return nil
}

// CreditBankroll atomically adjusts a bankroll, clamping at zero.
func (db *DB) CreditBankroll(ctx context.Context, id string, delta int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE agents SET bankroll = MAX(0, bankroll + ?) WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("credit bankroll %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("credit bankroll: agent %s not found", id)
	}
	return nil
}

// GetByName looks an agent up by exact name, nil when absent.
func (db *DB) GetByName(ctx context.Context, name string) (*agent.Agent, error) {
	var row agentRow
	err := db.conn.GetContext(ctx, &row, `SELECT * FROM agents WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent by name: %w", err)
	}
	return row.toAgent()
}

var _ world.AgentStore = (*DB)(nil)

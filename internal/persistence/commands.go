package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/alttabdlt/ai-arena-sub000/internal/command"
)

type commandRow struct {
	ID                 string `db:"id"`
	AgentID            string `db:"agent_id"`
	Mode               string `db:"mode"`
	Intent             string `db:"intent"`
	ParamsJSON         string `db:"params_json"`
	ExpectedActionType string `db:"expected_action_type"`
	ConstraintsJSON    string `db:"constraints_json"`
	AuditJSON          string `db:"audit_json"`
	Status             string `db:"status"`
	IssuedTick         uint64 `db:"issued_tick"`
	ReceiptJSON        string `db:"receipt_json"`
}

func (r *commandRow) toCommand() (*command.Command, error) {
	c := &command.Command{
		ID:                 r.ID,
		AgentID:            r.AgentID,
		Mode:               command.Mode(r.Mode),
		Intent:             r.Intent,
		ExpectedActionType: r.ExpectedActionType,
		Status:             command.Status(r.Status),
		IssuedTick:         r.IssuedTick,
	}
	for _, pair := range []struct {
		raw string
		dst *map[string]any
	}{
		{r.ParamsJSON, &c.Params},
		{r.ConstraintsJSON, &c.Constraints},
		{r.AuditJSON, &c.AuditMeta},
	} {
		if pair.raw == "" || pair.raw == "{}" {
			continue
		}
		if err := json.Unmarshal([]byte(pair.raw), pair.dst); err != nil {
			return nil, fmt.Errorf("decode command %s: %w", r.ID, err)
		}
	}
	return c, nil
}

// Enqueue inserts a new QUEUED command and returns its id. This is the
// control-plane's write entry point.
func (db *DB) Enqueue(ctx context.Context, c *command.Command) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	enc := func(m map[string]any) (string, error) {
		if len(m) == 0 {
			return "{}", nil
		}
		b, err := json.Marshal(m)
		return string(b), err
	}
	params, err := enc(c.Params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	constraints, err := enc(c.Constraints)
	if err != nil {
		return "", fmt.Errorf("encode constraints: %w", err)
	}
	audit, err := enc(c.AuditMeta)
	if err != nil {
		return "", fmt.Errorf("encode audit meta: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO commands (id, agent_id, mode, intent, params_json,
			expected_action_type, constraints_json, audit_json, status, issued_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AgentID, c.Mode, c.Intent, params,
		c.ExpectedActionType, constraints, audit, command.StatusQueued, db.tick())
	if err != nil {
		return "", fmt.Errorf("enqueue command: %w", err)
	}
	return c.ID, nil
}

// NextQueued returns the agent's oldest QUEUED command, nil when none.
func (db *DB) NextQueued(ctx context.Context, agentID string) (*command.Command, error) {
	var row commandRow
	err := db.conn.GetContext(ctx, &row, `
		SELECT * FROM commands WHERE agent_id = ? AND status = ?
		ORDER BY issued_tick, rowid LIMIT 1`, agentID, command.StatusQueued)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next queued command: %w", err)
	}
	return row.toCommand()
}

// MarkAccepted transitions a QUEUED command to ACCEPTED.
func (db *DB) MarkAccepted(ctx context.Context, commandID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE commands SET status = ? WHERE id = ? AND status = ?`,
		command.StatusAccepted, commandID, command.StatusQueued)
	if err != nil {
		return fmt.Errorf("accept command: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("command %s is not queued", commandID)
	}
	return nil
}

// Resolve terminalizes an ACCEPTED command with its receipt.
func (db *DB) Resolve(ctx context.Context, commandID string, r command.Receipt) error {
	receipt, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE commands SET status = ?, receipt_json = ? WHERE id = ? AND status = ?`,
		r.Status, string(receipt), commandID, command.StatusAccepted)
	if err != nil {
		return fmt.Errorf("resolve command: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("command %s is not accepted", commandID)
	}
	return nil
}

var _ command.Queue = (*DB)(nil)

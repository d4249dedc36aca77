package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/entropy"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

// plotsPerTown is the plot count every town is founded with.
const plotsPerTown = 12

// townZoneMix is the weighted zone pool new plots draw from.
var townZoneMix = []world.Zone{
	world.ZoneResidential, world.ZoneResidential, world.ZoneResidential,
	world.ZoneCommercial, world.ZoneCommercial,
	world.ZoneIndustrial, world.ZoneIndustrial,
	world.ZoneEntertainment,
	world.ZoneCivic,
}

// GetActiveTown returns the town currently building, or nil.
func (db *DB) GetActiveTown(ctx context.Context) (*world.Town, error) {
	var t world.Town
	err := db.conn.GetContext(ctx, &t,
		`SELECT * FROM towns WHERE status = ? ORDER BY level DESC LIMIT 1`, world.TownBuilding)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active town: %w", err)
	}
	return &t, nil
}

// ListTowns returns every town.
func (db *DB) ListTowns(ctx context.Context) ([]world.Town, error) {
	var towns []world.Town
	if err := db.conn.SelectContext(ctx, &towns, `SELECT * FROM towns ORDER BY level`); err != nil {
		return nil, fmt.Errorf("list towns: %w", err)
	}
	return towns, nil
}

// CreateTown founds a town and seeds its plots with a randomized zone mix.
func (db *DB) CreateTown(ctx context.Context, name string, level int) (*world.Town, error) {
	t := world.Town{
		ID:     uuid.NewString(),
		Name:   name,
		Level:  level,
		Status: world.TownBuilding,
		Yield:  level,
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO towns (id, name, level, status, yield) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Level, t.Status, t.Yield); err != nil {
		return nil, fmt.Errorf("insert town: %w", err)
	}

	for i := 0; i < plotsPerTown; i++ {
		zone := townZoneMix[entropy.IntN(len(townZoneMix))]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO plots (id, town_id, idx, zone, status) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), t.ID, i, zone, world.PlotEmpty); err != nil {
			return nil, fmt.Errorf("insert plot %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetAgentPlots returns the plots an agent owns, lowest index first.
func (db *DB) GetAgentPlots(ctx context.Context, agentID string) ([]world.Plot, error) {
	var plots []world.Plot
	err := db.conn.SelectContext(ctx, &plots,
		`SELECT * FROM plots WHERE owner_id = ? ORDER BY idx`, agentID)
	if err != nil {
		return nil, fmt.Errorf("agent plots: %w", err)
	}
	return plots, nil
}

// GetAvailablePlots returns the town's unclaimed plots.
func (db *DB) GetAvailablePlots(ctx context.Context, townID string) ([]world.Plot, error) {
	var plots []world.Plot
	err := db.conn.SelectContext(ctx, &plots,
		`SELECT * FROM plots WHERE town_id = ? AND status = ? ORDER BY idx`, townID, world.PlotEmpty)
	if err != nil {
		return nil, fmt.Errorf("available plots: %w", err)
	}
	return plots, nil
}

type eventRow struct {
	ID           int64  `db:"id"`
	TownID       string `db:"town_id"`
	Tick         uint64 `db:"tick"`
	Kind         string `db:"kind"`
	Title        string `db:"title"`
	Description  string `db:"description"`
	AgentID      string `db:"agent_id"`
	MetadataJSON string `db:"metadata_json"`
}

// GetRecentEvents returns the town's newest n events, newest first.
func (db *DB) GetRecentEvents(ctx context.Context, townID string, n int) ([]world.Event, error) {
	var rows []eventRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT * FROM events WHERE town_id = ? ORDER BY id DESC LIMIT ?`, townID, n)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	out := make([]world.Event, 0, len(rows))
	for _, r := range rows {
		ev := world.Event{
			ID:          fmt.Sprintf("%d", r.ID),
			TownID:      r.TownID,
			Tick:        r.Tick,
			Kind:        world.EventKind(r.Kind),
			Title:       r.Title,
			Description: r.Description,
			AgentID:     r.AgentID,
		}
		if r.MetadataJSON != "" && r.MetadataJSON != "{}" {
			if err := json.Unmarshal([]byte(r.MetadataJSON), &ev.Metadata); err != nil {
				slog.Debug("bad event metadata", "event", r.ID, "err", err)
			}
		}
		out = append(out, ev)
	}
	return out, nil
}

// GetWorldStats aggregates progress counters and the drifting multipliers.
func (db *DB) GetWorldStats(ctx context.Context) (world.WorldStats, error) {
	stats := world.WorldStats{UpkeepMultiplier: 1, CostMultiplier: 1}

	if err := db.conn.GetContext(ctx, &stats.CompletedTowns,
		`SELECT COUNT(*) FROM towns WHERE status = ?`, world.TownComplete); err != nil {
		return stats, fmt.Errorf("count towns: %w", err)
	}
	if err := db.conn.GetContext(ctx, &stats.ActiveAgents,
		`SELECT COUNT(*) FROM agents WHERE is_active = 1`); err != nil {
		return stats, fmt.Errorf("count agents: %w", err)
	}
	if db.Multipliers != nil {
		t := db.tick()
		stats.UpkeepMultiplier = db.Multipliers.UpkeepMultiplier(t)
		stats.CostMultiplier = db.Multipliers.CostMultiplier(t)
	}
	return stats, nil
}

// ClaimPlot transfers an EMPTY plot to the agent.
func (db *DB) ClaimPlot(ctx context.Context, agentID, townID string, idx int) (*world.Plot, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var p world.Plot
	err = tx.GetContext(ctx, &p,
		`SELECT * FROM plots WHERE town_id = ? AND idx = ?`, townID, idx)
	if err != nil {
		return nil, fmt.Errorf("load plot %d: %w", idx, err)
	}
	if p.Status != world.PlotEmpty {
		return nil, fmt.Errorf("plot %d is %s, not claimable", idx, p.Status)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE plots SET owner_id = ?, status = ? WHERE id = ?`,
		agentID, world.PlotClaimed, p.ID); err != nil {
		return nil, fmt.Errorf("claim plot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	p.OwnerID = agentID
	p.Status = world.PlotClaimed
	return &p, nil
}

// StartBuild moves an owned CLAIMED plot into construction.
func (db *DB) StartBuild(ctx context.Context, agentID, plotID, buildingType string, buildCost int64) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE plots SET status = ?, building_type = ?, build_cost = ?, api_calls_used = 0
		WHERE id = ? AND owner_id = ? AND status = ?`,
		world.PlotUnderConstruction, buildingType, buildCost,
		plotID, agentID, world.PlotClaimed)
	if err != nil {
		return fmt.Errorf("start build: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("plot %s is not a claimed plot of agent %s", plotID, agentID)
	}
	return nil
}

// SubmitWork appends a work log and bumps the plot's step counter.
func (db *DB) SubmitWork(ctx context.Context, agentID, plotID, content string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var step int
	if err := tx.GetContext(ctx, &step,
		`SELECT api_calls_used FROM plots WHERE id = ? AND status = ?`,
		plotID, world.PlotUnderConstruction); err != nil {
		return fmt.Errorf("load plot for work: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO work_logs (id, plot_id, agent_id, step, content, tick) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), plotID, agentID, step+1, content, db.tick()); err != nil {
		return fmt.Errorf("insert work log: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE plots SET api_calls_used = api_calls_used + 1 WHERE id = ?`, plotID); err != nil {
		return fmt.Errorf("bump work counter: %w", err)
	}
	return tx.Commit()
}

// SetBuildingName names the building on a plot.
func (db *DB) SetBuildingName(ctx context.Context, plotID, name string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE plots SET building_name = ? WHERE id = ?`, name, plotID)
	if err != nil {
		return fmt.Errorf("set building name: %w", err)
	}
	return nil
}

// CompleteBuild finishes a plot's construction; when it was the town's last
// open plot the town itself flips to COMPLETE.
func (db *DB) CompleteBuild(ctx context.Context, agentID, plotID string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var p world.Plot
	if err := tx.GetContext(ctx, &p, `SELECT * FROM plots WHERE id = ?`, plotID); err != nil {
		return fmt.Errorf("load plot: %w", err)
	}
	if p.OwnerID != agentID || p.Status != world.PlotUnderConstruction {
		return fmt.Errorf("plot %s is not under construction by agent %s", plotID, agentID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE plots SET status = ? WHERE id = ?`, world.PlotComplete, plotID); err != nil {
		return fmt.Errorf("complete plot: %w", err)
	}

	var open int
	if err := tx.GetContext(ctx, &open,
		`SELECT COUNT(*) FROM plots WHERE town_id = ? AND status != ?`,
		p.TownID, world.PlotComplete); err != nil {
		return fmt.Errorf("count open plots: %w", err)
	}
	if open == 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE towns SET status = ? WHERE id = ?`, world.TownComplete, p.TownID); err != nil {
			return fmt.Errorf("complete town: %w", err)
		}
		slog.Info("town complete", "town", p.TownID)
	}
	return tx.Commit()
}

// AdjustYield moves a town's yield by delta, floored at zero.
func (db *DB) AdjustYield(ctx context.Context, townID string, delta int) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE towns SET yield = MAX(0, yield + ?) WHERE id = ?`, delta, townID)
	if err != nil {
		return fmt.Errorf("adjust yield: %w", err)
	}
	return nil
}

// TransferArena moves $ARENA between two agents atomically.
func (db *DB) TransferArena(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive")
	}
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE agents SET bankroll = bankroll - ? WHERE id = ? AND bankroll >= ?`,
		amount, fromID, amount)
	if err != nil {
		return fmt.Errorf("debit sender: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sender %s cannot cover %d", fromID, amount)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET bankroll = bankroll + ? WHERE id = ?`, amount, toID); err != nil {
		return fmt.Errorf("credit recipient: %w", err)
	}
	return tx.Commit()
}

// DistributeYield pays the town's yield to each completed-building owner,
// funded from the pool under the floor guard.
func (db *DB) DistributeYield(ctx context.Context, townID string) error {
	var t world.Town
	if err := db.conn.GetContext(ctx, &t, `SELECT * FROM towns WHERE id = ?`, townID); err != nil {
		return fmt.Errorf("load town: %w", err)
	}
	if t.Yield <= 0 {
		return nil
	}

	var owners []string
	if err := db.conn.SelectContext(ctx, &owners,
		`SELECT DISTINCT owner_id FROM plots WHERE town_id = ? AND status = ? AND owner_id != ''`,
		townID, world.PlotComplete); err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	for _, owner := range owners {
		granted, err := economy.DebitUnderFloor(ctx, db, int64(t.Yield))
		if err != nil {
			return fmt.Errorf("yield pool debit: %w", err)
		}
		if granted == 0 {
			break
		}
		if err := db.CreditBankroll(ctx, owner, granted); err != nil {
			return fmt.Errorf("yield credit: %w", err)
		}
	}
	return nil
}

// LogEvent appends one town event.
func (db *DB) LogEvent(ctx context.Context, townID string, kind world.EventKind, title, description, agentID string, meta map[string]any) error {
	metaJSON := "{}"
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		metaJSON = string(b)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO events (town_id, tick, kind, title, description, agent_id, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		townID, db.tick(), kind, title, description, agentID, metaJSON)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

var _ world.TownService = (*DB)(nil)

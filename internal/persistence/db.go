// Package persistence provides the SQLite store backing agents, towns, plots,
// events, work logs, commands and the economy pool.
package persistence

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MultiplierSource supplies the world's drifting cost and upkeep multipliers;
// the noise pulse implements it.
type MultiplierSource interface {
	UpkeepMultiplier(tick uint64) float64
	CostMultiplier(tick uint64) float64
}

// DB wraps a SQLite connection. It implements the agent store, town service,
// pool store and command queue boundaries.
type DB struct {
	conn *sqlx.DB

	// Multipliers feeds world stats; nil means both multipliers are 1.
	Multipliers MultiplierSource

	// TickFn stamps events and commands with the current tick; nil means 0.
	TickFn func() uint64
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) tick() uint64 {
	if db.TickFn == nil {
		return 0
	}
	return db.TickFn()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		archetype TEXT NOT NULL,
		model_id TEXT NOT NULL DEFAULT 'haiku',
		bankroll INTEGER NOT NULL DEFAULT 0,
		reserve_balance INTEGER NOT NULL DEFAULT 0,
		health INTEGER NOT NULL DEFAULT 100,
		elo INTEGER NOT NULL DEFAULT 1200,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_in_match INTEGER NOT NULL DEFAULT 0,
		current_match_id TEXT NOT NULL DEFAULT '',
		scratchpad_json TEXT NOT NULL DEFAULT '[]',
		last_action_type TEXT NOT NULL DEFAULT '',
		last_reasoning TEXT NOT NULL DEFAULT '',
		last_narrative TEXT NOT NULL DEFAULT '',
		last_target_plot TEXT NOT NULL DEFAULT '',
		last_tick_at INTEGER NOT NULL DEFAULT 0,
		last_active_at TIMESTAMP NOT NULL DEFAULT '1970-01-01T00:00:00Z',
		system_prompt TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS towns (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		level INTEGER NOT NULL,
		status TEXT NOT NULL,
		yield INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS plots (
		id TEXT PRIMARY KEY,
		town_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		zone TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'EMPTY',
		building_type TEXT NOT NULL DEFAULT '',
		building_name TEXT NOT NULL DEFAULT '',
		api_calls_used INTEGER NOT NULL DEFAULT 0,
		build_cost INTEGER NOT NULL DEFAULT 0,
		UNIQUE(town_id, idx)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		town_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		agent_id TEXT NOT NULL DEFAULT '',
		metadata_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS work_logs (
		id TEXT PRIMARY KEY,
		plot_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		content TEXT NOT NULL,
		tick INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commands (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		intent TEXT NOT NULL,
		params_json TEXT NOT NULL DEFAULT '{}',
		expected_action_type TEXT NOT NULL DEFAULT '',
		constraints_json TEXT NOT NULL DEFAULT '{}',
		audit_json TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'QUEUED',
		issued_tick INTEGER NOT NULL DEFAULT 0,
		receipt_json TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS pool (
		id TEXT PRIMARY KEY,
		reserve_balance INTEGER NOT NULL,
		arena_balance INTEGER NOT NULL,
		fee_bps INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_town_tick ON events(town_id, tick);
	CREATE INDEX IF NOT EXISTS idx_plots_town ON plots(town_id);
	CREATE INDEX IF NOT EXISTS idx_plots_owner ON plots(owner_id);
	CREATE INDEX IF NOT EXISTS idx_commands_agent_status ON commands(agent_id, status);
	CREATE INDEX IF NOT EXISTS idx_work_logs_plot ON work_logs(plot_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

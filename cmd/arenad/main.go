// Command arenad runs the arena agent scheduler against a local SQLite world.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alttabdlt/ai-arena-sub000/internal/agent"
	"github.com/alttabdlt/ai-arena-sub000/internal/config"
	"github.com/alttabdlt/ai-arena-sub000/internal/decide"
	"github.com/alttabdlt/ai-arena-sub000/internal/economy"
	"github.com/alttabdlt/ai-arena-sub000/internal/exec"
	"github.com/alttabdlt/ai-arena-sub000/internal/llm"
	"github.com/alttabdlt/ai-arena-sub000/internal/observe"
	"github.com/alttabdlt/ai-arena-sub000/internal/persistence"
	"github.com/alttabdlt/ai-arena-sub000/internal/scheduler"
	"github.com/alttabdlt/ai-arena-sub000/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	if err := db.EnsurePool(ctx, cfg.InitReserve, cfg.InitArena, cfg.FeeBps); err != nil {
		slog.Error("failed to seed economy pool", "error", err)
		os.Exit(1)
	}

	// ── World pulse ───────────────────────────────────────────────────
	pulse := world.NewNoisePulse(cfg.WorldSeed)
	db.Multipliers = pulse

	// ── LLM Client ────────────────────────────────────────────────────
	gateway := llm.NewClient(cfg.APIKey)
	if gateway.Enabled() {
		slog.Info("model gateway enabled")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, agents will use deterministic decisions")
	}

	// ── Core wiring ───────────────────────────────────────────────────
	runtime := agent.NewRuntime()
	amm := economy.NewOffchainAMM(db, db)

	observer := &observe.Builder{
		Town:   db,
		AMM:    amm,
		Agents: db,
		Events: pulse,
	}

	engine := &decide.Engine{Runtime: runtime}
	dispatcher := &exec.Dispatcher{
		Town:    db,
		AMM:     amm,
		Agents:  db,
		Pool:    db,
		Runtime: runtime,
	}
	if gateway.Enabled() {
		engine.Gateway = gateway
		dispatcher.Gateway = gateway
	}

	sched := &scheduler.Scheduler{
		Town:       db,
		Agents:     db,
		Pool:       db,
		Ledger:     economy.NewLedger(),
		Runtime:    runtime,
		Observer:   observer,
		Engine:     engine,
		Dispatcher: dispatcher,
		Commands:   db,
		Events:     pulse,
		OnTickResult: func(tr scheduler.TickResult) {
			slog.Info("tick result",
				"tick", tr.Tick,
				"agent", tr.AgentID,
				"action", tr.Action.Type,
				"success", tr.Success,
				"narrative", tr.Narrative,
			)
		},
	}
	db.TickFn = sched.CurrentTick

	// ── Start ─────────────────────────────────────────────────────────
	agents, err := db.ListActive(ctx)
	if err != nil {
		slog.Error("failed to list agents", "error", err)
		os.Exit(1)
	}
	slog.Info("arena ready", "agents", len(agents), "interval_ms", cfg.TickIntervalMs)

	sched.Start(cfg.TickIntervalMs)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	sched.Stop()
	fmt.Println("Arena stopped.")
}

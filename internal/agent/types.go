// Package agent provides the agent data model, archetypes, the scratchpad
// journal, and the per-process runtime state shared by the tick pipelines.
package agent

import "time"

// Archetype is the personality tag used to seed prompts and model temperature.
type Archetype string

const (
	ArchetypeShark     Archetype = "SHARK"
	ArchetypeRock      Archetype = "ROCK"
	ArchetypeChameleon Archetype = "CHAMELEON"
	ArchetypeDegen     Archetype = "DEGEN"
	ArchetypeGrinder   Archetype = "GRINDER"
)

// LoopMode selects the decision path for an agent.
type LoopMode string

const (
	LoopDefault LoopMode = "DEFAULT"
	LoopDegen   LoopMode = "DEGEN_LOOP"
)

// MaxScratchpadEntries bounds the journal carried into prompts.
const MaxScratchpadEntries = 20

// Agent is a persistent participant in the town economy.
type Agent struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Archetype Archetype `db:"archetype"`
	ModelID   string    `db:"model_id"`

	// Balances. Bankroll is integer $ARENA, ReserveBalance integer stable units.
	Bankroll       int64 `db:"bankroll"`
	ReserveBalance int64 `db:"reserve_balance"`

	Health int `db:"health"` // 0-100; at 0 the agent may only rest
	Elo    int `db:"elo"`

	IsActive       bool   `db:"is_active"`
	IsInMatch      bool   `db:"is_in_match"`
	CurrentMatchID string `db:"current_match_id"`

	// Bounded text journal, newest last.
	Scratchpad []string `db:"-"`

	LastActionType string `db:"last_action_type"`
	LastReasoning  string `db:"last_reasoning"`
	LastNarrative  string `db:"last_narrative"`
	LastTargetPlot string `db:"last_target_plot"`

	LastTickAt   uint64    `db:"last_tick_at"`
	LastActiveAt time.Time `db:"last_active_at"`

	SystemPrompt string `db:"system_prompt"`
}

// Incapacitated reports whether the agent is at or below zero health.
// Incapacitated agents may only rest.
func (a *Agent) Incapacitated() bool {
	return a.Health <= 0
}

// ClampHealth keeps health within [0, 100].
func (a *Agent) ClampHealth() {
	if a.Health < 0 {
		a.Health = 0
	}
	if a.Health > 100 {
		a.Health = 100
	}
}

// AppendJournal adds an entry to the scratchpad, dropping the oldest entry
// once the bound is reached.
func (a *Agent) AppendJournal(entry string) {
	a.Scratchpad = append(a.Scratchpad, entry)
	if len(a.Scratchpad) > MaxScratchpadEntries {
		a.Scratchpad = a.Scratchpad[len(a.Scratchpad)-MaxScratchpadEntries:]
	}
}

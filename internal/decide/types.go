// Package decide produces one Action per agent per tick, via a forced
// command, the deterministic degen-loop policy, or a model call with the
// soft-policy overlay on top.
package decide

import (
	"context"

	"github.com/alttabdlt/ai-arena-sub000/internal/action"
	"github.com/alttabdlt/ai-arena-sub000/internal/llm"
)

// Policy note tiers.
const (
	TierHardSafety      = "hard_safety"
	TierEconomicWarning = "economic_warning"
	TierStrategyNudge   = "strategy_nudge"
)

// PolicyNote is one diagnostic entry from the overlay chain.
type PolicyNote struct {
	Tier    string `json:"tier"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Applied bool   `json:"applied"`
}

// Source identifies which decision path produced the action.
type Source string

const (
	SourceForced Source = "forced"
	SourceDegen  Source = "degen"
	SourceModel  Source = "model"
)

// RejectedCommand records a forced command that could not be translated.
type RejectedCommand struct {
	CommandID  string
	ReasonCode string
	Reason     string
}

// Outcome is the full decision record for one tick.
type Outcome struct {
	Action       action.Action
	Source       Source
	Notes        []PolicyNote
	Calculations string
	HumanReply   string
	Cost         *llm.Cost

	// Chosen is the pre-overlay action when the overlay rewrote it.
	Chosen *action.Action

	// AutonomyBefore/After are the override rates around this decision.
	AutonomyBefore float64
	AutonomyAfter  float64

	// RejectedCommand is set when a STRONG/OVERRIDE command failed to
	// translate and the engine fell through to the normal path.
	RejectedCommand *RejectedCommand
}

// Gateway is the slice of the model client the engine needs.
type Gateway interface {
	CallModel(ctx context.Context, spec llm.ModelSpec, messages []llm.Message, temperature float64, forceNoJSONMode bool) (*llm.Completion, error)
}

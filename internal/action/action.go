// Package action defines the agent action union and the coercion layer that
// turns untyped model output into validated parameter bags.
package action

// Type discriminates the action union.
type Type string

const (
	TypeBuyArena      Type = "buy_arena"
	TypeSellArena     Type = "sell_arena"
	TypeClaimPlot     Type = "claim_plot"
	TypeStartBuild    Type = "start_build"
	TypeDoWork        Type = "do_work"
	TypeCompleteBuild Type = "complete_build"
	TypePlayArena     Type = "play_arena"
	TypeTransferArena Type = "transfer_arena"
	TypeBuySkill      Type = "buy_skill"
	TypeMine          Type = "mine" // legacy; always redirected
	TypeRest          Type = "rest"
)

// Known reports whether t is a recognized action type.
func Known(t Type) bool {
	switch t {
	case TypeBuyArena, TypeSellArena, TypeClaimPlot, TypeStartBuild,
		TypeDoWork, TypeCompleteBuild, TypePlayArena, TypeTransferArena,
		TypeBuySkill, TypeMine, TypeRest:
		return true
	}
	return false
}

// Params is the variant-specific parameter bag. Only the fields relevant to
// an action's type are meaningful; the extractors in FromDetails populate
// them from the model's untyped details object.
type Params struct {
	// Trading.
	AmountIn     int64  `json:"amountIn,omitempty"`
	MinAmountOut int64  `json:"minAmountOut,omitempty"`
	Why          string `json:"why,omitempty"`
	NextAction   string `json:"nextAction,omitempty"`

	// Plots and builds.
	PlotID       string `json:"plotId,omitempty"`
	PlotIndex    *int   `json:"plotIndex,omitempty"`
	BuildingType string `json:"buildingType,omitempty"`

	// PvP.
	GameType string `json:"gameType,omitempty"`
	Wager    int64  `json:"wager,omitempty"`

	// Transfers.
	TargetName string `json:"targetName,omitempty"`
	Amount     int64  `json:"amount,omitempty"`

	// Paid skills.
	Skill              string `json:"skill,omitempty"`
	Question           string `json:"question,omitempty"`
	WhyNow             string `json:"whyNow,omitempty"`
	ExpectedNextAction string `json:"expectedNextAction,omitempty"`
	IfThen             string `json:"ifThen,omitempty"`
}

// Action is one validated agent intent.
type Action struct {
	Type      Type   `json:"type"`
	Reasoning string `json:"reasoning"`
	Params    Params `json:"params"`
}

// Rest builds a rest action with the given reasoning.
func Rest(reasoning string) Action {
	return Action{Type: TypeRest, Reasoning: reasoning}
}

// Redirect builds a replacement action tagged so logs show the original
// intent was rewritten during execution.
func Redirect(t Type, reasoning string, p Params) Action {
	return Action{Type: t, Reasoning: "[REDIRECT] " + reasoning, Params: p}
}

// FromDetails coerces a raw model decision into an Action. Unknown action
// types route to rest. Malformed fields are dropped rather than failing the
// decision; execution re-validates everything it needs.
func FromDetails(rawType, reasoning string, details map[string]any) Action {
	t := Type(rawType)
	if !Known(t) {
		return Rest("unknown action type " + rawType)
	}

	a := Action{Type: t, Reasoning: reasoning}
	if details == nil {
		return a
	}

	switch t {
	case TypeBuyArena, TypeSellArena:
		a.Params.AmountIn = intField(details, "amountIn", "amount_in", "amount")
		a.Params.MinAmountOut = intField(details, "minAmountOut", "min_amount_out")
		a.Params.Why = strField(details, "why")
		a.Params.NextAction = strField(details, "nextAction", "next_action")

	case TypeClaimPlot:
		a.Params.PlotIndex = indexField(details, "plotIndex", "plot_index", "index")

	case TypeStartBuild:
		a.Params.PlotID = strField(details, "plotId", "plot_id")
		a.Params.PlotIndex = indexField(details, "plotIndex", "plot_index", "index")
		a.Params.BuildingType = strField(details, "buildingType", "building_type", "type")

	case TypeDoWork, TypeCompleteBuild:
		a.Params.PlotID = strField(details, "plotId", "plot_id")
		a.Params.PlotIndex = indexField(details, "plotIndex", "plot_index", "index")

	case TypePlayArena:
		a.Params.GameType = strField(details, "gameType", "game_type")
		a.Params.Wager = intField(details, "wager", "wagerAmount", "wager_amount")

	case TypeTransferArena:
		a.Params.TargetName = strField(details, "targetName", "target_name", "target", "to")
		a.Params.Amount = intField(details, "amount")

	case TypeBuySkill:
		a.Params.Skill = strField(details, "skill")
		a.Params.Question = strField(details, "question")
		a.Params.WhyNow = strField(details, "whyNow", "why_now")
		a.Params.ExpectedNextAction = strField(details, "expectedNextAction", "expected_next_action")
		a.Params.IfThen = strField(details, "ifThen", "if_then")
	}

	return a
}

// intField reads the first present key as an int64, tolerating JSON numbers
// arriving as float64 and quoted integers as int.
func intField(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int64(n)
		case int:
			return int64(n)
		case int64:
			return n
		}
	}
	return 0
}

func strField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// indexField distinguishes "absent" from "index 0".
func indexField(m map[string]any, keys ...string) *int {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			i := int(n)
			return &i
		case int:
			i := n
			return &i
		}
	}
	return nil
}

// Package world holds the domain types shared across the pipeline and the
// collaborator interfaces the core consumes. Town, AMM, match, skill and
// social semantics live behind these interfaces; the core only sequences them.
package world

// Zone classifies a plot's land use. Zones differ in build cost and in the
// minimum number of work steps before a build can complete.
type Zone string

const (
	ZoneResidential   Zone = "RESIDENTIAL"
	ZoneCommercial    Zone = "COMMERCIAL"
	ZoneCivic         Zone = "CIVIC"
	ZoneIndustrial    Zone = "INDUSTRIAL"
	ZoneEntertainment Zone = "ENTERTAINMENT"
)

// MinWorkCalls is the minimum design steps per zone before complete_build.
func MinWorkCalls(z Zone) int {
	switch z {
	case ZoneResidential:
		return 3
	case ZoneCommercial:
		return 4
	case ZoneCivic:
		return 5
	case ZoneIndustrial:
		return 4
	case ZoneEntertainment:
		return 4
	default:
		return 4
	}
}

// PlotStatus is a plot's lifecycle state.
type PlotStatus string

const (
	PlotEmpty             PlotStatus = "EMPTY"
	PlotClaimed           PlotStatus = "CLAIMED"
	PlotUnderConstruction PlotStatus = "UNDER_CONSTRUCTION"
	PlotComplete          PlotStatus = "COMPLETE"
)

// Plot is a land parcel in a town.
type Plot struct {
	ID           string     `db:"id"`
	TownID       string     `db:"town_id"`
	Index        int        `db:"idx"`
	OwnerID      string     `db:"owner_id"`
	Zone         Zone       `db:"zone"`
	Status       PlotStatus `db:"status"`
	BuildingType string     `db:"building_type"`
	BuildingName string     `db:"building_name"`
	APICallsUsed int        `db:"api_calls_used"`
	BuildCost    int64      `db:"build_cost"`
}

// TownStatus is a town's lifecycle state.
type TownStatus string

const (
	TownBuilding TownStatus = "BUILDING"
	TownComplete TownStatus = "COMPLETE"
)

// Town is one shared build target for the agent population.
type Town struct {
	ID     string     `db:"id"`
	Name   string     `db:"name"`
	Level  int        `db:"level"`
	Status TownStatus `db:"status"`
	Yield  int        `db:"yield"`
}

// WorldStats carries global multipliers and progress counters.
type WorldStats struct {
	CompletedTowns   int
	ActiveAgents     int
	UpkeepMultiplier float64
	CostMultiplier   float64
}

// EventKind categorizes town events. Some kinds are private and stripped
// from agent observations.
type EventKind string

const (
	EventTick               EventKind = "TICK"
	EventWorld              EventKind = "WORLD_EVENT"
	EventBuild              EventKind = "BUILD"
	EventTrade              EventKind = "TRADE"
	EventMatch              EventKind = "MATCH"
	EventRescue             EventKind = "RESCUE"
	EventDecision           EventKind = "DECISION"
	EventX402Skill          EventKind = "X402_SKILL"
	EventAgentChat          EventKind = "AGENT_CHAT"
	EventRelationshipChange EventKind = "RELATIONSHIP_CHANGE"
	EventAgentTrade         EventKind = "AGENT_TRADE"
)

// PrivateKind reports whether an event kind is hidden from observations.
func PrivateKind(k EventKind) bool {
	switch k {
	case EventX402Skill, EventAgentChat, EventRelationshipChange, EventAgentTrade:
		return true
	}
	return false
}

// Event is one town log entry.
type Event struct {
	ID          string
	TownID      string
	Tick        uint64
	Kind        EventKind
	Title       string
	Description string
	AgentID     string
	Metadata    map[string]any
}

// PoolSummary is the AMM's public view of the shared economy pool.
type PoolSummary struct {
	SpotPrice      float64
	FeeBps         int
	ReserveBalance int64
	ArenaBalance   int64
}

// Swap sides.
const (
	SwapBuyArena  = "BUY_ARENA"
	SwapSellArena = "SELL_ARENA"
)

// Swap is one executed AMM trade.
type Swap struct {
	ID        string
	Side      string
	AmountIn  int64
	AmountOut int64
	FeeAmount int64
}

// SwapResult wraps the AMM response.
type SwapResult struct {
	Swap Swap
}

// SwapOpts carries optional swap constraints.
type SwapOpts struct {
	MinAmountOut int64
}

// Relationship is one edge of the social graph, from the observed agent's
// point of view.
type Relationship struct {
	AgentID string
	Name    string
	Kind    string // "friend" or "rival"
	Score   int
}

// WheelPhase is the wheel-of-fate duel state.
type WheelPhase string

const (
	WheelIdle       WheelPhase = "IDLE"
	WheelAnnouncing WheelPhase = "ANNOUNCING"
	WheelFighting   WheelPhase = "FIGHTING"
)

// WheelState is the current wheel-of-fate window.
type WheelState struct {
	Phase        WheelPhase
	GameType     string
	Wager        int64
	ChallengerID string
	OpponentID   string
	Buffs        []string
}

// WorldEvent is a global narrative pulse visible to every town.
type WorldEvent struct {
	ID            string
	Title         string
	Description   string
	ExpiresAtTick uint64
}

// SkillKind enumerates purchasable paid skills.
type SkillKind string

const (
	SkillMarketDepth    SkillKind = "MARKET_DEPTH"
	SkillBlueprintIndex SkillKind = "BLUEPRINT_INDEX"
	SkillScoutReport    SkillKind = "SCOUT_REPORT"
)

// ValidSkill reports whether k names a known paid skill.
func ValidSkill(k SkillKind) bool {
	switch k {
	case SkillMarketDepth, SkillBlueprintIndex, SkillScoutReport:
		return true
	}
	return false
}

// BuySkillRequest is the oracle purchase payload. The oracle debits $ARENA.
type BuySkillRequest struct {
	AgentID            string
	Skill              SkillKind
	Question           string
	WhyNow             string
	ExpectedNextAction string
	IfThen             string
	Params             map[string]any
}

// SkillResult is the oracle's answer.
type SkillResult struct {
	PriceArena    int64
	PublicSummary string
}

// Objective is a live race/pact goal that can steer claims.
type Objective struct {
	Kind         string
	AgentID      string
	PlotIndex    int
	DeadlineTick uint64
}

// Bounty is a posted reward for finishing a construction. An empty PlotID
// means any plot in the town qualifies.
type Bounty struct {
	ID          string
	TownID      string
	PlotID      string
	RewardArena int64
	Poster      string
}

// Match engine payloads.
type CreateMatchRequest struct {
	AgentID              string
	OpponentID           string
	GameType             string
	WagerAmount          int64
	SkipPredictionMarket bool
}

// Match is a created PvP match.
type Match struct {
	ID string
}

// MatchState is a snapshot of an in-progress match.
type MatchState struct {
	ID           string
	Status       string // "ACTIVE", "COMPLETE", "CANCELLED"
	TurnAgentID  string
	ValidActions []string
	WinnerID     string
}

// MoveRequest submits one match action.
type MoveRequest struct {
	MatchID string
	AgentID string
	Action  string
}

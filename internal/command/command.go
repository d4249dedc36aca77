// Package command implements the owner control-plane: command lifecycle,
// compliance receipts, and the deterministic action planner operators use to
// issue commands without seeing world state.
package command

import "context"

// Mode is the enforcement level of an owner command.
type Mode string

const (
	ModeSuggest  Mode = "SUGGEST"  // injected into the prompt, never overrides
	ModeStrong   Mode = "STRONG"   // bypasses the decision engine
	ModeOverride Mode = "OVERRIDE" // bypasses the decision engine
)

// Forcing reports whether the mode bypasses the decision engine.
func (m Mode) Forcing() bool {
	return m == ModeStrong || m == ModeOverride
}

// Status is the command lifecycle state.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusAccepted  Status = "ACCEPTED"
	StatusExecuted  Status = "EXECUTED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Compliance levels on an executed receipt.
const (
	ComplianceFull    = "FULL"
	CompliancePartial = "PARTIAL"
)

// Rejection reason codes.
const (
	ReasonInvalidIntent       = "INVALID_INTENT"
	ReasonTargetUnavailable   = "TARGET_UNAVAILABLE"
	ReasonConstraintViolation = "CONSTRAINT_VIOLATION"
	ReasonAgentIncapacitated  = "AGENT_INCAPACITATED"
	ReasonExecutionFailed     = "EXECUTION_FAILED"
	ReasonExecutionError      = "EXECUTION_ERROR"
	ReasonInsufficientArena   = "INSUFFICIENT_ARENA"
)

// Command is one owner directive. At most one command per agent is ACCEPTED
// per tick.
type Command struct {
	ID                 string         `db:"id"`
	AgentID            string         `db:"agent_id"`
	Mode               Mode           `db:"mode"`
	Intent             string         `db:"intent"`
	Params             map[string]any `db:"-"`
	ExpectedActionType string         `db:"expected_action_type"`
	Constraints        map[string]any `db:"-"`
	AuditMeta          map[string]any `db:"-"`
	Status             Status         `db:"status"`
	IssuedTick         uint64         `db:"issued_tick"`
}

// NotifyChatID extracts the reply-routing id from auditMeta, if present.
func (c *Command) NotifyChatID() string {
	if c.AuditMeta == nil {
		return ""
	}
	if id, ok := c.AuditMeta["chatId"].(string); ok {
		return id
	}
	return ""
}

// Receipt is the compliance record emitted after a command's tick.
type Receipt struct {
	CommandID          string `json:"commandId"`
	Status             Status `json:"status"`
	Compliance         string `json:"compliance,omitempty"`
	ReasonCode         string `json:"reasonCode,omitempty"`
	Reason             string `json:"reason,omitempty"`
	ExecutedActionType string `json:"executedActionType,omitempty"`
	NotifyChatID       string `json:"notifyChatId,omitempty"`
}

// Queue is the command-queue collaborator. The core accepts at most one
// QUEUED command per agent per tick and terminalizes it with a receipt
// before the next tick's command can be accepted.
type Queue interface {
	NextQueued(ctx context.Context, agentID string) (*Command, error)
	MarkAccepted(ctx context.Context, commandID string) error
	Resolve(ctx context.Context, commandID string, r Receipt) error
}

// BuildReceipt derives the receipt for an executed (or failed) command.
// EXECUTED requires success, and under a forcing mode also that the executed
// action type matches the expectation; compliance is FULL only on a match.
func BuildReceipt(cmd *Command, executedType string, success bool, errCode, errMsg string) Receipt {
	r := Receipt{
		CommandID:          cmd.ID,
		ExecutedActionType: executedType,
		NotifyChatID:       cmd.NotifyChatID(),
	}

	typesMatch := cmd.ExpectedActionType == "" || executedType == cmd.ExpectedActionType

	if success && (!cmd.Mode.Forcing() || typesMatch) {
		r.Status = StatusExecuted
		if typesMatch {
			r.Compliance = ComplianceFull
		} else {
			r.Compliance = CompliancePartial
		}
		return r
	}

	r.Status = StatusRejected
	r.ReasonCode = errCode
	if r.ReasonCode == "" {
		if success {
			// Forcing mode, wrong action type.
			r.ReasonCode = ReasonConstraintViolation
		} else {
			r.ReasonCode = ReasonExecutionFailed
		}
	}
	r.Reason = errMsg
	return r
}

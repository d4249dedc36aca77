package economy

import "sync"

// rescueState is the per-agent in-memory rescue bookkeeping. It deliberately
// lives in process memory: on restart debt resets to zero and the pool simply
// absorbs the loss.
type rescueState struct {
	debt          int64
	lastRescue    uint64
	windowStart   uint64
	windowRescues int
	everRescued   bool
}

// Ledger tracks rescue debt and the sliding rescue window per agent.
type Ledger struct {
	mu     sync.Mutex
	agents map[string]*rescueState
}

// NewLedger creates an empty rescue ledger.
func NewLedger() *Ledger {
	return &Ledger{agents: make(map[string]*rescueState)}
}

func (l *Ledger) state(agentID string) *rescueState {
	s, ok := l.agents[agentID]
	if !ok {
		s = &rescueState{}
		l.agents[agentID] = s
	}
	return s
}

// EligibleForRescue evaluates the full rescue predicate: alive, broke on
// both balances, past cooldown, and under the per-window cap.
func (l *Ledger) EligibleForRescue(agentID string, tick uint64, health int, bankroll, reserve int64) bool {
	if health <= 0 {
		return false
	}
	if bankroll > SolvencyRescueTriggerBankroll || reserve > SolvencyRescueTriggerReserve {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state(agentID)

	if s.everRescued && tick-s.lastRescue < SolvencyRescueCooldownTicks {
		return false
	}
	if tick-s.windowStart >= SolvencyRescueWindowTicks {
		// Window rolled over; the counter resets on record.
		return true
	}
	return s.windowRescues < SolvencyRescueMaxPerWindow
}

// RecordRescue books an issued rescue: cooldown stamp, window counter, debt.
func (l *Ledger) RecordRescue(agentID string, tick uint64, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state(agentID)

	if tick-s.windowStart >= SolvencyRescueWindowTicks {
		s.windowStart = tick
		s.windowRescues = 0
	}
	s.windowRescues++
	s.lastRescue = tick
	s.everRescued = true
	s.debt += amount
}

// Debt returns the agent's outstanding rescue debt.
func (l *Ledger) Debt(agentID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state(agentID).debt
}

// RepaymentDue computes this tick's repayment for a solvent agent:
// clamp(1..debt, floor((bankroll − repaymentFloor) × repaymentBps/10000)).
// Zero when there is no debt or the agent is at or below the floor.
func (l *Ledger) RepaymentDue(agentID string, bankroll int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state(agentID)

	if s.debt <= 0 || bankroll <= SolvencyRescueRepaymentFloor {
		return 0
	}
	repayable := bankroll - SolvencyRescueRepaymentFloor
	due := repayable * SolvencyRescueRepaymentBps / 10000
	if due < 1 {
		due = 1
	}
	if due > s.debt {
		due = s.debt
	}
	return due
}

// RecordRepayment reduces the agent's debt, never below zero.
func (l *Ledger) RecordRepayment(agentID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state(agentID)
	s.debt -= amount
	if s.debt < 0 {
		s.debt = 0
	}
}

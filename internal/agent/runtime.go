package agent

import "sync"

// overrideWindow is the number of recent decisions considered when computing
// the soft-policy override rate.
const overrideWindow = 24

// NonRestStreak tracks consecutive non-rest actions for retention rewards.
type NonRestStreak struct {
	Current               int
	Best                  int
	LastRewardedMilestone int
}

// Instruction is a queued human nudge delivered into the next prompt.
type Instruction struct {
	Sender string
	Text   string
}

// Runtime holds the process-scoped mutable maps shared between the scheduler
// and the per-agent pipelines. Everything here resets on restart; the economy
// tolerates that.
type Runtime struct {
	mu sync.Mutex

	loopModes    map[string]LoopMode
	instructions map[string][]Instruction
	tradeTicks   map[string]uint64
	overrides    map[string][]bool
	streaks      map[string]*NonRestStreak
}

// NewRuntime creates an empty runtime state.
func NewRuntime() *Runtime {
	return &Runtime{
		loopModes:    make(map[string]LoopMode),
		instructions: make(map[string][]Instruction),
		tradeTicks:   make(map[string]uint64),
		overrides:    make(map[string][]bool),
		streaks:      make(map[string]*NonRestStreak),
	}
}

// SetLoopMode switches an agent's decision path. Setting LoopDefault removes
// the mapping.
func (r *Runtime) SetLoopMode(agentID string, mode LoopMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode == LoopDefault {
		delete(r.loopModes, agentID)
		return
	}
	r.loopModes[agentID] = mode
}

// LoopMode returns the agent's decision path, LoopDefault when unset.
func (r *Runtime) LoopMode(agentID string) LoopMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.loopModes[agentID]; ok {
		return m
	}
	return LoopDefault
}

// PushInstruction queues a human instruction for the agent's next prompt.
func (r *Runtime) PushInstruction(agentID string, in Instruction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instructions[agentID] = append(r.instructions[agentID], in)
}

// DrainInstructions returns and clears the agent's queued instructions.
func (r *Runtime) DrainInstructions(agentID string) []Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.instructions[agentID]
	delete(r.instructions, agentID)
	return out
}

// RecordTrade stamps the tick of the agent's last AMM trade.
func (r *Runtime) RecordTrade(agentID string, tick uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tradeTicks[agentID] = tick
}

// LastTradeTick returns the tick of the last trade and whether one exists.
func (r *Runtime) LastTradeTick(agentID string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tradeTicks[agentID]
	return t, ok
}

// RecordOverride appends one decision outcome to the sliding override window.
func (r *Runtime) RecordOverride(agentID string, overridden bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := append(r.overrides[agentID], overridden)
	if len(h) > overrideWindow {
		h = h[len(h)-overrideWindow:]
	}
	r.overrides[agentID] = h
}

// OverrideRate returns the fraction of recent decisions the soft policy
// rewrote. Zero history means rate 0.
func (r *Runtime) OverrideRate(agentID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.overrides[agentID]
	if len(h) == 0 {
		return 0
	}
	n := 0
	for _, o := range h {
		if o {
			n++
		}
	}
	return float64(n) / float64(len(h))
}

// Streak returns the agent's streak record, creating it when absent.
func (r *Runtime) Streak(agentID string) *NonRestStreak {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streaks[agentID]
	if !ok {
		s = &NonRestStreak{}
		r.streaks[agentID] = s
	}
	return s
}

// AdvanceStreak applies one action outcome to the streak. A rest resets the
// streak to zero; any other action increments it by exactly one. Returns the
// new current streak.
func (r *Runtime) AdvanceStreak(agentID string, rested bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streaks[agentID]
	if !ok {
		s = &NonRestStreak{}
		r.streaks[agentID] = s
	}
	if rested {
		s.Current = 0
		s.LastRewardedMilestone = 0
		return 0
	}
	s.Current++
	if s.Current > s.Best {
		s.Best = s.Current
	}
	return s.Current
}

// LastRewardedMilestone returns the highest milestone paid this streak.
func (r *Runtime) LastRewardedMilestone(agentID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streaks[agentID]
	if !ok {
		return 0
	}
	return s.LastRewardedMilestone
}

// MarkMilestoneRewarded records that the milestone was paid this streak.
func (r *Runtime) MarkMilestoneRewarded(agentID string, milestone int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streaks[agentID]
	if !ok {
		s = &NonRestStreak{}
		r.streaks[agentID] = s
	}
	if milestone > s.LastRewardedMilestone {
		s.LastRewardedMilestone = milestone
	}
}

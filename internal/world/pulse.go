package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Pulse parameters. The noise axes are (tick, channel): channel 0 drives the
// upkeep multiplier, channel 1 drives event triggering.
const (
	pulseFrequency     = 0.013
	pulseOctaves       = 3
	pulsePersistence   = 0.5
	eventThreshold     = 0.62
	eventCooldownTicks = 24
	eventLifetimeTicks = 40
)

// pulseFlavors are the narrative templates the default pulse cycles through.
var pulseFlavors = []struct {
	title, description string
}{
	{"Supply Glut", "A freight convoy floods the market; building materials run cheap for a while."},
	{"Labor Shortage", "Crews are scarce this week; every project feels slower and pricier."},
	{"Festival Season", "The town square fills with stalls and music; spirits and spending run high."},
	{"Cold Snap", "A bitter front rolls in; upkeep bites harder until it passes."},
	{"Land Rush", "Word spreads of cheap plots; claim prices creep upward with the crowds."},
}

// NoisePulse is the default WorldEventService: a smoothly drifting upkeep
// multiplier and occasional threshold-crossing narrative events, both derived
// from the same seeded noise field.
type NoisePulse struct {
	noise opensimplex.Noise

	mu           sync.Mutex
	active       []WorldEvent
	lastEventAt  uint64
	flavorCursor int
}

// NewNoisePulse creates a pulse generator with a deterministic seed.
func NewNoisePulse(seed int64) *NoisePulse {
	return &NoisePulse{noise: opensimplex.NewNormalized(seed)}
}

// UpkeepMultiplier returns the smooth world multiplier in [0.8, 1.4].
func (p *NoisePulse) UpkeepMultiplier(tick uint64) float64 {
	n := octaveNoise(p.noise, float64(tick), 0, pulseOctaves, pulseFrequency, pulsePersistence)
	return 0.8 + n*0.6
}

// CostMultiplier returns the build-cost multiplier in [0.9, 1.3], sampled on
// a separate noise channel so cost and upkeep drift independently.
func (p *NoisePulse) CostMultiplier(tick uint64) float64 {
	n := octaveNoise(p.noise, float64(tick), 7, pulseOctaves, pulseFrequency, pulsePersistence)
	return 0.9 + n*0.4
}

// Pulse returns a new world event when the event channel crosses its
// threshold, at most once per cooldown window.
func (p *NoisePulse) Pulse(_ context.Context, tick uint64) (*WorldEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.expire(tick)

	if tick-p.lastEventAt < eventCooldownTicks && p.lastEventAt != 0 {
		return nil, nil
	}
	n := octaveNoise(p.noise, float64(tick), 1, pulseOctaves, pulseFrequency, pulsePersistence)
	if n < eventThreshold {
		return nil, nil
	}

	flavor := pulseFlavors[p.flavorCursor%len(pulseFlavors)]
	p.flavorCursor++
	ev := WorldEvent{
		ID:            uuid.NewString(),
		Title:         flavor.title,
		Description:   flavor.description,
		ExpiresAtTick: tick + eventLifetimeTicks,
	}
	p.active = append(p.active, ev)
	p.lastEventAt = tick
	return &ev, nil
}

// ActiveEvents returns the unexpired events.
func (p *NoisePulse) ActiveEvents(_ context.Context) ([]WorldEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]WorldEvent, len(p.active))
	copy(out, p.active)
	return out, nil
}

func (p *NoisePulse) expire(tick uint64) {
	kept := p.active[:0]
	for _, ev := range p.active {
		if ev.ExpiresAtTick > tick {
			kept = append(kept, ev)
		}
	}
	p.active = kept
}

// octaveNoise layers multiple frequencies of the underlying field.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

var _ WorldEventService = (*NoisePulse)(nil)

// String implements fmt.Stringer for log lines.
func (p *NoisePulse) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("NoisePulse(active=%d)", len(p.active))
}

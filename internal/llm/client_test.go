package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetModelSpec_FallsBackToHaiku(t *testing.T) {
	assert.Equal(t, "sonnet", GetModelSpec("sonnet").ID)
	assert.Equal(t, "haiku", GetModelSpec("haiku").ID)
	assert.Equal(t, "haiku", GetModelSpec("gpt-12").ID)
	assert.Equal(t, "haiku", GetModelSpec("").ID)
}

func TestCalculateCost(t *testing.T) {
	spec := GetModelSpec("haiku")
	c := CalculateCost(spec, 1_000_000, 100_000, 1500*time.Millisecond)

	assert.Equal(t, spec.Model, c.Model)
	assert.InDelta(t, 100+50, c.CostCents, 1e-9)
	assert.Equal(t, int64(1500), c.LatencyMs)
}

func TestNewClient_EmptyKeyDisabled(t *testing.T) {
	var c *Client
	assert.False(t, c.Enabled(), "nil client reports disabled")

	c = NewClient("")
	assert.Nil(t, c)

	c = NewClient("sk-test")
	assert.True(t, c.Enabled())
}

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricingCost(t *testing.T) {
	// $0.015 per 1K tokens
	p := Pricing{OutputPerKiloTokens: 0.015}

	assert.InDelta(t, 0.03, p.Cost(2000), 1e-9)
	assert.InDelta(t, 0.015, p.Cost(1000), 1e-9)
	assert.Zero(t, p.Cost(0))
}

func TestPricingCostIsMonotone(t *testing.T) {
	p := Pricing{OutputPerKiloTokens: 0.001}

	prev := 0.0
	for _, tokens := range []int{0, 1, 10, 500, 1000, 4096, 100000} {
		cost := p.Cost(tokens)
		assert.GreaterOrEqual(t, cost, prev)
		prev = cost
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 3, EstimateTokens("hello world!"))
}

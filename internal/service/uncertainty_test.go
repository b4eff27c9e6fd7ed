package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medguard-inference-server/internal/domain"
)

func TestEstimateInterval(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}

	tests := []struct {
		name     string
		p        float64
		symptoms domain.SymptomSet
		keys     []string
		expected domain.ConfidenceInterval
	}{
		{"all key symptoms matched", 0.5, domain.NewSymptomSet("a", "b", "c", "d"), keys, domain.ConfidenceInterval{Lower: 0.5, Upper: 0.5}},
		{"no key symptoms matched", 0.5, domain.NewSymptomSet(), keys, domain.ConfidenceInterval{Lower: 0.35, Upper: 0.65}},
		{"quarter matched", 0.6, domain.NewSymptomSet("a"), keys, domain.ConfidenceInterval{Lower: 0.49, Upper: 0.71}},
		{"lower bound clamped", 0.1, domain.NewSymptomSet(), keys, domain.ConfidenceInterval{Lower: 0, Upper: 0.25}},
		{"upper bound clamped", 0.95, domain.NewSymptomSet(), keys, domain.ConfidenceInterval{Lower: 0.8, Upper: 1}},
		{"no key symptoms in profile", 0.4, domain.NewSymptomSet("a"), nil, domain.ConfidenceInterval{Lower: 0.25, Upper: 0.55}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateInterval(tt.p, tt.symptoms, tt.keys)
			assert.InDelta(t, tt.expected.Lower, got.Lower, 1e-9)
			assert.InDelta(t, tt.expected.Upper, got.Upper, 1e-9)
		})
	}
}

func TestEstimateIntervalBounds(t *testing.T) {
	keys := []string{"a", "b", "c"}
	sets := []domain.SymptomSet{
		domain.NewSymptomSet(),
		domain.NewSymptomSet("a"),
		domain.NewSymptomSet("a", "b"),
		domain.NewSymptomSet("a", "b", "c"),
	}

	for p := 0.0; p <= 1.0; p += 0.01 {
		for _, set := range sets {
			ci := EstimateInterval(p, set, keys)
			assert.GreaterOrEqual(t, ci.Lower, 0.0)
			assert.LessOrEqual(t, ci.Upper, 1.0)
			assert.LessOrEqual(t, ci.Lower, ci.Upper)
		}
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.54, Round2(0.54177))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, 1.0, Round2(0.999))
}

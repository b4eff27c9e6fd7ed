package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

func builtinProfile(t *testing.T, key string) *domain.ConditionProfile {
	t.Helper()
	profile, ok := knowledge.Default().Condition(key)
	require.True(t, ok, "condition %q missing from builtin catalog", key)
	return &profile
}

func TestScoreBuiltinProfiles(t *testing.T) {
	malariaKeys := domain.NewSymptomSet("fever", "chills", "headache", "muscle_aches", "fatigue", "nausea", "vomiting")

	tests := []struct {
		name     string
		key      string
		symptoms domain.SymptomSet
		expected float64
	}{
		// matchScore 11.0 over totalWeight 15.5.
		{"malaria with all key symptoms", "malaria", malariaKeys, 0.7*11.0/15.5 + 0.3*0.15},
		// fever, headache, fatigue as key and nausea, vomiting, chills as secondary.
		{"typhoid overlap", "typhoid", malariaKeys, 0.7*5.975/14.0 + 0.3*0.12},
		{"flu overlap", "flu", malariaKeys, 0.7*7.25/14.0 + 0.3*0.25},
		{"pneumonia overlap", "pneumonia", malariaKeys, 0.7*4.175/12.0 + 0.3*0.08},
		{"food poisoning overlap", "food_poisoning", malariaKeys, 0.7*5.775/12.0 + 0.3*0.18},
		{"common cold overlap", "common_cold", malariaKeys, 0.7*2.875/10.0 + 0.3*0.35},
		{"no symptoms falls back to prior", "flu", domain.NewSymptomSet(), 0.3 * 0.25},
		{"unrelated symptom", "common_cold", domain.NewSymptomSet("seizures"), 0.3 * 0.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.symptoms, builtinProfile(t, tt.key))
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestScoreDefaultKeyLikelihood(t *testing.T) {
	profile := &domain.ConditionProfile{
		Key:                "sparse",
		PriorProbability:   0,
		KeySymptoms:        []string{"rash"},
		SymptomLikelihoods: map[string]float64{},
	}

	got := Score(domain.NewSymptomSet("rash"), profile)
	assert.InDelta(t, MatchRatioBlend*DefaultKeyLikelihood, got, 1e-12)
}

func TestScoreZeroTotalWeight(t *testing.T) {
	profile := &domain.ConditionProfile{Key: "empty", PriorProbability: 0.4}

	got := Score(domain.NewSymptomSet("fever"), profile)
	assert.InDelta(t, PriorBlend*0.4, got, 1e-12)
}

func TestScoreIsClampedToOne(t *testing.T) {
	profile := &domain.ConditionProfile{
		Key:                "saturated",
		PriorProbability:   1.5,
		KeySymptoms:        []string{"fever"},
		SymptomLikelihoods: map[string]float64{"fever": 1},
	}

	assert.Equal(t, 1.0, Score(domain.NewSymptomSet("fever"), profile))
}

func TestScoreIsDeterministic(t *testing.T) {
	profile := builtinProfile(t, "pneumonia")
	symptoms := domain.NewSymptomSet("chills", "headache", "muscle_aches", "nausea", "cough")

	first := Score(symptoms, profile)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Score(symptoms, profile))
	}
}

func TestLikelihoodOr(t *testing.T) {
	profile := builtinProfile(t, "flu")

	assert.Equal(t, 0.85, likelihoodOr(profile, "fever", DefaultKeyLikelihood))
	assert.Equal(t, DefaultSecondaryLikelihood, likelihoodOr(profile, "seizures", DefaultSecondaryLikelihood))
}

package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

func newTestEngine(t *testing.T, conditions ...domain.ConditionProfile) *Engine {
	t.Helper()
	kb, err := knowledge.New(&domain.Catalog{Version: "test", Conditions: conditions})
	require.NoError(t, err)
	return NewEngine(kb)
}

func testProfile(key string, prior float64, keySymptoms ...string) domain.ConditionProfile {
	likelihoods := make(map[string]float64, len(keySymptoms))
	for _, s := range keySymptoms {
		likelihoods[s] = 0.9
	}
	return domain.ConditionProfile{
		Key:                key,
		DisplayName:        key,
		SeverityTier:       domain.SeverityMedium,
		PriorProbability:   prior,
		KeySymptoms:        keySymptoms,
		SymptomLikelihoods: likelihoods,
		RecommendedActions: []string{"Rest"},
	}
}

func resultKeys(results []domain.ConditionAssessment) []string {
	keys := make([]string, 0, len(results))
	for _, r := range results {
		keys = append(keys, r.ConditionKey)
	}
	return keys
}

func TestDiagnoseMalariaKeySymptoms(t *testing.T) {
	engine := NewEngine(knowledge.Default())
	submission := domain.PatientSubmission{
		Symptoms: []string{"fever", "chills", "headache", "muscle_aches", "fatigue", "nausea", "vomiting"},
	}

	results := engine.Diagnose(submission)

	// Raw rounded scores are malaria .54, flu .44, food poisoning .39,
	// typhoid .33, common cold .31 and pneumonia .27. They sum to 2.28, so
	// every survivor is rescaled before pneumonia is truncated away.
	require.Len(t, results, MaxResults)
	assert.Equal(t, []string{"malaria", "flu", "food_poisoning", "typhoid", "common_cold"}, resultKeys(results))

	expected := []float64{0.24, 0.19, 0.17, 0.14, 0.14}
	for i, r := range results {
		assert.InDelta(t, expected[i], r.Probability, 1e-9, r.ConditionKey)
	}

	malaria := results[0]
	assert.Equal(t, "Malaria", malaria.DisplayName)
	assert.Equal(t, domain.SeverityHigh, malaria.SeverityTier)
	assert.Len(t, malaria.RecommendedActions, 4)
	// Every key symptom matched, so the interval collapses on the raw score.
	assert.InDelta(t, 0.54, malaria.ConfidenceInterval.Lower, 1e-9)
	assert.InDelta(t, 0.54, malaria.ConfidenceInterval.Upper, 1e-9)

	flu := results[1]
	assert.InDelta(t, 0.39, flu.ConfidenceInterval.Lower, 1e-9)
	assert.InDelta(t, 0.49, flu.ConfidenceInterval.Upper, 1e-9)
}

func TestDiagnoseRenormalizedProbabilityMayLeaveInterval(t *testing.T) {
	engine := NewEngine(knowledge.Default())
	results := engine.Diagnose(domain.PatientSubmission{
		Symptoms: []string{"fever", "chills", "headache", "muscle_aches", "fatigue", "nausea", "vomiting"},
	})
	require.NotEmpty(t, results)

	top := results[0]
	assert.False(t, top.ConfidenceInterval.Contains(top.Probability),
		"rescaled probability %.2f should sit outside the raw interval %v", top.Probability, top.ConfidenceInterval)
}

func TestDiagnoseWithoutSymptoms(t *testing.T) {
	engine := NewEngine(knowledge.Default())

	results := engine.Diagnose(domain.PatientSubmission{})

	// Only priors contribute: 0.3 * prior clears the threshold for the
	// common cold (0.105), flu (0.075) and food poisoning (0.054).
	require.Len(t, results, 3)
	assert.Equal(t, []string{"common_cold", "flu", "food_poisoning"}, resultKeys(results))

	raw := map[string]float64{"common_cold": 0.105, "flu": 0.075, "food_poisoning": 0.054}
	for _, r := range results {
		// Uncertainty is the full 0.15 and every raw score is below it.
		assert.Equal(t, 0.0, r.ConfidenceInterval.Lower, r.ConditionKey)
		assert.InDelta(t, raw[r.ConditionKey]+MaxUncertainty, r.ConfidenceInterval.Upper, 0.006, r.ConditionKey)
		assert.InDelta(t, raw[r.ConditionKey], r.Probability, 0.006, r.ConditionKey)
	}
}

func TestDiagnoseNoSurvivorsReturnsEmptySlice(t *testing.T) {
	engine := newTestEngine(t, testProfile("rare", 0.1, "rash"))

	results := engine.Diagnose(domain.PatientSubmission{Symptoms: []string{"cough"}})

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestPassesThreshold(t *testing.T) {
	tests := []struct {
		p        float64
		expected bool
	}{
		{0.0, false},
		{0.04, false},
		{ProbabilityThreshold, false},
		{0.0500001, true},
		{0.5, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.p), func(t *testing.T) {
			assert.Equal(t, tt.expected, passesThreshold(tt.p))
		})
	}
}

func TestDiagnoseTruncatesAfterRenormalization(t *testing.T) {
	var profiles []domain.ConditionProfile
	for i := 0; i < 7; i++ {
		profiles = append(profiles, testProfile(fmt.Sprintf("c%d", i), 0.5, "fever"))
	}
	engine := newTestEngine(t, profiles...)

	results := engine.Diagnose(domain.PatientSubmission{Symptoms: []string{"fever"}})

	// Each condition scores 0.7*0.9 + 0.15 = 0.78. Seven of them sum to
	// 5.46, so each is rescaled to round(0.78/5.46) = 0.14 before truncation.
	require.Len(t, results, MaxResults)
	for _, r := range results {
		assert.InDelta(t, 0.14, r.Probability, 1e-9)
	}
	// Ties keep declaration order.
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, resultKeys(results))
}

func TestDiagnoseSkipsRenormalizationAtOrBelowOne(t *testing.T) {
	engine := newTestEngine(t,
		testProfile("a", 0.25, "fever", "cough"),
		testProfile("b", 0.1, "nausea"),
	)

	results := engine.Diagnose(domain.PatientSubmission{Symptoms: []string{"fever"}})

	// a: 0.7*(1.8/4) + 0.075 = 0.39, b: 0.03 is filtered out.
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ConditionKey)
	assert.InDelta(t, 0.39, results[0].Probability, 1e-9)
}

func TestDiagnoseIsIdempotentAndOrderInsensitive(t *testing.T) {
	engine := NewEngine(knowledge.Default())

	first := engine.Diagnose(domain.PatientSubmission{Symptoms: []string{"cough", "fever", "chest_pain"}})
	second := engine.Diagnose(domain.PatientSubmission{Symptoms: []string{"chest_pain", "fever", "cough", "fever"}})
	third := engine.Diagnose(domain.PatientSubmission{Symptoms: []string{"cough", "fever", "chest_pain"}})

	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
}

func TestDiagnoseIgnoresDemographics(t *testing.T) {
	engine := NewEngine(knowledge.Default())
	age := 130

	plain := engine.Diagnose(domain.PatientSubmission{Symptoms: []string{"diarrhea", "vomiting"}})
	withInfo := engine.Diagnose(domain.PatientSubmission{
		Symptoms: []string{"diarrhea", "vomiting"},
		Age:      &age,
		Gender:   domain.GenderFemale,
		Duration: domain.DurationOverTwoWeeks,
		Severity: domain.SeveritySevere,
	})

	assert.Equal(t, plain, withInfo)
}

func TestDiagnoseInvariantsOverSymptomSubsets(t *testing.T) {
	engine := NewEngine(knowledge.Default())
	pool := []string{"fever", "cough", "headache", "nausea", "diarrhea", "runny_nose", "chest_pain", "chills", "seizures"}

	for mask := 0; mask < 1<<len(pool); mask++ {
		var symptoms []string
		for i, s := range pool {
			if mask&(1<<i) != 0 {
				symptoms = append(symptoms, s)
			}
		}

		results := engine.Diagnose(domain.PatientSubmission{Symptoms: symptoms})
		require.LessOrEqual(t, len(results), MaxResults)

		for i, r := range results {
			ci := r.ConfidenceInterval
			require.GreaterOrEqual(t, ci.Lower, 0.0)
			require.LessOrEqual(t, ci.Upper, 1.0)
			require.LessOrEqual(t, ci.Lower, ci.Upper)
			require.GreaterOrEqual(t, r.Probability, 0.0)
			require.LessOrEqual(t, r.Probability, 1.0)
			if i > 0 {
				require.GreaterOrEqual(t, results[i-1].Probability, r.Probability, "results must be sorted for %v", symptoms)
			}
		}
	}
}

func TestDiagnoseConcurrentCallsAgree(t *testing.T) {
	engine := NewEngine(knowledge.Default())
	submission := domain.PatientSubmission{Symptoms: []string{"fever", "cough", "fatigue"}}
	expected := engine.Diagnose(submission)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, expected, engine.Diagnose(submission))
		}()
	}
	wg.Wait()
}

func TestDiagnoseReturnsIndependentSlices(t *testing.T) {
	engine := NewEngine(knowledge.Default())
	submission := domain.PatientSubmission{Symptoms: []string{"runny_nose"}}

	first := engine.Diagnose(submission)
	require.NotEmpty(t, first)
	first[0].KeySymptoms[0] = "mutated"
	first[0].RecommendedActions[0] = "mutated"

	second := engine.Diagnose(submission)
	assert.NotEqual(t, "mutated", second[0].KeySymptoms[0])
	assert.NotEqual(t, "mutated", second[0].RecommendedActions[0])
}

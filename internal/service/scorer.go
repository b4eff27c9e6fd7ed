package service

import (
	"math"

	"github.com/medguard-inference-server/internal/domain"
)

// Scoring weights and blend factors.
const (
	KeySymptomWeight       = 2.0
	SecondarySymptomWeight = 0.5

	// Likelihoods assumed when a symptom has no entry in the profile's table.
	DefaultKeyLikelihood       = 0.5
	DefaultSecondaryLikelihood = 0.3

	MatchRatioBlend = 0.7
	PriorBlend      = 0.3
)

// Score returns the probability in [0,1] that the profile explains the
// reported symptoms. It is a pure function of its inputs.
//
//	totalWeight = 2.0 per key symptom + 0.5 per secondary symptom
//	matchScore  = sum of weight * likelihood over reported symptoms
//	p           = min(0.7 * matchScore/totalWeight + 0.3 * prior, 1)
func Score(symptoms domain.SymptomSet, profile *domain.ConditionProfile) float64 {
	var matchScore, totalWeight float64

	for _, s := range profile.KeySymptoms {
		totalWeight += KeySymptomWeight
		if symptoms.Contains(s) {
			matchScore += KeySymptomWeight * likelihoodOr(profile, s, DefaultKeyLikelihood)
		}
	}

	// Sorted iteration keeps floating point summation order stable.
	for _, s := range profile.SecondarySymptoms() {
		totalWeight += SecondarySymptomWeight
		if symptoms.Contains(s) {
			matchScore += SecondarySymptomWeight * likelihoodOr(profile, s, DefaultSecondaryLikelihood)
		}
	}

	var matchRatio float64
	if totalWeight > 0 {
		matchRatio = matchScore / totalWeight
	}

	return math.Min(MatchRatioBlend*matchRatio+PriorBlend*profile.PriorProbability, 1.0)
}

func likelihoodOr(profile *domain.ConditionProfile, symptom string, fallback float64) float64 {
	if l, ok := profile.SymptomLikelihoods[symptom]; ok {
		return l
	}
	return fallback
}

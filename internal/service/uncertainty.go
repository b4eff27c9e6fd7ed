package service

import (
	"math"

	"github.com/medguard-inference-server/internal/domain"
)

// MaxUncertainty is the half-width of the interval when no key symptom matches.
const MaxUncertainty = 0.15

// EstimateInterval returns the uncertainty band around p. The half-width
// shrinks linearly with the fraction of the profile's key symptoms that were
// reported. Bounds are clamped to [0,1] and then rounded to two decimals.
func EstimateInterval(p float64, symptoms domain.SymptomSet, keySymptoms []string) domain.ConfidenceInterval {
	matched := 0
	for _, s := range keySymptoms {
		if symptoms.Contains(s) {
			matched++
		}
	}

	denominator := len(keySymptoms)
	if denominator < 1 {
		denominator = 1
	}
	matchRatio := float64(matched) / float64(denominator)
	uncertainty := MaxUncertainty * (1 - matchRatio)

	return domain.ConfidenceInterval{
		Lower: Round2(clamp01(p - uncertainty)),
		Upper: Round2(clamp01(p + uncertainty)),
	}
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

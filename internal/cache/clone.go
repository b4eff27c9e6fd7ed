// Package cache memoizes ranked diagnosis results. An in-process expirable
// LRU is consulted first and an optional Redis tier, guarded by a circuit
// breaker, is shared between server instances.
//
// Every tier stores and returns private copies so a caller can never alter
// what another caller receives.
package cache

import "github.com/medguard-inference-server/internal/domain"

func cloneResults(results []domain.ConditionAssessment) []domain.ConditionAssessment {
	if results == nil {
		return nil
	}
	out := make([]domain.ConditionAssessment, len(results))
	for i, r := range results {
		r.KeySymptoms = append([]string(nil), r.KeySymptoms...)
		r.RecommendedActions = append([]string(nil), r.RecommendedActions...)
		out[i] = r
	}
	return out
}

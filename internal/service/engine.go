package service

import (
	"sort"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

// Ranking pipeline limits.
const (
	// ProbabilityThreshold is exclusive: a condition must score strictly
	// above it to be reported.
	ProbabilityThreshold = 0.05
	MaxResults           = 5
)

// Engine ranks the conditions of a knowledge base against a submission.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	kb     *knowledge.Base
	scored domain.SymptomSet
}

// NewEngine creates an engine over kb.
func NewEngine(kb *knowledge.Base) *Engine {
	scored := make(domain.SymptomSet)
	for _, profile := range kb.Conditions() {
		for _, id := range profile.KeySymptoms {
			scored[id] = struct{}{}
		}
		for id := range profile.SymptomLikelihoods {
			scored[id] = struct{}{}
		}
	}
	return &Engine{kb: kb, scored: scored}
}

// ScoredSymptoms returns the members of symptoms that some condition profile
// weighs. Other ids never change a score.
func (e *Engine) ScoredSymptoms(symptoms domain.SymptomSet) domain.SymptomSet {
	return symptoms.Restrict(e.scored)
}

// KnowledgeBase returns the base the engine scores against.
func (e *Engine) KnowledgeBase() *knowledge.Base {
	return e.kb
}

// Diagnose scores every condition, drops those at or below the threshold,
// sorts by probability, renormalizes when the probabilities sum above one
// and returns at most MaxResults assessments. It never fails. No surviving
// condition yields an empty, non-nil slice.
//
// Renormalization rescales Probability only. Confidence intervals keep the
// values computed from the raw score, so after rescaling a probability can
// fall outside its own interval.
func (e *Engine) Diagnose(submission domain.PatientSubmission) []domain.ConditionAssessment {
	symptoms := submission.SymptomSet()
	conditions := e.kb.Conditions()

	results := make([]domain.ConditionAssessment, 0, len(conditions))
	for i := range conditions {
		profile := &conditions[i]

		p := Score(symptoms, profile)
		if !passesThreshold(p) {
			continue
		}

		results = append(results, domain.ConditionAssessment{
			ConditionKey:       profile.Key,
			DisplayName:        profile.DisplayName,
			Probability:        Round2(p),
			ConfidenceInterval: EstimateInterval(p, symptoms, profile.KeySymptoms),
			Description:        profile.Description,
			KeySymptoms:        append([]string(nil), profile.KeySymptoms...),
			RecommendedActions: append([]string(nil), profile.RecommendedActions...),
			SeverityTier:       profile.SeverityTier,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Probability > results[j].Probability
	})

	renormalize(results)

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results
}

func passesThreshold(p float64) bool {
	return p > ProbabilityThreshold
}

// renormalize rescales the rounded probabilities so they sum to at most one.
// It runs over every survivor, before truncation.
func renormalize(results []domain.ConditionAssessment) {
	var sum float64
	for _, r := range results {
		sum += r.Probability
	}
	if sum <= 1.0 {
		return
	}
	for i := range results {
		results[i].Probability = Round2(results[i].Probability / sum)
	}
}

package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ConditionProfile is a knowledge base entry describing one condition and
// how strongly each symptom indicates it.
type ConditionProfile struct {
	Key                string             `json:"key" yaml:"key"`
	DisplayName        string             `json:"display_name" yaml:"display_name"`
	Description        string             `json:"description" yaml:"description"`
	SeverityTier       SeverityTier       `json:"severity_tier" yaml:"severity_tier"`
	PriorProbability   float64            `json:"prior_probability" yaml:"prior_probability"`
	KeySymptoms        []string           `json:"key_symptoms" yaml:"key_symptoms"`
	SymptomLikelihoods map[string]float64 `json:"symptom_likelihoods" yaml:"symptom_likelihoods"`
	RecommendedActions []string           `json:"recommended_actions" yaml:"recommended_actions"`
}

// IsKeySymptom reports whether id is one of the profile's key symptoms.
func (p *ConditionProfile) IsKeySymptom(id string) bool {
	for _, k := range p.KeySymptoms {
		if k == id {
			return true
		}
	}
	return false
}

// SecondarySymptoms returns the likelihood-table symptoms that are not key
// symptoms, sorted by id.
func (p *ConditionProfile) SecondarySymptoms() []string {
	secondary := make([]string, 0, len(p.SymptomLikelihoods))
	for id := range p.SymptomLikelihoods {
		if !p.IsKeySymptom(id) {
			secondary = append(secondary, id)
		}
	}
	sort.Strings(secondary)
	return secondary
}

// SymptomCatalogEntry describes a symptom a patient can report.
type SymptomCatalogEntry struct {
	ID                   string          `json:"id" yaml:"id"`
	DisplayName          string          `json:"display_name" yaml:"display_name"`
	Category             SymptomCategory `json:"category" yaml:"category"`
	SeverityWeight       int             `json:"severity_weight" yaml:"severity_weight"`
	AssociatedConditions []string        `json:"associated_conditions" yaml:"associated_conditions"`
}

// Severity weight bounds for catalog entries.
const (
	MinSeverityWeight = 1
	MaxSeverityWeight = 4
)

// PatientSubmission is one request for inference. Only Symptoms influences
// scoring. The demographic fields are carried for validation and display.
type PatientSubmission struct {
	Symptoms []string       `json:"symptoms"`
	Age      *int           `json:"age,omitempty"`
	Gender   Gender         `json:"gender,omitempty"`
	Duration DurationBucket `json:"duration,omitempty"`
	Severity SeverityBucket `json:"severity,omitempty"`
}

// CheckEnums reports malformed optional enum values. Empty values are
// treated as absent.
func (s *PatientSubmission) CheckEnums() error {
	if s.Gender != "" && !s.Gender.IsValid() {
		return NewValidationError("gender", ErrInvalidGender.Error(), string(s.Gender))
	}
	if s.Duration != "" && !s.Duration.IsValid() {
		return NewValidationError("duration", ErrInvalidDuration.Error(), string(s.Duration))
	}
	if s.Severity != "" && !s.Severity.IsValid() {
		return NewValidationError("severity", ErrInvalidSeverityBucket.Error(), string(s.Severity))
	}
	return nil
}

// SymptomSet returns the de-duplicated symptoms of the submission.
func (s *PatientSubmission) SymptomSet() SymptomSet {
	return NewSymptomSet(s.Symptoms...)
}

// SymptomSet is an unordered collection of symptom ids.
type SymptomSet map[string]struct{}

// NewSymptomSet builds a set from ids, collapsing duplicates.
func NewSymptomSet(ids ...string) SymptomSet {
	set := make(SymptomSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is in the set.
func (s SymptomSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s SymptomSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Key is a canonical string form of the set, stable across orderings. Ids
// are JSON-quoted so an id containing a separator cannot collide with a
// different set.
func (s SymptomSet) Key() string {
	data, _ := json.Marshal(s.Sorted())
	return string(data)
}

// Restrict returns the members of s that are also in keep.
func (s SymptomSet) Restrict(keep SymptomSet) SymptomSet {
	out := make(SymptomSet, len(s))
	for id := range s {
		if keep.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// ConfidenceInterval is the [lower, upper] uncertainty band around a
// probability. It is encoded as a two-element JSON array.
type ConfidenceInterval struct {
	Lower float64
	Upper float64
}

// Contains reports whether p lies inside the interval, bounds included.
func (ci ConfidenceInterval) Contains(p float64) bool {
	return p >= ci.Lower && p <= ci.Upper
}

// MarshalJSON encodes the interval as [lower, upper].
func (ci ConfidenceInterval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{ci.Lower, ci.Upper})
}

// UnmarshalJSON decodes a [lower, upper] pair.
func (ci *ConfidenceInterval) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("confidence interval: %w", err)
	}
	ci.Lower, ci.Upper = pair[0], pair[1]
	return nil
}

// ConditionAssessment is one ranked entry of an inference result.
type ConditionAssessment struct {
	ConditionKey       string             `json:"condition_key"`
	DisplayName        string             `json:"display_name"`
	Probability        float64            `json:"probability"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	Description        string             `json:"description"`
	KeySymptoms        []string           `json:"key_symptoms"`
	RecommendedActions []string           `json:"recommended_actions"`
	SeverityTier       SeverityTier       `json:"severity_tier"`
}

// DiagnosisReport wraps the ranked assessments with request metadata for
// the outer surfaces.
type DiagnosisReport struct {
	RequestID            string                `json:"request_id"`
	Results              []ConditionAssessment `json:"results"`
	KnowledgeBaseVersion string                `json:"knowledge_base_version"`
	Cached               bool                  `json:"cached"`
	GeneratedAt          time.Time             `json:"generated_at"`
}

// ConditionSummary is the public view of a condition profile.
type ConditionSummary struct {
	Key          string       `json:"key"`
	DisplayName  string       `json:"display_name"`
	Description  string       `json:"description"`
	SeverityTier SeverityTier `json:"severity_tier"`
	KeySymptoms  []string     `json:"key_symptoms"`
}

// Summary returns the public view of the profile.
func (p *ConditionProfile) Summary() ConditionSummary {
	return ConditionSummary{
		Key:          p.Key,
		DisplayName:  p.DisplayName,
		Description:  p.Description,
		SeverityTier: p.SeverityTier,
		KeySymptoms:  append([]string(nil), p.KeySymptoms...),
	}
}

// Package knowledge holds the immutable knowledge base the inference engine
// scores against, together with its compiled-in contents and the catalog
// file format.
//
// A Base is built once, validated as a whole, and never modified. It is
// safe to share between any number of goroutines.
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/medguard-inference-server/internal/domain"
)

const unversioned = "unversioned"

// Base is a validated, read-only knowledge base.
type Base struct {
	version     string
	fingerprint string

	conditions     []domain.ConditionProfile
	conditionIndex map[string]int

	symptoms     []domain.SymptomCatalogEntry
	symptomIndex map[string]int
}

// New validates catalog and builds a knowledge base from a private copy of
// it. Every integrity violation is reported in a single
// *domain.KnowledgeBaseError.
func New(catalog *domain.Catalog) (*Base, error) {
	if catalog == nil {
		return nil, &domain.KnowledgeBaseError{Violations: []string{"catalog is nil"}}
	}
	if err := Check(catalog); err != nil {
		return nil, err
	}

	owned := cloneCatalog(catalog)
	if owned.Version == "" {
		owned.Version = unversioned
	}

	b := &Base{
		version:        owned.Version,
		conditions:     owned.Conditions,
		conditionIndex: make(map[string]int, len(owned.Conditions)),
		symptoms:       owned.Symptoms,
		symptomIndex:   make(map[string]int, len(owned.Symptoms)),
	}
	for i, c := range b.conditions {
		b.conditionIndex[c.Key] = i
	}
	for i, s := range b.symptoms {
		b.symptomIndex[s.ID] = i
	}

	fp, err := fingerprint(owned)
	if err != nil {
		return nil, err
	}
	b.fingerprint = fp

	return b, nil
}

// Check reports every integrity violation in catalog without building a Base.
func Check(catalog *domain.Catalog) error {
	v := &domain.KnowledgeBaseError{}

	if len(catalog.Conditions) == 0 {
		v.Addf("catalog has no conditions")
	}

	seenConditions := make(map[string]bool, len(catalog.Conditions))
	for i := range catalog.Conditions {
		checkCondition(v, &catalog.Conditions[i], i, seenConditions)
	}

	seenSymptoms := make(map[string]bool, len(catalog.Symptoms))
	for i := range catalog.Symptoms {
		checkSymptom(v, &catalog.Symptoms[i], i, seenSymptoms)
	}

	return v.OrNil()
}

func checkCondition(v *domain.KnowledgeBaseError, c *domain.ConditionProfile, pos int, seen map[string]bool) {
	if c.Key == "" {
		v.Addf("condition #%d: empty key", pos)
	} else if seen[c.Key] {
		v.Addf("duplicate condition key %q", c.Key)
	}
	seen[c.Key] = true

	if c.DisplayName == "" {
		v.Addf("condition %q: empty display name", c.Key)
	}
	if !c.SeverityTier.IsValid() {
		v.Addf("condition %q: %s %q", c.Key, domain.ErrInvalidSeverityTier, c.SeverityTier)
	}
	if !isProbability(c.PriorProbability) {
		v.Addf("condition %q: prior probability %v outside [0,1]", c.Key, c.PriorProbability)
	}

	keys := make(map[string]bool, len(c.KeySymptoms))
	for _, s := range c.KeySymptoms {
		if s == "" {
			v.Addf("condition %q: empty key symptom id", c.Key)
			continue
		}
		if keys[s] {
			v.Addf("condition %q: duplicate key symptom %q", c.Key, s)
		}
		keys[s] = true
	}

	for s, l := range c.SymptomLikelihoods {
		if s == "" {
			v.Addf("condition %q: empty symptom id in likelihood table", c.Key)
		}
		if !isProbability(l) {
			v.Addf("condition %q: likelihood %v for %q outside [0,1]", c.Key, l, s)
		}
	}

	if len(c.KeySymptoms) == 0 && len(c.SymptomLikelihoods) == 0 {
		v.Addf("condition %q: total symptom weight is zero", c.Key)
	}
}

func checkSymptom(v *domain.KnowledgeBaseError, s *domain.SymptomCatalogEntry, pos int, seen map[string]bool) {
	if s.ID == "" {
		v.Addf("symptom #%d: empty id", pos)
	} else if seen[s.ID] {
		v.Addf("duplicate symptom id %q", s.ID)
	}
	seen[s.ID] = true

	if s.DisplayName == "" {
		v.Addf("symptom %q: empty display name", s.ID)
	}
	if !s.Category.IsValid() {
		v.Addf("symptom %q: %s %q", s.ID, domain.ErrInvalidCategory, s.Category)
	}
	if s.SeverityWeight < domain.MinSeverityWeight || s.SeverityWeight > domain.MaxSeverityWeight {
		v.Addf("symptom %q: severity weight %d outside [%d,%d]",
			s.ID, s.SeverityWeight, domain.MinSeverityWeight, domain.MaxSeverityWeight)
	}
}

func isProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}

// Version is the catalog version the base was built from.
func (b *Base) Version() string {
	return b.version
}

// Fingerprint is a content hash of the catalog. Two bases with the same
// fingerprint score every submission identically.
func (b *Base) Fingerprint() string {
	return b.fingerprint
}

// Conditions returns the condition profiles in declaration order. The
// profiles share their slices and maps with the base and must not be modified.
func (b *Base) Conditions() []domain.ConditionProfile {
	out := make([]domain.ConditionProfile, len(b.conditions))
	copy(out, b.conditions)
	return out
}

// Condition returns the profile registered under key.
func (b *Base) Condition(key string) (domain.ConditionProfile, bool) {
	i, ok := b.conditionIndex[key]
	if !ok {
		return domain.ConditionProfile{}, false
	}
	return b.conditions[i], true
}

// ConditionSummaries returns the public view of every condition in
// declaration order.
func (b *Base) ConditionSummaries() []domain.ConditionSummary {
	out := make([]domain.ConditionSummary, 0, len(b.conditions))
	for i := range b.conditions {
		out = append(out, b.conditions[i].Summary())
	}
	return out
}

// LookupSymptom returns the catalog entry for id.
func (b *Base) LookupSymptom(id string) (domain.SymptomCatalogEntry, bool) {
	i, ok := b.symptomIndex[id]
	if !ok {
		return domain.SymptomCatalogEntry{}, false
	}
	return cloneSymptom(b.symptoms[i]), true
}

// Symptoms returns the whole symptom catalog in declaration order.
func (b *Base) Symptoms() []domain.SymptomCatalogEntry {
	out := make([]domain.SymptomCatalogEntry, 0, len(b.symptoms))
	for _, s := range b.symptoms {
		out = append(out, cloneSymptom(s))
	}
	return out
}

// SymptomsByCategory returns the catalog entries of one category.
func (b *Base) SymptomsByCategory(category domain.SymptomCategory) []domain.SymptomCatalogEntry {
	out := make([]domain.SymptomCatalogEntry, 0)
	for _, s := range b.symptoms {
		if s.Category == category {
			out = append(out, cloneSymptom(s))
		}
	}
	return out
}

// Catalog returns a deep copy of the catalog the base was built from.
func (b *Base) Catalog() *domain.Catalog {
	return cloneCatalog(&domain.Catalog{
		Version:    b.version,
		Conditions: b.conditions,
		Symptoms:   b.symptoms,
	})
}

func fingerprint(c *domain.Catalog) (string, error) {
	// encoding/json writes map keys sorted, so the encoding is canonical.
	data, err := json.Marshal(struct {
		Conditions []domain.ConditionProfile    `json:"conditions"`
		Symptoms   []domain.SymptomCatalogEntry `json:"symptoms"`
	}{c.Conditions, c.Symptoms})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

func cloneCatalog(c *domain.Catalog) *domain.Catalog {
	out := &domain.Catalog{
		Version:    c.Version,
		Conditions: make([]domain.ConditionProfile, 0, len(c.Conditions)),
		Symptoms:   make([]domain.SymptomCatalogEntry, 0, len(c.Symptoms)),
	}
	for _, p := range c.Conditions {
		likelihoods := make(map[string]float64, len(p.SymptomLikelihoods))
		for k, v := range p.SymptomLikelihoods {
			likelihoods[k] = v
		}
		p.KeySymptoms = append([]string(nil), p.KeySymptoms...)
		p.RecommendedActions = append([]string(nil), p.RecommendedActions...)
		p.SymptomLikelihoods = likelihoods
		out.Conditions = append(out.Conditions, p)
	}
	for _, s := range c.Symptoms {
		out.Symptoms = append(out.Symptoms, cloneSymptom(s))
	}
	return out
}

func cloneSymptom(s domain.SymptomCatalogEntry) domain.SymptomCatalogEntry {
	s.AssociatedConditions = append([]string(nil), s.AssociatedConditions...)
	return s
}

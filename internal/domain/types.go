// Package domain contains the core entities of the symptom inference engine:
// condition profiles, the symptom catalog, patient submissions and the ranked
// assessments produced for them.
//
// Nothing in this package performs inference. It only describes the data and
// the closed vocabularies (severity tiers, categories, demographic buckets)
// that the rest of the server agrees on.
package domain

import (
	"errors"
)

// SeverityTier is the clinical severity associated with a condition.
type SeverityTier string

const (
	SeverityLow      SeverityTier = "low"
	SeverityMedium   SeverityTier = "medium"
	SeverityHigh     SeverityTier = "high"
	SeverityCritical SeverityTier = "critical"
)

// SymptomCategory groups catalog symptoms by body system.
type SymptomCategory string

const (
	CategoryGeneral          SymptomCategory = "general"
	CategoryRespiratory      SymptomCategory = "respiratory"
	CategoryGastrointestinal SymptomCategory = "gastrointestinal"
	CategoryNeurological     SymptomCategory = "neurological"
	CategoryCardiovascular   SymptomCategory = "cardiovascular"
)

// Gender is the optional self-reported gender of a patient.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// DurationBucket is how long the patient has had symptoms.
type DurationBucket string

const (
	DurationUnder24Hours    DurationBucket = "less-than-24h"
	DurationOneToThreeDays  DurationBucket = "1-3-days"
	DurationFourToSevenDays DurationBucket = "4-7-days"
	DurationOneToTwoWeeks   DurationBucket = "1-2-weeks"
	DurationOverTwoWeeks    DurationBucket = "more-than-2-weeks"
)

// SeverityBucket is the patient's own rating of how bad the symptoms are.
type SeverityBucket string

const (
	SeverityMild     SeverityBucket = "mild"
	SeverityModerate SeverityBucket = "moderate"
	SeveritySevere   SeverityBucket = "severe"
)

// Sentinel errors shared across packages.
var (
	ErrNotFound              = errors.New("not found")
	ErrCorruptKnowledgeBase  = errors.New("corrupt knowledge base")
	ErrStaleKnowledgeBase    = errors.New("stale knowledge base")
	ErrUnknownSource         = errors.New("unknown knowledge source")
	ErrCacheMiss             = errors.New("cache miss")
	ErrInvalidSeverityTier   = errors.New("invalid severity tier")
	ErrInvalidCategory       = errors.New("invalid symptom category")
	ErrInvalidGender         = errors.New("invalid gender")
	ErrInvalidDuration       = errors.New("invalid duration bucket")
	ErrInvalidSeverityBucket = errors.New("invalid severity bucket")
)

// AllSeverityTiers lists the tiers from least to most severe.
func AllSeverityTiers() []SeverityTier {
	return []SeverityTier{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// IsValid reports whether the tier is one of the known values.
func (t SeverityTier) IsValid() bool {
	switch t {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

func (t SeverityTier) String() string {
	return string(t)
}

// RequiresPromptCare reports whether conditions of this tier should be
// surfaced as needing medical attention.
func (t SeverityTier) RequiresPromptCare() bool {
	switch t {
	case SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// AllCategories lists the symptom categories in display order.
func AllCategories() []SymptomCategory {
	return []SymptomCategory{
		CategoryGeneral,
		CategoryRespiratory,
		CategoryGastrointestinal,
		CategoryNeurological,
		CategoryCardiovascular,
	}
}

// IsValid reports whether the category is one of the known values.
func (c SymptomCategory) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryRespiratory, CategoryGastrointestinal,
		CategoryNeurological, CategoryCardiovascular:
		return true
	default:
		return false
	}
}

func (c SymptomCategory) String() string {
	return string(c)
}

// IsValid reports whether the gender is one of the known values.
// The empty value means "not provided" and is not valid on its own.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

func (g Gender) String() string {
	return string(g)
}

// IsValid reports whether the bucket is one of the known values.
func (d DurationBucket) IsValid() bool {
	switch d {
	case DurationUnder24Hours, DurationOneToThreeDays, DurationFourToSevenDays,
		DurationOneToTwoWeeks, DurationOverTwoWeeks:
		return true
	default:
		return false
	}
}

func (d DurationBucket) String() string {
	return string(d)
}

// IsValid reports whether the bucket is one of the known values.
func (s SeverityBucket) IsValid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	default:
		return false
	}
}

func (s SeverityBucket) String() string {
	return string(s)
}

package service

import (
	"github.com/medguard-inference-server/internal/domain"
)

// Submission limits.
const (
	MaxSymptoms = 15
	MinAge      = 0
	MaxAge      = 120
)

// Validation messages. Callers match on these strings, so they are stable.
const (
	MsgNoSymptoms      = "select at least one symptom"
	MsgTooManySymptoms = "too many symptoms selected"
	MsgInvalidAge      = "invalid age"
)

// Validate checks a submission before inference and returns every rule it
// breaks. An empty result means the submission is acceptable. The checks are
// advisory. Diagnose does not call Validate.
func Validate(submission domain.PatientSubmission) []string {
	errs := make([]string, 0)
	symptoms := submission.SymptomSet()

	if len(symptoms) == 0 {
		errs = append(errs, MsgNoSymptoms)
	}
	if len(symptoms) > MaxSymptoms {
		errs = append(errs, MsgTooManySymptoms)
	}
	if age := submission.Age; age != nil && (*age < MinAge || *age > MaxAge) {
		errs = append(errs, MsgInvalidAge)
	}

	return errs
}

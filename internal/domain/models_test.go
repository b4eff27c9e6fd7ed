package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymptomSet(t *testing.T) {
	set := NewSymptomSet("fever", "cough", "fever", "chills")

	assert.Len(t, set, 3)
	assert.True(t, set.Contains("cough"))
	assert.False(t, set.Contains("nausea"))
	assert.Equal(t, []string{"chills", "cough", "fever"}, set.Sorted())
	assert.Equal(t, `["chills","cough","fever"]`, set.Key())
	assert.Equal(t, NewSymptomSet("fever", "chills", "cough").Key(), set.Key())
}

func TestSymptomSetKeyIsUnambiguous(t *testing.T) {
	assert.NotEqual(t, NewSymptomSet("chills", "fever").Key(), NewSymptomSet("chills,fever").Key())
	assert.NotEqual(t, NewSymptomSet("a", "b").Key(), NewSymptomSet(`a","b`).Key())
	assert.Equal(t, "[]", NewSymptomSet().Key())
}

func TestSymptomSetRestrict(t *testing.T) {
	set := NewSymptomSet("fever", "chills,fever", "rash")

	restricted := set.Restrict(NewSymptomSet("fever", "chills"))

	assert.Equal(t, NewSymptomSet("fever"), restricted)
	assert.Len(t, set, 3)
}

func TestConfidenceIntervalJSON(t *testing.T) {
	ci := ConfidenceInterval{Lower: 0.39, Upper: 0.69}

	data, err := json.Marshal(ci)
	require.NoError(t, err)
	assert.JSONEq(t, `[0.39, 0.69]`, string(data))

	var decoded ConfidenceInterval
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ci, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"lower": 1}`), &decoded))
}

func TestConfidenceIntervalContains(t *testing.T) {
	ci := ConfidenceInterval{Lower: 0.2, Upper: 0.4}
	assert.True(t, ci.Contains(0.2))
	assert.True(t, ci.Contains(0.4))
	assert.False(t, ci.Contains(0.41))
}

func TestConditionProfileSecondarySymptoms(t *testing.T) {
	profile := ConditionProfile{
		Key:         "flu",
		KeySymptoms: []string{"fever", "cough"},
		SymptomLikelihoods: map[string]float64{
			"fever":      0.85,
			"cough":      0.9,
			"nausea":     0.3,
			"chills":     0.6,
			"chest_pain": 0.25,
		},
	}

	assert.True(t, profile.IsKeySymptom("fever"))
	assert.False(t, profile.IsKeySymptom("nausea"))
	assert.Equal(t, []string{"chest_pain", "chills", "nausea"}, profile.SecondarySymptoms())

	summary := profile.Summary()
	assert.Equal(t, "flu", summary.Key)
	assert.Equal(t, []string{"fever", "cough"}, summary.KeySymptoms)
}

func TestPatientSubmissionCheckEnums(t *testing.T) {
	tests := []struct {
		name       string
		submission PatientSubmission
		field      string
	}{
		{"all empty", PatientSubmission{}, ""},
		{"all valid", PatientSubmission{Gender: GenderFemale, Duration: DurationOneToTwoWeeks, Severity: SeverityModerate}, ""},
		{"bad gender", PatientSubmission{Gender: "robot"}, "gender"},
		{"bad duration", PatientSubmission{Duration: "forever"}, "duration"},
		{"bad severity", PatientSubmission{Severity: "extreme"}, "severity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.submission.CheckEnums()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

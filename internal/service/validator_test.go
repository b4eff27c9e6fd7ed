package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medguard-inference-server/internal/domain"
)

func intPtr(v int) *int { return &v }

func manySymptoms(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("s%02d", i))
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		submission domain.PatientSubmission
		expected   []string
	}{
		{
			name:       "single symptom",
			submission: domain.PatientSubmission{Symptoms: []string{"fever"}},
			expected:   []string{},
		},
		{
			name:       "no symptoms",
			submission: domain.PatientSubmission{},
			expected:   []string{MsgNoSymptoms},
		},
		{
			name:       "fifteen symptoms",
			submission: domain.PatientSubmission{Symptoms: manySymptoms(15)},
			expected:   []string{},
		},
		{
			name:       "sixteen symptoms",
			submission: domain.PatientSubmission{Symptoms: manySymptoms(16)},
			expected:   []string{MsgTooManySymptoms},
		},
		{
			name:       "duplicates collapse before counting",
			submission: domain.PatientSubmission{Symptoms: append(manySymptoms(15), manySymptoms(15)...)},
			expected:   []string{},
		},
		{
			name:       "age at lower bound",
			submission: domain.PatientSubmission{Symptoms: []string{"fever"}, Age: intPtr(0)},
			expected:   []string{},
		},
		{
			name:       "age at upper bound",
			submission: domain.PatientSubmission{Symptoms: []string{"fever"}, Age: intPtr(120)},
			expected:   []string{},
		},
		{
			name:       "age above range",
			submission: domain.PatientSubmission{Symptoms: []string{"fever"}, Age: intPtr(121)},
			expected:   []string{MsgInvalidAge},
		},
		{
			name:       "negative age",
			submission: domain.PatientSubmission{Symptoms: []string{"fever"}, Age: intPtr(-1)},
			expected:   []string{MsgInvalidAge},
		},
		{
			name:       "empty symptoms and bad age reported together",
			submission: domain.PatientSubmission{Age: intPtr(150)},
			expected:   []string{MsgNoSymptoms, MsgInvalidAge},
		},
		{
			name:       "too many symptoms and bad age reported together",
			submission: domain.PatientSubmission{Symptoms: manySymptoms(20), Age: intPtr(-5)},
			expected:   []string{MsgTooManySymptoms, MsgInvalidAge},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Validate(tt.submission))
		})
	}
}

func TestValidateMessages(t *testing.T) {
	assert.Equal(t, "select at least one symptom", MsgNoSymptoms)
	assert.Equal(t, "too many symptoms selected", MsgTooManySymptoms)
	assert.Equal(t, "invalid age", MsgInvalidAge)
}

package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/domain"
)

// Tool names.
const (
	ToolValidateSubmission = "validate_submission"
	ToolDiagnoseSymptoms   = "diagnose_symptoms"
	ToolLookupSymptom      = "lookup_symptom"
	ToolListSymptoms       = "list_symptoms"
	ToolListConditions     = "list_conditions"
)

// SubmissionParams is the input of validate_submission and diagnose_symptoms.
type SubmissionParams struct {
	Symptoms []string `json:"symptoms" jsonschema:"symptom ids reported by the patient"`
	Age      *int     `json:"age,omitempty" jsonschema:"patient age in years, 0 to 120"`
	Gender   string   `json:"gender,omitempty" jsonschema:"male, female or other"`
	Duration string   `json:"duration,omitempty" jsonschema:"less-than-24h, 1-3-days, 4-7-days, 1-2-weeks or more-than-2-weeks"`
	Severity string   `json:"severity,omitempty" jsonschema:"mild, moderate or severe"`
}

func (p SubmissionParams) submission() domain.PatientSubmission {
	return domain.PatientSubmission{
		Symptoms: p.Symptoms,
		Age:      p.Age,
		Gender:   domain.Gender(p.Gender),
		Duration: domain.DurationBucket(p.Duration),
		Severity: domain.SeverityBucket(p.Severity),
	}
}

// ValidationOutput is the structured result of validate_submission.
type ValidationOutput struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// AssessmentOutput is one ranked condition. The interval is a
// [lower, upper] pair.
type AssessmentOutput struct {
	ConditionKey       string    `json:"condition_key"`
	DisplayName        string    `json:"display_name"`
	Probability        float64   `json:"probability"`
	ConfidenceInterval []float64 `json:"confidence_interval"`
	SeverityTier       string    `json:"severity_tier"`
	Description        string    `json:"description"`
	KeySymptoms        []string  `json:"key_symptoms"`
	RecommendedActions []string  `json:"recommended_actions"`
}

// DiagnosisOutput is the structured result of diagnose_symptoms.
type DiagnosisOutput struct {
	RequestID            string             `json:"request_id"`
	KnowledgeBaseVersion string             `json:"knowledge_base_version"`
	Cached               bool               `json:"cached"`
	GeneratedAt          string             `json:"generated_at"`
	Results              []AssessmentOutput `json:"results"`
}

// LookupParams is the input of lookup_symptom.
type LookupParams struct {
	ID string `json:"id" jsonschema:"symptom id, for example fever"`
}

// LookupOutput is the structured result of lookup_symptom.
type LookupOutput struct {
	Found   bool                        `json:"found"`
	Symptom *domain.SymptomCatalogEntry `json:"symptom,omitempty"`
}

// ListSymptomsParams is the input of list_symptoms.
type ListSymptomsParams struct {
	Category string `json:"category,omitempty" jsonschema:"optional category filter"`
}

// SymptomListOutput is the structured result of list_symptoms.
type SymptomListOutput struct {
	Count    int                          `json:"count"`
	Symptoms []domain.SymptomCatalogEntry `json:"symptoms"`
}

// ListConditionsParams is the (empty) input of list_conditions.
type ListConditionsParams struct{}

// ConditionListOutput is the structured result of list_conditions.
type ConditionListOutput struct {
	Version    string                    `json:"version"`
	Conditions []domain.ConditionSummary `json:"conditions"`
}

func (s *Server) handleValidateSubmission(ctx context.Context, req *mcp.CallToolRequest, params SubmissionParams) (*mcp.CallToolResult, ValidationOutput, error) {
	submission := params.submission()
	if err := submission.CheckEnums(); err != nil {
		return createErrorResult("invalid submission", err), ValidationOutput{}, nil
	}

	errs := s.service.Validate(submission)
	out := ValidationOutput{Valid: len(errs) == 0, Errors: errs}
	if out.Errors == nil {
		out.Errors = []string{}
	}

	if out.Valid {
		return textResult("Submission is valid."), out, nil
	}
	return textResult("Submission is invalid: " + strings.Join(errs, "; ")), out, nil
}

func (s *Server) handleDiagnoseSymptoms(ctx context.Context, req *mcp.CallToolRequest, params SubmissionParams) (*mcp.CallToolResult, DiagnosisOutput, error) {
	submission := params.submission()
	if err := submission.CheckEnums(); err != nil {
		return createErrorResult("invalid submission", err), DiagnosisOutput{}, nil
	}
	if errs := s.service.Validate(submission); len(errs) > 0 {
		return createErrorResult(strings.Join(errs, "; "), nil), DiagnosisOutput{}, nil
	}

	report := s.service.Diagnose(ctx, submission)
	out := diagnosisOutput(report)

	s.logger.WithFields(logrus.Fields{
		"tool":          ToolDiagnoseSymptoms,
		"request_id":    report.RequestID,
		"symptom_count": len(submission.Symptoms),
		"result_count":  len(report.Results),
		"cached":        report.Cached,
	}).Info("Diagnosis tool completed")

	return textResult(summarizeReport(report)), out, nil
}

func (s *Server) handleLookupSymptom(ctx context.Context, req *mcp.CallToolRequest, params LookupParams) (*mcp.CallToolResult, LookupOutput, error) {
	id := strings.TrimSpace(params.ID)
	if id == "" {
		return createErrorResult("id is required", nil), LookupOutput{}, nil
	}

	entry, ok := s.service.LookupSymptom(id)
	if !ok {
		return textResult(fmt.Sprintf("Unknown symptom %q.", id)), LookupOutput{Found: false}, nil
	}

	text := fmt.Sprintf("%s (%s): category %s, severity weight %d, associated with %s.",
		entry.DisplayName, entry.ID, entry.Category, entry.SeverityWeight, listOrNone(entry.AssociatedConditions))
	return textResult(text), LookupOutput{Found: true, Symptom: &entry}, nil
}

func (s *Server) handleListSymptoms(ctx context.Context, req *mcp.CallToolRequest, params ListSymptomsParams) (*mcp.CallToolResult, SymptomListOutput, error) {
	var symptoms []domain.SymptomCatalogEntry
	if params.Category == "" {
		symptoms = s.service.Symptoms()
	} else {
		category := domain.SymptomCategory(params.Category)
		if !category.IsValid() {
			return createErrorResult("invalid category", fmt.Errorf("%w: %q", domain.ErrInvalidCategory, params.Category)), SymptomListOutput{}, nil
		}
		symptoms = s.service.SymptomsByCategory(category)
	}
	if symptoms == nil {
		symptoms = []domain.SymptomCatalogEntry{}
	}

	ids := make([]string, len(symptoms))
	for i, entry := range symptoms {
		ids[i] = entry.ID
	}
	text := fmt.Sprintf("%d symptoms: %s", len(symptoms), listOrNone(ids))
	return textResult(text), SymptomListOutput{Count: len(symptoms), Symptoms: symptoms}, nil
}

func (s *Server) handleListConditions(ctx context.Context, req *mcp.CallToolRequest, params ListConditionsParams) (*mcp.CallToolResult, ConditionListOutput, error) {
	conditions := s.service.ConditionSummaries()

	var b strings.Builder
	fmt.Fprintf(&b, "Knowledge base %s, %d conditions:", s.service.Version(), len(conditions))
	for _, c := range conditions {
		fmt.Fprintf(&b, "\n- %s (%s, %s)", c.DisplayName, c.Key, c.SeverityTier)
	}

	return textResult(b.String()), ConditionListOutput{Version: s.service.Version(), Conditions: conditions}, nil
}

func diagnosisOutput(report *domain.DiagnosisReport) DiagnosisOutput {
	results := make([]AssessmentOutput, len(report.Results))
	for i, r := range report.Results {
		results[i] = AssessmentOutput{
			ConditionKey:       r.ConditionKey,
			DisplayName:        r.DisplayName,
			Probability:        r.Probability,
			ConfidenceInterval: []float64{r.ConfidenceInterval.Lower, r.ConfidenceInterval.Upper},
			SeverityTier:       string(r.SeverityTier),
			Description:        r.Description,
			KeySymptoms:        r.KeySymptoms,
			RecommendedActions: r.RecommendedActions,
		}
	}
	return DiagnosisOutput{
		RequestID:            report.RequestID,
		KnowledgeBaseVersion: report.KnowledgeBaseVersion,
		Cached:               report.Cached,
		GeneratedAt:          report.GeneratedAt.UTC().Format(time.RFC3339),
		Results:              results,
	}
}

func summarizeReport(report *domain.DiagnosisReport) string {
	if len(report.Results) == 0 {
		return "No condition matched the reported symptoms."
	}

	var b strings.Builder
	b.WriteString("Possible conditions:")
	for i, r := range report.Results {
		fmt.Fprintf(&b, "\n%d. %s: %.0f%% (range %.0f-%.0f%%), severity %s",
			i+1, r.DisplayName, r.Probability*100,
			r.ConfidenceInterval.Lower*100, r.ConfidenceInterval.Upper*100, r.SeverityTier)
		if r.SeverityTier.RequiresPromptCare() {
			b.WriteString(", seek care promptly")
		}
	}
	b.WriteString("\nThis is not a medical diagnosis.")
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/middleware"
)

const readinessTimeout = 2 * time.Second

// ValidationResponse is the body of POST /api/v1/validate.
type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// validationFailure is returned with 422 when a diagnose request fails the
// submission rules.
type validationFailure struct {
	*domain.APIError
	Errors []string `json:"errors"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":                 "healthy",
		"timestamp":              time.Now().UTC(),
		"uptime_seconds":         int64(time.Since(s.startedAt).Seconds()),
		"knowledge_base_version": s.service.Version(),
		"fingerprint":            s.service.Fingerprint(),
	}
	if s.opts.CacheStats != nil {
		body["cache"] = s.opts.CacheStats()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	staleKnowledge := false
	checks := make(map[string]string, len(s.opts.Readiness))
	for name, check := range s.opts.Readiness {
		if err := check(ctx); err != nil {
			s.logger.WithError(err).WithField("check", name).Warn("Readiness check failed")
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			if errors.Is(err, domain.ErrStaleKnowledgeBase) || errors.Is(err, domain.ErrCorruptKnowledgeBase) {
				staleKnowledge = true
			}
			continue
		}
		checks[name] = "ok"
	}

	body := gin.H{"status": "ready", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	if staleKnowledge {
		body["code"] = domain.ErrCodeKnowledgeBase
	}
	c.JSON(status, body)
}

func (s *Server) handleListSymptoms(c *gin.Context) {
	var symptoms []domain.SymptomCatalogEntry

	if raw := c.Query("category"); raw != "" {
		category := domain.SymptomCategory(raw)
		if !category.IsValid() {
			s.abortWithError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
				"Unknown symptom category", raw)
			return
		}
		symptoms = s.service.SymptomsByCategory(category)
	} else {
		symptoms = s.service.Symptoms()
	}

	c.JSON(http.StatusOK, gin.H{"symptoms": symptoms, "count": len(symptoms)})
}

func (s *Server) handleGetSymptom(c *gin.Context) {
	id := c.Param("id")
	entry, ok := s.service.LookupSymptom(id)
	if !ok {
		s.abortWithError(c, http.StatusNotFound, domain.ErrCodeNotFound, "Symptom not found", id)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleListConditions(c *gin.Context) {
	conditions := s.service.ConditionSummaries()
	c.JSON(http.StatusOK, gin.H{
		"conditions":             conditions,
		"count":                  len(conditions),
		"knowledge_base_version": s.service.Version(),
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	submission, ok := s.bindSubmission(c)
	if !ok {
		return
	}

	errs := s.service.Validate(submission)
	c.JSON(http.StatusOK, ValidationResponse{Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) handleDiagnose(c *gin.Context) {
	submission, ok := s.bindSubmission(c)
	if !ok {
		return
	}

	if errs := s.service.Validate(submission); len(errs) > 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, validationFailure{
			APIError: domain.NewAPIError(domain.ErrCodeValidation, "Submission is not valid", "",
				middleware.GetCorrelationID(c)),
			Errors: errs,
		})
		return
	}

	c.JSON(http.StatusOK, s.service.Diagnose(c.Request.Context(), submission))
}

// bindSubmission decodes the request body. Malformed JSON and unknown enum
// values are rejected with 400.
func (s *Server) bindSubmission(c *gin.Context) (domain.PatientSubmission, bool) {
	var submission domain.PatientSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput,
			"Request body is not a valid submission", err.Error())
		return submission, false
	}

	if err := submission.CheckEnums(); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Invalid submission field", err.Error())
		return submission, false
	}

	return submission, true
}

func (s *Server) abortWithError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, middleware.GetCorrelationID(c)))
}

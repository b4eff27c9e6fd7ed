package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

// DiagnosisService is the entry point used by the HTTP, websocket and MCP
// surfaces. It adds request metadata, logging and optional result caching
// around an Engine. Cached and fresh results are identical.
type DiagnosisService struct {
	logger *logrus.Logger
	engine *Engine
	cache  domain.ResultCache
	now    func() time.Time
}

// NewDiagnosisService creates a diagnosis service. cache may be nil.
func NewDiagnosisService(logger *logrus.Logger, engine *Engine, cache domain.ResultCache) *DiagnosisService {
	return &DiagnosisService{
		logger: logger,
		engine: engine,
		cache:  cache,
		now:    time.Now,
	}
}

var _ domain.InferenceService = (*DiagnosisService)(nil)

// Validate runs the submission rules without scoring anything.
func (s *DiagnosisService) Validate(submission domain.PatientSubmission) []string {
	return Validate(submission)
}

// Diagnose ranks conditions for the submission. It does not validate the
// submission first.
func (s *DiagnosisService) Diagnose(ctx context.Context, submission domain.PatientSubmission) *domain.DiagnosisReport {
	start := s.now()
	symptoms := submission.SymptomSet()
	key := s.CacheKey(symptoms)

	requestID := domain.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	results, cached := s.lookup(ctx, key)
	if !cached {
		results = s.engine.Diagnose(submission)
		s.store(ctx, key, results)
	}

	fields := logrus.Fields{
		"request_id":    requestID,
		"symptom_count": len(symptoms),
		"result_count":  len(results),
		"cached":        cached,
		"duration":      s.now().Sub(start),
	}
	if len(results) > 0 {
		fields["top_condition"] = results[0].ConditionKey
		fields["top_probability"] = results[0].Probability
	}
	s.logger.WithFields(fields).Info("Diagnosis completed")

	return &domain.DiagnosisReport{
		RequestID:            requestID,
		Results:              results,
		KnowledgeBaseVersion: s.engine.KnowledgeBase().Version(),
		Cached:               cached,
		GeneratedAt:          s.now().UTC(),
	}
}

// CacheKey identifies a result by knowledge base content and the scored
// part of the symptom set. Unknown ids and demographics never affect scoring
// and are not part of the key.
func (s *DiagnosisService) CacheKey(symptoms domain.SymptomSet) string {
	return "diagnosis:" + s.engine.KnowledgeBase().Fingerprint() + ":" + s.engine.ScoredSymptoms(symptoms).Key()
}

func (s *DiagnosisService) lookup(ctx context.Context, key string) ([]domain.ConditionAssessment, bool) {
	if s.cache == nil {
		return nil, false
	}
	results, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WithError(err).WithField("cache_key", key).Warn("Result cache lookup failed, scoring directly")
		}
		return nil, false
	}
	if results == nil {
		results = make([]domain.ConditionAssessment, 0)
	}
	return results, true
}

func (s *DiagnosisService) store(ctx context.Context, key string, results []domain.ConditionAssessment) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, results); err != nil {
		s.logger.WithError(err).WithField("cache_key", key).Warn("Failed to cache diagnosis result")
	}
}

// LookupSymptom returns the catalog entry for id.
func (s *DiagnosisService) LookupSymptom(id string) (domain.SymptomCatalogEntry, bool) {
	return s.kb().LookupSymptom(id)
}

// Symptoms returns the full symptom catalog.
func (s *DiagnosisService) Symptoms() []domain.SymptomCatalogEntry {
	return s.kb().Symptoms()
}

// SymptomsByCategory returns the catalog entries of one category.
func (s *DiagnosisService) SymptomsByCategory(category domain.SymptomCategory) []domain.SymptomCatalogEntry {
	return s.kb().SymptomsByCategory(category)
}

// ConditionSummaries lists the known conditions.
func (s *DiagnosisService) ConditionSummaries() []domain.ConditionSummary {
	return s.kb().ConditionSummaries()
}

// Version is the loaded catalog version.
func (s *DiagnosisService) Version() string {
	return s.kb().Version()
}

// Fingerprint is the loaded catalog content hash.
func (s *DiagnosisService) Fingerprint() string {
	return s.kb().Fingerprint()
}

func (s *DiagnosisService) kb() *knowledge.Base {
	return s.engine.KnowledgeBase()
}

package domain

import (
	"context"
)

// Catalog is the raw, unvalidated content of a knowledge base as it is
// read from a file or a database.
type Catalog struct {
	Version    string                `json:"version" yaml:"version"`
	Conditions []ConditionProfile    `json:"conditions" yaml:"conditions"`
	Symptoms   []SymptomCatalogEntry `json:"symptoms" yaml:"symptoms"`
}

// SymptomCatalog exposes read-only lookups over a loaded knowledge base.
type SymptomCatalog interface {
	LookupSymptom(id string) (SymptomCatalogEntry, bool)
	Symptoms() []SymptomCatalogEntry
	SymptomsByCategory(category SymptomCategory) []SymptomCatalogEntry
	ConditionSummaries() []ConditionSummary
	Version() string
	Fingerprint() string
}

// InferenceService is the contract the HTTP, websocket and MCP surfaces are
// built on.
type InferenceService interface {
	SymptomCatalog
	Validate(submission PatientSubmission) []string
	Diagnose(ctx context.Context, submission PatientSubmission) *DiagnosisReport
}

// ResultCache stores ranked assessments keyed by a canonical symptom set.
// Get returns ErrCacheMiss when nothing is stored under key.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]ConditionAssessment, error)
	Set(ctx context.Context, key string, results []ConditionAssessment) error
}

// CatalogStore persists a catalog in a database.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
	SaveCatalog(ctx context.Context, catalog *Catalog) error
	Ping(ctx context.Context) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetDatabaseConnectionString() string
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/medguard-inference-server/internal/domain"
)

// SQLiteStore keeps a catalog in a SQLite file. List columns are stored as
// JSON text.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

var _ domain.CatalogStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the catalog database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conditions (
		key TEXT PRIMARY KEY,
		position INTEGER NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		severity_tier TEXT NOT NULL,
		prior_probability REAL NOT NULL,
		key_symptoms TEXT NOT NULL DEFAULT '[]',
		symptom_likelihoods TEXT NOT NULL DEFAULT '{}',
		recommended_actions TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS symptoms (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		category TEXT NOT NULL,
		severity_weight INTEGER NOT NULL,
		associated_conditions TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_symptoms_category ON symptoms(category);
	`

	_, err := db.Exec(schema)
	return err
}

// LoadCatalog reads the stored catalog in declaration order.
func (s *SQLiteStore) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	c := &domain.Catalog{}

	err := s.db.QueryRowContext(ctx, "SELECT value FROM catalog_meta WHERE key = ?", versionKey).Scan(&c.Version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read catalog version: %w", err)
	}

	conditions, err := s.loadConditions(ctx)
	if err != nil {
		return nil, err
	}
	c.Conditions = conditions

	symptoms, err := s.loadSymptoms(ctx)
	if err != nil {
		return nil, err
	}
	c.Symptoms = symptoms

	return c, nil
}

func (s *SQLiteStore) loadConditions(ctx context.Context) ([]domain.ConditionProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, display_name, description, severity_tier, prior_probability,
			key_symptoms, symptom_likelihoods, recommended_actions
		FROM conditions
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conditions: %w", err)
	}
	defer rows.Close()

	var out []domain.ConditionProfile
	for rows.Next() {
		p, err := scanSQLiteCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conditions: %w", err)
	}
	return out, nil
}

func scanSQLiteCondition(s scanner) (*domain.ConditionProfile, error) {
	p := &domain.ConditionProfile{}
	var tier, keySymptoms, likelihoods, actions string

	if err := s.Scan(&p.Key, &p.DisplayName, &p.Description, &tier, &p.PriorProbability,
		&keySymptoms, &likelihoods, &actions); err != nil {
		return nil, err
	}
	p.SeverityTier = domain.SeverityTier(tier)

	if err := json.Unmarshal([]byte(keySymptoms), &p.KeySymptoms); err != nil {
		return nil, fmt.Errorf("condition %q key_symptoms: %w", p.Key, err)
	}
	if err := json.Unmarshal([]byte(likelihoods), &p.SymptomLikelihoods); err != nil {
		return nil, fmt.Errorf("condition %q symptom_likelihoods: %w", p.Key, err)
	}
	if err := json.Unmarshal([]byte(actions), &p.RecommendedActions); err != nil {
		return nil, fmt.Errorf("condition %q recommended_actions: %w", p.Key, err)
	}
	return p, nil
}

func (s *SQLiteStore) loadSymptoms(ctx context.Context) ([]domain.SymptomCatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, category, severity_weight, associated_conditions
		FROM symptoms
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symptoms: %w", err)
	}
	defer rows.Close()

	var out []domain.SymptomCatalogEntry
	for rows.Next() {
		var e domain.SymptomCatalogEntry
		var category, associated string
		if err := rows.Scan(&e.ID, &e.DisplayName, &category, &e.SeverityWeight, &associated); err != nil {
			return nil, fmt.Errorf("failed to scan symptom: %w", err)
		}
		e.Category = domain.SymptomCategory(category)
		if err := json.Unmarshal([]byte(associated), &e.AssociatedConditions); err != nil {
			return nil, fmt.Errorf("symptom %q associated_conditions: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symptoms: %w", err)
	}
	return out, nil
}

// SaveCatalog replaces the stored catalog with c in one transaction.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, c *domain.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM conditions", "DELETE FROM symptoms"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO catalog_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		versionKey, c.Version,
	); err != nil {
		return fmt.Errorf("failed to write catalog version: %w", err)
	}

	for i, p := range c.Conditions {
		keySymptoms, likelihoods, actions, err := encodeConditionLists(&p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conditions (
				key, position, display_name, description, severity_tier,
				prior_probability, key_symptoms, symptom_likelihoods, recommended_actions
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.Key, i, p.DisplayName, p.Description, string(p.SeverityTier),
			p.PriorProbability, keySymptoms, likelihoods, actions,
		); err != nil {
			return fmt.Errorf("failed to insert condition %q: %w", p.Key, err)
		}
	}

	for i, e := range c.Symptoms {
		associated, err := json.Marshal(nonNil(e.AssociatedConditions))
		if err != nil {
			return fmt.Errorf("failed to encode symptom %q: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO symptoms (id, position, display_name, category, severity_weight, associated_conditions)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			e.ID, i, e.DisplayName, string(e.Category), e.SeverityWeight, string(associated),
		); err != nil {
			return fmt.Errorf("failed to insert symptom %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

func encodeConditionLists(p *domain.ConditionProfile) (keySymptoms, likelihoods, actions string, err error) {
	ks, err := json.Marshal(nonNil(p.KeySymptoms))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode condition %q: %w", p.Key, err)
	}
	lk := p.SymptomLikelihoods
	if lk == nil {
		lk = map[string]float64{}
	}
	lb, err := json.Marshal(lk)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode condition %q: %w", p.Key, err)
	}
	ab, err := json.Marshal(nonNil(p.RecommendedActions))
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode condition %q: %w", p.Key, err)
	}
	return string(ks), string(lb), string(ab), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

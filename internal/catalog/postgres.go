package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/medguard-inference-server/internal/domain"
)

// PostgresStore keeps a catalog in the tables created by the database
// migrations. Key symptoms and actions use TEXT[] columns and likelihoods
// a JSONB column.
type PostgresStore struct {
	db *sql.DB
}

var _ domain.CatalogStore = (*PostgresStore)(nil)

// NewPostgresStore wraps an open database handle and verifies it.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a connection with the lib/pq driver.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// LoadCatalog reads the stored catalog in declaration order.
func (s *PostgresStore) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	c := &domain.Catalog{}

	err := s.db.QueryRowContext(ctx, "SELECT value FROM catalog_meta WHERE key = $1", versionKey).Scan(&c.Version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read catalog version: %w", err)
	}

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

	for rows.Next() {
		p, err := scanPostgresCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		c.Conditions = append(c.Conditions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conditions: %w", err)
	}

	symptoms, err := s.loadSymptoms(ctx)
	if err != nil {
		return nil, err
	}
	c.Symptoms = symptoms

	return c, nil
}

func scanPostgresCondition(s scanner) (*domain.ConditionProfile, error) {
	p := &domain.ConditionProfile{}
	var tier string
	var likelihoods []byte

	if err := s.Scan(&p.Key, &p.DisplayName, &p.Description, &tier, &p.PriorProbability,
		pq.Array(&p.KeySymptoms), &likelihoods, pq.Array(&p.RecommendedActions)); err != nil {
		return nil, err
	}
	p.SeverityTier = domain.SeverityTier(tier)

	if err := json.Unmarshal(likelihoods, &p.SymptomLikelihoods); err != nil {
		return nil, fmt.Errorf("condition %q symptom_likelihoods: %w", p.Key, err)
	}
	return p, nil
}

func (s *PostgresStore) loadSymptoms(ctx context.Context) ([]domain.SymptomCatalogEntry, error) {
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
		var category string
		if err := rows.Scan(&e.ID, &e.DisplayName, &category, &e.SeverityWeight, pq.Array(&e.AssociatedConditions)); err != nil {
			return nil, fmt.Errorf("failed to scan symptom: %w", err)
		}
		e.Category = domain.SymptomCategory(category)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symptoms: %w", err)
	}
	return out, nil
}

// SaveCatalog replaces the stored catalog with c in one transaction.
func (s *PostgresStore) SaveCatalog(ctx context.Context, c *domain.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM conditions"); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM symptoms"); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, versionKey, c.Version); err != nil {
		return fmt.Errorf("failed to write catalog version: %w", err)
	}

	for i, p := range c.Conditions {
		likelihoods := p.SymptomLikelihoods
		if likelihoods == nil {
			likelihoods = map[string]float64{}
		}
		encoded, err := json.Marshal(likelihoods)
		if err != nil {
			return fmt.Errorf("failed to encode condition %q: %w", p.Key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conditions (
				key, position, display_name, description, severity_tier,
				prior_probability, key_symptoms, symptom_likelihoods, recommended_actions
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			p.Key, i, p.DisplayName, p.Description, string(p.SeverityTier), p.PriorProbability,
			pq.Array(nonNil(p.KeySymptoms)), encoded, pq.Array(nonNil(p.RecommendedActions)),
		); err != nil {
			return fmt.Errorf("failed to insert condition %q: %w", p.Key, err)
		}
	}

	for i, e := range c.Symptoms {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO symptoms (id, position, display_name, category, severity_weight, associated_conditions)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			e.ID, i, e.DisplayName, string(e.Category), e.SeverityWeight, pq.Array(nonNil(e.AssociatedConditions)),
		); err != nil {
			return fmt.Errorf("failed to insert symptom %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Package catalog persists knowledge base catalogs in SQLite or PostgreSQL
// and resolves the configured knowledge source into a validated
// knowledge.Base at startup.
package catalog

import (
	"context"
	"fmt"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const versionKey = "version"

// FromStore loads the catalog held by store and builds a knowledge base
// from it. Integrity failures are returned unchanged.
func FromStore(ctx context.Context, store domain.CatalogStore) (*knowledge.Base, error) {
	c, err := store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return knowledge.New(c)
}

// Seed validates c and replaces the contents of store with it. A catalog
// that would not load is never written.
func Seed(ctx context.Context, store domain.CatalogStore, c *domain.Catalog) error {
	if err := knowledge.Check(c); err != nil {
		return err
	}
	return store.SaveCatalog(ctx, c)
}

package catalog

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/database"
	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

// LoadKnowledgeBase resolves the configured knowledge source. Every source
// goes through the same integrity checks, and a corrupt catalog stops
// startup.
func LoadKnowledgeBase(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*knowledge.Base, error) {
	source := cfg.Knowledge.Source
	if source == "" {
		source = domain.SourceBuiltin
	}

	var (
		kb  *knowledge.Base
		err error
	)

	switch source {
	case domain.SourceBuiltin:
		kb, err = knowledge.New(knowledge.Builtin())
	case domain.SourceFile:
		if cfg.Knowledge.File == "" {
			return nil, fmt.Errorf("knowledge source %q requires knowledge.file", source)
		}
		kb, err = knowledge.LoadFile(cfg.Knowledge.File)
	case domain.SourceSQLite:
		if cfg.Knowledge.SQLitePath == "" {
			return nil, fmt.Errorf("knowledge source %q requires knowledge.sqlite_path", source)
		}
		var store *SQLiteStore
		store, err = NewSQLiteStore(cfg.Knowledge.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		kb, err = FromStore(ctx, store)
	case domain.SourcePostgres:
		var store *PostgresStore
		store, err = NewPostgresStoreFromURL(database.ConfigFromDomain(cfg.Database).URL())
		if err != nil {
			return nil, err
		}
		defer store.Close()
		kb, err = FromStore(ctx, store)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSource, source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base from %s: %w", source, err)
	}

	logger.WithFields(logrus.Fields{
		"source":      source,
		"version":     kb.Version(),
		"fingerprint": kb.Fingerprint(),
		"conditions":  len(kb.Conditions()),
		"symptoms":    len(kb.Symptoms()),
	}).Info("Knowledge base loaded")

	return kb, nil
}

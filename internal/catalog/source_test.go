package catalog

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadKnowledgeBaseBuiltin(t *testing.T) {
	for _, source := range []string{"", domain.SourceBuiltin} {
		t.Run("source="+source, func(t *testing.T) {
			cfg := &domain.Config{Knowledge: domain.KnowledgeConfig{Source: source}}

			kb, err := LoadKnowledgeBase(context.Background(), cfg, testLogger())

			require.NoError(t, err)
			assert.Equal(t, knowledge.BuiltinVersion, kb.Version())
			assert.Equal(t, knowledge.Default().Fingerprint(), kb.Fingerprint())
		})
	}
}

func TestLoadKnowledgeBaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	c := knowledge.Builtin()
	c.Version = "file-v1"
	require.NoError(t, knowledge.WriteFile(path, c))

	cfg := &domain.Config{Knowledge: domain.KnowledgeConfig{Source: domain.SourceFile, File: path}}
	kb, err := LoadKnowledgeBase(context.Background(), cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, "file-v1", kb.Version())
	assert.Len(t, kb.Conditions(), 6)
}

func TestLoadKnowledgeBaseSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, Seed(context.Background(), store, knowledge.Builtin()))
	require.NoError(t, store.Close())

	cfg := &domain.Config{Knowledge: domain.KnowledgeConfig{Source: domain.SourceSQLite, SQLitePath: path}}
	kb, err := LoadKnowledgeBase(context.Background(), cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, knowledge.Default().Fingerprint(), kb.Fingerprint())
}

func TestLoadKnowledgeBaseErrors(t *testing.T) {
	emptySQLite := filepath.Join(t.TempDir(), "empty.db")

	tests := []struct {
		name     string
		config   domain.KnowledgeConfig
		wantErr  error
		contains string
	}{
		{
			name:    "unknown source",
			config:  domain.KnowledgeConfig{Source: "mongodb"},
			wantErr: domain.ErrUnknownSource,
		},
		{
			name:     "file source without path",
			config:   domain.KnowledgeConfig{Source: domain.SourceFile},
			contains: "requires knowledge.file",
		},
		{
			name:     "missing file",
			config:   domain.KnowledgeConfig{Source: domain.SourceFile, File: filepath.Join(t.TempDir(), "absent.yaml")},
			contains: "failed to load knowledge base from file",
		},
		{
			name:     "sqlite source without path",
			config:   domain.KnowledgeConfig{Source: domain.SourceSQLite},
			contains: "requires knowledge.sqlite_path",
		},
		{
			name:    "empty sqlite catalog",
			config:  domain.KnowledgeConfig{Source: domain.SourceSQLite, SQLitePath: emptySQLite},
			wantErr: domain.ErrCorruptKnowledgeBase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &domain.Config{Knowledge: tt.config}

			kb, err := LoadKnowledgeBase(context.Background(), cfg, testLogger())

			require.Error(t, err)
			assert.Nil(t, kb)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

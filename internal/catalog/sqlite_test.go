package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medguard-inference-server/internal/domain"
	"github.com/medguard-inference-server/internal/knowledge"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "catalog", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "catalog.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
	assert.Equal(t, dbPath, store.Path())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStoreEmptyCatalog(t *testing.T) {
	store := createTestStore(t)

	c, err := store.LoadCatalog(context.Background())

	require.NoError(t, err)
	assert.Empty(t, c.Version)
	assert.Empty(t, c.Conditions)
	assert.Empty(t, c.Symptoms)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, store, knowledge.Builtin()))

	loaded, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, knowledge.Builtin(), loaded)

	kb, err := FromStore(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, knowledge.Default().Fingerprint(), kb.Fingerprint())
	assert.Equal(t, knowledge.BuiltinVersion, kb.Version())
}

func TestSQLiteStoreSaveReplacesCatalog(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveCatalog(ctx, knowledge.Builtin()))

	replacement := &domain.Catalog{
		Version: "v2",
		Conditions: []domain.ConditionProfile{{
			Key:                "migraine",
			DisplayName:        "Migraine",
			SeverityTier:       domain.SeverityLow,
			PriorProbability:   0.1,
			KeySymptoms:        []string{"headache"},
			SymptomLikelihoods: map[string]float64{"headache": 0.9},
		}},
	}
	require.NoError(t, store.SaveCatalog(ctx, replacement))

	loaded, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.Version)
	require.Len(t, loaded.Conditions, 1)
	assert.Equal(t, "migraine", loaded.Conditions[0].Key)
	assert.Equal(t, []string{}, loaded.Conditions[0].RecommendedActions)
	assert.Empty(t, loaded.Symptoms)
}

func TestSeedRejectsCorruptCatalog(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	err := Seed(ctx, store, &domain.Catalog{Version: "broken"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptKnowledgeBase))

	loaded, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Version, "nothing should have been written")
}

func TestFromStoreRejectsCorruptCatalog(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	bad := knowledge.Builtin()
	bad.Conditions[0].PriorProbability = 0.5
	bad.Conditions[0].SymptomLikelihoods = map[string]float64{}
	bad.Conditions[0].KeySymptoms = nil
	require.NoError(t, store.SaveCatalog(ctx, bad))

	_, err := FromStore(ctx, store)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptKnowledgeBase))
}

func TestSQLiteStoreLoadErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &SQLiteStore{db: db}

	mock.ExpectQuery("SELECT value FROM catalog_meta").
		WithArgs(versionKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("v1"))
	mock.ExpectQuery("SELECT (.+) FROM conditions").
		WillReturnRows(sqlmock.NewRows([]string{
			"key", "display_name", "description", "severity_tier", "prior_probability",
			"key_symptoms", "symptom_likelihoods", "recommended_actions",
		}).AddRow("flu", "Flu", "", "medium", 0.2, "not json", "{}", "[]"))

	_, err = store.LoadCatalog(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_symptoms")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStoreSaveRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &SQLiteStore{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM conditions").WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec("DELETE FROM symptoms").WillReturnResult(sqlmock.NewResult(0, 20))
	mock.ExpectExec("INSERT INTO catalog_meta").
		WithArgs(versionKey, knowledge.BuiltinVersion).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO conditions").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.SaveCatalog(context.Background(), knowledge.Builtin())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to insert condition "malaria"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

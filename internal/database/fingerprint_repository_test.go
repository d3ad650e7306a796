package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/database"
	"github.com/openrecipes/harvester/internal/domain"
)

func TestFingerprintRepositoryExists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"hash recorded", true},
		{"hash unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock := newMockDB(t)
			repo := database.NewFingerprintRepository(db)

			mock.ExpectQuery("SELECT EXISTS").
				WithArgs("hash-1").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.want))

			exists, err := repo.Exists(context.Background(), "hash-1")

			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFingerprintRepositoryCreate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewFingerprintRepository(db)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fp := &domain.RecipeFingerprint{
		Hash:       "hash-1",
		ProviderID: "provider-1",
		RecipeURL:  "https://x.com/r",
		RecipeID:   "recipe-1",
		CreatedAt:  created,
	}

	mock.ExpectExec("INSERT INTO recipe_fingerprints").
		WithArgs("hash-1", "provider-1", "https://x.com/r", "recipe-1", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), fp)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFingerprintRepositoryCreateDuplicateNoops(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewFingerprintRepository(db)

	// ON CONFLICT DO NOTHING reports zero affected rows; that is success.
	mock.ExpectExec("INSERT INTO recipe_fingerprints").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &domain.RecipeFingerprint{
		Hash: "hash-1", ProviderID: "p", RecipeURL: "u", RecipeID: "r",
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFingerprintRepositoryGetByProviderURL(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewFingerprintRepository(db)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM recipe_fingerprints").
		WithArgs("provider-1", "https://x.com/r").
		WillReturnRows(sqlmock.NewRows(
			[]string{"hash", "provider_id", "recipe_url", "recipe_id", "created_at"},
		).AddRow("hash-1", "provider-1", "https://x.com/r", "recipe-1", created))

	fp, err := repo.GetByProviderURL(context.Background(), "provider-1", "https://x.com/r")

	require.NoError(t, err)
	assert.Equal(t, "hash-1", fp.Hash)
	assert.Equal(t, "recipe-1", fp.RecipeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

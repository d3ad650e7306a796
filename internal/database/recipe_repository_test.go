package database_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrecipes/harvester/internal/database"
	"github.com/openrecipes/harvester/internal/domain"
)

func TestRecipeRepositoryUpsert(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewRecipeRepository(db)

	canonical := "flour"
	recipe := &domain.Recipe{
		ID:           "recipe-1",
		ProviderID:   "provider-1",
		SourceURL:    "https://x.com/r",
		Title:        "Alpha Stew",
		Description:  "Hearty.",
		Instructions: "Simmer.",
		Ingredients: []domain.Ingredient{
			{ProviderCode: "ING-1", Canonical: &canonical},
			{ProviderCode: "ING-2"},
		},
	}

	mock.ExpectExec("INSERT INTO recipes").
		WithArgs(
			"recipe-1", "provider-1", "https://x.com/r",
			"Alpha Stew", "Hearty.", "Simmer.",
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), recipe)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepositoryExists(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := database.NewRecipeRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("recipe-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "recipe-1")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

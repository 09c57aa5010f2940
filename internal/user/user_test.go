package user

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"intellieats/internal/apperr"
	"intellieats/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	d, err := database.NewDB(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewRepository(d.SQL)
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	u, err := repo.Create(ctx, "ana", "Ana@Example.com")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, DefaultGoals(), u.Goals)

	got, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, got.Username)

	t.Run("Duplicate", func(t *testing.T) {
		_, err := repo.Create(ctx, "ana", "other@example.com")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := repo.Create(ctx, "", "x@example.com")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
		_, err = repo.Create(ctx, "bob", "not-an-email")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := repo.Get(ctx, 999)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestRepository_GetOrCreateByTelegramID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first, err := repo.GetOrCreateByTelegramID(ctx, 42, "ana")
	require.NoError(t, err)
	assert.Equal(t, int64(42), first.TelegramID)
	assert.Equal(t, "ana_42", first.Username)

	again, err := repo.GetOrCreateByTelegramID(ctx, 42, "renamed")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestRepository_UpdateGoals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	u, err := repo.Create(ctx, "ana", "ana@example.com")
	require.NoError(t, err)

	updated, err := repo.UpdateGoals(ctx, u.ID, Goals{Calories: 1800, Protein: 120, Carbohydrates: 180, Fat: 60})
	require.NoError(t, err)
	assert.Equal(t, 1800, updated.Goals.Calories)

	_, err = repo.UpdateGoals(ctx, u.ID, Goals{Calories: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = repo.UpdateGoals(ctx, 999, DefaultGoals())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	t.Run("RejectsNonFiniteMacros", func(t *testing.T) {
		for name, g := range map[string]Goals{
			"NaN protein":  {Calories: 1800, Protein: math.NaN(), Carbohydrates: 180, Fat: 60},
			"Inf carbs":    {Calories: 1800, Protein: 120, Carbohydrates: math.Inf(1), Fat: 60},
			"-Inf fat":     {Calories: 1800, Protein: 120, Carbohydrates: 180, Fat: math.Inf(-1)},
			"negative fat": {Calories: 1800, Protein: 120, Carbohydrates: 180, Fat: -1},
		} {
			_, err := repo.UpdateGoals(ctx, u.ID, g)
			assert.True(t, apperr.Is(err, apperr.KindValidation), name)
		}

		got, err := repo.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 120.0, got.Goals.Protein)
	})
}

package summary

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"intellieats/internal/apperr"
	"intellieats/internal/database"
	"intellieats/internal/diary"
	"intellieats/internal/food"
	"intellieats/internal/logger"
	"intellieats/internal/resolver"
	"intellieats/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Daily(t *testing.T) {
	ctx := context.Background()
	d, err := database.NewDB(filepath.Join(t.TempDir(), "summary.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	foods := food.NewRepository(d.SQL)
	users := user.NewRepository(d.SQL)
	entries := diary.NewService(d.SQL, resolver.New(foods, nil, nil, logger.Nop()), users, logger.Nop())
	engine := NewEngine(entries, users, time.UTC)

	u, err := users.Create(ctx, "ana", "ana@example.com")
	require.NoError(t, err)

	unit, err := foods.Create(ctx, food.Food{Name: "Unit", Calories: 1, Protein: 0.1})
	require.NoError(t, err)

	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	log := func(kcal float64, meal string, at time.Time) {
		_, err := entries.LogEntry(ctx, diary.LogRequest{UserID: u.ID, Food: unit, Servings: kcal, Meal: meal, EatenAt: &at})
		require.NoError(t, err)
	}
	log(300, "breakfast", day.Add(8*time.Hour))
	log(450, "lunch", day.Add(13*time.Hour))
	log(120, "lunch", day.Add(23*time.Hour+59*time.Minute))
	log(999, "dinner", day.Add(24*time.Hour))

	s, err := engine.Daily(ctx, u.ID, day.Add(10*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 870.0, s.Totals.Calories)
	assert.InDelta(t, 87.0, s.Totals.Protein, 1e-9)
	assert.Len(t, s.Entries, 3)
	assert.Equal(t, 1, s.Days)
	assert.Equal(t, user.DefaultGoals(), s.Goals)

	require.Len(t, s.Meals, 4)
	assert.Equal(t, 300.0, s.Meals[diary.Breakfast].Totals.Calories)
	assert.Equal(t, 570.0, s.Meals[diary.Lunch].Totals.Calories)
	assert.Len(t, s.Meals[diary.Lunch].Entries, 2)
	assert.NotNil(t, s.Meals[diary.Dinner].Entries)
	assert.Empty(t, s.Meals[diary.Dinner].Entries)
	assert.Empty(t, s.Meals[diary.Snack].Entries)

	t.Run("Weekly", func(t *testing.T) {
		w, err := engine.Weekly(ctx, u.ID, day.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 7, w.Days)
		assert.Equal(t, 1869.0, w.Totals.Calories)
		assert.InDelta(t, 1869.0/7, w.Averages.Calories, 1e-9)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := engine.Daily(ctx, 999, day)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("EmptyWindow", func(t *testing.T) {
		_, err := engine.Summarize(ctx, u.ID, Window{Start: day, End: day})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})
}

func TestAggregate_IgnoresEntriesOutsideWindow(t *testing.T) {
	w := DayWindow(time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC), time.UTC)
	in := diary.EntryWithFood{Entry: diary.LoggedEntry{Calories: 100, Meal: diary.Snack, EatenAt: w.Start}}
	out := diary.EntryWithFood{Entry: diary.LoggedEntry{Calories: 500, Meal: diary.Snack, EatenAt: w.End}}

	s := Aggregate(1, w, user.DefaultGoals(), []diary.EntryWithFood{in, out})
	assert.Equal(t, 100.0, s.Totals.Calories)
	assert.Equal(t, 100.0, s.Meals[diary.Snack].Totals.Calories)
}

func TestDayWindow(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:00 UTC on the 15th is still the 14th in Sao Paulo.
	w := DayWindow(time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, 14, w.Start.Day())
	assert.Equal(t, 24*time.Hour, w.End.Sub(w.Start))
	assert.Equal(t, 1, w.Days())

	week := WeekWindow(w.Start, loc)
	assert.Equal(t, w.End, week.End)
	assert.Equal(t, 7, week.Days())
}

func TestParseDay(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	d, err := ParseDay("2025-02-01", time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	today, err := ParseDay("", time.UTC, now)
	require.NoError(t, err)
	assert.True(t, today.Equal(now))

	for _, bad := range []string{"2025-13-01", "14/03/2025", "yesterday"} {
		_, err := ParseDay(bad, time.UTC, now)
		assert.True(t, apperr.Is(err, apperr.KindValidation), bad)
	}
}

// Package diary logs what users eat. Each entry freezes the nutrition values
// of its food at log time, so later edits to the food never change history.
package diary

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"intellieats/internal/apperr"
	db "intellieats/internal/diary/db"
	"intellieats/internal/food"
	"intellieats/internal/logger"
	"intellieats/internal/user"
)

// Meal is the meal category of an entry.
type Meal string

const (
	Breakfast Meal = "breakfast"
	Lunch     Meal = "lunch"
	Dinner    Meal = "dinner"
	Snack     Meal = "snack"
)

// Meals lists every category in display order.
var Meals = []Meal{Breakfast, Lunch, Dinner, Snack}

// ParseMeal accepts a category name case-insensitively.
func ParseMeal(s string) (Meal, error) {
	m := Meal(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Meals {
		if m == known {
			return m, nil
		}
	}
	return "", apperr.Validation("diary.ParseMeal", "unknown meal type %q (want breakfast, lunch, dinner or snack)", s)
}

// LoggedEntry is an immutable record of one eating event.
type LoggedEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	FoodID        int64     `json:"food_id"`
	Servings      float64   `json:"servings"`
	Meal          Meal      `json:"meal_type"`
	EatenAt       time.Time `json:"eaten_at"`
	Calories      float64   `json:"calories"`
	Protein       float64   `json:"protein"`
	Carbohydrates float64   `json:"carbohydrates"`
	Fat           float64   `json:"fat"`
	CreatedAt     time.Time `json:"created_at"`
}

// EntryWithFood pairs an entry with a display copy of its food. In listings
// only the food's id, name, brand and serving description are populated.
type EntryWithFood struct {
	Entry LoggedEntry `json:"entry"`
	Food  food.Food   `json:"food"`
}

// LogRequest describes an entry to log. Food may be a stored food or an
// unsaved provider result. A nil EatenAt means now.
type LogRequest struct {
	UserID   int64
	Food     food.Food
	Servings float64
	Meal     string
	EatenAt  *time.Time
}

// FoodStorer persists foods that have no local id yet.
type FoodStorer interface {
	EnsureStored(ctx context.Context, f food.Food) (food.Food, error)
}

// UserGetter loads users.
type UserGetter interface {
	Get(ctx context.Context, id int64) (user.User, error)
}

// Service creates, deletes and lists entries.
type Service struct {
	queries *db.Queries
	foods   FoodStorer
	users   UserGetter
	log     *logger.Logger
	now     func() time.Time
}

func NewService(d *sql.DB, foods FoodStorer, users UserGetter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		queries: db.New(d),
		foods:   foods,
		users:   users,
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for default timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Snapshot computes the frozen nutrient values of servings of f.
func Snapshot(f food.Food, servings float64) (calories, protein, carbohydrates, fat float64) {
	return servings * f.Calories, servings * f.Protein, servings * f.Carbohydrates, servings * f.Fat
}

// LogEntry validates req, stores its food when needed and records the entry.
func (s *Service) LogEntry(ctx context.Context, req LogRequest) (EntryWithFood, error) {
	const op = "diary.LogEntry"

	if math.IsNaN(req.Servings) || math.IsInf(req.Servings, 0) || req.Servings <= 0 {
		return EntryWithFood{}, apperr.Validation(op, "servings must be a positive number")
	}
	meal, err := ParseMeal(req.Meal)
	if err != nil {
		return EntryWithFood{}, err
	}
	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		return EntryWithFood{}, err
	}

	f, err := s.foods.EnsureStored(ctx, req.Food)
	if err != nil {
		return EntryWithFood{}, err
	}

	now := s.now()
	eatenAt := now
	if req.EatenAt != nil && !req.EatenAt.IsZero() {
		eatenAt = *req.EatenAt
	}

	calories, protein, carbs, fat := Snapshot(f, req.Servings)
	row, err := s.queries.InsertEntry(ctx, db.InsertEntryParams{
		UserID:        req.UserID,
		FoodID:        f.ID,
		EatenAt:       eatenAt.UTC(),
		MealType:      string(meal),
		Servings:      req.Servings,
		Calories:      calories,
		Protein:       protein,
		Carbohydrates: carbs,
		Fat:           fat,
		CreatedAt:     now.UTC(),
	})
	if err != nil {
		return EntryWithFood{}, fmt.Errorf("failed to insert entry: %w", err)
	}

	s.log.Debug("Logged entry", "user_id", req.UserID, "food_id", f.ID, "entry_id", row.ID, "calories", calories)
	return EntryWithFood{Entry: fromRow(row), Food: f}, nil
}

// LogFoodByID logs a stored food.
func (s *Service) LogFoodByID(ctx context.Context, userID, foodID int64, servings float64, meal string, eatenAt *time.Time) (EntryWithFood, error) {
	if foodID <= 0 {
		return EntryWithFood{}, apperr.Validation("diary.LogFoodByID", "food_id is required")
	}
	return s.LogEntry(ctx, LogRequest{
		UserID:   userID,
		Food:     food.Food{ID: foodID},
		Servings: servings,
		Meal:     meal,
		EatenAt:  eatenAt,
	})
}

// Delete removes one of the user's entries.
func (s *Service) Delete(ctx context.Context, userID, entryID int64) error {
	n, err := s.queries.DeleteEntry(ctx, db.DeleteEntryParams{ID: entryID, UserID: userID})
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("diary.Delete", "entry %d not found", entryID)
	}
	return nil
}

// ListBetween returns the user's entries with from <= eaten_at < to, oldest first.
func (s *Service) ListBetween(ctx context.Context, userID int64, from, to time.Time) ([]EntryWithFood, error) {
	rows, err := s.queries.ListEntriesBetween(ctx, db.ListEntriesBetweenParams{
		UserID: userID,
		From:   from.UTC(),
		To:     to.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	entries := make([]EntryWithFood, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, EntryWithFood{
			Entry: fromRow(row.FoodEntry),
			Food: food.Food{
				ID:          row.FoodID,
				Name:        row.FoodName,
				Brand:       row.FoodBrand,
				ServingSize: row.FoodServingSize,
			},
		})
	}
	return entries, nil
}

func fromRow(row db.FoodEntry) LoggedEntry {
	return LoggedEntry{
		ID:            row.ID,
		UserID:        row.UserID,
		FoodID:        row.FoodID,
		Servings:      row.Servings,
		Meal:          Meal(row.MealType),
		EatenAt:       row.EatenAt,
		Calories:      row.Calories,
		Protein:       row.Protein,
		Carbohydrates: row.Carbohydrates,
		Fat:           row.Fat,
		CreatedAt:     row.CreatedAt,
	}
}

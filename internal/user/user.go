// Package user stores the people whose intake is tracked, with their daily goals.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"intellieats/internal/apperr"
	db "intellieats/internal/user/db"
)

// Default daily goals for new users.
const (
	DefaultCalorieGoal = 2000
	DefaultProteinGoal = 150.0
	DefaultCarbGoal    = 200.0
	DefaultFatGoal     = 65.0
)

// Goals are a user's daily targets.
type Goals struct {
	Calories      int     `json:"calorie_goal"`
	Protein       float64 `json:"protein_goal"`
	Carbohydrates float64 `json:"carb_goal"`
	Fat           float64 `json:"fat_goal"`
}

// DefaultGoals returns the goals assigned at sign-up.
func DefaultGoals() Goals {
	return Goals{
		Calories:      DefaultCalorieGoal,
		Protein:       DefaultProteinGoal,
		Carbohydrates: DefaultCarbGoal,
		Fat:           DefaultFatGoal,
	}
}

type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	TelegramID int64     `json:"telegram_id,omitempty"`
	Goals      Goals     `json:"goals"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists users.
type Repository struct {
	queries *db.Queries
	now     func() time.Time
}

func NewRepository(d *sql.DB) *Repository {
	return &Repository{queries: db.New(d), now: time.Now}
}

// Create registers a user with the default goals.
func (r *Repository) Create(ctx context.Context, username, email string) (User, error) {
	const op = "user.Create"

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" {
		return User{}, apperr.Validation(op, "username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return User{}, apperr.Validation(op, "a valid email is required")
	}
	return r.insert(ctx, op, username, email, 0)
}

// Get loads a user, returning a NotFound error when absent.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.NotFound("user.Get", "user %d not found", id)
		}
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return fromRow(row), nil
}

// GetOrCreateByTelegramID maps a Telegram account to a local user, creating
// one with a synthetic email on first contact.
func (r *Repository) GetOrCreateByTelegramID(ctx context.Context, telegramID int64, username string) (User, error) {
	const op = "user.GetOrCreateByTelegramID"

	row, err := r.queries.GetUserByTelegramID(ctx, sql.NullInt64{Int64: telegramID, Valid: true})
	if err == nil {
		return fromRow(row), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("failed to get user by telegram id: %w", err)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = "telegram"
	}
	// Telegram usernames are not unique over time, so the id is appended.
	username = fmt.Sprintf("%s_%d", username, telegramID)
	email := fmt.Sprintf("tg%d@telegram.local", telegramID)

	u, err := r.insert(ctx, op, username, email, telegramID)
	if apperr.Is(err, apperr.KindValidation) {
		// Lost a race with another update from the same account.
		row, getErr := r.queries.GetUserByTelegramID(ctx, sql.NullInt64{Int64: telegramID, Valid: true})
		if getErr == nil {
			return fromRow(row), nil
		}
	}
	return u, err
}

// UpdateGoals replaces a user's daily goals.
func (r *Repository) UpdateGoals(ctx context.Context, id int64, g Goals) (User, error) {
	const op = "user.UpdateGoals"

	if g.Calories <= 0 || !validMacro(g.Protein) || !validMacro(g.Carbohydrates) || !validMacro(g.Fat) {
		return User{}, apperr.Validation(op, "goals must be positive")
	}
	n, err := r.queries.UpdateUserGoals(ctx, db.UpdateUserGoalsParams{
		CalorieGoal: int64(g.Calories),
		ProteinGoal: g.Protein,
		CarbGoal:    g.Carbohydrates,
		FatGoal:     g.Fat,
		ID:          id,
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to update goals: %w", err)
	}
	if n == 0 {
		return User{}, apperr.NotFound(op, "user %d not found", id)
	}
	return r.Get(ctx, id)
}

func validMacro(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (r *Repository) insert(ctx context.Context, op, username, email string, telegramID int64) (User, error) {
	goals := DefaultGoals()
	row, err := r.queries.InsertUser(ctx, db.InsertUserParams{
		Username:    username,
		Email:       email,
		TelegramID:  sql.NullInt64{Int64: telegramID, Valid: telegramID != 0},
		CalorieGoal: int64(goals.Calories),
		ProteinGoal: goals.Protein,
		CarbGoal:    goals.Carbohydrates,
		FatGoal:     goals.Fat,
		CreatedAt:   r.now().UTC(),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, apperr.Validation(op, "username or email already registered")
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return fromRow(row), nil
}

func fromRow(row db.User) User {
	return User{
		ID:         row.ID,
		Username:   row.Username,
		Email:      row.Email,
		TelegramID: row.TelegramID.Int64,
		Goals: Goals{
			Calories:      int(row.CalorieGoal),
			Protein:       row.ProteinGoal,
			Carbohydrates: row.CarbGoal,
			Fat:           row.FatGoal,
		},
		CreatedAt: row.CreatedAt,
	}
}

package db

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, username, email, telegram_id, calorie_goal, protein_goal, carb_goal, fat_goal, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Email,
		&i.TelegramID,
		&i.CalorieGoal,
		&i.ProteinGoal,
		&i.CarbGoal,
		&i.FatGoal,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	return scanUser(row)
}

const getUserByTelegramID = `-- name: GetUserByTelegramID :one
SELECT ` + userColumns + ` FROM users WHERE telegram_id = ?
`

func (q *Queries) GetUserByTelegramID(ctx context.Context, telegramID sql.NullInt64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByTelegramID, telegramID)
	return scanUser(row)
}

const insertUser = `-- name: InsertUser :one
INSERT INTO users (
    username, email, telegram_id, calorie_goal, protein_goal, carb_goal, fat_goal, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + userColumns + `
`

type InsertUserParams struct {
	Username    string
	Email       string
	TelegramID  sql.NullInt64
	CalorieGoal int64
	ProteinGoal float64
	CarbGoal    float64
	FatGoal     float64
	CreatedAt   time.Time
}

func (q *Queries) InsertUser(ctx context.Context, arg InsertUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, insertUser,
		arg.Username,
		arg.Email,
		arg.TelegramID,
		arg.CalorieGoal,
		arg.ProteinGoal,
		arg.CarbGoal,
		arg.FatGoal,
		arg.CreatedAt,
	)
	return scanUser(row)
}

const updateUserGoals = `-- name: UpdateUserGoals :execrows
UPDATE users SET calorie_goal = ?, protein_goal = ?, carb_goal = ?, fat_goal = ? WHERE id = ?
`

type UpdateUserGoalsParams struct {
	CalorieGoal int64
	ProteinGoal float64
	CarbGoal    float64
	FatGoal     float64
	ID          int64
}

func (q *Queries) UpdateUserGoals(ctx context.Context, arg UpdateUserGoalsParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserGoals,
		arg.CalorieGoal,
		arg.ProteinGoal,
		arg.CarbGoal,
		arg.FatGoal,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
